package restore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"restic-backup-service/src/discovery"
	"restic-backup-service/src/interactive"
	"restic-backup-service/src/repository"
	"restic-backup-service/src/safety"
)

// State is a phase of the restore workflow.
type State int

const (
	HostSelect State = iota
	RepositoryDiscovery
	TargetSelect
	TimeWindowSelect
	Execute
	PostActionSelect
	Done
	Cancelled
)

var stateNames = map[State]string{
	HostSelect:          "host-select",
	RepositoryDiscovery: "repository-discovery",
	TargetSelect:        "target-select",
	TimeWindowSelect:    "time-window-select",
	Execute:             "execute",
	PostActionSelect:    "post-action",
	Done:                "done",
	Cancelled:           "cancelled",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Scanner is the discovery capability the workflow drives.
type Scanner interface {
	DiscoverHosts(ctx context.Context) ([]string, error)
	ScanHost(ctx context.Context, host string) (discovery.Result, error)
}

// Deps are the collaborators of a Workflow.
type Deps struct {
	Scanner  Scanner
	Restorer Restorer
	Locator  discovery.Locator
	Selector interactive.Selector
	Safety   safety.Options
	// StagingDir receives one subdirectory per invocation.
	StagingDir   string
	InvocationID string
	Concurrency  int
	// DefaultHost is preselected in the host prompt when present.
	DefaultHost string
	Out         io.Writer
	Log         zerolog.Logger
	Now         func() time.Time
}

// Options preset answers so the matching prompts are skipped.
type Options struct {
	Host       string
	Path       string
	At         time.Time
	PostAction PostAction
}

// Workflow is the interactive restore state machine:
// host-select -> repository-discovery -> target-select -> time-window-select
// -> execute -> post-action -> done. The user may cancel at any prompt;
// execute is the only phase with side effects and cannot be cancelled.
type Workflow struct {
	deps  Deps
	log   zerolog.Logger
	steps map[State]step
}

type step func(ctx context.Context, r *run) (State, error)

// run is the data accumulated while moving through the phases.
type run struct {
	opts      Options
	host      string
	scan      discovery.Result
	working   []repository.Data
	selection Selection
	pairs     []PairOutcome
}

func NewWorkflow(deps Deps) *Workflow {
	if deps.Out == nil {
		deps.Out = io.Discard
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	w := &Workflow{deps: deps, log: deps.Log.With().Str("component", "restore-workflow").Logger()}
	w.steps = map[State]step{
		HostSelect:          w.selectHost,
		RepositoryDiscovery: w.discover,
		TargetSelect:        w.selectTarget,
		TimeWindowSelect:    w.selectWindow,
		Execute:             w.execute,
		PostActionSelect:    w.postAction,
	}
	return w
}

// Run drives the workflow to Done or Cancelled. Terminal failures return an
// error together with the outcome collected so far.
func (w *Workflow) Run(ctx context.Context, opts Options) (Outcome, error) {
	r := &run{opts: opts}
	state := HostSelect
	for state != Done && state != Cancelled {
		if err := ctx.Err(); err != nil {
			return w.outcome(r, Cancelled), err
		}
		next, err := w.steps[state](ctx, r)
		if err != nil {
			return w.outcome(r, state), err
		}
		w.log.Debug().Stringer("from", state).Stringer("to", next).Msg("transition")
		state = next
	}
	return w.outcome(r, state), nil
}

func (w *Workflow) outcome(r *run, state State) Outcome {
	return Outcome{
		State:        state,
		Host:         r.host,
		Window:       r.selection.Window,
		StagingDir:   w.stagingRoot(),
		Pairs:        r.pairs,
		ScanWarnings: r.scan.Failures,
	}
}

func (w *Workflow) stagingRoot() string {
	if w.deps.InvocationID == "" {
		return w.deps.StagingDir
	}
	return filepath.Join(w.deps.StagingDir, w.deps.InvocationID)
}

// cancelOr turns a prompt cancellation into the Cancelled transition.
func cancelOr(err error) (State, error) {
	if errors.Is(err, interactive.ErrCancelled) {
		return Cancelled, nil
	}
	return 0, err
}

func (w *Workflow) selectHost(ctx context.Context, r *run) (State, error) {
	if r.opts.Host != "" {
		r.host = r.opts.Host
		return RepositoryDiscovery, nil
	}
	hosts, err := w.deps.Scanner.DiscoverHosts(ctx)
	if err != nil {
		return 0, err
	}
	if len(hosts) == 0 {
		return 0, &NoHostsFoundError{}
	}
	if len(hosts) == 1 {
		r.host = hosts[0]
		fmt.Fprintf(w.deps.Out, "Using host %s\n", r.host)
		return RepositoryDiscovery, nil
	}
	def := 0
	for i, h := range hosts {
		if h == w.deps.DefaultHost {
			def = i
		}
	}
	idx, err := w.deps.Selector.Select("Select host to restore from", hosts, def)
	if err != nil {
		return cancelOr(err)
	}
	r.host = hosts[idx]
	return RepositoryDiscovery, nil
}

func (w *Workflow) discover(ctx context.Context, r *run) (State, error) {
	fmt.Fprintf(w.deps.Out, "Scanning repositories of %s...\n", r.host)
	res, err := w.deps.Scanner.ScanHost(ctx, r.host)
	if err != nil {
		return 0, err
	}
	r.scan = res
	if len(res.Repos) == 0 {
		if len(res.Failures) > 0 {
			return 0, &RepositoryScanFailure{Host: r.host, Failures: res.Failures}
		}
		return 0, &discovery.DiscoveryError{Op: "scan host", Prefix: r.host, Err: ErrNoRepositories}
	}
	fmt.Fprintf(w.deps.Out, "Found %d repositories", len(res.Repos))
	if n := len(res.Failures); n > 0 {
		fmt.Fprintf(w.deps.Out, " (%d could not be scanned)", n)
	}
	fmt.Fprintln(w.deps.Out)
	return TargetSelect, nil
}

// restorable returns the scanned repositories that hold snapshots.
func (r *run) restorable() []repository.Data {
	var out []repository.Data
	for _, d := range r.scan.Repos {
		if len(d.Snapshots) > 0 {
			out = append(out, d)
		}
	}
	return out
}

const (
	targetAll = iota
	targetCategory
	targetCustom
	targetIndividual
)

type targetChoice struct {
	kind     int
	category repository.Category
	label    string
}

func (w *Workflow) selectTarget(_ context.Context, r *run) (State, error) {
	candidates := r.restorable()
	if len(candidates) == 0 {
		return 0, &discovery.DiscoveryError{Op: "scan host", Prefix: r.host, Err: ErrNoSnapshots}
	}
	if r.opts.Path != "" {
		d, ok := matchPath(candidates, r.opts.Path)
		if !ok {
			return 0, fmt.Errorf("no repository of host %s backs up %s", r.host, r.opts.Path)
		}
		r.working = []repository.Data{d}
		return TimeWindowSelect, nil
	}

	byCat := make(map[repository.Category][]repository.Data)
	for _, d := range candidates {
		byCat[d.Address.Category] = append(byCat[d.Address.Category], d)
	}
	choices := []targetChoice{{kind: targetAll, label: fmt.Sprintf("All repositories (%d)", len(candidates))}}
	for _, c := range repository.Categories {
		choices = append(choices, targetChoice{kind: targetCategory, category: c, label: fmt.Sprintf("%s (%d)", c.Label(), len(byCat[c]))})
	}
	choices = append(choices,
		targetChoice{kind: targetCustom, label: "Custom selection..."},
		targetChoice{kind: targetIndividual, label: "Individual repository..."},
	)
	labels := make([]string, len(choices))
	for i, c := range choices {
		labels[i] = c.label
	}
	idx, err := w.deps.Selector.Select("What do you want to restore?", labels, 0)
	if err != nil {
		return cancelOr(err)
	}

	var working []repository.Data
	switch choice := choices[idx]; choice.kind {
	case targetAll:
		working = candidates
	case targetCategory:
		working = byCat[choice.category]
	case targetCustom:
		picked, err := w.deps.Selector.MultiSelect("Select repositories", repoLabels(candidates))
		if err != nil {
			return cancelOr(err)
		}
		for _, i := range picked {
			working = append(working, candidates[i])
		}
	case targetIndividual:
		i, err := w.deps.Selector.Select("Select repository", repoLabels(candidates), 0)
		if err != nil {
			return cancelOr(err)
		}
		working = []repository.Data{candidates[i]}
	}
	if len(working) == 0 {
		fmt.Fprintln(w.deps.Out, "Nothing selected, choose again.")
		return TargetSelect, nil
	}
	r.working = working
	return TimeWindowSelect, nil
}

func matchPath(candidates []repository.Data, path string) (repository.Data, bool) {
	want := strings.TrimRight(path, "/")
	for _, d := range candidates {
		if strings.TrimRight(d.OriginalPath(), "/") == want {
			return d, true
		}
	}
	return repository.Data{}, false
}

func repoLabels(items []repository.Data) []string {
	labels := make([]string, len(items))
	for i, d := range items {
		path := d.OriginalPath()
		if path == "" {
			path = d.Address.Subpath()
		}
		latest, _ := d.Latest()
		labels[i] = fmt.Sprintf("[%s] %s (%d snapshots, latest %s)",
			d.Address.Category.Label(), path, len(d.Snapshots), latest.Time.Format("2006-01-02 15:04"))
	}
	return labels
}

func (w *Workflow) selectWindow(_ context.Context, r *run) (State, error) {
	var window repository.TimeWindow
	if !r.opts.At.IsZero() {
		window = repository.WindowOf(r.opts.At)
	} else {
		windows := repository.Windows(r.working)
		labels := make([]string, len(windows))
		for i, wc := range windows {
			labels[i] = wc.Label()
		}
		idx, err := w.deps.Selector.Select("Select restore point (UTC)", labels, 0)
		if err != nil {
			return cancelOr(err)
		}
		window = windows[idx].Window
	}
	r.selection = NewSelection(r.host, r.working, window)
	for _, d := range r.selection.Ineligible {
		w.log.Warn().Str("repository", d.Address.String()).Time("window_end", window.End()).Msg(ReasonNoEligibleSnapshot)
	}
	return Execute, nil
}

func (w *Workflow) execute(ctx context.Context, r *run) (State, error) {
	exec := NewExecutor(w.deps.Restorer, w.deps.Locator, w.stagingRoot(), w.deps.Concurrency, w.deps.Safety.DryRun, w.deps.Out, w.deps.Log)
	fmt.Fprintf(w.deps.Out, "Restoring %d repositories from %s into %s\n", len(r.selection.Pairs), r.selection.Window.Label(), w.stagingRoot())
	r.pairs = exec.Run(ctx, r.selection)
	return PostActionSelect, nil
}

var actionLabels = []string{
	"Copy next to the original (original kept)",
	"Move into the original location (original replaced)",
	"Leave in the staging directory",
}

var actionOrder = []PostAction{ActionCopy, ActionMove, ActionLeave}

func (w *Workflow) postAction(_ context.Context, r *run) (State, error) {
	var restored []int
	for i, p := range r.pairs {
		if p.Status == StatusSucceeded {
			restored = append(restored, i)
		}
	}
	if len(restored) == 0 {
		return Done, nil
	}

	bulk := r.opts.PostAction
	if bulk == "" && len(restored) > 1 {
		options := append([]string{"Decide per repository"}, actionLabels...)
		idx, err := w.deps.Selector.Select("What should happen with the restored data?", options, 0)
		if err != nil {
			return cancelOr(err)
		}
		if idx > 0 {
			bulk = actionOrder[idx-1]
		}
	}

	now := w.deps.Now()
	for _, i := range restored {
		p := &r.pairs[i]
		action := bulk
		if action == "" {
			idx, err := w.deps.Selector.Select(fmt.Sprintf("Restored %s: what should happen with it?", pairLabel(*p)), actionLabels, 0)
			if err != nil {
				return cancelOr(err)
			}
			action = actionOrder[idx]
		}
		if err := applyPostAction(p, action, now, w.confirm); err != nil {
			return cancelOr(err)
		}
		w.log.Info().Str("repository", p.Address.String()).Str("action", string(action)).Str("status", string(p.Status)).Msg("post action applied")
	}
	return Done, nil
}

func (w *Workflow) confirm(question string) (bool, error) {
	return safety.Resolve(w.deps.Safety, func() (bool, error) {
		return w.deps.Selector.Confirm(question, false)
	})
}

func pairLabel(p PairOutcome) string {
	if p.OriginalPath != "" {
		return p.OriginalPath
	}
	return p.Address.Subpath()
}
