package restore

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// PostAction decides what happens to restored data after the restore.
type PostAction string

const (
	// ActionCopy places the data next to the original, which is kept.
	ActionCopy PostAction = "copy"
	// ActionMove replaces the original location with the restored data.
	ActionMove PostAction = "move"
	// ActionLeave keeps the data in the staging directory.
	ActionLeave PostAction = "leave"
)

// ParsePostAction accepts "copy", "move" or "leave"; "" means ask.
func ParsePostAction(s string) (PostAction, error) {
	switch a := PostAction(strings.ToLower(strings.TrimSpace(s))); a {
	case "", ActionCopy, ActionMove, ActionLeave:
		return a, nil
	}
	return "", fmt.Errorf("unknown post action %q (want copy, move or leave)", s)
}

// copySuffix is appended to the original path when copying.
func copySuffix(now time.Time) string {
	return ".restored-" + now.UTC().Format("20060102-150405")
}

type move struct {
	src, dst string
}

// applyPostAction performs action on a succeeded pair and updates it.
// confirm is asked once per destination that already holds data; a refusal
// skips the whole pair. Only an error from confirm is returned.
func applyPostAction(p *PairOutcome, action PostAction, now time.Time, confirm func(question string) (bool, error)) error {
	p.Action = action
	if action == ActionLeave {
		return nil
	}
	paths := p.SourcePaths
	if len(paths) == 0 && p.OriginalPath != "" {
		paths = []string{p.OriginalPath}
	}
	var moves []move
	for _, orig := range paths {
		src := filepath.Join(p.StagingPath, orig)
		ok, err := hasData(src)
		if err != nil || !ok {
			p.Status = StatusFailed
			p.Err = fmt.Errorf("restored data for %s not found in %s", orig, p.StagingPath)
			p.Reason = p.Err.Error()
			return nil
		}
		dst := orig
		if action == ActionCopy {
			dst = orig + copySuffix(now)
		}
		moves = append(moves, move{src: src, dst: dst})
	}

	for _, m := range moves {
		busy, err := hasData(m.dst)
		if err != nil {
			p.Status = StatusFailed
			p.Err = err
			p.Reason = err.Error()
			return nil
		}
		if !busy {
			continue
		}
		ok, err := confirm(fmt.Sprintf("%s already contains data. Overwrite it with the restored copy?", m.dst))
		if err != nil {
			return err
		}
		if !ok {
			p.Status = StatusSkipped
			p.Reason = ReasonConflictDeclined
			return nil
		}
	}

	var dsts []string
	for _, m := range moves {
		var err error
		if action == ActionCopy {
			err = copyTree(m.src, m.dst)
		} else {
			err = moveTree(m.src, m.dst)
		}
		if err != nil {
			p.Status = StatusFailed
			p.Err = fmt.Errorf("%s %s to %s: %w", action, m.src, m.dst, err)
			p.Reason = p.Err.Error()
			return nil
		}
		dsts = append(dsts, m.dst)
	}
	p.Destination = strings.Join(dsts, ", ")
	return nil
}
