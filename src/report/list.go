package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"restic-backup-service/src/discovery"
	"restic-backup-service/src/repository"
)

// TimelineLimit is how many distinct minutes the text timeline shows.
const TimelineLimit = 20

// RepositoryEntry is one repository in a listing.
type RepositoryEntry struct {
	Path          string              `json:"path" yaml:"path"`
	Category      repository.Category `json:"category" yaml:"category"`
	Segment       string              `json:"segment" yaml:"segment"`
	SnapshotCount int                 `json:"snapshot_count" yaml:"snapshot_count"`
}

// SnapshotEntry is one snapshot in a listing.
type SnapshotEntry struct {
	Time time.Time `json:"time" yaml:"time"`
	Path string    `json:"path" yaml:"path"`
	ID   string    `json:"id" yaml:"id"`
}

// Listing is the machine-readable shape of `list`.
type Listing struct {
	Host         string            `json:"host" yaml:"host"`
	Repositories []RepositoryEntry `json:"repositories" yaml:"repositories"`
	Snapshots    []SnapshotEntry   `json:"snapshots" yaml:"snapshots"`
	Warnings     []string          `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// NewListing flattens a scan result. Snapshots are newest first.
func NewListing(host string, res discovery.Result) Listing {
	l := Listing{Host: host, Repositories: []RepositoryEntry{}, Snapshots: []SnapshotEntry{}}
	for _, d := range res.Repos {
		path := d.OriginalPath()
		if path == "" {
			path = d.Address.Subpath()
		}
		l.Repositories = append(l.Repositories, RepositoryEntry{
			Path:          path,
			Category:      d.Address.Category,
			Segment:       d.Address.Segment,
			SnapshotCount: len(d.Snapshots),
		})
		for _, s := range d.Snapshots {
			p := s.OriginalPath()
			if p == "" {
				p = path
			}
			l.Snapshots = append(l.Snapshots, SnapshotEntry{Time: s.Time.UTC(), Path: p, ID: s.ShortID})
		}
	}
	sort.SliceStable(l.Snapshots, func(i, j int) bool {
		if !l.Snapshots[i].Time.Equal(l.Snapshots[j].Time) {
			return l.Snapshots[i].Time.After(l.Snapshots[j].Time)
		}
		return l.Snapshots[i].Path < l.Snapshots[j].Path
	})
	for _, f := range res.Failures {
		l.Warnings = append(l.Warnings, f.Error())
	}
	return l
}

// WriteListing renders a listing in the requested format.
func WriteListing(w io.Writer, f Format, l Listing) error {
	if f != FormatText {
		return encode(w, f, l)
	}
	fmt.Fprintf(w, "%s %s\n\n", heading("Host:"), l.Host)
	if len(l.Repositories) == 0 {
		fmt.Fprintln(w, "No repositories found.")
	}
	for _, c := range repository.Categories {
		var entries []RepositoryEntry
		for _, r := range l.Repositories {
			if r.Category == c {
				entries = append(entries, r)
			}
		}
		if len(entries) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s (%d)\n", heading(c.Label()), len(entries))
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, r := range entries {
			fmt.Fprintf(tw, "  %s\t%d snapshots\n", r.Path, r.SnapshotCount)
		}
		tw.Flush()
		fmt.Fprintln(w)
	}

	if len(l.Snapshots) > 0 {
		fmt.Fprintln(w, heading("Recent activity (UTC)"))
		for _, m := range timeline(l.Snapshots, TimelineLimit) {
			fmt.Fprintf(w, "  %s  %s\n", m.minute.Format("2006-01-02 15:04"), strings.Join(m.paths, ", "))
		}
		fmt.Fprintln(w)
	}
	for _, warning := range l.Warnings {
		fmt.Fprintf(w, "%s %s\n", warn("warning:"), warning)
	}
	return nil
}

type minuteActivity struct {
	minute time.Time
	paths  []string
}

// timeline groups snapshots by minute, newest first, keeping limit minutes.
func timeline(snaps []SnapshotEntry, limit int) []minuteActivity {
	var out []minuteActivity
	index := map[time.Time]int{}
	for _, s := range snaps {
		m := s.Time.Truncate(time.Minute)
		i, ok := index[m]
		if !ok {
			i = len(out)
			index[m] = i
			out = append(out, minuteActivity{minute: m})
		}
		out[i].paths = append(out[i].paths, s.Path)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].minute.After(out[j].minute) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// WriteHosts renders the discovered hosts.
func WriteHosts(w io.Writer, f Format, hosts []string) error {
	if hosts == nil {
		hosts = []string{}
	}
	if f != FormatText {
		return encode(w, f, map[string][]string{"hosts": hosts})
	}
	if len(hosts) == 0 {
		fmt.Fprintln(w, "No hosts found.")
		return nil
	}
	for _, h := range hosts {
		fmt.Fprintln(w, h)
	}
	return nil
}

// SizeReport is the output of `size`.
type SizeReport struct {
	Path       string `json:"path" yaml:"path"`
	Repository string `json:"repository" yaml:"repository"`
	TotalSize  uint64 `json:"total_size" yaml:"total_size"`
	FileCount  uint64 `json:"file_count" yaml:"file_count"`
}

func WriteSize(w io.Writer, f Format, r SizeReport) error {
	if f != FormatText {
		return encode(w, f, r)
	}
	fmt.Fprintf(w, "%s: %s (%d files) in %s\n", r.Path, heading(Size(r.TotalSize)), r.FileCount, faint(r.Repository))
	return nil
}
