package repository

import (
	"fmt"
	"sort"
	"time"
)

// WindowSize is the width of a restore-point bucket.
const WindowSize = 5 * time.Minute

// TimeWindow is a UTC bucket [Start, Start+WindowSize).
type TimeWindow struct {
	Start time.Time
}

// WindowOf returns the window containing t.
func WindowOf(t time.Time) TimeWindow {
	return TimeWindow{Start: t.UTC().Truncate(WindowSize)}
}

func (w TimeWindow) End() time.Time {
	return w.Start.Add(WindowSize)
}

func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End())
}

// Label renders the window as "2006-01-02 15:04 to 15:09".
func (w TimeWindow) Label() string {
	return fmt.Sprintf("%s to %s", w.Start.Format("2006-01-02 15:04"), w.End().Format("15:04"))
}

// WindowCount is a window with the number of snapshots that fall into it.
type WindowCount struct {
	Window    TimeWindow
	Snapshots int
}

func (wc WindowCount) Label() string {
	noun := "snapshots"
	if wc.Snapshots == 1 {
		noun = "snapshot"
	}
	return fmt.Sprintf("%s (%d %s)", wc.Window.Label(), wc.Snapshots, noun)
}

// Windows returns the distinct windows across all snapshots of items, most
// recent first.
func Windows(items []Data) []WindowCount {
	counts := make(map[int64]int)
	for _, d := range items {
		for _, s := range d.Snapshots {
			counts[WindowOf(s.Time).Start.Unix()]++
		}
	}
	out := make([]WindowCount, 0, len(counts))
	for start, n := range counts {
		out = append(out, WindowCount{Window: TimeWindow{Start: time.Unix(start, 0).UTC()}, Snapshots: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Window.Start.After(out[j].Window.Start) })
	return out
}
