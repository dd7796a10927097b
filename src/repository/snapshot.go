package repository

import (
	"sort"
	"time"
)

// Snapshot is one point-in-time backup as reported by the snapshot engine.
type Snapshot struct {
	ID      string
	ShortID string
	Host    string
	Time    time.Time
	Paths   []string
	Tags    []string
	Size    uint64
}

// OriginalPath returns the first recorded path, or "" when none is recorded.
func (s Snapshot) OriginalPath() string {
	if len(s.Paths) == 0 {
		return ""
	}
	return s.Paths[0]
}

// Data is the result of scanning one repository. Snapshots are ordered by
// time, oldest first.
type Data struct {
	Address   Address
	Snapshots []Snapshot
}

// NewData copies snaps and orders them by time.
func NewData(addr Address, snaps []Snapshot) Data {
	out := make([]Snapshot, len(snaps))
	copy(out, snaps)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return Data{Address: addr, Snapshots: out}
}

// Latest returns the most recent snapshot.
func (d Data) Latest() (Snapshot, bool) {
	if len(d.Snapshots) == 0 {
		return Snapshot{}, false
	}
	return d.Snapshots[len(d.Snapshots)-1], true
}

// OriginalPath is the path this repository backs up, taken from the most
// recent snapshot's recorded paths.
func (d Data) OriginalPath() string {
	s, ok := d.Latest()
	if !ok {
		return ""
	}
	return s.OriginalPath()
}

// EffectiveAt returns the latest snapshot taken at or before t.
func (d Data) EffectiveAt(t time.Time) (Snapshot, bool) {
	for i := len(d.Snapshots) - 1; i >= 0; i-- {
		if !d.Snapshots[i].Time.After(t) {
			return d.Snapshots[i], true
		}
	}
	return Snapshot{}, false
}

// SortData orders scan results by address.
func SortData(items []Data) {
	sort.Slice(items, func(i, j int) bool { return Less(items[i].Address, items[j].Address) })
}
