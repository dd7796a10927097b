package restore

import (
	"restic-backup-service/src/repository"
)

// Pair is one repository with the snapshot chosen as its restore point.
type Pair struct {
	Repository repository.Data
	Snapshot   repository.Snapshot
}

// Selection is what the execute phase restores.
type Selection struct {
	Host   string
	Window repository.TimeWindow
	Pairs  []Pair
	// Ineligible repositories have no snapshot at or before the window end.
	Ineligible []repository.Data
}

// NewSelection picks, for each repository in working, the latest snapshot
// taken at or before the end of window.
func NewSelection(host string, working []repository.Data, window repository.TimeWindow) Selection {
	sel := Selection{Host: host, Window: window}
	for _, d := range working {
		snap, ok := d.EffectiveAt(window.End())
		if !ok {
			sel.Ineligible = append(sel.Ineligible, d)
			continue
		}
		sel.Pairs = append(sel.Pairs, Pair{Repository: d, Snapshot: snap})
	}
	return sel
}
