package restic

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"restic-backup-service/src/repository"
)

// snapshotJSON is a snapshot as printed by `restic snapshots --json`.
type snapshotJSON struct {
	ID       string    `json:"id"`
	ShortID  string    `json:"short_id"`
	Time     time.Time `json:"time"`
	Hostname string    `json:"hostname"`
	Tags     []string  `json:"tags"`
	Paths    []string  `json:"paths"`
	Summary  *struct {
		TotalBytesProcessed uint64 `json:"total_bytes_processed"`
	} `json:"summary,omitempty"`
}

// ParseSnapshots decodes `restic snapshots --json` output into typed
// snapshots ordered by time.
func ParseSnapshots(data []byte) ([]repository.Snapshot, error) {
	var raw []snapshotJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("restic: parse snapshots json: %w", err)
	}
	out := make([]repository.Snapshot, 0, len(raw))
	for _, s := range raw {
		if s.ID == "" {
			return nil, fmt.Errorf("restic: parse snapshots json: snapshot without id")
		}
		snap := repository.Snapshot{
			ID:      s.ID,
			ShortID: s.ShortID,
			Host:    s.Hostname,
			Time:    s.Time.UTC(),
			Paths:   s.Paths,
			Tags:    s.Tags,
		}
		if snap.ShortID == "" && len(snap.ID) >= 8 {
			snap.ShortID = snap.ID[:8]
		}
		if s.Summary != nil {
			snap.Size = s.Summary.TotalBytesProcessed
		}
		out = append(out, snap)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}
