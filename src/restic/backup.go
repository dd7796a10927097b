package restic

import (
	"encoding/json"
	"strings"
)

// BackupRequest describes one `restic backup` run.
type BackupRequest struct {
	Path string
	Host string
	Tags []string
}

// BackupStatus is a progress message from `restic backup --json`.
type BackupStatus struct {
	PercentDone float64 `json:"percent_done"`
	TotalFiles  uint64  `json:"total_files"`
	FilesDone   uint64  `json:"files_done"`
	TotalBytes  uint64  `json:"total_bytes"`
	BytesDone   uint64  `json:"bytes_done"`
}

// BackupSummary is the final message of `restic backup --json`.
type BackupSummary struct {
	SnapshotID          string  `json:"snapshot_id"`
	FilesNew            uint64  `json:"files_new"`
	FilesChanged        uint64  `json:"files_changed"`
	FilesUnmodified     uint64  `json:"files_unmodified"`
	DataAdded           uint64  `json:"data_added"`
	TotalFilesProcessed uint64  `json:"total_files_processed"`
	TotalBytesProcessed uint64  `json:"total_bytes_processed"`
	TotalDuration       float64 `json:"total_duration"`

	// Incomplete is set when restic saved a snapshot but could not read
	// some source files (exit status 3).
	Incomplete bool `json:"-"`
}

type backupMessage struct {
	MessageType string `json:"message_type"`
}

// parseBackupLine decodes one stdout line. Non-JSON lines are ignored.
func parseBackupLine(line string) (status *BackupStatus, summary *BackupSummary) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "{") {
		return nil, nil
	}
	var msg backupMessage
	if err := json.Unmarshal([]byte(line), &msg); err != nil {
		return nil, nil
	}
	switch msg.MessageType {
	case "status":
		var s BackupStatus
		if json.Unmarshal([]byte(line), &s) == nil {
			return &s, nil
		}
	case "summary":
		var s BackupSummary
		if json.Unmarshal([]byte(line), &s) == nil {
			return nil, &s
		}
	}
	return nil, nil
}
