package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/tmvault/tmvault/internal/configs"
)

// Entry represents a single audit log entry. Entries record session
// lifecycle events by artifact name only, never content, paths inside
// the volatile volume, or key material.
type Entry struct {
	Timestamp string `json:"ts"` // RFC3339 with microseconds.
	Session   string `json:"session,omitempty"`
	Operation string `json:"op"` // Operation name.

	// Optional fields depending on operation.
	Files       []string `json:"files,omitempty"`  // For seal/open passes.
	Cause       string   `json:"cause,omitempty"`  // For teardown.
	PanicMode   string   `json:"panic_mode,omitempty"`
	SealedCount int      `json:"sealed_count,omitempty"`
	FailedCount int      `json:"failed_count,omitempty"`
	ErasedCount int      `json:"erased_count,omitempty"`
	Degraded    int      `json:"degraded_count,omitempty"` // Plain deletes during erase.
}

// Log appends an entry to the audit log.
// If logging fails, the entry is dropped silently; session operations
// must not fail just because audit logging failed.
func Log(entry Entry) {
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format("2006-01-02T15:04:05.000000Z")
	}

	dataPath := configs.UserVaultSettings.UserDataPath
	if err := os.MkdirAll(dataPath, 0700); err != nil {
		return
	}

	logPath := filepath.Join(dataPath, "audit.jsonl")

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	_, _ = f.Write(append(data, '\n'))
}
