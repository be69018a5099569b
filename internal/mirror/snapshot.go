package mirror

import (
	"fmt"
	"os"
	"time"

	"github.com/hashmirror/hashmirror/internal/utils"
)

// Snapshot is an immutable, persisted capture of a folder tree's file
// records. Downstream consumers treat it exactly like a live remote listing;
// the point of persisting one is to avoid re-listing the remote store on
// every run.
type Snapshot struct {
	RootPath   string        `json:"rootPath"`
	CapturedAt time.Time     `json:"capturedAt"`
	Records    []*FileRecord `json:"records"`
}

// NewSnapshot captures the given records under root. A remote listing can
// yield the same file more than once when folders share parents, so records
// are deduplicated by remote id.
func NewSnapshot(root string, records []*FileRecord) *Snapshot {
	seen := make(map[string]struct{}, len(records))
	unique := make([]*FileRecord, 0, len(records))
	for _, rec := range records {
		if rec.RemoteID != "" {
			if _, dup := seen[rec.RemoteID]; dup {
				continue
			}
			seen[rec.RemoteID] = struct{}{}
		}
		unique = append(unique, rec)
	}

	return &Snapshot{
		RootPath:   root,
		CapturedAt: time.Now().UTC(),
		Records:    unique,
	}
}

// WriteFile persists the snapshot as JSON.
func (s *Snapshot) WriteFile(path string) error {
	data, err := jsonMarshal(s)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := utils.EnsureParent(path); err != nil {
		return fmt.Errorf("snapshot dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}
	return nil
}

// LoadSnapshot reads a snapshot file. Unknown fields are ignored so older
// binaries can read snapshots written by newer ones.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}

	var snap Snapshot
	if err := jsonUnmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	return &snap, nil
}
