package mirror

import "path"

// MediaClass is the coarse content classification used by media-only filters.
type MediaClass string

const (
	ClassMedia MediaClass = "media"
	ClassOther MediaClass = "other"
)

// FileRecord describes one file in a scanned tree, local or remote.
// Identity for reconciliation is Hash; an empty Hash means the backend could
// not supply a content hash ("unhashable") and the record can never be
// matched against another.
type FileRecord struct {
	Path     string     `json:"path"`
	Hash     string     `json:"hash,omitempty"`
	Size     int64      `json:"size"`
	RemoteID string     `json:"remoteId,omitempty"`
	Class    MediaClass `json:"mimeClass"`
}

// Hashable reports whether the record carries a content hash.
func (r *FileRecord) Hashable() bool {
	return r.Hash != ""
}

// Name returns the last path segment. Copies flatten directory structure, so
// this is the name the file takes at the destination.
func (r *FileRecord) Name() string {
	return path.Base(r.Path)
}

// IsRemote reports whether the record came from the remote store.
func (r *FileRecord) IsRemote() bool {
	return r.RemoteID != ""
}
