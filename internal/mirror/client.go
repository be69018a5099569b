package mirror

import "context"

// StorageClient is the remote store boundary the engine plans against and
// the executor mutates through. Implementations map transport failures to
// the Transient/Permanent taxonomy in this package.
type StorageClient interface {
	// List enumerates the files under a remote folder.
	List(ctx context.Context, folder string, recursive bool) ([]*FileRecord, error)

	// GetHash returns the content hash of a remote file, or ErrNoHash when
	// the backend cannot supply one.
	GetHash(ctx context.Context, fileID string) (string, error)

	// Stat returns the record for a remote file, or nil when it no longer
	// exists.
	Stat(ctx context.Context, fileID string) (*FileRecord, error)

	// Upload copies a local file into the destination folder under the given
	// name and returns the new remote id.
	Upload(ctx context.Context, localPath, destFolder, name string) (string, error)

	// Copy duplicates an existing remote file into the destination folder
	// and returns the new remote id.
	Copy(ctx context.Context, fileID, destFolder, name string) (string, error)

	// Delete removes a remote file. Deleting an already-absent file is not
	// an error.
	Delete(ctx context.Context, fileID string) (bool, error)
}
