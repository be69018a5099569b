package scan

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/hashmirror/hashmirror/internal/mirror"
	"github.com/hashmirror/hashmirror/internal/utils"
)

// Options controls a tree scan, local or remote.
type Options struct {
	// Recursive includes files in subfolders. Without it only the direct
	// children of the root are scanned.
	Recursive bool

	// MediaOnly keeps only records classified as audio/video/image.
	MediaOnly bool

	// Exclude prunes whole subtrees by absolute root path. Used to avoid
	// re-scanning a source root nested inside the destination root.
	Exclude mapset.Set[string]
}

// Local walks a local folder tree and produces file records with content
// hashes. The walk is re-invocable: calling it again performs a fresh scan.
func Local(ctx context.Context, root string, opts Options) ([]*mirror.FileRecord, error) {
	root, err := utils.ResolvePath(root)
	if err != nil {
		return nil, err
	}
	if !utils.DirExists(root) {
		return nil, fmt.Errorf("scan root %s is not a directory", root)
	}

	ignore := NewIgnoreList(root)

	var records []*mirror.FileRecord
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if d.IsDir() {
			if path == root {
				return nil
			}
			if !opts.Recursive {
				return filepath.SkipDir
			}
			if opts.Exclude != nil && opts.Exclude.Contains(path) {
				slog.Debug("pruning excluded subtree", "path", path)
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() || ignore.Matches(path) {
			return nil
		}

		class := mirror.ClassifyPath(path)
		if opts.MediaOnly && class != mirror.ClassMedia {
			slog.Debug("excluding non-media file", "path", path)
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}

		hash, err := utils.FileHash(path)
		if err != nil {
			return fmt.Errorf("hash %s: %w", path, err)
		}

		records = append(records, &mirror.FileRecord{
			Path:  filepath.ToSlash(path),
			Hash:  hash,
			Size:  info.Size(),
			Class: class,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	slog.Info("local scan complete", "root", root, "files", len(records))
	return records, nil
}

// Remote lists a remote folder through the storage client and applies the
// same filtering as a local scan.
func Remote(ctx context.Context, client mirror.StorageClient, folder string, opts Options) ([]*mirror.FileRecord, error) {
	records, err := client.List(ctx, folder, opts.Recursive)
	if err != nil {
		return nil, fmt.Errorf("list remote %s: %w", folder, err)
	}
	return filter(records, opts), nil
}

// FromSnapshot replays a stored snapshot as if it were a live listing.
// Downstream consumers cannot tell the difference; that interchangeability
// is the reason snapshots are a first class type.
func FromSnapshot(snap *mirror.Snapshot, opts Options) []*mirror.FileRecord {
	return filter(snap.Records, opts)
}

func filter(records []*mirror.FileRecord, opts Options) []*mirror.FileRecord {
	out := make([]*mirror.FileRecord, 0, len(records))
	for _, rec := range records {
		if opts.MediaOnly && rec.Class != mirror.ClassMedia {
			continue
		}
		if opts.Exclude != nil && opts.Exclude.Contains(rec.Path) {
			continue
		}
		out = append(out, rec)
	}
	return out
}
