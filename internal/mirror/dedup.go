package mirror

import (
	"fmt"
	"sort"
)

// DupGroup is one resolved duplicate set: the authoritative record to keep
// and the redundant copies to delete.
type DupGroup struct {
	Hash   string
	Keep   *FileRecord
	Delete []*FileRecord
}

// ResolveOptions tunes duplicate resolution.
type ResolveOptions struct {
	// Strict makes resolution fail when a duplicate path matches no prefix,
	// instead of ranking it below all explicit prefixes.
	Strict bool
}

// Resolve groups the index into duplicate sets and picks, per set, the
// member with the best (lowest) prefix rank to keep. Rank ties, including
// the everything-unranked tier, break on the lexicographically smallest
// path, so the outcome is deterministic regardless of input order and a
// dry run agrees with the subsequent apply.
func Resolve(idx *HashIndex, prefixes PrefixList, opts ResolveOptions) ([]*DupGroup, error) {
	if len(prefixes) == 0 {
		return nil, ErrEmptyPrefixList
	}

	hashes := idx.Duplicates()
	sort.Strings(hashes)

	groups := make([]*DupGroup, 0, len(hashes))
	for _, hash := range hashes {
		members := append([]*FileRecord(nil), idx.Lookup(hash)...)

		if opts.Strict {
			for _, rec := range members {
				if prefixes.Rank(rec.Path) == len(prefixes) {
					return nil, &ConfigError{
						Reason: fmt.Sprintf("path %s is not covered by any prefix", rec.Path),
					}
				}
			}
		}

		sort.Slice(members, func(i, j int) bool {
			ri, rj := prefixes.Rank(members[i].Path), prefixes.Rank(members[j].Path)
			if ri != rj {
				return ri < rj
			}
			return members[i].Path < members[j].Path
		})

		groups = append(groups, &DupGroup{
			Hash:   hash,
			Keep:   members[0],
			Delete: members[1:],
		})
	}

	return groups, nil
}
