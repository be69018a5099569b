package mirror

// HashIndex groups file records by content hash. Buckets with more than one
// member are true content duplicates.
type HashIndex struct {
	buckets    map[string][]*FileRecord
	unhashable int
}

// BuildIndex groups records by hash. Records without a hash are counted,
// not indexed; they can never be matched by content.
func BuildIndex(records []*FileRecord) *HashIndex {
	idx := &HashIndex{
		buckets: make(map[string][]*FileRecord, len(records)),
	}
	for _, rec := range records {
		if !rec.Hashable() {
			idx.unhashable++
			continue
		}
		idx.buckets[rec.Hash] = append(idx.buckets[rec.Hash], rec)
	}
	return idx
}

// Lookup returns the records sharing the given hash, nil when absent.
func (idx *HashIndex) Lookup(hash string) []*FileRecord {
	if hash == "" {
		return nil
	}
	return idx.buckets[hash]
}

// Contains reports whether any record with the hash is indexed.
func (idx *HashIndex) Contains(hash string) bool {
	return len(idx.Lookup(hash)) > 0
}

// Merge folds another index into this one. Used to combine several exclusion
// sources (snapshots, remote folders) into a single destination view.
func (idx *HashIndex) Merge(other *HashIndex) {
	if other == nil {
		return
	}
	for hash, recs := range other.buckets {
		idx.buckets[hash] = append(idx.buckets[hash], recs...)
	}
	idx.unhashable += other.unhashable
}

// Duplicates returns the hashes whose bucket holds two or more records.
func (idx *HashIndex) Duplicates() []string {
	var dups []string
	for hash, recs := range idx.buckets {
		if len(recs) > 1 {
			dups = append(dups, hash)
		}
	}
	return dups
}

// DuplicateBuckets returns hash -> members for every bucket with two or
// more records.
func (idx *HashIndex) DuplicateBuckets() map[string][]*FileRecord {
	dups := make(map[string][]*FileRecord)
	for hash, recs := range idx.buckets {
		if len(recs) > 1 {
			dups[hash] = recs
		}
	}
	return dups
}

// Unhashable returns the count of records dropped for missing a hash.
func (idx *HashIndex) Unhashable() int {
	return idx.unhashable
}

// Len returns the number of distinct hashes indexed.
func (idx *HashIndex) Len() int {
	return len(idx.buckets)
}
