package mirror

// Diff returns the source records whose content is absent from the
// destination index, preserving source order.
//
// Records without a hash are always included: they cannot be matched against
// anything, so the engine cannot know whether the destination already holds
// them. Re-running a sync therefore re-copies unhashable files; callers that
// care should filter them out upstream. This mirrors the behavior of the
// remote API and is deliberately not "fixed" here.
func Diff(source []*FileRecord, dest *HashIndex) []*FileRecord {
	var missing []*FileRecord
	for _, rec := range source {
		if rec.Hashable() && dest.Contains(rec.Hash) {
			continue
		}
		missing = append(missing, rec)
	}
	return missing
}
