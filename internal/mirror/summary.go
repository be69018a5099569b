package mirror

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// EntryFailure reports one entry that ended failed, with its reason.
type EntryFailure struct {
	Seq    int64
	Path   string
	Reason string
}

// Summary is the user-visible outcome of an executed (or dry-run) session.
type Summary struct {
	SessionID   string
	DryRun      bool
	Copied      int
	Deleted     int
	Skipped     int
	Failed      int
	Pending     int
	BytesCopied int64
	Failures    []EntryFailure
}

// Ok reports whether the session finished with no failed and no pending
// entries. Process exit code is derived from this.
func (s *Summary) Ok() bool {
	return s.Failed == 0 && s.Pending == 0
}

func (s *Summary) String() string {
	var b strings.Builder
	if s.DryRun {
		b.WriteString("dry run, no changes applied\n")
	}
	fmt.Fprintf(&b, "copied: %d (%s), deleted: %d, skipped: %d, failed: %d, pending: %d",
		s.Copied, humanize.Bytes(uint64(s.BytesCopied)), s.Deleted, s.Skipped, s.Failed, s.Pending)
	for _, f := range s.Failures {
		fmt.Fprintf(&b, "\n  #%d %s: %s", f.Seq, f.Path, f.Reason)
	}
	return b.String()
}
