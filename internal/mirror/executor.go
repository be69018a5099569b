package mirror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

const DefaultConcurrency = 4

// ExecOptions tunes a single execution run.
type ExecOptions struct {
	// DryRun computes and journals the identical plan but never invokes a
	// mutating client call; every entry is marked done.
	DryRun bool

	// Concurrency bounds the number of in-flight client calls.
	Concurrency int

	Retry RetryPolicy
}

// Executor applies journaled actions through the storage client, updating
// entry status as each action settles. Independent actions run concurrently;
// only durable status, not completion order, matters for resume.
type Executor struct {
	journal *Journal
	client  StorageClient
	opts    ExecOptions

	mu      sync.Mutex
	summary *Summary
}

func NewExecutor(journal *Journal, client StorageClient, opts ExecOptions) *Executor {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = DefaultRetryPolicy()
	}
	return &Executor{journal: journal, client: client, opts: opts}
}

// destView is the live destination truth a resume verifies entries against.
type destView struct {
	index  *HashIndex
	byName map[string]*FileRecord
}

// Run executes every unsettled entry of the session. Entries previously
// dispatched (in flight, failed, or degraded back to pending by a crash) are
// re-verified against live destination state before any retry. Entries that
// degrade back to pending leave the session executing so a later resume can
// pick them up. On context cancellation in-flight actions finish, remaining
// entries stay pending and the session is marked Aborted.
func (e *Executor) Run(ctx context.Context, session *Session) (*Summary, error) {
	if !session.Unfinished() {
		if session.State == StateAborted {
			return nil, ErrSessionAborted
		}
		return nil, fmt.Errorf("session %s already %s", session.ID, session.State)
	}

	if session.State == StatePlanning {
		if err := e.journal.SetSessionState(session.ID, StateExecuting); err != nil {
			return nil, err
		}
		session.State = StateExecuting
	}

	entries, err := e.journal.Unsettled(session.ID)
	if err != nil {
		return nil, err
	}

	e.summary = &Summary{SessionID: session.ID, DryRun: e.opts.DryRun}

	dest, err := e.destViewFor(ctx, session, entries)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)
	for _, entry := range entries {
		entry := entry
		g.Go(func() error {
			// A cancelled run leaves the remaining entries pending.
			if gctx.Err() != nil {
				e.add(func(s *Summary) { s.Pending++ })
				return nil
			}
			return e.executeEntry(gctx, entry, dest)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	switch {
	case ctx.Err() != nil:
		if err := e.journal.SetSessionState(session.ID, StateAborted); err != nil {
			return nil, err
		}
		session.State = StateAborted
	case e.summary.Pending == 0:
		if err := e.journal.SetSessionState(session.ID, StateCompleted); err != nil {
			return nil, err
		}
		session.State = StateCompleted
	default:
		// pending entries remain: the session stays executing so
		// UnfinishedSession finds it and resume can retry them
	}

	slog.Info("session finished", "session", session.ID, "state", session.State,
		"copied", e.summary.Copied, "deleted", e.summary.Deleted,
		"skipped", e.summary.Skipped, "failed", e.summary.Failed, "pending", e.summary.Pending)
	return e.summary, nil
}

// destViewFor lists the destination once when any copy entry needs
// re-verification. Fresh, never-dispatched entries skip the listing.
func (e *Executor) destViewFor(ctx context.Context, session *Session, entries []*JournalEntry) (*destView, error) {
	if e.opts.DryRun {
		return nil, nil
	}

	needed := false
	for _, entry := range entries {
		if entry.Kind == ActionCopy && needsVerify(entry) {
			needed = true
			break
		}
	}
	if !needed {
		return nil, nil
	}

	records, err := e.client.List(ctx, session.DestRoot, true)
	if err != nil {
		return nil, fmt.Errorf("list destination %s: %w", session.DestRoot, err)
	}

	view := &destView{
		index:  BuildIndex(records),
		byName: make(map[string]*FileRecord, len(records)),
	}
	for _, rec := range records {
		view.byName[rec.Name()] = rec
	}
	return view, nil
}

// needsVerify reports whether the entry may already have had a side effect:
// anything that ever left pending, or a pending entry with recorded
// attempts.
func needsVerify(entry *JournalEntry) bool {
	return entry.Status != StatusPending || entry.Attempts > 0
}

func (e *Executor) executeEntry(ctx context.Context, entry *JournalEntry, dest *destView) error {
	if e.opts.DryRun {
		if err := e.journal.MarkEntry(entry.SessionID, entry.Seq, StatusDone, ""); err != nil {
			return err
		}
		e.add(func(s *Summary) {
			switch entry.Kind {
			case ActionCopy:
				s.Copied++
				s.BytesCopied += entry.SourceSize
			case ActionDelete:
				s.Deleted++
			}
		})
		return nil
	}

	if needsVerify(entry) {
		settled, err := e.verify(ctx, entry, dest)
		if err != nil {
			return err
		}
		if settled {
			return nil
		}
	}

	if err := e.journal.MarkEntry(entry.SessionID, entry.Seq, StatusInFlight, ""); err != nil {
		return err
	}

	opErr := e.opts.Retry.Do(ctx, string(entry.Kind), func() error {
		return e.dispatch(ctx, entry)
	})

	switch {
	case opErr == nil:
		if err := e.journal.MarkEntry(entry.SessionID, entry.Seq, StatusDone, ""); err != nil {
			return err
		}
		e.add(func(s *Summary) {
			switch entry.Kind {
			case ActionCopy:
				s.Copied++
				s.BytesCopied += entry.SourceSize
			case ActionDelete:
				s.Deleted++
			}
		})
		return nil

	case errors.Is(opErr, context.Canceled), errors.Is(opErr, context.DeadlineExceeded):
		// leave for resume
		e.add(func(s *Summary) { s.Pending++ })
		return e.journal.MarkEntry(entry.SessionID, entry.Seq, StatusPending, opErr.Error())

	case IsTransient(opErr):
		// attempts exhausted, degrade for a future resume
		slog.Warn("entry degraded to pending", "seq", entry.Seq, "path", entry.SourcePath, "error", opErr)
		e.add(func(s *Summary) { s.Pending++ })
		return e.journal.MarkEntry(entry.SessionID, entry.Seq, StatusPending, opErr.Error())

	default:
		slog.Error("entry failed", "seq", entry.Seq, "path", entry.SourcePath, "error", opErr)
		e.fail(entry, opErr.Error())
		return e.journal.MarkEntry(entry.SessionID, entry.Seq, StatusFailed, opErr.Error())
	}
}

// verify re-derives current destination truth for a possibly-applied entry.
// It returns true when the entry settled without dispatching: already
// satisfied, or in conflict.
func (e *Executor) verify(ctx context.Context, entry *JournalEntry, dest *destView) (bool, error) {
	switch entry.Kind {
	case ActionCopy:
		if dest == nil {
			return false, nil
		}
		if entry.SourceHash != "" && dest.index.Contains(entry.SourceHash) {
			// the copy landed before the crash
			e.add(func(s *Summary) { s.Skipped++ })
			return true, e.journal.MarkEntry(entry.SessionID, entry.Seq, StatusDone, "")
		}
		name := entry.Record().Name()
		if occupant, ok := dest.byName[name]; ok && occupant.Hash != entry.SourceHash {
			cerr := &ConflictError{Path: name, Reason: "destination holds different content"}
			e.fail(entry, cerr.Error())
			return true, e.journal.MarkEntry(entry.SessionID, entry.Seq, StatusFailed, cerr.Error())
		}
		return false, nil

	case ActionDelete:
		rec, err := e.client.Stat(ctx, entry.SourceID)
		if err != nil {
			return false, fmt.Errorf("stat %s: %w", entry.SourceID, err)
		}
		if rec == nil {
			// already deleted
			e.add(func(s *Summary) { s.Skipped++ })
			return true, e.journal.MarkEntry(entry.SessionID, entry.Seq, StatusDone, "")
		}
		if entry.SourceHash != "" && rec.Hash != "" && rec.Hash != entry.SourceHash {
			cerr := &ConflictError{Path: entry.SourcePath, Reason: "delete target content changed"}
			e.fail(entry, cerr.Error())
			return true, e.journal.MarkEntry(entry.SessionID, entry.Seq, StatusFailed, cerr.Error())
		}
		return false, nil
	}
	return false, fmt.Errorf("unknown action kind %q", entry.Kind)
}

func (e *Executor) dispatch(ctx context.Context, entry *JournalEntry) error {
	switch entry.Kind {
	case ActionCopy:
		rec := entry.Record()
		if rec.IsRemote() {
			_, err := e.client.Copy(ctx, rec.RemoteID, entry.DestRef, rec.Name())
			return err
		}
		_, err := e.client.Upload(ctx, rec.Path, entry.DestRef, rec.Name())
		return err

	case ActionDelete:
		_, err := e.client.Delete(ctx, entry.SourceID)
		return err
	}
	return fmt.Errorf("unknown action kind %q", entry.Kind)
}

func (e *Executor) add(fn func(*Summary)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.summary)
}

func (e *Executor) fail(entry *JournalEntry, reason string) {
	e.add(func(s *Summary) {
		s.Failed++
		s.Failures = append(s.Failures, EntryFailure{Seq: entry.Seq, Path: entry.SourcePath, Reason: reason})
	})
}
