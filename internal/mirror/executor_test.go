package mirror

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient is an in-memory StorageClient for executor tests.
type fakeClient struct {
	mu      sync.Mutex
	listed  []*FileRecord          // returned by List
	stats   map[string]*FileRecord // Stat replies by id; missing key = gone
	uploads []string
	copies  []string
	deletes []string

	uploadErr error
	deleteErr error
}

func (f *fakeClient) List(ctx context.Context, folder string, recursive bool) ([]*FileRecord, error) {
	return f.listed, nil
}

func (f *fakeClient) GetHash(ctx context.Context, fileID string) (string, error) {
	rec, err := f.Stat(ctx, fileID)
	if err != nil || rec == nil || rec.Hash == "" {
		return "", ErrNoHash
	}
	return rec.Hash, nil
}

func (f *fakeClient) Stat(ctx context.Context, fileID string) (*FileRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats[fileID], nil
}

func (f *fakeClient) Upload(ctx context.Context, localPath, destFolder, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploads = append(f.uploads, destFolder+"/"+name)
	return destFolder + "/" + name, nil
}

func (f *fakeClient) Copy(ctx context.Context, fileID, destFolder, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.copies = append(f.copies, fileID)
	return destFolder + "/" + name, nil
}

func (f *fakeClient) Delete(ctx context.Context, fileID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return false, f.deleteErr
	}
	f.deletes = append(f.deletes, fileID)
	return true, nil
}

func (f *fakeClient) mutations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads) + len(f.copies) + len(f.deletes)
}

func quickRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestExecutorDryRunNeverMutates(t *testing.T) {
	j := testJournal(t)
	client := &fakeClient{}

	session, err := j.CreateSession(SessionSync, testPlan())
	require.NoError(t, err)

	exec := NewExecutor(j, client, ExecOptions{DryRun: true})
	summary, err := exec.Run(context.Background(), session)
	require.NoError(t, err)

	assert.Equal(t, 0, client.mutations(), "dry run must not call copy/delete")
	assert.Equal(t, 3, summary.Copied)
	assert.True(t, summary.Ok())
	assert.Equal(t, StateCompleted, session.State)

	counts, err := j.StatusCounts(session.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, counts[StatusDone])
}

func TestExecutorUploadsLocalCopies(t *testing.T) {
	j := testJournal(t)
	client := &fakeClient{}

	session, err := j.CreateSession(SessionSync, NewCopyPlan("backup", []*FileRecord{
		rec("/src/a.jpg", "h1"),
		rec("/src/b.jpg", "h2"),
	}))
	require.NoError(t, err)

	exec := NewExecutor(j, client, ExecOptions{Retry: quickRetry()})
	summary, err := exec.Run(context.Background(), session)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"backup/a.jpg", "backup/b.jpg"}, client.uploads)
	assert.Equal(t, 2, summary.Copied)
	assert.Equal(t, int64(2), summary.BytesCopied)
	assert.True(t, summary.Ok())
}

func TestExecutorCopiesRemoteRecords(t *testing.T) {
	j := testJournal(t)
	client := &fakeClient{}

	remote := &FileRecord{Path: "/old/a.jpg", Hash: "h1", Size: 3, RemoteID: "old/a.jpg", Class: ClassMedia}
	session, err := j.CreateSession(SessionSync, NewCopyPlan("backup", []*FileRecord{remote}))
	require.NoError(t, err)

	exec := NewExecutor(j, client, ExecOptions{Retry: quickRetry()})
	summary, err := exec.Run(context.Background(), session)
	require.NoError(t, err)

	assert.Equal(t, []string{"old/a.jpg"}, client.copies)
	assert.Empty(t, client.uploads)
	assert.Equal(t, 1, summary.Copied)
}

func TestExecutorTransientDegradesToPending(t *testing.T) {
	j := testJournal(t)
	client := &fakeClient{uploadErr: Transient("upload", errors.New("rate limited"))}

	session, err := j.CreateSession(SessionSync, NewCopyPlan("backup", []*FileRecord{rec("/src/a.jpg", "h1")}))
	require.NoError(t, err)

	exec := NewExecutor(j, client, ExecOptions{Retry: quickRetry()})
	summary, err := exec.Run(context.Background(), session)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Pending)
	assert.False(t, summary.Ok())

	entries, err := j.Entries(session.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, entries[0].Status, "left for a future resume")
	assert.Equal(t, 1, entries[0].Attempts)

	// the session must remain visible to resume
	assert.Equal(t, StateExecuting, session.State)
	unfinished, err := j.UnfinishedSession()
	require.NoError(t, err)
	require.NotNil(t, unfinished, "session with pending entries stays unfinished")
	assert.Equal(t, session.ID, unfinished.ID)
}

func TestExecutorResumeRetriesDegradedEntry(t *testing.T) {
	j := testJournal(t)
	client := &fakeClient{uploadErr: Transient("upload", errors.New("rate limited"))}

	session, err := j.CreateSession(SessionSync, NewCopyPlan("backup", []*FileRecord{rec("/src/a.jpg", "h1")}))
	require.NoError(t, err)

	exec := NewExecutor(j, client, ExecOptions{Retry: quickRetry()})
	summary, err := exec.Run(context.Background(), session)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Pending)

	// the remote recovered
	client.mu.Lock()
	client.uploadErr = nil
	client.mu.Unlock()

	resumed, err := j.UnfinishedSession()
	require.NoError(t, err)
	require.NotNil(t, resumed)

	summary, err = NewExecutor(j, client, ExecOptions{Retry: quickRetry()}).Run(context.Background(), resumed)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Copied)
	assert.True(t, summary.Ok())
	assert.Equal(t, StateCompleted, resumed.State)
	assert.Equal(t, []string{"backup/a.jpg"}, client.uploads)
}

func TestExecutorPermanentFailureContinues(t *testing.T) {
	j := testJournal(t)
	client := &fakeClient{deleteErr: Permanent("delete", errors.New("access denied"))}

	groups := []*DupGroup{{
		Hash:   "h1",
		Keep:   rec("/keep/a.jpg", "h1"),
		Delete: []*FileRecord{{Path: "/dup/a.jpg", Hash: "h1", Size: 1, RemoteID: "dup/a.jpg"}},
	}}
	session, err := j.CreateSession(SessionDedup, NewDeletePlan("/", groups))
	require.NoError(t, err)

	exec := NewExecutor(j, client, ExecOptions{Retry: quickRetry()})
	summary, err := exec.Run(context.Background(), session)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Failures, 1)
	assert.Contains(t, summary.Failures[0].Reason, "access denied")
	assert.Equal(t, StateCompleted, session.State, "session completes, failures are reported")
}

func TestExecutorResumeSkipsSatisfiedCopy(t *testing.T) {
	j := testJournal(t)

	session, err := j.CreateSession(SessionSync, NewCopyPlan("backup", []*FileRecord{
		rec("/src/a.jpg", "h1"),
		rec("/src/b.jpg", "h2"),
	}))
	require.NoError(t, err)

	// simulate a crash after entry 1 was dispatched but before its done mark
	require.NoError(t, j.MarkEntry(session.ID, 1, StatusInFlight, ""))

	// the destination already holds h1: the copy landed
	client := &fakeClient{listed: []*FileRecord{
		{Path: "/backup/a.jpg", Hash: "h1", RemoteID: "backup/a.jpg"},
	}}

	exec := NewExecutor(j, client, ExecOptions{Retry: quickRetry()})
	summary, err := exec.Run(context.Background(), session)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Skipped, "satisfied entry is not re-copied")
	assert.Equal(t, 1, summary.Copied)
	assert.Equal(t, []string{"backup/b.jpg"}, client.uploads)
	assert.True(t, summary.Ok())
}

func TestExecutorResumeDetectsConflict(t *testing.T) {
	j := testJournal(t)

	session, err := j.CreateSession(SessionSync, NewCopyPlan("backup", []*FileRecord{
		rec("/src/a.jpg", "h1"),
	}))
	require.NoError(t, err)
	require.NoError(t, j.MarkEntry(session.ID, 1, StatusInFlight, ""))

	// destination name is occupied by different content
	client := &fakeClient{listed: []*FileRecord{
		{Path: "/backup/a.jpg", Hash: "other", RemoteID: "backup/a.jpg"},
	}}

	exec := NewExecutor(j, client, ExecOptions{Retry: quickRetry()})
	summary, err := exec.Run(context.Background(), session)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 0, client.mutations(), "conflicting state is never overwritten")

	entries, err := j.Entries(session.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, entries[0].Status)
}

func TestExecutorResumeSkipsVanishedDelete(t *testing.T) {
	j := testJournal(t)

	groups := []*DupGroup{{
		Hash: "h1",
		Keep: rec("/keep/a.jpg", "h1"),
		Delete: []*FileRecord{
			{Path: "/dup/a.jpg", Hash: "h1", RemoteID: "dup/a.jpg"},
			{Path: "/dup/b.jpg", Hash: "h1", RemoteID: "dup/b.jpg"},
		},
	}}
	session, err := j.CreateSession(SessionDedup, NewDeletePlan("/", groups))
	require.NoError(t, err)
	require.NoError(t, j.MarkEntry(session.ID, 1, StatusInFlight, ""))
	require.NoError(t, j.MarkEntry(session.ID, 2, StatusInFlight, ""))

	// first target is already gone, second still exists with the same content
	client := &fakeClient{stats: map[string]*FileRecord{
		"dup/b.jpg": {Path: "/dup/b.jpg", Hash: "h1", RemoteID: "dup/b.jpg"},
	}}

	exec := NewExecutor(j, client, ExecOptions{Retry: quickRetry()})
	summary, err := exec.Run(context.Background(), session)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Deleted)
	assert.Equal(t, []string{"dup/b.jpg"}, client.deletes)
}

func TestExecutorRejectsAbortedSession(t *testing.T) {
	j := testJournal(t)
	session, err := j.CreateSession(SessionSync, testPlan())
	require.NoError(t, err)
	require.NoError(t, j.SetSessionState(session.ID, StateAborted))
	session.State = StateAborted

	exec := NewExecutor(j, &fakeClient{}, ExecOptions{})
	_, err = exec.Run(context.Background(), session)
	assert.ErrorIs(t, err, ErrSessionAborted)
}
