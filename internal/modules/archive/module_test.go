package archive

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkjar/crew-orchestrator/pkg/engine"
	"github.com/sparkjar/crew-orchestrator/pkg/events"
	"github.com/sparkjar/crew-orchestrator/pkg/notify"
	"github.com/sparkjar/crew-orchestrator/pkg/storage"
)

type fakeStore struct {
	job            *engine.Job
	archiveKey     string
	archiveByteLen int
}

func (f *fakeStore) CreateJob(ctx context.Context, jobKey string, payload map[string]interface{}, clientID, actorType, actorID string) (uuid.UUID, error) {
	return uuid.Nil, nil
}
func (f *fakeStore) ClaimNextJob(ctx context.Context, workerID string, now time.Time) (*engine.Job, error) {
	return nil, nil
}
func (f *fakeStore) FinalizeJob(ctx context.Context, jobID uuid.UUID, status engine.Status, result map[string]interface{}, lastError *string) error {
	return nil
}
func (f *fakeStore) RequeueJob(ctx context.Context, jobID uuid.UUID, notBefore time.Time) error {
	return nil
}
func (f *fakeStore) CancelQueuedJob(ctx context.Context, jobID uuid.UUID) error { return nil }
func (f *fakeStore) RequestCancel(ctx context.Context, jobID uuid.UUID) error  { return nil }
func (f *fakeStore) AppendEvent(ctx context.Context, jobID uuid.UUID, eventType engine.EventType, data map[string]interface{}) (int64, error) {
	return 0, nil
}
func (f *fakeStore) GetJob(ctx context.Context, jobID uuid.UUID) (*engine.Job, error) {
	return f.job, nil
}
func (f *fakeStore) ListEvents(ctx context.Context, jobID uuid.UUID, sinceSeq int64) ([]engine.JobEvent, error) {
	return nil, nil
}
func (f *fakeStore) SetResultArchivePointer(ctx context.Context, jobID uuid.UUID, archiveKey string, byteCount int) error {
	f.archiveKey = archiveKey
	f.archiveByteLen = byteCount
	if f.job != nil {
		f.job.Result = nil
	}
	return nil
}

type fakeStorage struct {
	uploaded []storage.UploadOptions
}

func (f *fakeStorage) Upload(ctx context.Context, opts storage.UploadOptions) (*storage.FileMetadata, error) {
	f.uploaded = append(f.uploaded, opts)
	return &storage.FileMetadata{Key: opts.Key}, nil
}
func (f *fakeStorage) Download(ctx context.Context, key string) (*storage.File, error) { return nil, nil }
func (f *fakeStorage) Delete(ctx context.Context, key string) error                    { return nil }
func (f *fakeStorage) GetURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return "", nil
}
func (f *fakeStorage) List(ctx context.Context, prefix string) ([]*storage.FileMetadata, error) {
	return nil, nil
}
func (f *fakeStorage) Exists(ctx context.Context, key string) (bool, error) { return false, nil }

func newTestModule(job *engine.Job, st storage.Storage) (*Module, *fakeStore) {
	fs := &fakeStore{job: job}
	return &Module{
		store:   fs,
		storage: st,
		logger:  slog.Default(),
	}, fs
}

func finalizedEvent(jobID uuid.UUID, status string) events.Event {
	return events.Event{
		Type: engine.JobFinalizedEvent,
		Payload: map[string]interface{}{
			"job_id": jobID.String(),
			"status": status,
		},
	}
}

func TestHandleJobFinalizedArchivesOversizedResult(t *testing.T) {
	jobID := uuid.New()
	bigResult := map[string]interface{}{"text": make([]byte, thresholdBytes+1)}
	job := &engine.Job{ID: jobID, JobKey: "hello_crew", Status: engine.StatusCompleted, Result: bigResult}

	fs := &fakeStorage{}
	m, store := newTestModule(job, fs)

	err := m.handleJobFinalized(context.Background(), finalizedEvent(jobID, string(engine.StatusCompleted)))
	require.NoError(t, err)
	assert.Len(t, fs.uploaded, 1)
	assert.Equal(t, fs.uploaded[0].Key, store.archiveKey)
	assert.Nil(t, job.Result)
}

func TestHandleJobFinalizedSkipsSmallResult(t *testing.T) {
	jobID := uuid.New()
	job := &engine.Job{ID: jobID, JobKey: "hello_crew", Status: engine.StatusCompleted, Result: map[string]interface{}{"message": "hi"}}

	fs := &fakeStorage{}
	m, store := newTestModule(job, fs)

	err := m.handleJobFinalized(context.Background(), finalizedEvent(jobID, string(engine.StatusCompleted)))
	require.NoError(t, err)
	assert.Empty(t, fs.uploaded)
	assert.Empty(t, store.archiveKey)
}

func TestHandleJobFinalizedIgnoresMalformedPayload(t *testing.T) {
	m, _ := newTestModule(nil, nil)
	err := m.handleJobFinalized(context.Background(), events.Event{Type: engine.JobFinalizedEvent, Payload: "not a map"})
	assert.NoError(t, err)
}

func TestHandleJobFinalizedNotifierNilIsSkippedWithoutPanic(t *testing.T) {
	jobID := uuid.New()
	lastErr := "boom"
	job := &engine.Job{ID: jobID, JobKey: "hello_crew", Status: engine.StatusFailed, LastError: &lastErr}
	m, _ := newTestModule(job, nil)
	m.notifier = (*notify.Notifier)(nil)

	err := m.handleJobFinalized(context.Background(), finalizedEvent(jobID, string(engine.StatusFailed)))
	assert.NoError(t, err)
}
