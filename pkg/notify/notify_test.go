package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkjar/crew-orchestrator/pkg/email"
)

type fakeEmailService struct {
	sent []*email.Email
	err  error
}

func (f *fakeEmailService) Send(ctx context.Context, e *email.Email) error {
	f.sent = append(f.sent, e)
	return f.err
}

func (f *fakeEmailService) SendTemplate(ctx context.Context, opts *email.TemplateEmailOptions) error {
	return nil
}

func TestNewReturnsNilWhenUnconfigured(t *testing.T) {
	n, err := New(nil, []string{"ops@example.com"})
	require.NoError(t, err)
	assert.Nil(t, n)

	n, err = New(&email.Config{Provider: "smtp"}, nil)
	require.NoError(t, err)
	assert.Nil(t, n)
}

func TestNotifyJobFailedOnNilNotifierIsNoop(t *testing.T) {
	var n *Notifier
	err := n.NotifyJobFailed(context.Background(), "job-1", "hello_crew", "boom")
	assert.NoError(t, err)
}

func TestNotifyJobFailedSendsExpectedMessage(t *testing.T) {
	fake := &fakeEmailService{}
	n := &Notifier{svc: fake, to: []string{"ops@example.com"}}

	err := n.NotifyJobFailed(context.Background(), "job-1", "hello_crew", "boom")
	require.NoError(t, err)

	require.Len(t, fake.sent, 1)
	msg := fake.sent[0]
	assert.Equal(t, []string{"ops@example.com"}, msg.To)
	assert.Contains(t, msg.Subject, "hello_crew")
	assert.Contains(t, msg.Body, "job_id=job-1")
	assert.Contains(t, msg.Body, "error=boom")
}
