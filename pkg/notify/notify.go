// Package notify sends job-finalized notifications to an operator
// inbox. It is a thin domain wrapper over pkg/email's provider-agnostic
// Service, the way internal/modules/crm sends lead-assignment email
// through the same pkg/email.Service rather than rolling its own SMTP
// client.
package notify

import (
	"context"
	"fmt"

	"github.com/sparkjar/crew-orchestrator/pkg/email"
)

// Notifier sends a fixed message shape for a failed crew job. A nil
// *Notifier is valid and every method is a no-op, so callers don't need
// to branch on whether notifications are configured.
type Notifier struct {
	svc email.Service
	to  []string
}

// New builds a Notifier from an email.Config. Returns a nil *Notifier,
// nil error when cfg is nil, so notifications are simply disabled.
func New(cfg *email.Config, operatorInbox []string) (*Notifier, error) {
	if cfg == nil || len(operatorInbox) == 0 {
		return nil, nil
	}
	svc, err := email.NewService(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build notification email service: %w", err)
	}
	return &Notifier{svc: svc, to: operatorInbox}, nil
}

// NotifyJobFailed sends a plain-text alert naming the job and its
// last error, sent when a job.finalized event reports status failed.
func (n *Notifier) NotifyJobFailed(ctx context.Context, jobID, jobKey, lastError string) error {
	if n == nil {
		return nil
	}
	msg := &email.Email{
		To:      n.to,
		Subject: fmt.Sprintf("crew job failed: %s", jobKey),
		Body: fmt.Sprintf(
			"job_id=%s\njob_key=%s\nerror=%s\n",
			jobID, jobKey, lastError,
		),
	}
	return n.svc.Send(ctx, msg)
}
