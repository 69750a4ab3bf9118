// Package notify delivers password-reset links out of band.
package notify

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Notifier hands a reset link to its recipient. The link carries the
// plaintext token, so implementations must not log it.
type Notifier interface {
	SendPasswordReset(ctx context.Context, to, username, link string) error
}

// WriterNotifier prints reset messages to w. It stands in for a mail
// gateway in development and in single-operator deployments.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

func (n *WriterNotifier) SendPasswordReset(_ context.Context, to, username, link string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	_, err := fmt.Fprintf(n.w,
		"To: %s\nSubject: Password reset\n\nHi %s,\n\nUse the link below within the hour to choose a new password:\n%s\n\nIf you did not ask for this, ignore this message.\n\n",
		to, username, link)
	if err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	return nil
}
