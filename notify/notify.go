// Package notify delivers reminders. Every sink is fire-and-forget: a failed
// delivery is reported to the caller for logging but nothing retries.
package notify

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultTimeout is how long a delivered reminder stays visible.
const DefaultTimeout = 10 * time.Second

// Sink delivers one reminder to the user.
type Sink interface {
	Notify(ctx context.Context, title, message string, timeout time.Duration) error
}

// LogSink writes each reminder to the process log. It is the fallback when no
// desktop session or relay queue is configured.
type LogSink struct{}

func (LogSink) Notify(_ context.Context, title, message string, _ time.Duration) error {
	log.WithFields(log.Fields{"title": title}).Info(message)
	return nil
}
