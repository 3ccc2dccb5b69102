package notify

import (
	"context"
	"time"

	"github.com/gen2brain/beeep"
)

// DesktopSink raises platform-native pop-up notifications.
type DesktopSink struct{}

func (DesktopSink) Notify(_ context.Context, title, message string, _ time.Duration) error {
	// beeep exposes no display-duration control; the platform default applies.
	return beeep.Notify(title, message, "")
}
