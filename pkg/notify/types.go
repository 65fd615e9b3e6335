package notify

import (
	"context"

	"github.com/wattsonlabs/wattson/pkg/model"
)

// Notifier fans a newly created alert out to an external system.
type Notifier interface {
	// Name returns the notifier identifier.
	Name() string

	// Send delivers an alert. Implementations must be safe for concurrent use.
	Send(ctx context.Context, alert model.Alert) error
}
