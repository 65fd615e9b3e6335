package storage

import (
	"context"
	"time"

	"github.com/wattsonlabs/wattson/pkg/model"
)

// Store defines the persistence layer for usage records, devices, and alerts.
type Store interface {
	// InsertUsage persists a single usage record.
	InsertUsage(ctx context.Context, record *model.UsageRecord) error

	// InsertUsageBatch persists records in a single transaction.
	InsertUsageBatch(ctx context.Context, records []model.UsageRecord) error

	// QueryUsage returns a user's records in [from, to] ordered by timestamp
	// ascending. A zero `to` means no upper bound.
	QueryUsage(ctx context.Context, userID string, from, to time.Time) ([]model.UsageRecord, error)

	// DeleteUsageRange removes a user's records in [from, to] and reports how
	// many were deleted.
	DeleteUsageRange(ctx context.Context, userID string, from, to time.Time) (int64, error)

	// SaveDevice creates or updates a device.
	SaveDevice(ctx context.Context, device *model.Device) error

	// GetDevice retrieves a device by id.
	GetDevice(ctx context.Context, id string) (*model.Device, error)

	// ListDevices returns all devices registered by a user.
	ListDevices(ctx context.Context, userID string) ([]model.Device, error)

	// DeleteDevice removes a device by id.
	DeleteDevice(ctx context.Context, id string) error

	// SetDeviceOn flips a device's on/off state.
	SetDeviceOn(ctx context.Context, id string, on bool) error

	// InsertAlert persists a new alert.
	InsertAlert(ctx context.Context, alert *model.Alert) error

	// LatestAlertByTitle returns the most recent alert with the exact title
	// created at or after since, or nil when none exists.
	LatestAlertByTitle(ctx context.Context, userID, title string, since time.Time) (*model.Alert, error)

	// ListAlerts returns a user's alerts, newest first.
	ListAlerts(ctx context.Context, userID string, limit int) ([]model.Alert, error)

	// MarkAlertRead flips an alert's read flag.
	MarkAlertRead(ctx context.Context, id string) error

	// Close releases resources.
	Close() error
}
