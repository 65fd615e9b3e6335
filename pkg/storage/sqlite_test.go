package storage_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wattsonlabs/wattson/pkg/model"
	"github.com/wattsonlabs/wattson/pkg/storage"
)

func newTestDB(t *testing.T) *storage.SQLite {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := storage.NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLite_InsertUsage(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	record := &model.UsageRecord{
		UserID:    "user-1",
		EnergyKWh: 2.5,
		Cost:      175,
	}

	err := db.InsertUsage(ctx, record)
	require.NoError(t, err)
	assert.NotEmpty(t, record.ID)
	assert.False(t, record.Timestamp.IsZero())
}

func TestSQLite_QueryUsage_OrderAndRange(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now()

	// Insert out of chronological order
	records := []*model.UsageRecord{
		{UserID: "user-1", EnergyKWh: 1, Cost: 70, Timestamp: now.Add(-1 * time.Hour)},
		{UserID: "user-1", EnergyKWh: 3, Cost: 210, Timestamp: now.Add(-72 * time.Hour)},
		{UserID: "user-1", EnergyKWh: 2, Cost: 140, Timestamp: now.Add(-24 * time.Hour)},
		{UserID: "user-2", EnergyKWh: 9, Cost: 630, Timestamp: now},
	}
	for _, r := range records {
		require.NoError(t, db.InsertUsage(ctx, r))
	}

	got, err := db.QueryUsage(ctx, "user-1", now.Add(-48*time.Hour), time.Time{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Timestamp.Before(got[1].Timestamp))
	assert.InDelta(t, 2.0, got[0].EnergyKWh, 0.0001)
	assert.InDelta(t, 1.0, got[1].EnergyKWh, 0.0001)

	// Bounded upper end excludes the most recent record
	got, err = db.QueryUsage(ctx, "user-1", now.Add(-96*time.Hour), now.Add(-12*time.Hour))
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSQLite_InsertUsageBatch(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	batch := make([]model.UsageRecord, 10)
	for i := range batch {
		batch[i] = model.UsageRecord{UserID: "user-1", EnergyKWh: 1, Cost: 70}
	}
	require.NoError(t, db.InsertUsageBatch(ctx, batch))

	got, err := db.QueryUsage(ctx, "user-1", time.Now().Add(-time.Hour), time.Time{})
	require.NoError(t, err)
	assert.Len(t, got, 10)
	for _, r := range got {
		assert.NotEmpty(t, r.ID)
	}
}

func TestSQLite_InsertUsageBatch_Empty(t *testing.T) {
	db := newTestDB(t)
	assert.NoError(t, db.InsertUsageBatch(context.Background(), nil))
}

func TestSQLite_DeleteUsageRange(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now()

	for _, offset := range []time.Duration{-1 * time.Hour, -25 * time.Hour, -100 * time.Hour} {
		require.NoError(t, db.InsertUsage(ctx, &model.UsageRecord{
			UserID: "user-1", EnergyKWh: 1, Cost: 70, Timestamp: now.Add(offset),
		}))
	}
	require.NoError(t, db.InsertUsage(ctx, &model.UsageRecord{
		UserID: "user-2", EnergyKWh: 1, Cost: 70, Timestamp: now,
	}))

	n, err := db.DeleteUsageRange(ctx, "user-1", now.Add(-48*time.Hour), now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// Other user untouched
	got, err := db.QueryUsage(ctx, "user-2", now.Add(-time.Hour), time.Time{})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSQLite_DeviceCRUD(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	device := &model.Device{
		UserID:          "user-1",
		Name:            "Living Room AC",
		Type:            model.DeviceAC,
		PowerRatingW:    1500,
		DailyUsageHours: 6,
		IsOn:            true,
	}
	require.NoError(t, db.SaveDevice(ctx, device))
	assert.NotEmpty(t, device.ID)

	got, err := db.GetDevice(ctx, device.ID)
	require.NoError(t, err)
	assert.Equal(t, "Living Room AC", got.Name)
	assert.True(t, got.IsOn)

	// Upsert updates in place
	device.PowerRatingW = 1200
	require.NoError(t, db.SaveDevice(ctx, device))
	got, err = db.GetDevice(ctx, device.ID)
	require.NoError(t, err)
	assert.InDelta(t, 1200, got.PowerRatingW, 0.0001)

	require.NoError(t, db.SetDeviceOn(ctx, device.ID, false))
	got, err = db.GetDevice(ctx, device.ID)
	require.NoError(t, err)
	assert.False(t, got.IsOn)

	devices, err := db.ListDevices(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, devices, 1)

	require.NoError(t, db.DeleteDevice(ctx, device.ID))
	_, err = db.GetDevice(ctx, device.ID)
	assert.Error(t, err)
}

func TestSQLite_DeleteDevice_NotFound(t *testing.T) {
	db := newTestDB(t)
	err := db.DeleteDevice(context.Background(), "missing")
	assert.Error(t, err)
}

func TestSQLite_Alerts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now()

	old := &model.Alert{
		UserID:    "user-1",
		Title:     "Budget Alert",
		Message:   "old",
		Severity:  model.SeverityWarning,
		CreatedAt: now.Add(-8 * time.Hour),
	}
	recent := &model.Alert{
		UserID:   "user-1",
		Title:    "Budget Alert",
		Message:  "recent",
		Severity: model.SeverityWarning,
	}
	require.NoError(t, db.InsertAlert(ctx, old))
	require.NoError(t, db.InsertAlert(ctx, recent))

	// Only alerts inside the window are considered
	got, err := db.LatestAlertByTitle(ctx, "user-1", "Budget Alert", now.Add(-6*time.Hour))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "recent", got.Message)

	// No matching title in window
	got, err = db.LatestAlertByTitle(ctx, "user-1", "High Energy Usage", now.Add(-6*time.Hour))
	require.NoError(t, err)
	assert.Nil(t, got)

	alerts, err := db.ListAlerts(ctx, "user-1", 0)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, "recent", alerts[0].Message)

	require.NoError(t, db.MarkAlertRead(ctx, recent.ID))
	alerts, err = db.ListAlerts(ctx, "user-1", 1)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.True(t, alerts[0].Read)
}

func TestSQLite_MarkAlertRead_NotFound(t *testing.T) {
	db := newTestDB(t)
	err := db.MarkAlertRead(context.Background(), "missing")
	assert.Error(t, err)
}
