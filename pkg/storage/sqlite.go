package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/wattsonlabs/wattson/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLite implements the Store interface using an SQLite database.
// All timestamps are normalized to UTC on the way in so range comparisons
// stay consistent regardless of the caller's zone.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens or creates an SQLite database at the given path.
func NewSQLite(dbPath string) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) InsertUsage(ctx context.Context, record *model.UsageRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO usage_records (id, user_id, device_id, energy_kwh, cost, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		record.ID, record.UserID, nullString(record.DeviceID),
		record.EnergyKWh, record.Cost, record.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert usage record: %w", err)
	}
	return nil
}

func (s *SQLite) InsertUsageBatch(ctx context.Context, records []model.UsageRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch insert: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO usage_records (id, user_id, device_id, energy_kwh, cost, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare batch insert: %w", err)
	}
	defer stmt.Close()

	for i := range records {
		r := &records[i]
		if r.ID == "" {
			r.ID = uuid.New().String()
		}
		if r.Timestamp.IsZero() {
			r.Timestamp = time.Now()
		}
		if _, err := stmt.ExecContext(ctx, r.ID, r.UserID, nullString(r.DeviceID),
			r.EnergyKWh, r.Cost, r.Timestamp.UTC()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert usage record %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch insert: %w", err)
	}
	return nil
}

func (s *SQLite) QueryUsage(ctx context.Context, userID string, from, to time.Time) ([]model.UsageRecord, error) {
	query := `SELECT id, user_id, device_id, energy_kwh, cost, timestamp
		FROM usage_records WHERE user_id = ? AND timestamp >= ?`
	args := []any{userID, from.UTC()}
	if !to.IsZero() {
		query += " AND timestamp <= ?"
		args = append(args, to.UTC())
	}
	query += " ORDER BY timestamp ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query usage: %w", err)
	}
	defer rows.Close()

	var records []model.UsageRecord
	for rows.Next() {
		var r model.UsageRecord
		var deviceID sql.NullString
		if err := rows.Scan(&r.ID, &r.UserID, &deviceID, &r.EnergyKWh, &r.Cost, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan usage row: %w", err)
		}
		r.DeviceID = deviceID.String
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *SQLite) DeleteUsageRange(ctx context.Context, userID string, from, to time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM usage_records WHERE user_id = ? AND timestamp >= ? AND timestamp <= ?`,
		userID, from.UTC(), to.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("delete usage range: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check rows affected: %w", err)
	}
	return n, nil
}

func (s *SQLite) SaveDevice(ctx context.Context, device *model.Device) error {
	if device.ID == "" {
		device.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if device.CreatedAt.IsZero() {
		device.CreatedAt = now
	}
	device.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO devices (id, user_id, name, type, power_rating_w, daily_usage_hours, is_on, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   type = excluded.type,
		   power_rating_w = excluded.power_rating_w,
		   daily_usage_hours = excluded.daily_usage_hours,
		   is_on = excluded.is_on,
		   updated_at = excluded.updated_at`,
		device.ID, device.UserID, device.Name, device.Type,
		device.PowerRatingW, device.DailyUsageHours, device.IsOn,
		device.CreatedAt, device.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save device: %w", err)
	}
	return nil
}

func (s *SQLite) GetDevice(ctx context.Context, id string) (*model.Device, error) {
	var d model.Device
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, type, power_rating_w, daily_usage_hours, is_on, created_at, updated_at
		 FROM devices WHERE id = ?`, id,
	).Scan(&d.ID, &d.UserID, &d.Name, &d.Type, &d.PowerRatingW,
		&d.DailyUsageHours, &d.IsOn, &d.CreatedAt, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("device %q not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get device: %w", err)
	}
	return &d, nil
}

func (s *SQLite) ListDevices(ctx context.Context, userID string) ([]model.Device, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, type, power_rating_w, daily_usage_hours, is_on, created_at, updated_at
		 FROM devices WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()

	var devices []model.Device
	for rows.Next() {
		var d model.Device
		if err := rows.Scan(&d.ID, &d.UserID, &d.Name, &d.Type, &d.PowerRatingW,
			&d.DailyUsageHours, &d.IsOn, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan device row: %w", err)
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

func (s *SQLite) DeleteDevice(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM devices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete device: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("device %q not found", id)
	}
	return nil
}

func (s *SQLite) SetDeviceOn(ctx context.Context, id string, on bool) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE devices SET is_on = ?, updated_at = ? WHERE id = ?`,
		on, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("set device state: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("device %q not found", id)
	}
	return nil
}

func (s *SQLite) InsertAlert(ctx context.Context, alert *model.Alert) error {
	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO alerts (id, user_id, title, message, severity, created_at, read)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		alert.ID, alert.UserID, alert.Title, alert.Message,
		alert.Severity, alert.CreatedAt.UTC(), alert.Read,
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (s *SQLite) LatestAlertByTitle(ctx context.Context, userID, title string, since time.Time) (*model.Alert, error) {
	var a model.Alert
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, message, severity, created_at, read
		 FROM alerts WHERE user_id = ? AND title = ? AND created_at >= ?
		 ORDER BY created_at DESC LIMIT 1`,
		userID, title, since.UTC(),
	).Scan(&a.ID, &a.UserID, &a.Title, &a.Message, &a.Severity, &a.CreatedAt, &a.Read)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest alert by title: %w", err)
	}
	return &a, nil
}

func (s *SQLite) ListAlerts(ctx context.Context, userID string, limit int) ([]model.Alert, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, title, message, severity, created_at, read
		 FROM alerts WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []model.Alert
	for rows.Next() {
		var a model.Alert
		if err := rows.Scan(&a.ID, &a.UserID, &a.Title, &a.Message, &a.Severity, &a.CreatedAt, &a.Read); err != nil {
			return nil, fmt.Errorf("scan alert row: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (s *SQLite) MarkAlertRead(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE alerts SET read = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark alert read: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("alert %q not found", id)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
