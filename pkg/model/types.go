package model

import "time"

// DateLayout is the calendar-day key used for daily buckets.
const DateLayout = "2006-01-02"

// Default tariff and threshold values used when the user has not set their own.
const (
	DefaultElectricityRate = 70.0 // currency per kWh
	DefaultHighUsageKWh    = 20.0
)

// DeviceType classifies a household appliance.
type DeviceType string

const (
	DeviceAC     DeviceType = "ac"
	DeviceFridge DeviceType = "fridge"
	DeviceTV     DeviceType = "tv"
	DeviceFan    DeviceType = "fan"
	DeviceLights DeviceType = "lights"
	DeviceOther  DeviceType = "other"
)

// Device is a registered household appliance.
type Device struct {
	ID              string     `json:"id" db:"id"`
	UserID          string     `json:"user_id" db:"user_id"`
	Name            string     `json:"name" db:"name"`
	Type            DeviceType `json:"type" db:"type"`
	PowerRatingW    float64    `json:"power_rating_w" db:"power_rating_w"`
	DailyUsageHours float64    `json:"daily_usage_hours" db:"daily_usage_hours"`
	IsOn            bool       `json:"is_on" db:"is_on"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// DailyEnergyKWh estimates the energy a device consumes in one day.
func (d Device) DailyEnergyKWh() float64 {
	return d.PowerRatingW * d.DailyUsageHours / 1000
}

// DailyCost estimates the daily running cost at the given tariff.
func (d Device) DailyCost(rate float64) float64 {
	return d.DailyEnergyKWh() * rate
}

// UsageRecord is a single immutable energy consumption fact. DeviceID is
// empty for records not attached to a registered device.
type UsageRecord struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	DeviceID  string    `json:"device_id,omitempty" db:"device_id"`
	EnergyKWh float64   `json:"energy_kwh" db:"energy_kwh"`
	Cost      float64   `json:"cost" db:"cost"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}

// DailyBucket accumulates one local calendar day of usage.
type DailyBucket struct {
	Date      string  `json:"date"`
	EnergyKWh float64 `json:"energy_kwh"`
	Cost      float64 `json:"cost"`
}

// HourlyBucket accumulates one hour-of-day of usage.
type HourlyBucket struct {
	Hour      int     `json:"hour"`
	EnergyKWh float64 `json:"energy_kwh"`
}

// MonthTotal is the month-to-date usage sum.
type MonthTotal struct {
	EnergyKWh float64 `json:"energy_kwh"`
	Cost      float64 `json:"cost"`
}

// Severity indicates how urgent an alert is.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Alert is a persistent notification raised for a user. Only the Read flag
// mutates after creation.
type Alert struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Title     string    `json:"title" db:"title"`
	Message   string    `json:"message" db:"message"`
	Severity  Severity  `json:"severity" db:"severity"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	Read      bool      `json:"read" db:"read"`
}

// ThresholdConfig holds the user-set alerting thresholds. A zero
// MonthlyBudget disables budget checks.
type ThresholdConfig struct {
	MonthlyBudget   float64 `json:"monthly_budget"`
	ElectricityRate float64 `json:"electricity_rate"`
	HighUsageKWh    float64 `json:"high_usage_kwh"`
}

// DayBounds returns the start and end of the local calendar day containing t.
func DayBounds(t time.Time) (start, end time.Time) {
	t = t.Local()
	start = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	end = start.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return start, end
}

// MonthStart returns midnight on the 1st of the local calendar month
// containing t.
func MonthStart(t time.Time) time.Time {
	t = t.Local()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// DateKey returns the daily bucket key for a timestamp in local time.
func DateKey(t time.Time) string {
	return t.Local().Format(DateLayout)
}
