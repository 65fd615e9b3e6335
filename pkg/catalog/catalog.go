// Package catalog provides appliance presets: per-type default power ratings
// and daily usage hours. Presets seed new device registrations and supply the
// fallback device set for backfill when a user has no devices yet.
package catalog

import (
	"fmt"
	"os"

	"github.com/wattsonlabs/wattson/pkg/model"
	"gopkg.in/yaml.v3"
)

// Entry describes one appliance preset.
type Entry struct {
	Name            string           `yaml:"name"`
	Type            model.DeviceType `yaml:"type"`
	PowerRatingW    float64          `yaml:"power_rating_w"`
	DailyUsageHours float64          `yaml:"daily_usage_hours"`
}

// Catalog is a named set of appliance presets.
type Catalog struct {
	Appliances []Entry `yaml:"appliances"`
}

// Default returns the compiled-in appliance set.
func Default() *Catalog {
	return &Catalog{
		Appliances: []Entry{
			{Name: "Living Room AC", Type: model.DeviceAC, PowerRatingW: 1500, DailyUsageHours: 6},
			{Name: "Kitchen Fridge", Type: model.DeviceFridge, PowerRatingW: 150, DailyUsageHours: 24},
			{Name: "Smart TV", Type: model.DeviceTV, PowerRatingW: 100, DailyUsageHours: 4},
			{Name: "Ceiling Fan", Type: model.DeviceFan, PowerRatingW: 75, DailyUsageHours: 8},
			{Name: "Bedroom Lights", Type: model.DeviceLights, PowerRatingW: 60, DailyUsageHours: 5},
		},
	}
}

// Load reads a YAML appliance catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file %s: %w", path, err)
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog file %s: %w", path, err)
	}
	if len(c.Appliances) == 0 {
		return nil, fmt.Errorf("catalog file %s: no appliances defined", path)
	}
	return &c, nil
}

// LoadOrDefault reads the catalog at path, falling back to the compiled-in
// set when path is empty.
func LoadOrDefault(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Lookup returns the first preset for the given appliance type.
func (c *Catalog) Lookup(t model.DeviceType) (Entry, bool) {
	for _, e := range c.Appliances {
		if e.Type == t {
			return e, true
		}
	}
	return Entry{}, false
}

// FallbackDevices builds a device list from the presets for users with no
// registered devices. The devices carry no ids so synthetic usage records
// are not attached to device records that do not exist.
func (c *Catalog) FallbackDevices(userID string) []model.Device {
	devices := make([]model.Device, 0, len(c.Appliances))
	for _, e := range c.Appliances {
		devices = append(devices, model.Device{
			UserID:          userID,
			Name:            e.Name,
			Type:            e.Type,
			PowerRatingW:    e.PowerRatingW,
			DailyUsageHours: e.DailyUsageHours,
			IsOn:            true,
		})
	}
	return devices
}
