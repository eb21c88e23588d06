package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/banshee-data/wifiradar/internal/devices"
	"github.com/banshee-data/wifiradar/internal/fsutil"
	"github.com/banshee-data/wifiradar/internal/signalmodel"
	"github.com/banshee-data/wifiradar/internal/snapshot"
)

// DefaultConfigPath is the path to the canonical defaults file.
const DefaultConfigPath = "config/wifiradar.defaults.json"

// RadarConfig is the on-disk configuration. Fields omitted from the file
// fall back to the defaults returned by the Get* methods, so partial configs
// are safe.
type RadarConfig struct {
	// Device table
	Capacity       *int    `json:"capacity,omitempty"`
	StaleWindow    *string `json:"stale_window,omitempty"` // duration string like "10s"
	EvictionPolicy *string `json:"eviction_policy,omitempty"`

	// Signal model
	MaxDistance *float64 `json:"max_distance,omitempty"`

	// Broadcast
	BroadcastInterval *string `json:"broadcast_interval,omitempty"` // duration string like "1s"

	// Radio provisioning. These are handed to whatever brings the radio up
	// and are only validated and logged here.
	Channel    *int    `json:"channel,omitempty"`
	TxPowerDBM *int    `json:"tx_power_dbm,omitempty"`
	SSID       *string `json:"ssid,omitempty"`
	Passphrase *string `json:"passphrase,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyRadarConfig returns a RadarConfig with all fields set to nil.
func EmptyRadarConfig() *RadarConfig {
	return &RadarConfig{}
}

// LoadRadarConfig loads a RadarConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
func LoadRadarConfig(path string) (*RadarConfig, error) {
	return LoadRadarConfigFS(fsutil.OSFileSystem{}, path)
}

// LoadRadarConfigFS is LoadRadarConfig reading through fsys.
func LoadRadarConfigFS(fsys fsutil.FileSystem, path string) (*RadarConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := fsys.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := fsys.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyRadarConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *RadarConfig) Validate() error {
	if c.Capacity != nil && (*c.Capacity < 1 || *c.Capacity > 4096) {
		return fmt.Errorf("capacity must be between 1 and 4096, got %d", *c.Capacity)
	}

	if err := validatePositiveDuration("stale_window", c.StaleWindow); err != nil {
		return err
	}
	if err := validatePositiveDuration("broadcast_interval", c.BroadcastInterval); err != nil {
		return err
	}

	if c.EvictionPolicy != nil {
		if _, err := devices.ParsePolicy(*c.EvictionPolicy); err != nil {
			return err
		}
	}

	if c.MaxDistance != nil && !(*c.MaxDistance > 0) {
		return fmt.Errorf("max_distance must be positive, got %f", *c.MaxDistance)
	}

	if c.Channel != nil && (*c.Channel < 1 || *c.Channel > 14) {
		return fmt.Errorf("channel must be between 1 and 14, got %d", *c.Channel)
	}
	if c.TxPowerDBM != nil && (*c.TxPowerDBM < 0 || *c.TxPowerDBM > 30) {
		return fmt.Errorf("tx_power_dbm must be between 0 and 30, got %d", *c.TxPowerDBM)
	}
	if c.SSID != nil && len(*c.SSID) > 32 {
		return fmt.Errorf("ssid must be at most 32 bytes, got %d", len(*c.SSID))
	}
	if c.Passphrase != nil && *c.Passphrase != "" && (len(*c.Passphrase) < 8 || len(*c.Passphrase) > 63) {
		return fmt.Errorf("passphrase must be 8 to 63 characters")
	}

	return nil
}

func validatePositiveDuration(name string, v *string) error {
	if v == nil || *v == "" {
		return nil
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive, got %s", name, *v)
	}
	return nil
}

// GetCapacity returns the device table capacity.
func (c *RadarConfig) GetCapacity() int {
	if c.Capacity == nil {
		return devices.DefaultCapacity
	}
	return *c.Capacity
}

// GetStaleWindow returns how long a device stays visible after its last frame.
func (c *RadarConfig) GetStaleWindow() time.Duration {
	return parseDurationOr(c.StaleWindow, devices.DefaultStaleWindow)
}

// GetEvictionPolicy returns the table's capacity policy.
func (c *RadarConfig) GetEvictionPolicy() devices.Policy {
	if c.EvictionPolicy == nil {
		return devices.PolicyDrop
	}
	p, err := devices.ParsePolicy(*c.EvictionPolicy)
	if err != nil {
		return devices.PolicyDrop
	}
	return p
}

// GetMaxDistance returns the outer radar ring in metres.
func (c *RadarConfig) GetMaxDistance() float64 {
	if c.MaxDistance == nil {
		return signalmodel.DefaultMaxDistance
	}
	return *c.MaxDistance
}

// GetBroadcastInterval returns the snapshot period.
func (c *RadarConfig) GetBroadcastInterval() time.Duration {
	return parseDurationOr(c.BroadcastInterval, snapshot.DefaultInterval)
}

// GetChannel returns the radio channel to listen on.
func (c *RadarConfig) GetChannel() int {
	if c.Channel == nil {
		return 6
	}
	return *c.Channel
}

// GetTxPowerDBM returns the transmit power for the access point.
func (c *RadarConfig) GetTxPowerDBM() int {
	if c.TxPowerDBM == nil {
		return 20
	}
	return *c.TxPowerDBM
}

// GetSSID returns the network name advertised by the sensor.
func (c *RadarConfig) GetSSID() string {
	if c.SSID == nil {
		return "wifiradar"
	}
	return *c.SSID
}

// TableConfig returns the devices.Config described by c.
func (c *RadarConfig) TableConfig() devices.Config {
	return devices.Config{
		Capacity:    c.GetCapacity(),
		Policy:      c.GetEvictionPolicy(),
		StaleWindow: c.GetStaleWindow(),
	}
}

// SignalModel returns the signalmodel.Model described by c.
func (c *RadarConfig) SignalModel() signalmodel.Model {
	return signalmodel.Model{MaxDistance: c.GetMaxDistance()}
}

func parseDurationOr(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// Redacted returns a copy safe to expose on status endpoints.
func (c *RadarConfig) Redacted() *RadarConfig {
	cp := *c
	if cp.Passphrase != nil && *cp.Passphrase != "" {
		cp.Passphrase = ptrString("********")
	}
	return &cp
}
