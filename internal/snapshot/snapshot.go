// Package snapshot turns the live part of the device table into the payload
// pushed to radar viewers.
package snapshot

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/banshee-data/wifiradar/internal/devices"
	"github.com/banshee-data/wifiradar/internal/signalmodel"
)

// DeviceView is one device as drawn on the radar.
type DeviceView struct {
	Address  string  `json:"mac"`
	Distance float64 `json:"distance"`
	Angle    int     `json:"angle"`
	Strength int     `json:"strength"`
}

// Snapshot is the payload sent on every broadcast tick.
type Snapshot struct {
	Devices []DeviceView `json:"devices"`
}

// Marshal encodes the snapshot as the wire JSON object. An empty snapshot
// encodes as {"devices":[]}.
func (s Snapshot) Marshal() ([]byte, error) {
	if s.Devices == nil {
		s.Devices = []DeviceView{}
	}
	return json.Marshal(s)
}

// Unmarshal decodes a payload produced by Marshal.
func Unmarshal(payload []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(payload, &s); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return s, nil
}

// Reader is the part of the device table the builder reads.
type Reader interface {
	SnapshotNonStale(now time.Time, window time.Duration) []devices.Record
}

// Builder applies the signal model to the non-stale records of a table.
type Builder struct {
	table       Reader
	model       signalmodel.Model
	staleWindow time.Duration
}

// NewBuilder creates a Builder. A non-positive staleWindow uses
// devices.DefaultStaleWindow.
func NewBuilder(table Reader, model signalmodel.Model, staleWindow time.Duration) *Builder {
	if staleWindow <= 0 {
		staleWindow = devices.DefaultStaleWindow
	}
	return &Builder{table: table, model: model, staleWindow: staleWindow}
}

// Build returns the devices seen within the stale window of now, in table
// order.
func (b *Builder) Build(now time.Time) Snapshot {
	records := b.table.SnapshotNonStale(now, b.staleWindow)
	views := make([]DeviceView, 0, len(records))
	for _, r := range records {
		views = append(views, View(b.model, r))
	}
	return Snapshot{Devices: views}
}

// View derives the radar coordinates of a single record.
func View(model signalmodel.Model, r devices.Record) DeviceView {
	return DeviceView{
		Address:  r.Addr.String(),
		Distance: model.DistanceFromStrength(r.Strength),
		Angle:    signalmodel.AngleFromAddress(r.Addr),
		Strength: signalmodel.NormalizeStrength(r.Strength),
	}
}
