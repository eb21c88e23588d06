package db

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/wifiradar/internal/snapshot"
)

// SessionInfo describes one run of the sensor.
type SessionInfo struct {
	ID        string    `json:"session_id"`
	StartedAt time.Time `json:"started_at"`
	Source    string    `json:"source"`
	Channel   int       `json:"channel"`
	Capacity  int       `json:"capacity"`
	Policy    string    `json:"policy"`
}

// Session archives the snapshots of a single run. It satisfies
// snapshot.Recorder.
type Session struct {
	db   *DB
	info SessionInfo
}

// StartSession registers a new run and returns a Session for it.
func (db *DB) StartSession(startedAt time.Time, source string, channel, capacity int, policy string) (*Session, error) {
	info := SessionInfo{
		ID:        uuid.New().String(),
		StartedAt: startedAt,
		Source:    source,
		Channel:   channel,
		Capacity:  capacity,
		Policy:    policy,
	}
	_, err := db.Exec(
		`INSERT INTO sessions (session_id, started_unix_ms, source, channel, capacity, policy)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		info.ID, startedAt.UnixMilli(), source, channel, capacity, policy,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert session: %w", err)
	}
	db.logf("started session %s (source=%s channel=%d)", info.ID, source, channel)
	return &Session{db: db, info: info}, nil
}

// Info returns the session's metadata.
func (s *Session) Info() SessionInfo { return s.info }

// RecordSnapshot stores every device of snap in one transaction. Empty
// snapshots write nothing.
func (s *Session) RecordSnapshot(at time.Time, snap snapshot.Snapshot) error {
	if len(snap.Devices) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO sightings (session_id, observed_unix_ms, mac, distance, angle, strength)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	ms := at.UnixMilli()
	for _, d := range snap.Devices {
		if _, err := stmt.Exec(s.info.ID, ms, d.Address, d.Distance, d.Angle, d.Strength); err != nil {
			return fmt.Errorf("failed to insert sighting for %s: %w", d.Address, err)
		}
	}
	return tx.Commit()
}

// Sighting is one archived appearance of a device in a snapshot.
type Sighting struct {
	SessionID  string    `json:"session_id"`
	ObservedAt time.Time `json:"observed_at"`
	snapshot.DeviceView
}

// StrengthHistory returns the most recent sightings of mac, oldest first.
// A non-positive limit returns all of them.
func (db *DB) StrengthHistory(mac string, limit int) ([]Sighting, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.Query(
		`SELECT session_id, observed_unix_ms, mac, distance, angle, strength
		 FROM (
		   SELECT * FROM sightings WHERE mac = ?
		   ORDER BY observed_unix_ms DESC LIMIT ?
		 ) ORDER BY observed_unix_ms ASC`,
		mac, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query sightings: %w", err)
	}
	defer rows.Close()

	var out []Sighting
	for rows.Next() {
		var s Sighting
		var observed int64
		if err := rows.Scan(&s.SessionID, &observed, &s.Address, &s.Distance, &s.Angle, &s.Strength); err != nil {
			return nil, err
		}
		s.ObservedAt = time.UnixMilli(observed).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeviceSummary aggregates the sightings of one address.
type DeviceSummary struct {
	Address        string    `json:"mac"`
	Sightings      int       `json:"sightings"`
	FirstSeen      time.Time `json:"first_seen"`
	LastSeen       time.Time `json:"last_seen"`
	MeanStrength   float64   `json:"mean_strength"`
	StdDevStrength float64   `json:"stddev_strength"`
	MedianDistance float64   `json:"median_distance"`
}

// DeviceSummaries aggregates all sightings at or after since, strongest
// mean first.
func (db *DB) DeviceSummaries(since time.Time) ([]DeviceSummary, error) {
	rows, err := db.Query(
		`SELECT mac, observed_unix_ms, distance, strength
		 FROM sightings WHERE observed_unix_ms >= ?
		 ORDER BY mac, observed_unix_ms`,
		since.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query sightings: %w", err)
	}
	defer rows.Close()

	type acc struct {
		first, last int64
		strength    []float64
		distance    []float64
	}
	byMAC := make(map[string]*acc)
	var order []string
	for rows.Next() {
		var (
			mac      string
			observed int64
			distance float64
			strength int
		)
		if err := rows.Scan(&mac, &observed, &distance, &strength); err != nil {
			return nil, err
		}
		a, ok := byMAC[mac]
		if !ok {
			a = &acc{first: observed}
			byMAC[mac] = a
			order = append(order, mac)
		}
		a.last = observed
		a.strength = append(a.strength, float64(strength))
		a.distance = append(a.distance, distance)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]DeviceSummary, 0, len(order))
	for _, mac := range order {
		a := byMAC[mac]
		mean, std := stat.MeanStdDev(a.strength, nil)
		if len(a.strength) < 2 {
			std = 0
		}
		sort.Float64s(a.distance)
		out = append(out, DeviceSummary{
			Address:        mac,
			Sightings:      len(a.strength),
			FirstSeen:      time.UnixMilli(a.first).UTC(),
			LastSeen:       time.UnixMilli(a.last).UTC(),
			MeanStrength:   mean,
			StdDevStrength: std,
			MedianDistance: stat.Quantile(0.5, stat.Empirical, a.distance, nil),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].MeanStrength > out[j].MeanStrength })
	return out, nil
}

// Sessions lists recorded runs, newest first.
func (db *DB) Sessions() ([]SessionInfo, error) {
	rows, err := db.Query(
		`SELECT session_id, started_unix_ms, source, channel, capacity, policy
		 FROM sessions ORDER BY started_unix_ms DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()
	var out []SessionInfo
	for rows.Next() {
		var s SessionInfo
		var started int64
		if err := rows.Scan(&s.ID, &started, &s.Source, &s.Channel, &s.Capacity, &s.Policy); err != nil {
			return nil, err
		}
		s.StartedAt = time.UnixMilli(started).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

// PruneBefore deletes sightings older than cutoff and returns how many
// rows went.
func (db *DB) PruneBefore(cutoff time.Time) (int64, error) {
	res, err := db.Exec(`DELETE FROM sightings WHERE observed_unix_ms < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune sightings: %w", err)
	}
	return res.RowsAffected()
}

var _ snapshot.Recorder = (*Session)(nil)
