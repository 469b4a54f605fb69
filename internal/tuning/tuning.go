// Package tuning holds the behavioral knobs of the sync engine: guard
// thresholds, snapshot heuristics, history batching, presence liveness,
// retention. Collapsing these into one explicit value threaded through the
// pipeline keeps their interaction visible, instead of scattering booleans
// per rundown.
package tuning

import (
	"embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed config/*.yaml
var configFiles embed.FS

// Tuning is the full set of behavioral knobs. One value per process;
// treat as read-only after Load.
type Tuning struct {
	Guard      GuardTuning      `yaml:"guard"`
	Snapshots  SnapshotTuning   `yaml:"snapshots"`
	History    HistoryTuning    `yaml:"history"`
	Presence   PresenceTuning   `yaml:"presence"`
	Operations OperationsTuning `yaml:"operations"`
	Notify     NotifyTuning     `yaml:"notify"`
}

type GuardTuning struct {
	WipeThreshold int `yaml:"wipe_threshold"`
}

type SnapshotTuning struct {
	StructureFixedCount int `yaml:"structure_fixed_count"`
	StructurePercent    int `yaml:"structure_percent"`
	PeriodicMinutes     int `yaml:"periodic_minutes"`
	MaxPerRundown       int `yaml:"max_per_rundown"`
}

type HistoryTuning struct {
	BatchWindowSeconds int `yaml:"batch_window_seconds"`
	PageSize           int `yaml:"page_size"`
}

type PresenceTuning struct {
	LivenessMinutes      int `yaml:"liveness_minutes"`
	SweepIntervalSeconds int `yaml:"sweep_interval_seconds"`
}

type OperationsTuning struct {
	RetentionDays      int `yaml:"retention_days"`
	SweepIntervalHours int `yaml:"sweep_interval_hours"`
}

type NotifyTuning struct {
	SubscriberBuffer int `yaml:"subscriber_buffer"`
}

// PeriodicInterval is the snapshot floor as a duration.
func (s SnapshotTuning) PeriodicInterval() time.Duration {
	return time.Duration(s.PeriodicMinutes) * time.Minute
}

// BatchWindow is the history batch window as a duration.
func (h HistoryTuning) BatchWindow() time.Duration {
	return time.Duration(h.BatchWindowSeconds) * time.Second
}

// LivenessWindow is the presence liveness window as a duration.
func (p PresenceTuning) LivenessWindow() time.Duration {
	return time.Duration(p.LivenessMinutes) * time.Minute
}

// SweepInterval is the presence sweep cadence as a duration.
func (p PresenceTuning) SweepInterval() time.Duration {
	return time.Duration(p.SweepIntervalSeconds) * time.Second
}

// RetentionHorizon is the operation-log retention as a duration.
func (o OperationsTuning) RetentionHorizon() time.Duration {
	return time.Duration(o.RetentionDays) * 24 * time.Hour
}

// SweepInterval is the retention sweep cadence as a duration.
func (o OperationsTuning) SweepInterval() time.Duration {
	return time.Duration(o.SweepIntervalHours) * time.Hour
}

// Load parses the embedded defaults file.
func Load() (*Tuning, error) {
	data, err := configFiles.ReadFile("config/defaults.yaml")
	if err != nil {
		return nil, fmt.Errorf("read tuning defaults: %w", err)
	}

	var t Tuning
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("unmarshal tuning defaults: %w", err)
	}

	if err := t.validate(); err != nil {
		return nil, err
	}

	return &t, nil
}

func (t *Tuning) validate() error {
	if t.Guard.WipeThreshold <= 0 {
		return fmt.Errorf("tuning: guard.wipe_threshold must be positive")
	}
	if t.Snapshots.MaxPerRundown <= 0 {
		return fmt.Errorf("tuning: snapshots.max_per_rundown must be positive")
	}
	if t.History.BatchWindowSeconds <= 0 {
		return fmt.Errorf("tuning: history.batch_window_seconds must be positive")
	}
	if t.Presence.LivenessMinutes <= 0 {
		return fmt.Errorf("tuning: presence.liveness_minutes must be positive")
	}
	if t.Notify.SubscriberBuffer <= 0 {
		return fmt.Errorf("tuning: notify.subscriber_buffer must be positive")
	}
	return nil
}
