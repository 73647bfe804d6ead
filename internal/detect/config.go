package detect

import (
	"errors"
	"sync"
	"time"
)

// Config holds every tunable threshold of the detection pipeline. Historical
// builds hard-coded divergent constants in several places; they are
// consolidated here as fields with one documented default set.
//
// Config values are read fresh on every sample, so a replaced config takes
// effect immediately, including for an in-progress trip. Thresholds are
// start/stop gates, not accumulators, so a mid-trip swap cannot corrupt the
// accumulated distance.
type Config struct {
	Version int `json:"version"`

	// Auto-detection gates.
	AutoDetectEnabled bool          `json:"auto_detect_enabled"`
	AutoStartSpeedMps float64       `json:"auto_start_speed_mps"`
	AutoStartDuration time.Duration `json:"auto_start_duration"`
	AutoStopSpeedMps  float64       `json:"auto_stop_speed_mps"`
	AutoStopDuration  time.Duration `json:"auto_stop_duration"`

	// Sample filter.
	AccuracyCeilingM     float64 `json:"accuracy_ceiling_m"`
	NoiseFloorM          float64 `json:"noise_floor_m"`
	MaxPlausibleSpeedKmh float64 `json:"max_plausible_speed_kmh"`
	TeleportGuardM       float64 `json:"teleport_guard_m"`

	// Trip validation. The 50m/60s pair is the canonical tier; the strict
	// pair (500m/300s) exists in config for deployments that want a harsher
	// auto-detect gate, and is off by default.
	MinTripDistanceM       float64       `json:"min_trip_distance_m"`
	MinTripDuration        time.Duration `json:"min_trip_duration"`
	StrictValidation       bool          `json:"strict_validation"`
	StrictMinTripDistanceM float64       `json:"strict_min_trip_distance_m"`
	StrictMinTripDuration  time.Duration `json:"strict_min_trip_duration"`
	MinAvgSpeedKmh         float64       `json:"min_avg_speed_kmh"`
	MaxAvgSpeedKmh         float64       `json:"max_avg_speed_kmh"`

	// Point buffering.
	SampleBatchSize int `json:"sample_batch_size"`

	// Movement classifier window.
	MotionWindow         time.Duration `json:"motion_window"`
	MotionWindowCap      int           `json:"motion_window_cap"`
	MotionMinSamples     int           `json:"motion_min_samples"`
	MovementMagnitude    float64       `json:"movement_magnitude"`
	StationaryMagnitude  float64       `json:"stationary_magnitude"`
	LowVariance          float64       `json:"low_variance"`
	ElevatedVariance     float64       `json:"elevated_variance"`
	SpeedSmoothingWindow int           `json:"speed_smoothing_window"`
}

// DefaultConfig returns the canonical threshold set.
func DefaultConfig() Config {
	return Config{
		Version: 1,

		AutoDetectEnabled: true,
		AutoStartSpeedMps: 3.0 / 3.6, // 3 km/h
		AutoStartDuration: 60 * time.Second,
		AutoStopSpeedMps:  0.5,
		AutoStopDuration:  60 * time.Second,

		AccuracyCeilingM:     100,
		NoiseFloorM:          2,
		MaxPlausibleSpeedKmh: 200,
		TeleportGuardM:       120,

		MinTripDistanceM:       50,
		MinTripDuration:        60 * time.Second,
		StrictValidation:       false,
		StrictMinTripDistanceM: 500,
		StrictMinTripDuration:  300 * time.Second,
		MinAvgSpeedKmh:         0.5,
		MaxAvgSpeedKmh:         200,

		SampleBatchSize: 100,

		MotionWindow:         5 * time.Second,
		MotionWindowCap:      50,
		MotionMinSamples:     10,
		MovementMagnitude:    10.8, // gravity plus sustained motion component
		StationaryMagnitude:  9.9,
		LowVariance:          0.35,
		ElevatedVariance:     1.5,
		SpeedSmoothingWindow: 5,
	}
}

// Validate rejects threshold sets that would wedge the state machine.
func (c Config) Validate() error {
	if c.AutoStartSpeedMps <= 0 || c.AutoStopSpeedMps <= 0 {
		return errors.New("speed thresholds must be positive")
	}
	if c.AutoStopSpeedMps >= c.AutoStartSpeedMps {
		return errors.New("stop speed gate must sit below the start gate")
	}
	if c.AutoStartDuration <= 0 || c.AutoStopDuration <= 0 {
		return errors.New("sustain durations must be positive")
	}
	if c.AccuracyCeilingM <= 0 || c.NoiseFloorM < 0 {
		return errors.New("filter thresholds invalid")
	}
	if c.MaxPlausibleSpeedKmh <= 0 || c.TeleportGuardM <= 0 {
		return errors.New("teleport guard invalid")
	}
	if c.MinTripDistanceM <= 0 || c.MinTripDuration <= 0 {
		return errors.New("trip minimums must be positive")
	}
	if c.SampleBatchSize <= 0 {
		return errors.New("sample batch size must be positive")
	}
	if c.MotionWindow <= 0 || c.MotionWindowCap <= 0 || c.MotionMinSamples <= 0 {
		return errors.New("motion window invalid")
	}
	return nil
}

// Store hands out immutable config snapshots and accepts hot replacements.
// The engine reads a snapshot per call; in-progress trip state is never reset
// by a replacement.
type Store struct {
	mu  sync.RWMutex
	cfg Config
}

// NewStore creates a config store seeded with cfg.
func NewStore(cfg Config) *Store {
	return &Store{cfg: cfg}
}

// Current returns the active config snapshot.
func (s *Store) Current() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Replace installs a new config. The version is bumped past the previous one
// if the caller did not set it.
func (s *Store) Replace(cfg Config) Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg.Version <= s.cfg.Version {
		cfg.Version = s.cfg.Version + 1
	}
	s.cfg = cfg
	return s.cfg
}
