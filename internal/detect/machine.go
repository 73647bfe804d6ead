package detect

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MmohithSai/TripSync-Supabase-sub000/internal/geo"
	"github.com/MmohithSai/TripSync-Supabase-sub000/internal/trip"
)

// State is the trip lifecycle state. There are exactly two states; the
// complexity lives in the transition guards, not in extra states.
type State string

const (
	StateIdle   State = "idle"
	StateActive State = "active"
)

// Recorder receives point batches and finalized trips from the machine.
// Implementations must return quickly; actual delivery happens in the
// background so that detection is never blocked by storage or network.
type Recorder interface {
	// RecordBatch hands over a full point buffer while the trip is still
	// active. Points handed over here are not re-sent on stop.
	RecordBatch(summary trip.Summary, points []trip.Point)
	// TripFinished hands over the completed trip with any points that were
	// still buffered. meaningful is the validator verdict; implementations
	// discard non-meaningful trips.
	TripFinished(summary trip.Summary, points []trip.Point, meaningful bool)
}

// StartOptions carries user-supplied metadata for a manual start.
type StartOptions struct {
	Mode       string          `json:"mode"`
	Purpose    string          `json:"purpose"`
	Companions trip.Companions `json:"companions"`
	Notes      string          `json:"notes"`
}

// SampleResult reports what one sensor tick did to the pipeline.
type SampleResult struct {
	Accepted     bool          `json:"accepted"`
	Quality      string        `json:"location_quality"`
	State        State         `json:"state"`
	StateChanged bool          `json:"state_changed"`
	Trigger      string        `json:"trigger,omitempty"`
	TripID       string        `json:"trip_id,omitempty"`
	DistanceM    float64       `json:"distance_m"`
	SpeedKmh     float64       `json:"speed_kmh"`
	Movement     MovementState `json:"movement"`
}

// Status is a read-only snapshot of one user's engine.
type Status struct {
	State          State         `json:"state"`
	Trip           *trip.Summary `json:"trip,omitempty"`
	BufferedPoints int           `json:"buffered_points"`
	Movement       MovementState `json:"movement"`
	Activity       ActivityType  `json:"activity"`
	SpeedKmh       float64       `json:"speed_kmh"`
	// Moving fuses the activity label with smoothed speed; clients use it to
	// hint at an imminent transition before the timers fire.
	Moving           bool      `json:"moving"`
	MovingConfidence float64   `json:"moving_confidence"`
	LastSampleAt     time.Time `json:"last_sample_at,omitempty"`
	ConfigVersion    int       `json:"config_version"`
}

// Machine runs trip detection for a single user. All mutation is serialized
// through one mutex, so auto-detection and manual control can race freely:
// a start while active and a stop while idle are both no-ops.
type Machine struct {
	userID string
	store  *Store
	rec    Recorder
	log    *zap.Logger
	now    func() time.Time

	mu     sync.Mutex
	filter SampleFilter
	motion MotionClassifier

	state        State
	current      *trip.Summary
	buffer       []trip.Point
	lastPoint    *trip.Point // distance reference, survives batch flushes
	movingSince  time.Time   // zero while below the auto-start speed gate
	stillSince   time.Time   // zero while above the auto-stop speed gate
	speedWindow  []float64   // m/s, smoothing window
	activity     ActivityType
	activityConf float64
	lastSampleAt time.Time
}

// NewMachine creates an idle machine for one user.
func NewMachine(userID string, store *Store, rec Recorder, log *zap.Logger) *Machine {
	return &Machine{
		userID:   userID,
		store:    store,
		rec:      rec,
		log:      log.With(zap.String("user_id", userID)),
		now:      time.Now,
		state:    StateIdle,
		activity: ActivityUnknown,
	}
}

// SetNow overrides the wall clock, for offline replays of recorded samples.
func (m *Machine) SetNow(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// ProcessInput runs one sensor tick through the full pipeline:
// filter -> classify -> transition -> buffer.
func (m *Machine) ProcessInput(in SensorInput) SampleResult {
	cfg := m.store.Current()

	if in.Accel != nil {
		m.motion.Ingest(*in.Accel, cfg)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if in.ActivityType != "" {
		m.activity = NormalizeActivity(in.ActivityType)
		m.activityConf = 0.5
		if in.ActivityConfidence != nil {
			m.activityConf = *in.ActivityConfidence
		}
	}

	s := in.Position
	res := SampleResult{
		Quality:  LocationQuality(s.AccuracyM),
		State:    m.state,
		Movement: m.motion.Current(cfg),
	}
	if m.current != nil {
		res.TripID = m.current.ID
		res.DistanceM = m.current.DistanceM
	}

	if !m.filter.Accept(s, cfg) {
		return res
	}
	res.Accepted = true
	m.lastSampleAt = s.Timestamp

	speedMps, hasSpeed := s.Speed()
	if hasSpeed {
		speedMps = m.smoothSpeed(speedMps, cfg)
	}
	res.SpeedKmh = speedMps * 3.6

	switch m.state {
	case StateIdle:
		if hasSpeed && m.autoStart(s, speedMps, cfg) {
			res.StateChanged = true
			res.Trigger = "auto"
			// Record the triggering sample as the first route point.
			m.appendPoint(s, cfg)
		}
	case StateActive:
		m.appendPoint(s, cfg)
		if hasSpeed && m.autoStop(s, speedMps, cfg) {
			res.StateChanged = true
			res.Trigger = "auto"
		}
	}

	res.State = m.state
	if m.current != nil {
		res.TripID = m.current.ID
		res.DistanceM = m.current.DistanceM
	}
	return res
}

// StartManual begins a trip on user request, independent of auto-detect
// thresholds. Returns false (no-op) if a trip is already active.
func (m *Machine) StartManual(opts StartOptions) (trip.Summary, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateActive {
		m.log.Warn("manual start ignored, trip already active",
			zap.String("trip_id", m.current.ID))
		return *m.current, false
	}

	at := m.now()
	var origin *PositionSample
	if last, ok := m.filter.Last(); ok {
		origin = &last
	}
	m.startTrip(at, origin, "manual", opts)
	return *m.current, true
}

// Stop ends the active trip on user request. Stopping always exits Active;
// whether the trip is persisted is the validator's decision, delivered via
// the Recorder. Returns false (no-op) when idle.
func (m *Machine) Stop() (trip.Summary, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateActive {
		m.log.Warn("stop ignored, no active trip")
		return trip.Summary{}, false
	}
	return m.stopTrip(m.now(), "manual"), true
}

// Snapshot returns the current engine status.
func (m *Machine) Snapshot() Status {
	cfg := m.store.Current()

	m.mu.Lock()
	defer m.mu.Unlock()

	st := Status{
		State:          m.state,
		BufferedPoints: len(m.buffer),
		Movement:       m.motion.Current(cfg),
		Activity:       m.activity,
		LastSampleAt:   m.lastSampleAt,
		ConfigVersion:  cfg.Version,
	}
	if len(m.speedWindow) > 0 {
		st.SpeedKmh = mean(m.speedWindow) * 3.6
	}
	st.Moving, st.MovingConfidence = FuseMovement(m.activity, m.activityConf, st.SpeedKmh)
	if m.current != nil {
		snapshot := *m.current
		st.Trip = &snapshot
	}
	return st
}

// autoStart fires the Idle->Active transition once the speed threshold has
// been sustained. A single instantaneous sample never starts a trip.
// Caller holds the lock; reports whether the transition fired.
func (m *Machine) autoStart(s PositionSample, speedMps float64, cfg Config) bool {
	if !cfg.AutoDetectEnabled {
		return false
	}
	if speedMps < cfg.AutoStartSpeedMps {
		if !m.movingSince.IsZero() {
			m.log.Debug("speed dropped below start threshold, resetting timer")
			m.movingSince = time.Time{}
		}
		return false
	}

	if m.movingSince.IsZero() {
		m.movingSince = s.Timestamp
		return false
	}
	if s.Timestamp.Sub(m.movingSince) < cfg.AutoStartDuration {
		return false
	}

	m.startTrip(s.Timestamp, &s, "auto", StartOptions{})
	return true
}

// autoStop fires the Active->Idle transition on the combined stillness
// signal: sustained low speed, the distance gate, and either a confident
// not-moving classifier verdict or no accelerometer data at all.
// Caller holds the lock; reports whether the transition fired.
func (m *Machine) autoStop(s PositionSample, speedMps float64, cfg Config) bool {
	if !cfg.AutoDetectEnabled {
		return false
	}
	if speedMps >= cfg.AutoStopSpeedMps {
		if !m.stillSince.IsZero() {
			m.log.Debug("speed back above stop threshold, resetting stop timer")
			m.stillSince = time.Time{}
		}
		return false
	}

	if m.stillSince.IsZero() {
		m.stillSince = s.Timestamp
		return false
	}
	if s.Timestamp.Sub(m.stillSince) < cfg.AutoStopDuration {
		return false
	}

	// Distance gate: never auto-stop a trip that has not covered the minimum
	// distance yet; a pause at a red light has jitter but no route length.
	if m.current.DistanceM < cfg.MinTripDistanceM {
		return false
	}

	// Accelerometer gate. A warm classifier must confidently report
	// not-moving. A window still below the minimum sample count carries no
	// opinion and blocks the stop; only a genuinely absent stream falls
	// through to the speed and distance checks alone.
	if ms := m.motion.CurrentAt(s.Timestamp, cfg); ms.SampleCount > 0 {
		if ms.SampleCount < cfg.MotionMinSamples {
			return false
		}
		if ms.Moving || ms.Confidence < 0.5 {
			return false
		}
	}

	m.stopTrip(s.Timestamp, "auto")
	return true
}

// startTrip allocates the trip and resets all per-trip state.
// Caller holds the lock and has verified state is Idle.
func (m *Machine) startTrip(at time.Time, origin *PositionSample, trigger string, opts StartOptions) {
	summary := &trip.Summary{
		ID:         uuid.NewString(),
		UserID:     m.userID,
		StartedAt:  at,
		Mode:       valueOr(opts.Mode, "unknown"),
		Purpose:    valueOr(opts.Purpose, "unknown"),
		Companions: opts.Companions,
		Notes:      opts.Notes,
		TripNumber: trip.NewTripNumber(at),
		ChainID:    trip.NewChainID(at),
		StartedBy:  trigger,
	}
	if origin != nil {
		// The origin is a coarse region label, never the raw coordinate.
		summary.OriginRegion = trip.RegionLabel(origin.Latitude, origin.Longitude)
	}

	m.state = StateActive
	m.current = summary
	m.buffer = nil
	m.lastPoint = nil
	m.movingSince = time.Time{}
	m.stillSince = time.Time{}

	m.log.Info("trip started",
		zap.String("trip_id", summary.ID),
		zap.String("trigger", trigger),
		zap.String("trip_number", summary.TripNumber))
}

// stopTrip finalizes the active trip: flush remaining points, compute
// duration, run the validator, hand everything to the recorder, go Idle.
// Caller holds the lock and has verified state is Active.
func (m *Machine) stopTrip(at time.Time, trigger string) trip.Summary {
	cfg := m.store.Current()

	ended := at
	m.current.EndedAt = &ended
	if m.lastPoint != nil {
		m.current.DestinationRegion = trip.RegionLabel(m.lastPoint.Latitude, m.lastPoint.Longitude)
	}

	summary := *m.current
	remaining := m.buffer
	duration := ended.Sub(summary.StartedAt)
	meaningful := MeaningfulTrip(cfg, summary.DistanceM, duration)

	m.state = StateIdle
	m.current = nil
	m.buffer = nil
	m.lastPoint = nil
	m.movingSince = time.Time{}
	m.stillSince = time.Time{}
	m.speedWindow = nil
	m.motion.Reset()

	m.log.Info("trip stopped",
		zap.String("trip_id", summary.ID),
		zap.String("trigger", trigger),
		zap.Float64("distance_m", summary.DistanceM),
		zap.Duration("duration", duration),
		zap.Bool("meaningful", meaningful))

	if m.rec != nil {
		m.rec.TripFinished(summary, remaining, meaningful)
	}
	return summary
}

// appendPoint buffers a route point and accumulates route-length distance:
// the sum of consecutive segment lengths, never start-to-current
// displacement. Hands full buffers to the recorder. Caller holds the lock.
func (m *Machine) appendPoint(s PositionSample, cfg Config) {
	p := trip.Point{
		TripID:            m.current.ID,
		UserID:            m.userID,
		Latitude:          s.Latitude,
		Longitude:         s.Longitude,
		Timestamp:         s.Timestamp,
		TimezoneOffsetMin: s.TimezoneOffsetMin,
		Accuracy:          s.AccuracyM,
		Altitude:          s.AltitudeM,
		Speed:             s.SpeedMps,
		Heading:           s.HeadingDeg,
	}

	if m.lastPoint != nil {
		m.current.DistanceM += geo.DistanceM(
			m.lastPoint.Latitude, m.lastPoint.Longitude, p.Latitude, p.Longitude)
	}
	m.lastPoint = &p
	m.buffer = append(m.buffer, p)
	m.current.PointCount++

	if len(m.buffer) >= cfg.SampleBatchSize && m.rec != nil {
		batch := m.buffer
		m.buffer = nil
		m.rec.RecordBatch(*m.current, batch)
	}
}

// smoothSpeed keeps a short moving average over reported speeds to dampen
// single-fix spikes. Caller holds the lock.
func (m *Machine) smoothSpeed(speedMps float64, cfg Config) float64 {
	m.speedWindow = append(m.speedWindow, speedMps)
	if size := cfg.SpeedSmoothingWindow; size > 0 && len(m.speedWindow) > size {
		m.speedWindow = m.speedWindow[len(m.speedWindow)-size:]
	}
	return mean(m.speedWindow)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
