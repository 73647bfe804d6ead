package detect

import (
	"sync"

	"go.uber.org/zap"

	"github.com/MmohithSai/TripSync-Supabase-sub000/internal/trip"
)

// Manager owns one Machine per user, created lazily on first contact.
type Manager struct {
	store *Store
	rec   Recorder
	log   *zap.Logger

	mu       sync.Mutex
	machines map[string]*Machine
}

// NewManager wires a manager with its collaborators. The config store, the
// recorder and the logger are shared by all per-user machines.
func NewManager(store *Store, rec Recorder, log *zap.Logger) *Manager {
	return &Manager{
		store:    store,
		rec:      rec,
		log:      log,
		machines: make(map[string]*Machine),
	}
}

// Machine returns the user's engine, creating it on first use.
func (m *Manager) Machine(userID string) *Machine {
	m.mu.Lock()
	defer m.mu.Unlock()

	machine, ok := m.machines[userID]
	if !ok {
		machine = NewMachine(userID, m.store, m.rec, m.log)
		m.machines[userID] = machine
		m.log.Info("created trip detection machine", zap.String("user_id", userID))
	}
	return machine
}

// Process runs one sensor tick for a user.
func (m *Manager) Process(userID string, in SensorInput) SampleResult {
	return m.Machine(userID).ProcessInput(in)
}

// ManualStart begins a trip for a user; no-op if one is already active.
func (m *Manager) ManualStart(userID string, opts StartOptions) (trip.Summary, bool) {
	return m.Machine(userID).StartManual(opts)
}

// ManualStop ends a user's active trip; no-op when idle.
func (m *Manager) ManualStop(userID string) (trip.Summary, bool) {
	return m.Machine(userID).Stop()
}

// Status returns the user's engine snapshot.
func (m *Manager) Status(userID string) Status {
	return m.Machine(userID).Snapshot()
}

// ActiveTrips returns status snapshots for every user with an active trip.
func (m *Manager) ActiveTrips() map[string]Status {
	m.mu.Lock()
	machines := make(map[string]*Machine, len(m.machines))
	for id, machine := range m.machines {
		machines[id] = machine
	}
	m.mu.Unlock()

	active := make(map[string]Status)
	for id, machine := range machines {
		if st := machine.Snapshot(); st.State == StateActive {
			active[id] = st
		}
	}
	return active
}

// Remove drops a user's machine. An active trip is stopped first so buffered
// points are not lost.
func (m *Manager) Remove(userID string) {
	m.mu.Lock()
	machine, ok := m.machines[userID]
	delete(m.machines, userID)
	m.mu.Unlock()

	if ok {
		if _, stopped := machine.Stop(); stopped {
			m.log.Info("stopped active trip while removing user", zap.String("user_id", userID))
		}
	}
}
