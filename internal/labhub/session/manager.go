package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/cvelabhub/labhub/internal/common/apperrors"
	"github.com/cvelabhub/labhub/internal/labhub/clientstate"
	"github.com/cvelabhub/labhub/internal/labhub/countdown"
)

// Provisioner abstracts the upstream VM backend. The gateway asks it to
// boot and tear down lab instances but never inspects them.
type Provisioner interface {
	Provision(ctx context.Context, userID, cveID string) (instanceID string, err error)
	Teardown(ctx context.Context, instanceID string) error
}

// Recorder receives session lifecycle events for instrumentation. All
// methods must be non-blocking.
type Recorder interface {
	SessionStarted()
	SessionExtended()
	SessionEnded(expired bool)
}

// nopRecorder is used when no recorder is configured.
type nopRecorder struct{}

func (nopRecorder) SessionStarted()   {}
func (nopRecorder) SessionExtended()  {}
func (nopRecorder) SessionEnded(bool) {}

// Params holds the lifecycle limits the manager enforces.
type Params struct {
	InitialTTL      time.Duration // lifetime granted at start
	ExtendIncrement time.Duration // fixed increment per extend
	MaxLifetime     time.Duration // ceiling on expiry - createdAt
}

// Manager enforces the lab session state machine and TTL cap. Each ready
// session carries a countdown seeded from its authoritative expiry; when
// the countdown completes the session is terminated in place.
type Manager struct {
	store    Store
	prov     Provisioner
	state    clientstate.Store
	params   Params
	recorder Recorder

	now          func() time.Time
	tickInterval time.Duration

	// mu serializes lifecycle mutations. The HTTP layer disables controls
	// while a call is in flight, but the expiry countdowns fire from their
	// own goroutines and must not race handler-driven transitions.
	mu         sync.Mutex
	instances  map[uuid.UUID]string
	countdowns map[uuid.UUID]*countdown.Countdown
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithTickInterval overrides the expiry countdown tick period for tests.
func WithTickInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.tickInterval = d
		}
	}
}

// WithRecorder attaches a lifecycle event recorder.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) {
		if r != nil {
			m.recorder = r
		}
	}
}

// NewManager creates a session manager. The client-state store may be nil
// when no active-session marker is maintained (e.g. admin-only deployments).
func NewManager(params Params, store Store, prov Provisioner, state clientstate.Store, opts ...Option) *Manager {
	m := &Manager{
		store:        store,
		prov:         prov,
		state:        state,
		params:       params,
		recorder:     nopRecorder{},
		now:          time.Now,
		tickInterval: countdown.DefaultTickInterval,
		instances:    make(map[uuid.UUID]string),
		countdowns:   make(map[uuid.UUID]*countdown.Countdown),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start provisions a lab for the given user and CVE and registers the
// session. The session is created in creating, then moved to ready with its
// initial TTL once the provisioner acknowledges.
func (m *Manager) Start(ctx context.Context, userID, cveID string) (*Session, apperrors.Error) {
	if cveID == "" {
		return nil, ErrInvalidRequest.Msg("cveId is required")
	}

	now := m.now()
	s := &Session{
		ID:        uuid.New(),
		UserID:    userID,
		CVEID:     cveID,
		Status:    StatusCreating,
		CreatedAt: now,
	}
	if err := m.store.Put(s); err != nil {
		return nil, err
	}

	instanceID, perr := m.prov.Provision(ctx, userID, cveID)
	if perr != nil {
		m.store.Delete(s.ID)
		return nil, ErrProvisioning.Err(perr)
	}

	m.mu.Lock()
	m.instances[s.ID] = instanceID
	s.Status = StatusReady
	s.ExpiresAt = now.Add(m.params.InitialTTL)
	if err := m.store.Put(s); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	m.watchExpiry(s.ID, s.ExpiresAt)
	m.mu.Unlock()
	m.recorder.SessionStarted()

	if m.state != nil {
		if err := clientstate.SetActiveSession(m.state, clientstate.ActiveSession{
			UUID:   s.ID.String(),
			CVEID:  s.CVEID,
			Status: string(s.Status),
		}); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("unable to record active session marker")
		}
	}

	return s, nil
}

// CheckExtendable returns the extend eligibility view for a session. It has
// no side effects. Unknown and terminated sessions report NotFound.
func (m *Manager) CheckExtendable(ctx context.Context, id uuid.UUID) (*Eligibility, apperrors.Error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.getLive(id)
	if err != nil {
		return nil, err
	}

	e := &Eligibility{
		MaxTotalMinutes:  int(m.params.MaxLifetime / time.Minute),
		IncrementMinutes: int(m.params.ExtendIncrement / time.Minute),
	}
	if s.Status != StatusReady {
		return e, nil
	}

	remaining := s.ExpiresAt.Sub(m.now())
	if remaining < 0 {
		remaining = 0
	}
	e.RemainingMinutes = int(remaining / time.Minute)
	e.Extendable = s.ExpiresAt.Sub(s.CreatedAt) < m.params.MaxLifetime
	return e, nil
}

// Extend pushes the session expiry forward by the configured increment,
// capped at the maximum total lifetime. Only ready sessions can extend.
// The returned expiry is always strictly later than the previous one.
func (m *Manager) Extend(ctx context.Context, id uuid.UUID) (*ExtendRsp, apperrors.Error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.getLive(id)
	if err != nil {
		return nil, err
	}
	if s.Status != StatusReady {
		return nil, ErrNotReady.Msg("session is still provisioning")
	}

	granted := s.ExpiresAt.Sub(s.CreatedAt)
	if granted >= m.params.MaxLifetime {
		return nil, ErrLimitExceeded
	}

	newExpiry := s.ExpiresAt.Add(m.params.ExtendIncrement)
	if ceiling := s.CreatedAt.Add(m.params.MaxLifetime); newExpiry.After(ceiling) {
		newExpiry = ceiling
	}
	extended := int(newExpiry.Sub(s.ExpiresAt) / time.Minute)

	s.ExpiresAt = newExpiry
	if err := m.store.Put(s); err != nil {
		return nil, err
	}
	m.watchExpiry(s.ID, newExpiry)
	m.recorder.SessionExtended()

	log.Ctx(ctx).Info().
		Str("session_id", id.String()).
		Time("new_expiry", newExpiry).
		Int("extended_minutes", extended).
		Msg("session extended")

	return &ExtendRsp{NewExpiry: newExpiry, ExtendedMinutes: extended}, nil
}

// Terminate tears down the lab and moves the session to its terminal state.
// Legal from creating and ready; a second terminate reports NotFound, same
// as any other operation on a terminated session.
func (m *Manager) Terminate(ctx context.Context, id uuid.UUID) (*TerminateRsp, apperrors.Error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.getLive(id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(s.Status, StatusTerminated) {
		return nil, ErrInvalidTransition
	}
	return m.terminate(ctx, s, false)
}

// terminate performs the transition. Caller holds mu.
func (m *Manager) terminate(ctx context.Context, s *Session, expired bool) (*TerminateRsp, apperrors.Error) {
	wasReady := s.Status == StatusReady
	s.Status = StatusTerminated
	s.TerminatedAt = m.now()
	if err := m.store.Put(s); err != nil {
		return nil, err
	}

	if cd, ok := m.countdowns[s.ID]; ok {
		cd.Stop()
		delete(m.countdowns, s.ID)
	}

	if instanceID, ok := m.instances[s.ID]; ok {
		delete(m.instances, s.ID)
		if terr := m.prov.Teardown(ctx, instanceID); terr != nil {
			log.Ctx(ctx).Error().Err(terr).
				Str("session_id", s.ID.String()).
				Msg("upstream teardown failed")
		}
	}

	if m.state != nil {
		if serr := clientstate.ClearActiveSessionIf(m.state, s.ID.String()); serr != nil {
			log.Ctx(ctx).Warn().Err(serr).Msg("unable to clear active session marker")
		}
	}

	if wasReady {
		m.recorder.SessionEnded(expired)
	}

	return &TerminateRsp{Terminated: true, TerminatedAt: s.TerminatedAt}, nil
}

// Get returns the session if it is still live. Terminated sessions are
// reported as NotFound, matching the lifecycle contract.
func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*Session, apperrors.Error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLive(id)
}

// getLive fetches a session, treating terminated ones as gone. An expired
// but not-yet-swept ready session is terminated on the spot so callers
// never observe a session past its expiry. Caller holds mu.
func (m *Manager) getLive(id uuid.UUID) (*Session, apperrors.Error) {
	s, err := m.store.Get(id)
	if err != nil {
		return nil, err
	}
	if s.Status == StatusTerminated {
		return nil, ErrNotFound
	}
	if s.Status == StatusReady && !s.ExpiresAt.After(m.now()) {
		m.terminate(context.Background(), s, true)
		return nil, ErrNotFound
	}
	return s, nil
}

// watchExpiry reseeds the session's expiry countdown from the
// authoritative expiry timestamp.
func (m *Manager) watchExpiry(id uuid.UUID, expiry time.Time) {
	if cd, ok := m.countdowns[id]; ok {
		cd.Reset(expiry)
		return
	}
	cd := countdown.New(expiry, func() { m.expire(id) },
		countdown.WithClock(m.now),
		countdown.WithTickInterval(m.tickInterval),
	)
	m.countdowns[id] = cd
	cd.Start()
}

// expire handles the timer-driven ready -> terminated transition.
func (m *Manager) expire(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.store.Get(id)
	if err != nil || s.Status != StatusReady {
		return
	}
	if s.ExpiresAt.After(m.now()) {
		// expiry was pushed forward after this countdown fired
		return
	}
	ctx := context.Background()
	log.Info().Str("session_id", id.String()).Msg("session expired")
	m.terminate(ctx, s, true)
}

// Close stops all expiry countdowns. Sessions are left as-is; the backend
// remains the authority over the underlying VMs.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, cd := range m.countdowns {
		cd.Stop()
		delete(m.countdowns, id)
	}
}
