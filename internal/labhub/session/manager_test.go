package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cvelabhub/labhub/internal/labhub/clientstate"
)

type fakeProvisioner struct {
	mu          sync.Mutex
	provisioned int
	tornDown    []string
	failNext    bool
}

func (f *fakeProvisioner) Provision(ctx context.Context, userID, cveID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		f.failNext = false
		return "", errors.New("no capacity")
	}
	f.provisioned++
	return "vm-" + cveID, nil
}

func (f *fakeProvisioner) Teardown(ctx context.Context, instanceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tornDown = append(f.tornDown, instanceID)
	return nil
}

func (f *fakeProvisioner) teardowns() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.tornDown...)
}

// testClock is a manually advanced time source.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testParams() Params {
	return Params{
		InitialTTL:      60 * time.Minute,
		ExtendIncrement: 30 * time.Minute,
		MaxLifetime:     120 * time.Minute,
	}
}

func newTestManager(t *testing.T, clock *testClock) (*Manager, *fakeProvisioner, clientstate.Store) {
	t.Helper()
	prov := &fakeProvisioner{}
	state := clientstate.NewMemoryStore()
	m := NewManager(testParams(), NewMemoryStore(), prov, state,
		WithClock(clock.Now),
		WithTickInterval(time.Millisecond),
	)
	t.Cleanup(m.Close)
	return m, prov, state
}

func TestStartGrantsInitialTTL(t *testing.T) {
	clock := newTestClock()
	m, prov, state := newTestManager(t, clock)

	s, err := m.Start(context.Background(), "user-1", "CVE-2021-44228")
	require.Nil(t, err)
	assert.Equal(t, StatusReady, s.Status)
	assert.Equal(t, clock.Now().Add(60*time.Minute), s.ExpiresAt)
	assert.Equal(t, 1, prov.provisioned)

	marker, serr := clientstate.GetActiveSession(state)
	require.Nil(t, serr)
	assert.Equal(t, s.ID.String(), marker.UUID)
	assert.Equal(t, "CVE-2021-44228", marker.CVEID)
}

func TestStartProvisionFailure(t *testing.T) {
	clock := newTestClock()
	m, prov, _ := newTestManager(t, clock)
	prov.failNext = true

	_, err := m.Start(context.Background(), "user-1", "CVE-2021-44228")
	require.NotNil(t, err)
	assert.True(t, errors.Is(err, ErrProvisioning))
	assert.Equal(t, 0, prov.provisioned)
}

func TestExtendIsMonotonicAndCapped(t *testing.T) {
	clock := newTestClock()
	m, _, _ := newTestManager(t, clock)

	s, err := m.Start(context.Background(), "user-1", "CVE-2023-4911")
	require.Nil(t, err)

	// 60m granted; first extend adds the full 30m increment.
	rsp, err := m.Extend(context.Background(), s.ID)
	require.Nil(t, err)
	assert.Equal(t, 30, rsp.ExtendedMinutes)
	assert.Equal(t, s.ExpiresAt.Add(30*time.Minute), rsp.NewExpiry)

	// 90m granted of a 120m cap; the next extend clamps to the ceiling.
	rsp, err = m.Extend(context.Background(), s.ID)
	require.Nil(t, err)
	assert.Equal(t, 30, rsp.ExtendedMinutes)
	assert.Equal(t, s.CreatedAt.Add(120*time.Minute), rsp.NewExpiry)

	// At the cap, further extends are refused.
	_, err = m.Extend(context.Background(), s.ID)
	require.NotNil(t, err)
	assert.True(t, errors.Is(err, ErrLimitExceeded))
}

func TestExtendNearCapGrantsPartialIncrement(t *testing.T) {
	clock := newTestClock()
	prov := &fakeProvisioner{}
	m := NewManager(Params{
		InitialTTL:      100 * time.Minute,
		ExtendIncrement: 30 * time.Minute,
		MaxLifetime:     120 * time.Minute,
	}, NewMemoryStore(), prov, nil,
		WithClock(clock.Now),
		WithTickInterval(time.Millisecond),
	)
	defer m.Close()

	s, err := m.Start(context.Background(), "user-1", "CVE-2024-3094")
	require.Nil(t, err)

	rsp, err := m.Extend(context.Background(), s.ID)
	require.Nil(t, err)
	assert.Equal(t, 20, rsp.ExtendedMinutes)
	assert.Equal(t, s.CreatedAt.Add(120*time.Minute), rsp.NewExpiry)
}

func TestCheckExtendableEligibility(t *testing.T) {
	clock := newTestClock()
	m, _, _ := newTestManager(t, clock)

	s, err := m.Start(context.Background(), "user-1", "CVE-2022-22965")
	require.Nil(t, err)

	e, err := m.CheckExtendable(context.Background(), s.ID)
	require.Nil(t, err)
	assert.True(t, e.Extendable)
	assert.Equal(t, 60, e.RemainingMinutes)
	assert.Equal(t, 120, e.MaxTotalMinutes)
	assert.Equal(t, 30, e.IncrementMinutes)

	// Extend to the lifetime cap: eligibility flips off, nothing else changes.
	_, err = m.Extend(context.Background(), s.ID)
	require.Nil(t, err)
	_, err = m.Extend(context.Background(), s.ID)
	require.Nil(t, err)

	e, err = m.CheckExtendable(context.Background(), s.ID)
	require.Nil(t, err)
	assert.False(t, e.Extendable)
	assert.Equal(t, 120, e.RemainingMinutes)
}

func TestTerminateReleasesInstanceAndMarker(t *testing.T) {
	clock := newTestClock()
	m, prov, state := newTestManager(t, clock)

	s, err := m.Start(context.Background(), "user-1", "CVE-2021-44228")
	require.Nil(t, err)

	rsp, err := m.Terminate(context.Background(), s.ID)
	require.Nil(t, err)
	assert.True(t, rsp.Terminated)
	assert.Equal(t, []string{"vm-CVE-2021-44228"}, prov.teardowns())

	_, serr := clientstate.GetActiveSession(state)
	assert.True(t, errors.Is(serr, clientstate.ErrKeyNotFound))
}

func TestTerminatedSessionReportsNotFound(t *testing.T) {
	clock := newTestClock()
	m, _, _ := newTestManager(t, clock)

	s, err := m.Start(context.Background(), "user-1", "CVE-2021-44228")
	require.Nil(t, err)
	_, err = m.Terminate(context.Background(), s.ID)
	require.Nil(t, err)

	_, err = m.Terminate(context.Background(), s.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = m.Extend(context.Background(), s.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = m.CheckExtendable(context.Background(), s.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = m.Get(context.Background(), s.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestExpiryTerminatesSession(t *testing.T) {
	clock := newTestClock()
	m, prov, _ := newTestManager(t, clock)

	s, err := m.Start(context.Background(), "user-1", "CVE-2023-4911")
	require.Nil(t, err)

	clock.Advance(61 * time.Minute)

	require.Eventually(t, func() bool {
		return len(prov.teardowns()) == 1
	}, time.Second, time.Millisecond, "expiry countdown should tear down the lab")

	_, gerr := m.Get(context.Background(), s.ID)
	assert.True(t, errors.Is(gerr, ErrNotFound))
}

func TestExtendPushesExpiryCountdownForward(t *testing.T) {
	clock := newTestClock()
	m, prov, _ := newTestManager(t, clock)

	s, err := m.Start(context.Background(), "user-1", "CVE-2024-3094")
	require.Nil(t, err)

	clock.Advance(50 * time.Minute)
	_, err = m.Extend(context.Background(), s.ID)
	require.Nil(t, err)

	// Past the original expiry but within the extended one.
	clock.Advance(15 * time.Minute)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, prov.teardowns())

	got, gerr := m.Get(context.Background(), s.ID)
	require.Nil(t, gerr)
	assert.Equal(t, StatusReady, got.Status)
}

func TestUnknownSessionReportsNotFound(t *testing.T) {
	clock := newTestClock()
	m, _, _ := newTestManager(t, clock)

	_, err := m.Get(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, ErrNotFound))
}
