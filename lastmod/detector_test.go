package lastmod

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guildrec/go-vodutils/transfer/gateway"
)

type fakeRemoteClock struct {
	mu       sync.Mutex
	value    string
	getErr   error
	setErr   error
	setCalls []string
}

func (c *fakeRemoteClock) LastModified() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return "", c.getErr
	}
	return c.value, nil
}

func (c *fakeRemoteClock) SetLastModified(value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setCalls = append(c.setCalls, value)
	if c.setErr != nil {
		return c.setErr
	}
	c.value = value
	return nil
}

func newTestDetector(clock RemoteClock, millis int64) *Detector {
	d := New(clock, log.NewLogger())
	d.nowMillis = func() int64 { return millis }
	return d
}

func TestInitAdoptsRemoteValue(t *testing.T) {
	clock := &fakeRemoteClock{value: "1724754000000"}
	detector := newTestDetector(clock, 99)

	require.NoError(t, detector.Init())

	assert.Equal(t, "1724754000000", detector.Cached())
	assert.Empty(t, clock.setCalls)
}

func TestInitCreatesMissingClock(t *testing.T) {
	clock := &fakeRemoteClock{getErr: gateway.ErrClockNotSet}
	detector := newTestDetector(clock, 1724754000123)

	require.NoError(t, detector.Init())

	assert.Equal(t, "1724754000123", detector.Cached())
	assert.Equal(t, []string{"1724754000123"}, clock.setCalls)
}

func TestInitFailure(t *testing.T) {
	clock := &fakeRemoteClock{getErr: &gateway.AuthorizationError{StatusCode: 401}}
	detector := newTestDetector(clock, 99)

	err := detector.Init()

	var initErr *InitializationError
	require.ErrorAs(t, err, &initErr)
	var authErr *gateway.AuthorizationError
	assert.ErrorAs(t, err, &authErr)
}

func TestAdvanceIsStrictlyIncreasing(t *testing.T) {
	clock := &fakeRemoteClock{}
	detector := newTestDetector(clock, 1000)

	require.NoError(t, detector.Advance())
	require.NoError(t, detector.Advance())
	require.NoError(t, detector.Advance())

	// The stubbed wall clock never moves, so repeated advances must bump past
	// the cached value instead of reissuing it.
	assert.Equal(t, []string{"1000", "1001", "1002"}, clock.setCalls)
	assert.Equal(t, "1002", detector.Cached())
}

func TestAdvanceKeepsLocalValueOnPushFailure(t *testing.T) {
	pushErr := errors.New("gateway unreachable")
	clock := &fakeRemoteClock{setErr: pushErr}
	detector := newTestDetector(clock, 2000)

	err := detector.Advance()

	require.ErrorIs(t, err, pushErr)
	assert.Equal(t, "2000", detector.Cached())
}

func TestTickNotifiesOncePerChange(t *testing.T) {
	clock := &fakeRemoteClock{value: "100"}
	detector := newTestDetector(clock, 99)
	require.NoError(t, detector.Init())

	var notified int
	detector.Subscribe(func() { notified++ })

	detector.tick()
	assert.Equal(t, 0, notified)

	clock.SetLastModified("200")
	detector.tick()
	detector.tick()

	assert.Equal(t, 1, notified)
	assert.Equal(t, "200", detector.Cached())
}

func TestTickSwallowsFetchFailure(t *testing.T) {
	clock := &fakeRemoteClock{value: "100"}
	detector := newTestDetector(clock, 99)
	require.NoError(t, detector.Init())

	var notified int
	detector.Subscribe(func() { notified++ })

	clock.mu.Lock()
	clock.getErr = errors.New("gateway unreachable")
	clock.mu.Unlock()
	detector.tick()

	assert.Equal(t, 0, notified)
	assert.Equal(t, "100", detector.Cached())

	clock.mu.Lock()
	clock.getErr = nil
	clock.value = "300"
	clock.mu.Unlock()
	detector.tick()

	assert.Equal(t, 1, notified)
	assert.Equal(t, "300", detector.Cached())
}

func TestPolling(t *testing.T) {
	clock := &fakeRemoteClock{value: "100"}
	detector := newTestDetector(clock, 99)
	require.NoError(t, detector.Init())

	changed := make(chan struct{}, 1)
	detector.Subscribe(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	detector.StartPolling(5 * time.Millisecond)
	defer detector.StopPolling()

	clock.SetLastModified("200")

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("no change notification before timeout")
	}
	assert.Equal(t, "200", detector.Cached())
}

func TestStopPollingIsIdempotent(t *testing.T) {
	clock := &fakeRemoteClock{value: "100"}
	detector := newTestDetector(clock, 99)

	detector.StopPolling()
	detector.StartPolling(time.Minute)
	detector.StopPolling()
	detector.StopPolling()
}
