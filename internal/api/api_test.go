package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/powerhintd/internal/errors"
	"codeberg.org/mutker/powerhintd/internal/logger"
	"codeberg.org/mutker/powerhintd/internal/power"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	mu       sync.Mutex
	modes    map[power.Mode]bool
	boosts   map[power.Boost]int32
	sessions map[string]power.SessionConfig
	rateErr  error
}

func newFakeService() *fakeService {
	return &fakeService{
		modes:    map[power.Mode]bool{},
		boosts:   map[power.Boost]int32{},
		sessions: map[string]power.SessionConfig{},
	}
}

func (f *fakeService) SetMode(mode power.Mode, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.modes[mode] = enabled
	return nil
}

func (f *fakeService) SetBoost(boost power.Boost, durationMs int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.boosts[boost] = durationMs
	return nil
}

func (f *fakeService) IsModeSupported(mode power.Mode) bool { return mode == power.ModeLowPower }

func (f *fakeService) IsBoostSupported(boost power.Boost) bool {
	return boost == power.BoostInteraction
}

func (f *fakeService) HintSessionPreferredRate() (int64, error) {
	if f.rateErr != nil {
		return 0, f.rateErr
	}
	return 16666666, nil
}

func (f *fakeService) CreateHintSession(cfg power.SessionConfig) (power.SessionInfo, error) {
	if len(cfg.ThreadIDs) == 0 {
		return power.SessionInfo{}, errors.New().WithData(errors.ErrIllegalArgument, "thread ids must not be empty")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	handle := fmt.Sprintf("h-%d", len(f.sessions)+1)
	f.sessions[handle] = cfg
	return power.SessionInfo{ID: int64(len(f.sessions)), Handle: handle}, nil
}

func (f *fakeService) CloseHintSession(handle string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[handle]; !ok {
		return errors.New().WithData(errors.ErrNotFound, "session "+handle)
	}
	delete(f.sessions, handle)
	return nil
}

func (f *fakeService) Dump(w io.Writer) error {
	_, err := io.WriteString(w, "HintManager Running: true\n")
	return err
}

func newTestClient(t *testing.T) (*Client, *fakeService) {
	t.Helper()
	svc := newFakeService()
	srv := httptest.NewServer(NewServer(svc, logger.Nop()).Handler())
	t.Cleanup(srv.Close)

	return NewClient(srv.URL), svc
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(NewServer(newFakeService(), logger.Nop()).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestSetModeAndBoost(t *testing.T) {
	c, svc := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.SetMode(ctx, "launch", true))
	require.NoError(t, c.SetBoost(ctx, "INTERACTION", 250))

	svc.mu.Lock()
	defer svc.mu.Unlock()
	assert.True(t, svc.modes[power.ModeLaunch])
	assert.Equal(t, int32(250), svc.boosts[power.BoostInteraction])
}

func TestSupported(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	ok, err := c.IsModeSupported(ctx, "LOW_POWER")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.IsBoostSupported(ctx, "CAMERA_SHOT")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnknownNameSuggests(t *testing.T) {
	c, _ := newTestClient(t)

	err := c.SetMode(context.Background(), "LAUNCHH", true)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrIllegalArgument))
	assert.Contains(t, err.Error(), `did you mean "LAUNCH"?`)

	_, err = c.IsBoostSupported(context.Background(), "INTERACTON")
	assert.Contains(t, err.Error(), `did you mean "INTERACTION"?`)
}

func TestBadBody(t *testing.T) {
	srv := httptest.NewServer(NewServer(newFakeService(), logger.Nop()).Handler())
	defer srv.Close()

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/v1/modes/LAUNCH", strings.NewReader(`{}`))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSessions(t *testing.T) {
	c, svc := newTestClient(t)
	ctx := context.Background()

	rate, err := c.PreferredRate(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(16666666), rate)

	info, err := c.CreateSession(ctx, power.SessionConfig{
		TGID: 1, ThreadIDs: []int32{2, 3}, TargetDuration: 16 * time.Millisecond, Tag: power.SessionTagGame,
	})
	require.NoError(t, err)
	assert.Equal(t, "h-1", info.Handle)
	svc.mu.Lock()
	cfg := svc.sessions["h-1"]
	svc.mu.Unlock()
	assert.Equal(t, power.SessionTagGame, cfg.Tag)
	assert.Equal(t, 16*time.Millisecond, cfg.TargetDuration)

	_, err = c.CreateSession(ctx, power.SessionConfig{TGID: 1})
	assert.True(t, errors.HasCode(err, errors.ErrIllegalArgument))

	require.NoError(t, c.CloseSession(ctx, info.Handle))
	err = c.CloseSession(ctx, info.Handle)
	assert.True(t, errors.HasCode(err, errors.ErrNotFound))
}

func TestStatusMapping(t *testing.T) {
	svc := newFakeService()
	svc.rateErr = errors.New().WithData(errors.ErrUnsupportedOperation, "hint sessions")
	srv := httptest.NewServer(NewServer(svc, logger.Nop()).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/sessions/preferred-rate")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)

	assert.Equal(t, http.StatusBadRequest, statusFor(errors.ErrIllegalArgument))
	assert.Equal(t, http.StatusNotFound, statusFor(errors.ErrNotFound))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.ErrInternal))
}

func TestDump(t *testing.T) {
	c, _ := newTestClient(t)

	out, err := c.Dump(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "HintManager Running: true\n", out)
}

func TestServeUnixSocket(t *testing.T) {
	addr := unixScheme + filepath.Join(t.TempDir(), "p.sock")
	s := NewServer(newFakeService(), logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, addr) }()

	c := NewClient(addr)
	assert.Eventually(t, func() bool {
		return c.SetMode(context.Background(), "GAME", true) == nil
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
