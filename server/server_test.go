package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rp8000/midi"
	"rp8000/midi/fake"
	"rp8000/turntable"
)

func newTestServer(t *testing.T, names ...string) (*Server, *fake.Ports) {
	t.Helper()
	ports := fake.NewPorts(names...)
	session, err := turntable.New("RP8000mk2", ports, turntable.WithoutInit())
	require.NoError(t, err)
	return New(session, ports, 2, nil), ports
}

func do(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w, out
}

func TestSetTempo(t *testing.T) {
	s, ports := newTestServer(t, "Foo", "RP8000mk2 Port A")

	w, body := do(t, s, http.MethodPost, "/api/tempo", `{"bpm": 120}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2.0, body["channel"])

	sent := ports.List[1].Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "F0 00 20 7F 12 00 00 02 0E 0E 00 F7", midi.Hex(sent[0]))

	w, body = do(t, s, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{
		"model":   "RP8000mk2",
		"port":    "RP8000mk2 Port A",
		"bpm":     120.0,
		"channel": 2.0,
	}, body)
}

func TestSetTempoZeroAndExplicitChannel(t *testing.T) {
	s, ports := newTestServer(t, "RP8000mk2 Port A")

	w, _ := do(t, s, http.MethodPost, "/api/tempo", `{"bpm": 0, "channel": 1}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "F0 00 20 7F 11 00 00 00 00 00 00 F7", midi.Hex(ports.List[0].Sent()[0]))
}

func TestSetTempoBadRequests(t *testing.T) {
	s, ports := newTestServer(t, "RP8000mk2 Port A")

	for _, body := range []string{``, `{}`, `{"bpm": "fast"}`, `{"bpm": -3}`, `{"bpm": 120, "channel": 20}`} {
		w, out := do(t, s, http.MethodPost, "/api/tempo", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.NotEmpty(t, out["error"], body)
	}
	assert.Empty(t, ports.List[0].Sent())
}

func TestPortNotFoundIsUnavailable(t *testing.T) {
	s, _ := newTestServer(t, "Foo")

	w, out := do(t, s, http.MethodPost, "/api/shutdown", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, out["error"], "RP8000mk2")

	w, _ = do(t, s, http.MethodGet, "/api/status", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCommands(t *testing.T) {
	tests := []struct {
		path string
		want int
	}{
		{"/api/startup", 4},
		{"/api/mode/tempo", 5},
		{"/api/mode/time", 4},
		{"/api/shutdown", 1},
		{"/api/channels/3", 2},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			s, ports := newTestServer(t, "RP8000mk2 Port A")
			w, _ := do(t, s, http.MethodPost, tt.path, "")
			require.Equal(t, http.StatusOK, w.Code)
			assert.Len(t, ports.List[0].Sent(), tt.want)
		})
	}
}

func TestEnableChannelRejects(t *testing.T) {
	s, _ := newTestServer(t, "RP8000mk2 Port A")

	w, _ := do(t, s, http.MethodPost, "/api/channels/x", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = do(t, s, http.MethodPost, "/api/channels/5", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPorts(t *testing.T) {
	s, ports := newTestServer(t, "Foo", "RP8000mk2 Port A")

	w, out := do(t, s, http.MethodGet, "/api/ports", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"Foo", "RP8000mk2 Port A"}, out["ports"])
	assert.Equal(t, 1.0, out["match"])

	ports.List = ports.List[:1]
	_, out = do(t, s, http.MethodGet, "/api/ports", "")
	assert.Equal(t, -1.0, out["match"])

	ports.Err = errors.New("driver gone")
	w, _ = do(t, s, http.MethodGet, "/api/ports", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestOptionsPreflight(t *testing.T) {
	s, _ := newTestServer(t, "RP8000mk2 Port A")

	w, _ := do(t, s, http.MethodOptions, "/api/tempo", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRunStopsWithContext(t *testing.T) {
	s, _ := newTestServer(t, "RP8000mk2 Port A")

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, addr) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/api/ports")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
