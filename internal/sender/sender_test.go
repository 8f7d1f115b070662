package sender

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/marcus/tracer/internal/event"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAdd_FlushesAtMaxBatchSize(t *testing.T) {
	var received atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ingestRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		received.Add(int32(len(req.Events)))
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"processed": len(req.Events)}})
	}))
	defer srv.Close()

	sentCh := make(chan int, 1)
	s := New(Params{BatchInterval: time.Hour, MaxBatchSize: 2}, func(team string, processed []event.Event) {
		sentCh <- len(processed)
	}, nil, discardLogger())

	s.Add("teamA", srv.URL, "tok", event.Event{Type: event.TypePrompt})
	s.Add("teamA", srv.URL, "tok", event.Event{Type: event.TypePrompt})

	select {
	case n := <-sentCh:
		require.Equal(t, 2, n)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for flush")
	}
	require.EqualValues(t, 2, received.Load())
}

func TestAdd_DropsWhenQueueFull(t *testing.T) {
	s := New(Params{BatchInterval: time.Hour, MaxBatchSize: 1000}, nil, nil, discardLogger())
	for i := 0; i < maxQueueSize+10; i++ {
		s.Add("teamA", "http://example.invalid", "tok", event.Event{Type: event.TypePrompt})
	}
	require.Equal(t, maxQueueSize, s.Pending("teamA"))
}

func TestFlush_AuthFailureSuspendsTeam(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	authFailed := make(chan string, 1)
	s := New(Params{BatchInterval: time.Hour, MaxBatchSize: 1}, nil, func(team string) {
		authFailed <- team
	}, discardLogger())

	s.Add("teamA", srv.URL, "bad-token", event.Event{Type: event.TypePrompt})

	select {
	case team := <-authFailed:
		require.Equal(t, "teamA", team)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for auth failure callback")
	}
	require.True(t, s.IsSuspended("teamA"))

	s.Add("teamA", srv.URL, "bad-token", event.Event{Type: event.TypePrompt})
	require.Equal(t, 0, s.Pending("teamA"), "add on a suspended team must be a no-op")
}

func TestFlush_RetriesOnServerError(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Add(1)
		if n <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"processed": 1}})
	}))
	defer srv.Close()

	sentCh := make(chan int, 1)
	s := New(Params{BatchInterval: 10 * time.Millisecond, MaxBatchSize: 1}, func(team string, processed []event.Event) {
		sentCh <- len(processed)
	}, nil, discardLogger())

	s.Add("teamA", srv.URL, "tok", event.Event{Type: event.TypePrompt})

	select {
	case n := <-sentCh:
		require.Equal(t, 1, n)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for eventual success after retries")
	}
	require.GreaterOrEqual(t, attempts.Load(), int32(3))
}

func TestSuspendUnsuspend(t *testing.T) {
	s := New(Params{BatchInterval: time.Hour, MaxBatchSize: 10}, nil, nil, discardLogger())
	s.Add("teamA", "http://example.invalid", "tok", event.Event{Type: event.TypePrompt})
	s.Suspend("teamA")
	require.True(t, s.IsSuspended("teamA"))
	require.Equal(t, 0, s.Pending("teamA"))

	s.Unsuspend("teamA", "http://example.invalid", "tok")
	require.False(t, s.IsSuspended("teamA"))
	s.Add("teamA", "http://example.invalid", "tok", event.Event{Type: event.TypePrompt})
	require.Equal(t, 1, s.Pending("teamA"))
}

func TestParams_ClampsMaxBatchSize(t *testing.T) {
	p := Params{MaxBatchSize: 1000}.clamped()
	require.Equal(t, serverMaxBatchSize, p.MaxBatchSize)
}
