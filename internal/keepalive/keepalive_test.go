package keepalive

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpulse/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPinger_Disabled(t *testing.T) {
	p := New(config.KeepAliveConfig{Enabled: false}, nil, discardLogger())
	assert.NoError(t, p.Run(context.Background()))
}

func TestPinger_PingsUntilCancelled(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := New(config.KeepAliveConfig{
		Enabled:  true,
		URL:      srv.URL,
		Interval: 10 * time.Millisecond,
	}, srv.Client(), discardLogger())

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool {
		return hits.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("pinger did not stop on cancel")
	}
}

func TestPinger_SurvivesFailures(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := New(config.KeepAliveConfig{
		Enabled:  true,
		URL:      "http://127.0.0.1:1", // nothing listens here
		Interval: 10 * time.Millisecond,
	}, &http.Client{Timeout: 50 * time.Millisecond}, discardLogger())

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	// Let a few failing ticks pass; the loop must keep running.
	time.Sleep(60 * time.Millisecond)
	select {
	case err := <-done:
		t.Fatalf("pinger stopped early: %v", err)
	default:
	}

	cancel()
	<-done
}
