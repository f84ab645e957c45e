package runner

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invisible-tech/warsim/internal/engine"
	"github.com/invisible-tech/warsim/internal/eventlog"
	"github.com/invisible-tech/warsim/internal/probe"
	"github.com/invisible-tech/warsim/internal/scripts"
	"github.com/invisible-tech/warsim/internal/types"
)

func newTestRunner(t *testing.T) (*Runner, *engine.Session, *eventlog.Log) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	events := eventlog.New(100)
	store := scripts.New(log)
	session := engine.New(engine.Config{}, events, store, log)
	prober := probe.New(events, log, 50*time.Millisecond, time.Minute)
	r := New(session, store, prober, events, log, 0)
	return r, session, events
}

func TestExec_BlankLineSkipped(t *testing.T) {
	r, _, events := newTestRunner(t)
	require.NoError(t, r.Exec(context.Background(), "   ", types.FactionRed))
	assert.Equal(t, 0, events.Len())
}

func TestExec_Patch(t *testing.T) {
	r, session, _ := newTestRunner(t)
	require.NoError(t, r.Exec(context.Background(), "patch blue-1", types.FactionBlue))

	asset, ok := session.Asset("blue-1")
	require.True(t, ok)
	assert.Equal(t, types.StatusPatching, asset.Status)
}

func TestExec_UsageErrorsNarrated(t *testing.T) {
	r, _, events := newTestRunner(t)
	for _, line := range []string{"patch", "isolate", "breach", "rotate", "encrypt payload", "run", "log"} {
		require.NoError(t, r.Exec(context.Background(), line, types.FactionRed))
	}
	for _, ev := range events.Snapshot() {
		assert.Equal(t, types.EventAlert, ev.Kind, "usage errors are alert events: %q", ev.Message)
	}
	assert.Equal(t, 7, events.Len())
}

func TestExec_UnknownAssetNarrated(t *testing.T) {
	r, _, events := newTestRunner(t)
	require.NoError(t, r.Exec(context.Background(), "breach ghost-1", types.FactionRed))

	newest := events.Snapshot()[0]
	assert.Equal(t, types.EventAlert, newest.Kind)
	assert.Contains(t, newest.Message, "ghost-1")
}

func TestExec_UnknownCommand(t *testing.T) {
	r, _, events := newTestRunner(t)
	require.NoError(t, r.Exec(context.Background(), "frobnicate blue-1", types.FactionRed))

	newest := events.Snapshot()[0]
	assert.Equal(t, types.EventAlert, newest.Kind)
	assert.Contains(t, newest.Message, "frobnicate")
}

func TestExec_RotateAndEncrypt(t *testing.T) {
	r, session, _ := newTestRunner(t)
	require.NoError(t, r.Exec(context.Background(), "rotate ip red-1", types.FactionRed))
	require.NoError(t, r.Exec(context.Background(), "encrypt payload red-2", types.FactionRed))

	for _, id := range []string{"red-1", "red-2"} {
		asset, _ := session.Asset(id)
		assert.Equal(t, types.StatusOnline, asset.Status, "cosmetic commands must not change status")
	}
}

func TestRun_UnknownScript(t *testing.T) {
	r, _, _ := newTestRunner(t)
	assert.ErrorIs(t, r.Run(context.Background(), "missing.sh", types.FactionRed), ErrScriptNotFound)
}

func TestRun_ReplaysCommandsSkippingBlanks(t *testing.T) {
	r, session, events := newTestRunner(t)
	require.NoError(t, r.scripts.Save("drill.sh", []string{"breach blue-1", "", "  ", "isolate blue-2"}))

	require.NoError(t, r.Run(context.Background(), "drill.sh", types.FactionRed))

	a1, _ := session.Asset("blue-1")
	a2, _ := session.Asset("blue-2")
	assert.Equal(t, types.StatusCompromised, a1.Status)
	assert.Equal(t, types.StatusOffline, a2.Status)

	var automator bool
	for _, ev := range events.Snapshot() {
		if ev.Message == "[AUTOMATOR] Initiating sequence: drill.sh" {
			automator = true
		}
	}
	assert.True(t, automator, "script start must be narrated")
}

func TestRun_CancelStopsReplay(t *testing.T) {
	r, session, _ := newTestRunner(t)
	r.delay = time.Hour
	require.NoError(t, r.scripts.Save("slow.sh", []string{"breach blue-1", "breach blue-2"}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, "slow.sh", types.FactionRed) }()

	// First command runs immediately; cancel during the pacing delay.
	deadline := time.After(2 * time.Second)
	for {
		if a, _ := session.Asset("blue-1"); a.Status == types.StatusCompromised {
			break
		}
		select {
		case <-deadline:
			t.Fatal("first command never ran")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	require.ErrorIs(t, <-done, context.Canceled)
	a2, _ := session.Asset("blue-2")
	assert.Equal(t, types.StatusOnline, a2.Status, "cancelled replay must not run later commands")
}

func TestExec_NestedRunDepthLimited(t *testing.T) {
	r, _, events := newTestRunner(t)
	require.NoError(t, r.scripts.Save("loop.sh", []string{"run loop.sh"}))

	require.NoError(t, r.Exec(context.Background(), "run loop.sh", types.FactionRed))

	var limited bool
	for _, ev := range events.Snapshot() {
		if ev.Message == "Script nesting limit reached." {
			limited = true
		}
	}
	assert.True(t, limited)
}
