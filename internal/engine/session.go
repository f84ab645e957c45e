// Package engine implements the simulation session: the asset registry,
// the tactical action processor, and the autonomous opponent.
package engine

import (
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/invisible-tech/warsim/internal/eventlog"
	"github.com/invisible-tech/warsim/internal/scripts"
	"github.com/invisible-tech/warsim/internal/types"
)

// Config holds the engine's timing parameters.
type Config struct {
	// PatchDelay is how long a PATCH keeps an asset in "patching" before
	// the deferred transition back to "online".
	PatchDelay time.Duration
	// OpponentCooldown is the minimum interval between autonomous moves.
	OpponentCooldown time.Duration
	// OpponentTick is how often the opponent loop checks its cooldown.
	OpponentTick time.Duration
}

func (c Config) withDefaults() Config {
	if c.PatchDelay <= 0 {
		c.PatchDelay = 10 * time.Second
	}
	if c.OpponentCooldown <= 0 {
		c.OpponentCooldown = 8 * time.Second
	}
	if c.OpponentTick <= 0 {
		c.OpponentTick = time.Second
	}
	return c
}

// Session owns the complete simulation state for one running instance.
// All mutation goes through its methods, serialized behind one mutex.
type Session struct {
	cfg     Config
	log     *logrus.Logger
	events  *eventlog.Log
	scripts *scripts.Store

	mu         sync.Mutex
	assets     []types.Asset
	ai         types.AIState
	generation uint64

	// Seams for tests.
	now       func() time.Time
	randIntn  func(n int) int
	randFloat func() float64
	afterFunc func(d time.Duration, f func())
}

// baselineAssets returns fresh copies of the canonical asset list. Assets
// are only ever created here; a reset replaces the whole registry.
func baselineAssets() []types.Asset {
	return []types.Asset{
		{ID: "red-1", Name: "Redirector-7", Kind: types.KindProxy, Status: types.StatusOnline, Faction: types.FactionRed},
		{ID: "red-2", Name: "Staging-Alpha", Kind: types.KindServer, Status: types.StatusOnline, Faction: types.FactionRed},
		{ID: "red-3", Name: "C2-Primary", Kind: types.KindServer, Status: types.StatusOnline, Faction: types.FactionRed},
		{ID: "blue-1", Name: "Main-DB", Kind: types.KindServer, Status: types.StatusOnline, Faction: types.FactionBlue},
		{ID: "blue-2", Name: "Auth-Gateway", Kind: types.KindFirewall, Status: types.StatusOnline, Faction: types.FactionBlue},
		{ID: "blue-3", Name: "Sentinel-API", Kind: types.KindServer, Status: types.StatusOnline, Faction: types.FactionBlue},
	}
}

// New creates a session with the baseline asset registry, the given event
// log and script store, and the opponent disabled.
func New(cfg Config, events *eventlog.Log, store *scripts.Store, log *logrus.Logger) *Session {
	cfg = cfg.withDefaults()
	return &Session{
		cfg:     cfg,
		log:     log,
		events:  events,
		scripts: store,
		assets:  baselineAssets(),
		ai: types.AIState{
			Enabled:    false,
			Role:       types.FactionRed,
			CooldownMs: cfg.OpponentCooldown.Milliseconds(),
		},
		now:       time.Now,
		randIntn:  rand.Intn,
		randFloat: rand.Float64,
		afterFunc: func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
}

// Snapshot returns a copy of the full session state. It has no side
// effects; the opponent runs on its own ticker.
func (s *Session) Snapshot() types.Snapshot {
	s.mu.Lock()
	assets := make([]types.Asset, len(s.assets))
	copy(assets, s.assets)
	ai := s.ai
	s.mu.Unlock()

	return types.Snapshot{
		Assets:  assets,
		Logs:    s.events.Snapshot(),
		Scripts: s.scripts.List(),
		AI:      ai,
	}
}

// Asset returns the asset with the given id.
func (s *Session) Asset(id string) (types.Asset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.findLocked(id); i >= 0 {
		return s.assets[i], true
	}
	return types.Asset{}, false
}

// AppendLog records a manual narration event.
func (s *Session) AppendLog(source, message string, kind types.EventKind) types.Event {
	if source == "" {
		source = "system"
	}
	if !types.ValidEventKind(kind) {
		kind = types.EventInfo
	}
	return s.events.Append(source, message, kind)
}

// Reset restores the baseline asset registry, empties the event log, and
// disables the opponent. Stored scripts are preserved. Bumping the
// generation invalidates any pending deferred patch completions, since the
// assets they were scheduled against no longer exist.
func (s *Session) Reset() {
	s.mu.Lock()
	s.generation++
	s.assets = baselineAssets()
	s.ai.Enabled = false
	s.mu.Unlock()

	s.events.Reset()
	s.events.Append("system", "Simulation state reset to default.", types.EventInfo)

	resetsTotal.Inc()
	compromisedAssets.Set(0)
	opponentEnabled.Set(0)
	s.log.Info("Simulation reset")
}

func (s *Session) findLocked(id string) int {
	for i := range s.assets {
		if s.assets[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Session) updateGaugesLocked() {
	n := 0
	for i := range s.assets {
		if s.assets[i].Status == types.StatusCompromised {
			n++
		}
	}
	compromisedAssets.Set(float64(n))
}
