package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/invisible-tech/warsim/internal/types"
)

// Narrator identities for autonomous opponent events.
const (
	redOpponentName  = "REDCELL-AI"
	blueOpponentName = "AEGIS-AI"
)

// breachProbability is the chance the red opponent breaches rather than
// re-encrypts on a given move.
const breachProbability = 0.7

// SetOpponent toggles the autonomous opponent. An invalid role leaves the
// current role unchanged. Enabling resets the cooldown clock so the first
// move happens a full cooldown later.
func (s *Session) SetOpponent(enabled bool, role types.Faction) types.AIState {
	s.mu.Lock()
	if role.Valid() {
		s.ai.Role = role
	}
	s.ai.Enabled = enabled
	if enabled {
		s.ai.LastActionAt = s.now().UnixMilli()
		s.events.Append("system",
			fmt.Sprintf("WARNING: Autonomous opponent activated on %s cell.", strings.ToUpper(string(s.ai.Role))),
			types.EventAlert)
	} else {
		s.events.Append("system", "Autonomous opponent deactivated.", types.EventInfo)
	}
	state := s.ai
	s.mu.Unlock()

	if enabled {
		opponentEnabled.Set(1)
	} else {
		opponentEnabled.Set(0)
	}
	return state
}

// OpponentState returns the current opponent state.
func (s *Session) OpponentState() types.AIState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ai
}

// Start launches the opponent loop. It ticks every cfg.OpponentTick and
// defers to the cooldown check in StepOpponent, stopping when ctx is
// cancelled.
func (s *Session) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.cfg.OpponentTick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.StepOpponent(s.now())
			}
		}
	}()
}

// StepOpponent runs one opponent decision cycle at the given instant. It
// is a no-op unless the opponent is enabled and its cooldown has elapsed.
// The cooldown clock advances on every trigger, even when no eligible
// target exists, so an empty board cannot cause tight re-triggering.
// Returns true if the opponent narrated or mutated anything.
func (s *Session) StepOpponent(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ai.Enabled {
		return false
	}
	nowMs := now.UnixMilli()
	if nowMs-s.ai.LastActionAt <= s.ai.CooldownMs {
		return false
	}
	s.ai.LastActionAt = nowMs

	targetFaction := s.ai.Role.Opposite()
	var candidates []int
	for i := range s.assets {
		if s.assets[i].Faction == targetFaction {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return false
	}
	target := &s.assets[candidates[s.randIntn(len(candidates))]]

	acted := false
	switch s.ai.Role {
	case types.FactionRed:
		if s.randFloat() < breachProbability {
			if target.Status != types.StatusCompromised {
				target.Status = types.StatusCompromised
				s.events.Append(redOpponentName,
					fmt.Sprintf("CRITICAL: %s breached by autonomous intrusion set.", target.Name),
					types.EventAlert)
				acted = true
			}
		} else {
			s.events.Append(redOpponentName,
				fmt.Sprintf("CRYPT: Payload signatures rotated for strike on %s.", target.Name),
				types.EventAttack)
			acted = true
		}
	case types.FactionBlue:
		switch target.Status {
		case types.StatusCompromised:
			target.Status = types.StatusOnline
			s.events.Append(blueOpponentName,
				fmt.Sprintf("RESPONSE: %s restored. Intrusion artifacts purged.", target.Name),
				types.EventDefense)
			acted = true
		case types.StatusOnline:
			s.events.Append(blueOpponentName,
				fmt.Sprintf("HARDEN: %s defenses reinforced. Attack surface reduced.", target.Name),
				types.EventDefense)
			acted = true
		}
		// Offline and patching assets are left alone this cycle.
	}

	if acted {
		s.updateGaugesLocked()
		opponentMoves.WithLabelValues(string(s.ai.Role)).Inc()
	}
	return acted
}
