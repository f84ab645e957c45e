package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/invisible-tech/warsim/internal/types"
)

// ErrAssetNotFound is returned for an unknown asset id. No event is
// appended and no state changes in that case.
var ErrAssetNotFound = errors.New("asset not found")

// ApplyAction applies the named tactical action to one asset. A narrated
// "initiated" event is always appended first, tagged attack for red and
// defense for blue, even for actions with no further effect. Unrecognized
// action names are explicit no-ops, not errors.
func (s *Session) ApplyAction(assetID, actionName string, faction types.Faction) (types.Asset, error) {
	action := types.ParseAction(actionName)
	display := strings.ToUpper(strings.TrimSpace(actionName))
	if display == "" {
		display = string(types.ActionUnknown)
	}

	s.mu.Lock()
	idx := s.findLocked(assetID)
	if idx < 0 {
		s.mu.Unlock()
		return types.Asset{}, ErrAssetNotFound
	}
	asset := &s.assets[idx]
	name := asset.Name

	initiatedKind := types.EventDefense
	if faction == types.FactionRed {
		initiatedKind = types.EventAttack
	}
	s.events.Append(name, fmt.Sprintf("TACTICAL ACTION: %s sequence initiated.", display), initiatedKind)

	switch action {
	case types.ActionPatch:
		asset.Status = types.StatusPatching
		s.events.Append(name, "PATCH: Deploying security update. Asset entering hardening cycle.", types.EventInfo)
		gen := s.generation
		s.afterFunc(s.cfg.PatchDelay, func() { s.completePatch(assetID, gen) })
	case types.ActionIsolate:
		asset.Status = types.StatusOffline
		s.events.Append(name, "ALERT: Asset has been isolated from the network.", types.EventAlert)
	case types.ActionRotateIP:
		s.events.Append(name, "NETWORK: IP space rotation complete. Footprint reduced.", types.EventInfo)
	case types.ActionEncryptPayload:
		s.events.Append(name, "CRYPT: Payload obfuscation complete. AV evasion active.", types.EventAttack)
	case types.ActionBreach:
		asset.Status = types.StatusCompromised
		s.events.Append(name, "CRITICAL: System breach detected. Privilege escalation successful.", types.EventAlert)
	case types.ActionUnknown:
		// Only the initiated event.
	}

	out := *asset
	s.updateGaugesLocked()
	s.mu.Unlock()

	actionsTotal.WithLabelValues(string(action), string(faction)).Inc()
	return out, nil
}

// completePatch is the deferred half of a PATCH. The transition only fires
// if the session generation is unchanged (no reset in the interim) and the
// asset is still patching, so a breach or isolate inside the delay window
// wins.
func (s *Session) completePatch(assetID string, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return
	}
	idx := s.findLocked(assetID)
	if idx < 0 {
		return
	}
	asset := &s.assets[idx]
	if asset.Status != types.StatusPatching {
		return
	}
	asset.Status = types.StatusOnline
	s.events.Append(asset.Name, "SUCCESS: Security patch applied. Asset is now hardened.", types.EventInfo)
	s.updateGaugesLocked()
}
