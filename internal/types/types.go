// Package types defines the shared simulation types used by the engine,
// the HTTP API, and clients: assets, events, tactical actions, and the
// autonomous opponent state.
package types

import "strings"

// Faction is the red/blue side an asset or actor belongs to.
type Faction string

const (
	FactionRed  Faction = "red"
	FactionBlue Faction = "blue"
)

// Valid reports whether f is a known faction.
func (f Faction) Valid() bool {
	return f == FactionRed || f == FactionBlue
}

// Opposite returns the opposing faction.
func (f Faction) Opposite() Faction {
	if f == FactionRed {
		return FactionBlue
	}
	return FactionRed
}

// AssetKind classifies a simulated machine.
type AssetKind string

const (
	KindServer      AssetKind = "server"
	KindProxy       AssetKind = "proxy"
	KindWorkstation AssetKind = "workstation"
	KindFirewall    AssetKind = "firewall"
)

// AssetStatus is the operational state of an asset.
type AssetStatus string

const (
	StatusOnline      AssetStatus = "online"
	StatusOffline     AssetStatus = "offline"
	StatusCompromised AssetStatus = "compromised"
	StatusPatching    AssetStatus = "patching"
)

// Asset is a simulated machine in the session. ID and Faction never change
// after creation; Status is mutated only by the action processor and the
// autonomous opponent. JSON field names follow the dashboard contract.
type Asset struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Kind    AssetKind   `json:"type"`
	Status  AssetStatus `json:"status"`
	Faction Faction     `json:"team"`
}

// EventKind tags an event for the dashboard's log styling.
type EventKind string

const (
	EventInfo    EventKind = "info"
	EventAttack  EventKind = "attack"
	EventDefense EventKind = "defense"
	EventAlert   EventKind = "alert"
)

// ValidEventKind reports whether k is a known event kind.
func ValidEventKind(k EventKind) bool {
	switch k {
	case EventInfo, EventAttack, EventDefense, EventAlert:
		return true
	}
	return false
}

// Event is a narrated, timestamped log record of something that happened
// in the simulation. Events are immutable once created.
type Event struct {
	ID        string    `json:"id"`
	Timestamp string    `json:"timestamp"`
	CreatedAt int64     `json:"createdAt"`
	Source    string    `json:"source"`
	Message   string    `json:"message"`
	Kind      EventKind `json:"type"`
}

// Action is the closed set of tactical operations.
type Action string

const (
	ActionPatch          Action = "PATCH"
	ActionIsolate        Action = "ISOLATE"
	ActionRotateIP       Action = "ROTATE_IP"
	ActionEncryptPayload Action = "ENCRYPT_PAYLOAD"
	ActionBreach         Action = "BREACH"
	ActionUnknown        Action = "UNKNOWN"
)

// ParseAction maps a wire or display form ("PATCH CVE", "rotate ip") onto
// the closed action set. Anything unrecognized is ActionUnknown, which the
// action processor treats as an explicit no-op rather than an error.
func ParseAction(s string) Action {
	norm := strings.ToUpper(strings.Join(strings.Fields(strings.TrimSpace(s)), "_"))
	switch norm {
	case "PATCH", "PATCH_CVE":
		return ActionPatch
	case "ISOLATE":
		return ActionIsolate
	case "ROTATE_IP":
		return ActionRotateIP
	case "ENCRYPT_PAYLOAD":
		return ActionEncryptPayload
	case "BREACH":
		return ActionBreach
	}
	return ActionUnknown
}

// AIState describes the autonomous opponent.
type AIState struct {
	Enabled      bool    `json:"enabled"`
	Role         Faction `json:"role"`
	CooldownMs   int64   `json:"cooldownMs"`
	LastActionAt int64   `json:"lastActionAt"`
}

// PortState is the outcome of a single port probe. Closed is a normal
// result value, not an error.
type PortState string

const (
	PortOpen   PortState = "open"
	PortClosed PortState = "closed"
)

// ScanResult is one probed port and its observed state.
type ScanResult struct {
	Port  int       `json:"port"`
	State PortState `json:"status"`
}

// Snapshot is the full session state returned by GET /state.
type Snapshot struct {
	Assets  []Asset             `json:"assets"`
	Logs    []Event             `json:"logs"`
	Scripts map[string][]string `json:"scripts"`
	AI      AIState             `json:"ai"`
}
