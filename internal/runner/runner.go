// Package runner interprets terminal command lines and replays stored
// automation scripts through the same interpreter with a fixed pacing
// delay between commands.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/invisible-tech/warsim/internal/engine"
	"github.com/invisible-tech/warsim/internal/eventlog"
	"github.com/invisible-tech/warsim/internal/probe"
	"github.com/invisible-tech/warsim/internal/scripts"
	"github.com/invisible-tech/warsim/internal/types"
)

// ErrScriptNotFound is returned when Run is asked for an unknown script.
var ErrScriptNotFound = errors.New("script not found")

// Defaults for the scan command when arguments are omitted.
const (
	defaultScanTarget = "127.0.0.1"
	defaultScanStart  = 80
	defaultScanEnd    = 5180
)

// maxRunDepth bounds scripts that run other scripts.
const maxRunDepth = 3

// Runner executes the terminal command grammar against a session.
type Runner struct {
	session *engine.Session
	scripts *scripts.Store
	prober  *probe.Prober
	events  *eventlog.Log
	log     *logrus.Logger
	delay   time.Duration
}

// New creates a runner. delay is the inter-command pause during script
// replay.
func New(session *engine.Session, store *scripts.Store, prober *probe.Prober, events *eventlog.Log, log *logrus.Logger, delay time.Duration) *Runner {
	return &Runner{
		session: session,
		scripts: store,
		prober:  prober,
		events:  events,
		log:     log,
		delay:   delay,
	}
}

// Exec interprets a single command line on behalf of faction. Blank lines
// are skipped. Problems with the command itself (bad usage, unknown asset)
// are narrated into the event log rather than returned, matching the
// terminal's behavior.
func (r *Runner) Exec(ctx context.Context, line string, faction types.Faction) error {
	return r.exec(ctx, line, faction, 0)
}

func (r *Runner) exec(ctx context.Context, line string, faction types.Faction, depth int) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	switch strings.ToLower(fields[0]) {
	case "help":
		r.events.Append("system",
			"Commands: scan [target] [start] [end] | patch [id] | isolate [id] | breach [id] | rotate ip [id] | encrypt payload [id] | log [msg] | scripts | run [name]",
			types.EventInfo)

	case "scan":
		target := defaultScanTarget
		start, end := defaultScanStart, defaultScanEnd
		if len(fields) > 1 {
			target = fields[1]
		}
		if len(fields) > 2 {
			start = parsePort(fields[2], defaultScanStart)
		}
		if len(fields) > 3 {
			end = parsePort(fields[3], defaultScanEnd)
		}
		r.prober.Scan(target, start, end)

	case "patch":
		r.applyTo(fields, 1, "PATCH", faction, "Usage: patch [asset_id]")

	case "isolate":
		r.applyTo(fields, 1, "ISOLATE", faction, "Usage: isolate [asset_id]")

	case "breach":
		r.applyTo(fields, 1, "BREACH", faction, "Usage: breach [asset_id]")

	case "rotate":
		if len(fields) < 2 || strings.ToLower(fields[1]) != "ip" {
			r.events.Append("system", "Usage: rotate ip [asset_id]", types.EventAlert)
			return nil
		}
		r.applyTo(fields, 2, "ROTATE_IP", faction, "Usage: rotate ip [asset_id]")

	case "encrypt":
		if len(fields) < 2 || strings.ToLower(fields[1]) != "payload" {
			r.events.Append("system", "Usage: encrypt payload [asset_id]", types.EventAlert)
			return nil
		}
		r.applyTo(fields, 2, "ENCRYPT_PAYLOAD", faction, "Usage: encrypt payload [asset_id]")

	case "log":
		msg := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))
		if msg == "" {
			r.events.Append("system", "Usage: log [message]", types.EventAlert)
			return nil
		}
		r.events.Append("user", msg, types.EventInfo)

	case "scripts":
		names := make([]string, 0)
		for name := range r.scripts.List() {
			names = append(names, name)
		}
		sort.Strings(names)
		r.events.Append("system", "Available scripts: "+strings.Join(names, ", "), types.EventInfo)

	case "run":
		if len(fields) < 2 {
			r.events.Append("system", "Usage: run [script_name]", types.EventAlert)
			return nil
		}
		if depth >= maxRunDepth {
			r.events.Append("system", "Script nesting limit reached.", types.EventAlert)
			return nil
		}
		if err := r.run(ctx, fields[1], faction, depth+1); errors.Is(err, ErrScriptNotFound) {
			r.events.Append("system", fmt.Sprintf("Script not found: %s", fields[1]), types.EventAlert)
		}

	default:
		r.events.Append("system",
			fmt.Sprintf("Unknown command: %s. Type 'help' for options.", fields[0]),
			types.EventAlert)
	}
	return nil
}

// Run replays a stored script: each non-blank command goes through the
// interpreter, separated by the configured delay. Cancelling ctx stops the
// replay between commands.
func (r *Runner) Run(ctx context.Context, name string, faction types.Faction) error {
	return r.run(ctx, name, faction, 1)
}

func (r *Runner) run(ctx context.Context, name string, faction types.Faction, depth int) error {
	cmds, ok := r.scripts.Get(name)
	if !ok {
		return ErrScriptNotFound
	}
	r.events.Append("system", fmt.Sprintf("[AUTOMATOR] Initiating sequence: %s", name), types.EventInfo)

	first := true
	for _, cmd := range cmds {
		if strings.TrimSpace(cmd) == "" {
			continue
		}
		if !first {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.delay):
			}
		}
		first = false
		if err := r.exec(ctx, cmd, faction, depth); err != nil {
			return err
		}
	}
	r.log.WithFields(logrus.Fields{"script": name, "commands": len(cmds)}).Info("Script sequence complete")
	return nil
}

func (r *Runner) applyTo(fields []string, idIndex int, action string, faction types.Faction, usage string) {
	if len(fields) <= idIndex {
		r.events.Append("system", usage, types.EventAlert)
		return
	}
	id := fields[idIndex]
	if _, err := r.session.ApplyAction(id, action, faction); err != nil {
		r.events.Append("system", fmt.Sprintf("Unknown asset: %s", id), types.EventAlert)
	}
}

func parsePort(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
