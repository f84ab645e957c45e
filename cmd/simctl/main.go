// simctl is a small operator CLI for a running simulation server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/invisible-tech/warsim/internal/config"
	"github.com/invisible-tech/warsim/internal/types"
	"github.com/invisible-tech/warsim/pkg/simclient"
)

const usage = `usage: simctl <command> [args]

commands:
  state                          print the session snapshot
  action <assetId> <action> <faction>
  scan [target] [start] [end]    run a port scan
  scripts                        list stored scripts
  save <name> <cmd> [cmd...]     save a script
  run <name> [faction]           replay a script
  ai <on|off> [role]             toggle the autonomous opponent
  log <message>                  append a manual event
  reset                          reset the session

SIM_ADDR sets the server address (default http://127.0.0.1:3001).`

func main() {
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	client := simclient.New(simclient.Config{
		BaseURL: config.GetEnv("SIM_ADDR", "http://127.0.0.1:3001"),
		Timeout: 30 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	args := os.Args[2:]
	var err error
	switch os.Args[1] {
	case "state":
		err = printJSON(client.State(ctx))
	case "action":
		if len(args) < 3 {
			fail("usage: simctl action <assetId> <action> <faction>")
		}
		err = printJSON(client.Action(ctx, args[0], args[1], types.Faction(args[2])))
	case "scan":
		target := "127.0.0.1"
		start, end := 80, 5180
		if len(args) > 0 {
			target = args[0]
		}
		if len(args) > 1 {
			start = atoiOr(args[1], start)
		}
		if len(args) > 2 {
			end = atoiOr(args[2], end)
		}
		err = printJSON(client.Scan(ctx, target, start, end))
	case "scripts":
		err = printJSON(client.Scripts(ctx))
	case "save":
		if len(args) < 2 {
			fail("usage: simctl save <name> <cmd> [cmd...]")
		}
		err = client.SaveScript(ctx, args[0], args[1:])
	case "run":
		if len(args) < 1 {
			fail("usage: simctl run <name> [faction]")
		}
		faction := types.FactionRed
		if len(args) > 1 {
			faction = types.Faction(args[1])
		}
		err = client.RunScript(ctx, args[0], faction)
	case "ai":
		if len(args) < 1 {
			fail("usage: simctl ai <on|off> [role]")
		}
		role := types.Faction("")
		if len(args) > 1 {
			role = types.Faction(args[1])
		}
		err = printJSON(client.SetOpponent(ctx, args[0] == "on", role))
	case "log":
		if len(args) < 1 {
			fail("usage: simctl log <message>")
		}
		err = client.AppendLog(ctx, "user", args[0], types.EventInfo)
	case "reset":
		err = client.Reset(ctx)
	default:
		fail(usage)
	}

	if err != nil {
		log.WithError(err).Error("Command failed")
		fmt.Fprintln(os.Stderr, "simctl:", err)
		os.Exit(1)
	}
}

func printJSON(v interface{}, err error) error {
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func fail(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
