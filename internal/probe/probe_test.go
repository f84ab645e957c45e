package probe

import (
	"errors"
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/invisible-tech/warsim/internal/eventlog"
	"github.com/invisible-tech/warsim/internal/types"
)

type fakeConn struct{ net.Conn }

func (fakeConn) Close() error { return nil }

func newTestProber(openPorts map[int]bool) (*Prober, *eventlog.Log, *int) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	events := eventlog.New(100)
	p := New(events, log, 500*time.Millisecond, time.Minute)

	dials := 0
	p.dial = func(network, addr string, timeout time.Duration) (net.Conn, error) {
		dials++
		_, portStr, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, err
		}
		if openPorts[port] {
			return fakeConn{}, nil
		}
		return nil, errors.New("connection refused")
	}
	return p, events, &dials
}

func TestScan_RangeFilterAndOrder(t *testing.T) {
	p, _, _ := newTestProber(nil)

	results := p.Scan("198.51.100.7", 3000, 6000)

	want := []int{3000, 3001, 5173}
	if len(results) != len(want) {
		t.Fatalf("results = %d, want %d", len(results), len(want))
	}
	for i, r := range results {
		if r.Port != want[i] {
			t.Errorf("result[%d].Port = %d, want %d (candidate order)", i, r.Port, want[i])
		}
		if r.State != types.PortClosed {
			t.Errorf("port %d state = %s, want closed", r.Port, r.State)
		}
	}
}

func TestScan_UnreachableHostNeverFails(t *testing.T) {
	p, events, _ := newTestProber(nil)

	results := p.Scan("203.0.113.1", 80, 8080)
	for _, r := range results {
		if r.State != types.PortClosed {
			t.Errorf("port %d = %s, want closed for unreachable host", r.Port, r.State)
		}
	}
	// Scan start narration plus the empty-scan summary.
	logs := events.Snapshot()
	if logs[0].Message != "Scan completed. No open ports found in specified range." {
		t.Errorf("summary event = %q", logs[0].Message)
	}
	if logs[0].Kind != types.EventInfo {
		t.Errorf("summary kind = %s", logs[0].Kind)
	}
}

func TestScan_OpenPortsNarrated(t *testing.T) {
	p, events, _ := newTestProber(map[int]bool{443: true, 8080: true})

	results := p.Scan("192.0.2.10", 80, 8080)

	open := 0
	for _, r := range results {
		if r.State == types.PortOpen {
			open++
		}
	}
	if open != 2 {
		t.Fatalf("open ports = %d, want 2", open)
	}

	attacks := 0
	for _, ev := range events.Snapshot() {
		if ev.Kind == types.EventAttack && ev.Source == "scanner" {
			attacks++
		}
	}
	if attacks != 2 {
		t.Errorf("attack events = %d, want one per open port", attacks)
	}
}

func TestScan_EmptyRange(t *testing.T) {
	p, events, dials := newTestProber(nil)

	results := p.Scan("192.0.2.10", 9000, 9999)
	if len(results) != 0 {
		t.Errorf("results = %d, want 0", len(results))
	}
	if *dials != 0 {
		t.Errorf("dials = %d, want 0", *dials)
	}
	if events.Snapshot()[0].Kind != types.EventInfo {
		t.Error("empty scan still narrates a summary")
	}
}

func TestScan_CacheAvoidsRedial(t *testing.T) {
	p, _, dials := newTestProber(map[int]bool{80: true})

	first := p.Scan("192.0.2.10", 80, 80)
	afterFirst := *dials
	second := p.Scan("192.0.2.10", 80, 80)

	if *dials != afterFirst {
		t.Errorf("second scan dialed %d more times, want cache hit", *dials-afterFirst)
	}
	if first[0].State != second[0].State {
		t.Error("cached state differs from first observation")
	}
}
