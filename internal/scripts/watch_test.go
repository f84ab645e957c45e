package scripts

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestWatch_ReloadsOnExternalEdit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scripts.yaml")
	s, err := NewWithFile(path, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Watch(ctx))

	data, err := yaml.Marshal(map[string][]string{"edited.sh": {"patch blue-1"}})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	deadline := time.After(2 * time.Second)
	for {
		if _, ok := s.Get("edited.sh"); ok {
			return
		}
		select {
		case <-deadline:
			t.Fatal("external edit was not picked up")
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestWatch_NoPersistenceIsNoOp(t *testing.T) {
	s := New(testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Watch(ctx))
}
