package scripts

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestNew_SeedsBaseline(t *testing.T) {
	s := New(testLogger())
	list := s.List()
	require.Len(t, list, 2)
	assert.Contains(t, list, "sweep.sh")
	assert.Contains(t, list, "overclock.sh")
}

func TestSave_Invalid(t *testing.T) {
	s := New(testLogger())
	before := s.List()

	assert.ErrorIs(t, s.Save("", []string{"patch blue-1"}), ErrInvalidScript)
	assert.ErrorIs(t, s.Save("   ", []string{"patch blue-1"}), ErrInvalidScript)
	assert.ErrorIs(t, s.Save("x.sh", nil), ErrInvalidScript)

	assert.Equal(t, before, s.List(), "failed saves must not alter the store")
}

func TestSave_Overwrite(t *testing.T) {
	s := New(testLogger())
	require.NoError(t, s.Save("sweep.sh", []string{"scan 10.0.0.1"}))

	cmds, ok := s.Get("sweep.sh")
	require.True(t, ok)
	assert.Equal(t, []string{"scan 10.0.0.1"}, cmds)
}

func TestSave_EmptyCommandsAllowed(t *testing.T) {
	// An empty (non-nil) sequence is a valid script; blank commands are
	// skipped at execution time, not at save time.
	s := New(testLogger())
	require.NoError(t, s.Save("noop.sh", []string{}))
	cmds, ok := s.Get("noop.sh")
	assert.True(t, ok)
	assert.Empty(t, cmds)
}

func TestListAndGet_ReturnCopies(t *testing.T) {
	s := New(testLogger())

	list := s.List()
	list["sweep.sh"][0] = "tampered"
	cmds, _ := s.Get("sweep.sh")
	assert.Equal(t, "scan 127.0.0.1", cmds[0])

	cmds[0] = "tampered"
	again, _ := s.Get("sweep.sh")
	assert.Equal(t, "scan 127.0.0.1", again[0])
}

func TestNewWithFile_WritesBaseline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scripts.yaml")
	_, err := NewWithFile(path, testLogger())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	loaded := make(map[string][]string)
	require.NoError(t, yaml.Unmarshal(data, &loaded))
	assert.Contains(t, loaded, "sweep.sh")
}

func TestNewWithFile_LoadsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scripts.yaml")
	data, err := yaml.Marshal(map[string][]string{"custom.sh": {"breach blue-1"}})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	s, err := NewWithFile(path, testLogger())
	require.NoError(t, err)

	cmds, ok := s.Get("custom.sh")
	require.True(t, ok)
	assert.Equal(t, []string{"breach blue-1"}, cmds)
	_, hasBaseline := s.Get("sweep.sh")
	assert.False(t, hasBaseline, "file contents replace the baseline")
}

func TestSave_PersistsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scripts.yaml")
	s, err := NewWithFile(path, testLogger())
	require.NoError(t, err)

	require.NoError(t, s.Save("new.sh", []string{"isolate red-1"}))

	reopened, err := NewWithFile(path, testLogger())
	require.NoError(t, err)
	cmds, ok := reopened.Get("new.sh")
	require.True(t, ok)
	assert.Equal(t, []string{"isolate red-1"}, cmds)
}

func TestReload_IgnoresMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scripts.yaml")
	s, err := NewWithFile(path, testLogger())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("{not yaml: ["), 0o644))
	s.reload()

	_, ok := s.Get("sweep.sh")
	assert.True(t, ok, "malformed reload must keep previous contents")
}
