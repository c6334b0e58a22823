package file

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPath = "/home/u/.sercha-sync/config.toml"

func newMemStore(t *testing.T, content string) (*Store, afero.Fs) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	if content != "" {
		require.NoError(t, afero.WriteFile(fsys, testPath, []byte(content), 0o600))
	}
	s, err := New(fsys, testPath)
	require.NoError(t, err)
	return s, fsys
}

func TestNew_MissingFileIsEmpty(t *testing.T) {
	s, fsys := newMemStore(t, "")

	assert.Empty(t, s.Keys())
	assert.Equal(t, testPath, s.Path())
	exists, err := afero.DirExists(fsys, filepath.Dir(testPath))
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestNew_InvalidTOML(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, testPath, []byte("[sync\nmax = "), 0o600))

	_, err := New(fsys, testPath)

	assert.ErrorContains(t, err, "parse "+testPath)
}

func TestStore_ReadsTables(t *testing.T) {
	s, _ := newMemStore(t, `
[server]
addr = ":9090"
cors_origins = ["https://app.example.com"]

[sync]
max_documents = 250
fetch_timeout = "30s"
`)

	v, ok := s.Get("sync.max_documents")
	require.True(t, ok)
	assert.EqualValues(t, 250, v)

	v, ok = s.Get("server.cors_origins")
	require.True(t, ok)
	assert.Equal(t, []any{"https://app.example.com"}, v)

	_, ok = s.Get("sync")
	assert.False(t, ok, "tables are not values")
	_, ok = s.Get("sync.missing")
	assert.False(t, ok)
	_, ok = s.Get("log.file")
	assert.False(t, ok)

	assert.Equal(t, []string{"server.addr", "server.cors_origins", "sync.fetch_timeout", "sync.max_documents"}, s.Keys())
}

func TestStore_SetKeepsTableLayout(t *testing.T) {
	s, fsys := newMemStore(t, "")

	require.NoError(t, s.Set("sync.max_documents", int64(20)))
	require.NoError(t, s.Set("auth.secret", "s3cret"))

	raw, err := afero.ReadFile(fsys, testPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[sync]")
	assert.Contains(t, string(raw), "max_documents = 20")
	assert.NotContains(t, string(raw), "'sync.max_documents'")

	exists, err := afero.Exists(fsys, testPath+".tmp")
	require.NoError(t, err)
	assert.False(t, exists)

	reopened, err := New(fsys, testPath)
	require.NoError(t, err)
	v, ok := reopened.Get("auth.secret")
	require.True(t, ok)
	assert.Equal(t, "s3cret", v)
}

func TestStore_SetRejectsCollisions(t *testing.T) {
	s, _ := newMemStore(t, "")
	require.NoError(t, s.Set("sync.max_documents", int64(5)))

	tests := []struct {
		name string
		key  string
	}{
		{"empty", ""},
		{"empty segment", "sync..max"},
		{"value as table", "sync.max_documents.inner"},
		{"table as value", "sync"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, s.Set(tt.key, "x"), ErrInvalidKey)
		})
	}
}

func TestStore_UnsetPrunesEmptyTables(t *testing.T) {
	s, fsys := newMemStore(t, "")
	require.NoError(t, s.Set("queue.driver", "nats"))
	require.NoError(t, s.Set("log.file", "/tmp/sync.log"))

	require.NoError(t, s.Unset("queue.driver"))
	require.NoError(t, s.Unset("queue.driver"))
	require.NoError(t, s.Unset("never.set"))

	assert.Equal(t, []string{"log.file"}, s.Keys())
	raw, err := afero.ReadFile(fsys, testPath)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "[queue]")
}

func TestOpen_UsesDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Set("server.addr", ":7000"))

	reopened, err := Open(path)
	require.NoError(t, err)
	v, ok := reopened.Get("server.addr")
	require.True(t, ok)
	assert.Equal(t, ":7000", v)
}
