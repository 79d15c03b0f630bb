// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exercisePersister runs the contract every backend must satisfy.
func exercisePersister(t *testing.T, p Persister) {
	t.Helper()
	ctx := context.Background()

	data, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, data, "empty store loads nil")

	first := []byte(`[{"id":"a","title":"New Chat","messages":[],"model":"m","createdAt":1}]`)
	require.NoError(t, p.Save(ctx, first))

	data, err = p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, data)

	second := []byte(`[{"id":"b","title":"Tell me about Go...","messages":[{"role":"user","content":"日本語"}],"model":"m","createdAt":2}]`)
	require.NoError(t, p.Save(ctx, second))

	data, err = p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, data, "save replaces the previous value")
}

func TestFilePersister(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", HistoryKey+".json")
	p := NewFilePersister(path)
	defer p.Close()

	exercisePersister(t, p)

	if os.PathSeparator == '/' {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}
}

func TestFilePersister_CancelledContext(t *testing.T) {
	p := NewFilePersister(filepath.Join(t.TempDir(), "h.json"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Save(ctx, []byte("[]")), context.Canceled)
}

func TestMemoryPersister(t *testing.T) {
	p := NewMemoryPersister()
	exercisePersister(t, p)
	assert.Equal(t, 2, p.Saves())

	// Callers cannot mutate the stored copy.
	data, _ := p.Load(context.Background())
	data[0] = 'X'
	again, _ := p.Load(context.Background())
	assert.NotEqual(t, data[0], again[0])
}

func TestSQLitePersister(t *testing.T) {
	path := filepath.Join(t.TempDir(), "llmchat.db")
	p, err := OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	exercisePersister(t, p)
	require.NoError(t, p.Close())

	// Data survives reopening.
	p, err = OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	defer p.Close()
	data, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"id":"b"`)
}

func TestBadgerPersister(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "badger")
	p, err := OpenBadger(dir, nil)
	require.NoError(t, err)
	exercisePersister(t, p)
	require.NoError(t, p.Close())

	p, err = OpenBadger(dir, nil)
	require.NoError(t, err)
	defer p.Close()
	data, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"id":"b"`)
}

func TestBadgerPersister_InMemory(t *testing.T) {
	p, err := OpenBadger("", nil)
	require.NoError(t, err)
	defer p.Close()
	exercisePersister(t, p)
}

func TestPostgresPersister(t *testing.T) {
	url := os.Getenv("LLMCHAT_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("LLMCHAT_TEST_POSTGRES_URL not set")
	}
	ctx := context.Background()
	p, err := OpenPostgres(ctx, url)
	require.NoError(t, err)
	defer p.Close()
	require.NoError(t, p.drop(ctx))
	t.Cleanup(func() { _ = p.drop(ctx) })

	exercisePersister(t, p)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		backend string
		want    interface{}
	}{
		{"", &FilePersister{}},
		{"file", &FilePersister{}},
		{"SQLite", &SQLitePersister{}},
		{"badger", &BadgerPersister{}},
		{"memory", &MemoryPersister{}},
	}
	for _, tc := range tests {
		t.Run("backend="+tc.backend, func(t *testing.T) {
			p, err := Open(ctx, Options{Backend: tc.backend, DataDir: filepath.Join(dir, tc.backend)})
			require.NoError(t, err)
			defer p.Close()
			assert.IsType(t, tc.want, p)
		})
	}
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, Options{Backend: "mongo", DataDir: t.TempDir()})
	assert.True(t, errors.Is(err, ErrUnknownBackend))

	_, err = Open(ctx, Options{Backend: "file"})
	assert.Error(t, err, "file backend needs a data dir")

	_, err = Open(ctx, Options{Backend: "postgres"})
	assert.Error(t, err, "postgres backend needs a URL")
}
