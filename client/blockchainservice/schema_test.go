package blockchainservice

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
)

func openTestStore(t *testing.T, migrations []Migration) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bcs.db")
	s, err := OpenStore(path, migrations)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMigrationsApplyInOrderAndAreIdempotent(t *testing.T) {
	var applied []uint32
	migrations := []Migration{
		{Version: 1, Apply: func(tx *bolt.Tx) error { applied = append(applied, 1); return nil }},
		{Version: 2, Apply: func(tx *bolt.Tx) error { applied = append(applied, 2); return nil }},
	}
	path := filepath.Join(t.TempDir(), "bcs.db")
	s, err := OpenStore(path, migrations)
	require.NoError(t, err)
	v, err := s.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, uint32(2), v)
	assert.Equal(t, []uint32{1, 2}, applied)
	require.NoError(t, s.Close())

	// Reopening with the same migration list must not re-apply anything.
	s2, err := OpenStore(path, migrations)
	require.NoError(t, err)
	defer s2.Close()
	assert.Equal(t, []uint32{1, 2}, applied)
}

func TestMigrationGapRejected(t *testing.T) {
	migrations := []Migration{
		{Version: 1, Apply: func(tx *bolt.Tx) error { return nil }},
		{Version: 3, Apply: func(tx *bolt.Tx) error { return nil }},
	}
	path := filepath.Join(t.TempDir(), "bcs.db")
	_, err := OpenStore(path, migrations)
	assert.ErrorIs(t, err, ErrMigrationGap)
}

func TestLastProcessedBlockRoundTrip(t *testing.T) {
	s := openTestStore(t, nil)
	_, ok, err := s.LastProcessedBlock()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetLastProcessedBlock(42))
	n, ok, err := s.LastProcessedBlock()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(42), n)
}
