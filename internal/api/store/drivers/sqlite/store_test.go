package sqlite

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewStore_AppliesDSNPragmas(t *testing.T) {
	t.Parallel()

	// The modernc driver only honors _pragma=name(value) parameters; this
	// pins that the production DSN shape actually takes effect.
	path := filepath.Join(t.TempDir(), "pragmas.db")
	s, err := NewStore("file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	var journalMode string
	require.NoError(t, s.db.QueryRow(`PRAGMA journal_mode`).Scan(&journalMode))
	require.Equal(t, "wal", strings.ToLower(journalMode))

	var busyTimeout int
	require.NoError(t, s.db.QueryRow(`PRAGMA busy_timeout`).Scan(&busyTimeout))
	require.Equal(t, 5000, busyTimeout)
}
