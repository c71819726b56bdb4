// history_test.go - Tests fuer die SQLite-Lauf-Historie
package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T, path string) *Store {
	t.Helper()

	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRuns(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "history.db"))

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i, name := range []string{"first", "second", "third"} {
		id, err := s.Record(Run{
			Name:        name,
			Task:        "classification",
			BatchSize:   4,
			Epochs:      10 + i,
			Steps:       100,
			BestValLoss: 0.5,
			StartedAt:   base.Add(time.Duration(i) * time.Hour),
			FinishedAt:  base.Add(time.Duration(i)*time.Hour + time.Minute),
		})
		require.NoError(t, err)
		require.NotEmpty(t, id, "leere ID muss generiert werden")
	}

	runs, err := s.Runs(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	// neueste zuerst
	require.Equal(t, "third", runs[0].Name)
	require.Equal(t, "second", runs[1].Name)
	require.Equal(t, 12, runs[0].Epochs)

	all, err := s.Runs(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestHistoryPersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := Open(path)
	require.NoError(t, err)

	_, err = s.Record(Run{
		ID:         "fixed-id",
		Name:       "persisted",
		Task:       "generation",
		StartedAt:  time.Now(),
		FinishedAt: time.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened := openStore(t, path)
	runs, err := reopened.Runs(0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, "fixed-id", runs[0].ID)
	require.Equal(t, "persisted", runs[0].Name)
}

func TestRecordRejectsDuplicateID(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "history.db"))

	run := Run{ID: "dup", Task: "generation", StartedAt: time.Now(), FinishedAt: time.Now()}
	_, err := s.Record(run)
	require.NoError(t, err)

	_, err = s.Record(run)
	require.Error(t, err)
}
