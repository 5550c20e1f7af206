package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lumostories/telemetry-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// A named in-memory database keeps the pool's connections on one store
	// while isolating tests from each other.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.LogEntry{}))
	return db
}

func seedEntries(t *testing.T, db *gorm.DB, count int) {
	t.Helper()
	base := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < count; i++ {
		day := 1 + i%3
		entry := models.LogEntry{
			Type:      []string{"story", "user"}[i%2],
			Action:    fmt.Sprintf("action-%d", i%2),
			Result:    []string{"success", "fail"}[i%4/3],
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Year:      2025,
			Month:     5,
			Day:       day,
		}
		require.NoError(t, db.Create(&entry).Error)
	}
}

func TestLogEntryRepositoryPagesDescending(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLogEntryRepository(db)
	seedEntries(t, db, 12)

	first, err := repo.Page(context.Background(), LogEntryFilter{}, nil, 5)
	require.NoError(t, err)
	require.Len(t, first, 5)
	for i := 1; i < len(first); i++ {
		require.True(t, first[i].Timestamp.Before(first[i-1].Timestamp))
	}

	last := first[len(first)-1]
	second, err := repo.Page(context.Background(), LogEntryFilter{}, &Keyset{Timestamp: last.Timestamp, ID: last.ID}, 5)
	require.NoError(t, err)
	require.Len(t, second, 5)
	require.True(t, second[0].Timestamp.Before(last.Timestamp))
}

func TestLogEntryRepositoryKeysetBreaksTimestampTies(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLogEntryRepository(db)

	// Three entries sharing one instant; paging must not skip or repeat.
	instant := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		entry := models.LogEntry{
			Type: "story", Action: "story start", Result: "success",
			Timestamp: instant, Year: 2025, Month: 5, Day: 1,
		}
		require.NoError(t, db.Create(&entry).Error)
	}

	first, err := repo.Page(context.Background(), LogEntryFilter{}, nil, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.Greater(t, first[0].ID, first[1].ID)

	last := first[1]
	rest, err := repo.Page(context.Background(), LogEntryFilter{}, &Keyset{Timestamp: last.Timestamp, ID: last.ID}, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	require.Less(t, rest[0].ID, last.ID)
}

func TestLogEntryRepositoryFiltersByIndexedFields(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLogEntryRepository(db)
	seedEntries(t, db, 12)

	stories, err := repo.Page(context.Background(), LogEntryFilter{Types: []string{"story"}}, nil, 50)
	require.NoError(t, err)
	require.Len(t, stories, 6)
	for _, entry := range stories {
		require.Equal(t, "story", entry.Type)
	}

	combo, err := repo.Page(context.Background(), LogEntryFilter{
		Types:   []string{"story"},
		Results: []string{"fail"},
	}, nil, 50)
	require.NoError(t, err)
	for _, entry := range combo {
		require.Equal(t, "story", entry.Type)
		require.Equal(t, "fail", entry.Result)
	}
}

func TestLogEntryRepositoryFiltersByLocalDate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLogEntryRepository(db)
	seedEntries(t, db, 12)

	dayTwo := LocalDate{Year: 2025, Month: 5, Day: 2}
	entries, err := repo.Page(context.Background(), LogEntryFilter{From: &dayTwo, To: &dayTwo}, nil, 50)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	for _, entry := range entries {
		require.Equal(t, 2, entry.Day)
	}

	upTo, err := repo.Page(context.Background(), LogEntryFilter{To: &LocalDate{Year: 2025, Month: 5, Day: 1}}, nil, 50)
	require.NoError(t, err)
	for _, entry := range upTo {
		require.Equal(t, 1, entry.Day)
	}
}

func TestLogEntryRepositoryRejectsUncoveredFilterShape(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLogEntryRepository(db)
	seedEntries(t, db, 4)

	// action+result has no provisioned composite index.
	_, err := repo.Page(context.Background(), LogEntryFilter{
		Actions: []string{"action-0"},
		Results: []string{"fail"},
	}, nil, 50)

	var indexErr *IndexRequiredError
	require.ErrorAs(t, err, &indexErr)
	require.Equal(t, []string{"action", "result"}, indexErr.Fields)

	// All three equality fields together is also uncovered.
	_, err = repo.Page(context.Background(), LogEntryFilter{
		Types:   []string{"story"},
		Actions: []string{"action-0"},
		Results: []string{"fail"},
	}, nil, 50)
	require.ErrorAs(t, err, &indexErr)
}

func TestLogEntryRepositoryWarmup(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLogEntryRepository(db)

	require.NoError(t, repo.Warmup(context.Background()))
}
