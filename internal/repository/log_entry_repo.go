package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/lumostories/telemetry-api/internal/models"
)

// LocalDate is a calendar date in the log's fixed timezone. Range filters
// compare against the year/month/day columns stamped at write time, never
// against the raw instant.
type LocalDate struct {
	Year  int
	Month int
	Day   int
}

// Key collapses the date into a sortable integer (yyyymmdd).
func (d LocalDate) Key() int {
	return d.Year*10000 + d.Month*100 + d.Day
}

// LogEntryFilter narrows log entry queries. Each slice is an OR within the
// field and an AND across fields.
type LogEntryFilter struct {
	Types   []string
	Actions []string
	Results []string
	From    *LocalDate
	To      *LocalDate
}

// Keyset identifies the last entry of the previous page in the descending
// (timestamp, id) order.
type Keyset struct {
	Timestamp time.Time `json:"ts"`
	ID        uint      `json:"id"`
}

// IndexRequiredError reports a filter shape the store has no provisioned
// index for. Provisioning happens out-of-band; the query is not retried.
type IndexRequiredError struct {
	Fields []string
}

func (e *IndexRequiredError) Error() string {
	return fmt.Sprintf("no provisioned index covers filter fields: %s", strings.Join(e.Fields, ", "))
}

// provisionedIndexes lists the equality-field combinations backed by a
// composite index created in AutoMigrate. Keys are sorted field names joined
// with "|". The date range rides on its own (year, month, day) index and may
// combine with any listed shape.
var provisionedIndexes = map[string]struct{}{
	"":            {},
	"type":        {},
	"action":      {},
	"result":      {},
	"action|type": {},
	"result|type": {},
}

// LogEntryRepository persists and reads the append-only activity log.
type LogEntryRepository interface {
	Create(ctx context.Context, entry *models.LogEntry) error
	Page(ctx context.Context, filter LogEntryFilter, after *Keyset, limit int) ([]models.LogEntry, error)
	Warmup(ctx context.Context) error
}

type logEntryRepository struct {
	db *gorm.DB
}

// NewLogEntryRepository constructs the log entry repository.
func NewLogEntryRepository(db *gorm.DB) LogEntryRepository {
	return &logEntryRepository{db: db}
}

func (r *logEntryRepository) Create(ctx context.Context, entry *models.LogEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// Warmup touches the backing table with a bounded read so startup can decide
// whether the sink should begin active.
func (r *logEntryRepository) Warmup(ctx context.Context) error {
	var probe []models.LogEntry
	return r.db.WithContext(ctx).Limit(1).Find(&probe).Error
}

func (r *logEntryRepository) Page(ctx context.Context, filter LogEntryFilter, after *Keyset, limit int) ([]models.LogEntry, error) {
	if err := checkIndexCoverage(filter); err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).Model(&models.LogEntry{})

	if len(filter.Types) > 0 {
		query = query.Where("type IN ?", filter.Types)
	}
	if len(filter.Actions) > 0 {
		query = query.Where("action IN ?", filter.Actions)
	}
	if len(filter.Results) > 0 {
		query = query.Where("result IN ?", filter.Results)
	}
	if filter.From != nil {
		query = query.Where("(year * 10000 + month * 100 + day) >= ?", filter.From.Key())
	}
	if filter.To != nil {
		query = query.Where("(year * 10000 + month * 100 + day) <= ?", filter.To.Key())
	}
	if after != nil {
		query = query.Where("(timestamp < ?) OR (timestamp = ? AND id < ?)", after.Timestamp, after.Timestamp, after.ID)
	}

	var entries []models.LogEntry
	err := query.
		Order("timestamp DESC").
		Order("id DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	return entries, nil
}

func checkIndexCoverage(filter LogEntryFilter) error {
	fields := make([]string, 0, 3)
	if len(filter.Types) > 0 {
		fields = append(fields, "type")
	}
	if len(filter.Actions) > 0 {
		fields = append(fields, "action")
	}
	if len(filter.Results) > 0 {
		fields = append(fields, "result")
	}

	sort.Strings(fields)
	if _, ok := provisionedIndexes[strings.Join(fields, "|")]; !ok {
		return &IndexRequiredError{Fields: fields}
	}
	return nil
}
