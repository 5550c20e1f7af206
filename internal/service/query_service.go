package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lumostories/telemetry-api/internal/models"
	"github.com/lumostories/telemetry-api/internal/repository"
)

// maxFilterValues bounds the number of values accepted per multi-value
// filter field, mirroring the backing store's IN-clause limit.
const maxFilterValues = 10

// QueryFilter is the shared filter value object. The explorer, the
// aggregation engine, and the export pipeline all consume it unchanged so
// the three surfaces always agree on the result set.
type QueryFilter struct {
	Types   []string
	Actions []string
	Results []string
	From    *repository.LocalDate
	To      *repository.LocalDate
	Search  string
}

// ActivityPage is one cursor page of filtered entries.
type ActivityPage struct {
	Entries    []models.LogEntry
	NextCursor string
	HasMore    bool
}

// ActivityQueryService pages and gathers log entries. Ordering is always
// descending (timestamp, id); it is the only ordering contract in the
// system.
type ActivityQueryService interface {
	Page(ctx context.Context, filter QueryFilter, cursor string, pageSize int) (ActivityPage, error)
	Gather(ctx context.Context, filter QueryFilter, maxRecords int) ([]models.LogEntry, bool, error)
}

type activityQueryService struct {
	repo            repository.LogEntryRepository
	defaultPageSize int
	maxPageSize     int
	logger          zerolog.Logger
}

// NewActivityQueryService constructs the query engine.
func NewActivityQueryService(repo repository.LogEntryRepository, defaultPageSize, maxPageSize int, logger zerolog.Logger) ActivityQueryService {
	if defaultPageSize <= 0 {
		defaultPageSize = 100
	}
	if maxPageSize < defaultPageSize {
		maxPageSize = defaultPageSize
	}
	return &activityQueryService{
		repo:            repo,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
		logger:          logger.With().Str("component", "activity_query_service").Logger(),
	}
}

// Page returns one page of entries. Page sizes above the maximum are
// clamped, not rejected. Free-text search is a local post-filter over the
// fetched page, so a page may carry fewer items than requested while more
// data remains.
func (s *activityQueryService) Page(ctx context.Context, filter QueryFilter, cursor string, pageSize int) (ActivityPage, error) {
	normalized, err := normalizeFilter(filter)
	if err != nil {
		return ActivityPage{}, err
	}

	if pageSize <= 0 {
		pageSize = s.defaultPageSize
	}
	if pageSize > s.maxPageSize {
		pageSize = s.maxPageSize
	}

	after, err := decodeCursor(cursor)
	if err != nil {
		return ActivityPage{}, err
	}

	entries, err := s.repo.Page(ctx, normalized.store, after, pageSize+1)
	if err != nil {
		return ActivityPage{}, wrapStoreErr(err)
	}

	hasMore := len(entries) > pageSize
	if hasMore {
		entries = entries[:pageSize]
	}

	nextCursor := ""
	if hasMore && len(entries) > 0 {
		nextCursor = encodeCursor(entries[len(entries)-1])
	}

	return ActivityPage{
		Entries:    filterBySearch(entries, normalized.search),
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// Gather walks pages until maxRecords entries are collected or the log is
// exhausted. The second return value reports whether more matching entries
// remained beyond the bound.
func (s *activityQueryService) Gather(ctx context.Context, filter QueryFilter, maxRecords int) ([]models.LogEntry, bool, error) {
	if maxRecords <= 0 {
		return nil, false, nil
	}

	collected := make([]models.LogEntry, 0, min(maxRecords, s.defaultPageSize))
	cursor := ""

	for {
		page, err := s.Page(ctx, filter, cursor, s.defaultPageSize)
		if err != nil {
			return nil, false, err
		}

		for _, entry := range page.Entries {
			if len(collected) == maxRecords {
				return collected, true, nil
			}
			collected = append(collected, entry)
		}

		if !page.HasMore || page.NextCursor == "" {
			return collected, false, nil
		}
		cursor = page.NextCursor
	}
}

type normalizedFilter struct {
	store  repository.LogEntryFilter
	search string
}

func normalizeFilter(filter QueryFilter) (normalizedFilter, error) {
	types, err := normalizeValues("type", filter.Types, nil)
	if err != nil {
		return normalizedFilter{}, err
	}

	actions, err := normalizeValues("action", filter.Actions, nil)
	if err != nil {
		return normalizedFilter{}, err
	}

	results, err := normalizeValues("result", filter.Results, func(value string) string {
		return string(normalizeResult(value))
	})
	if err != nil {
		return normalizedFilter{}, err
	}

	if filter.From != nil && filter.To != nil && filter.From.Key() > filter.To.Key() {
		return normalizedFilter{}, validationErrorf("date range start is after its end")
	}

	return normalizedFilter{
		store: repository.LogEntryFilter{
			Types:   types,
			Actions: actions,
			Results: results,
			From:    filter.From,
			To:      filter.To,
		},
		search: strings.ToLower(strings.TrimSpace(filter.Search)),
	}, nil
}

func normalizeValues(field string, values []string, transform func(string) string) ([]string, error) {
	seen := map[string]struct{}{}
	cleaned := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		if transform != nil {
			trimmed = transform(trimmed)
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		cleaned = append(cleaned, trimmed)
	}

	if len(cleaned) > maxFilterValues {
		return nil, validationErrorf("at most %d %s filter values are supported", maxFilterValues, field)
	}

	return cleaned, nil
}

// filterBySearch applies the free-text token over params and metadata of the
// already-fetched page. The store's query language only supports indexed
// equality and range, so this never pushes down.
func filterBySearch(entries []models.LogEntry, search string) []models.LogEntry {
	if search == "" {
		return entries
	}

	matched := make([]models.LogEntry, 0, len(entries))
	for _, entry := range entries {
		if entryMatches(entry, search) {
			matched = append(matched, entry)
		}
	}
	return matched
}

func entryMatches(entry models.LogEntry, search string) bool {
	for _, param := range entry.Params() {
		if param != nil && strings.Contains(strings.ToLower(*param), search) {
			return true
		}
	}
	if entry.ActorID != nil && strings.Contains(strings.ToLower(*entry.ActorID), search) {
		return true
	}
	for _, value := range entry.Metadata {
		text, ok := value.(string)
		if ok && strings.Contains(strings.ToLower(text), search) {
			return true
		}
	}
	return false
}

func encodeCursor(entry models.LogEntry) string {
	payload, err := json.Marshal(repository.Keyset{Timestamp: entry.Timestamp, ID: entry.ID})
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(payload)
}

func decodeCursor(cursor string) (*repository.Keyset, error) {
	trimmed := strings.TrimSpace(cursor)
	if trimmed == "" {
		return nil, nil
	}

	payload, err := base64.RawURLEncoding.DecodeString(trimmed)
	if err != nil {
		return nil, validationErrorf("invalid cursor")
	}

	var keyset repository.Keyset
	if err := json.Unmarshal(payload, &keyset); err != nil || keyset.Timestamp.IsZero() {
		return nil, validationErrorf("invalid cursor")
	}

	return &keyset, nil
}

func wrapStoreErr(err error) error {
	var indexErr *repository.IndexRequiredError
	if errors.As(err, &indexErr) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
