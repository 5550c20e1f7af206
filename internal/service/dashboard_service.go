package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/lumostories/telemetry-api/internal/dto"
	"github.com/lumostories/telemetry-api/internal/models"
	"github.com/lumostories/telemetry-api/internal/repository"
)

// DashboardService computes activity rollups for the admin dashboard.
// Aggregation is in-memory over fetched pages and therefore bounded by the
// configured maximum date span.
type DashboardService interface {
	Summary(ctx context.Context, filter QueryFilter) (dto.ActivitySummaryResponse, error)
}

type dashboardService struct {
	query        ActivityQueryService
	cache        *redis.Client
	cacheTTL     time.Duration
	maxRangeDays int
	scanLimit    int
	logger       zerolog.Logger
	now          func() time.Time
}

// NewDashboardService constructs the aggregation service. scanLimit bounds
// the number of rows a single summary may pull into memory.
func NewDashboardService(query ActivityQueryService, cache *redis.Client, cacheTTL time.Duration, maxRangeDays, scanLimit int, logger zerolog.Logger) DashboardService {
	if maxRangeDays <= 0 {
		maxRangeDays = 92
	}
	if scanLimit <= 0 {
		scanLimit = 100000
	}
	return &dashboardService{
		query:        query,
		cache:        cache,
		cacheTTL:     cacheTTL,
		maxRangeDays: maxRangeDays,
		scanLimit:    scanLimit,
		logger:       logger.With().Str("component", "dashboard_service").Logger(),
		now:          time.Now,
	}
}

// Summary aggregates the filter window. It is side-effect-free and
// idempotent: a closed historical range always yields the same rollups,
// while a window including "now" may grow between calls. Windows wider than
// the configured span, or holding more rows than the scan bound, fail with
// RangeTooWideError so the caller narrows the window instead of reading
// silently truncated numbers.
func (s *dashboardService) Summary(ctx context.Context, filter QueryFilter) (dto.ActivitySummaryResponse, error) {
	if filter.From == nil || filter.To == nil {
		return dto.ActivitySummaryResponse{}, validationErrorf("summary requires a bounded date range")
	}

	days := spanDays(*filter.From, *filter.To)
	if days < 0 {
		return dto.ActivitySummaryResponse{}, validationErrorf("date range start is after its end")
	}
	if days > s.maxRangeDays {
		return dto.ActivitySummaryResponse{}, &RangeTooWideError{Days: days, MaxDays: s.maxRangeDays}
	}

	cacheKey := summaryCacheKey(filter)
	tracer := otel.Tracer("github.com/lumostories/telemetry-api/internal/service/dashboard")
	ctx, span := tracer.Start(ctx, "activity.summary")
	span.SetAttributes(
		attribute.String("summary.cache_key", cacheKey),
		attribute.Int("summary.range_days", days),
	)
	defer span.End()

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, cacheKey).Result()
		if err == nil {
			var response dto.ActivitySummaryResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				response.CacheHit = true
				span.SetAttributes(attribute.Bool("summary.cache_hit", true))
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read summary cache")
			span.RecordError(err)
		}
	}

	entries, truncated, err := s.query.Gather(ctx, filter, s.scanLimit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "gather_failed")
		return dto.ActivitySummaryResponse{}, err
	}
	if truncated {
		return dto.ActivitySummaryResponse{}, &RangeTooWideError{Days: days, MaxDays: s.maxRangeDays}
	}

	summary := s.buildSummary(entries)
	span.SetAttributes(attribute.Int64("summary.total_events", summary.TotalEvents))

	if s.cache != nil {
		payload, err := json.Marshal(summary)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store summary cache")
				span.RecordError(err)
			}
		}
	}

	return summary, nil
}

func (s *dashboardService) buildSummary(entries []models.LogEntry) dto.ActivitySummaryResponse {
	byType := map[string]int64{}
	byAction := map[string]int64{}
	byActionResult := map[string]map[string]int64{}
	daily := map[string]int64{}
	actors := map[string]struct{}{}

	var failures int64
	for _, entry := range entries {
		byType[entry.Type]++
		byAction[entry.Action]++

		matrix, ok := byActionResult[entry.Action]
		if !ok {
			matrix = map[string]int64{}
			byActionResult[entry.Action] = matrix
		}
		matrix[entry.Result]++

		// Day buckets come from the stored localized breakdown, matching
		// the filter semantics exactly.
		daily[fmt.Sprintf("%04d-%02d-%02d", entry.Year, entry.Month, entry.Day)]++

		if entry.ActorID != nil {
			actors[*entry.ActorID] = struct{}{}
		}
		if entry.Result == string(models.ResultFail) {
			failures++
		}
	}

	total := int64(len(entries))
	failureRate := 0.0
	if total > 0 {
		failureRate = float64(failures) / float64(total)
	}

	return dto.ActivitySummaryResponse{
		TotalEvents:    total,
		Failures:       failures,
		FailureRate:    failureRate,
		DistinctActors: int64(len(actors)),
		ByType:         byType,
		ByAction:       byAction,
		ByActionResult: byActionResult,
		DailyCounts:    daily,
		GeneratedAt:    s.now().UTC(),
	}
}

func spanDays(from, to repository.LocalDate) int {
	start := time.Date(from.Year, time.Month(from.Month), from.Day, 0, 0, 0, 0, time.UTC)
	end := time.Date(to.Year, time.Month(to.Month), to.Day, 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start).Hours() / 24)
}

func summaryCacheKey(filter QueryFilter) string {
	payload, _ := json.Marshal(struct {
		Types   []string
		Actions []string
		Results []string
		From    *repository.LocalDate
		To      *repository.LocalDate
		Search  string
	}{filter.Types, filter.Actions, filter.Results, filter.From, filter.To, filter.Search})

	digest := sha256.Sum256(payload)
	return "activity:summary:" + hex.EncodeToString(digest[:8])
}
