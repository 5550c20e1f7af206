package dto

import "time"

// ActivitySummaryResponse carries the dashboard rollups for a filter window.
type ActivitySummaryResponse struct {
	TotalEvents    int64                       `json:"total_events"`
	Failures       int64                       `json:"failures"`
	FailureRate    float64                     `json:"failure_rate"`
	DistinctActors int64                       `json:"distinct_actors"`
	ByType         map[string]int64            `json:"by_type"`
	ByAction       map[string]int64            `json:"by_action"`
	ByActionResult map[string]map[string]int64 `json:"by_action_result"`
	DailyCounts    map[string]int64            `json:"daily_counts"`
	GeneratedAt    time.Time                   `json:"generated_at"`
	CacheHit       bool                        `json:"cache_hit"`
}
