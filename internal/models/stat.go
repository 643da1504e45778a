package models

// Stat is one KPI card shown on the dashboard overview.
type Stat struct {
	ID        int64  `db:"id" json:"id"`
	Title     string `db:"title" json:"title"`
	Value     string `db:"value" json:"value"`
	Change    string `db:"change" json:"change"`
	Direction string `db:"direction" json:"direction"`
	Icon      string `db:"icon" json:"icon"`
	IconBg    string `db:"icon_bg" json:"iconBg"`
}

// MetricsSnapshot is a lightweight view of runtime counters.
type MetricsSnapshot struct {
	Requests      uint64  `json:"requests"`
	AvgResponseMs float64 `json:"avg_response_ms"`
	CacheHits     uint64  `json:"cache_hits"`
	CacheMisses   uint64  `json:"cache_misses"`
	CacheHitRatio float64 `json:"cache_hit_ratio"`
	UserMutations uint64  `json:"user_mutations"`
	Goroutines    int     `json:"goroutines"`
}
