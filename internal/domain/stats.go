package domain

// GateStats — агрегаты для дашборда Console API.
type GateStats struct {
	TotalAttempts  int64            `json:"total_attempts"`
	GrantedCount   int64            `json:"granted_count"`
	DeniedCount    int64            `json:"denied_count"`
	DenialRatio    float64          `json:"denial_ratio"`
	TopReasons     map[string]int64 `json:"top_reasons"`
	HourlyActivity []ActivityPoint  `json:"hourly_activity"`
}

type ActivityPoint struct {
	Hour  string `json:"hour"`
	Count int64  `json:"count"`
}
