package models

import "time"

// MonthlyRevenue is an aggregated revenue bucket.
type MonthlyRevenue struct {
	Month             string  `db:"month" json:"month"`
	ClassRevenue      float64 `db:"class_revenue" json:"class_revenue"`
	MembershipRevenue float64 `db:"membership_revenue" json:"membership_revenue"`
}

// ClassRevenue aggregates paid registrations per class.
type ClassRevenue struct {
	ClassID   string  `db:"class_id" json:"class_id"`
	ClassName string  `db:"class_name" json:"class_name"`
	Payments  int     `db:"payments" json:"payments"`
	Revenue   float64 `db:"revenue" json:"revenue"`
}

// RevenueSummary is the admin revenue dashboard payload.
type RevenueSummary struct {
	TotalRevenue      float64          `json:"total_revenue"`
	ClassRevenue      float64          `json:"class_revenue"`
	MembershipRevenue float64          `json:"membership_revenue"`
	Monthly           []MonthlyRevenue `json:"monthly"`
	TopClasses        []ClassRevenue   `json:"top_classes"`
	GeneratedAt       time.Time        `json:"generated_at"`
}

// SystemMetrics is a lightweight metrics snapshot for ops endpoints.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	ReservationsActive       int64     `json:"reservations_active"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
