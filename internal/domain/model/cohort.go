package model

import "time"

// Cohort is a time-boxed group of learners following a shared curriculum.
// Lifecycle management (create/update/publish) belongs to the cohort-management
// service; this service reads cohorts and, for admins, cascade-deletes them.
type Cohort struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	IsActive    bool      `json:"is_active"`
	IsDraft     bool      `json:"is_draft"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Module is an ordered unit of a cohort containing questions.
type Module struct {
	ID          string    `json:"id"`
	CohortID    string    `json:"cohort_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	SortOrder   int       `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
