package models

import "time"

// Tracker scopes
const (
	TrackerScopeAll      = "all"
	TrackerScopeBugs     = "bugs"
	TrackerScopeFeatures = "features"
)

// Tracker sort keys
const (
	TrackerSortNewest   = "newest"
	TrackerSortOldest   = "oldest"
	TrackerSortVotes    = "votes"
	TrackerSortSeverity = "severity"
)

// TrackerPageSize is the per-type page size of the combined tracker
const TrackerPageSize = 50

// TrackerQuery selects rows for the combined bug and feature tracker
type TrackerQuery struct {
	Scope      string
	Search     string
	Category   string
	Statuses   []string
	Severities []string
	Sort       string
	Page       int
}

// TrackerRow is one bug or feature in the combined tracker. Severity holds a
// bug's severity or a feature's priority.
type TrackerRow struct {
	Type         ReportKind `json:"type"`
	ID           int        `json:"id"`
	Number       string     `json:"number"`
	Title        string     `json:"title"`
	Category     string     `json:"category"`
	Status       string     `json:"status"`
	Severity     string     `json:"severity"`
	VoteCount    int        `json:"voteCount"`
	Author       string     `json:"author"`
	CommentCount int        `json:"commentCount"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// TrackerResult is one tracker page
type TrackerResult struct {
	Rows       []TrackerRow `json:"rows"`
	Page       int          `json:"page"`
	TotalPages int          `json:"totalPages"`
}
