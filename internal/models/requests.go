package models

import "time"

// RegisterRequest is the body of a beta application
type RegisterRequest struct {
	Name               string   `json:"name"`
	Email              string   `json:"email"`
	Role               string   `json:"role"`
	Company            *string  `json:"company"`
	AircraftTypes      *string  `json:"aircraftTypes"`
	CurrentSoftware    *string  `json:"currentSoftware"`
	InterestedProducts []string `json:"interestedProducts"`
	AgreedToTerms      bool     `json:"agreedToTerms"`
}

// ProfilePatch is the self-service subset of tester fields
type ProfilePatch struct {
	Company         *string `json:"company"`
	AircraftTypes   *string `json:"aircraftTypes"`
	CurrentSoftware *string `json:"currentSoftware"`
}

// TesterAdminPatch is an admin change to a tester. Nil fields are left unchanged.
type TesterAdminPatch struct {
	Status *TesterStatus `json:"status"`
	Notes  *string       `json:"notes"`
}

// CreateBugRequest is the body of a new bug report
type CreateBugRequest struct {
	Title            string         `json:"title"`
	Category         string         `json:"category"`
	Severity         string         `json:"severity"`
	StepsToReproduce *string        `json:"stepsToReproduce"`
	ExpectedBehavior *string        `json:"expectedBehavior"`
	ActualBehavior   *string        `json:"actualBehavior"`
	BrowserOS        *string        `json:"browserOs"`
	PageURL          *string        `json:"pageUrl"`
	ConsoleErrors    *string        `json:"consoleErrors"`
	AttachmentURLs   []UploadedFile `json:"attachmentUrls"`
}

// BugContentPatch holds the fields a bug's owner may change
type BugContentPatch struct {
	Title            *string `json:"title"`
	Category         *string `json:"category"`
	Severity         *string `json:"severity"`
	StepsToReproduce *string `json:"stepsToReproduce"`
	ExpectedBehavior *string `json:"expectedBehavior"`
	ActualBehavior   *string `json:"actualBehavior"`
	BrowserOS        *string `json:"browserOs"`
	PageURL          *string `json:"pageUrl"`
	ConsoleErrors    *string `json:"consoleErrors"`
}

// BugAdminPatch holds the triage fields only an admin may change
type BugAdminPatch struct {
	Status         *string `json:"status"`
	AssignedTo     *string `json:"assignedTo"`
	Resolution     *string `json:"resolution"`
	FixedInVersion *string `json:"fixedInVersion"`
}

// CreateFeatureRequest is the body of a new feature request
type CreateFeatureRequest struct {
	Title       string  `json:"title"`
	Category    string  `json:"category"`
	Priority    string  `json:"priority"`
	Description string  `json:"description"`
	UseCase     *string `json:"useCase"`
}

// FeatureContentPatch holds the fields a feature's owner may change
type FeatureContentPatch struct {
	Title       *string `json:"title"`
	Category    *string `json:"category"`
	Priority    *string `json:"priority"`
	Description *string `json:"description"`
	UseCase     *string `json:"useCase"`
}

// FeatureAdminPatch holds the triage fields only an admin may change
type FeatureAdminPatch struct {
	Status        *string `json:"status"`
	TargetVersion *string `json:"targetVersion"`
	AdminResponse *string `json:"adminResponse"`
}

// CreateCommentRequest is the body of a new comment; exactly one ID must be set
type CreateCommentRequest struct {
	BugReportID      *int   `json:"bugReportId"`
	FeatureRequestID *int   `json:"featureRequestId"`
	Content          string `json:"content"`
}

// AnnouncementInput is the body of a new announcement
type AnnouncementInput struct {
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Type        string     `json:"type"`
	Version     *string    `json:"version"`
	IsPinned    bool       `json:"isPinned"`
	PublishedAt *time.Time `json:"publishedAt"`
}

// AnnouncementPatch is a partial announcement update
type AnnouncementPatch struct {
	Title       *string    `json:"title"`
	Content     *string    `json:"content"`
	Type        *string    `json:"type"`
	Version     *string    `json:"version"`
	IsPinned    *bool      `json:"isPinned"`
	PublishedAt *time.Time `json:"publishedAt"`
}

// BulkStatusRequest re-statuses a mixed set of reports
type BulkStatusRequest struct {
	Items  []ReportRef `json:"items"`
	Status string      `json:"status"`
}

// BulkStatusItemResult is the outcome for one report in a bulk update
type BulkStatusItemResult struct {
	Type  ReportKind `json:"type"`
	ID    int        `json:"id"`
	OK    bool       `json:"ok"`
	Error string     `json:"error,omitempty"`
}

// BulkStatusResult summarizes a bulk update
type BulkStatusResult struct {
	Results   []BulkStatusItemResult `json:"results"`
	Succeeded int                    `json:"succeededCount"`
	Failed    int                    `json:"failedCount"`
}

// ListBugsFilter selects a page of bug reports
type ListBugsFilter struct {
	Page     int
	Limit    int
	Status   string
	Severity string
	Category string
	Search   string
	TesterID int
}

// ListFeaturesFilter selects a page of feature requests
type ListFeaturesFilter struct {
	Page     int
	Limit    int
	Status   string
	Priority string
	Category string
	Search   string
	Sort     string // "votes" (default) or "newest"
	TesterID int
}

// BugList is a page of bug reports
type BugList struct {
	Bugs       []BugReport `json:"bugs"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	TotalPages int         `json:"totalPages"`
}

// FeatureList is a page of feature requests
type FeatureList struct {
	Features   []FeatureRequest `json:"features"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	TotalPages int              `json:"totalPages"`
}

// MyReports lists everything the calling tester has filed
type MyReports struct {
	Bugs     []BugReport      `json:"bugs"`
	Features []FeatureRequest `json:"features"`
}
