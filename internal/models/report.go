package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ReportKind distinguishes the two feedback entity types
type ReportKind string

// Report kinds
const (
	ReportKindBug     ReportKind = "bug"
	ReportKindFeature ReportKind = "feature"
)

// ParseReportKind validates a path or body value as a report kind
func ParseReportKind(s string) (ReportKind, bool) {
	switch ReportKind(s) {
	case ReportKindBug, ReportKindFeature:
		return ReportKind(s), true
	default:
		return "", false
	}
}

// Errors returned when a target reference is malformed
var (
	ErrNoReportTarget    = errors.New("no report target")
	ErrBothReportTargets = errors.New("both bug and feature targets set")
)

// ReportRef points at exactly one bug report or feature request
type ReportRef struct {
	Kind ReportKind `json:"type"`
	ID   int        `json:"id"`
}

// BugRef references a bug report
func BugRef(id int) ReportRef { return ReportRef{Kind: ReportKindBug, ID: id} }

// FeatureRef references a feature request
func FeatureRef(id int) ReportRef { return ReportRef{Kind: ReportKindFeature, ID: id} }

// RefFromIDs builds a reference from the two optional IDs used on the wire
func RefFromIDs(bugID, featureID *int) (ReportRef, error) {
	hasBug := bugID != nil && *bugID > 0
	hasFeature := featureID != nil && *featureID > 0
	switch {
	case hasBug && hasFeature:
		return ReportRef{}, ErrBothReportTargets
	case hasBug:
		return BugRef(*bugID), nil
	case hasFeature:
		return FeatureRef(*featureID), nil
	default:
		return ReportRef{}, ErrNoReportTarget
	}
}

// Valid reports whether the reference names a kind and a positive ID
func (r ReportRef) Valid() bool {
	_, ok := ParseReportKind(string(r.Kind))
	return ok && r.ID > 0
}

// Columns returns the (bug_report_id, feature_request_id) pair for persistence; exactly one is non-nil
func (r ReportRef) Columns() (bugID, featureID *int) {
	id := r.ID
	if r.Kind == ReportKindBug {
		return &id, nil
	}
	return nil, &id
}

func (r ReportRef) String() string {
	return fmt.Sprintf("%s:%d", r.Kind, r.ID)
}

// BugReport is a defect filed by a tester
type BugReport struct {
	ID               int        `json:"id"`
	ReportNumber     string     `json:"reportNumber"`
	TesterID         int        `json:"testerId"`
	Title            string     `json:"title"`
	Category         string     `json:"category"`
	Severity         string     `json:"severity"`
	Status           string     `json:"status"`
	StepsToReproduce *string    `json:"stepsToReproduce"`
	ExpectedBehavior *string    `json:"expectedBehavior"`
	ActualBehavior   *string    `json:"actualBehavior"`
	BrowserOS        *string    `json:"browserOs"`
	PageURL          *string    `json:"pageUrl"`
	ConsoleErrors    *string    `json:"consoleErrors"`
	AssignedTo       *string    `json:"assignedTo"`
	Resolution       *string    `json:"resolution"`
	FixedInVersion   *string    `json:"fixedInVersion"`
	ResolvedAt       *time.Time `json:"resolvedAt"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`

	// Populated by list queries
	TesterName      string `json:"testerName,omitempty"`
	CommentCount    int    `json:"commentCount"`
	AttachmentCount int    `json:"attachmentCount"`
	VoteCount       int    `json:"voteCount"`
}

// BugReportDetail is a bug with everything the detail page renders
type BugReportDetail struct {
	BugReport
	Tester      *TesterSummary `json:"tester"`
	Attachments []Attachment   `json:"attachments"`
	Comments    []Comment      `json:"comments"`
}

// FeatureRequest is an enhancement proposed by a tester
type FeatureRequest struct {
	ID            int       `json:"id"`
	RequestNumber string    `json:"requestNumber"`
	TesterID      int       `json:"testerId"`
	Title         string    `json:"title"`
	Category      string    `json:"category"`
	Priority      string    `json:"priority"`
	Status        string    `json:"status"`
	Description   string    `json:"description"`
	UseCase       *string   `json:"useCase"`
	TargetVersion *string   `json:"targetVersion"`
	AdminResponse *string   `json:"adminResponse"`
	VoteCount     int       `json:"voteCount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`

	// Populated by list queries
	TesterName   string `json:"testerName,omitempty"`
	CommentCount int    `json:"commentCount"`
}

// FeatureRequestDetail is a feature with the viewer's vote state and its thread
type FeatureRequestDetail struct {
	FeatureRequest
	Tester   *TesterSummary `json:"tester"`
	Comments []Comment      `json:"comments"`
	HasVoted bool           `json:"hasVoted"`
}

// Vote is one tester's vote on one report
type Vote struct {
	ID        int       `json:"id"`
	TesterID  int       `json:"testerId"`
	Target    ReportRef `json:"target"`
	CreatedAt time.Time `json:"createdAt"`
}

// VoteResult is the outcome of a vote toggle
type VoteResult struct {
	Voted     bool `json:"voted"`
	VoteCount int  `json:"voteCount"`
}

// Comment is an append-only message on a report
type Comment struct {
	ID         int       `json:"id"`
	Target     ReportRef `json:"-"`
	TesterID   int       `json:"testerId"`
	AuthorName string    `json:"authorName"`
	IsAdmin    bool      `json:"isAdmin"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
}

// MarshalJSON expands the target into the bugReportId/featureRequestId pair clients expect
func (c Comment) MarshalJSON() ([]byte, error) {
	bugID, featureID := c.Target.Columns()
	return json.Marshal(&struct {
		ID               int       `json:"id"`
		BugReportID      *int      `json:"bugReportId"`
		FeatureRequestID *int      `json:"featureRequestId"`
		TesterID         int       `json:"testerId"`
		AuthorName       string    `json:"authorName"`
		IsAdmin          bool      `json:"isAdmin"`
		Content          string    `json:"content"`
		CreatedAt        time.Time `json:"createdAt"`
	}{
		ID:               c.ID,
		BugReportID:      bugID,
		FeatureRequestID: featureID,
		TesterID:         c.TesterID,
		AuthorName:       c.AuthorName,
		IsAdmin:          c.IsAdmin,
		Content:          c.Content,
		CreatedAt:        c.CreatedAt,
	})
}

// Attachment is metadata for an uploaded file stored in the blob store
type Attachment struct {
	ID        int       `json:"id"`
	Target    ReportRef `json:"-"`
	FileName  string    `json:"fileName"`
	FileURL   string    `json:"fileUrl"`
	FileSize  int64     `json:"fileSize"`
	MimeType  string    `json:"mimeType"`
	CreatedAt time.Time `json:"createdAt"`
}

// MarshalJSON expands the target into the bugReportId/featureRequestId pair
func (a Attachment) MarshalJSON() ([]byte, error) {
	bugID, featureID := a.Target.Columns()
	return json.Marshal(&struct {
		ID               int       `json:"id"`
		BugReportID      *int      `json:"bugReportId"`
		FeatureRequestID *int      `json:"featureRequestId"`
		FileName         string    `json:"fileName"`
		FileURL          string    `json:"fileUrl"`
		FileSize         int64     `json:"fileSize"`
		MimeType         string    `json:"mimeType"`
		CreatedAt        time.Time `json:"createdAt"`
	}{
		ID:               a.ID,
		BugReportID:      bugID,
		FeatureRequestID: featureID,
		FileName:         a.FileName,
		FileURL:          a.FileURL,
		FileSize:         a.FileSize,
		MimeType:         a.MimeType,
		CreatedAt:        a.CreatedAt,
	})
}

// UploadedFile describes a file accepted by the upload endpoint, ready to attach to a report
type UploadedFile struct {
	URL      string `json:"url"`
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
	MimeType string `json:"mimeType"`
}

// Announcement is a release note or notice shown in the portal feed
type Announcement struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Type        string    `json:"type"`
	Version     *string   `json:"version"`
	IsPinned    bool      `json:"isPinned"`
	PublishedAt time.Time `json:"publishedAt"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
