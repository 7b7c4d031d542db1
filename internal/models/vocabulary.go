package models

import "slices"

// Categories are the product areas a report can be filed against. The list is
// advisory: stored categories are free text so older labels keep working.
var Categories = []string{
	"Aircraft Registry",
	"Work Orders",
	"Compliance Engine",
	"Parts Traceability",
	"FAA Forms",
	"Personnel",
	"Reporting",
	"Dashboard",
	"POS / Counter",
	"Accounting / GL",
	"AdaptGent AI",
	"Onboarding",
	"Mobile / PWA",
	"Performance",
	"Authentication",
	"Other",
}

// Severity levels, shared by bug severity and feature priority
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
)

// Severities in rank order
var Severities = []string{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

// Bug statuses
const (
	BugStatusSubmitted     = "submitted"
	BugStatusConfirmed     = "confirmed"
	BugStatusInvestigating = "investigating"
	BugStatusInProgress    = "in-progress"
	BugStatusFixed         = "fixed"
	BugStatusWontFix       = "wont-fix"
	BugStatusDuplicate     = "duplicate"
	BugStatusClosed        = "closed"
)

// BugStatuses is the bug report status vocabulary
var BugStatuses = []string{
	BugStatusSubmitted, BugStatusConfirmed, BugStatusInvestigating, BugStatusInProgress,
	BugStatusFixed, BugStatusWontFix, BugStatusDuplicate, BugStatusClosed,
}

// OpenBugStatuses are the statuses counted as unresolved
var OpenBugStatuses = []string{BugStatusSubmitted, BugStatusConfirmed, BugStatusInvestigating, BugStatusInProgress}

// ClosedBugStatuses are the terminal statuses other than fixed
var ClosedBugStatuses = []string{BugStatusClosed, BugStatusWontFix, BugStatusDuplicate}

// Feature statuses
const (
	FeatureStatusSubmitted   = "submitted"
	FeatureStatusUnderReview = "under-review"
	FeatureStatusPlanned     = "planned"
	FeatureStatusInProgress  = "in-progress"
	FeatureStatusShipped     = "shipped"
	FeatureStatusDeclined    = "declined"
)

// FeatureStatuses is the feature request status vocabulary
var FeatureStatuses = []string{
	FeatureStatusSubmitted, FeatureStatusUnderReview, FeatureStatusPlanned,
	FeatureStatusInProgress, FeatureStatusShipped, FeatureStatusDeclined,
}

// OpenFeatureStatuses are the statuses counted as still in play on the dashboard
var OpenFeatureStatuses = []string{FeatureStatusSubmitted, FeatureStatusUnderReview, FeatureStatusPlanned, FeatureStatusInProgress}

// Announcement types
const (
	AnnouncementTypeUpdate      = "update"
	AnnouncementTypeRelease     = "release"
	AnnouncementTypeBreaking    = "breaking"
	AnnouncementTypeMaintenance = "maintenance"
)

// AnnouncementTypes is the announcement type vocabulary
var AnnouncementTypes = []string{AnnouncementTypeUpdate, AnnouncementTypeRelease, AnnouncementTypeBreaking, AnnouncementTypeMaintenance}

// TesterRoles offered on the registration form
var TesterRoles = []string{
	"A&P Mechanic",
	"IA Inspector",
	"Shop Owner / Manager",
	"Avionics Technician",
	"Parts Manager",
	"Service Writer",
	"Aircraft Owner / Operator",
	"FBO Manager",
	"Other",
}

// CurrentSoftwareOptions offered on the registration form
var CurrentSoftwareOptions = []string{
	"None (paper/spreadsheets)",
	"Corridor / ATP",
	"CAMP Systems",
	"Quantum MX",
	"AvSight",
	"Traxxall",
	"Ramco",
	"Custom / In-house",
	"Other",
}

// ModuleStatus is one row of the public platform status page
type ModuleStatus struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Pct    int    `json:"pct"`
}

// ModulesStatus is the published build state of each product module
var ModulesStatus = []ModuleStatus{
	{Name: "Aircraft Registry", Status: "live", Pct: 100},
	{Name: "Work Order Engine", Status: "live", Pct: 100},
	{Name: "Compliance Engine (AD/SB)", Status: "live", Pct: 100},
	{Name: "Parts Traceability & 8130-3", Status: "live", Pct: 100},
	{Name: "FAA Form Generation (337)", Status: "live", Pct: 100},
	{Name: "Personnel & Calibration", Status: "live", Pct: 100},
	{Name: "Reporting & Analytics", Status: "beta", Pct: 90},
	{Name: "AdaptGent Aviation AI", Status: "beta", Pct: 85},
	{Name: "Customer Portal (Owner)", Status: "beta", Pct: 80},
	{Name: "Data Migration Wizard", Status: "dev", Pct: 60},
	{Name: "Offline / PWA Mode", Status: "dev", Pct: 45},
	{Name: "Laser Operations Module", Status: "planned", Pct: 0},
}

// SeverityRank orders severities for sorting: critical first, unknown values last
func SeverityRank(severity string) int {
	switch severity {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	default:
		return 4
	}
}

// IsSeverity reports whether s is in the severity vocabulary
func IsSeverity(s string) bool { return slices.Contains(Severities, s) }

// IsBugStatus reports whether s is in the bug status vocabulary
func IsBugStatus(s string) bool { return slices.Contains(BugStatuses, s) }

// IsFeatureStatus reports whether s is in the feature status vocabulary
func IsFeatureStatus(s string) bool { return slices.Contains(FeatureStatuses, s) }

// IsAnnouncementType reports whether s is in the announcement type vocabulary
func IsAnnouncementType(s string) bool { return slices.Contains(AnnouncementTypes, s) }
