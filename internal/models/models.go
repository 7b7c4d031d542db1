// Package models defines data structures used throughout the beta portal.
package models

import (
	"database/sql"
	"encoding/json"
	"slices"
	"strings"
	"time"
)

// TesterStatus is the lifecycle state of a beta tester account
type TesterStatus string

// Tester statuses
const (
	TesterStatusPending   TesterStatus = "pending"
	TesterStatusApproved  TesterStatus = "approved"
	TesterStatusActive    TesterStatus = "active"
	TesterStatusSuspended TesterStatus = "suspended"
)

// TesterStatuses lists every valid tester status
var TesterStatuses = []TesterStatus{TesterStatusPending, TesterStatusApproved, TesterStatusActive, TesterStatusSuspended}

// Valid reports whether s is a known tester status
func (s TesterStatus) Valid() bool {
	return slices.Contains(TesterStatuses, s)
}

// Tester represents a registered beta program participant
type Tester struct {
	ID                 int            `json:"id" yaml:"id"`
	ExternalID         sql.NullString `json:"externalId" yaml:"external_id"`
	Name               string         `json:"name" yaml:"name"`
	Email              string         `json:"email" yaml:"email"`
	Company            sql.NullString `json:"company" yaml:"company"`
	Role               string         `json:"role" yaml:"role"`
	AircraftTypes      sql.NullString `json:"aircraftTypes" yaml:"aircraft_types"`
	CurrentSoftware    sql.NullString `json:"currentSoftware" yaml:"current_software"`
	InterestedProducts sql.NullString `json:"interestedProducts" yaml:"interested_products"`
	Status             TesterStatus   `json:"status" yaml:"status"`
	AgreedToTerms      bool           `json:"agreedToTerms" yaml:"agreed_to_terms"`
	Notes              sql.NullString `json:"notes" yaml:"notes"`
	RegisteredAt       time.Time      `json:"registeredAt" yaml:"registered_at"`
	ApprovedAt         sql.NullTime   `json:"approvedAt" yaml:"approved_at"`
	LastActiveAt       sql.NullTime   `json:"lastActiveAt" yaml:"last_active_at"`
}

// HasPortalAccess reports whether the tester may use the portal
func (t *Tester) HasPortalAccess() bool {
	return t != nil && (t.Status == TesterStatusApproved || t.Status == TesterStatusActive)
}

// Products splits the comma-joined interested products
func (t *Tester) Products() []string {
	if !t.InterestedProducts.Valid {
		return nil
	}
	var out []string
	for _, p := range strings.Split(t.InterestedProducts.String, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// MarshalJSON renders nullable columns as JSON null instead of {String, Valid}
func (t Tester) MarshalJSON() (result0 []byte, err error) {
	return json.Marshal(&struct {
		ID                 int          `json:"id"`
		ExternalID         *string      `json:"externalId"`
		Name               string       `json:"name"`
		Email              string       `json:"email"`
		Company            *string      `json:"company"`
		Role               string       `json:"role"`
		AircraftTypes      *string      `json:"aircraftTypes"`
		CurrentSoftware    *string      `json:"currentSoftware"`
		InterestedProducts *string      `json:"interestedProducts"`
		Status             TesterStatus `json:"status"`
		AgreedToTerms      bool         `json:"agreedToTerms"`
		Notes              *string      `json:"notes"`
		RegisteredAt       time.Time    `json:"registeredAt"`
		ApprovedAt         *time.Time   `json:"approvedAt"`
		LastActiveAt       *time.Time   `json:"lastActiveAt"`
	}{
		ID:                 t.ID,
		ExternalID:         nullStringToPointer(t.ExternalID),
		Name:               t.Name,
		Email:              t.Email,
		Company:            nullStringToPointer(t.Company),
		Role:               t.Role,
		AircraftTypes:      nullStringToPointer(t.AircraftTypes),
		CurrentSoftware:    nullStringToPointer(t.CurrentSoftware),
		InterestedProducts: nullStringToPointer(t.InterestedProducts),
		Status:             t.Status,
		AgreedToTerms:      t.AgreedToTerms,
		Notes:              nullStringToPointer(t.Notes),
		RegisteredAt:       t.RegisteredAt,
		ApprovedAt:         nullTimeToPointer(t.ApprovedAt),
		LastActiveAt:       nullTimeToPointer(t.LastActiveAt),
	})
}

// TesterCounts are the owned-record counts shown on profile and admin views
type TesterCounts struct {
	BugReports      int `json:"bugReports"`
	FeatureRequests int `json:"featureRequests"`
	Votes           int `json:"votes,omitempty"`
}

// TesterWithCounts is a tester plus the counts of what they own
type TesterWithCounts struct {
	Tester
	Counts TesterCounts `json:"_count"`
}

// MarshalJSON flattens the tester fields next to the counts
func (t TesterWithCounts) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(t.Tester)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(base, &fields); err != nil {
		return nil, err
	}
	counts, err := json.Marshal(t.Counts)
	if err != nil {
		return nil, err
	}
	fields["_count"] = counts
	return json.Marshal(fields)
}

// TesterSummary is the public slice of a tester shown next to their reports
type TesterSummary struct {
	ID      int     `json:"id"`
	Name    string  `json:"name"`
	Email   string  `json:"email,omitempty"`
	Company *string `json:"company,omitempty"`
}

// Helper functions for converting sql.Null types to pointers
func nullStringToPointer(ns sql.NullString) *string {
	if ns.Valid {
		return &ns.String
	}
	return nil
}

func nullTimeToPointer(nt sql.NullTime) *time.Time {
	if nt.Valid {
		return &nt.Time
	}
	return nil
}
