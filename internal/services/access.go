package services

import (
	"strings"

	"betaportal/internal/models"
)

// AccessPolicy decides admin capability from the configured allow-list of
// external identity IDs. Admin capability does not depend on tester status.
type AccessPolicy struct {
	admins map[string]struct{}
	order  []string
}

// NewAccessPolicy builds a policy from allow-listed external IDs. Blank entries are ignored.
func NewAccessPolicy(adminIDs []string) *AccessPolicy {
	p := &AccessPolicy{admins: make(map[string]struct{}, len(adminIDs))}
	for _, id := range adminIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := p.admins[id]; !dup {
			p.admins[id] = struct{}{}
			p.order = append(p.order, id)
		}
	}
	return p
}

// IsAdmin reports whether externalID is on the allow-list
func (p *AccessPolicy) IsAdmin(externalID string) bool {
	if p == nil {
		return false
	}
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return false
	}
	_, ok := p.admins[externalID]
	return ok
}

// AdminIDs returns the allow-listed IDs in configuration order
func (p *AccessPolicy) AdminIDs() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.order...)
}

// AccessState is the portal gate decision for a signed-in principal
type AccessState string

// Access states
const (
	AccessUnregistered AccessState = "unregistered"
	AccessPending      AccessState = "pending"
	AccessSuspended    AccessState = "suspended"
	AccessApproved     AccessState = "approved"
)

// Portal screens selected by the gate
const (
	ScreenSignIn               = "sign-in"
	ScreenRegistrationRequired = "registration-required"
	ScreenUnderReview          = "under-review"
	ScreenSuspended            = "suspended"
	ScreenPortal               = "portal"
)

// ClassifyAccess maps a (possibly missing) tester to its access state
func ClassifyAccess(tester *models.Tester) AccessState {
	if tester == nil {
		return AccessUnregistered
	}
	switch tester.Status {
	case models.TesterStatusApproved, models.TesterStatusActive:
		return AccessApproved
	case models.TesterStatusSuspended:
		return AccessSuspended
	default:
		return AccessPending
	}
}

// ScreenFor returns the portal screen shown for state
func ScreenFor(state AccessState) string {
	switch state {
	case AccessApproved:
		return ScreenPortal
	case AccessSuspended:
		return ScreenSuspended
	case AccessPending:
		return ScreenUnderReview
	default:
		return ScreenRegistrationRequired
	}
}

// ScreenTitle is the heading rendered on a gate screen
func ScreenTitle(screen string) string {
	switch screen {
	case ScreenRegistrationRequired:
		return "Beta Access Required"
	case ScreenUnderReview:
		return "Application Under Review"
	case ScreenSuspended:
		return "Access Suspended"
	case ScreenSignIn:
		return "Sign In"
	default:
		return ""
	}
}

// AccessDecision is the payload of GET /v1/portal/access
type AccessDecision struct {
	State   AccessState    `json:"state"`
	Screen  string         `json:"screen"`
	Title   string         `json:"title,omitempty"`
	IsAdmin bool           `json:"isAdmin"`
	Tester  *models.Tester `json:"tester,omitempty"`
}

// Decide combines the tester lookup and the allow-list into one gate decision
func Decide(policy *AccessPolicy, externalID string, tester *models.Tester) AccessDecision {
	if strings.TrimSpace(externalID) == "" {
		return AccessDecision{State: AccessUnregistered, Screen: ScreenSignIn, Title: ScreenTitle(ScreenSignIn)}
	}
	state := ClassifyAccess(tester)
	screen := ScreenFor(state)
	return AccessDecision{
		State:   state,
		Screen:  screen,
		Title:   ScreenTitle(screen),
		IsAdmin: policy.IsAdmin(externalID),
		Tester:  tester,
	}
}
