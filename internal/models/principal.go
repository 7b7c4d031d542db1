package models

// Principal is the authenticated caller of a request. ExternalID comes from
// the identity provider; Tester is nil until the caller has registered.
type Principal struct {
	ExternalID string
	IsAdmin    bool
	Tester     *Tester
}

// TesterID returns the bound tester's ID, or 0 when unbound
func (p *Principal) TesterID() int {
	if p == nil || p.Tester == nil {
		return 0
	}
	return p.Tester.ID
}

// CanEdit reports whether the principal may change content owned by ownerTesterID
func (p *Principal) CanEdit(ownerTesterID int) bool {
	if p == nil {
		return false
	}
	if p.IsAdmin {
		return true
	}
	return p.Tester != nil && p.Tester.ID == ownerTesterID
}

// DisplayName is the name stamped on comments, with an admin marker when relevant
func (p *Principal) DisplayName(asAdmin bool) string {
	name := "Unknown"
	if p != nil && p.Tester != nil && p.Tester.Name != "" {
		name = p.Tester.Name
	}
	if asAdmin {
		return name + " (Admin)"
	}
	return name
}
