package app

import "sopbot/internal/model"

// Identity describes the requester as established by the transport layer.
// The zero value is an anonymous guest.
type Identity struct {
	UserID   *uint
	Username string
	Name     string
	Role     string
}

// EffectiveRole returns the analytics role bucket for this identity.
func (i Identity) EffectiveRole() string {
	if i.Role == "" {
		return model.RoleGuest
	}
	return i.Role
}

// IsAdministrator reports whether this identity may mutate the knowledge base.
func (i Identity) IsAdministrator() bool {
	return i.Role == model.RoleAdministrator
}

// Identified reports whether a real user stands behind this request.
func (i Identity) Identified() bool {
	return i.UserID != nil
}
