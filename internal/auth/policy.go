package auth

import "github.com/google/uuid"

// Authorize decides whether requester may act on a resource owned by
// resourceOwnerID. Owners may act on their own resources; admins may act on
// anything. The decision is a pure function of the arguments so handlers can
// (and must) call it before touching any collaborator.
func Authorize(requester *User, resourceOwnerID uuid.UUID) error {
	if requester == nil {
		return ErrForbidden
	}
	if requester.Role == RoleAdmin {
		return nil
	}
	if requester.ID == resourceOwnerID {
		return nil
	}
	return ErrForbidden
}

// RequireRole decides whether requester holds the given role exactly.
// Ownership is ignored; admin-only endpoints use this.
func RequireRole(requester *User, role Role) error {
	if requester == nil || requester.Role != role {
		return ErrForbidden
	}
	return nil
}
