package service

import "github.com/ikkim/storefront-backend/internal/app/model"

// Actor is the authenticated caller of a write operation.
type Actor struct {
	UserID uint
	Role   model.UserRole
}

func (a Actor) IsStaff() bool {
	return a.Role.IsStaff()
}

// CanModify reports whether the actor owns the resource or is staff.
func (a Actor) CanModify(ownerID *uint) bool {
	if a.IsStaff() {
		return true
	}
	return ownerID != nil && *ownerID == a.UserID
}
