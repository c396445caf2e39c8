package services

import (
	apperrors "github.com/Templasan/MarketPlacer/common/errors"
	"github.com/Templasan/MarketPlacer/models"
	"github.com/google/uuid"
)

// CanMutate is the single ownership rule: admins may act on anything, everyone
// else only on what they own.
func CanMutate(ownerID uuid.UUID, caller models.Caller) bool {
	return caller.Role == models.RoleAdmin || caller.ID == ownerID
}

// RequireOwner returns a Forbidden error when caller may not act on ownerID's resource.
func RequireOwner(ownerID uuid.UUID, caller models.Caller) error {
	if !CanMutate(ownerID, caller) {
		return apperrors.Forbidden("you do not have permission to modify this resource")
	}
	return nil
}
