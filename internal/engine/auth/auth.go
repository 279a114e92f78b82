package auth

import (
	"context"
	"errors"
	"fmt"

	"vontta/internal/domain"
)

// Permissions named in ForbiddenError.
const (
	PermAdmin    = "admin"
	PermEditTask = "task.edit"
	PermSelf     = "profile.self"
)

// ForbiddenError indicates missing permission.
type ForbiddenError struct {
	Permission string
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("permission %s required", e.Permission)
}

// ErrUnknownActor is returned when the acting user has no profile.
var ErrUnknownActor = errors.New("unknown actor")

// ProfileStore looks up acting users.
type ProfileStore interface {
	GetProfile(ctx context.Context, id string) (domain.Profile, error)
}

// Service resolves actors and checks role rules.
type Service struct {
	Profiles ProfileStore
}

// Actor loads the profile of actorID.
func (s Service) Actor(ctx context.Context, actorID string) (domain.Profile, error) {
	if actorID == "" {
		return domain.Profile{}, ErrUnknownActor
	}
	p, err := s.Profiles.GetProfile(ctx, actorID)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("%w %s: %v", ErrUnknownActor, actorID, err)
	}
	return p, nil
}

// RequireAdmin fails unless actor is an admin.
func RequireAdmin(actor domain.Profile) error {
	if !actor.IsAdmin() {
		return ForbiddenError{Permission: PermAdmin}
	}
	return nil
}

// CanEditTask allows the task's collaborator and any admin.
func CanEditTask(actor domain.Profile, t domain.Task) error {
	if actor.IsAdmin() || t.CollaboratorID == actor.ID {
		return nil
	}
	return ForbiddenError{Permission: PermEditTask}
}

// CanEditProfile allows users to edit themselves and admins to edit anyone.
// Only admins may change a role.
func CanEditProfile(actor domain.Profile, targetID string, patch domain.ProfilePatch) error {
	if actor.IsAdmin() {
		return nil
	}
	if actor.ID != targetID {
		return ForbiddenError{Permission: PermSelf}
	}
	if patch.Role != nil && *patch.Role != actor.Role {
		return ForbiddenError{Permission: PermAdmin}
	}
	return nil
}
