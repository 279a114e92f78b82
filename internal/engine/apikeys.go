package engine

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"

	"vontta/internal/domain"
	"vontta/internal/repo"
)

const apiKeyPrefix = "vt_"

// CreateAPIKey issues a key for the actor. The raw key is returned once; only
// its hash is stored.
func (e Engine) CreateAPIKey(ctx context.Context, actorID, name string) (domain.APIKey, string, error) {
	actor, err := e.actor(ctx, actorID)
	if err != nil {
		return domain.APIKey{}, "", err
	}
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return domain.APIKey{}, "", fmt.Errorf("generate api key: %w", err)
	}
	raw := apiKeyPrefix + hex.EncodeToString(buf)
	key := domain.APIKey{
		ID:        uuid.NewString(),
		UserID:    actor.ID,
		Name:      name,
		KeyHash:   repo.HashAPIKey(raw),
		CreatedAt: e.timestamp(),
	}
	if err := e.Repo.InsertAPIKey(ctx, nil, key); err != nil {
		return domain.APIKey{}, "", err
	}
	return key, raw, nil
}

// ListAPIKeys lists the actor's keys; admins see every key.
func (e Engine) ListAPIKeys(ctx context.Context, actorID string) ([]domain.APIKey, error) {
	actor, err := e.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	owner := actor.ID
	if actor.IsAdmin() {
		owner = ""
	}
	return e.Repo.ListAPIKeys(ctx, owner)
}

// ResolveAPIKey returns the profile id owning raw.
func (e Engine) ResolveAPIKey(ctx context.Context, raw string) (string, error) {
	key, err := e.Repo.GetAPIKeyByHash(ctx, repo.HashAPIKey(raw))
	if err != nil {
		return "", err
	}
	return key.UserID, nil
}

func (e Engine) DeleteAPIKey(ctx context.Context, actorID, id string) error {
	if _, err := e.admin(ctx, actorID); err != nil {
		return err
	}
	return e.Repo.DeleteAPIKey(ctx, id)
}
