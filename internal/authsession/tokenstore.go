package authsession

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tallied-dev/tallied/internal/model"
	"github.com/tallied-dev/tallied/internal/store"
)

// StoreTokens persists the session token through the core's document
// store under a fixed id. Deployments with a dedicated secrets store can
// supply their own TokenStore instead.
type StoreTokens struct {
	Store store.Store
}

const tokenID = "authority"

// LoadToken reads the persisted token, or ErrNoToken if none was saved.
func (s StoreTokens) LoadToken(ctx context.Context) (model.AuthToken, error) {
	rec, err := s.Store.Load(ctx, store.KindToken, tokenID)
	if errors.Is(err, store.ErrNotFound) {
		return model.AuthToken{}, ErrNoToken
	}
	if err != nil {
		return model.AuthToken{}, fmt.Errorf("loading token: %w", err)
	}

	var token model.AuthToken
	if err := json.Unmarshal(rec, &token); err != nil {
		return model.AuthToken{}, fmt.Errorf("decoding token: %w", err)
	}
	return token, nil
}

// SaveToken writes the token.
func (s StoreTokens) SaveToken(ctx context.Context, token model.AuthToken) error {
	rec, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}
	if err := s.Store.Save(ctx, store.KindToken, tokenID, rec); err != nil {
		return fmt.Errorf("saving token: %w", err)
	}
	return nil
}
