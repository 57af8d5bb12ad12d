// Package verifycache stores recent credential verification results in
// Redis so repeated verify calls do not hammer the schemes.
package verifycache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"depositgate/internal/platform/redis"
	"depositgate/internal/scheme"
	id "depositgate/pkg/domain"

	goredis "github.com/redis/go-redis/v9"
)

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func key(credentialID id.CredentialID) string {
	return "depositgate:verify:" + credentialID.String()
}

// Get returns a cached verification result. A cache miss is (nil, false,
// nil); Redis failures surface as errors so callers can decide to fall
// through.
func (c *Cache) Get(ctx context.Context, credentialID id.CredentialID) (*scheme.VerificationResult, bool, error) {
	raw, err := c.client.Get(ctx, key(credentialID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("verify cache get: %w", err)
	}

	var result scheme.VerificationResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, false, fmt.Errorf("verify cache decode: %w", err)
	}
	return &result, true, nil
}

// Set stores a verification result for the configured TTL.
func (c *Cache) Set(ctx context.Context, credentialID id.CredentialID, result *scheme.VerificationResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("verify cache encode: %w", err)
	}
	if err := c.client.Set(ctx, key(credentialID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("verify cache set: %w", err)
	}
	return nil
}

// Invalidate drops a cached result when the credential is deleted.
func (c *Cache) Invalidate(ctx context.Context, credentialID id.CredentialID) error {
	if err := c.client.Del(ctx, key(credentialID)).Err(); err != nil {
		return fmt.Errorf("verify cache invalidate: %w", err)
	}
	return nil
}
