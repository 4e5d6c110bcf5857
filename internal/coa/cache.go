package coa

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const notFoundSentinel = "!"

// CachedDirectory layers a Redis cache over a Directory. Directory rows are
// immutable per regime, so entries are cached aggressively and misses are
// negatively cached to shield the seed table from repeated bad-code probes.
type CachedDirectory struct {
	inner Directory
	cli   *redis.Client
	ttl   time.Duration
}

// NewCachedDirectory wraps inner with a Redis cache. A nil client disables
// caching and delegates directly.
func NewCachedDirectory(inner Directory, cli *redis.Client, ttl time.Duration) *CachedDirectory {
	return &CachedDirectory{inner: inner, cli: cli, ttl: ttl}
}

// GetAccount implements Directory.
func (d *CachedDirectory) GetAccount(ctx context.Context, regimeID, accountNumber string) (Entry, error) {
	if d.cli == nil {
		return d.inner.GetAccount(ctx, regimeID, accountNumber)
	}
	key := cacheKey(regimeID, accountNumber)
	payload, err := d.cli.Get(ctx, key).Bytes()
	if err == nil {
		if string(payload) == notFoundSentinel {
			return Entry{}, ErrAccountNotFound
		}
		var entry Entry
		if err := json.Unmarshal(payload, &entry); err == nil {
			return entry, nil
		}
		// Corrupt payload falls through to a reload.
	} else if !errors.Is(err, redis.Nil) {
		return Entry{}, err
	}

	entry, err := d.inner.GetAccount(ctx, regimeID, accountNumber)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			_ = d.cli.Set(ctx, key, notFoundSentinel, d.ttl).Err()
		}
		return Entry{}, err
	}
	if raw, err := json.Marshal(entry); err == nil {
		_ = d.cli.Set(ctx, key, raw, d.ttl).Err()
	}
	return entry, nil
}

func cacheKey(regimeID, accountNumber string) string {
	return strings.Join([]string{"coa", regimeID, accountNumber}, ":")
}
