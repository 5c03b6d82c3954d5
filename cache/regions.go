package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wadansyaku/band-part-key-app/model"
)

// regionPrefix namespaces region entries; the rest of the key is the
// upload's content hash, so DeleteByPrefix can drop one upload's entries.
const regionPrefix = "regions:"

// Regions caches the region selection of an upload under a key derived
// from its content, the extraction settings and the page selection.
type Regions struct {
	client Client
	ttl    time.Duration
}

// NewRegions returns a region cache over client.
func NewRegions(client Client, ttl time.Duration) *Regions {
	return &Regions{client: client, ttl: ttl}
}

// Key returns the cache key for an upload. settings is any value whose
// YAML form captures the extraction settings; pages are 1-indexed and an
// empty list means every page.
func Key(contentHash string, settings any, pages []int) (string, error) {
	fingerprint, err := yaml.Marshal(settings)
	if err != nil {
		return "", fmt.Errorf("fingerprint settings: %w", err)
	}
	sum := sha256.Sum256(fingerprint)

	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = strconv.Itoa(p)
	}
	return regionPrefix + contentHash + ":" + hex.EncodeToString(sum[:8]) + ":" + strings.Join(parts, ","), nil
}

// Get returns the cached regions, or ErrCacheMiss.
func (r *Regions) Get(ctx context.Context, key string) ([]model.Region, error) {
	data, err := r.client.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var regions []model.Region
	if err := json.Unmarshal(data, &regions); err != nil {
		return nil, fmt.Errorf("decode cached regions: %w", err)
	}
	return regions, nil
}

// Put stores regions under key.
func (r *Regions) Put(ctx context.Context, key string, regions []model.Region) error {
	data, err := json.Marshal(regions)
	if err != nil {
		return fmt.Errorf("encode regions: %w", err)
	}
	return r.client.Set(ctx, key, data, r.ttl)
}

// Forget drops every entry of one upload.
func (r *Regions) Forget(ctx context.Context, contentHash string) error {
	return r.client.DeleteByPrefix(ctx, regionPrefix+contentHash+":")
}
