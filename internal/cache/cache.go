// Package cache stores recent validation verdicts keyed by a stable hash of
// the content and its metadata. Advisor identity never enters the key: two
// advisors submitting identical text share a verdict. Fallback (degraded)
// results are never stored.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/sebishield/validation-engine/internal/compliance"
)

// Key returns the stable cache key for a piece of content. The content is
// trimmed but case-preserved before hashing.
func Key(content string, contentType compliance.ContentType, lang compliance.Language) string {
	h := sha256.New()
	h.Write([]byte(strings.TrimSpace(content)))
	h.Write([]byte{0})
	h.Write([]byte(contentType))
	h.Write([]byte{0})
	h.Write([]byte(lang))
	return hex.EncodeToString(h.Sum(nil))
}

// Store is the verdict cache contract. Eviction order is a resource bound,
// not a correctness contract.
type Store interface {
	// Get returns the cached verdict for key, or (nil, false) on a miss.
	Get(ctx context.Context, key string) (*compliance.ValidationResult, bool)
	// Put stores the verdict under key for ttl. Fallback results are
	// silently refused.
	Put(ctx context.Context, key string, result *compliance.ValidationResult, ttl time.Duration)
	// Invalidate removes the entry for key, if any.
	Invalidate(ctx context.Context, key string)
}
