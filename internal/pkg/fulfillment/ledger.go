package fulfillment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/orbitkey/payrelay/internal/pkg/cache"
)

// LedgerTTL bounds how long a fulfillment claim is remembered. The provider
// retains session state far longer; the ledger only has to cover the window
// in which the webhook push and the success-page pull can race or a user can
// replay a claim.
const LedgerTTL = 24 * time.Hour

// Ledger scopes for the independent fulfillment actions.
const (
	ScopeAccessKey    = "key"
	ScopeRoleGrant    = "role"
	ScopeNotification = "notify"
	ScopeAnnouncement = "voice"
)

// Ledger is the ephemeral check-and-set dedupe layer consulted before a
// session triggers an entitlement action more than once.
type Ledger interface {
	// FirstClaim atomically records (scope, sessionRef) and reports whether
	// this call was the first to do so within the TTL.
	FirstClaim(ctx context.Context, scope, sessionRef string) (bool, error)
	// Release drops a recorded claim so a failed action can be retried.
	Release(ctx context.Context, scope, sessionRef string) error
}

// NewLedgerFromEnv prefers the shared Redis cache so dedupe survives process
// restarts; it degrades to an in-process ledger when the cache is down.
func NewLedgerFromEnv() Ledger {
	if cache.Available() {
		return &RedisLedger{}
	}
	log.Warnf("[Fulfillment] cache unavailable, using in-memory fulfillment ledger")
	return NewMemoryLedger(LedgerTTL)
}

// RedisLedger stores claims as SETNX keys with a TTL.
type RedisLedger struct{}

func (l *RedisLedger) FirstClaim(ctx context.Context, scope, sessionRef string) (bool, error) {
	return cache.SetNX(ledgerKey(scope, sessionRef), time.Now().UTC().Format(time.RFC3339), LedgerTTL)
}

func (l *RedisLedger) Release(ctx context.Context, scope, sessionRef string) error {
	return cache.Delete(ledgerKey(scope, sessionRef))
}

func ledgerKey(scope, sessionRef string) string {
	return fmt.Sprintf("fulfillment:%s:%s", scope, sessionRef)
}

// MemoryLedger is a TTL map used when Redis is unreachable and in tests.
type MemoryLedger struct {
	ttl     time.Duration
	mu      sync.Mutex
	claimed map[string]time.Time
}

func NewMemoryLedger(ttl time.Duration) *MemoryLedger {
	return &MemoryLedger{ttl: ttl, claimed: make(map[string]time.Time)}
}

func (l *MemoryLedger) FirstClaim(ctx context.Context, scope, sessionRef string) (bool, error) {
	key := scope + ":" + sessionRef
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if at, ok := l.claimed[key]; ok && now.Sub(at) < l.ttl {
		return false, nil
	}
	l.claimed[key] = now

	// Opportunistic sweep of expired entries.
	for k, at := range l.claimed {
		if now.Sub(at) >= l.ttl {
			delete(l.claimed, k)
		}
	}
	return true, nil
}

func (l *MemoryLedger) Release(ctx context.Context, scope, sessionRef string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.claimed, scope+":"+sessionRef)
	return nil
}
