package tiers

import (
	"fmt"
	"strings"

	"github.com/orbitkey/payrelay/internal/pkg/env"
)

// Tier is a symbolic product category driving price lookup, checkout
// metadata and redirect destinations.
type Tier string

const (
	TierBasic        Tier = "basic"
	TierPremium      Tier = "premium"
	TierCustomAccess Tier = "customaccess"
	TierRequest      Tier = "request"
	TierTest         Tier = "test"
)

// productEnvKeys maps each tier to the env var holding its Stripe product ID.
var productEnvKeys = map[Tier]string{
	TierBasic:        "BASIC_PRODUCT_ID",
	TierPremium:      "PREMIUM_PRODUCT_ID",
	TierCustomAccess: "CUSTOMACCESS_PRODUCT_ID",
	TierRequest:      "REQUEST_PRODUCT_ID",
	TierTest:         "TEST_PRODUCT_ID",
}

// Normalize lowercases and trims a raw tier string.
func Normalize(raw string) Tier {
	return Tier(strings.ToLower(strings.TrimSpace(raw)))
}

// Valid reports whether the tier is one of the known symbolic categories.
func Valid(t Tier) bool {
	_, ok := productEnvKeys[t]
	return ok
}

// ProductID resolves the Stripe product ID for a tier at request time.
// An unknown tier or an unset product env var fails closed with an error
// naming the missing setting, before any provider call is attempted.
func ProductID(t Tier) (string, error) {
	key, ok := productEnvKeys[t]
	if !ok {
		return "", fmt.Errorf("unknown tier %q", string(t))
	}
	id := strings.TrimSpace(env.GetEnv(key, ""))
	if id == "" {
		return "", fmt.Errorf("server misconfigured: %s is not set", key)
	}
	return id, nil
}
