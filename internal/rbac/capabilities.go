package rbac

import (
	"math"

	"github.com/laxjovial/assistant-core/internal/users"
	"github.com/laxjovial/assistant-core/pkg/logger_i"
)

const (
	CapDataAnalysis  = "data_analysis_enabled"
	CapSummarization = "document_summarization_enabled"
)

// defaultTiers applies when config.yml carries no tiers table. Unknown
// tiers and unknown capabilities resolve to the caller's default, so the
// gate denies by default.
var defaultTiers = map[string]map[string]any{
	"free": {
		CapDataAnalysis:  false,
		CapSummarization: false,
	},
	"basic": {
		CapDataAnalysis:  false,
		CapSummarization: false,
	},
	"pro": {
		CapDataAnalysis:  true,
		CapSummarization: true,
	},
	"elite": {
		CapDataAnalysis:  true,
		CapSummarization: true,
	},
	"premium": {
		CapDataAnalysis:  true,
		CapSummarization: true,
	},
}

// UserResolver is the slice of the user repository the gate needs.
type UserResolver interface {
	FindByToken(token string) (users.User, bool)
}

// Gate answers per-user capability questions from the tier table.
// Admins override every check: booleans become true, numeric limits
// become unbounded.
type Gate struct {
	resolver UserResolver
	tiers    map[string]map[string]any
	logger   *logger_i.Logger
}

func NewGate(resolver UserResolver, tiers map[string]map[string]any) *Gate {
	if len(tiers) == 0 {
		tiers = defaultTiers
	}
	return &Gate{
		resolver: resolver,
		tiers:    tiers,
		logger:   logger_i.NewLogger("RBAC"),
	}
}

func (g *Gate) isAdmin(user users.User) bool {
	return user.IsAdmin || user.Tier == "admin"
}

func (g *Gate) lookup(userToken, capability string) (any, users.User, bool) {
	user, ok := g.resolver.FindByToken(userToken)
	if !ok {
		// Unknown tokens get the "free" tier, same as anonymous access.
		user = users.User{Tier: "free"}
	}

	tierCaps, ok := g.tiers[user.Tier]
	if !ok {
		g.logger.Debug("unknown tier, denying capability", "tier", user.Tier, "capability", capability)
		return nil, user, false
	}
	val, ok := tierCaps[capability]
	return val, user, ok
}

// Bool resolves a boolean capability for the user, falling back to def
// when the tier or the capability is absent.
func (g *Gate) Bool(userToken, capability string, def bool) bool {
	val, user, found := g.lookup(userToken, capability)
	if g.isAdmin(user) {
		return true
	}
	if !found {
		return def
	}
	if b, ok := val.(bool); ok {
		return b
	}
	return def
}

// Int resolves a numeric capability (quotas, limits). Admins are
// unbounded.
func (g *Gate) Int(userToken, capability string, def int) int {
	val, user, found := g.lookup(userToken, capability)
	if g.isAdmin(user) {
		return math.MaxInt
	}
	if !found {
		return def
	}
	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}
