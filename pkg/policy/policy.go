package policy

import (
	"sort"
	"strings"

	"github.com/copperkettle/storefront/pkg/identity"
)

// Tier is the ordered privilege level a route requires
type Tier int

const (
	TierPublic Tier = iota
	TierUser
	TierAdmin
	TierSuperadmin
)

func (t Tier) String() string {
	return []string{"public", "user", "admin", "superadmin"}[t]
}

// Rule binds a path prefix to a minimum tier
type Rule struct {
	Prefix string
	Tier   Tier
}

// Well-known navigation targets
const (
	SignInPath          = "/auth"
	HomePath            = "/"
	PendingApprovalPath = "/pending-approval"
	NotAuthorizedPath   = "/not-authorized"
)

// Decision is the gate verdict for one navigation
type Decision struct {
	Allow      bool
	RedirectTo string
}

func allow() Decision {
	return Decision{Allow: true}
}

func redirect(target string) Decision {
	return Decision{RedirectTo: target}
}

// Table holds the route rules, most specific prefix first
type Table struct {
	rules []Rule
}

// NewTable builds a table from rules. Order of the input does not matter;
// lookup always prefers the longest matching prefix.
func NewTable(rules []Rule) *Table {
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Prefix) > len(sorted[j].Prefix)
	})
	return &Table{rules: sorted}
}

// DefaultTable returns the storefront route surface
func DefaultTable() *Table {
	return NewTable([]Rule{
		{Prefix: "/order", Tier: TierUser},
		{Prefix: "/gift-card", Tier: TierUser},
		{Prefix: "/loyalty", Tier: TierUser},
		{Prefix: "/admin", Tier: TierAdmin},
		{Prefix: "/superadmin", Tier: TierSuperadmin},
		{Prefix: SignInPath, Tier: TierPublic},
		{Prefix: PendingApprovalPath, Tier: TierPublic},
		{Prefix: NotAuthorizedPath, Tier: TierPublic},
	})
}

// prefixMatches reports whether path falls under prefix on a segment boundary,
// so "/admin" covers "/admin" and "/admin/orders" but not "/administrate".
func prefixMatches(path, prefix string) bool {
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+"/")
}

func (t *Table) requiredTier(path string) Tier {
	for _, rule := range t.rules {
		if prefixMatches(path, rule.Prefix) {
			return rule.Tier
		}
	}
	// Unlisted routes are the public storefront surface
	return TierPublic
}

// Decide returns the verdict for a navigation. profile may be nil
// (anonymous). Tombstoned profiles fail every check including plain
// authentication; they are redirected to sign-in with no distinguishing
// target, so a revoked account is indistinguishable from a signed-out one.
func (t *Table) Decide(path string, p *identity.Profile) Decision {
	tier := t.requiredTier(path)
	if tier == TierPublic {
		return allow()
	}

	if p == nil || p.Revoked() {
		return redirect(SignInPath + "?redirectTo=" + path)
	}

	switch tier {
	case TierAdmin:
		if !p.Staff() {
			return redirect(HomePath)
		}
		if p.PendingApproval() {
			return redirect(PendingApprovalPath)
		}
	case TierSuperadmin:
		if p.Role != identity.RoleSuperadmin {
			return redirect(HomePath)
		}
	case TierUser:
		// Any live identity qualifies, unapproved staff included
	}

	return allow()
}
