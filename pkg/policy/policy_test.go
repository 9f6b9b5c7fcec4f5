package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/copperkettle/storefront/pkg/identity"
)

func profileWith(role identity.Role, approved bool) *identity.Profile {
	return &identity.Profile{ID: "subject-1", Email: "a@example.com", Role: role, Approved: approved}
}

func TestDecide_Verdicts(t *testing.T) {
	table := DefaultTable()

	anonymous := (*identity.Profile)(nil)
	user := profileWith(identity.RoleUser, true)
	pendingAdmin := profileWith(identity.RoleAdmin, false)
	admin := profileWith(identity.RoleAdmin, true)
	superadmin := profileWith(identity.RoleSuperadmin, true)
	tombstone := &identity.Profile{ID: "subject-1", Role: identity.RoleDeleted, IsDeleted: true}

	tests := []struct {
		name    string
		path    string
		profile *identity.Profile
		want    Decision
	}{
		{"public menu, anonymous", "/menu", anonymous, Decision{Allow: true}},
		{"sign-in page always reachable", "/auth", anonymous, Decision{Allow: true}},
		{"holding page always reachable", "/pending-approval", tombstone, Decision{Allow: true}},

		{"anonymous to loyalty", "/loyalty", anonymous,
			Decision{RedirectTo: "/auth?redirectTo=/loyalty"}},
		{"anonymous to nested order path", "/order/history", anonymous,
			Decision{RedirectTo: "/auth?redirectTo=/order/history"}},

		{"user to own orders", "/order", user, Decision{Allow: true}},
		{"user to admin", "/admin", user, Decision{RedirectTo: "/"}},
		{"user to superadmin", "/superadmin", user, Decision{RedirectTo: "/"}},

		{"pending admin held at admin tier", "/admin/orders", pendingAdmin,
			Decision{RedirectTo: "/pending-approval"}},
		{"pending admin may still shop", "/order", pendingAdmin, Decision{Allow: true}},
		{"approved admin to admin tier", "/admin/orders", admin, Decision{Allow: true}},
		{"admin to superadmin", "/superadmin/users", admin, Decision{RedirectTo: "/"}},

		{"superadmin satisfies admin tier", "/admin/menu", superadmin, Decision{Allow: true}},
		{"superadmin to superadmin", "/superadmin/users", superadmin, Decision{Allow: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, table.Decide(tt.path, tt.profile))
		})
	}
}

func TestDecide_TombstoneNeverAllowedOnProtectedRoutes(t *testing.T) {
	table := DefaultTable()
	tombstone := &identity.Profile{ID: "subject-1", Role: identity.RoleDeleted, IsDeleted: true}

	for _, path := range []string{"/order", "/gift-card", "/loyalty", "/admin", "/admin/menu", "/superadmin"} {
		d := table.Decide(path, tombstone)
		assert.False(t, d.Allow, "tombstone allowed on %s", path)
		// Revoked identities get the same redirect as anonymous ones
		assert.Equal(t, "/auth?redirectTo="+path, d.RedirectTo)
	}
}

func TestDecide_Deterministic(t *testing.T) {
	table := DefaultTable()
	admin := profileWith(identity.RoleAdmin, true)

	first := table.Decide("/admin/orders", admin)
	second := table.Decide("/admin/orders", admin)
	assert.Equal(t, first, second)
}

func TestDecide_PrefixBoundaries(t *testing.T) {
	table := DefaultTable()

	// "/administrate" is not under "/admin"
	assert.True(t, table.Decide("/administrate", nil).Allow)
	assert.False(t, table.Decide("/admin", nil).Allow)
	assert.False(t, table.Decide("/admin/", nil).Allow)
}

func TestDecide_MostSpecificPrefixWins(t *testing.T) {
	table := NewTable([]Rule{
		{Prefix: "/admin", Tier: TierAdmin},
		{Prefix: "/admin/public-report", Tier: TierPublic},
	})

	assert.True(t, table.Decide("/admin/public-report", nil).Allow)
	assert.False(t, table.Decide("/admin/other", nil).Allow)
}

func TestDecide_ApprovalGateLayersOnAdminTierOnly(t *testing.T) {
	table := DefaultTable()
	pendingAdmin := profileWith(identity.RoleAdmin, false)

	// Rule 4 (superadmin tier) fires before the approval check
	assert.Equal(t, Decision{RedirectTo: "/"}, table.Decide("/superadmin", pendingAdmin))
	// User tier ignores the approved flag entirely
	assert.Equal(t, Decision{Allow: true}, table.Decide("/loyalty", pendingAdmin))
}
