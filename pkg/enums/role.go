package enums

import (
	"slices"
	"strings"
)

// Role is the closed set of marketplace principals.
type Role string

const (
	RoleHomeowner Role = "homeowner"
	RoleShopOwner Role = "shop_owner"
	RoleAdmin     Role = "admin"
)

var roles = []Role{RoleHomeowner, RoleShopOwner, RoleAdmin}

func (r Role) String() string { return string(r) }

func (r Role) IsValid() bool { return slices.Contains(roles, r) }

// SelfRegistrable reports whether accounts with this role may sign themselves up.
func (r Role) SelfRegistrable() bool {
	return r == RoleHomeowner || r == RoleShopOwner
}

// ParseRole is lenient about case and whitespace, and accepts the
// hyphenated "shop-owner" spelling older clients send.
func ParseRole(value string) (Role, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	return parseClosed("role", roles, normalized)
}
