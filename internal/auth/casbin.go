package auth

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/openinvoice/caminv-portal/internal/db/models"
)

//go:embed model.conf
var casbinModelContent string

// roleRoutePolicy is the single canonical role→prefix accessibility table.
// Both the edge gateway and any deeper enforcement consume this one table;
// the legacy implementations each carried their own divergent copy.
//
// "/admin" is reachable by every role on purpose: the legacy-alias rule runs
// after the accessibility check and redirects it to the provider home.
var roleRoutePolicy = map[models.Role][]string{
	models.RolePlatformProvider: {
		"/provider",
		"/notifications",
		"/audit-logs",
		"/admin",
	},
	models.RoleTenantAdmin: {
		"/portal",
		"/invoices",
		"/customers",
		"/credit-notes",
		"/users",
		"/settings",
		"/notifications",
		"/audit-logs",
		"/admin",
	},
	models.RoleTenantUser: {
		"/portal",
		"/invoices",
		"/customers",
		"/credit-notes",
		"/notifications",
		"/admin",
	},
}

// InitEnforcer creates a Casbin enforcer over the embedded model with the
// canonical role→prefix table loaded as static in-memory policies. No
// persistence adapter is attached: the table is code, reviewed like code.
func InitEnforcer() (casbin.IEnforcer, error) {
	m, err := model.NewModelFromString(casbinModelContent)
	if err != nil {
		return nil, fmt.Errorf("parse casbin model: %w", err)
	}

	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create casbin enforcer: %w", err)
	}

	enforcer.AddFunction("prefixMatch", PrefixMatchFunction())

	policies := make([][]string, 0, 32)
	for role, prefixes := range roleRoutePolicy {
		for _, prefix := range prefixes {
			policies = append(policies, []string{string(role), prefix})
		}
	}
	if _, err := enforcer.AddPolicies(policies); err != nil {
		return nil, fmt.Errorf("load route policies: %w", err)
	}

	return enforcer, nil
}

// PrefixMatchFunction adapts prefix matching for Casbin matchers. A request
// path matches a policy prefix when it equals the prefix or sits beneath it
// as a path segment ("/invoices/42" matches "/invoices"; "/invoicesx" does not).
func PrefixMatchFunction() func(args ...any) (any, error) {
	return func(args ...any) (any, error) {
		if len(args) != 2 {
			return false, fmt.Errorf("prefixMatch expects 2 arguments, got %d", len(args))
		}
		path, ok := args[0].(string)
		if !ok {
			return false, fmt.Errorf("prefixMatch: request path must be a string")
		}
		prefix, ok := args[1].(string)
		if !ok {
			return false, fmt.Errorf("prefixMatch: policy prefix must be a string")
		}
		return PathHasPrefix(path, prefix), nil
	}
}

// PathHasPrefix reports whether path equals prefix or is nested under it.
func PathHasPrefix(path, prefix string) bool {
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+"/")
}

// HomePathFor returns the dashboard root a role is redirected to. The
// provider home and tenant portal home are configuration constants; this
// helper only picks between them.
func HomePathFor(role models.Role, providerHome, tenantHome string) string {
	if role == models.RolePlatformProvider {
		return providerHome
	}
	return tenantHome
}
