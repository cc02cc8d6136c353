package middleware

import (
	"fmt"
	"net/url"

	"github.com/casbin/casbin/v2"

	"github.com/openinvoice/caminv-portal/internal/auth"
)

// Outcome is the terminal result of a policy evaluation.
type Outcome int

const (
	// OutcomePassThrough forwards the request untouched, no identity needed.
	OutcomePassThrough Outcome = iota

	// OutcomeRedirect sends the client to Decision.Location.
	OutcomeRedirect

	// OutcomeAllow forwards the request with Decision.Headers attached.
	OutcomeAllow
)

// Rule names, one per evaluation step. Decisions carry the name of the rule
// that produced them so tests and logs can target individual rules.
const (
	RuleExcluded      = "excluded"
	RulePublic        = "public"
	RuleNoIdentity    = "no-identity"
	RuleRoleHome      = "role-home"
	RuleAccessibility = "accessibility"
	RuleLegacyAdmin   = "legacy-admin-alias"
	RuleAllow         = "allow"
)

// Decision is the result of evaluating the routing policy for one request.
type Decision struct {
	Outcome  Outcome
	Rule     string
	Location string
	Headers  map[string]string
}

// Header names attached to allowed application requests.
const (
	HeaderUserID   = "x-user-id"
	HeaderUserRole = "x-user-role"
	HeaderTenantID = "x-user-tenant-id"
)

// Policy evaluates the ordered routing rules for application-facing paths.
// Authorization failures never surface as errors to the client; wrong-role
// access silently redirects to the identity's own home.
type Policy struct {
	enforcer     casbin.IEnforcer
	loginPath    string
	providerHome string
	tenantHome   string
}

// NewPolicy builds the routing policy over a prepared enforcer and the
// configured redirect targets.
func NewPolicy(enforcer casbin.IEnforcer, loginPath, providerHome, tenantHome string) *Policy {
	return &Policy{
		enforcer:     enforcer,
		loginPath:    loginPath,
		providerHome: providerHome,
		tenantHome:   tenantHome,
	}
}

// Authorize evaluates the rules top to bottom and returns the first match.
// identity is nil when resolution failed for any reason; the distinction
// between failure modes is the resolver's concern, not this policy's.
func (p *Policy) Authorize(identity *auth.Identity, path string, class RouteClass) (Decision, error) {
	// Rule 1: excluded paths bypass everything, identity or not.
	if class == RouteExcluded {
		return Decision{Outcome: OutcomePassThrough, Rule: RuleExcluded}, nil
	}

	// Rule 2: public paths need no identity.
	if class == RoutePublic {
		return Decision{Outcome: OutcomePassThrough, Rule: RulePublic}, nil
	}

	// Rule 3: no identity. Preserve the requested path so the login flow
	// can return the user to their destination.
	if identity == nil {
		return Decision{
			Outcome:  OutcomeRedirect,
			Rule:     RuleNoIdentity,
			Location: p.loginPath + "?redirect=" + url.QueryEscape(path),
		}, nil
	}

	home := auth.HomePathFor(identity.Role, p.providerHome, p.tenantHome)

	// Rule 4: the bare root always goes to the role's home.
	if path == "/" {
		return Decision{Outcome: OutcomeRedirect, Rule: RuleRoleHome, Location: home}, nil
	}

	// Rule 5: role/prefix accessibility.
	allowed, err := p.enforcer.Enforce(string(identity.Role), path)
	if err != nil {
		return Decision{}, fmt.Errorf("policy enforcement failed for role %s path %s: %w", identity.Role, path, err)
	}
	if !allowed {
		return Decision{Outcome: OutcomeRedirect, Rule: RuleAccessibility, Location: home}, nil
	}

	// Rule 6: deprecated /admin prefix. Backward-compat redirect for any
	// authenticated identity, applied after accessibility passes.
	if auth.PathHasPrefix(path, "/admin") {
		return Decision{Outcome: OutcomeRedirect, Rule: RuleLegacyAdmin, Location: p.providerHome}, nil
	}

	// Rule 7: allow, attaching identity headers.
	return Decision{
		Outcome: OutcomeAllow,
		Rule:    RuleAllow,
		Headers: IdentityHeaders(*identity),
	}, nil
}

// IdentityHeaders renders an identity as outbound headers. Tenant-less
// identities (PROVIDER) carry an empty string, never an absent key, so
// downstream header maps stay predictable.
func IdentityHeaders(identity auth.Identity) map[string]string {
	return map[string]string{
		HeaderUserID:   identity.UserID,
		HeaderUserRole: string(identity.Role),
		HeaderTenantID: identity.TenantID,
	}
}
