package models

import (
	"time"

	"github.com/uptrace/bun"
)

// UserStatus is the lifecycle state of a portal user. Only ACTIVE users may
// hold a live session; every other status invalidates resolution.
type UserStatus string

const (
	UserStatusActive      UserStatus = "ACTIVE"
	UserStatusSuspended   UserStatus = "SUSPENDED"
	UserStatusDeactivated UserStatus = "DEACTIVATED"
)

// Role is the portal role carried by a user. PROVIDER identities belong to
// the platform operator and are tenant-less; TENANT_* identities are scoped
// to exactly one tenant.
type Role string

const (
	RolePlatformProvider Role = "PROVIDER"
	RoleTenantAdmin      Role = "TENANT_ADMIN"
	RoleTenantUser       Role = "TENANT_USER"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RolePlatformProvider, RoleTenantAdmin, RoleTenantUser:
		return true
	}
	return false
}

// User represents a portal principal.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           string     `bun:"id,pk"`
	Email        string     `bun:"email,notnull,unique"`
	Name         string     `bun:"name"`
	PasswordHash string     `bun:"password_hash,notnull"` // bcrypt hash
	Role         Role       `bun:"role,notnull"`
	TenantID     *string    `bun:"tenant_id"` // nil for PROVIDER users
	Status       UserStatus `bun:"status,notnull,default:'ACTIVE'"`
	CreatedAt    time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt    time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
	LastLoginAt  *time.Time `bun:"last_login_at"`
}

// Tenant represents a business registered on the portal.
type Tenant struct {
	bun.BaseModel `bun:"table:tenants,alias:t"`

	ID        string     `bun:"id,pk"`
	Name      string     `bun:"name,notnull"`
	TaxID     string     `bun:"tax_id,notnull,unique"`
	Status    UserStatus `bun:"status,notnull,default:'ACTIVE'"`
	CreatedAt time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
}

// Session tracks an active browser session. The cookie carries the signed
// session credential; only its SHA256 hash is stored.
type Session struct {
	bun.BaseModel `bun:"table:sessions,alias:sess"`

	ID         string    `bun:"id,pk"`
	UserID     string    `bun:"user_id,notnull"`
	TokenHash  string    `bun:"token_hash,notnull,unique"` // SHA256 hash of the session credential
	ExpiresAt  time.Time `bun:"expires_at,notnull"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
	LastUsedAt time.Time `bun:"last_used_at,notnull,default:current_timestamp"`
	UserAgent  *string   `bun:"user_agent"`
	IPAddress  *string   `bun:"ip_address"`
	Revoked    bool      `bun:"revoked,notnull,default:false"`
}

// AuditLog records security-relevant events (login, logout, failed login).
type AuditLog struct {
	bun.BaseModel `bun:"table:audit_logs,alias:al"`

	ID        string    `bun:"id,pk"`
	UserID    *string   `bun:"user_id"`   // nil when the actor could not be identified
	TenantID  *string   `bun:"tenant_id"` // nil for platform-level events
	Action    string    `bun:"action,notnull"`
	Path      string    `bun:"path"`
	IPAddress *string   `bun:"ip_address"`
	Detail    string    `bun:"detail"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
