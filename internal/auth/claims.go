package auth

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
	RoleViewer   Role = "viewer"
)

func (r Role) String() string {
	return string(r)
}

// ParseRole accepts a role name in any case
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleOperator, RoleViewer:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Actions checked by the permission middleware
const (
	ActionRead  = "read"
	ActionWrite = "write"
	ActionRun   = "run"
)

var permissions = map[Role]map[string]bool{
	RoleAdmin:    {ActionRead: true, ActionWrite: true, ActionRun: true},
	RoleOperator: {ActionRead: true, ActionRun: true},
	RoleViewer:   {ActionRead: true},
}

// UserClaims is what handlers see of the authenticated caller
type UserClaims interface {
	UserID() string
	Role() string
	Source() string
	HasPermission(action string) bool
}

// JWTClaims is the payload of a bearer token
type JWTClaims struct {
	RoleValue Role `json:"role"`
	jwt.RegisteredClaims
}

func (c *JWTClaims) UserID() string { return c.Subject }
func (c *JWTClaims) Role() string   { return c.RoleValue.String() }
func (c *JWTClaims) Source() string { return "JWT" }

func (c *JWTClaims) HasPermission(action string) bool {
	return permissions[c.RoleValue][action]
}

// CLIClaims identifies runs started from feedctl
type CLIClaims struct {
	User string
}

func (c *CLIClaims) UserID() string            { return c.User }
func (c *CLIClaims) Role() string              { return RoleAdmin.String() }
func (c *CLIClaims) Source() string            { return "CLI" }
func (c *CLIClaims) HasPermission(string) bool { return true }
