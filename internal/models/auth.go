package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the portal roles issued by the identity provider.
type UserRole string

const (
	RoleTeacher   UserRole = "teacher"
	RoleHOD       UserRole = "hod"
	RolePrincipal UserRole = "principal"
)

// Valid reports whether the role is one of the known portal roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleTeacher, RoleHOD, RolePrincipal:
		return true
	default:
		return false
	}
}

// JWTClaims represents the access token payload minted by the identity provider.
type JWTClaims struct {
	UserID       string   `json:"user_id"`
	Role         UserRole `json:"role"`
	DepartmentID *string  `json:"department_id,omitempty"`
	FullName     string   `json:"full_name,omitempty"`
	jwt.RegisteredClaims
}

// Actor is the already-authenticated caller of every report operation.
type Actor struct {
	ID           string
	Role         UserRole
	DepartmentID *string
	Name         string
}

// Actor converts token claims into an Actor.
func (c *JWTClaims) Actor() Actor {
	if c == nil {
		return Actor{}
	}
	return Actor{ID: c.UserID, Role: c.Role, DepartmentID: c.DepartmentID, Name: c.FullName}
}

// InDepartment reports whether the actor belongs to the given department.
func (a Actor) InDepartment(departmentID *string) bool {
	return a.DepartmentID != nil && departmentID != nil && *a.DepartmentID == *departmentID
}
