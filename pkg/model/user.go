// Package model defines the entities stored in the wide-row table, their
// closed enums and validation rules. Entities carry dynamodbav tags for the
// store and json tags for the HTTP surface; key composition lives in the
// storage package.
package model

import (
	"errors"
	"time"
)

// Role is a tagged role variant. Comparison goes through Level; roles are
// never compared as strings.
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

var roleLevels = map[Role]int{
	RoleStudent:    0,
	RoleInstructor: 1,
	RoleAdmin:      2,
	RoleSuperAdmin: 3,
}

// Valid reports whether the role belongs to the closed set.
func (r Role) Valid() bool {
	_, ok := roleLevels[r]
	return ok
}

// Level returns the role's position in the hierarchy
// student < instructor < admin < super_admin.
func (r Role) Level() int {
	return roleLevels[r]
}

// AtLeast reports whether the role is at or above the required role.
func (r Role) AtLeast(required Role) bool {
	if !r.Valid() || !required.Valid() {
		return false
	}
	return r.Level() >= required.Level()
}

// AccountStatus is the closed account status set.
type AccountStatus string

const (
	StatusActive    AccountStatus = "active"
	StatusSuspended AccountStatus = "suspended"
	StatusPending   AccountStatus = "pending"
)

// Valid reports whether the status belongs to the closed set.
func (s AccountStatus) Valid() bool {
	switch s {
	case StatusActive, StatusSuspended, StatusPending:
		return true
	}
	return false
}

// statusTransitions is the account status state machine: active and
// suspended toggle, pending resolves to either.
var statusTransitions = map[AccountStatus][]AccountStatus{
	StatusActive:    {StatusSuspended},
	StatusSuspended: {StatusActive},
	StatusPending:   {StatusActive, StatusSuspended},
}

// CanTransitionTo reports whether the status may move to next.
func (s AccountStatus) CanTransitionTo(next AccountStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

var (
	ErrInvalidRole   = errors.New("role is not one of student, instructor, admin, super_admin")
	ErrInvalidStatus = errors.New("account status is not one of active, suspended, pending")
	ErrEmptyUserID   = errors.New("user id cannot be empty")
	ErrEmptyEmail    = errors.New("email cannot be empty")
)

// User is the profile row for one platform user.
type User struct {
	UserID              string        `json:"userId" dynamodbav:"UserID"`
	Name                string        `json:"name" dynamodbav:"Name"`
	Email               string        `json:"email" dynamodbav:"Email"`
	Role                Role          `json:"role" dynamodbav:"Role"`
	AccountStatus       AccountStatus `json:"accountStatus" dynamodbav:"AccountStatus"`
	CreatedAt           time.Time     `json:"createdAt" dynamodbav:"CreatedAt"`
	LastLoginAt         time.Time     `json:"lastLoginAt,omitempty" dynamodbav:"LastLoginAt"`
	LoginCount          int           `json:"loginCount" dynamodbav:"LoginCount"`
	FailedLoginAttempts int           `json:"failedLoginAttempts" dynamodbav:"FailedLoginAttempts"`
}

// Validate checks the profile invariants.
func (u *User) Validate() error {
	if u.UserID == "" {
		return ErrEmptyUserID
	}
	if u.Email == "" {
		return ErrEmptyEmail
	}
	if !u.Role.Valid() {
		return ErrInvalidRole
	}
	if !u.AccountStatus.Valid() {
		return ErrInvalidStatus
	}
	return nil
}
