// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines domain models and types used throughout the application
// including User, Article, Media, and Subscriber structures.
package model

import (
	"database/sql"
	"time"
)

// User roles, ordered from least to most privileged.
const (
	RoleAuthor = "author"
	RoleEditor = "editor"
	RoleAdmin  = "admin"
	RoleSuper  = "super"
)

// ValidRoles contains all valid user roles in hierarchy order.
var ValidRoles = []string{RoleAuthor, RoleEditor, RoleAdmin, RoleSuper}

// User account statuses.
const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusSuspended = "suspended"
)

// ValidStatuses contains all valid user statuses.
var ValidStatuses = []string{StatusActive, StatusInactive, StatusSuspended}

// roleLevels maps each role to its position in the hierarchy.
// Unknown roles map to 0 and fail every comparison.
var roleLevels = map[string]int{
	RoleAuthor: 1,
	RoleEditor: 2,
	RoleAdmin:  3,
	RoleSuper:  4,
}

// RoleLevel returns the numeric hierarchy level for a role.
// Higher level = more permissions. Unknown roles have level 0.
func RoleLevel(role string) int {
	return roleLevels[role]
}

// IsValidRole reports whether role is one of the enumerated roles.
func IsValidRole(role string) bool {
	return roleLevels[role] > 0
}

// IsValidStatus reports whether status is one of the enumerated statuses.
func IsValidStatus(status string) bool {
	switch status {
	case StatusActive, StatusInactive, StatusSuspended:
		return true
	default:
		return false
	}
}

// User represents a blog user account.
type User struct {
	ID            int64        `json:"id"`
	Username      string       `json:"username"`
	Email         string       `json:"email"`
	PasswordHash  string       `json:"-"` // Never expose in JSON
	FirstName     string       `json:"first_name"`
	LastName      string       `json:"last_name"`
	Role          string       `json:"role"`
	Status        string       `json:"status"`
	EmailVerified bool         `json:"email_verified"`
	Bio           string       `json:"bio"`
	AvatarURL     string       `json:"avatar_url"`
	LastLoginAt   sql.NullTime `json:"last_login_at,omitempty"`
	LoginCount    int64        `json:"login_count"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// FullName returns "First Last" when both are set, otherwise the username.
func (u *User) FullName() string {
	if u.FirstName != "" && u.LastName != "" {
		return u.FirstName + " " + u.LastName
	}
	return u.Username
}

// IsActive returns true if the account may log in.
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// IsSuper returns true if the user has the super role.
func (u *User) IsSuper() bool {
	return u.Role == RoleSuper
}

// HasRole reports whether the user's role is at least the required role
// in the hierarchy (author < editor < admin < super).
func (u *User) HasRole(required string) bool {
	return RoleLevel(u.Role) >= RoleLevel(required)
}
