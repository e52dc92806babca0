package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleStudent UserRole = "student"
)

// User represents an application user stored in the users table.
type User struct {
	ID            string     `db:"id" json:"id"`
	Email         string     `db:"email" json:"email"`
	PasswordHash  string     `db:"password_hash" json:"-"`
	FullName      string     `db:"full_name" json:"full_name"`
	AvatarURL     *string    `db:"avatar_url" json:"avatar_url,omitempty"`
	CollegeEmail  *string    `db:"college_email" json:"college_email,omitempty"`
	CollegeDomain *string    `db:"college_domain" json:"college_domain,omitempty"`
	Role          UserRole   `db:"user_role" json:"role"`
	Verified      bool       `db:"is_verified" json:"is_verified"`
	Active        bool       `db:"is_active" json:"is_active"`
	LastLoginAt   *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role          *UserRole
	Active        *bool
	CollegeDomain string
	Search        string
	Page          int
	PageSize      int
}
