package models

import "time"

// UserRole is the access level shown in the user directory.
type UserRole string

const (
	RoleAdministrator UserRole = "Administrator"
	RoleManager       UserRole = "Manager"
	RoleEmployee      UserRole = "Employee"
	RoleGuest         UserRole = "Guest"

	// RoleFilterAll is the role filter value that disables role filtering.
	RoleFilterAll = "All Users"
)

// Roles lists every role in display order.
var Roles = []UserRole{RoleAdministrator, RoleManager, RoleEmployee, RoleGuest}

// Valid reports whether r is one of the enumerated roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdministrator, RoleManager, RoleEmployee, RoleGuest:
		return true
	}
	return false
}

// UserStatus is the account state of a directory record.
type UserStatus string

const (
	StatusActive   UserStatus = "Active"
	StatusInactive UserStatus = "Inactive"
	StatusPending  UserStatus = "Pending"
)

// Valid reports whether s is one of the enumerated statuses.
func (s UserStatus) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusPending:
		return true
	}
	return false
}

// User represents a directory record stored in the users table.
type User struct {
	ID        int64      `db:"id" json:"id"`
	Name      string     `db:"name" json:"name"`
	Email     string     `db:"email" json:"email"`
	Password  string     `db:"password" json:"-"`
	Role      UserRole   `db:"role" json:"role"`
	Status    UserStatus `db:"status" json:"status"`
	LastLogin *time.Time `db:"last_login" json:"lastLogin"`
	Avatar    *string    `db:"avatar" json:"avatar"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `db:"updated_at" json:"updatedAt"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page        int `json:"page"`
	PageSize    int `json:"page_size"`
	TotalCount  int `json:"total_count"`
	TotalPages  int `json:"total_pages"`
	ShowingFrom int `json:"showing_from"`
	ShowingTo   int `json:"showing_to"`
}

// RoleShare is one slice of the user distribution by role.
type RoleShare struct {
	Role       UserRole `json:"role"`
	Count      int      `json:"count"`
	Percentage float64  `json:"percentage"`
}
