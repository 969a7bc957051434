package models

import (
	"regexp"
	"strings"
)

// UserRole is the closed set of actor roles.
type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
	RoleAdmin   UserRole = "admin"
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// DesignationHOD marks a teacher heading a department.
const DesignationHOD = "HOD"

// User mirrors a directory record owned by the identity service.
type User struct {
	Email       string   `db:"email" json:"email"`
	Username    string   `db:"username" json:"username"`
	Role        UserRole `db:"role" json:"role"`
	Department  *string  `db:"department" json:"department,omitempty"`
	Designation *string  `db:"designation" json:"designation,omitempty"`
	Gender      *string  `db:"gender" json:"gender,omitempty"`
	ImageRef    *string  `db:"image_ref" json:"image,omitempty"`
}

// DepartmentSlug returns the slug of the user's department or "" when none is set.
func (u User) DepartmentSlug() string {
	if u.Department == nil {
		return ""
	}
	return Slugify(*u.Department)
}

// IsHOD reports whether the user is a department head.
func (u User) IsHOD() bool {
	return u.Designation != nil && strings.EqualFold(*u.Designation, DesignationHOD)
}

// UserFilter captures directory listing criteria.
type UserFilter struct {
	Role   *UserRole
	Search string
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// Slugify lower-cases a department name and collapses whitespace runs into "-".
func Slugify(name string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}
