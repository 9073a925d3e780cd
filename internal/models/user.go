package models

import "strings"

// Role classifies a user. Admin-equivalent access is granted to Staff and Admin.
type Role string

const (
	RolePatient Role = "Patient"
	RoleStaff   Role = "Staff"
	RoleAdmin   Role = "Admin"
	RoleUnknown Role = ""
)

// IsStaff reports whether the role may use the staff/admin dashboard.
func (r Role) IsStaff() bool {
	return r == RoleStaff || r == RoleAdmin
}

// ParseRole maps a stored role string to a Role. Legacy "Doctor" records count as staff.
func ParseRole(s string) Role {
	switch s {
	case "Patient":
		return RolePatient
	case "Staff", "Doctor":
		return RoleStaff
	case "Admin":
		return RoleAdmin
	default:
		return RoleUnknown
	}
}

type User struct {
	ID           string `bson:"_id,omitempty" json:"id"`
	Role         string `bson:"user_Role" json:"role"`
	FirstName    string `bson:"user_FirstName" json:"firstName"`
	MiddleName   string `bson:"user_MiddleName" json:"middleName"`
	LastName     string `bson:"user_LastName" json:"lastName"`
	Address      string `bson:"user_Address" json:"address"`
	MobileNumber string `bson:"user_MobileNumber" json:"mobileNumber"`
	Email        string `bson:"user_Email" json:"email"`
}

// FullName joins the non-empty name parts.
func (u User) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{u.FirstName, u.MiddleName, u.LastName} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}
