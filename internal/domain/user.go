package domain

import "slices"

// Role grants a fixed permission set.
type Role string

// Role values.
const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleViewer Role = "viewer"
)

// Permission names one guarded operation.
type Permission string

// Permission values.
const (
	PermissionCreateIssue      Permission = "create_issue"
	PermissionEditIssue        Permission = "edit_issue"
	PermissionDeleteIssue      Permission = "delete_issue"
	PermissionManageProject    Permission = "manage_project"
	PermissionManageAutomation Permission = "manage_automation"
)

var rolePermissions = map[Role][]Permission{
	RoleAdmin: {
		PermissionCreateIssue,
		PermissionEditIssue,
		PermissionDeleteIssue,
		PermissionManageProject,
		PermissionManageAutomation,
	},
	RoleMember: {PermissionCreateIssue, PermissionEditIssue},
	RoleViewer: {},
}

// User is a local account.
type User struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Email     string `json:"email" yaml:"email"`
	AvatarURL string `json:"avatarUrl,omitempty" yaml:"avatarUrl"`
	Role      Role   `json:"role" yaml:"role"`
}

// Can reports whether the user's role grants p.
func (u User) Can(p Permission) bool {
	return slices.Contains(rolePermissions[u.Role], p)
}

// HasPermission looks userID up in users and reports whether it holds p.
// Unknown users hold no permissions.
func HasPermission(users []User, userID string, p Permission) bool {
	for _, u := range users {
		if u.ID == userID {
			return u.Can(p)
		}
	}
	return false
}

// FindUser returns the user with id.
func FindUser(users []User, id string) (User, bool) {
	for _, u := range users {
		if u.ID == id {
			return u, true
		}
	}
	return User{}, false
}
