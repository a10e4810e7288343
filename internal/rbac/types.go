// Package rbac defines the entity model exchanged between the dispatch
// layer and the authority engine. Entities are plain value records; all
// rule enforcement happens inside the authority.
package rbac

import "time"

// User is a subject that can authenticate and hold role assignments.
type User struct {
	UserID            string     `json:"userId"`
	Password          string     `json:"password,omitempty"`
	NewPassword       string     `json:"newPassword,omitempty"`
	Description       string     `json:"description,omitempty"`
	OU                string     `json:"ou,omitempty"`
	Locked            bool       `json:"locked,omitempty"`
	Disabled          bool       `json:"disabled,omitempty"`
	PasswordChangedAt *time.Time `json:"passwordChangedAt,omitempty"`
	Roles             []UserRole `json:"roles,omitempty"`
}

// Role groups permissions for assignment to users.
type Role struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// AdminRole is a role evaluated in the delegated-administration context.
// It is a distinct type so grant routing cannot conflate the two spaces.
type AdminRole struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Permission identifies an operation on a protected object. Admin marks
// it as belonging to the delegated-administration permission space.
type Permission struct {
	ObjName string `json:"objName"`
	OpName  string `json:"opName"`
	ObjID   string `json:"objId,omitempty"`
	Admin   bool   `json:"admin,omitempty"`
}

// PermObj is a protected object permissions are declared against.
type PermObj struct {
	ObjName     string `json:"objName"`
	OU          string `json:"ou,omitempty"`
	Description string `json:"description,omitempty"`
}

// UserRole is a user-to-role assignment edge.
type UserRole struct {
	UserID string `json:"userId,omitempty"`
	Name   string `json:"name"`
}

// PermGrant carries a grant or revoke request. Exactly one of UserID and
// RoleNm is populated: that choice selects the grant target, while Admin
// independently selects the regular vs. delegated authority context.
type PermGrant struct {
	ObjName string `json:"objName"`
	OpName  string `json:"opName"`
	ObjID   string `json:"objId,omitempty"`
	UserID  string `json:"userId,omitempty"`
	RoleNm  string `json:"roleNm,omitempty"`
	Admin   bool   `json:"admin,omitempty"`
}

// RoleRelationship is a directed hierarchy edge: Parent inherits-to Child.
type RoleRelationship struct {
	Parent Role `json:"parent"`
	Child  Role `json:"child"`
}

// SDSet is a static or dynamic separation-of-duty constraint set. Whether
// it is static or dynamic is determined by the operation that created it,
// not by a field on the entity.
type SDSet struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Members     StringSet `json:"members,omitempty"`
	Cardinality int       `json:"cardinality,omitempty"`
}

// OrgUnitType distinguishes the two organizational-unit trees.
type OrgUnitType string

const (
	OrgUnitUser OrgUnitType = "USER"
	OrgUnitPerm OrgUnitType = "PERM"
)

// OrgUnit scopes a search to an organizational unit.
type OrgUnit struct {
	Name string      `json:"name"`
	Type OrgUnitType `json:"type"`
}

// Session represents an authenticated actor and its activated roles. The
// dispatch layer threads sessions through calls without inspecting them;
// the access authority mutates active-role state in place.
type Session struct {
	SessionID string     `json:"sessionId"`
	UserID    string     `json:"userId"`
	Trusted   bool       `json:"trusted,omitempty"`
	Roles     []UserRole `json:"roles,omitempty"`
	CreatedAt time.Time  `json:"createdAt,omitempty"`
}
