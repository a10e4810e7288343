// Package authoritytest provides recording fakes for the authority
// interfaces, shared by dispatcher and HTTP tests.
package authoritytest

import (
	"context"

	"github.com/john77eipe/directory-fortress-enmasse/internal/authority"
	"github.com/john77eipe/directory-fortress-enmasse/internal/rbac"
)

// Call records one authority invocation: the method name and the
// arguments it was handed, in declaration order, context excluded.
type Call struct {
	Op   string
	Args []any
}

// Recorder accumulates calls across the fake managers sharing it, in
// invocation order.
type Recorder struct {
	Calls []Call
}

func (r *Recorder) record(op string, args ...any) {
	r.Calls = append(r.Calls, Call{Op: op, Args: args})
}

// Last returns the most recent call, or a zero Call if none were made.
func (r *Recorder) Last() Call {
	if len(r.Calls) == 0 {
		return Call{}
	}
	return r.Calls[len(r.Calls)-1]
}

// Find returns the first call with the given op name.
func (r *Recorder) Find(op string) (Call, bool) {
	for _, c := range r.Calls {
		if c.Op == op {
			return c, true
		}
	}
	return Call{}, false
}

// Factory hands out the fakes below and records the tenant each handle
// was opened for. A non-nil Err fails every handle request.
type Factory struct {
	Recorder

	AdminMgr     *Admin
	DelegatedMgr *Delegated
	ReviewMgr    *Review
	AccessMgr    *Access
	Err          error
}

// NewFactory builds a factory whose four fakes share one recorder.
func NewFactory() *Factory {
	f := &Factory{}
	f.AdminMgr = &Admin{rec: &f.Recorder}
	f.DelegatedMgr = &Delegated{rec: &f.Recorder}
	f.ReviewMgr = &Review{rec: &f.Recorder}
	f.AccessMgr = &Access{rec: &f.Recorder}
	return f
}

func (f *Factory) Admin(ctx context.Context, contextID string) (authority.AdminManager, error) {
	f.record("factory.Admin", contextID)
	if f.Err != nil {
		return nil, f.Err
	}
	return f.AdminMgr, nil
}

func (f *Factory) DelegatedAdmin(ctx context.Context, contextID string) (authority.DelegatedAdminManager, error) {
	f.record("factory.DelegatedAdmin", contextID)
	if f.Err != nil {
		return nil, f.Err
	}
	return f.DelegatedMgr, nil
}

func (f *Factory) Review(ctx context.Context, contextID string) (authority.ReviewManager, error) {
	f.record("factory.Review", contextID)
	if f.Err != nil {
		return nil, f.Err
	}
	return f.ReviewMgr, nil
}

func (f *Factory) Access(ctx context.Context, contextID string) (authority.AccessManager, error) {
	f.record("factory.Access", contextID)
	if f.Err != nil {
		return nil, f.Err
	}
	return f.AccessMgr, nil
}

// Admin is a recording AdminManager. Output fields configure what the
// entity-returning methods answer; Err fails every operation.
type Admin struct {
	rec *Recorder

	Session *rbac.Session
	UserOut rbac.User
	RoleOut rbac.Role
	PermOut rbac.Permission
	ObjOut  rbac.PermObj
	SetOut  rbac.SDSet
	Err     error
}

func (a *Admin) SetAdmin(session *rbac.Session) {
	a.Session = session
	a.rec.record("admin.SetAdmin", session)
}

func (a *Admin) AddUser(ctx context.Context, u rbac.User) (rbac.User, error) {
	a.rec.record("admin.AddUser", u)
	return a.UserOut, a.Err
}

func (a *Admin) UpdateUser(ctx context.Context, u rbac.User) (rbac.User, error) {
	a.rec.record("admin.UpdateUser", u)
	return a.UserOut, a.Err
}

func (a *Admin) DeleteUser(ctx context.Context, u rbac.User) error {
	a.rec.record("admin.DeleteUser", u)
	return a.Err
}

func (a *Admin) DisableUser(ctx context.Context, u rbac.User) error {
	a.rec.record("admin.DisableUser", u)
	return a.Err
}

func (a *Admin) ChangePassword(ctx context.Context, u rbac.User, newPassword string) error {
	a.rec.record("admin.ChangePassword", u, newPassword)
	return a.Err
}

func (a *Admin) ResetPassword(ctx context.Context, u rbac.User, newPassword string) error {
	a.rec.record("admin.ResetPassword", u, newPassword)
	return a.Err
}

func (a *Admin) LockUserAccount(ctx context.Context, u rbac.User) error {
	a.rec.record("admin.LockUserAccount", u)
	return a.Err
}

func (a *Admin) UnlockUserAccount(ctx context.Context, u rbac.User) error {
	a.rec.record("admin.UnlockUserAccount", u)
	return a.Err
}

func (a *Admin) AddRole(ctx context.Context, r rbac.Role) (rbac.Role, error) {
	a.rec.record("admin.AddRole", r)
	return a.RoleOut, a.Err
}

func (a *Admin) UpdateRole(ctx context.Context, r rbac.Role) (rbac.Role, error) {
	a.rec.record("admin.UpdateRole", r)
	return a.RoleOut, a.Err
}

func (a *Admin) DeleteRole(ctx context.Context, r rbac.Role) error {
	a.rec.record("admin.DeleteRole", r)
	return a.Err
}

func (a *Admin) AssignUser(ctx context.Context, ur rbac.UserRole) error {
	a.rec.record("admin.AssignUser", ur)
	return a.Err
}

func (a *Admin) DeassignUser(ctx context.Context, ur rbac.UserRole) error {
	a.rec.record("admin.DeassignUser", ur)
	return a.Err
}

func (a *Admin) AddPermission(ctx context.Context, p rbac.Permission) (rbac.Permission, error) {
	a.rec.record("admin.AddPermission", p)
	return a.PermOut, a.Err
}

func (a *Admin) UpdatePermission(ctx context.Context, p rbac.Permission) (rbac.Permission, error) {
	a.rec.record("admin.UpdatePermission", p)
	return a.PermOut, a.Err
}

func (a *Admin) DeletePermission(ctx context.Context, p rbac.Permission) error {
	a.rec.record("admin.DeletePermission", p)
	return a.Err
}

func (a *Admin) AddPermObj(ctx context.Context, o rbac.PermObj) (rbac.PermObj, error) {
	a.rec.record("admin.AddPermObj", o)
	return a.ObjOut, a.Err
}

func (a *Admin) UpdatePermObj(ctx context.Context, o rbac.PermObj) (rbac.PermObj, error) {
	a.rec.record("admin.UpdatePermObj", o)
	return a.ObjOut, a.Err
}

func (a *Admin) DeletePermObj(ctx context.Context, o rbac.PermObj) error {
	a.rec.record("admin.DeletePermObj", o)
	return a.Err
}

func (a *Admin) GrantPermission(ctx context.Context, p rbac.Permission, r rbac.Role) error {
	a.rec.record("admin.GrantPermission", p, r)
	return a.Err
}

func (a *Admin) RevokePermission(ctx context.Context, p rbac.Permission, r rbac.Role) error {
	a.rec.record("admin.RevokePermission", p, r)
	return a.Err
}

func (a *Admin) GrantPermissionUser(ctx context.Context, p rbac.Permission, u rbac.User) error {
	a.rec.record("admin.GrantPermissionUser", p, u)
	return a.Err
}

func (a *Admin) RevokePermissionUser(ctx context.Context, p rbac.Permission, u rbac.User) error {
	a.rec.record("admin.RevokePermissionUser", p, u)
	return a.Err
}

func (a *Admin) AddDescendant(ctx context.Context, parent, child rbac.Role) error {
	a.rec.record("admin.AddDescendant", parent, child)
	return a.Err
}

func (a *Admin) AddAscendant(ctx context.Context, child, parent rbac.Role) error {
	a.rec.record("admin.AddAscendant", child, parent)
	return a.Err
}

func (a *Admin) AddInheritance(ctx context.Context, parent, child rbac.Role) error {
	a.rec.record("admin.AddInheritance", parent, child)
	return a.Err
}

func (a *Admin) DeleteInheritance(ctx context.Context, parent, child rbac.Role) error {
	a.rec.record("admin.DeleteInheritance", parent, child)
	return a.Err
}

func (a *Admin) CreateSsdSet(ctx context.Context, s rbac.SDSet) (rbac.SDSet, error) {
	a.rec.record("admin.CreateSsdSet", s)
	return a.SetOut, a.Err
}

func (a *Admin) UpdateSsdSet(ctx context.Context, s rbac.SDSet) (rbac.SDSet, error) {
	a.rec.record("admin.UpdateSsdSet", s)
	return a.SetOut, a.Err
}

func (a *Admin) DeleteSsdSet(ctx context.Context, s rbac.SDSet) (rbac.SDSet, error) {
	a.rec.record("admin.DeleteSsdSet", s)
	return a.SetOut, a.Err
}

func (a *Admin) AddSsdRoleMember(ctx context.Context, s rbac.SDSet, r rbac.Role) (rbac.SDSet, error) {
	a.rec.record("admin.AddSsdRoleMember", s, r)
	return a.SetOut, a.Err
}

func (a *Admin) DeleteSsdRoleMember(ctx context.Context, s rbac.SDSet, r rbac.Role) (rbac.SDSet, error) {
	a.rec.record("admin.DeleteSsdRoleMember", s, r)
	return a.SetOut, a.Err
}

func (a *Admin) SetSsdSetCardinality(ctx context.Context, s rbac.SDSet, cardinality int) (rbac.SDSet, error) {
	a.rec.record("admin.SetSsdSetCardinality", s, cardinality)
	return a.SetOut, a.Err
}

func (a *Admin) CreateDsdSet(ctx context.Context, s rbac.SDSet) (rbac.SDSet, error) {
	a.rec.record("admin.CreateDsdSet", s)
	return a.SetOut, a.Err
}

func (a *Admin) UpdateDsdSet(ctx context.Context, s rbac.SDSet) (rbac.SDSet, error) {
	a.rec.record("admin.UpdateDsdSet", s)
	return a.SetOut, a.Err
}

func (a *Admin) DeleteDsdSet(ctx context.Context, s rbac.SDSet) (rbac.SDSet, error) {
	a.rec.record("admin.DeleteDsdSet", s)
	return a.SetOut, a.Err
}

func (a *Admin) AddDsdRoleMember(ctx context.Context, s rbac.SDSet, r rbac.Role) (rbac.SDSet, error) {
	a.rec.record("admin.AddDsdRoleMember", s, r)
	return a.SetOut, a.Err
}

func (a *Admin) DeleteDsdRoleMember(ctx context.Context, s rbac.SDSet, r rbac.Role) (rbac.SDSet, error) {
	a.rec.record("admin.DeleteDsdRoleMember", s, r)
	return a.SetOut, a.Err
}

func (a *Admin) SetDsdSetCardinality(ctx context.Context, s rbac.SDSet, cardinality int) (rbac.SDSet, error) {
	a.rec.record("admin.SetDsdSetCardinality", s, cardinality)
	return a.SetOut, a.Err
}

// Delegated is a recording DelegatedAdminManager.
type Delegated struct {
	rec *Recorder

	Session *rbac.Session
	Err     error
}

func (d *Delegated) SetAdmin(session *rbac.Session) {
	d.Session = session
	d.rec.record("delegated.SetAdmin", session)
}

func (d *Delegated) GrantPermission(ctx context.Context, p rbac.Permission, r rbac.AdminRole) error {
	d.rec.record("delegated.GrantPermission", p, r)
	return d.Err
}

func (d *Delegated) RevokePermission(ctx context.Context, p rbac.Permission, r rbac.AdminRole) error {
	d.rec.record("delegated.RevokePermission", p, r)
	return d.Err
}

func (d *Delegated) GrantPermissionUser(ctx context.Context, p rbac.Permission, u rbac.User) error {
	d.rec.record("delegated.GrantPermissionUser", p, u)
	return d.Err
}

func (d *Delegated) RevokePermissionUser(ctx context.Context, p rbac.Permission, u rbac.User) error {
	d.rec.record("delegated.RevokePermissionUser", p, u)
	return d.Err
}

// Review is a recording ReviewManager with per-shape output fields.
type Review struct {
	rec *Recorder

	Session      *rbac.Session
	UserOut      rbac.User
	UsersOut     []rbac.User
	IDsOut       []string
	RoleOut      rbac.Role
	RolesOut     []rbac.Role
	NamesOut     []string
	UserRolesOut []rbac.UserRole
	RoleSetOut   rbac.StringSet
	PermOut      rbac.Permission
	PermsOut     []rbac.Permission
	ObjOut       rbac.PermObj
	ObjsOut      []rbac.PermObj
	SDOut        rbac.SDSet
	SDsOut       []rbac.SDSet
	CardOut      int
	Err          error
}

func (r *Review) SetAdmin(session *rbac.Session) {
	r.Session = session
	r.rec.record("review.SetAdmin", session)
}

func (r *Review) ReadUser(ctx context.Context, u rbac.User) (rbac.User, error) {
	r.rec.record("review.ReadUser", u)
	return r.UserOut, r.Err
}

func (r *Review) FindUsers(ctx context.Context, u rbac.User) ([]rbac.User, error) {
	r.rec.record("review.FindUsers", u)
	return r.UsersOut, r.Err
}

func (r *Review) FindUsersInUnit(ctx context.Context, ou rbac.OrgUnit) ([]rbac.User, error) {
	r.rec.record("review.FindUsersInUnit", ou)
	return r.UsersOut, r.Err
}

func (r *Review) FindUserIDs(ctx context.Context, u rbac.User, limit int) ([]string, error) {
	r.rec.record("review.FindUserIDs", u, limit)
	return r.IDsOut, r.Err
}

func (r *Review) ReadRole(ctx context.Context, role rbac.Role) (rbac.Role, error) {
	r.rec.record("review.ReadRole", role)
	return r.RoleOut, r.Err
}

func (r *Review) FindRoles(ctx context.Context, searchValue string) ([]rbac.Role, error) {
	r.rec.record("review.FindRoles", searchValue)
	return r.RolesOut, r.Err
}

func (r *Review) FindRoleNames(ctx context.Context, searchValue string, limit int) ([]string, error) {
	r.rec.record("review.FindRoleNames", searchValue, limit)
	return r.NamesOut, r.Err
}

func (r *Review) AssignedUsers(ctx context.Context, role rbac.Role) ([]rbac.User, error) {
	r.rec.record("review.AssignedUsers", role)
	return r.UsersOut, r.Err
}

func (r *Review) AssignedUserIDs(ctx context.Context, role rbac.Role, limit int) ([]string, error) {
	r.rec.record("review.AssignedUserIDs", role, limit)
	return r.IDsOut, r.Err
}

func (r *Review) AssignedRoles(ctx context.Context, u rbac.User) ([]rbac.UserRole, error) {
	r.rec.record("review.AssignedRoles", u)
	return r.UserRolesOut, r.Err
}

func (r *Review) AssignedRoleNames(ctx context.Context, userID string) ([]string, error) {
	r.rec.record("review.AssignedRoleNames", userID)
	return r.NamesOut, r.Err
}

func (r *Review) AuthorizedUsers(ctx context.Context, role rbac.Role) ([]rbac.User, error) {
	r.rec.record("review.AuthorizedUsers", role)
	return r.UsersOut, r.Err
}

func (r *Review) AuthorizedRoles(ctx context.Context, u rbac.User) (rbac.StringSet, error) {
	r.rec.record("review.AuthorizedRoles", u)
	return r.RoleSetOut, r.Err
}

func (r *Review) ReadPermission(ctx context.Context, p rbac.Permission) (rbac.Permission, error) {
	r.rec.record("review.ReadPermission", p)
	return r.PermOut, r.Err
}

func (r *Review) FindPermissions(ctx context.Context, p rbac.Permission) ([]rbac.Permission, error) {
	r.rec.record("review.FindPermissions", p)
	return r.PermsOut, r.Err
}

func (r *Review) ReadPermObj(ctx context.Context, o rbac.PermObj) (rbac.PermObj, error) {
	r.rec.record("review.ReadPermObj", o)
	return r.ObjOut, r.Err
}

func (r *Review) FindPermObjs(ctx context.Context, o rbac.PermObj) ([]rbac.PermObj, error) {
	r.rec.record("review.FindPermObjs", o)
	return r.ObjsOut, r.Err
}

func (r *Review) FindPermObjsInUnit(ctx context.Context, ou rbac.OrgUnit) ([]rbac.PermObj, error) {
	r.rec.record("review.FindPermObjsInUnit", ou)
	return r.ObjsOut, r.Err
}

func (r *Review) PermissionRoles(ctx context.Context, p rbac.Permission) ([]string, error) {
	r.rec.record("review.PermissionRoles", p)
	return r.NamesOut, r.Err
}

func (r *Review) AuthorizedPermissionRoles(ctx context.Context, p rbac.Permission) (rbac.StringSet, error) {
	r.rec.record("review.AuthorizedPermissionRoles", p)
	return r.RoleSetOut, r.Err
}

func (r *Review) PermissionUsers(ctx context.Context, p rbac.Permission) ([]string, error) {
	r.rec.record("review.PermissionUsers", p)
	return r.IDsOut, r.Err
}

func (r *Review) AuthorizedPermissionUsers(ctx context.Context, p rbac.Permission) (rbac.StringSet, error) {
	r.rec.record("review.AuthorizedPermissionUsers", p)
	return r.RoleSetOut, r.Err
}

func (r *Review) UserPermissions(ctx context.Context, u rbac.User) ([]rbac.Permission, error) {
	r.rec.record("review.UserPermissions", u)
	return r.PermsOut, r.Err
}

func (r *Review) RolePermissions(ctx context.Context, role rbac.Role) ([]rbac.Permission, error) {
	r.rec.record("review.RolePermissions", role)
	return r.PermsOut, r.Err
}

func (r *Review) SsdRoleSets(ctx context.Context, role rbac.Role) ([]rbac.SDSet, error) {
	r.rec.record("review.SsdRoleSets", role)
	return r.SDsOut, r.Err
}

func (r *Review) SsdRoleSet(ctx context.Context, s rbac.SDSet) (rbac.SDSet, error) {
	r.rec.record("review.SsdRoleSet", s)
	return r.SDOut, r.Err
}

func (r *Review) SsdRoleSetRoles(ctx context.Context, s rbac.SDSet) (rbac.StringSet, error) {
	r.rec.record("review.SsdRoleSetRoles", s)
	return r.RoleSetOut, r.Err
}

func (r *Review) SsdRoleSetCardinality(ctx context.Context, s rbac.SDSet) (int, error) {
	r.rec.record("review.SsdRoleSetCardinality", s)
	return r.CardOut, r.Err
}

func (r *Review) SsdSets(ctx context.Context, s rbac.SDSet) ([]rbac.SDSet, error) {
	r.rec.record("review.SsdSets", s)
	return r.SDsOut, r.Err
}

func (r *Review) DsdRoleSets(ctx context.Context, role rbac.Role) ([]rbac.SDSet, error) {
	r.rec.record("review.DsdRoleSets", role)
	return r.SDsOut, r.Err
}

func (r *Review) DsdRoleSet(ctx context.Context, s rbac.SDSet) (rbac.SDSet, error) {
	r.rec.record("review.DsdRoleSet", s)
	return r.SDOut, r.Err
}

func (r *Review) DsdRoleSetRoles(ctx context.Context, s rbac.SDSet) (rbac.StringSet, error) {
	r.rec.record("review.DsdRoleSetRoles", s)
	return r.RoleSetOut, r.Err
}

func (r *Review) DsdRoleSetCardinality(ctx context.Context, s rbac.SDSet) (int, error) {
	r.rec.record("review.DsdRoleSetCardinality", s)
	return r.CardOut, r.Err
}

func (r *Review) DsdSets(ctx context.Context, s rbac.SDSet) ([]rbac.SDSet, error) {
	r.rec.record("review.DsdSets", s)
	return r.SDsOut, r.Err
}

// Access is a recording AccessManager.
type Access struct {
	rec *Recorder

	SessionOut   *rbac.Session
	Authorized   bool
	PermsOut     []rbac.Permission
	UserRolesOut []rbac.UserRole
	RoleSetOut   rbac.StringSet
	UserIDOut    string
	UserOut      rbac.User
	Err          error
}

func (a *Access) Authenticate(ctx context.Context, userID, password string) (*rbac.Session, error) {
	a.rec.record("access.Authenticate", userID, password)
	if a.Err != nil {
		return nil, a.Err
	}
	return a.SessionOut, nil
}

func (a *Access) CreateSession(ctx context.Context, u rbac.User, trusted bool) (*rbac.Session, error) {
	a.rec.record("access.CreateSession", u, trusted)
	if a.Err != nil {
		return nil, a.Err
	}
	return a.SessionOut, nil
}

func (a *Access) CheckAccess(ctx context.Context, s *rbac.Session, p rbac.Permission) (bool, error) {
	a.rec.record("access.CheckAccess", s, p)
	return a.Authorized, a.Err
}

func (a *Access) SessionPermissions(ctx context.Context, s *rbac.Session) ([]rbac.Permission, error) {
	a.rec.record("access.SessionPermissions", s)
	return a.PermsOut, a.Err
}

func (a *Access) SessionRoles(ctx context.Context, s *rbac.Session) ([]rbac.UserRole, error) {
	a.rec.record("access.SessionRoles", s)
	return a.UserRolesOut, a.Err
}

func (a *Access) AuthorizedRoles(ctx context.Context, s *rbac.Session) (rbac.StringSet, error) {
	a.rec.record("access.AuthorizedRoles", s)
	return a.RoleSetOut, a.Err
}

func (a *Access) AddActiveRole(ctx context.Context, s *rbac.Session, ur rbac.UserRole) error {
	a.rec.record("access.AddActiveRole", s, ur)
	return a.Err
}

func (a *Access) DropActiveRole(ctx context.Context, s *rbac.Session, ur rbac.UserRole) error {
	a.rec.record("access.DropActiveRole", s, ur)
	return a.Err
}

func (a *Access) UserID(ctx context.Context, s *rbac.Session) (string, error) {
	a.rec.record("access.UserID", s)
	return a.UserIDOut, a.Err
}

func (a *Access) User(ctx context.Context, s *rbac.Session) (rbac.User, error) {
	a.rec.record("access.User", s)
	return a.UserOut, a.Err
}
