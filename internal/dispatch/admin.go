package dispatch

import (
	"context"

	"github.com/john77eipe/directory-fortress-enmasse/internal/authority"
	"github.com/john77eipe/directory-fortress-enmasse/internal/rbac"
)

// AdminService routes administrative mutations to the administration
// authority: entity CRUD, account-state changes, grant/revoke routing,
// role hierarchy edges, and separation-of-duty sets.
type AdminService struct {
	factory authority.Factory
}

// NewAdminService builds an administration dispatcher over the given
// factory.
func NewAdminService(factory authority.Factory) *AdminService {
	return &AdminService{factory: factory}
}

// admin returns a tenant-scoped administration handle with the acting
// session attached.
func (s *AdminService) admin(ctx context.Context, req Request) (authority.AdminManager, error) {
	mgr, err := s.factory.Admin(ctx, req.ContextID)
	if err != nil {
		return nil, err
	}
	mgr.SetAdmin(req.Session)
	return mgr, nil
}

// delegated returns a tenant-scoped delegated-administration handle with
// the acting session attached.
func (s *AdminService) delegated(ctx context.Context, req Request) (authority.DelegatedAdminManager, error) {
	mgr, err := s.factory.DelegatedAdmin(ctx, req.ContextID)
	if err != nil {
		return nil, err
	}
	mgr.SetAdmin(req.Session)
	return mgr, nil
}

// User operations --------------------------------------------------------

// AddUser creates the User entity and returns the authority's copy, which
// carries any server-assigned fields.
func (s *AdminService) AddUser(ctx context.Context, req Request) Response {
	in, err := entityAs[rbac.User](req)
	if err != nil {
		return failure(err)
	}
	admin, err := s.admin(ctx, req)
	if err != nil {
		return failure(err)
	}
	out, err := admin.AddUser(ctx, in)
	if err != nil {
		return failure(err)
	}
	return Response{Entity: out}
}

// UpdateUser updates the User entity and returns the authority's copy.
func (s *AdminService) UpdateUser(ctx context.Context, req Request) Response {
	in, err := entityAs[rbac.User](req)
	if err != nil {
		return failure(err)
	}
	admin, err := s.admin(ctx, req)
	if err != nil {
		return failure(err)
	}
	out, err := admin.UpdateUser(ctx, in)
	if err != nil {
		return failure(err)
	}
	return Response{Entity: out}
}

// DeleteUser removes the user and echoes the input entity as
// confirmation.
func (s *AdminService) DeleteUser(ctx context.Context, req Request) Response {
	in, err := entityAs[rbac.User](req)
	if err != nil {
		return failure(err)
	}
	admin, err := s.admin(ctx, req)
	if err != nil {
		return failure(err)
	}
	if err := admin.DeleteUser(ctx, in); err != nil {
		return failure(err)
	}
	return Response{Entity: in}
}

// DisableUser disables the account and echoes the input entity.
func (s *AdminService) DisableUser(ctx context.Context, req Request) Response {
	in, err := entityAs[rbac.User](req)
	if err != nil {
		return failure(err)
	}
	admin, err := s.admin(ctx, req)
	if err != nil {
		return failure(err)
	}
	if err := admin.DisableUser(ctx, in); err != nil {
		return failure(err)
	}
	return Response{Entity: in}
}

// rereadUser performs the mandatory post-mutation read through the review
// authority so account-state responses carry canonical server state, not
// the caller's input. If the re-read fails after a successful mutation
// the mutation is not rolled back; the caller sees the read failure and
// must treat the account as possibly changed.
func (s *AdminService) rereadUser(ctx context.Context, req Request, u rbac.User) Response {
	review, err := s.factory.Review(ctx, req.ContextID)
	if err != nil {
		return failure(err)
	}
	review.SetAdmin(req.Session)
	out, err := review.ReadUser(ctx, u)
	if err != nil {
		return failure(err)
	}
	return Response{Entity: out}
}

// ChangePassword changes the user's password to the entity's NewPassword
// and returns the freshly re-read user.
func (s *AdminService) ChangePassword(ctx context.Context, req Request) Response {
	in, err := entityAs[rbac.User](req)
	if err != nil {
		return failure(err)
	}
	admin, err := s.admin(ctx, req)
	if err != nil {
		return failure(err)
	}
	if err := admin.ChangePassword(ctx, in, in.NewPassword); err != nil {
		return failure(err)
	}
	return s.rereadUser(ctx, req, in)
}

// ResetPassword administratively sets the user's password and returns the
// freshly re-read user.
func (s *AdminService) ResetPassword(ctx context.Context, req Request) Response {
	in, err := entityAs[rbac.User](req)
	if err != nil {
		return failure(err)
	}
	admin, err := s.admin(ctx, req)
	if err != nil {
		return failure(err)
	}
	if err := admin.ResetPassword(ctx, in, in.NewPassword); err != nil {
		return failure(err)
	}
	return s.rereadUser(ctx, req, in)
}

// LockUserAccount locks the account and returns the freshly re-read user.
func (s *AdminService) LockUserAccount(ctx context.Context, req Request) Response {
	in, err := entityAs[rbac.User](req)
	if err != nil {
		return failure(err)
	}
	admin, err := s.admin(ctx, req)
	if err != nil {
		return failure(err)
	}
	if err := admin.LockUserAccount(ctx, in); err != nil {
		return failure(err)
	}
	return s.rereadUser(ctx, req, in)
}

// UnlockUserAccount unlocks the account and returns the freshly re-read
// user.
func (s *AdminService) UnlockUserAccount(ctx context.Context, req Request) Response {
	in, err := entityAs[rbac.User](req)
	if err != nil {
		return failure(err)
	}
	admin, err := s.admin(ctx, req)
	if err != nil {
		return failure(err)
	}
	if err := admin.UnlockUserAccount(ctx, in); err != nil {
		return failure(err)
	}
	return s.rereadUser(ctx, req, in)
}

// Role operations --------------------------------------------------------

// AddRole creates the Role entity and returns the authority's copy.
func (s *AdminService) AddRole(ctx context.Context, req Request) Response {
	in, err := entityAs[rbac.Role](req)
	if err != nil {
		return failure(err)
	}
	admin, err := s.admin(ctx, req)
	if err != nil {
		return failure(err)
	}
	out, err := admin.AddRole(ctx, in)
	if err != nil {
		return failure(err)
	}
	return Response{Entity: out}
}

// UpdateRole updates the Role entity and returns the authority's copy.
func (s *AdminService) UpdateRole(ctx context.Context, req Request) Response {
	in, err := entityAs[rbac.Role](req)
	if err != nil {
		return failure(err)
	}
	admin, err := s.admin(ctx, req)
	if err != nil {
		return failure(err)
	}
	out, err := admin.UpdateRole(ctx, in)
	if err != nil {
		return failure(err)
	}
	return Response{Entity: out}
}

// DeleteRole removes the role and echoes the input entity.
func (s *AdminService) DeleteRole(ctx context.Context, req Request) Response {
	in, err := entityAs[rbac.Role](req)
	if err != nil {
		return failure(err)
	}
	admin, err := s.admin(ctx, req)
	if err != nil {
		return failure(err)
	}
	if err := admin.DeleteRole(ctx, in); err != nil {
		return failure(err)
	}
	return Response{Entity: in}
}

// AssignUser assigns the UserRole entity's role to its user and echoes
// the input entity.
func (s *AdminService) AssignUser(ctx context.Context, req Request) Response {
	in, err := entityAs[rbac.UserRole](req)
	if err != nil {
		return failure(err)
	}
	admin, err := s.admin(ctx, req)
	if err != nil {
		return failure(err)
	}
	if err := admin.AssignUser(ctx, in); err != nil {
		return failure(err)
	}
	return Response{Entity: in}
}

// DeassignUser removes the assignment and echoes the input entity.
func (s *AdminService) DeassignUser(ctx context.Context, req Request) Response {
	in, err := entityAs[rbac.UserRole](req)
	if err != nil {
		return failure(err)
	}
	admin, err := s.admin(ctx, req)
	if err != nil {
		return failure(err)
	}
	if err := admin.DeassignUser(ctx, in); err != nil {
		return failure(err)
	}
	return Response{Entity: in}
}

// Permission operations --------------------------------------------------

// AddPermission creates the Permission entity and returns the authority's
// copy.
func (s *AdminService) AddPermission(ctx context.Context, req Request) Response {
	in, err := entityAs[rbac.Permission](req)
	if err != nil {
		return failure(err)
	}
	admin, err := s.admin(ctx, req)
	if err != nil {
		return failure(err)
	}
	out, err := admin.AddPermission(ctx, in)
	if err != nil {
		return failure(err)
	}
	return Response{Entity: out}
}

// UpdatePermission updates the Permission entity and returns the
// authority's copy.
func (s *AdminService) UpdatePermission(ctx context.Context, req Request) Response {
	in, err := entityAs[rbac.Permission](req)
	if err != nil {
		return failure(err)
	}
	admin, err := s.admin(ctx, req)
	if err != nil {
		return failure(err)
	}
	out, err := admin.UpdatePermission(ctx, in)
	if err != nil {
		return failure(err)
	}
	return Response{Entity: out}
}

// DeletePermission removes the permission and echoes the input entity.
func (s *AdminService) DeletePermission(ctx context.Context, req Request) Response {
	in, err := entityAs[rbac.Permission](req)
	if err != nil {
		return failure(err)
	}
	admin, err := s.admin(ctx, req)
	if err != nil {
		return failure(err)
	}
	if err := admin.DeletePermission(ctx, in); err != nil {
		return failure(err)
	}
	return Response{Entity: in}
}

// AddPermObj creates the PermObj entity and returns the authority's copy.
func (s *AdminService) AddPermObj(ctx context.Context, req Request) Response {
	in, err := entityAs[rbac.PermObj](req)
	if err != nil {
		return failure(err)
	}
	admin, err := s.admin(ctx, req)
	if err != nil {
		return failure(err)
	}
	out, err := admin.AddPermObj(ctx, in)
	if err != nil {
		return failure(err)
	}
	return Response{Entity: out}
}

// UpdatePermObj updates the PermObj entity and returns the authority's
// copy.
func (s *AdminService) UpdatePermObj(ctx context.Context, req Request) Response {
	in, err := entityAs[rbac.PermObj](req)
	if err != nil {
		return failure(err)
	}
	admin, err := s.admin(ctx, req)
	if err != nil {
		return failure(err)
	}
	out, err := admin.UpdatePermObj(ctx, in)
	if err != nil {
		return failure(err)
	}
	return Response{Entity: out}
}

// DeletePermObj removes the object and echoes the input entity.
func (s *AdminService) DeletePermObj(ctx context.Context, req Request) Response {
	in, err := entityAs[rbac.PermObj](req)
	if err != nil {
		return failure(err)
	}
	admin, err := s.admin(ctx, req)
	if err != nil {
		return failure(err)
	}
	if err := admin.DeletePermObj(ctx, in); err != nil {
		return failure(err)
	}
	return Response{Entity: in}
}

// Grant and revoke routing -----------------------------------------------
//
// The grant's Admin flag is the sole selector between the regular and
// delegated authority contexts and is copied unchanged onto the
// constructed Permission. It is orthogonal to the grant target, which is
// selected by whichever of RoleNm/UserID the call site populates.

func grantPermission(g rbac.PermGrant) rbac.Permission {
	return rbac.Permission{ObjName: g.ObjName, OpName: g.OpName, ObjID: g.ObjID, Admin: g.Admin}
}

// Grant grants the permission to the role named by the entity's RoleNm,
// routing through the delegated authority when Admin is set. The grant
// entity is echoed on success.
func (s *AdminService) Grant(ctx context.Context, req Request) Response {
	return s.routeGrant(ctx, req, false, false)
}

// Revoke mirrors Grant with identical routing.
func (s *AdminService) Revoke(ctx context.Context, req Request) Response {
	return s.routeGrant(ctx, req, true, false)
}

// GrantUser grants the permission directly to the user named by the
// entity's UserID, routing through the delegated authority when Admin is
// set.
func (s *AdminService) GrantUser(ctx context.Context, req Request) Response {
	return s.routeGrant(ctx, req, false, true)
}

// RevokeUser mirrors GrantUser with identical routing.
func (s *AdminService) RevokeUser(ctx context.Context, req Request) Response {
	return s.routeGrant(ctx, req, true, true)
}

func (s *AdminService) routeGrant(ctx context.Context, req Request, revoke, userTarget bool) Response {
	grant, err := entityAs[rbac.PermGrant](req)
	if err != nil {
		return failure(err)
	}
	if err := validateGrantTarget(grant, userTarget); err != nil {
		return failure(err)
	}
	perm := grantPermission(grant)
	if grant.Admin {
		err = s.routeDelegatedGrant(ctx, req, grant, perm, revoke, userTarget)
	} else {
		err = s.routeRegularGrant(ctx, req, grant, perm, revoke, userTarget)
	}
	if err != nil {
		return failure(err)
	}
	return Response{Entity: grant}
}

func (s *AdminService) routeRegularGrant(ctx context.Context, req Request, grant rbac.PermGrant, perm rbac.Permission, revoke, userTarget bool) error {
	admin, err := s.admin(ctx, req)
	if err != nil {
		return err
	}
	switch {
	case userTarget && revoke:
		return admin.RevokePermissionUser(ctx, perm, rbac.User{UserID: grant.UserID})
	case userTarget:
		return admin.GrantPermissionUser(ctx, perm, rbac.User{UserID: grant.UserID})
	case revoke:
		return admin.RevokePermission(ctx, perm, rbac.Role{Name: grant.RoleNm})
	default:
		return admin.GrantPermission(ctx, perm, rbac.Role{Name: grant.RoleNm})
	}
}

func (s *AdminService) routeDelegatedGrant(ctx context.Context, req Request, grant rbac.PermGrant, perm rbac.Permission, revoke, userTarget bool) error {
	delegated, err := s.delegated(ctx, req)
	if err != nil {
		return err
	}
	switch {
	case userTarget && revoke:
		return delegated.RevokePermissionUser(ctx, perm, rbac.User{UserID: grant.UserID})
	case userTarget:
		return delegated.GrantPermissionUser(ctx, perm, rbac.User{UserID: grant.UserID})
	case revoke:
		return delegated.RevokePermission(ctx, perm, rbac.AdminRole{Name: grant.RoleNm})
	default:
		return delegated.GrantPermission(ctx, perm, rbac.AdminRole{Name: grant.RoleNm})
	}
}

// validateGrantTarget rejects grants whose target fields do not match the
// invoked operation: role-targeted operations require RoleNm and no
// UserID, user-targeted operations the reverse.
func validateGrantTarget(g rbac.PermGrant, userTarget bool) error {
	if userTarget {
		if g.UserID == "" || g.RoleNm != "" {
			return rbac.NewSecurityError(rbac.CodeGrantTargetInvalid, "user-targeted grant requires userId and no roleNm")
		}
		return nil
	}
	if g.RoleNm == "" || g.UserID != "" {
		return rbac.NewSecurityError(rbac.CodeGrantTargetInvalid, "role-targeted grant requires roleNm and no userId")
	}
	return nil
}

// Hierarchy edges --------------------------------------------------------
//
// All four operations manipulate the same directed parent-inherits-to-
// child edge. AddAscendant introduces a new parent over an existing
// child, so the envelope's semantic fields are passed to the authority in
// swapped positions; the other three pass them through unchanged.

// AddDescendant adds a new child role under an existing parent.
func (s *AdminService) AddDescendant(ctx context.Context, req Request) Response {
	rel, err := entityAs[rbac.RoleRelationship](req)
	if err != nil {
		return failure(err)
	}
	admin, err := s.admin(ctx, req)
	if err != nil {
		return failure(err)
	}
	if err := admin.AddDescendant(ctx, rel.Parent, rel.Child); err != nil {
		return failure(err)
	}
	return Response{Entity: rel}
}

// AddAscendant adds a new parent role over an existing child. The
// authority receives (parent=rel.Child, child=rel.Parent).
func (s *AdminService) AddAscendant(ctx context.Context, req Request) Response {
	rel, err := entityAs[rbac.RoleRelationship](req)
	if err != nil {
		return failure(err)
	}
	admin, err := s.admin(ctx, req)
	if err != nil {
		return failure(err)
	}
	if err := admin.AddAscendant(ctx, rel.Child, rel.Parent); err != nil {
		return failure(err)
	}
	return Response{Entity: rel}
}

// AddInheritance links two existing roles with an inheritance edge.
func (s *AdminService) AddInheritance(ctx context.Context, req Request) Response {
	rel, err := entityAs[rbac.RoleRelationship](req)
	if err != nil {
		return failure(err)
	}
	admin, err := s.admin(ctx, req)
	if err != nil {
		return failure(err)
	}
	if err := admin.AddInheritance(ctx, rel.Parent, rel.Child); err != nil {
		return failure(err)
	}
	return Response{Entity: rel}
}

// DeleteInheritance removes the inheritance edge between two roles.
func (s *AdminService) DeleteInheritance(ctx context.Context, req Request) Response {
	rel, err := entityAs[rbac.RoleRelationship](req)
	if err != nil {
		return failure(err)
	}
	admin, err := s.admin(ctx, req)
	if err != nil {
		return failure(err)
	}
	if err := admin.DeleteInheritance(ctx, rel.Parent, rel.Child); err != nil {
		return failure(err)
	}
	return Response{Entity: rel}
}

// Separation-of-duty sets ------------------------------------------------

// CreateSsdSet creates a static separation-of-duty set and returns the
// authority's copy.
func (s *AdminService) CreateSsdSet(ctx context.Context, req Request) Response {
	return s.sdSetOp(ctx, req, authority.AdminManager.CreateSsdSet)
}

// UpdateSsdSet updates a static set and returns the authority's copy.
func (s *AdminService) UpdateSsdSet(ctx context.Context, req Request) Response {
	return s.sdSetOp(ctx, req, authority.AdminManager.UpdateSsdSet)
}

// DeleteSsdSet removes a static set and returns the authority's copy.
func (s *AdminService) DeleteSsdSet(ctx context.Context, req Request) Response {
	return s.sdSetOp(ctx, req, authority.AdminManager.DeleteSsdSet)
}

// CreateDsdSet creates a dynamic separation-of-duty set and returns the
// authority's copy.
func (s *AdminService) CreateDsdSet(ctx context.Context, req Request) Response {
	return s.sdSetOp(ctx, req, authority.AdminManager.CreateDsdSet)
}

// UpdateDsdSet updates a dynamic set and returns the authority's copy.
func (s *AdminService) UpdateDsdSet(ctx context.Context, req Request) Response {
	return s.sdSetOp(ctx, req, authority.AdminManager.UpdateDsdSet)
}

// DeleteDsdSet removes a dynamic set and returns the authority's copy.
func (s *AdminService) DeleteDsdSet(ctx context.Context, req Request) Response {
	return s.sdSetOp(ctx, req, authority.AdminManager.DeleteDsdSet)
}

func (s *AdminService) sdSetOp(ctx context.Context, req Request, op func(authority.AdminManager, context.Context, rbac.SDSet) (rbac.SDSet, error)) Response {
	in, err := entityAs[rbac.SDSet](req)
	if err != nil {
		return failure(err)
	}
	admin, err := s.admin(ctx, req)
	if err != nil {
		return failure(err)
	}
	out, err := op(admin, ctx, in)
	if err != nil {
		return failure(err)
	}
	return Response{Entity: out}
}

// AddSsdRoleMember adds the role named by the request's value field to
// the static set and returns the updated set.
func (s *AdminService) AddSsdRoleMember(ctx context.Context, req Request) Response {
	return s.sdMemberOp(ctx, req, authority.AdminManager.AddSsdRoleMember)
}

// DeleteSsdRoleMember removes the role named by the request's value field
// from the static set and returns the updated set.
func (s *AdminService) DeleteSsdRoleMember(ctx context.Context, req Request) Response {
	return s.sdMemberOp(ctx, req, authority.AdminManager.DeleteSsdRoleMember)
}

// AddDsdRoleMember adds the role named by the request's value field to
// the dynamic set and returns the updated set.
func (s *AdminService) AddDsdRoleMember(ctx context.Context, req Request) Response {
	return s.sdMemberOp(ctx, req, authority.AdminManager.AddDsdRoleMember)
}

// DeleteDsdRoleMember removes the role named by the request's value field
// from the dynamic set and returns the updated set.
func (s *AdminService) DeleteDsdRoleMember(ctx context.Context, req Request) Response {
	return s.sdMemberOp(ctx, req, authority.AdminManager.DeleteDsdRoleMember)
}

// Member add/remove takes the set entity plus a single role constructed
// from the envelope's plain value field, not a structured entity.
func (s *AdminService) sdMemberOp(ctx context.Context, req Request, op func(authority.AdminManager, context.Context, rbac.SDSet, rbac.Role) (rbac.SDSet, error)) Response {
	in, err := entityAs[rbac.SDSet](req)
	if err != nil {
		return failure(err)
	}
	admin, err := s.admin(ctx, req)
	if err != nil {
		return failure(err)
	}
	out, err := op(admin, ctx, in, rbac.Role{Name: req.Value})
	if err != nil {
		return failure(err)
	}
	return Response{Entity: out}
}

// SetSsdSetCardinality sets the static set's cardinality to the value
// already carried on the input entity. Bounds validation belongs to the
// authority.
func (s *AdminService) SetSsdSetCardinality(ctx context.Context, req Request) Response {
	return s.sdCardinalityOp(ctx, req, authority.AdminManager.SetSsdSetCardinality)
}

// SetDsdSetCardinality mirrors SetSsdSetCardinality for dynamic sets.
func (s *AdminService) SetDsdSetCardinality(ctx context.Context, req Request) Response {
	return s.sdCardinalityOp(ctx, req, authority.AdminManager.SetDsdSetCardinality)
}

func (s *AdminService) sdCardinalityOp(ctx context.Context, req Request, op func(authority.AdminManager, context.Context, rbac.SDSet, int) (rbac.SDSet, error)) Response {
	in, err := entityAs[rbac.SDSet](req)
	if err != nil {
		return failure(err)
	}
	admin, err := s.admin(ctx, req)
	if err != nil {
		return failure(err)
	}
	out, err := op(admin, ctx, in, in.Cardinality)
	if err != nil {
		return failure(err)
	}
	return Response{Entity: out}
}
