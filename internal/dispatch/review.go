package dispatch

import (
	"context"

	"github.com/john77eipe/directory-fortress-enmasse/internal/authority"
	"github.com/john77eipe/directory-fortress-enmasse/internal/rbac"
)

// ReviewService routes interrogation operations to the review authority.
// Several operations change shape on envelope hints: a limit switches the
// result from entities to plain identifier values, and a populated
// organizational unit narrows a search to that unit.
type ReviewService struct {
	factory authority.Factory
}

// NewReviewService builds a review dispatcher over the given factory.
func NewReviewService(factory authority.Factory) *ReviewService {
	return &ReviewService{factory: factory}
}

func (s *ReviewService) review(ctx context.Context, req Request) (authority.ReviewManager, error) {
	mgr, err := s.factory.Review(ctx, req.ContextID)
	if err != nil {
		return nil, err
	}
	mgr.SetAdmin(req.Session)
	return mgr, nil
}

// User interrogation -----------------------------------------------------

// ReadUser returns the full user entity for the given userId.
func (s *ReviewService) ReadUser(ctx context.Context, req Request) Response {
	u, err := entityAs[rbac.User](req)
	if err != nil {
		return failure(err)
	}
	review, err := s.review(ctx, req)
	if err != nil {
		return failure(err)
	}
	out, err := review.ReadUser(ctx, u)
	if err != nil {
		return failure(err)
	}
	return Response{Entity: out}
}

// FindUsers searches users matching the entity. A populated ou narrows
// the search to that organizational unit; a limit returns bare userIds
// instead of entities.
func (s *ReviewService) FindUsers(ctx context.Context, req Request) Response {
	u, err := entityAs[rbac.User](req)
	if err != nil {
		return failure(err)
	}
	review, err := s.review(ctx, req)
	if err != nil {
		return failure(err)
	}
	if u.OU != "" {
		users, err := review.FindUsersInUnit(ctx, rbac.OrgUnit{Name: u.OU, Type: rbac.OrgUnitUser})
		if err != nil {
			return failure(err)
		}
		return Response{Entities: entityList(users)}
	}
	if req.Limit != nil {
		ids, err := review.FindUserIDs(ctx, u, *req.Limit)
		if err != nil {
			return failure(err)
		}
		return Response{Values: ids}
	}
	users, err := review.FindUsers(ctx, u)
	if err != nil {
		return failure(err)
	}
	return Response{Entities: entityList(users)}
}

// Role interrogation -----------------------------------------------------

// ReadRole returns the full role entity for the given name.
func (s *ReviewService) ReadRole(ctx context.Context, req Request) Response {
	r, err := entityAs[rbac.Role](req)
	if err != nil {
		return failure(err)
	}
	review, err := s.review(ctx, req)
	if err != nil {
		return failure(err)
	}
	out, err := review.ReadRole(ctx, r)
	if err != nil {
		return failure(err)
	}
	return Response{Entity: out}
}

// FindRoles searches roles by the request's value field. With a limit the
// result is bare role names, otherwise full entities.
func (s *ReviewService) FindRoles(ctx context.Context, req Request) Response {
	review, err := s.review(ctx, req)
	if err != nil {
		return failure(err)
	}
	if req.Limit != nil {
		names, err := review.FindRoleNames(ctx, req.Value, *req.Limit)
		if err != nil {
			return failure(err)
		}
		return Response{Values: names}
	}
	roles, err := review.FindRoles(ctx, req.Value)
	if err != nil {
		return failure(err)
	}
	return Response{Entities: entityList(roles)}
}

// Assignment interrogation -----------------------------------------------

// AssignedUsers lists users assigned to the role. With a limit the result
// is bare userIds instead of entities.
func (s *ReviewService) AssignedUsers(ctx context.Context, req Request) Response {
	r, err := entityAs[rbac.Role](req)
	if err != nil {
		return failure(err)
	}
	review, err := s.review(ctx, req)
	if err != nil {
		return failure(err)
	}
	if req.Limit != nil {
		ids, err := review.AssignedUserIDs(ctx, r, *req.Limit)
		if err != nil {
			return failure(err)
		}
		return Response{Values: ids}
	}
	users, err := review.AssignedUsers(ctx, r)
	if err != nil {
		return failure(err)
	}
	return Response{Entities: entityList(users)}
}

// AssignedRoles lists the user's role assignments. When the request's
// value field carries a userId the result is bare role names; otherwise
// the User entity selects the user and the result is assignment entities.
func (s *ReviewService) AssignedRoles(ctx context.Context, req Request) Response {
	review, err := s.review(ctx, req)
	if err != nil {
		return failure(err)
	}
	if req.Value != "" {
		names, err := review.AssignedRoleNames(ctx, req.Value)
		if err != nil {
			return failure(err)
		}
		return Response{Values: names}
	}
	u, err := entityAs[rbac.User](req)
	if err != nil {
		return failure(err)
	}
	assignments, err := review.AssignedRoles(ctx, u)
	if err != nil {
		return failure(err)
	}
	return Response{Entities: entityList(assignments)}
}

// AuthorizedUsers lists users authorized for the role through direct
// assignment or inheritance.
func (s *ReviewService) AuthorizedUsers(ctx context.Context, req Request) Response {
	r, err := entityAs[rbac.Role](req)
	if err != nil {
		return failure(err)
	}
	review, err := s.review(ctx, req)
	if err != nil {
		return failure(err)
	}
	users, err := review.AuthorizedUsers(ctx, r)
	if err != nil {
		return failure(err)
	}
	return Response{Entities: entityList(users)}
}

// AuthorizedRoles returns the closure of role names the user is
// authorized for.
func (s *ReviewService) AuthorizedRoles(ctx context.Context, req Request) Response {
	u, err := entityAs[rbac.User](req)
	if err != nil {
		return failure(err)
	}
	review, err := s.review(ctx, req)
	if err != nil {
		return failure(err)
	}
	set, err := review.AuthorizedRoles(ctx, u)
	if err != nil {
		return failure(err)
	}
	return Response{ValueSet: set}
}

// Permission interrogation -----------------------------------------------

// ReadPermission returns the full permission entity.
func (s *ReviewService) ReadPermission(ctx context.Context, req Request) Response {
	p, err := entityAs[rbac.Permission](req)
	if err != nil {
		return failure(err)
	}
	review, err := s.review(ctx, req)
	if err != nil {
		return failure(err)
	}
	out, err := review.ReadPermission(ctx, p)
	if err != nil {
		return failure(err)
	}
	return Response{Entity: out}
}

// FindPermissions searches permissions matching the entity.
func (s *ReviewService) FindPermissions(ctx context.Context, req Request) Response {
	p, err := entityAs[rbac.Permission](req)
	if err != nil {
		return failure(err)
	}
	review, err := s.review(ctx, req)
	if err != nil {
		return failure(err)
	}
	perms, err := review.FindPermissions(ctx, p)
	if err != nil {
		return failure(err)
	}
	return Response{Entities: entityList(perms)}
}

// ReadPermObj returns the full permission object entity.
func (s *ReviewService) ReadPermObj(ctx context.Context, req Request) Response {
	o, err := entityAs[rbac.PermObj](req)
	if err != nil {
		return failure(err)
	}
	review, err := s.review(ctx, req)
	if err != nil {
		return failure(err)
	}
	out, err := review.ReadPermObj(ctx, o)
	if err != nil {
		return failure(err)
	}
	return Response{Entity: out}
}

// FindPermObjs searches permission objects matching the entity. A
// populated ou narrows the search to that organizational unit.
func (s *ReviewService) FindPermObjs(ctx context.Context, req Request) Response {
	o, err := entityAs[rbac.PermObj](req)
	if err != nil {
		return failure(err)
	}
	review, err := s.review(ctx, req)
	if err != nil {
		return failure(err)
	}
	if o.OU != "" {
		objs, err := review.FindPermObjsInUnit(ctx, rbac.OrgUnit{Name: o.OU, Type: rbac.OrgUnitPerm})
		if err != nil {
			return failure(err)
		}
		return Response{Entities: entityList(objs)}
	}
	objs, err := review.FindPermObjs(ctx, o)
	if err != nil {
		return failure(err)
	}
	return Response{Entities: entityList(objs)}
}

// PermissionRoles lists the names of roles the permission is granted to.
func (s *ReviewService) PermissionRoles(ctx context.Context, req Request) Response {
	p, err := entityAs[rbac.Permission](req)
	if err != nil {
		return failure(err)
	}
	review, err := s.review(ctx, req)
	if err != nil {
		return failure(err)
	}
	names, err := review.PermissionRoles(ctx, p)
	if err != nil {
		return failure(err)
	}
	return Response{Values: names}
}

// AuthorizedPermissionRoles returns the closure of role names authorized
// for the permission, including roles that inherit a granted role.
func (s *ReviewService) AuthorizedPermissionRoles(ctx context.Context, req Request) Response {
	p, err := entityAs[rbac.Permission](req)
	if err != nil {
		return failure(err)
	}
	review, err := s.review(ctx, req)
	if err != nil {
		return failure(err)
	}
	set, err := review.AuthorizedPermissionRoles(ctx, p)
	if err != nil {
		return failure(err)
	}
	return Response{ValueSet: set}
}

// PermissionUsers lists userIds the permission is granted to directly.
func (s *ReviewService) PermissionUsers(ctx context.Context, req Request) Response {
	p, err := entityAs[rbac.Permission](req)
	if err != nil {
		return failure(err)
	}
	review, err := s.review(ctx, req)
	if err != nil {
		return failure(err)
	}
	ids, err := review.PermissionUsers(ctx, p)
	if err != nil {
		return failure(err)
	}
	return Response{Values: ids}
}

// AuthorizedPermissionUsers returns the closure of userIds authorized for
// the permission through direct grants or role membership.
func (s *ReviewService) AuthorizedPermissionUsers(ctx context.Context, req Request) Response {
	p, err := entityAs[rbac.Permission](req)
	if err != nil {
		return failure(err)
	}
	review, err := s.review(ctx, req)
	if err != nil {
		return failure(err)
	}
	set, err := review.AuthorizedPermissionUsers(ctx, p)
	if err != nil {
		return failure(err)
	}
	return Response{ValueSet: set}
}

// UserPermissions lists all permissions the user holds through roles or
// direct grants.
func (s *ReviewService) UserPermissions(ctx context.Context, req Request) Response {
	u, err := entityAs[rbac.User](req)
	if err != nil {
		return failure(err)
	}
	review, err := s.review(ctx, req)
	if err != nil {
		return failure(err)
	}
	perms, err := review.UserPermissions(ctx, u)
	if err != nil {
		return failure(err)
	}
	return Response{Entities: entityList(perms)}
}

// RolePermissions lists all permissions granted to the role.
func (s *ReviewService) RolePermissions(ctx context.Context, req Request) Response {
	r, err := entityAs[rbac.Role](req)
	if err != nil {
		return failure(err)
	}
	review, err := s.review(ctx, req)
	if err != nil {
		return failure(err)
	}
	perms, err := review.RolePermissions(ctx, r)
	if err != nil {
		return failure(err)
	}
	return Response{Entities: entityList(perms)}
}

// Separation-of-duty interrogation ---------------------------------------

// SsdRoleSets lists the static sets the role is a member of.
func (s *ReviewService) SsdRoleSets(ctx context.Context, req Request) Response {
	return s.sdSetsByRole(ctx, req, authority.ReviewManager.SsdRoleSets)
}

// SsdRoleSet returns the full static set entity.
func (s *ReviewService) SsdRoleSet(ctx context.Context, req Request) Response {
	return s.sdSetRead(ctx, req, authority.ReviewManager.SsdRoleSet)
}

// SsdRoleSetRoles returns the static set's member role names.
func (s *ReviewService) SsdRoleSetRoles(ctx context.Context, req Request) Response {
	return s.sdSetRoles(ctx, req, authority.ReviewManager.SsdRoleSetRoles)
}

// SsdRoleSetCardinality returns the input set with its cardinality field
// replaced by the stored value.
func (s *ReviewService) SsdRoleSetCardinality(ctx context.Context, req Request) Response {
	return s.sdSetCardinality(ctx, req, authority.ReviewManager.SsdRoleSetCardinality)
}

// SsdSets searches static sets by name.
func (s *ReviewService) SsdSets(ctx context.Context, req Request) Response {
	return s.sdSetSearch(ctx, req, authority.ReviewManager.SsdSets)
}

// DsdRoleSets lists the dynamic sets the role is a member of.
func (s *ReviewService) DsdRoleSets(ctx context.Context, req Request) Response {
	return s.sdSetsByRole(ctx, req, authority.ReviewManager.DsdRoleSets)
}

// DsdRoleSet returns the full dynamic set entity.
func (s *ReviewService) DsdRoleSet(ctx context.Context, req Request) Response {
	return s.sdSetRead(ctx, req, authority.ReviewManager.DsdRoleSet)
}

// DsdRoleSetRoles returns the dynamic set's member role names.
func (s *ReviewService) DsdRoleSetRoles(ctx context.Context, req Request) Response {
	return s.sdSetRoles(ctx, req, authority.ReviewManager.DsdRoleSetRoles)
}

// DsdRoleSetCardinality returns the input set with its cardinality field
// replaced by the stored value.
func (s *ReviewService) DsdRoleSetCardinality(ctx context.Context, req Request) Response {
	return s.sdSetCardinality(ctx, req, authority.ReviewManager.DsdRoleSetCardinality)
}

// DsdSets searches dynamic sets by name.
func (s *ReviewService) DsdSets(ctx context.Context, req Request) Response {
	return s.sdSetSearch(ctx, req, authority.ReviewManager.DsdSets)
}

func (s *ReviewService) sdSetsByRole(ctx context.Context, req Request, op func(authority.ReviewManager, context.Context, rbac.Role) ([]rbac.SDSet, error)) Response {
	r, err := entityAs[rbac.Role](req)
	if err != nil {
		return failure(err)
	}
	review, err := s.review(ctx, req)
	if err != nil {
		return failure(err)
	}
	sets, err := op(review, ctx, r)
	if err != nil {
		return failure(err)
	}
	return Response{Entities: entityList(sets)}
}

func (s *ReviewService) sdSetRead(ctx context.Context, req Request, op func(authority.ReviewManager, context.Context, rbac.SDSet) (rbac.SDSet, error)) Response {
	set, err := entityAs[rbac.SDSet](req)
	if err != nil {
		return failure(err)
	}
	review, err := s.review(ctx, req)
	if err != nil {
		return failure(err)
	}
	out, err := op(review, ctx, set)
	if err != nil {
		return failure(err)
	}
	return Response{Entity: out}
}

func (s *ReviewService) sdSetRoles(ctx context.Context, req Request, op func(authority.ReviewManager, context.Context, rbac.SDSet) (rbac.StringSet, error)) Response {
	set, err := entityAs[rbac.SDSet](req)
	if err != nil {
		return failure(err)
	}
	review, err := s.review(ctx, req)
	if err != nil {
		return failure(err)
	}
	roles, err := op(review, ctx, set)
	if err != nil {
		return failure(err)
	}
	return Response{ValueSet: roles}
}

// The cardinality read answers with the caller's own set entity carrying
// the stored cardinality, not a bare number.
func (s *ReviewService) sdSetCardinality(ctx context.Context, req Request, op func(authority.ReviewManager, context.Context, rbac.SDSet) (int, error)) Response {
	set, err := entityAs[rbac.SDSet](req)
	if err != nil {
		return failure(err)
	}
	review, err := s.review(ctx, req)
	if err != nil {
		return failure(err)
	}
	n, err := op(review, ctx, set)
	if err != nil {
		return failure(err)
	}
	set.Cardinality = n
	return Response{Entity: set}
}

func (s *ReviewService) sdSetSearch(ctx context.Context, req Request, op func(authority.ReviewManager, context.Context, rbac.SDSet) ([]rbac.SDSet, error)) Response {
	set, err := entityAs[rbac.SDSet](req)
	if err != nil {
		return failure(err)
	}
	review, err := s.review(ctx, req)
	if err != nil {
		return failure(err)
	}
	sets, err := op(review, ctx, set)
	if err != nil {
		return failure(err)
	}
	return Response{Entities: entityList(sets)}
}
