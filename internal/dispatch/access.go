package dispatch

import (
	"context"

	"github.com/john77eipe/directory-fortress-enmasse/internal/authority"
	"github.com/john77eipe/directory-fortress-enmasse/internal/rbac"
)

// AccessService routes authentication, session, and access-check
// operations to the access authority.
type AccessService struct {
	factory authority.Factory
}

// NewAccessService builds an access dispatcher over the given factory.
func NewAccessService(factory authority.Factory) *AccessService {
	return &AccessService{factory: factory}
}

// Authenticate verifies credentials carried on the request's User entity
// and returns a fresh session. Invalid credentials and locked or disabled
// accounts surface as the authority's error codes, passed through.
func (s *AccessService) Authenticate(ctx context.Context, req Request) Response {
	in, err := entityAs[rbac.User](req)
	if err != nil {
		return failure(err)
	}
	access, err := s.factory.Access(ctx, req.ContextID)
	if err != nil {
		return failure(err)
	}
	session, err := access.Authenticate(ctx, in.UserID, in.Password)
	if err != nil {
		return failure(err)
	}
	return Response{Session: session}
}

// CreateSession authenticates the User entity's credentials and activates
// its roles into a new session.
func (s *AccessService) CreateSession(ctx context.Context, req Request) Response {
	return s.createSession(ctx, req, false)
}

// CreateSessionTrusted creates a session without credential verification,
// for callers that authenticated the user upstream.
func (s *AccessService) CreateSessionTrusted(ctx context.Context, req Request) Response {
	return s.createSession(ctx, req, true)
}

func (s *AccessService) createSession(ctx context.Context, req Request, trusted bool) Response {
	in, err := entityAs[rbac.User](req)
	if err != nil {
		return failure(err)
	}
	access, err := s.factory.Access(ctx, req.ContextID)
	if err != nil {
		return failure(err)
	}
	session, err := access.CreateSession(ctx, in, trusted)
	if err != nil {
		return failure(err)
	}
	return Response{Session: session}
}

// CheckAccess evaluates the Permission entity against the request's
// session. The permission's admin flag is forced off before evaluation:
// this dispatcher only ever checks the regular permission space. Engine
// failures other than a denial (for example an invalid session) surface
// as error codes, not as authorized=false.
func (s *AccessService) CheckAccess(ctx context.Context, req Request) Response {
	perm, err := entityAs[rbac.Permission](req)
	if err != nil {
		return failure(err)
	}
	perm.Admin = false
	access, err := s.factory.Access(ctx, req.ContextID)
	if err != nil {
		return failure(err)
	}
	authorized, err := access.CheckAccess(ctx, req.Session, perm)
	if err != nil {
		return failure(err)
	}
	return Response{Session: req.Session, Authorized: &authorized}
}

// SessionPermissions enumerates the permissions granted to the session's
// currently activated roles.
func (s *AccessService) SessionPermissions(ctx context.Context, req Request) Response {
	access, err := s.factory.Access(ctx, req.ContextID)
	if err != nil {
		return failure(err)
	}
	perms, err := access.SessionPermissions(ctx, req.Session)
	if err != nil {
		return failure(err)
	}
	return Response{Session: req.Session, Entities: entityList(perms)}
}

// SessionRoles enumerates the session's activated roles.
func (s *AccessService) SessionRoles(ctx context.Context, req Request) Response {
	access, err := s.factory.Access(ctx, req.ContextID)
	if err != nil {
		return failure(err)
	}
	roles, err := access.SessionRoles(ctx, req.Session)
	if err != nil {
		return failure(err)
	}
	return Response{Session: req.Session, Entities: entityList(roles)}
}

// AuthorizedSessionRoles returns the set of role names the session is
// authorized for, activated roles plus everything they inherit.
func (s *AccessService) AuthorizedSessionRoles(ctx context.Context, req Request) Response {
	access, err := s.factory.Access(ctx, req.ContextID)
	if err != nil {
		return failure(err)
	}
	roles, err := access.AuthorizedRoles(ctx, req.Session)
	if err != nil {
		return failure(err)
	}
	return Response{Session: req.Session, ValueSet: roles}
}

// AddActiveRole activates the UserRole entity's role into the session and
// echoes the refreshed session.
func (s *AccessService) AddActiveRole(ctx context.Context, req Request) Response {
	ur, err := entityAs[rbac.UserRole](req)
	if err != nil {
		return failure(err)
	}
	access, err := s.factory.Access(ctx, req.ContextID)
	if err != nil {
		return failure(err)
	}
	if err := access.AddActiveRole(ctx, req.Session, ur); err != nil {
		return failure(err)
	}
	return Response{Session: req.Session}
}

// DropActiveRole deactivates the UserRole entity's role from the session
// and echoes the refreshed session.
func (s *AccessService) DropActiveRole(ctx context.Context, req Request) Response {
	ur, err := entityAs[rbac.UserRole](req)
	if err != nil {
		return failure(err)
	}
	access, err := s.factory.Access(ctx, req.ContextID)
	if err != nil {
		return failure(err)
	}
	if err := access.DropActiveRole(ctx, req.Session, ur); err != nil {
		return failure(err)
	}
	return Response{Session: req.Session}
}

// GetUserID returns the session owner's id as a User entity.
func (s *AccessService) GetUserID(ctx context.Context, req Request) Response {
	access, err := s.factory.Access(ctx, req.ContextID)
	if err != nil {
		return failure(err)
	}
	userID, err := access.UserID(ctx, req.Session)
	if err != nil {
		return failure(err)
	}
	return Response{Session: req.Session, Entity: rbac.User{UserID: userID}}
}

// GetUser returns the full User entity owning the session.
func (s *AccessService) GetUser(ctx context.Context, req Request) Response {
	access, err := s.factory.Access(ctx, req.ContextID)
	if err != nil {
		return failure(err)
	}
	user, err := access.User(ctx, req.Session)
	if err != nil {
		return failure(err)
	}
	return Response{Session: req.Session, Entity: user}
}
