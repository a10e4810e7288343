package pg

import (
	"context"
	"database/sql"

	"github.com/john77eipe/directory-fortress-enmasse/internal/rbac"
)

// delegatedMgr grants and revokes in the administrative permission
// space. Targets are admin roles, which live in their own namespace.
type delegatedMgr struct {
	db        *sql.DB
	contextID string
	session   *rbac.Session
}

func (m *delegatedMgr) SetAdmin(session *rbac.Session) { m.session = session }

func (m *delegatedMgr) GrantPermission(ctx context.Context, p rbac.Permission, r rbac.AdminRole) error {
	if err := ensureAdminRole(ctx, m.db, m.contextID, r.Name); err != nil {
		return err
	}
	return grantToRole(ctx, m.db, m.contextID, p, r.Name)
}

func (m *delegatedMgr) RevokePermission(ctx context.Context, p rbac.Permission, r rbac.AdminRole) error {
	return revokeFromRole(ctx, m.db, m.contextID, p, r.Name)
}

func (m *delegatedMgr) GrantPermissionUser(ctx context.Context, p rbac.Permission, u rbac.User) error {
	return grantToUser(ctx, m.db, m.contextID, p, u.UserID)
}

func (m *delegatedMgr) RevokePermissionUser(ctx context.Context, p rbac.Permission, u rbac.User) error {
	return revokeFromUser(ctx, m.db, m.contextID, p, u.UserID)
}
