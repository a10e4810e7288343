package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/john77eipe/directory-fortress-enmasse/internal/ids"
	"github.com/john77eipe/directory-fortress-enmasse/internal/rbac"
)

type accessMgr struct {
	db        *sql.DB
	contextID string
}

func (m *accessMgr) Authenticate(ctx context.Context, userID, password string) (*rbac.Session, error) {
	if err := m.verifyCredential(ctx, userID, password); err != nil {
		return nil, err
	}
	return m.newSession(ctx, userID, false)
}

func (m *accessMgr) CreateSession(ctx context.Context, u rbac.User, trusted bool) (*rbac.Session, error) {
	if !trusted {
		if err := m.verifyCredential(ctx, u.UserID, u.Password); err != nil {
			return nil, err
		}
	} else if err := m.checkAccountState(ctx, u.UserID); err != nil {
		return nil, err
	}
	return m.newSession(ctx, u.UserID, trusted)
}

func (m *accessMgr) verifyCredential(ctx context.Context, userID, password string) error {
	var (
		hash     string
		locked   bool
		disabled bool
	)
	err := m.db.QueryRowContext(ctx, `
		select password_hash, locked, disabled from users
		where context_id = $1 and user_id = $2
	`, m.contextID, userID).Scan(&hash, &locked, &disabled)
	if errors.Is(err, sql.ErrNoRows) {
		return errUserNotFound(userID)
	}
	if err != nil {
		return err
	}
	if locked {
		return rbac.NewSecurityError(rbac.CodeUserLocked, "account %s is locked", userID)
	}
	if disabled {
		return rbac.NewSecurityError(rbac.CodeUserDisabled, "account %s is disabled", userID)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return rbac.NewSecurityError(rbac.CodePasswordInvalid, "password verification failed for %s", userID)
	}
	return nil
}

func (m *accessMgr) checkAccountState(ctx context.Context, userID string) error {
	var locked, disabled bool
	err := m.db.QueryRowContext(ctx, `
		select locked, disabled from users
		where context_id = $1 and user_id = $2
	`, m.contextID, userID).Scan(&locked, &disabled)
	if errors.Is(err, sql.ErrNoRows) {
		return errUserNotFound(userID)
	}
	if err != nil {
		return err
	}
	if locked {
		return rbac.NewSecurityError(rbac.CodeUserLocked, "account %s is locked", userID)
	}
	if disabled {
		return rbac.NewSecurityError(rbac.CodeUserDisabled, "account %s is disabled", userID)
	}
	return nil
}

// newSession persists a session with every assigned role activated.
func (m *accessMgr) newSession(ctx context.Context, userID string, trusted bool) (*rbac.Session, error) {
	session := &rbac.Session{
		SessionID: ids.New(),
		UserID:    userID,
		Trusted:   trusted,
		CreatedAt: time.Now().UTC(),
	}
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		insert into sessions (context_id, session_id, user_id, trusted, created_at)
		values ($1, $2, $3, $4, $5)
	`, m.contextID, session.SessionID, userID, trusted, session.CreatedAt); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `
		insert into session_roles (context_id, session_id, role_name)
		select $1, $2, role_name from user_roles
		where context_id = $1 and user_id = $3
	`, m.contextID, session.SessionID, userID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	roles, err := m.activeRoles(ctx, session)
	if err != nil {
		return nil, err
	}
	session.Roles = roles
	return session, nil
}

// validate confirms the session exists and refreshes its owner id.
func (m *accessMgr) validate(ctx context.Context, s *rbac.Session) error {
	if s == nil || s.SessionID == "" {
		return rbac.NewSecurityError(rbac.CodeSessionInvalid, "session is missing")
	}
	var userID string
	err := m.db.QueryRowContext(ctx, `
		select user_id from sessions
		where context_id = $1 and session_id = $2
	`, m.contextID, s.SessionID).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return rbac.NewSecurityError(rbac.CodeSessionInvalid, "session %s not found", s.SessionID)
	}
	if err != nil {
		return err
	}
	s.UserID = userID
	return nil
}

func (m *accessMgr) activeRoles(ctx context.Context, s *rbac.Session) ([]rbac.UserRole, error) {
	rows, err := m.db.QueryContext(ctx, `
		select sr.role_name, se.user_id
		from session_roles sr
		join sessions se on se.context_id = sr.context_id and se.session_id = sr.session_id
		where sr.context_id = $1 and sr.session_id = $2
		order by sr.role_name
	`, m.contextID, s.SessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []rbac.UserRole
	for rows.Next() {
		var ur rbac.UserRole
		if err := rows.Scan(&ur.Name, &ur.UserID); err != nil {
			return nil, err
		}
		roles = append(roles, ur)
	}
	return roles, rows.Err()
}

// CheckAccess tests whether any of the session's active roles, anything
// they inherit, or a direct user grant carries the permission.
func (m *accessMgr) CheckAccess(ctx context.Context, s *rbac.Session, p rbac.Permission) (bool, error) {
	if err := m.validate(ctx, s); err != nil {
		return false, err
	}
	var authorized bool
	err := m.db.QueryRowContext(ctx, `
		with recursive closure as (
			select role_name as name from session_roles
			where context_id = $1 and session_id = $2
			union
			select h.child_name
			from role_hierarchy h
			join closure c on h.context_id = $1 and h.parent_name = c.name
		)
		select exists (
			select 1 from role_perms
			where context_id = $1 and obj_name = $3 and op_name = $4 and obj_id = $5 and is_admin = $6
			  and role_name in (select name from closure)
		) or exists (
			select 1 from user_perms up
			join sessions se on se.context_id = up.context_id and se.user_id = up.user_id
			where up.context_id = $1 and se.session_id = $2
			  and up.obj_name = $3 and up.op_name = $4 and up.obj_id = $5 and up.is_admin = $6
		)
	`, m.contextID, s.SessionID, p.ObjName, p.OpName, p.ObjID, p.Admin).Scan(&authorized)
	if err != nil {
		return false, err
	}
	return authorized, nil
}

func (m *accessMgr) SessionPermissions(ctx context.Context, s *rbac.Session) ([]rbac.Permission, error) {
	if err := m.validate(ctx, s); err != nil {
		return nil, err
	}
	rows, err := m.db.QueryContext(ctx, `
		with recursive closure as (
			select role_name as name from session_roles
			where context_id = $1 and session_id = $2
			union
			select h.child_name
			from role_hierarchy h
			join closure c on h.context_id = $1 and h.parent_name = c.name
		)
		select rp.obj_name, rp.op_name, rp.obj_id, rp.is_admin
		from role_perms rp
		where rp.context_id = $1 and rp.role_name in (select name from closure)
		union
		select up.obj_name, up.op_name, up.obj_id, up.is_admin
		from user_perms up
		join sessions se on se.context_id = up.context_id and se.user_id = up.user_id
		where up.context_id = $1 and se.session_id = $2
		order by 1, 2, 3
	`, m.contextID, s.SessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []rbac.Permission
	for rows.Next() {
		var p rbac.Permission
		if err := rows.Scan(&p.ObjName, &p.OpName, &p.ObjID, &p.Admin); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

func (m *accessMgr) SessionRoles(ctx context.Context, s *rbac.Session) ([]rbac.UserRole, error) {
	if err := m.validate(ctx, s); err != nil {
		return nil, err
	}
	roles, err := m.activeRoles(ctx, s)
	if err != nil {
		return nil, err
	}
	s.Roles = roles
	return roles, nil
}

func (m *accessMgr) AuthorizedRoles(ctx context.Context, s *rbac.Session) (rbac.StringSet, error) {
	if err := m.validate(ctx, s); err != nil {
		return nil, err
	}
	rows, err := m.db.QueryContext(ctx, `
		with recursive closure as (
			select role_name as name from session_roles
			where context_id = $1 and session_id = $2
			union
			select h.child_name
			from role_hierarchy h
			join closure c on h.context_id = $1 and h.parent_name = c.name
		)
		select name from closure
	`, m.contextID, s.SessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	set := rbac.NewStringSet()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		set.Add(name)
	}
	return set, rows.Err()
}

// AddActiveRole activates an assigned role into the session and
// refreshes the session's role list in place.
func (m *accessMgr) AddActiveRole(ctx context.Context, s *rbac.Session, ur rbac.UserRole) error {
	if err := m.validate(ctx, s); err != nil {
		return err
	}
	var one int
	err := m.db.QueryRowContext(ctx, `
		select 1 from user_roles
		where context_id = $1 and user_id = $2 and role_name = $3
	`, m.contextID, s.UserID, ur.Name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return rbac.NewSecurityError(rbac.CodeAssignNotFound, "user %s does not hold role %s", s.UserID, ur.Name)
	}
	if err != nil {
		return err
	}
	if _, err := m.db.ExecContext(ctx, `
		insert into session_roles (context_id, session_id, role_name)
		values ($1, $2, $3)
		on conflict do nothing
	`, m.contextID, s.SessionID, ur.Name); err != nil {
		return err
	}
	return m.refreshRoles(ctx, s)
}

// DropActiveRole deactivates a role from the session and refreshes the
// session's role list in place.
func (m *accessMgr) DropActiveRole(ctx context.Context, s *rbac.Session, ur rbac.UserRole) error {
	if err := m.validate(ctx, s); err != nil {
		return err
	}
	res, err := m.db.ExecContext(ctx, `
		delete from session_roles
		where context_id = $1 and session_id = $2 and role_name = $3
	`, m.contextID, s.SessionID, ur.Name)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return rbac.NewSecurityError(rbac.CodeAssignNotFound, "role %s is not active in session %s", ur.Name, s.SessionID)
	}
	return m.refreshRoles(ctx, s)
}

func (m *accessMgr) refreshRoles(ctx context.Context, s *rbac.Session) error {
	roles, err := m.activeRoles(ctx, s)
	if err != nil {
		return err
	}
	s.Roles = roles
	return nil
}

func (m *accessMgr) UserID(ctx context.Context, s *rbac.Session) (string, error) {
	if err := m.validate(ctx, s); err != nil {
		return "", err
	}
	return s.UserID, nil
}

func (m *accessMgr) User(ctx context.Context, s *rbac.Session) (rbac.User, error) {
	if err := m.validate(ctx, s); err != nil {
		return rbac.User{}, err
	}
	review := &reviewMgr{db: m.db, contextID: m.contextID}
	return review.ReadUser(ctx, rbac.User{UserID: s.UserID})
}
