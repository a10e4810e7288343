package pg

import (
	"context"
	"database/sql"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/john77eipe/directory-fortress-enmasse/internal/rbac"
)

type adminMgr struct {
	db        *sql.DB
	contextID string
	session   *rbac.Session
}

func (m *adminMgr) SetAdmin(session *rbac.Session) { m.session = session }

func hashPassword(password string) (string, error) {
	if password == "" {
		return "", nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (m *adminMgr) AddUser(ctx context.Context, u rbac.User) (rbac.User, error) {
	hash, err := hashPassword(u.Password)
	if err != nil {
		return rbac.User{}, err
	}
	var out rbac.User
	err = m.db.QueryRowContext(ctx, `
		insert into users (context_id, user_id, password_hash, description, ou)
		values ($1, $2, $3, $4, $5)
		returning user_id, description, ou, locked, disabled, password_changed_at
	`, m.contextID, u.UserID, hash, u.Description, u.OU).
		Scan(&out.UserID, &out.Description, &out.OU, &out.Locked, &out.Disabled, &out.PasswordChangedAt)
	if err != nil {
		return rbac.User{}, mapDBError(err,
			rbac.NewSecurityError(rbac.CodeUserAlreadyExists, "user %s already exists", u.UserID), nil)
	}
	return out, nil
}

func (m *adminMgr) UpdateUser(ctx context.Context, u rbac.User) (rbac.User, error) {
	var out rbac.User
	err := m.db.QueryRowContext(ctx, `
		update users
		set description = $3, ou = $4, updated_at = now()
		where context_id = $1 and user_id = $2
		returning user_id, description, ou, locked, disabled, password_changed_at
	`, m.contextID, u.UserID, u.Description, u.OU).
		Scan(&out.UserID, &out.Description, &out.OU, &out.Locked, &out.Disabled, &out.PasswordChangedAt)
	if err != nil {
		return rbac.User{}, mapDBError(err, nil, errUserNotFound(u.UserID))
	}
	return out, nil
}

func (m *adminMgr) DeleteUser(ctx context.Context, u rbac.User) error {
	return m.deleteOne(ctx,
		`delete from users where context_id = $1 and user_id = $2`,
		u.UserID, errUserNotFound(u.UserID))
}

func (m *adminMgr) DisableUser(ctx context.Context, u rbac.User) error {
	return m.deleteOne(ctx,
		`update users set disabled = true, updated_at = now() where context_id = $1 and user_id = $2`,
		u.UserID, errUserNotFound(u.UserID))
}

// ChangePassword verifies the current credential before replacing it.
func (m *adminMgr) ChangePassword(ctx context.Context, u rbac.User, newPassword string) error {
	var current string
	err := m.db.QueryRowContext(ctx,
		`select password_hash from users where context_id = $1 and user_id = $2`,
		m.contextID, u.UserID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return errUserNotFound(u.UserID)
	}
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(current), []byte(u.Password)) != nil {
		return rbac.NewSecurityError(rbac.CodePasswordInvalid, "password verification failed for %s", u.UserID)
	}
	return m.setPassword(ctx, u.UserID, newPassword)
}

// ResetPassword replaces the credential without verifying the old one.
func (m *adminMgr) ResetPassword(ctx context.Context, u rbac.User, newPassword string) error {
	return m.setPassword(ctx, u.UserID, newPassword)
}

func (m *adminMgr) setPassword(ctx context.Context, userID, newPassword string) error {
	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	return m.deleteOne(ctx, `
		update users
		set password_hash = $3, password_changed_at = now(), updated_at = now()
		where context_id = $1 and user_id = $2
	`, userID, errUserNotFound(userID), hash)
}

func (m *adminMgr) LockUserAccount(ctx context.Context, u rbac.User) error {
	return m.deleteOne(ctx,
		`update users set locked = true, updated_at = now() where context_id = $1 and user_id = $2`,
		u.UserID, errUserNotFound(u.UserID))
}

func (m *adminMgr) UnlockUserAccount(ctx context.Context, u rbac.User) error {
	return m.deleteOne(ctx,
		`update users set locked = false, updated_at = now() where context_id = $1 and user_id = $2`,
		u.UserID, errUserNotFound(u.UserID))
}

func (m *adminMgr) AddRole(ctx context.Context, r rbac.Role) (rbac.Role, error) {
	var out rbac.Role
	err := m.db.QueryRowContext(ctx, `
		insert into roles (context_id, name, description)
		values ($1, $2, $3)
		returning name, description
	`, m.contextID, r.Name, r.Description).Scan(&out.Name, &out.Description)
	if err != nil {
		return rbac.Role{}, mapDBError(err,
			rbac.NewSecurityError(rbac.CodeRoleAlreadyExists, "role %s already exists", r.Name), nil)
	}
	return out, nil
}

func (m *adminMgr) UpdateRole(ctx context.Context, r rbac.Role) (rbac.Role, error) {
	var out rbac.Role
	err := m.db.QueryRowContext(ctx, `
		update roles set description = $3
		where context_id = $1 and name = $2
		returning name, description
	`, m.contextID, r.Name, r.Description).Scan(&out.Name, &out.Description)
	if err != nil {
		return rbac.Role{}, mapDBError(err, nil, errRoleNotFound(r.Name))
	}
	return out, nil
}

func (m *adminMgr) DeleteRole(ctx context.Context, r rbac.Role) error {
	return m.deleteOne(ctx,
		`delete from roles where context_id = $1 and name = $2`,
		r.Name, errRoleNotFound(r.Name))
}

func (m *adminMgr) AssignUser(ctx context.Context, ur rbac.UserRole) error {
	_, err := m.db.ExecContext(ctx, `
		insert into user_roles (context_id, user_id, role_name)
		values ($1, $2, $3)
	`, m.contextID, ur.UserID, ur.Name)
	if pgErr, ok := maybePgError(err); ok {
		switch {
		case pgErr.Code == pgErrUniqueViolation:
			return rbac.NewSecurityError(rbac.CodeAssignExists, "user %s already holds role %s", ur.UserID, ur.Name)
		case pgErr.ConstraintName == "user_roles_user_fk":
			return errUserNotFound(ur.UserID)
		case pgErr.ConstraintName == "user_roles_role_fk":
			return errRoleNotFound(ur.Name)
		}
	}
	return err
}

func (m *adminMgr) DeassignUser(ctx context.Context, ur rbac.UserRole) error {
	res, err := m.db.ExecContext(ctx, `
		delete from user_roles where context_id = $1 and user_id = $2 and role_name = $3
	`, m.contextID, ur.UserID, ur.Name)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return rbac.NewSecurityError(rbac.CodeAssignNotFound, "user %s does not hold role %s", ur.UserID, ur.Name)
	}
	return nil
}

func (m *adminMgr) AddPermission(ctx context.Context, p rbac.Permission) (rbac.Permission, error) {
	var out rbac.Permission
	err := m.db.QueryRowContext(ctx, `
		insert into permissions (context_id, obj_name, op_name, obj_id, is_admin)
		values ($1, $2, $3, $4, $5)
		returning obj_name, op_name, obj_id, is_admin
	`, m.contextID, p.ObjName, p.OpName, p.ObjID, p.Admin).
		Scan(&out.ObjName, &out.OpName, &out.ObjID, &out.Admin)
	if err != nil {
		return rbac.Permission{}, mapDBError(err,
			rbac.NewSecurityError(rbac.CodePermAlreadyExists, "permission %s.%s already exists", p.ObjName, p.OpName),
			errObjNotFound(p.ObjName))
	}
	return out, nil
}

func (m *adminMgr) UpdatePermission(ctx context.Context, p rbac.Permission) (rbac.Permission, error) {
	// Identity fields are immutable; an update confirms existence and
	// refreshes nothing else in the current model.
	if err := ensurePermission(ctx, m.db, m.contextID, p); err != nil {
		return rbac.Permission{}, err
	}
	return p, nil
}

func (m *adminMgr) DeletePermission(ctx context.Context, p rbac.Permission) error {
	res, err := m.db.ExecContext(ctx, `
		delete from permissions
		where context_id = $1 and obj_name = $2 and op_name = $3 and obj_id = $4 and is_admin = $5
	`, m.contextID, p.ObjName, p.OpName, p.ObjID, p.Admin)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errPermNotFound(p)
	}
	return nil
}

func (m *adminMgr) AddPermObj(ctx context.Context, o rbac.PermObj) (rbac.PermObj, error) {
	var out rbac.PermObj
	err := m.db.QueryRowContext(ctx, `
		insert into perm_objs (context_id, obj_name, ou, description)
		values ($1, $2, $3, $4)
		returning obj_name, ou, description
	`, m.contextID, o.ObjName, o.OU, o.Description).Scan(&out.ObjName, &out.OU, &out.Description)
	if err != nil {
		return rbac.PermObj{}, mapDBError(err,
			rbac.NewSecurityError(rbac.CodeObjAlreadyExists, "object %s already exists", o.ObjName), nil)
	}
	return out, nil
}

func (m *adminMgr) UpdatePermObj(ctx context.Context, o rbac.PermObj) (rbac.PermObj, error) {
	var out rbac.PermObj
	err := m.db.QueryRowContext(ctx, `
		update perm_objs set ou = $3, description = $4
		where context_id = $1 and obj_name = $2
		returning obj_name, ou, description
	`, m.contextID, o.ObjName, o.OU, o.Description).Scan(&out.ObjName, &out.OU, &out.Description)
	if err != nil {
		return rbac.PermObj{}, mapDBError(err, nil, errObjNotFound(o.ObjName))
	}
	return out, nil
}

func (m *adminMgr) DeletePermObj(ctx context.Context, o rbac.PermObj) error {
	return m.deleteOne(ctx,
		`delete from perm_objs where context_id = $1 and obj_name = $2`,
		o.ObjName, errObjNotFound(o.ObjName))
}

func (m *adminMgr) GrantPermission(ctx context.Context, p rbac.Permission, r rbac.Role) error {
	if err := ensureRole(ctx, m.db, m.contextID, r.Name); err != nil {
		return err
	}
	return grantToRole(ctx, m.db, m.contextID, p, r.Name)
}

func (m *adminMgr) RevokePermission(ctx context.Context, p rbac.Permission, r rbac.Role) error {
	return revokeFromRole(ctx, m.db, m.contextID, p, r.Name)
}

func (m *adminMgr) GrantPermissionUser(ctx context.Context, p rbac.Permission, u rbac.User) error {
	return grantToUser(ctx, m.db, m.contextID, p, u.UserID)
}

func (m *adminMgr) RevokePermissionUser(ctx context.Context, p rbac.Permission, u rbac.User) error {
	return revokeFromUser(ctx, m.db, m.contextID, p, u.UserID)
}

// AddDescendant creates child as a new role inheriting from the existing
// parent.
func (m *adminMgr) AddDescendant(ctx context.Context, parent, child rbac.Role) error {
	return m.addWithEdge(ctx, parent.Name, child)
}

// AddAscendant creates parent as a new role superior to the existing
// child; arrives with the subordinate role first.
func (m *adminMgr) AddAscendant(ctx context.Context, child, parent rbac.Role) error {
	if err := ensureRole(ctx, m.db, m.contextID, child.Name); err != nil {
		return err
	}
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `
		insert into roles (context_id, name, description)
		values ($1, $2, $3)
	`, m.contextID, parent.Name, parent.Description); err != nil {
		return mapDBError(err,
			rbac.NewSecurityError(rbac.CodeRoleAlreadyExists, "role %s already exists", parent.Name), nil)
	}
	if err := insertEdge(ctx, tx, m.contextID, parent.Name, child.Name); err != nil {
		return err
	}
	return tx.Commit()
}

func (m *adminMgr) addWithEdge(ctx context.Context, parentName string, child rbac.Role) error {
	if err := ensureRole(ctx, m.db, m.contextID, parentName); err != nil {
		return err
	}
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `
		insert into roles (context_id, name, description)
		values ($1, $2, $3)
	`, m.contextID, child.Name, child.Description); err != nil {
		return mapDBError(err,
			rbac.NewSecurityError(rbac.CodeRoleAlreadyExists, "role %s already exists", child.Name), nil)
	}
	if err := insertEdge(ctx, tx, m.contextID, parentName, child.Name); err != nil {
		return err
	}
	return tx.Commit()
}

func (m *adminMgr) AddInheritance(ctx context.Context, parent, child rbac.Role) error {
	if parent.Name == child.Name {
		return rbac.NewSecurityError(rbac.CodeHierarchyInvalid, "role %s cannot inherit from itself", parent.Name)
	}
	if err := ensureRole(ctx, m.db, m.contextID, parent.Name); err != nil {
		return err
	}
	if err := ensureRole(ctx, m.db, m.contextID, child.Name); err != nil {
		return err
	}
	return insertEdge(ctx, m.db, m.contextID, parent.Name, child.Name)
}

func (m *adminMgr) DeleteInheritance(ctx context.Context, parent, child rbac.Role) error {
	res, err := m.db.ExecContext(ctx, `
		delete from role_hierarchy
		where context_id = $1 and parent_name = $2 and child_name = $3
	`, m.contextID, parent.Name, child.Name)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return rbac.NewSecurityError(rbac.CodeHierarchyNotFound, "no inheritance edge %s -> %s", parent.Name, child.Name)
	}
	return nil
}

func (m *adminMgr) CreateSsdSet(ctx context.Context, s rbac.SDSet) (rbac.SDSet, error) {
	return m.createSDSet(ctx, s, true)
}

func (m *adminMgr) UpdateSsdSet(ctx context.Context, s rbac.SDSet) (rbac.SDSet, error) {
	return m.updateSDSet(ctx, s, true)
}

func (m *adminMgr) DeleteSsdSet(ctx context.Context, s rbac.SDSet) (rbac.SDSet, error) {
	return m.deleteSDSet(ctx, s, true)
}

func (m *adminMgr) AddSsdRoleMember(ctx context.Context, s rbac.SDSet, r rbac.Role) (rbac.SDSet, error) {
	return m.addSDMember(ctx, s, r, true)
}

func (m *adminMgr) DeleteSsdRoleMember(ctx context.Context, s rbac.SDSet, r rbac.Role) (rbac.SDSet, error) {
	return m.deleteSDMember(ctx, s, r, true)
}

func (m *adminMgr) SetSsdSetCardinality(ctx context.Context, s rbac.SDSet, cardinality int) (rbac.SDSet, error) {
	return m.setSDCardinality(ctx, s, cardinality, true)
}

func (m *adminMgr) CreateDsdSet(ctx context.Context, s rbac.SDSet) (rbac.SDSet, error) {
	return m.createSDSet(ctx, s, false)
}

func (m *adminMgr) UpdateDsdSet(ctx context.Context, s rbac.SDSet) (rbac.SDSet, error) {
	return m.updateSDSet(ctx, s, false)
}

func (m *adminMgr) DeleteDsdSet(ctx context.Context, s rbac.SDSet) (rbac.SDSet, error) {
	return m.deleteSDSet(ctx, s, false)
}

func (m *adminMgr) AddDsdRoleMember(ctx context.Context, s rbac.SDSet, r rbac.Role) (rbac.SDSet, error) {
	return m.addSDMember(ctx, s, r, false)
}

func (m *adminMgr) DeleteDsdRoleMember(ctx context.Context, s rbac.SDSet, r rbac.Role) (rbac.SDSet, error) {
	return m.deleteSDMember(ctx, s, r, false)
}

func (m *adminMgr) SetDsdSetCardinality(ctx context.Context, s rbac.SDSet, cardinality int) (rbac.SDSet, error) {
	return m.setSDCardinality(ctx, s, cardinality, false)
}

func (m *adminMgr) createSDSet(ctx context.Context, s rbac.SDSet, static bool) (rbac.SDSet, error) {
	cardinality := s.Cardinality
	if cardinality < 2 {
		cardinality = 2
	}
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return rbac.SDSet{}, err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `
		insert into sd_sets (context_id, name, sd_type, description, cardinality)
		values ($1, $2, $3, $4, $5)
	`, m.contextID, s.Name, sdType(static), s.Description, cardinality); err != nil {
		return rbac.SDSet{}, mapDBError(err,
			rbac.NewSecurityError(rbac.CodeSDSetAlreadyExists, "set %s already exists", s.Name), nil)
	}
	for _, member := range s.Members.Slice() {
		if err := insertSDMember(ctx, tx, m.contextID, s.Name, sdType(static), member); err != nil {
			return rbac.SDSet{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return rbac.SDSet{}, err
	}
	return fetchSDSet(ctx, m.db, m.contextID, s.Name, static)
}

func (m *adminMgr) updateSDSet(ctx context.Context, s rbac.SDSet, static bool) (rbac.SDSet, error) {
	res, err := m.db.ExecContext(ctx, `
		update sd_sets set description = $4
		where context_id = $1 and name = $2 and sd_type = $3
	`, m.contextID, s.Name, sdType(static), s.Description)
	if err != nil {
		return rbac.SDSet{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return rbac.SDSet{}, errSDSetNotFound(s.Name)
	}
	return fetchSDSet(ctx, m.db, m.contextID, s.Name, static)
}

// deleteSDSet answers the deleted set, so it is read before removal.
func (m *adminMgr) deleteSDSet(ctx context.Context, s rbac.SDSet, static bool) (rbac.SDSet, error) {
	out, err := fetchSDSet(ctx, m.db, m.contextID, s.Name, static)
	if err != nil {
		return rbac.SDSet{}, err
	}
	if _, err := m.db.ExecContext(ctx, `
		delete from sd_sets where context_id = $1 and name = $2 and sd_type = $3
	`, m.contextID, s.Name, sdType(static)); err != nil {
		return rbac.SDSet{}, err
	}
	return out, nil
}

func (m *adminMgr) addSDMember(ctx context.Context, s rbac.SDSet, r rbac.Role, static bool) (rbac.SDSet, error) {
	if err := insertSDMember(ctx, m.db, m.contextID, s.Name, sdType(static), r.Name); err != nil {
		return rbac.SDSet{}, err
	}
	return fetchSDSet(ctx, m.db, m.contextID, s.Name, static)
}

func (m *adminMgr) deleteSDMember(ctx context.Context, s rbac.SDSet, r rbac.Role, static bool) (rbac.SDSet, error) {
	res, err := m.db.ExecContext(ctx, `
		delete from sd_set_members
		where context_id = $1 and set_name = $2 and sd_type = $3 and role_name = $4
	`, m.contextID, s.Name, sdType(static), r.Name)
	if err != nil {
		return rbac.SDSet{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return rbac.SDSet{}, rbac.NewSecurityError(rbac.CodeSDMemberNotFound, "role %s is not a member of set %s", r.Name, s.Name)
	}
	return fetchSDSet(ctx, m.db, m.contextID, s.Name, static)
}

func (m *adminMgr) setSDCardinality(ctx context.Context, s rbac.SDSet, cardinality int, static bool) (rbac.SDSet, error) {
	res, err := m.db.ExecContext(ctx, `
		update sd_sets set cardinality = $4
		where context_id = $1 and name = $2 and sd_type = $3
	`, m.contextID, s.Name, sdType(static), cardinality)
	if err != nil {
		return rbac.SDSet{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return rbac.SDSet{}, errSDSetNotFound(s.Name)
	}
	return fetchSDSet(ctx, m.db, m.contextID, s.Name, static)
}

// deleteOne runs a single-row mutation keyed on (context_id, key) and
// maps an empty result to the given sentinel.
func (m *adminMgr) deleteOne(ctx context.Context, query, key string, missing *rbac.SecurityError, extra ...any) error {
	args := append([]any{m.contextID, key}, extra...)
	res, err := m.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return missing
	}
	return nil
}
