package pg

import (
	"context"
	"database/sql"
	"errors"

	"github.com/john77eipe/directory-fortress-enmasse/internal/rbac"
)

type reviewMgr struct {
	db        *sql.DB
	contextID string
	session   *rbac.Session
}

func (m *reviewMgr) SetAdmin(session *rbac.Session) { m.session = session }

func (m *reviewMgr) ReadUser(ctx context.Context, u rbac.User) (rbac.User, error) {
	var out rbac.User
	err := m.db.QueryRowContext(ctx, `
		select user_id, description, ou, locked, disabled, password_changed_at
		from users
		where context_id = $1 and user_id = $2
	`, m.contextID, u.UserID).
		Scan(&out.UserID, &out.Description, &out.OU, &out.Locked, &out.Disabled, &out.PasswordChangedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return rbac.User{}, errUserNotFound(u.UserID)
	}
	if err != nil {
		return rbac.User{}, err
	}
	roles, err := m.AssignedRoles(ctx, out)
	if err != nil {
		return rbac.User{}, err
	}
	out.Roles = roles
	return out, nil
}

func (m *reviewMgr) FindUsers(ctx context.Context, u rbac.User) ([]rbac.User, error) {
	return m.queryUsers(ctx, `
		select user_id, description, ou, locked, disabled, password_changed_at
		from users
		where context_id = $1 and user_id like $2 || '%'
		order by user_id
	`, m.contextID, u.UserID)
}

func (m *reviewMgr) FindUsersInUnit(ctx context.Context, ou rbac.OrgUnit) ([]rbac.User, error) {
	return m.queryUsers(ctx, `
		select user_id, description, ou, locked, disabled, password_changed_at
		from users
		where context_id = $1 and ou = $2
		order by user_id
	`, m.contextID, ou.Name)
}

func (m *reviewMgr) FindUserIDs(ctx context.Context, u rbac.User, limit int) ([]string, error) {
	return m.queryStrings(ctx, `
		select user_id from users
		where context_id = $1 and user_id like $2 || '%'
		order by user_id
		limit $3
	`, m.contextID, u.UserID, limit)
}

func (m *reviewMgr) ReadRole(ctx context.Context, r rbac.Role) (rbac.Role, error) {
	var out rbac.Role
	err := m.db.QueryRowContext(ctx, `
		select name, description from roles
		where context_id = $1 and name = $2
	`, m.contextID, r.Name).Scan(&out.Name, &out.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return rbac.Role{}, errRoleNotFound(r.Name)
	}
	if err != nil {
		return rbac.Role{}, err
	}
	return out, nil
}

func (m *reviewMgr) FindRoles(ctx context.Context, searchValue string) ([]rbac.Role, error) {
	rows, err := m.db.QueryContext(ctx, `
		select name, description from roles
		where context_id = $1 and name like $2 || '%'
		order by name
	`, m.contextID, searchValue)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []rbac.Role
	for rows.Next() {
		var r rbac.Role
		if err := rows.Scan(&r.Name, &r.Description); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func (m *reviewMgr) FindRoleNames(ctx context.Context, searchValue string, limit int) ([]string, error) {
	return m.queryStrings(ctx, `
		select name from roles
		where context_id = $1 and name like $2 || '%'
		order by name
		limit $3
	`, m.contextID, searchValue, limit)
}

func (m *reviewMgr) AssignedUsers(ctx context.Context, r rbac.Role) ([]rbac.User, error) {
	return m.queryUsers(ctx, `
		select u.user_id, u.description, u.ou, u.locked, u.disabled, u.password_changed_at
		from users u
		join user_roles ur on ur.context_id = u.context_id and ur.user_id = u.user_id
		where u.context_id = $1 and ur.role_name = $2
		order by u.user_id
	`, m.contextID, r.Name)
}

func (m *reviewMgr) AssignedUserIDs(ctx context.Context, r rbac.Role, limit int) ([]string, error) {
	return m.queryStrings(ctx, `
		select user_id from user_roles
		where context_id = $1 and role_name = $2
		order by user_id
		limit $3
	`, m.contextID, r.Name, limit)
}

func (m *reviewMgr) AssignedRoles(ctx context.Context, u rbac.User) ([]rbac.UserRole, error) {
	rows, err := m.db.QueryContext(ctx, `
		select user_id, role_name from user_roles
		where context_id = $1 and user_id = $2
		order by role_name
	`, m.contextID, u.UserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []rbac.UserRole
	for rows.Next() {
		var ur rbac.UserRole
		if err := rows.Scan(&ur.UserID, &ur.Name); err != nil {
			return nil, err
		}
		result = append(result, ur)
	}
	return result, rows.Err()
}

func (m *reviewMgr) AssignedRoleNames(ctx context.Context, userID string) ([]string, error) {
	return m.queryStrings(ctx, `
		select role_name from user_roles
		where context_id = $1 and user_id = $2
		order by role_name
	`, m.contextID, userID)
}

// AuthorizedUsers answers users assigned to the role or to any role
// superior to it.
func (m *reviewMgr) AuthorizedUsers(ctx context.Context, r rbac.Role) ([]rbac.User, error) {
	return m.queryUsers(ctx, `
		with recursive seniors as (
			select $2::text as name
			union
			select h.parent_name
			from role_hierarchy h
			join seniors s on h.context_id = $1 and h.child_name = s.name
		)
		select distinct u.user_id, u.description, u.ou, u.locked, u.disabled, u.password_changed_at
		from users u
		join user_roles ur on ur.context_id = u.context_id and ur.user_id = u.user_id
		where u.context_id = $1 and ur.role_name in (select name from seniors)
		order by u.user_id
	`, m.contextID, r.Name)
}

// AuthorizedRoles answers the user's assigned roles plus everything they
// inherit.
func (m *reviewMgr) AuthorizedRoles(ctx context.Context, u rbac.User) (rbac.StringSet, error) {
	return m.queryStringSet(ctx, `
		with recursive closure as (
			select role_name as name from user_roles
			where context_id = $1 and user_id = $2
			union
			select h.child_name
			from role_hierarchy h
			join closure c on h.context_id = $1 and h.parent_name = c.name
		)
		select name from closure
	`, m.contextID, u.UserID)
}

func (m *reviewMgr) ReadPermission(ctx context.Context, p rbac.Permission) (rbac.Permission, error) {
	var out rbac.Permission
	err := m.db.QueryRowContext(ctx, `
		select obj_name, op_name, obj_id, is_admin from permissions
		where context_id = $1 and obj_name = $2 and op_name = $3 and obj_id = $4 and is_admin = $5
	`, m.contextID, p.ObjName, p.OpName, p.ObjID, p.Admin).
		Scan(&out.ObjName, &out.OpName, &out.ObjID, &out.Admin)
	if errors.Is(err, sql.ErrNoRows) {
		return rbac.Permission{}, errPermNotFound(p)
	}
	if err != nil {
		return rbac.Permission{}, err
	}
	return out, nil
}

func (m *reviewMgr) FindPermissions(ctx context.Context, p rbac.Permission) ([]rbac.Permission, error) {
	return m.queryPerms(ctx, `
		select obj_name, op_name, obj_id, is_admin from permissions
		where context_id = $1 and obj_name like $2 || '%' and op_name like $3 || '%'
		order by obj_name, op_name, obj_id
	`, m.contextID, p.ObjName, p.OpName)
}

func (m *reviewMgr) ReadPermObj(ctx context.Context, o rbac.PermObj) (rbac.PermObj, error) {
	var out rbac.PermObj
	err := m.db.QueryRowContext(ctx, `
		select obj_name, ou, description from perm_objs
		where context_id = $1 and obj_name = $2
	`, m.contextID, o.ObjName).Scan(&out.ObjName, &out.OU, &out.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return rbac.PermObj{}, errObjNotFound(o.ObjName)
	}
	if err != nil {
		return rbac.PermObj{}, err
	}
	return out, nil
}

func (m *reviewMgr) FindPermObjs(ctx context.Context, o rbac.PermObj) ([]rbac.PermObj, error) {
	return m.queryObjs(ctx, `
		select obj_name, ou, description from perm_objs
		where context_id = $1 and obj_name like $2 || '%'
		order by obj_name
	`, m.contextID, o.ObjName)
}

func (m *reviewMgr) FindPermObjsInUnit(ctx context.Context, ou rbac.OrgUnit) ([]rbac.PermObj, error) {
	return m.queryObjs(ctx, `
		select obj_name, ou, description from perm_objs
		where context_id = $1 and ou = $2
		order by obj_name
	`, m.contextID, ou.Name)
}

func (m *reviewMgr) PermissionRoles(ctx context.Context, p rbac.Permission) ([]string, error) {
	return m.queryStrings(ctx, `
		select role_name from role_perms
		where context_id = $1 and obj_name = $2 and op_name = $3 and obj_id = $4 and is_admin = $5
		order by role_name
	`, m.contextID, p.ObjName, p.OpName, p.ObjID, p.Admin)
}

// AuthorizedPermissionRoles answers granted roles plus every role that
// inherits one of them.
func (m *reviewMgr) AuthorizedPermissionRoles(ctx context.Context, p rbac.Permission) (rbac.StringSet, error) {
	return m.queryStringSet(ctx, `
		with recursive granted as (
			select role_name as name from role_perms
			where context_id = $1 and obj_name = $2 and op_name = $3 and obj_id = $4 and is_admin = $5
			union
			select h.parent_name
			from role_hierarchy h
			join granted g on h.context_id = $1 and h.child_name = g.name
		)
		select name from granted
	`, m.contextID, p.ObjName, p.OpName, p.ObjID, p.Admin)
}

func (m *reviewMgr) PermissionUsers(ctx context.Context, p rbac.Permission) ([]string, error) {
	return m.queryStrings(ctx, `
		select user_id from user_perms
		where context_id = $1 and obj_name = $2 and op_name = $3 and obj_id = $4 and is_admin = $5
		order by user_id
	`, m.contextID, p.ObjName, p.OpName, p.ObjID, p.Admin)
}

// AuthorizedPermissionUsers answers direct grantees plus every user
// assigned a role that is authorized for the permission.
func (m *reviewMgr) AuthorizedPermissionUsers(ctx context.Context, p rbac.Permission) (rbac.StringSet, error) {
	return m.queryStringSet(ctx, `
		with recursive granted as (
			select role_name as name from role_perms
			where context_id = $1 and obj_name = $2 and op_name = $3 and obj_id = $4 and is_admin = $5
			union
			select h.parent_name
			from role_hierarchy h
			join granted g on h.context_id = $1 and h.child_name = g.name
		)
		select user_id from user_roles
		where context_id = $1 and role_name in (select name from granted)
		union
		select user_id from user_perms
		where context_id = $1 and obj_name = $2 and op_name = $3 and obj_id = $4 and is_admin = $5
	`, m.contextID, p.ObjName, p.OpName, p.ObjID, p.Admin)
}

// UserPermissions answers the union of direct grants and grants to any
// role in the user's authorized closure.
func (m *reviewMgr) UserPermissions(ctx context.Context, u rbac.User) ([]rbac.Permission, error) {
	return m.queryPerms(ctx, `
		with recursive closure as (
			select role_name as name from user_roles
			where context_id = $1 and user_id = $2
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
		where up.context_id = $1 and up.user_id = $2
		order by 1, 2, 3
	`, m.contextID, u.UserID)
}

// RolePermissions answers grants to the role and to every role it
// inherits.
func (m *reviewMgr) RolePermissions(ctx context.Context, r rbac.Role) ([]rbac.Permission, error) {
	return m.queryPerms(ctx, `
		with recursive closure as (
			select $2::text as name
			union
			select h.child_name
			from role_hierarchy h
			join closure c on h.context_id = $1 and h.parent_name = c.name
		)
		select distinct obj_name, op_name, obj_id, is_admin
		from role_perms
		where context_id = $1 and role_name in (select name from closure)
		order by obj_name, op_name, obj_id
	`, m.contextID, r.Name)
}

func (m *reviewMgr) SsdRoleSets(ctx context.Context, r rbac.Role) ([]rbac.SDSet, error) {
	return m.setsByRole(ctx, r, true)
}

func (m *reviewMgr) SsdRoleSet(ctx context.Context, s rbac.SDSet) (rbac.SDSet, error) {
	return fetchSDSet(ctx, m.db, m.contextID, s.Name, true)
}

func (m *reviewMgr) SsdRoleSetRoles(ctx context.Context, s rbac.SDSet) (rbac.StringSet, error) {
	return m.setMembers(ctx, s, true)
}

func (m *reviewMgr) SsdRoleSetCardinality(ctx context.Context, s rbac.SDSet) (int, error) {
	return m.setCardinality(ctx, s, true)
}

func (m *reviewMgr) SsdSets(ctx context.Context, s rbac.SDSet) ([]rbac.SDSet, error) {
	return m.searchSets(ctx, s, true)
}

func (m *reviewMgr) DsdRoleSets(ctx context.Context, r rbac.Role) ([]rbac.SDSet, error) {
	return m.setsByRole(ctx, r, false)
}

func (m *reviewMgr) DsdRoleSet(ctx context.Context, s rbac.SDSet) (rbac.SDSet, error) {
	return fetchSDSet(ctx, m.db, m.contextID, s.Name, false)
}

func (m *reviewMgr) DsdRoleSetRoles(ctx context.Context, s rbac.SDSet) (rbac.StringSet, error) {
	return m.setMembers(ctx, s, false)
}

func (m *reviewMgr) DsdRoleSetCardinality(ctx context.Context, s rbac.SDSet) (int, error) {
	return m.setCardinality(ctx, s, false)
}

func (m *reviewMgr) DsdSets(ctx context.Context, s rbac.SDSet) ([]rbac.SDSet, error) {
	return m.searchSets(ctx, s, false)
}

func (m *reviewMgr) setsByRole(ctx context.Context, r rbac.Role, static bool) ([]rbac.SDSet, error) {
	names, err := m.queryStrings(ctx, `
		select set_name from sd_set_members
		where context_id = $1 and sd_type = $2 and role_name = $3
		order by set_name
	`, m.contextID, sdType(static), r.Name)
	if err != nil {
		return nil, err
	}
	return m.loadSets(ctx, names, static)
}

func (m *reviewMgr) searchSets(ctx context.Context, s rbac.SDSet, static bool) ([]rbac.SDSet, error) {
	names, err := m.queryStrings(ctx, `
		select name from sd_sets
		where context_id = $1 and sd_type = $2 and name like $3 || '%'
		order by name
	`, m.contextID, sdType(static), s.Name)
	if err != nil {
		return nil, err
	}
	return m.loadSets(ctx, names, static)
}

func (m *reviewMgr) loadSets(ctx context.Context, names []string, static bool) ([]rbac.SDSet, error) {
	var result []rbac.SDSet
	for _, name := range names {
		set, err := fetchSDSet(ctx, m.db, m.contextID, name, static)
		if err != nil {
			return nil, err
		}
		result = append(result, set)
	}
	return result, nil
}

func (m *reviewMgr) setMembers(ctx context.Context, s rbac.SDSet, static bool) (rbac.StringSet, error) {
	set, err := fetchSDSet(ctx, m.db, m.contextID, s.Name, static)
	if err != nil {
		return nil, err
	}
	return set.Members, nil
}

func (m *reviewMgr) setCardinality(ctx context.Context, s rbac.SDSet, static bool) (int, error) {
	var cardinality int
	err := m.db.QueryRowContext(ctx, `
		select cardinality from sd_sets
		where context_id = $1 and name = $2 and sd_type = $3
	`, m.contextID, s.Name, sdType(static)).Scan(&cardinality)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, errSDSetNotFound(s.Name)
	}
	return cardinality, err
}

func (m *reviewMgr) queryUsers(ctx context.Context, query string, args ...any) ([]rbac.User, error) {
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []rbac.User
	for rows.Next() {
		var u rbac.User
		if err := rows.Scan(&u.UserID, &u.Description, &u.OU, &u.Locked, &u.Disabled, &u.PasswordChangedAt); err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

func (m *reviewMgr) queryPerms(ctx context.Context, query string, args ...any) ([]rbac.Permission, error) {
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []rbac.Permission
	for rows.Next() {
		var p rbac.Permission
		if err := rows.Scan(&p.ObjName, &p.OpName, &p.ObjID, &p.Admin); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (m *reviewMgr) queryObjs(ctx context.Context, query string, args ...any) ([]rbac.PermObj, error) {
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []rbac.PermObj
	for rows.Next() {
		var o rbac.PermObj
		if err := rows.Scan(&o.ObjName, &o.OU, &o.Description); err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	return result, rows.Err()
}

func (m *reviewMgr) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (m *reviewMgr) queryStringSet(ctx context.Context, query string, args ...any) (rbac.StringSet, error) {
	values, err := m.queryStrings(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rbac.NewStringSet(values...), nil
}
