package pg

import (
	"context"
	"database/sql"
	"errors"

	"github.com/john77eipe/directory-fortress-enmasse/internal/rbac"
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func errUserNotFound(userID string) *rbac.SecurityError {
	return rbac.NewSecurityError(rbac.CodeUserNotFound, "user %s not found", userID)
}

func errRoleNotFound(name string) *rbac.SecurityError {
	return rbac.NewSecurityError(rbac.CodeRoleNotFound, "role %s not found", name)
}

func errObjNotFound(objName string) *rbac.SecurityError {
	return rbac.NewSecurityError(rbac.CodeObjNotFound, "object %s not found", objName)
}

func errPermNotFound(p rbac.Permission) *rbac.SecurityError {
	return rbac.NewSecurityError(rbac.CodePermNotFound, "permission %s.%s not found", p.ObjName, p.OpName)
}

func errSDSetNotFound(name string) *rbac.SecurityError {
	return rbac.NewSecurityError(rbac.CodeSDSetNotFound, "set %s not found", name)
}

func ensureRole(ctx context.Context, db *sql.DB, contextID, name string) error {
	var one int
	err := db.QueryRowContext(ctx,
		`select 1 from roles where context_id = $1 and name = $2`,
		contextID, name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return errRoleNotFound(name)
	}
	return err
}

func ensureAdminRole(ctx context.Context, db *sql.DB, contextID, name string) error {
	var one int
	err := db.QueryRowContext(ctx,
		`select 1 from admin_roles where context_id = $1 and name = $2`,
		contextID, name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return rbac.NewSecurityError(rbac.CodeAdminRoleNotFound, "admin role %s not found", name)
	}
	return err
}

func ensurePermission(ctx context.Context, db *sql.DB, contextID string, p rbac.Permission) error {
	var one int
	err := db.QueryRowContext(ctx, `
		select 1 from permissions
		where context_id = $1 and obj_name = $2 and op_name = $3 and obj_id = $4 and is_admin = $5
	`, contextID, p.ObjName, p.OpName, p.ObjID, p.Admin).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return errPermNotFound(p)
	}
	return err
}

// grantToRole records the grant; the caller has already verified the
// target role in whichever namespace applies.
func grantToRole(ctx context.Context, db *sql.DB, contextID string, p rbac.Permission, roleName string) error {
	if err := ensurePermission(ctx, db, contextID, p); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, `
		insert into role_perms (context_id, obj_name, op_name, obj_id, is_admin, role_name)
		values ($1, $2, $3, $4, $5, $6)
	`, contextID, p.ObjName, p.OpName, p.ObjID, p.Admin, roleName)
	return mapDBError(err,
		rbac.NewSecurityError(rbac.CodeGrantExists, "permission %s.%s already granted to role %s", p.ObjName, p.OpName, roleName),
		errPermNotFound(p))
}

func revokeFromRole(ctx context.Context, db *sql.DB, contextID string, p rbac.Permission, roleName string) error {
	res, err := db.ExecContext(ctx, `
		delete from role_perms
		where context_id = $1 and obj_name = $2 and op_name = $3 and obj_id = $4 and is_admin = $5 and role_name = $6
	`, contextID, p.ObjName, p.OpName, p.ObjID, p.Admin, roleName)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return rbac.NewSecurityError(rbac.CodeGrantNotFound, "permission %s.%s not granted to role %s", p.ObjName, p.OpName, roleName)
	}
	return nil
}

func grantToUser(ctx context.Context, db *sql.DB, contextID string, p rbac.Permission, userID string) error {
	if err := ensurePermission(ctx, db, contextID, p); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, `
		insert into user_perms (context_id, obj_name, op_name, obj_id, is_admin, user_id)
		values ($1, $2, $3, $4, $5, $6)
	`, contextID, p.ObjName, p.OpName, p.ObjID, p.Admin, userID)
	if pgErr, ok := maybePgError(err); ok {
		switch {
		case pgErr.Code == pgErrUniqueViolation:
			return rbac.NewSecurityError(rbac.CodeGrantExists, "permission %s.%s already granted to user %s", p.ObjName, p.OpName, userID)
		case pgErr.ConstraintName == "user_perms_user_fk":
			return errUserNotFound(userID)
		case pgErr.ConstraintName == "user_perms_perm_fk":
			return errPermNotFound(p)
		}
	}
	return err
}

func revokeFromUser(ctx context.Context, db *sql.DB, contextID string, p rbac.Permission, userID string) error {
	res, err := db.ExecContext(ctx, `
		delete from user_perms
		where context_id = $1 and obj_name = $2 and op_name = $3 and obj_id = $4 and is_admin = $5 and user_id = $6
	`, contextID, p.ObjName, p.OpName, p.ObjID, p.Admin, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return rbac.NewSecurityError(rbac.CodeGrantNotFound, "permission %s.%s not granted to user %s", p.ObjName, p.OpName, userID)
	}
	return nil
}

func insertEdge(ctx context.Context, db execer, contextID, parentName, childName string) error {
	_, err := db.ExecContext(ctx, `
		insert into role_hierarchy (context_id, parent_name, child_name)
		values ($1, $2, $3)
	`, contextID, parentName, childName)
	if pgErr, ok := maybePgError(err); ok {
		switch pgErr.Code {
		case pgErrUniqueViolation:
			return rbac.NewSecurityError(rbac.CodeHierarchyInvalid, "inheritance edge %s -> %s already exists", parentName, childName)
		case pgErrForeignKeyViolation:
			return rbac.NewSecurityError(rbac.CodeRoleNotFound, "inheritance endpoint missing for edge %s -> %s", parentName, childName)
		}
	}
	return err
}

func insertSDMember(ctx context.Context, db execer, contextID, setName, typ, roleName string) error {
	_, err := db.ExecContext(ctx, `
		insert into sd_set_members (context_id, set_name, sd_type, role_name)
		values ($1, $2, $3, $4)
	`, contextID, setName, typ, roleName)
	if pgErr, ok := maybePgError(err); ok {
		switch {
		case pgErr.Code == pgErrUniqueViolation:
			return rbac.NewSecurityError(rbac.CodeSDMemberExists, "role %s is already a member of set %s", roleName, setName)
		case pgErr.ConstraintName == "sd_set_members_role_fk":
			return errRoleNotFound(roleName)
		case pgErr.ConstraintName == "sd_set_members_set_fk":
			return errSDSetNotFound(setName)
		}
	}
	return err
}

func fetchSDSet(ctx context.Context, db *sql.DB, contextID, name string, static bool) (rbac.SDSet, error) {
	var out rbac.SDSet
	err := db.QueryRowContext(ctx, `
		select name, description, cardinality
		from sd_sets
		where context_id = $1 and name = $2 and sd_type = $3
	`, contextID, name, sdType(static)).Scan(&out.Name, &out.Description, &out.Cardinality)
	if errors.Is(err, sql.ErrNoRows) {
		return rbac.SDSet{}, errSDSetNotFound(name)
	}
	if err != nil {
		return rbac.SDSet{}, err
	}

	rows, err := db.QueryContext(ctx, `
		select role_name from sd_set_members
		where context_id = $1 and set_name = $2 and sd_type = $3
		order by role_name
	`, contextID, name, sdType(static))
	if err != nil {
		return rbac.SDSet{}, err
	}
	defer rows.Close()

	out.Members = rbac.NewStringSet()
	for rows.Next() {
		var member string
		if err := rows.Scan(&member); err != nil {
			return rbac.SDSet{}, err
		}
		out.Members.Add(member)
	}
	if err := rows.Err(); err != nil {
		return rbac.SDSet{}, err
	}
	return out, nil
}
