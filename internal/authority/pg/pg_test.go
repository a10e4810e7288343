package pg

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/john77eipe/directory-fortress-enmasse/internal/rbac"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db), mock
}

func verify(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func securityCode(t *testing.T, err error) int {
	t.Helper()
	var se *rbac.SecurityError
	if !errors.As(err, &se) {
		t.Fatalf("expected SecurityError, got %v", err)
	}
	return se.Code
}

func TestAddUserInsertReturning(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectQuery("insert into users").
		WithArgs("acme", "jsmith", sqlmock.AnyArg(), "engineer", "eng").
		WillReturnRows(sqlmock.NewRows(
			[]string{"user_id", "description", "ou", "locked", "disabled", "password_changed_at"}).
			AddRow("jsmith", "engineer", "eng", false, false, nil))

	admin, _ := store.Admin(context.Background(), "acme")
	out, err := admin.AddUser(context.Background(), rbac.User{UserID: "jsmith", Password: "secret", Description: "engineer", OU: "eng"})
	if err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	if out.UserID != "jsmith" || out.OU != "eng" {
		t.Fatalf("unexpected user: %#v", out)
	}
	verify(t, mock)
}

func TestAddUserDuplicate(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectQuery("insert into users").
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

	admin, _ := store.Admin(context.Background(), "acme")
	_, err := admin.AddUser(context.Background(), rbac.User{UserID: "jsmith"})
	if code := securityCode(t, err); code != rbac.CodeUserAlreadyExists {
		t.Fatalf("expected code %d, got %d", rbac.CodeUserAlreadyExists, code)
	}
	verify(t, mock)
}

func TestAssignUserConstraintMapping(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectExec("insert into user_roles").
		WillReturnError(&pgconn.PgError{Code: pgErrForeignKeyViolation, ConstraintName: "user_roles_role_fk"})

	admin, _ := store.Admin(context.Background(), "acme")
	err := admin.AssignUser(context.Background(), rbac.UserRole{UserID: "jsmith", Name: "ghost"})
	if code := securityCode(t, err); code != rbac.CodeRoleNotFound {
		t.Fatalf("expected code %d, got %d", rbac.CodeRoleNotFound, code)
	}
	verify(t, mock)
}

func TestDeassignUserNotFound(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectExec("delete from user_roles").
		WithArgs("acme", "jsmith", "viewer").
		WillReturnResult(sqlmock.NewResult(0, 0))

	admin, _ := store.Admin(context.Background(), "acme")
	err := admin.DeassignUser(context.Background(), rbac.UserRole{UserID: "jsmith", Name: "viewer"})
	if code := securityCode(t, err); code != rbac.CodeAssignNotFound {
		t.Fatalf("expected code %d, got %d", rbac.CodeAssignNotFound, code)
	}
	verify(t, mock)
}

func TestGrantPermissionChecksRoleAndPermission(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectQuery("select 1 from roles").
		WithArgs("acme", "viewer").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery("select 1 from permissions").
		WithArgs("acme", "invoice", "read", "", false).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectExec("insert into role_perms").
		WithArgs("acme", "invoice", "read", "", false, "viewer").
		WillReturnResult(sqlmock.NewResult(1, 1))

	admin, _ := store.Admin(context.Background(), "acme")
	perm := rbac.Permission{ObjName: "invoice", OpName: "read"}
	if err := admin.GrantPermission(context.Background(), perm, rbac.Role{Name: "viewer"}); err != nil {
		t.Fatalf("GrantPermission: %v", err)
	}
	verify(t, mock)
}

func TestDelegatedGrantChecksAdminRoleNamespace(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectQuery("select 1 from admin_roles").
		WithArgs("acme", "auditor").
		WillReturnError(sql.ErrNoRows)

	delegated, _ := store.DelegatedAdmin(context.Background(), "acme")
	perm := rbac.Permission{ObjName: "invoice", OpName: "audit", Admin: true}
	err := delegated.GrantPermission(context.Background(), perm, rbac.AdminRole{Name: "auditor"})
	if code := securityCode(t, err); code != rbac.CodeAdminRoleNotFound {
		t.Fatalf("expected code %d, got %d", rbac.CodeAdminRoleNotFound, code)
	}
	verify(t, mock)
}

func TestAuthenticateLockedAccount(t *testing.T) {
	store, mock := newMock(t)
	hash, _ := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	mock.ExpectQuery("select password_hash, locked, disabled from users").
		WithArgs("acme", "jsmith").
		WillReturnRows(sqlmock.NewRows([]string{"password_hash", "locked", "disabled"}).
			AddRow(string(hash), true, false))

	access, _ := store.Access(context.Background(), "acme")
	_, err := access.Authenticate(context.Background(), "jsmith", "secret")
	if code := securityCode(t, err); code != rbac.CodeUserLocked {
		t.Fatalf("expected code %d, got %d", rbac.CodeUserLocked, code)
	}
	verify(t, mock)
}

func TestAuthenticateCreatesSession(t *testing.T) {
	store, mock := newMock(t)
	hash, _ := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	mock.ExpectQuery("select password_hash, locked, disabled from users").
		WithArgs("acme", "jsmith").
		WillReturnRows(sqlmock.NewRows([]string{"password_hash", "locked", "disabled"}).
			AddRow(string(hash), false, false))
	mock.ExpectBegin()
	mock.ExpectExec("insert into sessions").
		WithArgs("acme", sqlmock.AnyArg(), "jsmith", false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("insert into session_roles").
		WithArgs("acme", sqlmock.AnyArg(), "jsmith").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("select sr.role_name, se.user_id").
		WithArgs("acme", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"role_name", "user_id"}).
			AddRow("viewer", "jsmith"))

	access, _ := store.Access(context.Background(), "acme")
	session, err := access.Authenticate(context.Background(), "jsmith", "secret")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if session.SessionID == "" || session.UserID != "jsmith" {
		t.Fatalf("unexpected session: %#v", session)
	}
	if len(session.Roles) != 1 || session.Roles[0].Name != "viewer" {
		t.Fatalf("roles not activated: %#v", session.Roles)
	}
	verify(t, mock)
}

func TestCheckAccessUnknownSession(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectQuery("select user_id from sessions").
		WithArgs("acme", "stale").
		WillReturnError(sql.ErrNoRows)

	access, _ := store.Access(context.Background(), "acme")
	_, err := access.CheckAccess(context.Background(),
		&rbac.Session{SessionID: "stale"}, rbac.Permission{ObjName: "invoice", OpName: "read"})
	if code := securityCode(t, err); code != rbac.CodeSessionInvalid {
		t.Fatalf("expected code %d, got %d", rbac.CodeSessionInvalid, code)
	}
	verify(t, mock)
}

func TestSsdRoleSetCardinalityNotFound(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectQuery("select cardinality from sd_sets").
		WithArgs("acme", "duty", "static").
		WillReturnError(sql.ErrNoRows)

	review, _ := store.Review(context.Background(), "acme")
	_, err := review.SsdRoleSetCardinality(context.Background(), rbac.SDSet{Name: "duty"})
	if code := securityCode(t, err); code != rbac.CodeSDSetNotFound {
		t.Fatalf("expected code %d, got %d", rbac.CodeSDSetNotFound, code)
	}
	verify(t, mock)
}

func TestFetchSDSetCollectsMembers(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectQuery("select name, description, cardinality").
		WithArgs("acme", "duty", "dynamic").
		WillReturnRows(sqlmock.NewRows([]string{"name", "description", "cardinality"}).
			AddRow("duty", "", 2))
	mock.ExpectQuery("select role_name from sd_set_members").
		WithArgs("acme", "duty", "dynamic").
		WillReturnRows(sqlmock.NewRows([]string{"role_name"}).
			AddRow("editor").AddRow("viewer"))

	review, _ := store.Review(context.Background(), "acme")
	set, err := review.DsdRoleSet(context.Background(), rbac.SDSet{Name: "duty"})
	if err != nil {
		t.Fatalf("DsdRoleSet: %v", err)
	}
	if !set.Members.Contains("editor") || !set.Members.Contains("viewer") {
		t.Fatalf("members not collected: %#v", set.Members)
	}
	verify(t, mock)
}

func TestEmptyContextDefaultsToHome(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectQuery("select name, description from roles").
		WithArgs(defaultContext, "viewer").
		WillReturnRows(sqlmock.NewRows([]string{"name", "description"}).AddRow("viewer", ""))

	review, _ := store.Review(context.Background(), "")
	if _, err := review.ReadRole(context.Background(), rbac.Role{Name: "viewer"}); err != nil {
		t.Fatalf("ReadRole: %v", err)
	}
	verify(t, mock)
}
