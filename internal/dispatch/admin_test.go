package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/john77eipe/directory-fortress-enmasse/internal/authority/authoritytest"
	"github.com/john77eipe/directory-fortress-enmasse/internal/rbac"
)

func entityJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func adminReq(t *testing.T, entity any) Request {
	t.Helper()
	return Request{
		ContextID: "acme",
		Entity:    entityJSON(t, entity),
		Session:   &rbac.Session{SessionID: "s1", UserID: "root"},
	}
}

func TestAddUserReturnsAuthorityCopy(t *testing.T) {
	f := authoritytest.NewFactory()
	f.AdminMgr.UserOut = rbac.User{UserID: "jsmith", OU: "eng", Description: "server-filled"}
	svc := NewAdminService(f)

	resp := svc.AddUser(context.Background(), adminReq(t, rbac.User{UserID: "jsmith"}))
	if resp.ErrorCode != 0 {
		t.Fatalf("unexpected error: %d %s", resp.ErrorCode, resp.ErrorMessage)
	}
	got, ok := resp.Entity.(rbac.User)
	if !ok || got.Description != "server-filled" {
		t.Fatalf("expected authority copy in response, got %#v", resp.Entity)
	}
	if f.AdminMgr.Session == nil || f.AdminMgr.Session.UserID != "root" {
		t.Fatalf("acting session not attached: %#v", f.AdminMgr.Session)
	}
}

func TestDeleteUserEchoesInput(t *testing.T) {
	f := authoritytest.NewFactory()
	svc := NewAdminService(f)

	in := rbac.User{UserID: "jsmith", Description: "caller copy"}
	resp := svc.DeleteUser(context.Background(), adminReq(t, in))
	if resp.ErrorCode != 0 {
		t.Fatalf("unexpected error: %d %s", resp.ErrorCode, resp.ErrorMessage)
	}
	got, ok := resp.Entity.(rbac.User)
	if !ok || got.UserID != in.UserID || got.Description != in.Description {
		t.Fatalf("expected input echo, got %#v", resp.Entity)
	}
}

func TestChangePasswordRereadsUser(t *testing.T) {
	changed := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	f := authoritytest.NewFactory()
	f.ReviewMgr.UserOut = rbac.User{UserID: "jsmith", PasswordChangedAt: &changed}
	svc := NewAdminService(f)

	in := rbac.User{UserID: "jsmith", NewPassword: "n3w"}
	resp := svc.ChangePassword(context.Background(), adminReq(t, in))
	if resp.ErrorCode != 0 {
		t.Fatalf("unexpected error: %d %s", resp.ErrorCode, resp.ErrorMessage)
	}
	call, ok := f.Find("admin.ChangePassword")
	if !ok {
		t.Fatal("password change never reached the authority")
	}
	if call.Args[1] != "n3w" {
		t.Fatalf("wrong new password: %v", call.Args[1])
	}
	if _, ok := f.Find("review.ReadUser"); !ok {
		t.Fatal("post-change re-read missing")
	}
	got, ok := resp.Entity.(rbac.User)
	if !ok || got.PasswordChangedAt == nil || !got.PasswordChangedAt.Equal(changed) {
		t.Fatalf("response must carry re-read state, got %#v", resp.Entity)
	}
}

func TestLockUserAccountRereadsUser(t *testing.T) {
	f := authoritytest.NewFactory()
	f.ReviewMgr.UserOut = rbac.User{UserID: "jsmith", Locked: true}
	svc := NewAdminService(f)

	resp := svc.LockUserAccount(context.Background(), adminReq(t, rbac.User{UserID: "jsmith"}))
	if resp.ErrorCode != 0 {
		t.Fatalf("unexpected error: %d %s", resp.ErrorCode, resp.ErrorMessage)
	}
	got, ok := resp.Entity.(rbac.User)
	if !ok || !got.Locked {
		t.Fatalf("response must carry the locked flag from re-read, got %#v", resp.Entity)
	}
}

func TestGrantRouting(t *testing.T) {
	cases := []struct {
		name   string
		admin  bool
		op     func(*AdminService, context.Context, Request) Response
		grant  rbac.PermGrant
		wantOp string
	}{
		{"role regular", false, (*AdminService).Grant, rbac.PermGrant{ObjName: "o", OpName: "read", RoleNm: "viewer"}, "admin.GrantPermission"},
		{"role delegated", true, (*AdminService).Grant, rbac.PermGrant{ObjName: "o", OpName: "read", RoleNm: "auditor", Admin: true}, "delegated.GrantPermission"},
		{"user regular", false, (*AdminService).GrantUser, rbac.PermGrant{ObjName: "o", OpName: "read", UserID: "jsmith"}, "admin.GrantPermissionUser"},
		{"user delegated", true, (*AdminService).GrantUser, rbac.PermGrant{ObjName: "o", OpName: "read", UserID: "jsmith", Admin: true}, "delegated.GrantPermissionUser"},
		{"revoke role regular", false, (*AdminService).Revoke, rbac.PermGrant{ObjName: "o", OpName: "read", RoleNm: "viewer"}, "admin.RevokePermission"},
		{"revoke user delegated", true, (*AdminService).RevokeUser, rbac.PermGrant{ObjName: "o", OpName: "read", UserID: "jsmith", Admin: true}, "delegated.RevokePermissionUser"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := authoritytest.NewFactory()
			svc := NewAdminService(f)

			resp := tc.op(svc, context.Background(), adminReq(t, tc.grant))
			if resp.ErrorCode != 0 {
				t.Fatalf("unexpected error: %d %s", resp.ErrorCode, resp.ErrorMessage)
			}
			call, ok := f.Find(tc.wantOp)
			if !ok {
				t.Fatalf("expected %s, calls: %#v", tc.wantOp, f.Calls)
			}
			perm := call.Args[0].(rbac.Permission)
			if perm.Admin != tc.admin {
				t.Fatalf("permission admin flag must match the grant: %#v", perm)
			}
			got, ok := resp.Entity.(rbac.PermGrant)
			if !ok || got != tc.grant {
				t.Fatalf("expected grant echo, got %#v", resp.Entity)
			}
		})
	}
}

func TestGrantBuildsTargetFromName(t *testing.T) {
	f := authoritytest.NewFactory()
	svc := NewAdminService(f)

	resp := svc.Grant(context.Background(), adminReq(t, rbac.PermGrant{ObjName: "o", OpName: "read", RoleNm: "viewer"}))
	if resp.ErrorCode != 0 {
		t.Fatalf("unexpected error: %d %s", resp.ErrorCode, resp.ErrorMessage)
	}
	call, _ := f.Find("admin.GrantPermission")
	if role := call.Args[1].(rbac.Role); role.Name != "viewer" {
		t.Fatalf("wrong grant target: %#v", role)
	}

	f = authoritytest.NewFactory()
	svc = NewAdminService(f)
	resp = svc.Grant(context.Background(), adminReq(t, rbac.PermGrant{ObjName: "o", OpName: "read", RoleNm: "auditor", Admin: true}))
	if resp.ErrorCode != 0 {
		t.Fatalf("unexpected error: %d %s", resp.ErrorCode, resp.ErrorMessage)
	}
	call, _ = f.Find("delegated.GrantPermission")
	if role := call.Args[1].(rbac.AdminRole); role.Name != "auditor" {
		t.Fatalf("wrong delegated grant target: %#v", role)
	}
}

func TestGrantTargetValidation(t *testing.T) {
	f := authoritytest.NewFactory()
	svc := NewAdminService(f)

	resp := svc.Grant(context.Background(), adminReq(t, rbac.PermGrant{ObjName: "o", OpName: "read", RoleNm: "viewer", UserID: "jsmith"}))
	if resp.ErrorCode != rbac.CodeGrantTargetInvalid {
		t.Fatalf("expected code %d, got %d", rbac.CodeGrantTargetInvalid, resp.ErrorCode)
	}
	resp = svc.GrantUser(context.Background(), adminReq(t, rbac.PermGrant{ObjName: "o", OpName: "read"}))
	if resp.ErrorCode != rbac.CodeGrantTargetInvalid {
		t.Fatalf("expected code %d, got %d", rbac.CodeGrantTargetInvalid, resp.ErrorCode)
	}
	if len(f.Calls) != 0 {
		t.Fatalf("invalid grants must not reach the authority: %#v", f.Calls)
	}
}

func TestAddAscendantSwapsArguments(t *testing.T) {
	f := authoritytest.NewFactory()
	svc := NewAdminService(f)

	rel := rbac.RoleRelationship{Parent: rbac.Role{Name: "new-parent"}, Child: rbac.Role{Name: "existing-child"}}
	resp := svc.AddAscendant(context.Background(), adminReq(t, rel))
	if resp.ErrorCode != 0 {
		t.Fatalf("unexpected error: %d %s", resp.ErrorCode, resp.ErrorMessage)
	}
	call, ok := f.Find("admin.AddAscendant")
	if !ok {
		t.Fatalf("AddAscendant not called: %#v", f.Calls)
	}
	if call.Args[0].(rbac.Role).Name != "existing-child" || call.Args[1].(rbac.Role).Name != "new-parent" {
		t.Fatalf("arguments not swapped: %#v", call.Args)
	}
}

func TestAddDescendantPassesThrough(t *testing.T) {
	f := authoritytest.NewFactory()
	svc := NewAdminService(f)

	rel := rbac.RoleRelationship{Parent: rbac.Role{Name: "p"}, Child: rbac.Role{Name: "c"}}
	if resp := svc.AddDescendant(context.Background(), adminReq(t, rel)); resp.ErrorCode != 0 {
		t.Fatalf("unexpected error: %d %s", resp.ErrorCode, resp.ErrorMessage)
	}
	call, _ := f.Find("admin.AddDescendant")
	if call.Args[0].(rbac.Role).Name != "p" || call.Args[1].(rbac.Role).Name != "c" {
		t.Fatalf("arguments reordered: %#v", call.Args)
	}
}

func TestAddSsdRoleMemberBuildsRoleFromValue(t *testing.T) {
	f := authoritytest.NewFactory()
	f.AdminMgr.SetOut = rbac.SDSet{Name: "duty", Members: rbac.NewStringSet("viewer", "editor")}
	svc := NewAdminService(f)

	req := adminReq(t, rbac.SDSet{Name: "duty"})
	req.Value = "editor"
	resp := svc.AddSsdRoleMember(context.Background(), req)
	if resp.ErrorCode != 0 {
		t.Fatalf("unexpected error: %d %s", resp.ErrorCode, resp.ErrorMessage)
	}
	call, ok := f.Find("admin.AddSsdRoleMember")
	if !ok {
		t.Fatalf("AddSsdRoleMember not called: %#v", f.Calls)
	}
	if role := call.Args[1].(rbac.Role); role.Name != "editor" {
		t.Fatalf("member role must come from the value field: %#v", role)
	}
	got, ok := resp.Entity.(rbac.SDSet)
	if !ok || !got.Members.Contains("editor") {
		t.Fatalf("expected updated set, got %#v", resp.Entity)
	}
}

func TestSetDsdSetCardinalityUsesEntityField(t *testing.T) {
	f := authoritytest.NewFactory()
	f.AdminMgr.SetOut = rbac.SDSet{Name: "duty", Cardinality: 3}
	svc := NewAdminService(f)

	resp := svc.SetDsdSetCardinality(context.Background(), adminReq(t, rbac.SDSet{Name: "duty", Cardinality: 3}))
	if resp.ErrorCode != 0 {
		t.Fatalf("unexpected error: %d %s", resp.ErrorCode, resp.ErrorMessage)
	}
	call, ok := f.Find("admin.SetDsdSetCardinality")
	if !ok {
		t.Fatalf("SetDsdSetCardinality not called: %#v", f.Calls)
	}
	if call.Args[1].(int) != 3 {
		t.Fatalf("cardinality not taken from the entity: %v", call.Args[1])
	}
}

func TestSecurityErrorPassthrough(t *testing.T) {
	f := authoritytest.NewFactory()
	f.AdminMgr.Err = rbac.NewSecurityError(rbac.CodeRoleNotFound, "role viewer not found")
	svc := NewAdminService(f)

	resp := svc.DeleteRole(context.Background(), adminReq(t, rbac.Role{Name: "viewer"}))
	if resp.ErrorCode != rbac.CodeRoleNotFound {
		t.Fatalf("expected code %d, got %d", rbac.CodeRoleNotFound, resp.ErrorCode)
	}
	if resp.ErrorMessage != "role viewer not found" {
		t.Fatalf("message not passed through: %q", resp.ErrorMessage)
	}
	if resp.Entity != nil || resp.Entities != nil {
		t.Fatalf("error envelope must carry no payload: %#v", resp)
	}
}

func TestOpaqueErrorBecomesEngineFailure(t *testing.T) {
	f := authoritytest.NewFactory()
	f.AdminMgr.Err = errors.New("connection reset")
	svc := NewAdminService(f)

	resp := svc.AddRole(context.Background(), adminReq(t, rbac.Role{Name: "viewer"}))
	if resp.ErrorCode != rbac.CodeEngineFailure {
		t.Fatalf("expected engine failure code, got %d", resp.ErrorCode)
	}
}

func TestMismatchedEntityRejected(t *testing.T) {
	f := authoritytest.NewFactory()
	svc := NewAdminService(f)

	req := Request{ContextID: "acme", Entity: json.RawMessage(`["not","a","user"]`)}
	resp := svc.AddUser(context.Background(), req)
	if resp.ErrorCode != rbac.CodeEntityTypeInvalid {
		t.Fatalf("expected code %d, got %d", rbac.CodeEntityTypeInvalid, resp.ErrorCode)
	}
	if len(f.Calls) != 0 {
		t.Fatalf("bad entity must not reach the authority: %#v", f.Calls)
	}
}
