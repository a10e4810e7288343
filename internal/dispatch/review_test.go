package dispatch

import (
	"context"
	"testing"

	"github.com/john77eipe/directory-fortress-enmasse/internal/authority/authoritytest"
	"github.com/john77eipe/directory-fortress-enmasse/internal/rbac"
)

func reviewReq(t *testing.T, entity any) Request {
	t.Helper()
	return Request{ContextID: "acme", Entity: entityJSON(t, entity)}
}

func intPtr(n int) *int { return &n }

func TestFindRolesLimitSwitchesShape(t *testing.T) {
	f := authoritytest.NewFactory()
	f.ReviewMgr.NamesOut = []string{"editor", "viewer"}
	svc := NewReviewService(f)

	req := Request{ContextID: "acme", Value: "v", Limit: intPtr(10)}
	resp := svc.FindRoles(context.Background(), req)
	if resp.ErrorCode != 0 {
		t.Fatalf("unexpected error: %d %s", resp.ErrorCode, resp.ErrorMessage)
	}
	if len(resp.Values) != 2 || resp.Entities != nil {
		t.Fatalf("limited search must answer with values: %#v", resp)
	}
	call, ok := f.Find("review.FindRoleNames")
	if !ok {
		t.Fatalf("expected FindRoleNames, calls: %#v", f.Calls)
	}
	if call.Args[0] != "v" || call.Args[1] != 10 {
		t.Fatalf("search value or limit lost: %#v", call.Args)
	}

	f = authoritytest.NewFactory()
	f.ReviewMgr.RolesOut = []rbac.Role{{Name: "editor"}}
	svc = NewReviewService(f)
	resp = svc.FindRoles(context.Background(), Request{ContextID: "acme", Value: "v"})
	if resp.ErrorCode != 0 {
		t.Fatalf("unexpected error: %d %s", resp.ErrorCode, resp.ErrorMessage)
	}
	if len(resp.Entities) != 1 || resp.Values != nil {
		t.Fatalf("unlimited search must answer with entities: %#v", resp)
	}
}

func TestFindUsersOrgUnitScoped(t *testing.T) {
	f := authoritytest.NewFactory()
	f.ReviewMgr.UsersOut = []rbac.User{{UserID: "jsmith"}}
	svc := NewReviewService(f)

	resp := svc.FindUsers(context.Background(), reviewReq(t, rbac.User{OU: "engineering"}))
	if resp.ErrorCode != 0 {
		t.Fatalf("unexpected error: %d %s", resp.ErrorCode, resp.ErrorMessage)
	}
	call, ok := f.Find("review.FindUsersInUnit")
	if !ok {
		t.Fatalf("expected unit-scoped search, calls: %#v", f.Calls)
	}
	ou := call.Args[0].(rbac.OrgUnit)
	if ou.Name != "engineering" || ou.Type != rbac.OrgUnitUser {
		t.Fatalf("wrong org unit: %#v", ou)
	}
}

func TestFindUsersLimitReturnsIDs(t *testing.T) {
	f := authoritytest.NewFactory()
	f.ReviewMgr.IDsOut = []string{"a", "b", "c"}
	svc := NewReviewService(f)

	req := reviewReq(t, rbac.User{UserID: "j"})
	req.Limit = intPtr(3)
	resp := svc.FindUsers(context.Background(), req)
	if resp.ErrorCode != 0 {
		t.Fatalf("unexpected error: %d %s", resp.ErrorCode, resp.ErrorMessage)
	}
	if len(resp.Values) != 3 || resp.Entities != nil {
		t.Fatalf("limited search must answer with userIds: %#v", resp)
	}
	if _, ok := f.Find("review.FindUserIDs"); !ok {
		t.Fatalf("expected FindUserIDs, calls: %#v", f.Calls)
	}
}

func TestFindPermObjsOrgUnitScoped(t *testing.T) {
	f := authoritytest.NewFactory()
	f.ReviewMgr.ObjsOut = []rbac.PermObj{{ObjName: "invoice"}}
	svc := NewReviewService(f)

	resp := svc.FindPermObjs(context.Background(), reviewReq(t, rbac.PermObj{OU: "billing"}))
	if resp.ErrorCode != 0 {
		t.Fatalf("unexpected error: %d %s", resp.ErrorCode, resp.ErrorMessage)
	}
	call, ok := f.Find("review.FindPermObjsInUnit")
	if !ok {
		t.Fatalf("expected unit-scoped search, calls: %#v", f.Calls)
	}
	ou := call.Args[0].(rbac.OrgUnit)
	if ou.Name != "billing" || ou.Type != rbac.OrgUnitPerm {
		t.Fatalf("wrong org unit: %#v", ou)
	}
}

func TestAssignedRolesDualMode(t *testing.T) {
	f := authoritytest.NewFactory()
	f.ReviewMgr.NamesOut = []string{"viewer"}
	svc := NewReviewService(f)

	resp := svc.AssignedRoles(context.Background(), Request{ContextID: "acme", Value: "jsmith"})
	if resp.ErrorCode != 0 {
		t.Fatalf("unexpected error: %d %s", resp.ErrorCode, resp.ErrorMessage)
	}
	if len(resp.Values) != 1 || resp.Values[0] != "viewer" {
		t.Fatalf("value-mode must answer role names: %#v", resp)
	}
	call, _ := f.Find("review.AssignedRoleNames")
	if call.Args[0] != "jsmith" {
		t.Fatalf("userId not taken from value field: %#v", call.Args)
	}

	f = authoritytest.NewFactory()
	f.ReviewMgr.UserRolesOut = []rbac.UserRole{{UserID: "jsmith", Name: "viewer"}}
	svc = NewReviewService(f)
	resp = svc.AssignedRoles(context.Background(), reviewReq(t, rbac.User{UserID: "jsmith"}))
	if resp.ErrorCode != 0 {
		t.Fatalf("unexpected error: %d %s", resp.ErrorCode, resp.ErrorMessage)
	}
	if len(resp.Entities) != 1 || resp.Values != nil {
		t.Fatalf("entity-mode must answer assignment entities: %#v", resp)
	}
}

func TestAuthorizedRolesIsValueSet(t *testing.T) {
	f := authoritytest.NewFactory()
	f.ReviewMgr.RoleSetOut = rbac.NewStringSet("viewer", "editor")
	svc := NewReviewService(f)

	resp := svc.AuthorizedRoles(context.Background(), reviewReq(t, rbac.User{UserID: "jsmith"}))
	if resp.ErrorCode != 0 {
		t.Fatalf("unexpected error: %d %s", resp.ErrorCode, resp.ErrorMessage)
	}
	if resp.ValueSet == nil || !resp.ValueSet.Contains("editor") {
		t.Fatalf("expected valueSet shape: %#v", resp)
	}
	if resp.Values != nil || resp.Entities != nil {
		t.Fatalf("valueSet operation must not populate other shapes: %#v", resp)
	}
}

func TestAuthorizedPermissionUsersIsValueSet(t *testing.T) {
	f := authoritytest.NewFactory()
	f.ReviewMgr.RoleSetOut = rbac.NewStringSet("jsmith")
	svc := NewReviewService(f)

	resp := svc.AuthorizedPermissionUsers(context.Background(), reviewReq(t, rbac.Permission{ObjName: "o", OpName: "read"}))
	if resp.ErrorCode != 0 {
		t.Fatalf("unexpected error: %d %s", resp.ErrorCode, resp.ErrorMessage)
	}
	if resp.ValueSet == nil || !resp.ValueSet.Contains("jsmith") {
		t.Fatalf("expected valueSet shape: %#v", resp)
	}
}

func TestSsdRoleSetCardinalityAnswersOnInputSet(t *testing.T) {
	f := authoritytest.NewFactory()
	f.ReviewMgr.CardOut = 2
	svc := NewReviewService(f)

	resp := svc.SsdRoleSetCardinality(context.Background(), reviewReq(t, rbac.SDSet{Name: "duty", Cardinality: 99}))
	if resp.ErrorCode != 0 {
		t.Fatalf("unexpected error: %d %s", resp.ErrorCode, resp.ErrorMessage)
	}
	got, ok := resp.Entity.(rbac.SDSet)
	if !ok || got.Name != "duty" || got.Cardinality != 2 {
		t.Fatalf("expected input set with stored cardinality, got %#v", resp.Entity)
	}
}

func TestReadUserAttachesActingSession(t *testing.T) {
	f := authoritytest.NewFactory()
	f.ReviewMgr.UserOut = rbac.User{UserID: "jsmith"}
	svc := NewReviewService(f)

	req := reviewReq(t, rbac.User{UserID: "jsmith"})
	req.Session = &rbac.Session{SessionID: "s1", UserID: "root"}
	if resp := svc.ReadUser(context.Background(), req); resp.ErrorCode != 0 {
		t.Fatalf("unexpected error: %d %s", resp.ErrorCode, resp.ErrorMessage)
	}
	if f.ReviewMgr.Session == nil || f.ReviewMgr.Session.UserID != "root" {
		t.Fatalf("acting session not attached: %#v", f.ReviewMgr.Session)
	}
}

func TestReviewErrorPassthrough(t *testing.T) {
	f := authoritytest.NewFactory()
	f.ReviewMgr.Err = rbac.NewSecurityError(rbac.CodeUserNotFound, "user ghost not found")
	svc := NewReviewService(f)

	resp := svc.ReadUser(context.Background(), reviewReq(t, rbac.User{UserID: "ghost"}))
	if resp.ErrorCode != rbac.CodeUserNotFound {
		t.Fatalf("expected code %d, got %d", rbac.CodeUserNotFound, resp.ErrorCode)
	}
	if resp.Entity != nil {
		t.Fatalf("error envelope must carry no payload: %#v", resp)
	}
}
