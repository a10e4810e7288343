package httpapi

import (
	"context"
	"net/http"

	"github.com/john77eipe/directory-fortress-enmasse/internal/dispatch"
	"github.com/john77eipe/directory-fortress-enmasse/internal/obs"
)

type opFunc func(context.Context, dispatch.Request) dispatch.Response

func (a *API) registerOps() {
	register := func(domain string, ops map[string]opFunc) {
		for op, fn := range ops {
			a.mux.HandleFunc("/v1/"+domain+"/"+op, a.handleOp(domain, op, fn))
		}
	}
	register("access", a.accessOps())
	register("admin", a.adminOps())
	register("review", a.reviewOps())
}

// handleOp adapts one dispatch operation to HTTP. Every dispatched call
// answers 200; failures live in the envelope's errorCode.
func (a *API) handleOp(domain, op string, fn opFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		var req dispatch.Request
		if err := decodeJSON(w, r, &req); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		resp := fn(r.Context(), req)
		obs.ObserveDispatch(domain, op, resp.ErrorCode)
		writeJSON(w, http.StatusOK, resp)
	}
}

func (a *API) accessOps() map[string]opFunc {
	return map[string]opFunc{
		"authenticate":           a.access.Authenticate,
		"createSession":          a.access.CreateSession,
		"createSessionTrusted":   a.access.CreateSessionTrusted,
		"checkAccess":            a.access.CheckAccess,
		"sessionPermissions":     a.access.SessionPermissions,
		"sessionRoles":           a.access.SessionRoles,
		"authorizedSessionRoles": a.access.AuthorizedSessionRoles,
		"addActiveRole":          a.access.AddActiveRole,
		"dropActiveRole":         a.access.DropActiveRole,
		"getUserId":              a.access.GetUserID,
		"getUser":                a.access.GetUser,
	}
}

func (a *API) adminOps() map[string]opFunc {
	return map[string]opFunc{
		"addUser":           a.admin.AddUser,
		"updateUser":        a.admin.UpdateUser,
		"deleteUser":        a.admin.DeleteUser,
		"disableUser":       a.admin.DisableUser,
		"changePassword":    a.admin.ChangePassword,
		"resetPassword":     a.admin.ResetPassword,
		"lockUserAccount":   a.admin.LockUserAccount,
		"unlockUserAccount": a.admin.UnlockUserAccount,

		"addRole":      a.admin.AddRole,
		"updateRole":   a.admin.UpdateRole,
		"deleteRole":   a.admin.DeleteRole,
		"assignUser":   a.admin.AssignUser,
		"deassignUser": a.admin.DeassignUser,

		"addPermission":    a.admin.AddPermission,
		"updatePermission": a.admin.UpdatePermission,
		"deletePermission": a.admin.DeletePermission,
		"addPermObj":       a.admin.AddPermObj,
		"updatePermObj":    a.admin.UpdatePermObj,
		"deletePermObj":    a.admin.DeletePermObj,

		"grant":      a.admin.Grant,
		"revoke":     a.admin.Revoke,
		"grantUser":  a.admin.GrantUser,
		"revokeUser": a.admin.RevokeUser,

		"addDescendant":     a.admin.AddDescendant,
		"addAscendant":      a.admin.AddAscendant,
		"addInheritance":    a.admin.AddInheritance,
		"deleteInheritance": a.admin.DeleteInheritance,

		"createSsdSet":         a.admin.CreateSsdSet,
		"updateSsdSet":         a.admin.UpdateSsdSet,
		"deleteSsdSet":         a.admin.DeleteSsdSet,
		"addSsdRoleMember":     a.admin.AddSsdRoleMember,
		"deleteSsdRoleMember":  a.admin.DeleteSsdRoleMember,
		"setSsdSetCardinality": a.admin.SetSsdSetCardinality,
		"createDsdSet":         a.admin.CreateDsdSet,
		"updateDsdSet":         a.admin.UpdateDsdSet,
		"deleteDsdSet":         a.admin.DeleteDsdSet,
		"addDsdRoleMember":     a.admin.AddDsdRoleMember,
		"deleteDsdRoleMember":  a.admin.DeleteDsdRoleMember,
		"setDsdSetCardinality": a.admin.SetDsdSetCardinality,
	}
}

func (a *API) reviewOps() map[string]opFunc {
	return map[string]opFunc{
		"readUser":        a.review.ReadUser,
		"findUsers":       a.review.FindUsers,
		"readRole":        a.review.ReadRole,
		"findRoles":       a.review.FindRoles,
		"assignedUsers":   a.review.AssignedUsers,
		"assignedRoles":   a.review.AssignedRoles,
		"authorizedUsers": a.review.AuthorizedUsers,
		"authorizedRoles": a.review.AuthorizedRoles,

		"readPermission":            a.review.ReadPermission,
		"findPermissions":           a.review.FindPermissions,
		"readPermObj":               a.review.ReadPermObj,
		"findPermObjs":              a.review.FindPermObjs,
		"permissionRoles":           a.review.PermissionRoles,
		"authorizedPermissionRoles": a.review.AuthorizedPermissionRoles,
		"permissionUsers":           a.review.PermissionUsers,
		"authorizedPermissionUsers": a.review.AuthorizedPermissionUsers,
		"userPermissions":           a.review.UserPermissions,
		"rolePermissions":           a.review.RolePermissions,

		"ssdRoleSets":           a.review.SsdRoleSets,
		"ssdRoleSet":            a.review.SsdRoleSet,
		"ssdRoleSetRoles":       a.review.SsdRoleSetRoles,
		"ssdRoleSetCardinality": a.review.SsdRoleSetCardinality,
		"ssdSets":               a.review.SsdSets,
		"dsdRoleSets":           a.review.DsdRoleSets,
		"dsdRoleSet":            a.review.DsdRoleSet,
		"dsdRoleSetRoles":       a.review.DsdRoleSetRoles,
		"dsdRoleSetCardinality": a.review.DsdRoleSetCardinality,
		"dsdSets":               a.review.DsdSets,
	}
}
