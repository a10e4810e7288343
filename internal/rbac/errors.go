package rbac

import "fmt"

// Error ids surfaced by the authority engine. The dispatch layer copies
// them into response envelopes verbatim and never branches on the value.
// Ids are grouped by entity family; 1xx is reserved for failures raised
// before the authority is reached.
const (
	CodeContextInvalid     = 101
	CodeEntityTypeInvalid  = 102
	CodeGrantTargetInvalid = 103
	CodeEngineFailure      = 199

	CodeUserNotFound      = 1001
	CodeUserAlreadyExists = 1002
	CodePasswordInvalid   = 1003
	CodeUserLocked        = 1004
	CodeUserDisabled      = 1005
	CodeSessionInvalid    = 1006

	CodeRoleNotFound       = 2001
	CodeRoleAlreadyExists  = 2002
	CodeAssignExists       = 2003
	CodeAssignNotFound     = 2004
	CodeHierarchyInvalid   = 2005
	CodeHierarchyNotFound  = 2006
	CodeAdminRoleNotFound  = 2101

	CodePermNotFound      = 3001
	CodePermAlreadyExists = 3002
	CodeObjNotFound       = 3003
	CodeObjAlreadyExists  = 3004
	CodeGrantExists       = 3005
	CodeGrantNotFound     = 3006

	CodeSDSetNotFound      = 4001
	CodeSDSetAlreadyExists = 4002
	CodeSDMemberExists     = 4003
	CodeSDMemberNotFound   = 4004
)

// SecurityError is the single failure kind crossing the authority
// boundary: a numeric error id plus a human-readable message.
type SecurityError struct {
	Code    int
	Message string
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("rbac: error %d: %s", e.Code, e.Message)
}

// NewSecurityError builds a SecurityError with a formatted message.
func NewSecurityError(code int, format string, args ...any) *SecurityError {
	return &SecurityError{Code: code, Message: fmt.Sprintf(format, args...)}
}
