// Package dispatch routes envelope-carried RBAC operations to the
// authority engine. Each operation unmarshals the request entity, builds
// a per-call authority handle scoped to the request's tenant, invokes the
// engine, and marshals the outcome (success payload or error code pair)
// into a response envelope. No state spans calls.
package dispatch

import (
	"encoding/json"
	"errors"

	"github.com/john77eipe/directory-fortress-enmasse/internal/rbac"
)

// Request is the generic inbound envelope. Entity's concrete type is
// operation-specific by convention; a payload that does not decode into
// the expected type is a client contract violation.
type Request struct {
	ContextID string          `json:"contextId"`
	Entity    json.RawMessage `json:"entity,omitempty"`
	Session   *rbac.Session   `json:"session,omitempty"`
	Value     string          `json:"value,omitempty"`
	Limit     *int            `json:"limit,omitempty"`
}

// Response is the generic outbound envelope. On success exactly one of
// Entity, Entities, Values, ValueSet is populated, matching the
// operation's declared shape; ErrorCode is zero iff no failure occurred.
type Response struct {
	Entity       any            `json:"entity,omitempty"`
	Entities     []any          `json:"entities,omitempty"`
	Values       []string       `json:"values,omitempty"`
	ValueSet     rbac.StringSet `json:"valueSet,omitempty"`
	Session      *rbac.Session  `json:"session,omitempty"`
	Authorized   *bool          `json:"authorized,omitempty"`
	ErrorCode    int            `json:"errorCode"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
}

// entityAs decodes the request entity into the operation's expected type.
func entityAs[T any](req Request) (T, error) {
	var out T
	if len(req.Entity) == 0 {
		return out, rbac.NewSecurityError(rbac.CodeEntityTypeInvalid, "request entity is missing")
	}
	if err := json.Unmarshal(req.Entity, &out); err != nil {
		return out, rbac.NewSecurityError(rbac.CodeEntityTypeInvalid, "request entity does not match operation: %v", err)
	}
	return out, nil
}

// failure converts any authority-call error into an error envelope. A
// *rbac.SecurityError passes its code and message through verbatim;
// anything else is reported as a generic engine failure.
func failure(err error) Response {
	var se *rbac.SecurityError
	if errors.As(err, &se) {
		return Response{ErrorCode: se.Code, ErrorMessage: se.Message}
	}
	return Response{ErrorCode: rbac.CodeEngineFailure, ErrorMessage: err.Error()}
}

// entityList widens a typed slice into the envelope's entities field,
// preserving order.
func entityList[T any](items []T) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}
