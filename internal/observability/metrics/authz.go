package metrics

import (
	obserrors "github.com/shepherd-church/shepherd/internal/observability/errors"
	"github.com/shepherd-church/shepherd/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultAllow    = "allow"
	ResultDeny     = "deny"
	ResultSuccess  = "success"
	ResultRejected = "rejected"
	ResultError    = "error"
	ResultNoop     = "noop"
)

// Decision describes one authorization check made at a request boundary.
type Decision struct {
	Resource string
	Action   string
	Role     string // empty when no principal was resolved
	Allowed  bool
}

// EmitDecision counts an authorization decision.
func EmitDecision(sink statsd.Sink, d Decision) {
	if sink == nil {
		return
	}
	result := ResultDeny
	if d.Allowed {
		result = ResultAllow
	}
	role := d.Role
	if role == "" {
		role = "anonymous"
	}
	sink.Count("authz.decision", 1, map[string]string{
		"resource": d.Resource,
		"action":   d.Action,
		"role":     role,
		"result":   result,
	})
}

// AccountChange describes the outcome of a role assignment or activation change.
type AccountChange struct {
	Event  string
	Result string
	Err    error
}

// EmitAccountChange counts an account change attempt.
func EmitAccountChange(sink statsd.Sink, in AccountChange) {
	if sink == nil {
		return
	}
	tags := map[string]string{
		"event":  in.Event,
		"result": in.Result,
	}
	if in.Err != nil && in.Result != ResultSuccess {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}
	sink.Count("role.assign", 1, tags)
}
