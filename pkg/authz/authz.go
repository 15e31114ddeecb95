/*
Copyright 2025 Jordi Gil.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package authz evaluates permission decisions (who may sign, who may
// transition a sprint, who may delete a work item) against a Rego policy,
// backing the Permission error kind at the REST boundary.
package authz

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Request describes one permission check.
type Request struct {
	Subject  string // the authenticated user ID
	Action   string // e.g. "work_item:delete", "sprint:start", "signature:create"
	Resource string // the entity ID being acted on
	Roles    []string
}

// Decision is the outcome of evaluating a Request against policy.
type Decision struct {
	Allowed bool
	Reason  string
}

// defaultPolicy grants an action when the subject's roles include one
// listed under the action's allow-list in input.roles_by_action, or when
// the subject holds the "admin" role.
const defaultPolicy = `
package almforge.authz

default allow = false

allow {
	input.roles[_] == "admin"
}

allow {
	allowed_roles := input.roles_by_action[input.action]
	allowed_roles[_] == input.roles[_]
}
`

// Evaluator evaluates Requests against a compiled Rego policy.
type Evaluator struct {
	query        rego.PreparedEvalQuery
	rolesByAction map[string][]string
}

// DefaultRolesByAction maps an action name to the roles permitted to
// perform it. Defaults cover the core's write paths; callers may override
// them by passing their own map to NewEvaluator.
func DefaultRolesByAction() map[string][]string {
	return map[string][]string{
		"work_item:delete":   {"project_lead", "admin"},
		"work_item:update":   {"project_lead", "contributor", "admin"},
		"signature:create":   {"approver", "project_lead", "admin"},
		"signature:invalidate": {"approver", "project_lead", "admin"},
		"sprint:start":       {"project_lead", "admin"},
		"sprint:close":       {"project_lead", "admin"},
		"resource:allocate":  {"resource_manager", "project_lead", "admin"},
	}
}

// NewEvaluator compiles the default policy. rolesByAction may be nil to
// use DefaultRolesByAction.
func NewEvaluator(ctx context.Context, rolesByAction map[string][]string) (*Evaluator, error) {
	if rolesByAction == nil {
		rolesByAction = DefaultRolesByAction()
	}

	r := rego.New(
		rego.Query("data.almforge.authz.allow"),
		rego.Module("authz.rego", defaultPolicy),
	)
	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile authorization policy: %w", err)
	}

	return &Evaluator{query: query, rolesByAction: rolesByAction}, nil
}

// Evaluate decides whether req.Subject may perform req.Action.
func (e *Evaluator) Evaluate(ctx context.Context, req Request) (Decision, error) {
	input := map[string]interface{}{
		"action":          req.Action,
		"roles":           req.Roles,
		"roles_by_action": e.rolesByAction,
	}

	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return Decision{}, fmt.Errorf("evaluate authorization policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return Decision{Allowed: false, Reason: "policy produced no result"}, nil
	}

	allowed, _ := results[0].Expressions[0].Value.(bool)
	if !allowed {
		return Decision{Allowed: false, Reason: fmt.Sprintf("role set %v is not permitted to perform %q", req.Roles, req.Action)}, nil
	}
	return Decision{Allowed: true}, nil
}
