// Package policy evaluates inbound tracking events before they reach
// storage.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Engine is the OPA admission engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new admission engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.track_policy.decision"),
		rego.Module("track_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate checks the admission policy for one event.
// Input is a map with keys: kind, user_key, subject.
// Returns: decision (allow, block), error.
func (e *Engine) Evaluate(ctx context.Context, input interface{}) (string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		// The policy is expected to define a default decision.
		return "allow", nil
	}

	if s, ok := results[0].Expressions[0].Value.(string); ok {
		return s, nil
	}
	return "allow", nil
}

// DefaultPolicy is the default admission policy content.
const DefaultPolicy = `
package track_policy

default decision = "allow"

# Internal kinds are never accepted from clients
decision = "block" {
	startswith(input.kind, "internal.")
}

# Example: block a banned principal
decision = "block" {
	input.user_key == "blocked"
}
`
