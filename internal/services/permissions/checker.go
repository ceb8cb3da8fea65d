package permissions

import (
	"errors"
	"fmt"

	"github.com/google/cel-go/cel"
)

// ErrPermissionDenied is returned when a principal lacks a required permission
var ErrPermissionDenied = errors.New("permission denied")

// Checker evaluates a CEL policy that decides whether a principal holds
// a permission. The policy sees two variables: principal (a map with id,
// is_superuser and permissions) and permission (the required name).
type Checker struct {
	program cel.Program
	policy  string
}

// NewChecker compiles the policy expression
func NewChecker(policy string) (*Checker, error) {
	env, err := cel.NewEnv(
		cel.Variable("principal", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("permission", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	ast, issues := env.Compile(policy)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile policy: %w", issues.Err())
	}
	// principal fields are dyn, so a bare field access type-checks as dyn
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("policy must return boolean, got: %s", out)
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return &Checker{program: program, policy: policy}, nil
}

// Policy returns the source of the compiled policy
func (c *Checker) Policy() string {
	return c.policy
}

// HasPermission reports whether the principal holds the permission
func (c *Checker) HasPermission(p *Principal, permission string) (bool, error) {
	if p == nil {
		p = Anonymous
	}

	result, _, err := c.program.Eval(map[string]interface{}{
		"principal":  p.toMap(),
		"permission": permission,
	})
	if err != nil {
		return false, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	allowed, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("policy did not evaluate to boolean, got: %T", result.Value())
	}
	return allowed, nil
}

// Require returns ErrPermissionDenied unless the principal holds every permission
func (c *Checker) Require(p *Principal, permissions ...string) error {
	for _, perm := range permissions {
		allowed, err := c.HasPermission(p, perm)
		if err != nil {
			return err
		}
		if !allowed {
			return fmt.Errorf("%w: %s requires %s", ErrPermissionDenied, principalID(p), perm)
		}
	}
	return nil
}

func principalID(p *Principal) string {
	if p == nil {
		return Anonymous.ID
	}
	return p.ID
}
