package expressions

import "context"

// Engine evaluates expressions during a saga run.
// Three implementations: CEL (condition probes), Expr (assertion machine
// expressions), GoJQ (evidence extraction by pathHint).
type Engine interface {
	Name() string
	Evaluate(ctx context.Context, expression string, data map[string]any) (any, error)
}
