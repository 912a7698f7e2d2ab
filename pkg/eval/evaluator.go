// Package eval evaluates automatic-answer expressions and child-workflow
// activation conditions.
//
// The grammar is whatever expr-lang accepts, but the engine only relies on
// variable lookup by question id, literals, and comparison/boolean operators.
// Expressions are side-effect-free and non-Turing-complete; no general
// scripting language is embedded.
package eval

import (
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"
)

// Status is the three-way outcome of resolving an expression.
type Status int

const (
	// Resolved means the expression produced a usable value.
	Resolved Status = iota
	// NotResolvable means the expression references a not-yet-answered id or
	// produced a value of the wrong shape. The question falls back to manual
	// input; this is not an error.
	NotResolvable
	// Malformed means the expression itself does not compile. Callers handle
	// it like NotResolvable but may want to log it differently.
	Malformed
)

type compiled struct {
	program *vm.Program
	idents  []string // identifiers the expression reads
}

// Evaluator compiles expressions once and reuses the programs for the life of
// the session.
type Evaluator struct {
	mu    sync.RWMutex
	cache map[string]*compiled
}

// New creates an Evaluator with an initialized program cache.
func New() *Evaluator {
	return &Evaluator{cache: make(map[string]*compiled)}
}

// Resolve runs expression against env (question id -> latest answer value).
// An expression referencing an id with no committed answer is NotResolvable:
// it may resolve later, once that question is answered. The returned error is
// only set for Malformed and carries the compile diagnostic.
func (e *Evaluator) Resolve(expression string, env map[string]any) (any, Status, error) {
	c, err := e.compile(expression)
	if err != nil {
		return nil, Malformed, err
	}

	// expr treats a missing map key as nil rather than failing, and nil
	// compares equal-to-nothing instead of erroring. Checking coverage up
	// front keeps "not answered yet" from masquerading as a real result.
	for _, ident := range c.idents {
		if _, ok := env[ident]; !ok {
			return nil, NotResolvable, nil
		}
	}

	result, err := expr.Run(c.program, env)
	if err != nil {
		return nil, NotResolvable, nil
	}
	if result == nil {
		return nil, NotResolvable, nil
	}
	return result, Resolved, nil
}

// Condition evaluates a gating condition, coercing the result to boolean.
// Any failure, compile or runtime, yields false: a gating condition must
// never block the outer flow.
func (e *Evaluator) Condition(expression string, env map[string]any) bool {
	if expression == "" {
		return true
	}
	value, status, _ := e.Resolve(expression, env)
	if status != Resolved {
		return false
	}
	b, ok := value.(bool)
	return ok && b
}

// compile returns a cached program, compiling on first use. Programs are
// compiled without a typed environment; identifier coverage is checked per
// call instead.
func (e *Evaluator) compile(expression string) (*compiled, error) {
	e.mu.RLock()
	c, ok := e.cache[expression]
	e.mu.RUnlock()
	if ok {
		return c, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if c, ok = e.cache[expression]; ok {
		return c, nil
	}

	program, err := expr.Compile(expression, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, err
	}

	tree, err := parser.Parse(expression)
	if err != nil {
		return nil, err
	}
	collector := &identCollector{seen: make(map[string]struct{})}
	ast.Walk(&tree.Node, collector)

	c = &compiled{program: program, idents: collector.idents}
	e.cache[expression] = c
	return c, nil
}

type identCollector struct {
	idents []string
	seen   map[string]struct{}
}

func (v *identCollector) Visit(node *ast.Node) {
	ident, ok := (*node).(*ast.IdentifierNode)
	if !ok {
		return
	}
	if _, dup := v.seen[ident.Value]; dup {
		return
	}
	v.seen[ident.Value] = struct{}{}
	v.idents = append(v.idents, ident.Value)
}
