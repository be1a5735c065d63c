package value

import (
	"go/token"

	"github.com/cs-au-dk/cegar/analysis/cfa"
	"github.com/cs-au-dk/cegar/analysis/memloc"

	"github.com/pkg/errors"
)

// assign binds the location to the value of the expression, or forgets it
// if the value is undetermined.
func assign(s State, l memloc.MemoryLocation, e cfa.Expr) (State, error) {
	v, known, err := Evaluate(e, s)
	if err != nil {
		return s, err
	}
	if !known {
		return s.Forget(l), nil
	}
	return s.Assign(l, v), nil
}

// Post computes the strongest explicit-value postcondition of a state along
// an edge. The boolean result is false if the edge cannot be taken from the
// state.
func Post(s State, e *cfa.Edge) (State, bool, error) {
	switch e.Kind {
	case cfa.BlankEdge:
		return s, true, nil

	case cfa.DeclarationEdge, cfa.StatementEdge:
		if e.Lhs == nil {
			return s, true, nil
		}
		s, err := assign(s, *e.Lhs, e.Expr)
		return s, err == nil, err

	case cfa.AssumeEdge:
		return assume(s, e.Expr, e.Truth)

	case cfa.FunctionCallEdge:
		// Arguments are evaluated in the caller before any parameter is bound.
		type binding struct {
			param memloc.MemoryLocation
			value int64
			known bool
		}
		bindings := make([]binding, 0, len(e.Args))
		for i, arg := range e.Args {
			v, known, err := Evaluate(arg, s)
			if err != nil {
				return s, false, err
			}
			bindings = append(bindings, binding{e.Callee.Params[i], v, known})
		}
		for _, b := range bindings {
			if b.known {
				s = s.Assign(b.param, b.value)
			} else {
				s = s.Forget(b.param)
			}
		}
		return s, true, nil

	case cfa.ReturnStatementEdge:
		if e.Expr == nil {
			return s, true, nil
		}
		s, err := assign(s, cfa.ReturnVariable(e.Function()), e.Expr)
		return s, err == nil, err

	case cfa.FunctionReturnEdge:
		if e.Lhs != nil {
			ret, known := s.Get(cfa.ReturnVariable(e.Callee.Name))
			s = s.DropFrame(e.Callee.Name)
			if known {
				s = s.Assign(*e.Lhs, ret)
			} else {
				s = s.Forget(*e.Lhs)
			}
			return s, true, nil
		}
		return s.DropFrame(e.Callee.Name), true, nil

	case cfa.MultiEdge:
		for _, inner := range e.Edges {
			var ok bool
			var err error
			if s, ok, err = Post(s, inner); !ok || err != nil {
				return s, ok, err
			}
		}
		return s, true, nil
	}

	return s, false, errors.Errorf("unsupported edge kind %s", e.Kind)
}

// assume restricts the state to executions where cond evaluates to truth.
// Undetermined conditions of the shape `x == c` are used to learn the value
// of x.
func assume(s State, cond cfa.Expr, truth bool) (State, bool, error) {
	v, known, err := Evaluate(cond, s)
	if err != nil {
		return s, false, err
	}
	if known {
		return s, (v != 0) == truth, nil
	}

	switch c := cond.(type) {
	case cfa.Var:
		if !truth {
			return s.Assign(c.Loc, 0), true, nil
		}
	case cfa.Unary:
		if c.Op == token.NOT {
			return assume(s, c.X, !truth)
		}
	case cfa.Binary:
		if (c.Op == token.EQL && truth) || (c.Op == token.NEQ && !truth) {
			if l, ok := c.X.(cfa.Var); ok {
				if y, known, _ := Evaluate(c.Y, s); known {
					return s.Assign(l.Loc, y), true, nil
				}
			}
			if l, ok := c.Y.(cfa.Var); ok {
				if x, known, _ := Evaluate(c.X, s); known {
					return s.Assign(l.Loc, x), true, nil
				}
			}
		}
		if (c.Op == token.LAND && truth) || (c.Op == token.LOR && !truth) {
			// Both conjuncts must hold.
			s, ok, err := assume(s, c.X, truth)
			if !ok || err != nil {
				return s, ok, err
			}
			return assume(s, c.Y, truth)
		}
	}

	return s, true, nil
}
