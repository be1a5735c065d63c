package value

import (
	"go/token"

	"github.com/cs-au-dk/cegar/analysis/cfa"

	"github.com/pkg/errors"
)

// ErrUnsupportedExpression is reported for expressions outside the
// supported integer fragment.
var ErrUnsupportedExpression = errors.New("unsupported expression")

func boolValue(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// Evaluate computes the value of an expression in the given state.
// The second result is false if the value is not determined by the state.
func Evaluate(e cfa.Expr, s State) (int64, bool, error) {
	switch e := e.(type) {
	case nil:
		return 0, false, nil
	case cfa.Const:
		return e.Value, true, nil
	case cfa.Var:
		v, found := s.Get(e.Loc)
		return v, found, nil
	case cfa.Nondet:
		return 0, false, nil
	case cfa.Unary:
		x, known, err := Evaluate(e.X, s)
		if err != nil || !known {
			return 0, false, err
		}
		switch e.Op {
		case token.SUB:
			return -x, true, nil
		case token.NOT:
			return boolValue(x == 0), true, nil
		case token.XOR:
			return ^x, true, nil
		}
		return 0, false, errors.Wrapf(ErrUnsupportedExpression, "unary operator %s", e.Op)
	case cfa.Binary:
		return evaluateBinary(e, s)
	}
	return 0, false, errors.Wrapf(ErrUnsupportedExpression, "%T", e)
}

func evaluateBinary(e cfa.Binary, s State) (int64, bool, error) {
	x, xknown, err := Evaluate(e.X, s)
	if err != nil {
		return 0, false, err
	}

	// Short-circuiting operators may be determined by one operand.
	switch e.Op {
	case token.LAND:
		if xknown && x == 0 {
			return 0, true, nil
		}
	case token.LOR:
		if xknown && x != 0 {
			return 1, true, nil
		}
	}

	y, yknown, err := Evaluate(e.Y, s)
	if err != nil {
		return 0, false, err
	}

	switch e.Op {
	case token.LAND:
		if yknown && y == 0 {
			return 0, true, nil
		}
	case token.LOR:
		if yknown && y != 0 {
			return 1, true, nil
		}
	case token.MUL, token.AND:
		if (xknown && x == 0) || (yknown && y == 0) {
			return 0, true, nil
		}
	}

	if !xknown || !yknown {
		return 0, false, nil
	}

	switch e.Op {
	case token.ADD:
		return x + y, true, nil
	case token.SUB:
		return x - y, true, nil
	case token.MUL:
		return x * y, true, nil
	case token.QUO:
		if y == 0 {
			// Division by zero is left undetermined.
			return 0, false, nil
		}
		return x / y, true, nil
	case token.REM:
		if y == 0 {
			return 0, false, nil
		}
		return x % y, true, nil
	case token.AND:
		return x & y, true, nil
	case token.OR:
		return x | y, true, nil
	case token.XOR:
		return x ^ y, true, nil
	case token.AND_NOT:
		return x &^ y, true, nil
	case token.SHL:
		if y < 0 || y >= 64 {
			return 0, false, nil
		}
		return x << uint(y), true, nil
	case token.SHR:
		if y < 0 || y >= 64 {
			return 0, false, nil
		}
		return x >> uint(y), true, nil
	case token.EQL:
		return boolValue(x == y), true, nil
	case token.NEQ:
		return boolValue(x != y), true, nil
	case token.LSS:
		return boolValue(x < y), true, nil
	case token.LEQ:
		return boolValue(x <= y), true, nil
	case token.GTR:
		return boolValue(x > y), true, nil
	case token.GEQ:
		return boolValue(x >= y), true, nil
	case token.LAND:
		return boolValue(x != 0 && y != 0), true, nil
	case token.LOR:
		return boolValue(x != 0 || y != 0), true, nil
	}
	return 0, false, errors.Wrapf(ErrUnsupportedExpression, "binary operator %s", e.Op)
}
