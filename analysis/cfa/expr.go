package cfa

import (
	"fmt"
	"go/token"
	"strconv"

	"github.com/cs-au-dk/cegar/analysis/memloc"
)

// Expr is a side-effect free integer expression.
// Boolean values are encoded as 0 (false) and 1 (true).
type Expr interface {
	String() string
	// ForEachVar calls `do` for every variable read by the expression.
	ForEachVar(do func(memloc.MemoryLocation))
	exprTag()
}

type (
	// Const is an integer literal.
	Const struct {
		Value int64
	}

	// Var reads the value of a memory location.
	Var struct {
		Loc memloc.MemoryLocation
	}

	// Nondet evaluates to an arbitrary value.
	Nondet struct{}

	// Unary applies token.SUB (negation), token.NOT (logical negation) or
	// token.XOR (bitwise complement) to an operand.
	Unary struct {
		Op token.Token
		X  Expr
	}

	// Binary applies an arithmetic, comparison or logical operator.
	Binary struct {
		Op   token.Token
		X, Y Expr
	}
)

func (Const) exprTag()  {}
func (Var) exprTag()    {}
func (Nondet) exprTag() {}
func (Unary) exprTag()  {}
func (Binary) exprTag() {}

func (c Const) String() string  { return strconv.FormatInt(c.Value, 10) }
func (v Var) String() string    { return v.Loc.String() }
func (Nondet) String() string   { return "nondet()" }
func (u Unary) String() string  { return u.Op.String() + u.X.String() }
func (b Binary) String() string { return fmt.Sprintf("(%s %s %s)", b.X, b.Op, b.Y) }

func (Const) ForEachVar(func(memloc.MemoryLocation))    {}
func (v Var) ForEachVar(do func(memloc.MemoryLocation)) { do(v.Loc) }
func (Nondet) ForEachVar(func(memloc.MemoryLocation))   {}
func (u Unary) ForEachVar(do func(memloc.MemoryLocation)) {
	u.X.ForEachVar(do)
}
func (b Binary) ForEachVar(do func(memloc.MemoryLocation)) {
	b.X.ForEachVar(do)
	b.Y.ForEachVar(do)
}

// Int creates an integer literal.
func Int(v int64) Expr {
	return Const{v}
}

// Bool creates the literal encoding of a boolean.
func Bool(b bool) Expr {
	if b {
		return Const{1}
	}
	return Const{0}
}

// Local reads the variable `name` of function `fun`.
func Local(fun, name string) Expr {
	return Var{memloc.Local(fun, name)}
}

// Global reads the global variable `name`.
func Global(name string) Expr {
	return Var{memloc.Global(name)}
}

// Bin creates a binary expression.
func Bin(op token.Token, x, y Expr) Expr {
	return Binary{op, x, y}
}

// Eq creates an equality test.
func Eq(x, y Expr) Expr {
	return Binary{token.EQL, x, y}
}

// Not creates a logical negation.
func Not(x Expr) Expr {
	return Unary{token.NOT, x}
}

// Vars collects the set of variables read by an expression.
func Vars(e Expr) memloc.Set {
	s := memloc.NewSet()
	if e == nil {
		return s
	}
	e.ForEachVar(func(l memloc.MemoryLocation) {
		s = s.Add(l)
	})
	return s
}

// IsComparison checks whether the operator produces a boolean.
func IsComparison(op token.Token) bool {
	switch op {
	case token.EQL, token.NEQ, token.LSS, token.LEQ, token.GTR, token.GEQ,
		token.LAND, token.LOR:
		return true
	}
	return false
}
