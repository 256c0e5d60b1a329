package order

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// settledExpr is the single definition of a settled order. Every dispatch
// path evaluates it. Credit orders settle like any other order, through a
// recorded payment or cash receipt.
const settledExpr = `payment_status == "completed" ||
	(advance_percent == 100 && advance_payment_status == "paid") ||
	(advance_payment_status == "paid" && remaining_payment_status in ["paid", "cash_received"])`

// Settlement evaluates the compiled settlement predicate.
type Settlement struct {
	program cel.Program
}

// NewSettlement compiles the predicate once.
func NewSettlement() (*Settlement, error) {
	env, err := cel.NewEnv(
		cel.Variable("payment_status", cel.StringType),
		cel.Variable("advance_percent", cel.IntType),
		cel.Variable("advance_payment_status", cel.StringType),
		cel.Variable("remaining_payment_status", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("settlement env: %w", err)
	}
	ast, iss := env.Compile(settledExpr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("compile settlement predicate: %w", iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("settlement predicate must be boolean, got %v", ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("settlement program: %w", err)
	}
	return &Settlement{program: prg}, nil
}

// MustSettlement is NewSettlement for wiring code; the expression is a constant.
func MustSettlement() *Settlement {
	s, err := NewSettlement()
	if err != nil {
		panic(err)
	}
	return s
}

// Settled reports whether o may be dispatched.
func (s *Settlement) Settled(o *Order) (bool, error) {
	out, _, err := s.program.Eval(map[string]any{
		"payment_status":           string(o.PaymentStatus),
		"advance_percent":          int64(o.AdvancePercent),
		"advance_payment_status":   string(o.AdvancePaymentStatus),
		"remaining_payment_status": string(o.RemainingPaymentStatus),
	})
	if err != nil {
		return false, fmt.Errorf("evaluate settlement: %w", err)
	}
	settled, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("settlement predicate returned %T", out.Value())
	}
	return settled, nil
}
