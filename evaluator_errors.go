package records

import (
	"errors"
	"fmt"
	"strings"
)

// EvaluationError captures the engine, expression and model type alongside
// the error produced while compiling or running a filter expression.
type EvaluationError struct {
	Engine string
	Expr   string
	Model  string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("records: %s evaluator %s model=%s: %v", e.Engine, describeExpression(e.Expr), e.Model, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}
	var evalErr *EvaluationError
	if errors.As(err, &evalErr) || strings.HasPrefix(err.Error(), "records:") {
		return err
	}
	return fmt.Errorf("records: %s evaluator: %w", engine, err)
}

// wrapEvaluationError fills missing metadata on an existing EvaluationError
// instead of nesting a second one.
func wrapEvaluationError(engine, expr, model string, err error) error {
	if err == nil {
		return nil
	}
	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = engine
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		if evalErr.Model == "" {
			evalErr.Model = model
		}
		return evalErr
	}
	return &EvaluationError{Engine: engine, Expr: expr, Model: model, Err: err}
}
