package blackboard

import (
	"errors"
	"fmt"
	"strings"
)

// ScriptError captures engine metadata alongside the originating error.
type ScriptError struct {
	Engine string
	Expr   string
	Board  string
	Err    error
}

func (e *ScriptError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("blackboard: %s evaluator %s board=%s: %v", e.Engine, describeExpression(e.Expr), e.Board, e.Err)
}

func (e *ScriptError) Unwrap() error {
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

func wrapEngineError(engine string, err error) error {
	if err == nil {
		return nil
	}

	var scriptErr *ScriptError
	if errors.As(err, &scriptErr) {
		return err
	}

	if strings.HasPrefix(err.Error(), "blackboard:") {
		return err
	}
	return fmt.Errorf("blackboard: %s evaluator: %w", engine, err)
}

func wrapScriptError(engine, expr, board string, err error) error {
	if err == nil {
		return nil
	}

	var scriptErr *ScriptError
	if errors.As(err, &scriptErr) {
		if scriptErr.Engine == "" {
			scriptErr.Engine = engine
		}
		if scriptErr.Expr == "" {
			scriptErr.Expr = expr
		}
		if scriptErr.Board == "" {
			scriptErr.Board = board
		}
		return scriptErr
	}

	return &ScriptError{
		Engine: engine,
		Expr:   expr,
		Board:  board,
		Err:    err,
	}
}
