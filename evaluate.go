package blackboard

import (
	"errors"
	"fmt"
	"time"
)

var ErrNoEvaluator = errors.New("blackboard: evaluator not configured")

// Evaluate executes expr against this blackboard using the configured
// evaluator, falling back to the expr-lang engine when none was set. Scripts
// see every visible entry as a variable and may read and write entries
// through the get, set and has host functions.
func (b *Blackboard) Evaluate(expr string) (Result, error) {
	return b.EvaluateWith(ScriptContext{}, expr)
}

// EvaluateWith executes expr using ctx, defaulting ctx.Board to this
// blackboard when unset.
func (b *Blackboard) EvaluateWith(ctx ScriptContext, expr string) (Result, error) {
	if expr == "" {
		return Result{}, fmt.Errorf("expression must not be empty")
	}
	evaluator, err := b.resolveEvaluator()
	if err != nil {
		return Result{}, err
	}
	ctx = ctx.withDefaultBoard(b).withDefaultNow().withDefaultMaps()
	engine := evaluatorEngineName(evaluator)
	start := time.Now()
	value, evalErr := evaluator.Evaluate(ctx, expr)
	duration := time.Since(start)
	evalErr = wrapScriptError(engine, expr, ctx.boardLabel(), evalErr)
	b.scriptLogger().LogScript(ScriptLogEvent{
		Engine:   engine,
		Expr:     expr,
		Board:    ctx.boardLabel(),
		Duration: duration,
		Err:      evalErr,
	})
	if evalErr != nil {
		return Result{}, evalErr
	}
	return Result{Value: value}, nil
}

// resolveEvaluator returns the configured evaluator, installing the default
// expr engine on first use. Guarded by the store mutex since Evaluate may be
// called from multiple nodes at once.
func (b *Blackboard) resolveEvaluator() (Evaluator, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cfg.evaluator != nil {
		return b.cfg.evaluator, nil
	}
	var exprOpts []ExprEvaluatorOption
	if cache := b.cfg.programCache; cache != nil {
		exprOpts = append(exprOpts, ExprWithProgramCache(cache))
	}
	if registry := b.cfg.functions; registry != nil {
		exprOpts = append(exprOpts, ExprWithFunctions(registry))
	}
	defaultEvaluator := NewExprEvaluator(exprOpts...)
	if defaultEvaluator == nil {
		return nil, ErrNoEvaluator
	}
	b.cfg.evaluator = defaultEvaluator
	return defaultEvaluator, nil
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	switch fmt.Sprintf("%T", e) {
	case "*blackboard.exprEvaluator":
		return "expr"
	case "*blackboard.celEvaluator":
		return "cel"
	case "*blackboard.jsEvaluator":
		return "js"
	default:
		return "custom"
	}
}
