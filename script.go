package blackboard

import (
	"fmt"
	"time"
)

// ScriptContext carries the inputs a script evaluation runs against. The
// script environment exposes every entry visible from Board plus the get,
// set and has host functions, so scripts read and write the same store the
// surrounding nodes do.
type ScriptContext struct {
	Board    *Blackboard
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
}

func (ctx ScriptContext) withDefaultNow() ScriptContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx ScriptContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx ScriptContext) withDefaultMaps() ScriptContext {
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx ScriptContext) withDefaultBoard(board *Blackboard) ScriptContext {
	if ctx.Board == nil {
		ctx.Board = board
	}
	return ctx
}

func (ctx ScriptContext) boardLabel() string {
	if ctx.Board == nil {
		return "detached"
	}
	return ctx.Board.id.String()
}

func (ctx ScriptContext) snapshot() map[string]any {
	if ctx.Board == nil {
		return map[string]any{}
	}
	return ctx.Board.Snapshot()
}

// hostGet reads a key through the remap chain, failing the script on a
// missing key so absence is never silently confused with nil.
func (ctx ScriptContext) hostGet() func(key string) (any, error) {
	return func(key string) (any, error) {
		if ctx.Board == nil {
			return nil, fmt.Errorf("blackboard: script has no board")
		}
		value, ok := ctx.Board.TryGetValue(key)
		if !ok {
			return nil, &MissingKeyError{Key: key}
		}
		return value.Interface(), nil
	}
}

func (ctx ScriptContext) hostHas() func(key string) bool {
	return func(key string) bool {
		if ctx.Board == nil {
			return false
		}
		_, ok := ctx.Board.TryGetValue(key)
		return ok
	}
}

// hostSet writes through SetAny so port type locks apply to script writes
// exactly as they do to node writes. It returns the written value so
// assignments compose inside expressions.
func (ctx ScriptContext) hostSet() func(key string, value any) (any, error) {
	return func(key string, value any) (any, error) {
		if ctx.Board == nil {
			return nil, fmt.Errorf("blackboard: script has no board")
		}
		if err := ctx.Board.SetAny(key, value); err != nil {
			return nil, err
		}
		return value, nil
	}
}

// Evaluator executes script expressions against a blackboard context.
type Evaluator interface {
	Evaluate(ctx ScriptContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledScript, error)
}

// CompiledScript represents a reusable script program.
type CompiledScript interface {
	Evaluate(ctx ScriptContext) (any, error)
}

// CompileOption configures evaluator compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct{}

type compileOptionFunc func(*compileConfig)

func (f compileOptionFunc) applyCompileOption(cfg *compileConfig) {
	if f != nil {
		f(cfg)
	}
}

// Result stores the value produced by a script run.
type Result struct {
	Value any
}

// Option configures a blackboard at construction time.
type Option func(*boardConfig)

type boardConfig struct {
	evaluator    Evaluator
	programCache ProgramCache
	functions    *FunctionRegistry
	logger       ScriptLogger
}

func applyOptions(opts []Option) boardConfig {
	cfg := boardConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithEvaluator configures the script evaluator used by Evaluate.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *boardConfig) {
		cfg.evaluator = e
	}
}

func (b *Blackboard) scriptLogger() ScriptLogger {
	if b.cfg.logger != nil {
		return b.cfg.logger
	}
	return noopScriptLogger{}
}
