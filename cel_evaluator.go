package blackboard

import (
	"fmt"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/uuid"
)

// CELEvaluatorOption configures the CEL evaluator.
type CELEvaluatorOption func(*celEvaluator)

// CELWithProgramCache wires a ProgramCache into the CEL evaluator.
func CELWithProgramCache(cache ProgramCache) CELEvaluatorOption {
	return func(e *celEvaluator) {
		e.cache = cache
	}
}

// CELWithFunctions wires a FunctionRegistry into the CEL evaluator.
func CELWithFunctions(registry *FunctionRegistry) CELEvaluatorOption {
	return func(e *celEvaluator) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

// celProgram bundles a compiled program with the board its host functions
// were bound against. A cached program is reused only for the same board.
type celProgram struct {
	env     *celgo.Env
	program celgo.Program
	board   uuid.UUID
}

type celEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewCELEvaluator constructs an Evaluator backed by cel-go.
func NewCELEvaluator(opts ...CELEvaluatorOption) Evaluator {
	e := &celEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *celEvaluator) Evaluate(ctx ScriptContext, expression string) (any, error) {
	if expression == "" {
		return nil, fmt.Errorf("expression must not be empty")
	}
	ctx = ctx.withDefaultNow().withDefaultMaps()
	snapshot := ctx.snapshot()
	program, err := e.loadOrCompile(ctx, expression, snapshot)
	if err != nil {
		return nil, err
	}
	out, _, err := program.program.Eval(e.activation(ctx, snapshot))
	if err != nil {
		return nil, err
	}
	return out.Value(), nil
}

func (e *celEvaluator) Compile(expression string, _ ...CompileOption) (CompiledScript, error) {
	if expression == "" {
		return nil, fmt.Errorf("expression must not be empty")
	}
	return &celCompiledScript{
		evaluator:  e,
		expression: expression,
	}, nil
}

func (e *celEvaluator) loadOrCompile(ctx ScriptContext, expression string, snapshot map[string]any) (*celProgram, error) {
	if snapshot == nil {
		snapshot = map[string]any{}
	}
	board := boardID(ctx)
	if e.cache != nil {
		if cached, ok := e.cache.Get(expression); ok {
			if program, ok := cached.(*celProgram); ok && program.board == board {
				return program, nil
			}
		}
	}

	env, err := e.buildEnv(ctx, snapshot)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Parse(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	checked, issues := env.Check(ast)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	prg, err := env.Program(checked)
	if err != nil {
		return nil, err
	}

	bundle := &celProgram{
		env:     env,
		program: prg,
		board:   board,
	}
	if e.cache != nil {
		e.cache.Set(expression, bundle)
	}
	return bundle, nil
}

func (e *celEvaluator) buildEnv(ctx ScriptContext, snapshot map[string]any) (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("args", celgo.DynType),
		celgo.Variable("metadata", celgo.DynType),
		celgo.Function("get", celgo.Overload(
			"get_string",
			[]*celgo.Type{celgo.StringType},
			celgo.DynType,
			celgo.UnaryBinding(e.getBinding(ctx)),
		)),
		celgo.Function("has_key", celgo.Overload(
			"has_key_string",
			[]*celgo.Type{celgo.StringType},
			celgo.BoolType,
			celgo.UnaryBinding(e.hasBinding(ctx)),
		)),
		celgo.Function("set", celgo.Overload(
			"set_string_dyn",
			[]*celgo.Type{celgo.StringType, celgo.DynType},
			celgo.DynType,
			celgo.BinaryBinding(e.setBinding(ctx)),
		)),
	}
	if e.registry != nil {
		opts = append(opts, celgo.Function("call", celgo.Overload(
			"call_string_dyn",
			[]*celgo.Type{celgo.StringType, celgo.DynType},
			celgo.DynType,
			celgo.BinaryBinding(e.callBinding()),
		)))
	}
	for key := range snapshot {
		opts = append(opts, celgo.Variable(key, celgo.DynType))
	}
	return celgo.NewEnv(opts...)
}

func (e *celEvaluator) activation(ctx ScriptContext, snapshot map[string]any) map[string]any {
	activation := map[string]any{
		"now":      ctx.timestamp(),
		"args":     ctx.Args,
		"metadata": ctx.Metadata,
	}
	for key, value := range snapshot {
		activation[key] = value
	}
	return activation
}

type celCompiledScript struct {
	evaluator  *celEvaluator
	expression string
}

func (s *celCompiledScript) Evaluate(ctx ScriptContext) (any, error) {
	if s.evaluator == nil {
		return nil, fmt.Errorf("cel compiled script missing evaluator")
	}
	ctx = ctx.withDefaultNow().withDefaultMaps()
	snapshot := ctx.snapshot()
	program, err := s.evaluator.loadOrCompile(ctx, s.expression, snapshot)
	if err != nil {
		return nil, err
	}
	out, _, err := program.program.Eval(s.evaluator.activation(ctx, snapshot))
	if err != nil {
		return nil, err
	}
	return out.Value(), nil
}

func boardID(ctx ScriptContext) uuid.UUID {
	if ctx.Board == nil {
		return uuid.Nil
	}
	return ctx.Board.id
}

func (e *celEvaluator) getBinding(ctx ScriptContext) func(ref.Val) ref.Val {
	get := ctx.hostGet()
	return func(key ref.Val) ref.Val {
		name, ok := key.Value().(string)
		if !ok {
			return types.NewErr("blackboard: get key must be string")
		}
		result, err := get(name)
		if err != nil {
			return types.WrapErr(err)
		}
		if result == nil {
			return types.NullValue
		}
		return types.DefaultTypeAdapter.NativeToValue(result)
	}
}

func (e *celEvaluator) hasBinding(ctx ScriptContext) func(ref.Val) ref.Val {
	has := ctx.hostHas()
	return func(key ref.Val) ref.Val {
		name, ok := key.Value().(string)
		if !ok {
			return types.NewErr("blackboard: has_key key must be string")
		}
		return types.Bool(has(name))
	}
}

func (e *celEvaluator) setBinding(ctx ScriptContext) func(ref.Val, ref.Val) ref.Val {
	set := ctx.hostSet()
	return func(key, value ref.Val) ref.Val {
		name, ok := key.Value().(string)
		if !ok {
			return types.NewErr("blackboard: set key must be string")
		}
		result, err := set(name, value.Value())
		if err != nil {
			return types.WrapErr(err)
		}
		if result == nil {
			return types.NullValue
		}
		return types.DefaultTypeAdapter.NativeToValue(result)
	}
}

func (e *celEvaluator) callBinding() func(ref.Val, ref.Val) ref.Val {
	return func(name, argument ref.Val) ref.Val {
		if e.registry == nil {
			return types.NewErr("blackboard: function registry not configured")
		}
		fn, ok := name.Value().(string)
		if !ok {
			return types.NewErr("blackboard: call name must be string")
		}
		result, err := e.registry.Call(fn, argument.Value())
		if err != nil {
			return types.WrapErr(err)
		}
		if result == nil {
			return types.NullValue
		}
		return types.DefaultTypeAdapter.NativeToValue(result)
	}
}
