package wasmengine

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/mimimalizam/scicom"
	"github.com/mimimalizam/scicom/errors"
)

const (
	exportMemory   = "memory"
	exportAllocate = "allocate"
	exportFree     = "deallocate"
	exportInit     = "_initialize"
	exportEval     = "scicom_eval"
	exportBind     = "scicom_bind"
	exportUnbind   = "scicom_unbind"
)

var requiredFuncs = []string{exportAllocate, exportEval, exportBind, exportUnbind}

var validate = validator.New()

// Config holds configuration for engine creation.
type Config struct {
	// ModuleName is the instance name inside the runtime.
	ModuleName string `validate:"omitempty,max=64"`

	// MemoryLimitPages sets the maximum guest memory in pages (64KB each).
	// 0 means the wazero default.
	MemoryLimitPages uint32 `validate:"lte=65536"`

	// Logger overrides the package logger.
	Logger *zap.Logger `validate:"-"`
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "wasm engine config")
	}
	return nil
}

// GuestError is an error reported by the guest engine.
type GuestError struct {
	Op  string
	Msg string
}

func (e *GuestError) Error() string {
	return e.Op + ": " + e.Msg
}

// Engine is a scicom.Engine backed by a wasm guest. Calls are serialized.
type Engine struct {
	runtime wazero.Runtime
	module  api.Module
	logger  *zap.Logger
	mu      sync.Mutex
}

var (
	_ scicom.Engine = (*Engine)(nil)
	_ scicom.Lister = (*Engine)(nil)
)

// New compiles and instantiates wasm. cfg may be nil.
func New(ctx context.Context, wasm []byte, cfg *Config) (*Engine, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := cfg.Logger
	if log == nil {
		log = Logger()
	}

	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	e, err := instantiate(ctx, rt, wasm, cfg.ModuleName)
	if err != nil {
		return nil, multierr.Append(err, rt.Close(ctx))
	}
	e.logger = log
	log.Debug("wasm engine ready", zap.String("module", cfg.ModuleName), zap.Uint32("memory_limit_pages", cfg.MemoryLimitPages))
	return e, nil
}

func instantiate(ctx context.Context, rt wazero.Runtime, wasm []byte, name string) (*Engine, error) {
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		return nil, errors.Instantiation(fmt.Errorf("wasi: %w", err))
	}

	compiled, err := rt.CompileModule(ctx, wasm)
	if err != nil {
		return nil, errors.Load("compile guest module", err)
	}
	if err := checkExports(compiled); err != nil {
		return nil, err
	}

	modCfg := wazero.NewModuleConfig().WithName(name).WithStartFunctions()
	mod, err := rt.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		return nil, errors.Instantiation(err)
	}
	if init := mod.ExportedFunction(exportInit); init != nil {
		if _, err := init.Call(ctx); err != nil {
			return nil, errors.Instantiation(fmt.Errorf("%s: %w", exportInit, err))
		}
	}
	return &Engine{runtime: rt, module: mod}, nil
}

func checkExports(compiled wazero.CompiledModule) error {
	funcs := compiled.ExportedFunctions()
	for _, name := range requiredFuncs {
		if _, ok := funcs[name]; !ok {
			return errors.NotFound(errors.PhaseLoad, "export", name)
		}
	}
	if _, ok := compiled.ExportedMemories()[exportMemory]; !ok {
		return errors.NotFound(errors.PhaseLoad, "export", exportMemory)
	}
	return nil
}

// Eval evaluates expr in the guest.
func (e *Engine) Eval(ctx context.Context, expr string) (scicom.Value, error) {
	resp, err := e.call(ctx, exportEval, EvalRequest{Expr: expr})
	if err != nil {
		return nil, err
	}
	v, err := decode(resp.Value)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Bind copies v into the guest under name.
func (e *Engine) Bind(ctx context.Context, name string, v any) error {
	w, err := encode(v)
	if err != nil {
		return err
	}
	_, err = e.call(ctx, exportBind, BindRequest{Name: name, Value: w})
	return err
}

// Unbind removes name from the guest namespace.
func (e *Engine) Unbind(ctx context.Context, name string) error {
	_, err := e.call(ctx, exportUnbind, UnbindRequest{Name: name})
	return err
}

// Names lists the guest's global namespace.
func (e *Engine) Names(ctx context.Context) ([]string, error) {
	v, err := e.Eval(ctx, "ls()")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		if s, ok := v.At(i).(string); ok {
			names = append(names, s)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Close releases the runtime and every module in it.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runtime.Close(ctx)
}

func (e *Engine) call(ctx context.Context, export string, req any) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	input, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseMarshal, errors.KindInvalidData, err, "encode "+export+" request")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	packed, err := e.callRaw(ctx, export, input)
	if err != nil {
		return nil, err
	}
	var resp Response
	if err := e.unmarshalPacked(ctx, packed, &resp); err != nil {
		return nil, err
	}
	if !resp.OK {
		e.logger.Debug("guest error", zap.String("export", export), zap.String("error", resp.Error))
		return nil, &GuestError{Op: export, Msg: resp.Error}
	}
	return &resp, nil
}

func (e *Engine) callRaw(ctx context.Context, name string, input []byte) (uint64, error) {
	f := e.module.ExportedFunction(name)
	if f == nil {
		return 0, errors.NotFound(errors.PhaseEvaluate, "export", name)
	}
	allocate := e.module.ExportedFunction(exportAllocate)
	res, err := allocate.Call(ctx, uint64(len(input)))
	if err != nil {
		return 0, fmt.Errorf("allocate in guest: %w", err)
	}
	if len(res) == 0 {
		return 0, fmt.Errorf("allocate returned no results")
	}
	ptr := uint32(res[0])
	if !e.module.Memory().Write(ptr, input) {
		e.free(ctx, ptr, uint32(len(input)))
		return 0, fmt.Errorf("write %d bytes at %#x: out of range", len(input), ptr)
	}
	results, err := f.Call(ctx, uint64(ptr), uint64(len(input)))
	e.free(ctx, ptr, uint32(len(input)))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if len(results) == 0 {
		return 0, fmt.Errorf("%s returned no results", name)
	}
	return results[0], nil
}

func (e *Engine) unmarshalPacked(ctx context.Context, packed uint64, v any) error {
	ptr := uint32(packed >> 32)
	length := uint32(packed)
	if ptr == 0 || length == 0 {
		return fmt.Errorf("null response from guest")
	}
	data, ok := e.module.Memory().Read(ptr, length)
	if !ok {
		e.free(ctx, ptr, length)
		return fmt.Errorf("read %d bytes at %#x: out of range", length, ptr)
	}
	err := json.Unmarshal(data, v)
	e.free(ctx, ptr, length)
	if err != nil {
		return errors.Wrap(errors.PhaseEvaluate, errors.KindInvalidData, err, "decode guest response")
	}
	return nil
}

// free hands a buffer back to guests that export deallocate.
func (e *Engine) free(ctx context.Context, ptr, length uint32) {
	f := e.module.ExportedFunction(exportFree)
	if f == nil {
		return
	}
	if _, err := f.Call(ctx, uint64(ptr), uint64(length)); err != nil {
		e.logger.Warn("deallocate failed", zap.Uint32("ptr", ptr), zap.Error(err))
	}
}
