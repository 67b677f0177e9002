package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/mimimalizam/scicom"
	"github.com/mimimalizam/scicom/bridge"
	"github.com/mimimalizam/scicom/config"
	"github.com/mimimalizam/scicom/internal/minir"
	"github.com/mimimalizam/scicom/lifetime"
	"github.com/mimimalizam/scicom/wasmengine"
)

func main() {
	var (
		cfgFile     = flag.String("config", "", "Path to YAML configuration")
		expr        = flag.String("e", "", "Expression to evaluate")
		call        = flag.Bool("call", false, "Call the function named by the first argument with the remaining arguments")
		schema      = flag.Bool("schema", false, "Print the wasm guest wire schema and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *schema {
		out, err := wasmengine.Schema()
		if err != nil {
			fail(err)
		}
		fmt.Println(string(out))
		return
	}

	if *expr == "" && !*call && !*interactive {
		fmt.Fprintln(os.Stderr, "Usage: scicom [-config file.yaml] -e <expr>")
		fmt.Fprintln(os.Stderr, "       scicom [-config file.yaml] -call <name> [args...]")
		fmt.Fprintln(os.Stderr, "       scicom [-config file.yaml] -i  (interactive mode)")
		fmt.Fprintln(os.Stderr, "       scicom -schema")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, `Arguments: 1.5  "text"  TRUE  1:10  1,2,3  key=value  @variable  NULL`)
		os.Exit(1)
	}

	if err := run(*cfgFile, *expr, *call, *interactive, flag.Args()); err != nil {
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func run(cfgFile, expr string, call, interactive bool, args []string) error {
	ctx := context.Background()

	cfg := config.Default()
	if cfgFile != "" {
		var err error
		if cfg, err = config.Load(cfgFile); err != nil {
			return err
		}
	}
	log, err := cfg.Log.Build()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	lifetime.SetLogger(log.Named("lifetime"))
	wasmengine.SetLogger(log.Named("wasm"))

	eng, closeEngine, err := openEngine(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeEngine()

	b := bridge.New(eng, cfg.BridgeOptions(log.Named("bridge"))...)

	switch {
	case interactive:
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return fmt.Errorf("interactive mode needs a terminal")
		}
		return runInteractive(b, describe(cfg))
	case call:
		if len(args) == 0 {
			return fmt.Errorf("-call needs a function name")
		}
		return callAndPrint(ctx, os.Stdout, b, args[0], args[1:])
	default:
		v, err := b.Eval(ctx, expr)
		if err != nil {
			return err
		}
		fmt.Println(render(v))
		return nil
	}
}

func callAndPrint(ctx context.Context, w io.Writer, b *bridge.Bridge, name string, tokens []string) error {
	args, err := parseArgs(tokens)
	if err != nil {
		return err
	}
	res, err := b.Dispatch(ctx, name, args...)
	if err != nil {
		return err
	}
	if out := render(res); out != "" {
		fmt.Fprintln(w, out)
	}
	return nil
}

// openEngine returns the configured engine and its release function.
func openEngine(ctx context.Context, cfg *config.Config, log *zap.Logger) (scicom.Engine, func(), error) {
	switch cfg.Engine.Kind {
	case config.EngineWasm:
		data, err := os.ReadFile(cfg.Engine.Module)
		if err != nil {
			return nil, nil, fmt.Errorf("read module: %w", err)
		}
		eng, err := wasmengine.New(ctx, data, cfg.WasmConfig(log.Named("wasm")))
		if err != nil {
			return nil, nil, err
		}
		return eng, func() { _ = eng.Close(ctx) }, nil
	default:
		return minir.New(minir.WithLogger(log.Named("minir"))), func() {}, nil
	}
}

func describe(cfg *config.Config) string {
	if cfg.Engine.Kind == config.EngineWasm {
		return cfg.Engine.Module
	}
	return "builtin engine"
}
