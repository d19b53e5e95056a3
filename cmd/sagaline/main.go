// Command sagaline runs the saga execution engine: validate specs, execute
// runs from the command line, or serve the engine to agents over MCP stdio.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/tmc/langchaingo/llms/openai"

	"github.com/rendis/sagaline/internal/engine"
	"github.com/rendis/sagaline/internal/evaluator"
	"github.com/rendis/sagaline/internal/expressions"
	"github.com/rendis/sagaline/internal/logging"
	"github.com/rendis/sagaline/internal/scheduler"
	"github.com/rendis/sagaline/internal/store"
	"github.com/rendis/sagaline/internal/validation"
	"github.com/rendis/sagaline/pkg/mcp"
	"github.com/rendis/sagaline/pkg/saga"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "validate":
		err = cmdValidate(os.Args[2:])
	case "run":
		err = cmdRun(os.Args[2:])
	case "serve":
		err = cmdServe(os.Args[2:])
	case "version":
		fmt.Println("sagaline " + version)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

const version = "1.0.0"

func usage() {
	fmt.Fprintln(os.Stderr, `usage: sagaline <command> [flags]

commands:
  validate <spec.json>   validate a saga specification
  run <spec.json>        execute a saga run and wait for its terminal state
  serve                  serve the engine over MCP stdio
  version                print the version`)
}

// cmdValidate validates a spec file and prints the result.
func cmdValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("validate requires exactly one spec file")
	}

	raw, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}

	validator, err := validation.NewSagaValidator()
	if err != nil {
		return err
	}
	spec, result := validator.ParseAndValidate(raw)

	out := map[string]any{
		"valid":    result.Valid(),
		"errors":   result.Errors,
		"warnings": result.Warnings,
	}
	if spec != nil {
		out["sagaKey"] = spec.SagaKey
		out["steps"] = spec.StepCount()
		out["assertions"] = spec.AssertionCount()
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}
	if !result.Valid() {
		return fmt.Errorf("spec is invalid")
	}
	return nil
}

// cmdRun executes one saga run synchronously and prints the status report.
func cmdRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	mode := fs.String("mode", "", "run mode override (dry_run or live)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("run requires exactly one spec file")
	}

	raw, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}

	cfg := loadConfig()
	app, err := wire(cfg)
	if err != nil {
		return err
	}
	defer app.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run, err := app.service.StartFromRaw(ctx, raw, engine.RunOptions{Mode: saga.RunMode(*mode)})
	if err != nil {
		return err
	}
	app.logger.Info("run started", slog.String("run_id", run.ID))

	// Wait for the run to reach a terminal state.
	app.pool.Wait()

	report, err := app.service.Status(ctx, run.ID)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}
	if report.Run.Status != saga.RunStatusPassed {
		return fmt.Errorf("run %s resolved %s", run.ID, report.Run.Status)
	}
	return nil
}

// cmdServe runs the MCP stdio server until the transport closes.
func cmdServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := loadConfig()
	app, err := wire(cfg)
	if err != nil {
		return err
	}
	defer app.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Scheduler {
		sched := scheduler.NewScheduler(app.store, app.service, app.logger)
		if err := sched.RecoverMissed(ctx); err != nil {
			app.logger.Warn("missed schedule recovery failed", slog.String("error", err.Error()))
		}
		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer func() { _ = sched.Stop() }()
	}

	srv := mcp.NewSagalineServer(mcp.SagalineServerDeps{
		Service: app.service,
		Store:   app.store,
		Logger:  app.logger,
	})
	app.logger.Info("serving MCP on stdio")
	return srv.Serve(ctx)
}

// app holds the wired engine.
type app struct {
	store   store.Store
	service *engine.Service
	pool    *engine.RunPool
	logger  *slog.Logger
}

func (a *app) close() {
	a.pool.Shutdown()
	_ = a.store.Close()
}

// wire builds the engine from configuration.
func wire(cfg Config) (*app, error) {
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	if err := os.MkdirAll(sagalineDir(), 0o755); err != nil {
		return nil, err
	}
	st, err := store.NewLibSQLStore("file:" + cfg.DBPath)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}

	validator, err := validation.NewSagaValidator()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	celEngine, err := expressions.NewCELEngine()
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	probe := engine.NewCELConditionProbe(celEngine, loadConditions())
	delayEngine := engine.NewDelayEngine(probe)

	var exploratory *evaluator.ExploratoryEvaluator
	if cfg.LLMAPIKey != "" {
		opts := []openai.Option{
			openai.WithToken(cfg.LLMAPIKey),
			openai.WithModel(cfg.LLMModel),
		}
		if cfg.LLMBaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.LLMBaseURL))
		}
		model, err := openai.New(opts...)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		exploratory = evaluator.NewExploratoryEvaluator(model, logger)
	}

	eval := evaluator.New(expressions.NewExprEngine(), expressions.NewGoJQEngine(), exploratory, logger)
	contracts := evaluator.NewContractRegistry()
	pool := engine.NewRunPool(cfg.PoolSize)
	orch := engine.NewOrchestrator(st, delayEngine, eval, contracts, pool, logger)

	return &app{
		store:   st,
		service: engine.NewService(st, validator, orch),
		pool:    pool,
		logger:  logger,
	}, nil
}

// loadConditions reads the conditionKey -> CEL expression registry from
// ~/.sagaline/conditions.json (optional).
func loadConditions() map[string]string {
	conditions := make(map[string]string)
	data, err := os.ReadFile(conditionsPath())
	if err != nil {
		return conditions
	}
	_ = json.Unmarshal(data, &conditions)
	return conditions
}

func conditionsPath() string {
	return filepath.Join(sagalineDir(), "conditions.json")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	inner := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return slog.New(logging.NewCorrelationHandler(inner))
}
