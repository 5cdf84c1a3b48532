// Command gaflowd is the engine's process entry point: it loads
// configuration, initializes the process-wide Engine, assembles a sample
// workflow (a single branch group that greets each branch and exits), and
// serves the control API until interrupted. It plays the same role as the
// teacher's cmd/server, adapted from a generic node-graph server to this
// branch-group workflow runtime.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gaflow"
	"gaflow/ga/builder"
	"gaflow/ga/config"
	"gaflow/ga/controlapi"
	"gaflow/ga/persistence"
	"gaflow/internal/flow"
	"gaflow/internal/workflow"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML configuration file")
	branchCount := flag.Int("branches", 4, "branch count for the sample workflow's initial group")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal("loading configuration", err)
	}

	engine, err := gaflow.Initialize(cfg)
	if err != nil {
		fatal("initializing engine", err)
	}
	defer engine.Finalize()

	wf := buildSampleWorkflow(engine, *branchCount)

	api := engine.ControlAPI(wf)
	server := &http.Server{Addr: cfg.ControlAPIAddr, Handler: api.Handler()}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		engine.Logger().Info().Str("addr", cfg.ControlAPIAddr).Msg("control api listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			engine.Logger().Error().Err(err).Msg("control api server failed")
		}
	}()

	run := persistence.NewRun("sample-workflow")
	if err := wf.Start(ctx); err != nil {
		fatal("starting workflow", err)
	}

	<-ctx.Done()
	engine.Logger().Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	_ = wf.Stop()

	run.EndedAt = time.Now()
	run.FinalState = wf.State().String()
	run.ErrorCount = len(wf.Errors())
	if err := engine.Store().RecordRun(context.Background(), run); err != nil {
		engine.Logger().Error().Err(err).Msg("recording run history")
	}
}

// buildSampleWorkflow wires a minimal single-group workflow: every branch
// runs a greeting step then reports to the finish barrier. It exists to
// give the control API something real to start, pause and stop.
func buildSampleWorkflow(engine *gaflow.Engine, branchCount int) *workflow.Workflow {
	b := builder.NewFlowBuilder()
	b.AddWork(1, func(ctx flow.BranchContext) (int, error) {
		engine.Logger().Info().Int("branch", ctx.BranchID()).Msg("branch entered sample workflow")
		return 0, nil
	})
	b.First(1)
	bgFlow, err := b.Build()
	if err != nil {
		fatal("building sample flow", err)
	}

	wf := workflow.New(engine.Pool())
	finish := workflow.NewBarrierStep(1, workflow.KindFinish)
	wf.NewBranchGroup(1, branchCount, bgFlow, finish, true)
	return wf
}

func fatal(msg string, err error) {
	os.Stderr.WriteString(msg + ": " + err.Error() + "\n")
	os.Exit(1)
}
