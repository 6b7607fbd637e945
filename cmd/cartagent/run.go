package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cartagent/internal/agent"
	"cartagent/internal/browser"
	"cartagent/internal/config"
	"cartagent/internal/history"
	"cartagent/internal/llm"
	"cartagent/internal/task"
)

type runOptions struct {
	maxSteps int

	// store persists finished runs; nil disables history.
	store *history.Store

	// holdOpen keeps the browser on screen after the run until the
	// operator presses Enter. The web UI runs with this off.
	holdOpen bool
}

func newRunCmd() *cobra.Command {
	var (
		headless    bool
		model       string
		historyPath string
		opts        runOptions
	)

	cmd := &cobra.Command{
		Use:   "run [config-file]",
		Short: "Run a cart task from a config file, or interactively when no file is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				cfg *config.Config
				err error
			)
			if len(args) == 1 {
				cfg, err = config.Load(args[0])
			} else {
				cfg, err = config.CollectInteractive(os.Stdin, os.Stdout)
			}
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("headless") {
				cfg.Headless = headless
			}
			if model != "" {
				cfg.Model = model
			}
			opts.store = openHistory(historyPath)

			logf := func(format string, args ...any) {
				fmt.Printf(format+"\n", args...)
			}
			return runCart(cmd.Context(), cfg, opts, logf)
		},
	}

	cmd.Flags().BoolVar(&headless, "headless", false, "run the browser without a window")
	cmd.Flags().StringVar(&model, "model", "", "OpenAI model to use (overrides config and OPENAI_MODEL)")
	cmd.Flags().IntVar(&opts.maxSteps, "max-steps", 25, "maximum agent steps before giving up")
	cmd.Flags().StringVar(&historyPath, "history", "cartagent.db", "path to the run history database (empty disables)")
	opts.holdOpen = true
	return cmd
}

// openHistory opens the run history store, tolerating failure: a broken or
// unwritable database only costs persistence, never the run.
func openHistory(path string) *history.Store {
	if path == "" {
		return nil
	}
	store, err := history.Open(path)
	if err != nil {
		logger.Warn("history disabled", zap.String("path", path), zap.Error(err))
		return nil
	}
	return store
}

// runCart drives one full cart task: browser, model client, agent loop.
func runCart(ctx context.Context, cfg *config.Config, opts runOptions, logf func(format string, args ...any)) error {
	execPath, err := config.ResolveBrowserPath(cfg)
	if err != nil {
		return err
	}

	client, err := llm.NewOpenAIClient(cfg.Model)
	if err != nil {
		return err
	}

	mgr, err := browser.NewManager(ctx, browser.Options{
		ExecPath: execPath,
		Headless: cfg.Headless,
		Width:    cfg.WindowWidth,
		Height:   cfg.WindowHeight,
	})
	if err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	defer mgr.Close()

	logf("Navigating to %s...", cfg.Website)
	if err := mgr.Navigate(cfg.Website); err != nil {
		return err
	}

	var recorder agent.Recorder
	if opts.store != nil {
		recorder = opts.store
	}

	runner := agent.NewRunner(agent.NewCDPPage(mgr), client, agent.RunConfig{
		Task:     task.Build(cfg),
		Website:  cfg.Website,
		MaxSteps: opts.maxSteps,
		Logger:   logger,
		Recorder: recorder,
	})

	runErr := runner.Run(ctx)
	switch {
	case runErr == nil:
		logf("Task complete.")
	case errors.Is(runErr, agent.ErrMaxSteps):
		logf("Stopped after %d steps without finishing. Check the browser for the current state.", opts.maxSteps)
	case errors.Is(runErr, agent.ErrInterrupted):
		logf("Interrupted by operator.")
	default:
		return runErr
	}

	if opts.holdOpen && !cfg.Headless {
		fmt.Print("Press Enter to close the browser...")
		_, _ = bufio.NewReader(os.Stdin).ReadString('\n')
	}
	return runErr
}
