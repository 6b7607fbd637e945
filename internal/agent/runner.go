// Package agent runs the snapshot -> decide -> execute loop against the
// shared browser session and hands control to the human operator when the
// model reaches a login wall.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cartagent/internal/history"
	"cartagent/internal/llm"
)

var (
	ErrInterrupted = errors.New("execution interrupted")
	ErrMaxSteps    = errors.New("max steps reached")
)

// Recorder persists a finished run. history.Store implements it; a nil
// recorder disables persistence.
type Recorder interface {
	Record(run *history.Run) error
}

type RunConfig struct {
	Task     string
	Website  string
	MaxSteps int
	Logger   *zap.Logger
	Recorder Recorder

	// StepDelay is the pause between steps; zero means the default 2s.
	StepDelay time.Duration
}

type Runner struct {
	page     Page
	llm      llm.Client
	gate     *LoginGate
	reporter *Reporter
	mem      *StepMemory
	signals  *SignalController
	log      *zap.Logger

	task      string
	website   string
	maxSteps  int
	stepDelay time.Duration
	recorder  Recorder

	prevTree string
	steps    []history.Step
}

func NewRunner(page Page, llmClient llm.Client, cfg RunConfig) *Runner {
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = 25
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.StepDelay <= 0 {
		cfg.StepDelay = 2 * time.Second
	}
	return &Runner{
		page:      page,
		llm:       llmClient,
		gate:      NewLoginGate(page, cfg.Logger),
		reporter:  NewReporter(llmClient, cfg.Task),
		mem:       NewStepMemory(10, 3),
		signals:   NewSignalController(),
		log:       cfg.Logger,
		task:      cfg.Task,
		website:   cfg.Website,
		maxSteps:  cfg.MaxSteps,
		stepDelay: cfg.StepDelay,
		recorder:  cfg.Recorder,
	}
}

// Run drives the loop until the model finishes, the step budget runs out,
// the user interrupts, or the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	start := time.Now()
	defer r.signals.Close()

	for step := 1; step <= r.maxSteps; step++ {
		if r.signals.Interrupted() {
			r.reporter.Interrupted(ctx, start, r.mem)
			r.record(start, "interrupted", false)
			return ErrInterrupted
		}
		if err := ctx.Err(); err != nil {
			r.record(start, "cancelled", false)
			return err
		}

		finished, err := r.executeStep(ctx, step)
		if err != nil {
			// Step failures are fed back to the model as notes; the loop
			// itself keeps going.
			r.reporter.StepError(err)
			r.log.Warn("step failed", zap.Int("step", step), zap.Error(err))
		}

		if finished {
			r.reporter.Finished(ctx, start, r.mem)
			r.record(start, "task finished", true)
			return nil
		}

		if err := sleepCtx(ctx, r.stepDelay); err != nil {
			r.record(start, "cancelled", false)
			return err
		}
	}

	r.reporter.MaxStepsReached(ctx, start, r.mem)
	r.record(start, "max steps reached", false)
	return ErrMaxSteps
}

func (r *Runner) executeStep(ctx context.Context, step int) (bool, error) {
	fmt.Printf("\n--- STEP %d ---\n", step)

	snap, err := r.page.Snapshot()
	if err != nil {
		return false, fmt.Errorf("snapshot error: %w", err)
	}

	if r.prevTree != "" && snap.Tree == r.prevTree {
		r.mem.AddSystemNote("SYSTEM ALERT: Last action had NO VISIBLE EFFECT.")
	}
	r.prevTree = snap.Tree

	fmt.Printf("URL: %s\nTitle: %s\n", snap.URL, snap.Title)

	decision, err := r.llm.DecideAction(ctx, llm.DecisionInput{
		Task:             r.task,
		DOMTree:          snap.Tree,
		CurrentURL:       snap.URL,
		History:          r.mem.HistoryString(),
		ScreenshotBase64: snap.ScreenshotBase64,
	})
	if err != nil {
		return false, fmt.Errorf("llm error: %w", err)
	}

	r.reporter.LogDecision(step, snap.URL, decision)

	if blocked, reason := r.mem.ShouldBlock(snap.URL, decision.Action); blocked {
		fmt.Printf("⛔ LOOP GUARD: %s\n", reason)
		r.mem.AddSystemNote(reason)
		r.mem.MarkLoopTriggered()
		// Nudge the page so the next snapshot differs.
		_ = r.page.Evaluate(ctx, `window.scrollBy({top: 300, behavior: 'smooth'});`, nil)
		return false, nil
	}

	switch decision.Action.Type {
	case llm.ActionFinish:
		return true, nil

	case llm.ActionWaitLogin:
		if err := r.gate.Run(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return false, err
			}
			r.mem.AddSystemNote(fmt.Sprintf("SYSTEM ERROR: manual login did not complete: %v", err))
			return false, err
		}
		r.mem.AddSystemNote("SYSTEM NOTE: The user has completed the manual login. Verify it and continue with the items.")
		r.recordStep(step, snap.URL, decision.Action)
		return false, nil
	}

	if decision.Action.IsDestructive && !confirmDestructiveAction(decision.Action) {
		r.mem.AddSystemNote("SYSTEM NOTE: The destructive action was refused by the user. Do not attempt it again.")
		return false, nil
	}

	if err := r.page.Execute(ctx, decision.Action); err != nil {
		r.mem.AddSystemNote(fmt.Sprintf("SYSTEM ERROR: %v", err))
		return false, nil
	}

	r.mem.Add(step, snap.URL, decision.Action)
	r.mem.AddSystemNote(fmt.Sprintf(
		"STATE UPDATE: %s | %s",
		strings.ToUpper(decision.CurrentPhase), decision.Observation,
	))
	r.recordStep(step, snap.URL, decision.Action)
	return false, nil
}

func (r *Runner) recordStep(step int, url string, action llm.Action) {
	r.steps = append(r.steps, history.Step{
		Seq:      step,
		URL:      url,
		Action:   string(action.Type),
		TargetID: action.TargetID,
		Text:     action.Text,
	})
}

func (r *Runner) record(start time.Time, exitReason string, success bool) {
	if r.recorder == nil {
		return
	}
	run := &history.Run{
		ID:         uuid.NewString(),
		Website:    r.website,
		Task:       r.task,
		StartedAt:  start,
		FinishedAt: time.Now(),
		ExitReason: exitReason,
		Success:    success,
		Summary:    r.reporter.Summary(),
		Steps:      r.steps,
	}
	if err := r.recorder.Record(run); err != nil {
		r.log.Warn("failed to persist run", zap.Error(err))
	}
}
