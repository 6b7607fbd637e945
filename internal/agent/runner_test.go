package agent

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cartagent/internal/browser"
	"cartagent/internal/config"
	"cartagent/internal/history"
	"cartagent/internal/llm"
	"cartagent/internal/task"
)

type fakePage struct {
	trees    []string
	executed []llm.Action
	snapN    int
}

func (p *fakePage) Snapshot() (*browser.PageSnapshot, error) {
	tree := "[1] <button label=\"Search\">"
	if p.snapN < len(p.trees) {
		tree = p.trees[p.snapN]
	}
	p.snapN++
	return &browser.PageSnapshot{
		URL:   "https://shop.example",
		Title: "Shop",
		Tree:  tree,
	}, nil
}

func (p *fakePage) Evaluate(_ context.Context, expr string, res any) error {
	// The login gate's confirm and probe both want a bool; say yes to both
	// so wait_login resolves immediately.
	if b, ok := res.(*bool); ok {
		*b = true
	}
	return nil
}

func (p *fakePage) Execute(_ context.Context, action llm.Action) error {
	p.executed = append(p.executed, action)
	return nil
}

type fakeLLM struct {
	decisions []llm.DecisionOutput
	n         int
}

func (f *fakeLLM) DecideAction(context.Context, llm.DecisionInput) (*llm.DecisionOutput, error) {
	if f.n >= len(f.decisions) {
		return &llm.DecisionOutput{Action: llm.Action{Type: llm.ActionFinish}}, nil
	}
	d := f.decisions[f.n]
	f.n++
	return &d, nil
}

func (f *fakeLLM) SummarizeRun(context.Context, llm.SummaryInput) (string, error) {
	return "summary", nil
}

type memRecorder struct {
	runs []*history.Run
}

func (r *memRecorder) Record(run *history.Run) error {
	r.runs = append(r.runs, run)
	return nil
}

// varyingTrees avoids the stale-snapshot note so tests exercise only what
// they mean to.
func varyingTrees(n int) []string {
	trees := make([]string, n)
	for i := range trees {
		trees[i] = fmt.Sprintf("[1] <button label=\"Search %d\">", i)
	}
	return trees
}

func newTestRunner(page Page, model llm.Client, rec Recorder, maxSteps int) *Runner {
	r := NewRunner(page, model, RunConfig{
		Task:      "add a mouse to the cart",
		Website:   "shop.example",
		MaxSteps:  maxSteps,
		Recorder:  rec,
		StepDelay: time.Millisecond,
	})
	r.gate.InitialDelay = 0
	r.gate.PollInterval = time.Millisecond
	r.gate.Timeout = time.Second
	return r
}

func TestRunnerFinishesWhenModelSaysFinish(t *testing.T) {
	page := &fakePage{trees: varyingTrees(10)}
	model := &fakeLLM{decisions: []llm.DecisionOutput{
		{Thought: "search first", Action: llm.Action{Type: llm.ActionClick, TargetID: 1}},
		{Thought: "done", Action: llm.Action{Type: llm.ActionFinish}},
	}}
	rec := &memRecorder{}

	r := newTestRunner(page, model, rec, 10)
	require.NoError(t, r.Run(context.Background()))

	require.Len(t, page.executed, 1)
	assert.Equal(t, llm.ActionClick, page.executed[0].Type)

	require.Len(t, rec.runs, 1)
	run := rec.runs[0]
	assert.True(t, run.Success)
	assert.Equal(t, "task finished", run.ExitReason)
	assert.Equal(t, "shop.example", run.Website)
	require.Len(t, run.Steps, 1)
	assert.Equal(t, "click", run.Steps[0].Action)
}

func TestRunnerLoopGuardStopsRepeats(t *testing.T) {
	same := llm.DecisionOutput{Action: llm.Action{Type: llm.ActionClick, TargetID: 5}}
	model := &fakeLLM{decisions: []llm.DecisionOutput{same, same, same, same,
		{Action: llm.Action{Type: llm.ActionFinish}},
	}}
	page := &fakePage{trees: varyingTrees(10)}

	r := newTestRunner(page, model, nil, 10)
	require.NoError(t, r.Run(context.Background()))

	// With threshold 3 the repeat is blocked from the fourth attempt on.
	assert.Len(t, page.executed, 3)
	assert.True(t, r.mem.LoopTriggered())
}

func TestRunnerFlagsStaleSnapshot(t *testing.T) {
	model := &fakeLLM{decisions: []llm.DecisionOutput{
		{Action: llm.Action{Type: llm.ActionClick, TargetID: 1}},
		{Action: llm.Action{Type: llm.ActionFinish}},
	}}
	// Both snapshots render the same tree, so the click visibly did nothing.
	page := &fakePage{}

	r := newTestRunner(page, model, nil, 10)
	require.NoError(t, r.Run(context.Background()))

	alerted := false
	for _, line := range r.mem.FullHistory() {
		if strings.Contains(line, "NO VISIBLE EFFECT") {
			alerted = true
		}
	}
	assert.True(t, alerted, "an unchanged tree should leave a system alert for the model")
}

func TestRunnerMaxSteps(t *testing.T) {
	model := &fakeLLM{decisions: []llm.DecisionOutput{
		{Action: llm.Action{Type: llm.ActionClick, TargetID: 1}},
		{Action: llm.Action{Type: llm.ActionClick, TargetID: 2}},
		{Action: llm.Action{Type: llm.ActionClick, TargetID: 3}},
	}}
	page := &fakePage{trees: varyingTrees(10)}
	rec := &memRecorder{}

	r := newTestRunner(page, model, rec, 3)
	err := r.Run(context.Background())
	assert.ErrorIs(t, err, ErrMaxSteps)

	require.Len(t, rec.runs, 1)
	assert.False(t, rec.runs[0].Success)
	assert.Equal(t, "max steps reached", rec.runs[0].ExitReason)
}

func TestRunnerWaitLoginRunsGate(t *testing.T) {
	model := &fakeLLM{decisions: []llm.DecisionOutput{
		{Action: llm.Action{Type: llm.ActionWaitLogin}},
		{Action: llm.Action{Type: llm.ActionFinish}},
	}}
	page := &fakePage{trees: varyingTrees(10)}

	r := newTestRunner(page, model, nil, 10)
	require.NoError(t, r.Run(context.Background()))

	assert.Equal(t, "confirmed", r.gate.State())

	noted := false
	for _, line := range r.mem.FullHistory() {
		if strings.Contains(line, "manual login") {
			noted = true
		}
	}
	assert.True(t, noted, "the model should learn the login finished")
	assert.Empty(t, page.executed, "wait_login is not a page action")
}

// TestLiveCartRun drives a real browser and a real model. It only runs when
// explicitly asked for: CARTAGENT_LIVE_E2E=1 OPENAI_API_KEY=... go test -run TestLiveCartRun ./internal/agent
func TestLiveCartRun(t *testing.T) {
	if testing.Short() {
		t.Skip("live run skipped in short mode")
	}
	if os.Getenv("CARTAGENT_LIVE_E2E") == "" {
		t.Skip("set CARTAGENT_LIVE_E2E=1 to run the live test")
	}
	if os.Getenv("OPENAI_API_KEY") == "" {
		t.Skip("OPENAI_API_KEY not set")
	}

	cfg := &config.Config{
		Website: "books.toscrape.com",
		Items:   []config.Item{{Name: "A Light in the Attic", Quantity: 1}},
	}
	cfg.ApplyEnvDefaults()

	client, err := llm.NewOpenAIClient(cfg.Model)
	require.NoError(t, err)

	mgr, err := browser.NewManager(context.Background(), browser.Options{
		Headless:    true,
		Width:       cfg.WindowWidth,
		Height:      cfg.WindowHeight,
		UserDataDir: t.TempDir(),
	})
	require.NoError(t, err)
	defer mgr.Close()
	require.NoError(t, mgr.Navigate(cfg.Website))

	r := NewRunner(NewCDPPage(mgr), client, RunConfig{
		Task:     task.Build(cfg),
		Website:  cfg.Website,
		MaxSteps: 15,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	require.NoError(t, r.Run(ctx))
}

func TestRunnerContextCancel(t *testing.T) {
	model := &fakeLLM{decisions: []llm.DecisionOutput{
		{Action: llm.Action{Type: llm.ActionClick, TargetID: 1}},
		{Action: llm.Action{Type: llm.ActionClick, TargetID: 2}},
	}}
	page := &fakePage{trees: varyingTrees(10)}

	r := newTestRunner(page, model, nil, 100)
	r.stepDelay = 50 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := r.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
