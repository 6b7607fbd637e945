package agent

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedPage replays canned answers to confirm/probe evaluations and
// records every script it saw.
type scriptedPage struct {
	confirmAnswers []bool
	probeAnswers   []bool
	seen           []string
}

func (p *scriptedPage) Evaluate(_ context.Context, expr string, res any) error {
	p.seen = append(p.seen, expr)

	b, ok := res.(*bool)
	if !ok {
		return nil // alert scripts carry no result
	}

	switch {
	case strings.Contains(expr, "finished logging in"):
		if len(p.confirmAnswers) == 0 {
			return fmt.Errorf("unexpected confirm")
		}
		*b = p.confirmAnswers[0]
		p.confirmAnswers = p.confirmAnswers[1:]
	case strings.Contains(expr, "querySelectorAll"):
		if len(p.probeAnswers) == 0 {
			return fmt.Errorf("unexpected probe")
		}
		*b = p.probeAnswers[0]
		p.probeAnswers = p.probeAnswers[1:]
	default:
		return fmt.Errorf("unexpected boolean evaluation: %s", expr)
	}
	return nil
}

func fastGate(page Evaluator) *LoginGate {
	g := NewLoginGate(page, nil)
	g.InitialDelay = 0
	g.PollInterval = time.Millisecond
	g.Timeout = time.Second
	return g
}

func TestLoginGateHappyPath(t *testing.T) {
	page := &scriptedPage{
		confirmAnswers: []bool{true},
		probeAnswers:   []bool{true},
	}

	g := fastGate(page)
	require.NoError(t, g.Run(context.Background()))
	assert.Equal(t, "confirmed", g.State())

	// announce alert, confirm, probe — in that order
	require.Len(t, page.seen, 3)
	assert.Contains(t, page.seen[0], "log in manually")
}

func TestLoginGateWaitsUntilOperatorConfirms(t *testing.T) {
	page := &scriptedPage{
		confirmAnswers: []bool{false, false, true},
		probeAnswers:   []bool{true},
	}

	g := fastGate(page)
	require.NoError(t, g.Run(context.Background()))

	confirms := 0
	for _, s := range page.seen {
		if strings.Contains(s, "finished logging in") {
			confirms++
		}
	}
	assert.Equal(t, 3, confirms)
}

func TestLoginGateRetriesWhenVerificationFails(t *testing.T) {
	page := &scriptedPage{
		confirmAnswers: []bool{true, true},
		probeAnswers:   []bool{false, true},
	}

	g := fastGate(page)
	require.NoError(t, g.Run(context.Background()))

	retried := false
	for _, s := range page.seen {
		if strings.Contains(s, "Login not detected yet") {
			retried = true
		}
	}
	assert.True(t, retried, "the operator should be told verification failed")
	assert.Equal(t, "confirmed", g.State())
}

func TestLoginGateTimesOut(t *testing.T) {
	page := &scriptedPage{
		// The operator never finishes.
		confirmAnswers: make([]bool, 10000),
	}

	g := fastGate(page)
	g.Timeout = 10 * time.Millisecond

	err := g.Run(context.Background())
	assert.ErrorIs(t, err, ErrLoginTimeout)
}

func TestLoginGateHonorsContextCancel(t *testing.T) {
	page := &scriptedPage{confirmAnswers: make([]bool, 10000)}

	g := fastGate(page)
	g.PollInterval = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := g.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
