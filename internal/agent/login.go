package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Evaluator runs a JS expression on the shared page. Native alert/confirm
// dialogs block the evaluation until the human acts on them, which is
// exactly the handoff the gate needs.
type Evaluator interface {
	Evaluate(ctx context.Context, expr string, res any) error
}

var ErrLoginTimeout = errors.New("manual login timed out")

type gateState int

const (
	gateIdle gateState = iota
	gateAnnounced
	gateAwaitingConfirm
	gateVerifying
	gateConfirmed
)

func (s gateState) String() string {
	switch s {
	case gateIdle:
		return "idle"
	case gateAnnounced:
		return "announced"
	case gateAwaitingConfirm:
		return "awaiting_confirm"
	case gateVerifying:
		return "verifying"
	case gateConfirmed:
		return "confirmed"
	default:
		return "unknown"
	}
}

const announceScript = `alert('Please log in manually in this browser window. ` +
	`Click OK to dismiss this message and begin login. For multi-step login flows ` +
	`(email -> password -> OTP), complete ALL steps.')`

const confirmScript = `confirm('Have you COMPLETELY finished logging in? ` +
	`Click OK only after you have FULLY logged in including any OTP/2FA steps. ` +
	`Click Cancel if you need more time.')`

const retryScript = `alert('Login not detected yet. Please double-check that ALL ` +
	`login steps (including OTP/2FA) are complete, then confirm again.')`

// probeScript looks for the usual logged-in markers: account elements,
// sign-out links, user-specific elements.
const probeScript = `(() => {
	const account = document.querySelectorAll(
		'a[href*=account], span[class*=account], div[class*=account], a[class*=account], [aria-label*=account], [id*=account]');
	const signOut = document.querySelectorAll(
		'a[href*=logout], a[href*=signout], [class*=logout], [class*=signout], [id*=logout], [id*=signout]');
	const user = document.querySelectorAll(
		'*:not(meta):not(script):not(style):not(path):not(input):not(button):not(a)[class*=user], ' +
		'*:not(meta):not(script):not(style):not(path):not(input):not(button):not(a)[id*=user]');
	return account.length > 0 || signOut.length > 0 || user.length > 0;
})()`

// LoginGate suspends the autonomous loop and hands the browser to the human
// operator: announce via alert, poll a confirm dialog until they say they
// are done, then verify the page actually looks logged in. Verification
// failure sends the gate back to waiting rather than trusting the human's
// confirmation blindly.
type LoginGate struct {
	page Evaluator
	log  *zap.Logger

	// InitialDelay gives the user time to start typing before the first
	// confirm dialog interrupts them.
	InitialDelay time.Duration
	PollInterval time.Duration
	Timeout      time.Duration

	state gateState
}

func NewLoginGate(page Evaluator, log *zap.Logger) *LoginGate {
	if log == nil {
		log = zap.NewNop()
	}
	return &LoginGate{
		page:         page,
		log:          log,
		InitialDelay: 15 * time.Second,
		PollInterval: 10 * time.Second,
		Timeout:      10 * time.Minute,
	}
}

func (g *LoginGate) State() string { return g.state.String() }

// Run executes one full announce -> wait -> confirm -> verify cycle.
func (g *LoginGate) Run(ctx context.Context) error {
	deadline := time.Now().Add(g.Timeout)

	g.state = gateAnnounced
	g.log.Info("login gate: handing browser to the operator")
	if err := g.page.Evaluate(ctx, announceScript, nil); err != nil {
		return fmt.Errorf("login announce failed: %w", err)
	}

	if err := sleepCtx(ctx, g.InitialDelay); err != nil {
		return err
	}

	for {
		if time.Now().After(deadline) {
			g.state = gateIdle
			return ErrLoginTimeout
		}

		g.state = gateAwaitingConfirm
		var confirmed bool
		if err := g.page.Evaluate(ctx, confirmScript, &confirmed); err != nil {
			return fmt.Errorf("login confirm failed: %w", err)
		}

		if !confirmed {
			g.log.Info("login gate: operator needs more time")
			if err := sleepCtx(ctx, g.PollInterval); err != nil {
				return err
			}
			continue
		}

		g.state = gateVerifying
		var loggedIn bool
		if err := g.page.Evaluate(ctx, probeScript, &loggedIn); err != nil {
			return fmt.Errorf("login probe failed: %w", err)
		}

		if loggedIn {
			g.state = gateConfirmed
			g.log.Info("login gate: login verified, resuming")
			return nil
		}

		g.log.Warn("login gate: operator confirmed but no login indicators found")
		if err := g.page.Evaluate(ctx, retryScript, nil); err != nil {
			return fmt.Errorf("login retry notice failed: %w", err)
		}
		if err := sleepCtx(ctx, g.PollInterval); err != nil {
			return err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
