package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitDone(t *testing.T, ctx context.Context) {
	t.Helper()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context never cancelled")
	}
}

func TestTabContextCancelledByCaller(t *testing.T) {
	tab, cancelTab := context.WithCancel(context.Background())
	defer cancelTab()
	m := &Manager{Ctx: tab}

	callerCtx, cancelCaller := context.WithCancel(context.Background())
	runCtx, cleanup := m.TabContext(callerCtx)
	defer cleanup()

	cancelCaller()
	waitDone(t, runCtx)
	require.NoError(t, tab.Err(), "cancelling the caller must not kill the tab")
}

func TestTabContextCancelledByTab(t *testing.T) {
	tab, cancelTab := context.WithCancel(context.Background())
	m := &Manager{Ctx: tab}

	runCtx, cleanup := m.TabContext(context.Background())
	defer cleanup()

	cancelTab()
	waitDone(t, runCtx)
}

func TestTabContextNilCaller(t *testing.T) {
	tab, cancelTab := context.WithCancel(context.Background())
	defer cancelTab()
	m := &Manager{Ctx: tab}

	runCtx, cleanup := m.TabContext(nil)
	defer cleanup()
	assert.Equal(t, tab, runCtx)
	assert.NoError(t, runCtx.Err())
}
