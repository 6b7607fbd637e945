package agent

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"cartagent/internal/llm"
)

func click(target int) llm.Action {
	return llm.Action{Type: llm.ActionClick, TargetID: target}
}

func TestStepMemoryBlocksRepeatedAction(t *testing.T) {
	m := NewStepMemory(10, 3)
	url := "https://amazon.com/cart"

	for i := 1; i <= 3; i++ {
		blocked, _ := m.ShouldBlock(url, click(7))
		assert.False(t, blocked, "attempt %d should pass", i)
		m.Add(i, url, click(7))
	}

	blocked, reason := m.ShouldBlock(url, click(7))
	assert.True(t, blocked)
	assert.Contains(t, reason, "times in a row")
}

func TestStepMemoryBlocksRepeatedPattern(t *testing.T) {
	m := NewStepMemory(10, 5)
	url := "https://ebay.com"

	// A -> B once is fine; proposing B right after A again repeats the pattern.
	m.Add(1, url, click(1))
	m.Add(2, url, click(2))
	m.Add(3, url, click(1))

	blocked, reason := m.ShouldBlock(url, click(2))
	assert.True(t, blocked)
	assert.Contains(t, reason, "already occurred")
}

func TestStepMemoryDifferentPagesDoNotCollide(t *testing.T) {
	m := NewStepMemory(10, 2)

	m.Add(1, "https://a.example", click(7))
	m.Add(2, "https://a.example", click(7))

	blocked, _ := m.ShouldBlock("https://b.example", click(7))
	assert.False(t, blocked, "same target on another page is a different action")
}

func TestStepMemoryHistoryTrimsButFullHistoryKeeps(t *testing.T) {
	m := NewStepMemory(3, 99)

	for i := 1; i <= 6; i++ {
		m.Add(i, "https://x.example", click(i))
	}
	m.AddSystemNote("SYSTEM NOTE: something happened")

	short := m.HistoryString()
	assert.Equal(t, 3, len(strings.Split(short, "\n")))
	assert.Contains(t, short, "SYSTEM NOTE")

	assert.Len(t, m.FullHistory(), 7)
	assert.Contains(t, m.FullHistory()[0], fmt.Sprintf("target=%d", 1))
}

func TestStepMemoryLoopTriggeredFlag(t *testing.T) {
	m := NewStepMemory(5, 2)
	assert.False(t, m.LoopTriggered())
	m.MarkLoopTriggered()
	assert.True(t, m.LoopTriggered())
}
