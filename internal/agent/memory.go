package agent

import (
	"fmt"
	"strings"

	"cartagent/internal/llm"
)

// StepMemory keeps a short action history for the prompt and detects loops,
// both a single action repeated back-to-back and a short pattern (A->B)
// recurring.
type StepMemory struct {
	lines    []string
	maxLines int

	fullLines []string

	lastActionKey string
	repeatCount   int
	loopThreshold int

	recentKeys    []string
	maxRecent     int
	patternLen    int
	patternCounts map[string]int

	loopTriggered bool
}

func NewStepMemory(maxLines, loopThreshold int) *StepMemory {
	if maxLines <= 0 {
		maxLines = 5
	}
	if loopThreshold <= 1 {
		loopThreshold = 2
	}
	return &StepMemory{
		maxLines:      maxLines,
		loopThreshold: loopThreshold,
		maxRecent:     10,
		patternLen:    2,
		patternCounts: make(map[string]int),
	}
}

// makeKey identifies "the same action": same type on the same target on the
// same page.
func (m *StepMemory) makeKey(url string, action llm.Action) string {
	return fmt.Sprintf("%s|%s|%d", action.Type, url, action.TargetID)
}

// Add records a successfully executed action.
func (m *StepMemory) Add(step int, url string, action llm.Action) {
	line := fmt.Sprintf(
		"step=%d url=%s action=%s target=%d text=%q",
		step, url, action.Type, action.TargetID, action.Text,
	)

	m.fullLines = append(m.fullLines, line)
	m.appendLine(line)

	key := m.makeKey(url, action)

	if key == m.lastActionKey {
		m.repeatCount++
	} else {
		m.lastActionKey = key
		m.repeatCount = 1
	}

	m.recentKeys = append(m.recentKeys, key)
	if len(m.recentKeys) > m.maxRecent {
		m.recentKeys = m.recentKeys[len(m.recentKeys)-m.maxRecent:]
	}

	if m.patternLen > 1 && len(m.recentKeys) >= m.patternLen {
		seq := m.recentKeys[len(m.recentKeys)-m.patternLen:]
		m.patternCounts[strings.Join(seq, "->")]++
	}
}

// ShouldBlock returns (true, reason) when executing the action would repeat
// a loop. The reason is phrased for the model and should be added as a
// system note.
func (m *StepMemory) ShouldBlock(url string, action llm.Action) (bool, string) {
	key := m.makeKey(url, action)

	if m.loopThreshold > 0 && key == m.lastActionKey && m.repeatCount >= m.loopThreshold {
		reason := fmt.Sprintf(
			"SYSTEM NOTE: The same action (%s) has already been executed %d times in a row. "+
				"Do NOT repeat it again. Choose a different action or finish if the goal is already achieved.",
			key, m.repeatCount,
		)
		return true, reason
	}

	if m.patternLen > 1 && len(m.recentKeys) >= m.patternLen-1 {
		start := len(m.recentKeys) - (m.patternLen - 1)
		if start < 0 {
			start = 0
		}
		seq := append([]string{}, m.recentKeys[start:]...)
		seq = append(seq, key)

		// Pure repeats (A->A) are the repeat counter's job.
		if len(seq) == m.patternLen && !allSame(seq) {
			pattern := strings.Join(seq, "->")
			if count := m.patternCounts[pattern]; count >= 1 {
				reason := fmt.Sprintf(
					"SYSTEM NOTE: The sequence of %d actions (%s) has already occurred before. "+
						"Do NOT repeat this pattern. Try a different action (for example, moving to the next item or finishing).",
					m.patternLen, pattern,
				)
				return true, reason
			}
		}
	}

	return false, ""
}

func allSame(keys []string) bool {
	for _, k := range keys[1:] {
		if k != keys[0] {
			return false
		}
	}
	return true
}

// AddSystemNote appends a note the model will see in its history.
func (m *StepMemory) AddSystemNote(note string) {
	note = strings.TrimSpace(note)
	if note == "" {
		return
	}
	m.fullLines = append(m.fullLines, note)
	m.appendLine(note)
}

func (m *StepMemory) appendLine(line string) {
	m.lines = append(m.lines, line)
	if len(m.lines) > m.maxLines {
		m.lines = m.lines[len(m.lines)-m.maxLines:]
	}
}

// HistoryString is the trimmed history fed into the decision prompt.
func (m *StepMemory) HistoryString() string {
	return strings.Join(m.lines, "\n")
}

// FullHistory is the untruncated trace for the final report.
func (m *StepMemory) FullHistory() []string {
	out := make([]string, len(m.fullLines))
	copy(out, m.fullLines)
	return out
}

func (m *StepMemory) MarkLoopTriggered() { m.loopTriggered = true }

func (m *StepMemory) LoopTriggered() bool { return m.loopTriggered }
