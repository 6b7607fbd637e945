package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAction(t *testing.T) {
	tests := []struct {
		in   string
		want ActionType
	}{
		{"click", ActionClick},
		{"Click", ActionClick},
		{"type", ActionTypeInput},
		{"fill", ActionTypeInput},
		{"scroll_down", ActionScroll},
		{"scroll", ActionScroll},
		{"wait_login", ActionWaitLogin},
		{"wait_for_login", ActionWaitLogin},
		{"finish", ActionFinish},
		{"done", ActionFinish},
		{"teleport", ActionScroll},
		{"", ActionScroll},
	}

	for _, tc := range tests {
		a := Action{Type: ActionType(tc.in)}
		NormalizeAction(&a)
		assert.Equal(t, tc.want, a.Type, "normalize %q", tc.in)
	}
}

func TestNewOpenAIClientRequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewOpenAIClient("gpt-4o")
	assert.Error(t, err)
}
