package llm

import "context"

type ActionType string

const (
	ActionClick     ActionType = "click"
	ActionTypeInput ActionType = "type"
	ActionScroll    ActionType = "scroll_down"
	ActionWaitLogin ActionType = "wait_login"
	ActionFinish    ActionType = "finish"
)

type Action struct {
	Type          ActionType `json:"type"`
	TargetID      int        `json:"target_id,omitempty"`
	Text          string     `json:"text,omitempty"`
	Submit        bool       `json:"submit,omitempty"`
	IsDestructive bool       `json:"is_destructive,omitempty"`
}

type DecisionInput struct {
	Task             string
	DOMTree          string
	CurrentURL       string
	History          string
	ScreenshotBase64 string
}

type DecisionOutput struct {
	CurrentPhase string `json:"current_phase"`
	Observation  string `json:"observation"`
	Thought      string `json:"thought"`
	StepDone     bool   `json:"step_done,omitempty"`
	Action       Action `json:"action"`
}

type SummaryInput struct {
	Task        string
	ExitReason  string
	FinalURL    string
	FinalAction Action
	Duration    string
	Steps       []string
}

type Client interface {
	DecideAction(ctx context.Context, input DecisionInput) (*DecisionOutput, error)
	SummarizeRun(ctx context.Context, input SummaryInput) (string, error)
}
