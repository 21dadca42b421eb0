package provider

// MessageRole identifies the sender of a message in a conversation.
type MessageRole string

// MessageRole constants for conversation messages.
const (
	MessageRoleSystem    MessageRole = "system"
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// FinishReason describes why the model stopped generating.
type FinishReason string

// FinishReason constants for model completion termination.
const (
	FinishReasonStop      FinishReason = "stop"
	FinishReasonLength    FinishReason = "length"
	FinishReasonFiltering FinishReason = "filtering"
)

// CapabilityClass tells whether a model runs on-device or through a
// network provider. Enrichment features only apply to Remote models.
type CapabilityClass string

// CapabilityClass values.
const (
	ClassLocal  CapabilityClass = "local"
	ClassRemote CapabilityClass = "remote"
)

// ModelRef identifies the generation model selected for a turn.
type ModelRef struct {
	Provider string          `json:"provider" yaml:"provider"`
	ID       string          `json:"id" yaml:"id"`
	Class    CapabilityClass `json:"class" yaml:"class"`
}

// IsRemote reports whether the model is served by a network provider.
func (m ModelRef) IsRemote() bool {
	return m.Class == ClassRemote
}

// LLMMessage represents a single message in a conversation.
type LLMMessage struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// CompletionRequest is the input to a Provider.Stream call.
type CompletionRequest struct {
	Model       string       `json:"model"`
	System      string       `json:"system,omitempty"`
	Messages    []LLMMessage `json:"messages"`
	MaxTokens   int          `json:"max_tokens,omitempty"`
	Temperature *float64     `json:"temperature,omitempty"`
	TopP        *float64     `json:"top_p,omitempty"`
}

// StreamChunk represents one piece of a streaming completion response.
type StreamChunk struct {
	Content      string       `json:"content,omitempty"`
	FinishReason FinishReason `json:"finish_reason,omitempty"`
	Err          error        `json:"-"`
}

// Float returns a pointer to v, for the optional sampling fields of
// CompletionRequest.
func Float(v float64) *float64 {
	return &v
}
