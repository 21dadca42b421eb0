// Package ctxengine composes the per-turn context block: focus analysis,
// reply quoting, retrieved facts and excerpts around the caller's base
// context, plus token accounting for the resulting prompt.
package ctxengine

// ReplyPlaceholder is replaced by the quoted turn in the swipe template.
// The analysis and focus placeholders belong to package focus.
const ReplyPlaceholder = "{{reply}}"

// Templates holds the prompt templates of a persona.
type Templates struct {
	// DeepEmpathy renders the focus block; {{focus}} receives the points.
	DeepEmpathy string `yaml:"deep_empathy" json:"deep_empathy"`
	// DeepEmpathyAnalysis is the analysis prompt; {{message}} receives the user text.
	DeepEmpathyAnalysis string `yaml:"deep_empathy_analysis" json:"deep_empathy_analysis"`
	// ContextInstructions precedes the base context when anything was retrieved.
	ContextInstructions string `yaml:"context_instructions" json:"context_instructions"`
	// Swipe renders the reply block; {{reply}} receives the quoted turn text.
	Swipe              string `yaml:"swipe" json:"swipe"`
	MemoryTitle        string `yaml:"memory_title" json:"memory_title"`
	MemoryInstructions string `yaml:"memory_instructions" json:"memory_instructions"`
	RAGTitle           string `yaml:"rag_title" json:"rag_title"`
	RAGInstructions    string `yaml:"rag_instructions" json:"rag_instructions"`
}

// GenerationConfig is the per-call generation and enrichment setup. It is
// passed by value and never mutated.
type GenerationConfig struct {
	Temperature        float64   `yaml:"temperature" json:"temperature"`
	TopP               float64   `yaml:"top_p" json:"top_p"`
	MaxTokens          int       `yaml:"max_tokens" json:"max_tokens"`
	HistoryLimitPairs  int       `yaml:"history_limit_pairs" json:"history_limit_pairs"`
	DeepEmpathyEnabled bool      `yaml:"deep_empathy_enabled" json:"deep_empathy_enabled"`
	MemoryEnabled      bool      `yaml:"memory_enabled" json:"memory_enabled"`
	RAGEnabled         bool      `yaml:"rag_enabled" json:"rag_enabled"`
	MemoryLimit        int       `yaml:"memory_limit" json:"memory_limit"`
	MemoryMinAgeDays   int       `yaml:"memory_min_age_days" json:"memory_min_age_days"`
	RAGChunkLimit      int       `yaml:"rag_chunk_limit" json:"rag_chunk_limit"`
	Templates          Templates `yaml:"templates" json:"templates"`
}

// DefaultGenerationConfig returns the settings used when a persona does
// not override them.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Temperature:       0.7,
		TopP:              0.95,
		MaxTokens:         1024,
		HistoryLimitPairs: 10,
		MemoryLimit:       5,
		MemoryMinAgeDays:  1,
		RAGChunkLimit:     3,
		Templates: Templates{
			DeepEmpathy: "The user's message touches on: {{focus}}. Acknowledge these feelings with care.",
			DeepEmpathyAnalysis: "Identify the emotionally salient topics in the message below. " +
				"Answer only with JSON of the form " +
				`{"focus_points": ["topic"], "is_strong_focus": [true]}` +
				".\n\nMessage:\n{{message}}",
			ContextInstructions: "Use the memories and documents below only when they help answer the user.",
			Swipe:               "The user is replying to this earlier message:\n\"{{reply}}\"",
			MemoryTitle:         "Memories",
			RAGTitle:            "Documents",
		},
	}
}

// AssemblerConfig holds the tuning knobs for the assembler.
type AssemblerConfig struct {
	// ParallelRetrieval runs focus extraction, fact retrieval and excerpt
	// retrieval concurrently. The assembled output is identical.
	ParallelRetrieval bool `yaml:"parallel_retrieval"`

	// CharsPerToken drives the token estimate of each part. 0 means 4.
	CharsPerToken float64 `yaml:"chars_per_token"`

	// ContextWindow is the generation model's window in tokens. When set,
	// FitHistory drops the oldest history messages that do not fit.
	// 0 means unknown.
	ContextWindow int `yaml:"context_window"`
}
