package memory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// InheritanceResolver computes the bounded history window of a turn,
// optionally borrowing the trailing pairs of a source conversation.
type InheritanceResolver struct {
	source    PairSource
	logger    *slog.Logger
	fallbacks prometheus.Counter
	inherited prometheus.Counter
}

// NewInheritanceResolver creates a resolver reading source conversations
// from source. A nil logger uses slog.Default; a nil reg leaves the
// collectors unregistered.
func NewInheritanceResolver(source PairSource, logger *slog.Logger, reg prometheus.Registerer) *InheritanceResolver {
	if logger == nil {
		logger = slog.Default()
	}
	f := promauto.With(reg)
	return &InheritanceResolver{
		source: source,
		logger: logger.With("component", "inheritance"),
		fallbacks: f.NewCounter(prometheus.CounterOpts{
			Namespace: "confidant",
			Subsystem: "history",
			Name:      "inheritance_fallbacks_total",
			Help:      "Source conversation fetches that failed and fell back to current turns.",
		}),
		inherited: f.NewCounter(prometheus.CounterOpts{
			Namespace: "confidant",
			Subsystem: "history",
			Name:      "inherited_turns_total",
			Help:      "Turns borrowed from source conversations.",
		}),
	}
}

// Resolve returns the turns to send as history. Without a source
// conversation current is returned unchanged. Otherwise the result holds at
// most historyLimitPairs pairs plus the trailing user turn: inherited pairs
// first, then the current pairs, then the trailing turn. A failed source
// fetch falls back to current.
func (r *InheritanceResolver) Resolve(ctx context.Context, current []Turn, sourceConversationID string, historyLimitPairs int) []Turn {
	if sourceConversationID == "" {
		return current
	}

	pairs, trailing := SplitPairs(current)
	needed := max(0, historyLimitPairs-len(pairs))

	var out []Turn
	if needed == 0 {
		keep := max(0, historyLimitPairs)
		if len(pairs) > keep {
			pairs = pairs[len(pairs)-keep:]
		}
		out = Flatten(pairs)
	} else {
		inherited, err := r.source.FetchLastPairs(ctx, sourceConversationID, needed)
		if err != nil {
			r.fallbacks.Inc()
			r.logger.Warn("history inheritance unavailable, using current turns",
				"source", sourceConversationID,
				"error", fmt.Errorf("%w: %w", ErrInheritanceFetch, err),
			)
			return current
		}
		if len(inherited) > 2*needed {
			inherited = inherited[len(inherited)-2*needed:]
		}
		r.inherited.Add(float64(len(inherited)))

		out = make([]Turn, 0, len(inherited)+2*len(pairs)+1)
		out = append(out, inherited...)
		out = append(out, Flatten(pairs)...)
	}

	if trailing != nil {
		out = append(out, *trailing)
	}
	return out
}
