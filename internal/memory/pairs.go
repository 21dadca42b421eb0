package memory

import "github.com/flemzord/confidant/internal/provider"

// Pair is a user turn immediately followed by an assistant turn.
type Pair struct {
	User      Turn
	Assistant Turn
}

// SplitPairs scans turns left to right. A user turn directly followed by an
// assistant turn forms a pair and both are consumed; any other turn is
// skipped. When the last turn is a user turn it is returned as trailing.
func SplitPairs(turns []Turn) (pairs []Pair, trailing *Turn) {
	for i := 0; i < len(turns); {
		if i+1 < len(turns) &&
			turns[i].Role == provider.MessageRoleUser &&
			turns[i+1].Role == provider.MessageRoleAssistant {
			pairs = append(pairs, Pair{User: turns[i], Assistant: turns[i+1]})
			i += 2
			continue
		}
		i++
	}

	if n := len(turns); n > 0 && turns[n-1].Role == provider.MessageRoleUser {
		last := turns[n-1]
		trailing = &last
	}
	return pairs, trailing
}

// Flatten returns the turns of pairs in order.
func Flatten(pairs []Pair) []Turn {
	out := make([]Turn, 0, 2*len(pairs))
	for _, p := range pairs {
		out = append(out, p.User, p.Assistant)
	}
	return out
}

// LastPairs returns the flattened turns of the last n pairs found in turns.
func LastPairs(turns []Turn, n int) []Turn {
	if n <= 0 {
		return []Turn{}
	}
	pairs, _ := SplitPairs(turns)
	if len(pairs) > n {
		pairs = pairs[len(pairs)-n:]
	}
	return Flatten(pairs)
}
