package ctxengine_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/flemzord/confidant/internal/focus"
	"github.com/flemzord/confidant/internal/memory"
	"github.com/flemzord/confidant/internal/provider"
)

// callLog records the order in which collaborators run.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, name)
}

func (l *callLog) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fmt.Sprint(l.calls)
}

type fakeFocus struct {
	log    *callLog
	result string
	last   focus.Request
}

func (f *fakeFocus) Extract(_ context.Context, req focus.Request) string {
	f.log.add("focus")
	f.last = req
	return f.result
}

type fakeRetriever struct {
	log         *callLog
	facts       []memory.Fact
	excerpts    []memory.Excerpt
	factsErr    error
	excerptsErr error
}

func (r *fakeRetriever) RetrieveFacts(_ context.Context, _ string, limit, _ int) ([]memory.Fact, error) {
	r.log.add("facts")
	if r.factsErr != nil {
		return nil, r.factsErr
	}
	if len(r.facts) > limit {
		return r.facts[:limit], nil
	}
	return r.facts, nil
}

func (r *fakeRetriever) RetrieveExcerpts(_ context.Context, _ string, limit int) ([]memory.Excerpt, error) {
	r.log.add("excerpts")
	if r.excerptsErr != nil {
		return nil, r.excerptsErr
	}
	if len(r.excerpts) > limit {
		return r.excerpts[:limit], nil
	}
	return r.excerpts, nil
}

// mockEstimator implements ctxengine.TokenEstimator for tests.
type mockEstimator struct{}

func (m *mockEstimator) Estimate(text string) int { return len(text) }

// makeTestMessages creates n alternating user/assistant messages.
func makeTestMessages(n int) []provider.LLMMessage {
	msgs := make([]provider.LLMMessage, n)
	for i := range msgs {
		role := provider.MessageRoleUser
		if i%2 == 1 {
			role = provider.MessageRoleAssistant
		}
		msgs[i] = provider.LLMMessage{Role: role, Content: fmt.Sprintf("msg-%d", i)}
	}
	return msgs
}
