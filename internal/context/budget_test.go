package ctxengine_test

import (
	"strings"
	"testing"

	ctxengine "github.com/flemzord/confidant/internal/context"
	"github.com/flemzord/confidant/internal/provider"
)

func TestCharEstimator(t *testing.T) {
	t.Parallel()

	e := ctxengine.NewCharEstimator(0)
	if e.CharsPerToken != 4 {
		t.Fatalf("default ratio = %v, want 4", e.CharsPerToken)
	}
	if got := e.Estimate(""); got != 0 {
		t.Errorf("Estimate(\"\") = %d, want 0", got)
	}
	if got := e.Estimate("abcdefgh"); got != 3 {
		t.Errorf("Estimate(8 chars) = %d, want 3", got)
	}
}

func TestContextBudget(t *testing.T) {
	t.Parallel()

	b := ctxengine.ContextBudget{WindowSize: 100, System: 30, History: 40, Reserved: 20}
	if b.Used() != 90 || b.Available() != 10 || b.Exceeded() {
		t.Errorf("budget = used %d avail %d exceeded %v", b.Used(), b.Available(), b.Exceeded())
	}

	b.History = 60
	if b.Available() != 0 || !b.Exceeded() {
		t.Errorf("over budget: avail %d exceeded %v", b.Available(), b.Exceeded())
	}

	if (ctxengine.ContextBudget{System: 1000}).Exceeded() {
		t.Error("budget without a window must never be exceeded")
	}
}

func TestTrimHistory(t *testing.T) {
	t.Parallel()

	est := &mockEstimator{}
	msgs := makeTestMessages(6) // each costs 4 + 5 = 9

	if got := ctxengine.TrimHistory(est, msgs, 1000); len(got) != 6 {
		t.Errorf("no trim needed: len = %d, want 6", len(got))
	}
	got := ctxengine.TrimHistory(est, msgs, 27)
	if len(got) != 3 || got[0].Content != "msg-3" {
		t.Errorf("TrimHistory(27) = %+v", got)
	}
	if got := ctxengine.TrimHistory(est, msgs, 0); len(got) != 1 || got[0].Content != "msg-5" {
		t.Errorf("TrimHistory(0) must keep the last message, got %+v", got)
	}
	if ctxengine.EstimateMessages(est, msgs) != 54 {
		t.Errorf("EstimateMessages = %d, want 54", ctxengine.EstimateMessages(est, msgs))
	}
}

// fortyCharMessages returns n messages that each cost 4 + 11 tokens with
// the default estimator.
func fortyCharMessages(n int) []provider.LLMMessage {
	msgs := make([]provider.LLMMessage, n)
	for i := range msgs {
		msgs[i] = provider.LLMMessage{Role: provider.MessageRoleUser, Content: strings.Repeat(string(rune('a'+i)), 40)}
	}
	return msgs
}

func TestFitHistory_UnknownWindowKeepsAll(t *testing.T) {
	t.Parallel()

	a := newAssembler(&fakeFocus{}, &fakeRetriever{}, ctxengine.AssemblerConfig{})
	msgs := fortyCharMessages(5)

	got, b := a.FitHistory(ctxengine.AssemblyResult{Tokens: 20}, msgs, 10)
	if len(got) != 5 {
		t.Errorf("len = %d, want 5", len(got))
	}
	want := ctxengine.ContextBudget{System: 20, History: 75, Reserved: 10}
	if b != want {
		t.Errorf("budget = %+v, want %+v", b, want)
	}
	if b.Exceeded() {
		t.Error("unknown window must never be exceeded")
	}
}

func TestFitHistory_TrimsOldestToWindow(t *testing.T) {
	t.Parallel()

	a := newAssembler(&fakeFocus{}, &fakeRetriever{}, ctxengine.AssemblerConfig{ContextWindow: 80})
	msgs := fortyCharMessages(5)

	got, b := a.FitHistory(ctxengine.AssemblyResult{Tokens: 20}, msgs, 10)
	if len(got) != 3 || got[0].Content != msgs[2].Content || got[2].Content != msgs[4].Content {
		t.Fatalf("kept %d messages starting with %q", len(got), got[0].Content)
	}
	want := ctxengine.ContextBudget{WindowSize: 80, System: 20, History: 45, Reserved: 10}
	if b != want {
		t.Errorf("budget = %+v, want %+v", b, want)
	}
	if b.Exceeded() || b.Available() != 5 {
		t.Errorf("exceeded = %v, available = %d", b.Exceeded(), b.Available())
	}
}

func TestFitHistory_KeepsLatestMessage(t *testing.T) {
	t.Parallel()

	a := newAssembler(&fakeFocus{}, &fakeRetriever{}, ctxengine.AssemblerConfig{ContextWindow: 10})
	msgs := fortyCharMessages(3)

	got, b := a.FitHistory(ctxengine.AssemblyResult{Tokens: 20}, msgs, 10)
	if len(got) != 1 || got[0].Content != msgs[2].Content {
		t.Fatalf("got %+v, want only the latest message", got)
	}
	if !b.Exceeded() {
		t.Error("budget should stay exceeded when even the latest message does not fit")
	}
}
