package ctxengine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/flemzord/confidant/internal/focus"
	"github.com/flemzord/confidant/internal/memory"
	"github.com/flemzord/confidant/internal/provider"
	"github.com/flemzord/confidant/internal/retrieval"
)

// FocusExtractor produces the focus block of a turn. It never fails.
type FocusExtractor interface {
	Extract(ctx context.Context, req focus.Request) string
}

// Retriever finds the facts and excerpts relevant to a query.
type Retriever interface {
	RetrieveFacts(ctx context.Context, query string, limit, minAgeDays int) ([]memory.Fact, error)
	RetrieveExcerpts(ctx context.Context, query string, limit int) ([]memory.Excerpt, error)
}

// PartKind labels a section of the assembled context.
type PartKind string

// PartKind values in assembly order.
const (
	PartFocus        PartKind = "focus"
	PartReply        PartKind = "reply"
	PartInstructions PartKind = "instructions"
	PartBase         PartKind = "base"
	PartFacts        PartKind = "facts"
	PartExcerpts     PartKind = "excerpts"
)

// Part is one non-empty section of the assembled context.
type Part struct {
	Kind   PartKind `json:"kind"`
	Text   string   `json:"text"`
	Tokens int      `json:"tokens"`
}

// AssemblyRequest contains the inputs for context assembly.
type AssemblyRequest struct {
	// BaseContext is the persona's system prompt.
	BaseContext string

	// UserMessage is the outgoing user text, used as retrieval query and
	// analysis input.
	UserMessage string

	Config         GenerationConfig
	Model          provider.ModelRef
	ConversationID string

	// ReplyTurn is the earlier turn the user is replying to, if any.
	ReplyTurn *memory.Turn
}

// AssemblyResult is the output of context assembly.
type AssemblyResult struct {
	RunID        string           `json:"run_id"`
	FullContext  string           `json:"full_context"`
	FocusText    string           `json:"focus_text,omitempty"`
	FactsUsed    []memory.Fact    `json:"facts_used"`
	ExcerptsUsed []memory.Excerpt `json:"excerpts_used"`
	Parts        []Part           `json:"parts"`
	Tokens       int              `json:"tokens"`
}

// Assembler orchestrates focus extraction and retrieval for a turn and
// joins the resulting sections with blank lines.
type Assembler struct {
	focus     FocusExtractor
	retriever Retriever
	estimator TokenEstimator
	config    AssemblerConfig
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time

	parts    *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewAssembler creates an Assembler. A nil logger uses slog.Default and a
// nil reg leaves the collectors unregistered.
func NewAssembler(fx FocusExtractor, r Retriever, cfg AssemblerConfig, logger *slog.Logger, reg prometheus.Registerer) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	f := promauto.With(reg)
	return &Assembler{
		focus:     fx,
		retriever: r,
		estimator: NewCharEstimator(cfg.CharsPerToken),
		config:    cfg,
		logger:    logger.With("component", "assembler"),
		tracer:    otel.Tracer("github.com/flemzord/confidant/internal/context"),
		now:       time.Now,
		parts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "confidant",
			Subsystem: "assembler",
			Name:      "parts_total",
			Help:      "Context sections emitted by kind.",
		}, []string{"kind"}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "confidant",
			Subsystem: "assembler",
			Name:      "duration_seconds",
			Help:      "Duration of context assembly.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// WithClock overrides the clock used to bucket fact ages.
func (a *Assembler) WithClock(now func() time.Time) *Assembler {
	a.now = now
	return a
}

// enrichment holds the outputs of the optional steps.
type enrichment struct {
	focus    string
	facts    []memory.Fact
	excerpts []memory.Excerpt
}

// Assemble builds the context block of one turn.
//
// For local models only the base context is used. For remote models the
// sections are, in order: focus, reply, context instructions, base, facts,
// excerpts. Blank sections are omitted. Retrieval errors are returned;
// focus extraction failures only drop the focus section.
func (a *Assembler) Assemble(ctx context.Context, req AssemblyRequest) (_ AssemblyResult, err error) {
	runID := uuid.NewString()
	start := time.Now()

	ctx, span := a.tracer.Start(ctx, "ctxengine.Assemble", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.String("conversation_id", req.ConversationID),
		attribute.String("model", req.Model.ID),
		attribute.Bool("remote", req.Model.IsRemote()),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		a.duration.Observe(time.Since(start).Seconds())
	}()

	res := AssemblyResult{RunID: runID}

	if !req.Model.IsRemote() {
		a.addPart(&res, PartBase, req.BaseContext)
		a.finish(&res)
		return res, nil
	}

	var en enrichment
	if a.config.ParallelRetrieval {
		en, err = a.enrichParallel(ctx, req)
	} else {
		en, err = a.enrichSequential(ctx, req)
	}
	if err != nil {
		return AssemblyResult{}, err
	}

	cfg := req.Config
	res.FocusText = en.focus
	res.FactsUsed = en.facts
	res.ExcerptsUsed = en.excerpts

	a.addPart(&res, PartFocus, en.focus)
	if req.ReplyTurn != nil && strings.TrimSpace(cfg.Templates.Swipe) != "" {
		a.addPart(&res, PartReply, strings.ReplaceAll(cfg.Templates.Swipe, ReplyPlaceholder, req.ReplyTurn.Text))
	}
	if len(en.facts) > 0 || len(en.excerpts) > 0 {
		a.addPart(&res, PartInstructions, cfg.Templates.ContextInstructions)
	}
	a.addPart(&res, PartBase, req.BaseContext)
	a.addPart(&res, PartFacts, retrieval.FormatFacts(en.facts, a.now(), cfg.Templates.MemoryTitle, cfg.Templates.MemoryInstructions))
	a.addPart(&res, PartExcerpts, retrieval.FormatExcerpts(en.excerpts, cfg.Templates.RAGTitle, cfg.Templates.RAGInstructions))

	a.finish(&res)

	a.logger.Debug("context assembled",
		"run_id", runID,
		"conversation_id", req.ConversationID,
		"parts", len(res.Parts),
		"facts", len(res.FactsUsed),
		"excerpts", len(res.ExcerptsUsed),
		"tokens", res.Tokens,
	)
	return res, nil
}

// enrichSequential runs focus, facts and excerpts one after the other.
func (a *Assembler) enrichSequential(ctx context.Context, req AssemblyRequest) (enrichment, error) {
	var (
		en  enrichment
		err error
	)
	if a.wantsFocus(req) {
		en.focus = a.focus.Extract(ctx, a.focusRequest(req))
	}
	if a.wantsFacts(req) {
		if en.facts, err = a.retrieveFacts(ctx, req); err != nil {
			return enrichment{}, err
		}
	}
	if a.wantsExcerpts(req) {
		if en.excerpts, err = a.retrieveExcerpts(ctx, req); err != nil {
			return enrichment{}, err
		}
	}
	return en, nil
}

// enrichParallel runs the three steps concurrently. Each goroutine owns
// one field of the result.
func (a *Assembler) enrichParallel(ctx context.Context, req AssemblyRequest) (enrichment, error) {
	var en enrichment
	g, gctx := errgroup.WithContext(ctx)

	if a.wantsFocus(req) {
		g.Go(func() error {
			en.focus = a.focus.Extract(gctx, a.focusRequest(req))
			return nil
		})
	}
	if a.wantsFacts(req) {
		g.Go(func() error {
			facts, err := a.retrieveFacts(gctx, req)
			en.facts = facts
			return err
		})
	}
	if a.wantsExcerpts(req) {
		g.Go(func() error {
			excerpts, err := a.retrieveExcerpts(gctx, req)
			en.excerpts = excerpts
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return enrichment{}, err
	}
	return en, nil
}

func (a *Assembler) wantsFocus(req AssemblyRequest) bool {
	return a.focus != nil && req.Config.DeepEmpathyEnabled
}

func (a *Assembler) wantsFacts(req AssemblyRequest) bool {
	return a.retriever != nil && req.Config.MemoryEnabled && req.Config.MemoryLimit > 0
}

func (a *Assembler) wantsExcerpts(req AssemblyRequest) bool {
	return a.retriever != nil && req.Config.RAGEnabled && req.Config.RAGChunkLimit > 0
}

func (a *Assembler) focusRequest(req AssemblyRequest) focus.Request {
	temp := req.Config.Temperature
	return focus.Request{
		Model:             req.Model,
		UserText:          req.UserMessage,
		AnalysisTemplate:  req.Config.Templates.DeepEmpathyAnalysis,
		FocusTemplate:     req.Config.Templates.DeepEmpathy,
		CallerTemperature: &temp,
	}
}

func (a *Assembler) retrieveFacts(ctx context.Context, req AssemblyRequest) ([]memory.Fact, error) {
	facts, err := a.retriever.RetrieveFacts(ctx, req.UserMessage, req.Config.MemoryLimit, req.Config.MemoryMinAgeDays)
	if err != nil {
		return nil, fmt.Errorf("ctxengine: retrieving facts: %w", err)
	}
	return facts, nil
}

func (a *Assembler) retrieveExcerpts(ctx context.Context, req AssemblyRequest) ([]memory.Excerpt, error) {
	excerpts, err := a.retriever.RetrieveExcerpts(ctx, req.UserMessage, req.Config.RAGChunkLimit)
	if err != nil {
		return nil, fmt.Errorf("ctxengine: retrieving excerpts: %w", err)
	}
	return excerpts, nil
}

// addPart appends a section unless it is blank.
func (a *Assembler) addPart(res *AssemblyResult, kind PartKind, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	res.Parts = append(res.Parts, Part{Kind: kind, Text: text, Tokens: a.estimator.Estimate(text)})
	a.parts.WithLabelValues(string(kind)).Inc()
}

// finish joins the parts into the context block and estimates its size.
func (a *Assembler) finish(res *AssemblyResult) {
	texts := make([]string, len(res.Parts))
	for i, p := range res.Parts {
		texts[i] = p.Text
	}
	res.FullContext = strings.Join(texts, "\n\n")
	res.Tokens = EstimateSystemPrompt(a.estimator, texts)
}
