package classifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"exoplanet-classifier-be/internal/pkg/logger"
	"exoplanet-classifier-be/pkg/exo"
	"exoplanet-classifier-be/pkg/heldout"
	"exoplanet-classifier-be/pkg/llm"
	"exoplanet-classifier-be/pkg/rag/prompt"
	"exoplanet-classifier-be/pkg/rag/retriever"
	"exoplanet-classifier-be/pkg/vectorstore"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Stage is the step a classification reached.
type Stage string

const (
	StageIdle               Stage = "idle"
	StageResolvingStore     Stage = "resolving_store"
	StageRetrieving         Stage = "retrieving"
	StagePrompting          Stage = "prompting"
	StageAwaitingCompletion Stage = "awaiting_completion"
	StageDone               Stage = "done"
	StageFailed             Stage = "failed"
)

const (
	DefaultK         = 25
	DefaultMaxTokens = 5
)

// StoreResolver picks the bundle for a session, falling back to the default one.
type StoreResolver interface {
	Resolve(ctx context.Context, sessionID string) (*vectorstore.Bundle, error)
}

type Options struct {
	DefaultK          int
	MaxTokens         int
	Model             string
	CompletionTimeout time.Duration
}

type Request struct {
	Row       exo.Row
	SessionID string
	K         int
	Exclude   heldout.Excluder
	// WithEvidence keeps the retrieved neighbors in the result.
	WithEvidence bool
}

// Result is always returned; failures carry LabelError, a Reason and the stage where they happened.
type Result struct {
	Label          exo.Label
	Reason         string
	Stage          Stage
	FailedAt       Stage
	Neighbors      []retriever.Neighbor
	NeighborsUsed  int
	StoreKey       vectorstore.Key
	QueryEmbedding []float32
	RawResponse    string
	Err            error
}

// Classifier is stateless per call: the bundle is resolved on every request.
type Classifier struct {
	stores    StoreResolver
	retriever *retriever.Retriever
	llm       llm.LLMProvider
	opts      Options
	log       logger.ILogger
	tracer    trace.Tracer
}

func New(stores StoreResolver, r *retriever.Retriever, provider llm.LLMProvider, opts Options, log logger.ILogger) *Classifier {
	if opts.DefaultK <= 0 {
		opts.DefaultK = DefaultK
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.CompletionTimeout <= 0 {
		opts.CompletionTimeout = 30 * time.Second
	}
	return &Classifier{
		stores:    stores,
		retriever: r,
		llm:       provider,
		opts:      opts,
		log:       log,
		tracer:    otel.Tracer("exoplanet-classifier"),
	}
}

func (c *Classifier) DefaultK() int {
	return c.opts.DefaultK
}

// Classify runs one row through store resolution, retrieval, prompting and completion.
// It never retries and never mutates the bundle or the exclusion set.
func (c *Classifier) Classify(ctx context.Context, req Request) Result {
	ctx, span := c.tracer.Start(ctx, "classifier.Classify")
	defer span.End()

	k := req.K
	if k <= 0 {
		k = c.opts.DefaultK
	}
	span.SetAttributes(attribute.Int("rag.k", k), attribute.String("rag.session", req.SessionID))

	res := Result{Stage: StageIdle}
	fail := func(stage Stage, err error) Result {
		res.Label = exo.LabelError
		res.FailedAt = stage
		res.Stage = StageFailed
		res.Err = err
		res.Reason = reasonFor(stage, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, res.Reason)
		return res
	}
	advance := func(stage Stage) {
		res.Stage = stage
		span.AddEvent(string(stage))
	}

	if err := req.Row.Validate(); err != nil {
		return fail(StageIdle, err)
	}

	advance(StageResolvingStore)
	bundle, err := c.stores.Resolve(ctx, req.SessionID)
	if err != nil {
		return fail(StageResolvingStore, err)
	}
	res.StoreKey = bundle.Key

	advance(StageRetrieving)
	found, err := c.retriever.FindSimilar(ctx, req.Row, bundle, k, req.Exclude)
	if err != nil {
		return fail(StageRetrieving, err)
	}
	res.QueryEmbedding = found.QueryEmbedding
	res.NeighborsUsed = len(found.Neighbors)
	if req.WithEvidence {
		res.Neighbors = found.Neighbors
	}

	advance(StagePrompting)
	system, user, err := prompt.Build(req.Row, found.Rows())
	if err != nil {
		return fail(StagePrompting, err)
	}

	advance(StageAwaitingCompletion)
	raw, err := c.complete(ctx, system, user)
	if err != nil {
		return fail(StageAwaitingCompletion, &CompletionServiceError{Err: err})
	}
	res.RawResponse = raw

	label, ok := exo.NormalizeLabel(raw)
	if !ok {
		err := &UnexpectedLabelError{Raw: raw}
		c.log.Warn("CLASSIFIER", "Completion returned an unexpected label", map[string]interface{}{
			"raw":   raw,
			"store": string(bundle.Key),
		})
		return fail(StageAwaitingCompletion, err)
	}

	res.Label = label
	advance(StageDone)
	span.SetAttributes(attribute.String("rag.label", string(label)), attribute.Int("rag.neighbors", res.NeighborsUsed))
	return res
}

func (c *Classifier) complete(ctx context.Context, system, user string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.opts.CompletionTimeout)
	defer cancel()

	opts := []llm.Option{llm.WithTemperature(0), llm.WithMaxTokens(c.opts.MaxTokens)}
	if c.opts.Model != "" {
		opts = append(opts, llm.WithModel(c.opts.Model))
	}
	return c.llm.Chat(callCtx, []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: user},
	}, opts...)
}

func reasonFor(stage Stage, err error) string {
	var (
		malformed  *exo.MalformedRowError
		unexpected *UnexpectedLabelError
	)
	switch {
	case errors.As(err, &malformed):
		return malformed.Error()
	case errors.As(err, &unexpected):
		return fmt.Sprintf("model answered %q, expected CANDIDATE or FALSE POSITIVE", unexpected.Raw)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("%s timed out", stage)
	}
	return fmt.Sprintf("%s failed: %v", stage, err)
}
