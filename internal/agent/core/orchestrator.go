package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"draftqa/internal/agent/telemetry"
	"draftqa/provider"
)

const (
	// maxSynthesisAttempts bounds the verification loop: one draft plus one
	// corrected re-synthesis.
	maxSynthesisAttempts = 2
	// generationRetries is the orchestrator-level retry budget for an
	// unavailable model service, per synthesis attempt.
	generationRetries = 1
	// maxSourceExcerpt bounds the excerpt surfaced per source in the envelope.
	maxSourceExcerpt = 500
)

// State names for the request lifecycle.
type State string

const (
	StatePlanning     State = "planning"
	StateGathering    State = "retrieving_evaluating"
	StateSynthesizing State = "synthesizing"
	StateVerifying    State = "verifying"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// RequestStatus tracks one in-flight answer request.
type RequestStatus struct {
	ID          string    `json:"id"`
	State       State     `json:"state"`
	Attempts    int       `json:"attempts"`
	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
}

// Orchestrator sequences planning, parallel retrieval/evaluation, synthesis
// and grounding verification into one request lifecycle, and assembles the
// response envelope. Every terminal path emits an Answer except
// unrecoverable retrieval or generation failures.
type Orchestrator struct {
	logger      *log.Logger
	telemetry   *telemetry.Telemetry
	planner     *Planner
	retriever   Retriever
	sessions    SessionReader
	synthesizer *Synthesizer
	timeout     time.Duration

	mu         sync.RWMutex
	processing map[string]*RequestStatus
}

// NewOrchestrator wires the pipeline components together. timeout is the
// overall per-request deadline.
func NewOrchestrator(planner *Planner, retriever Retriever, sessions SessionReader, synthesizer *Synthesizer, tele *telemetry.Telemetry, timeout time.Duration, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.New(log.Writer(), "[ORCH] ", log.LstdFlags)
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Orchestrator{
		logger:      logger,
		telemetry:   tele,
		planner:     planner,
		retriever:   retriever,
		sessions:    sessions,
		synthesizer: synthesizer,
		timeout:     timeout,
		processing:  make(map[string]*RequestStatus),
	}
}

// GetStatus returns the lifecycle state of an in-flight request.
func (o *Orchestrator) GetStatus(requestID string) (RequestStatus, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	status, ok := o.processing[requestID]
	if !ok {
		return RequestStatus{}, fmt.Errorf("request not found: %s", requestID)
	}
	return *status, nil
}

func (o *Orchestrator) updateState(status *RequestStatus, state State) {
	o.mu.Lock()
	status.State = state
	status.LastUpdated = time.Now()
	o.mu.Unlock()
}

// Answer runs the full lifecycle for one question on behalf of user.
func (o *Orchestrator) Answer(ctx context.Context, user string, q Question) (Answer, error) {
	start := time.Now()
	requestID := uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	status := &RequestStatus{ID: requestID, State: StatePlanning, CreatedAt: start, LastUpdated: start}
	o.mu.Lock()
	o.processing[requestID] = status
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		delete(o.processing, requestID)
		o.mu.Unlock()
	}()

	objects, err := o.sessions.GetObjects(ctx, user)
	if err != nil {
		o.updateState(status, StateFailed)
		o.telemetry.RecordAnswer("unknown", "error", time.Since(start))
		return Answer{}, fmt.Errorf("reading session objects: %w", err)
	}

	summary := Summarize(objects)
	plan := o.planner.Plan(q, summary)
	o.logger.Printf("request %s: strategy=%s top_k=%d", requestID, plan.Strategy, plan.TopK)

	o.updateState(status, StateGathering)

	// Retrieval and object evaluation have no data dependency and run
	// concurrently; synthesis strictly follows both.
	var (
		hits   []RetrievedChunk
		checks []ObjectCheck
	)
	g, gctx := errgroup.WithContext(ctx)
	if plan.NeedsDocuments() {
		g.Go(func() error {
			searchStart := time.Now()
			result, err := o.retriever.Search(gctx, q.Text, plan.TopK, nil)
			o.telemetry.RecordRetrieval(time.Since(searchStart), err)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			hits = result
			return nil
		})
	}
	if plan.NeedsObjects() {
		g.Go(func() error {
			checks = Evaluate(objects, plan)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		o.updateState(status, StateFailed)
		o.telemetry.RecordAnswer(string(plan.Strategy), "error", time.Since(start))
		return Answer{}, err
	}

	used := SelectContext(plan, hits)

	draft, verified, unverified, err := o.synthesizeVerified(ctx, status, q, plan, used, summary, checks)
	if err != nil {
		o.updateState(status, StateFailed)
		o.telemetry.RecordAnswer(string(plan.Strategy), "error", time.Since(start))
		return Answer{}, err
	}

	answer := Answer{
		ID:            requestID,
		Text:          draft.Text,
		Evidence:      verified,
		ObjectSummary: summary,
		Sources:       sourceRefs(used),
		Plan:          plan,
		ObjectChecks:  checks,
		Unverified:    unverified,
	}
	if answer.Evidence == nil {
		answer.Evidence = []Evidence{}
	}
	if answer.ObjectChecks == nil {
		answer.ObjectChecks = []ObjectCheck{}
	}
	if answer.Sources == nil {
		answer.Sources = []SourceRef{}
	}

	o.updateState(status, StateDone)
	outcome := "ok"
	if unverified {
		outcome = "degraded"
	}
	o.telemetry.RecordAnswer(string(plan.Strategy), outcome, time.Since(start))
	o.logger.Printf("request %s: done in %v (attempts=%d, unverified=%t)", requestID, time.Since(start), status.Attempts, unverified)

	return answer, nil
}

// synthesizeVerified runs the bounded synthesize→verify loop. Attempt
// counters are plain values; there is no hidden recursion, so the context
// deadline bounds the whole loop uniformly.
func (o *Orchestrator) synthesizeVerified(ctx context.Context, status *RequestStatus, q Question, plan Plan, used []RetrievedChunk, summary ObjectSummary, checks []ObjectCheck) (Draft, []Evidence, bool, error) {
	mustVerify := q.QuoteMode || plan.Strategy == StrategyHybrid

	var (
		draft    Draft
		verified []Evidence
	)
	correction := ""

	for attempt := 1; attempt <= maxSynthesisAttempts; attempt++ {
		o.mu.Lock()
		status.Attempts = attempt
		o.mu.Unlock()

		o.updateState(status, StateSynthesizing)
		o.telemetry.RecordSynthesisAttempt()

		var err error
		draft, err = o.generateWithRetry(ctx, q, plan, used, summary, checks, correction)
		if err != nil {
			return Draft{}, nil, false, err
		}

		if draft.Direct {
			// Deterministic answers carry no document claims.
			return draft, nil, false, nil
		}

		o.updateState(status, StateVerifying)
		var grounded bool
		verified, grounded = VerifyEvidence(draft.Evidence, used)

		// A document-derived claim without surviving evidence is as bad as a
		// wrong quote.
		claimsDocument := mustVerify && draft.Text != InsufficientInfo
		if grounded && (!claimsDocument || len(verified) > 0) {
			return draft, verified, false, nil
		}

		o.telemetry.RecordGroundingFailure()
		if !mustVerify {
			// No grounding guarantee was requested: drop the bad quotes and
			// keep whatever survived.
			return draft, verified, false, nil
		}

		if attempt < maxSynthesisAttempts {
			correction = "previous quote not found verbatim; quote exactly from the provided text"
			o.logger.Printf("grounding failed, re-synthesizing once")
		}
	}

	// Verification bound exhausted: degrade, never fabricate.
	o.telemetry.RecordUnverified()
	if len(verified) == 0 {
		draft.Text = UnverifiedAnswer
	}
	return draft, verified, true, nil
}

// generateWithRetry calls the synthesizer, retrying once when the model
// service is unavailable before surfacing the failure.
func (o *Orchestrator) generateWithRetry(ctx context.Context, q Question, plan Plan, used []RetrievedChunk, summary ObjectSummary, checks []ObjectCheck, correction string) (Draft, error) {
	var lastErr error
	for try := 0; try <= generationRetries; try++ {
		draft, err := o.synthesizer.Synthesize(ctx, q, plan, used, summary, checks, correction)
		if err == nil {
			return draft, nil
		}
		lastErr = err
		if !errors.Is(err, provider.ErrUnavailable) {
			break
		}
		o.telemetry.RecordGenerationError()
		if ctx.Err() != nil {
			break
		}
		o.logger.Printf("generation unavailable, retrying: %v", err)
	}
	return Draft{}, lastErr
}

func sourceRefs(used []RetrievedChunk) []SourceRef {
	refs := make([]SourceRef, 0, len(used))
	for _, h := range used {
		excerpt := cleanWS(h.Text)
		if len(excerpt) > maxSourceExcerpt {
			excerpt = excerpt[:maxSourceExcerpt]
		}
		refs = append(refs, SourceRef{
			ChunkID: h.ChunkID,
			DocID:   h.DocID,
			Page:    h.Page,
			Kind:    h.Kind,
			Score:   h.Score,
			Excerpt: excerpt,
		})
	}
	return refs
}
