package chat

import (
	"context"
	"strings"
	"time"

	"github.com/nevinnnnnnn/ARTIKLE/internal/adapter/generation"
	"github.com/nevinnnnnnn/ARTIKLE/internal/domain/entity"
	"github.com/nevinnnnnnn/ARTIKLE/internal/domain/repository"
	"github.com/nevinnnnnnn/ARTIKLE/internal/vectorstore"
	"github.com/nevinnnnnnn/ARTIKLE/pkg/config"
	"github.com/nevinnnnnnn/ARTIKLE/pkg/logger"
)

// notFoundAnswer is the canned reply when retrieval produced nothing
// usable. The generation backend is never invoked in that case.
const notFoundAnswer = "I couldn't find information in the document to answer your question."

// Orchestrator answers one question against one document:
// retrieve → assess → prompt → generate (streaming) → finalize, with
// error reachable from any step. Many requests may run concurrently;
// retrieval is read-only against the document's vector store.
type Orchestrator struct {
	stores    *vectorstore.Manager
	generator generation.Generator
	chatRepo  repository.ChatRepository
	log       *logger.Logger

	topK      int
	threshold float64
	policy    config.RelevancePolicy
	timeout   time.Duration
}

func NewOrchestrator(
	stores *vectorstore.Manager,
	generator generation.Generator,
	chatRepo repository.ChatRepository,
	cfg *config.Config,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		stores:    stores,
		generator: generator,
		chatRepo:  chatRepo,
		log:       log,
		topK:      cfg.TopKResults,
		threshold: cfg.SimilarityThreshold,
		policy:    cfg.RelevancePolicy,
		timeout:   cfg.ChatTimeout,
	}
}

// Stream runs the full chat flow and emits wire events on the returned
// channel. The channel closes after a terminal complete or error
// frame. The whole request, retrieval through the last generated
// fragment, is bounded by the configured timeout.
func (o *Orchestrator) Stream(ctx context.Context, userID, documentID, question string) <-chan Event {
	out := make(chan Event, 16)
	go func() {
		defer close(out)
		reqCtx, cancel := context.WithTimeout(ctx, o.timeout)
		defer cancel()
		o.run(reqCtx, userID, documentID, question, out)
	}()
	return out
}

func (o *Orchestrator) run(ctx context.Context, userID, documentID, question string, out chan<- Event) {
	// RETRIEVE. The always policy retrieves without a score floor so an
	// answer is attempted whenever the store has anything at all.
	searchThreshold := o.threshold
	if o.policy == config.PolicyAlways {
		searchThreshold = 0
	}
	store := o.stores.GetStore(documentID)
	chunks, err := store.SimilaritySearch(ctx, question, o.topK, searchThreshold)
	if err != nil {
		o.log.Error("retrieval failed", "document_id", documentID, "error", err)
		o.emit(ctx, out, Event{Type: EventError, Data: errorPayload{Message: "retrieval failed"}})
		o.persist(userID, documentID, question, nil, 0, 0, false)
		return
	}

	// ASSESS.
	topScore := 0.0
	for _, c := range chunks {
		if c.Score > topScore {
			topScore = c.Score
		}
	}
	relevant := o.assess(chunks, topScore)

	meta := Metadata{
		DocumentID:             documentID,
		Query:                  question,
		IsRelevant:             relevant,
		ContextChunksRetrieved: len(chunks),
		TopSimilarityScore:     topScore,
	}
	if !o.emit(ctx, out, Event{Type: EventMetadata, Data: meta}) {
		o.persist(userID, documentID, question, nil, topScore, len(chunks), false)
		return
	}

	// Nothing relevant: canned answer, no generation call.
	if !relevant {
		o.emit(ctx, out, Event{Type: EventText, Data: notFoundAnswer})
		o.emit(ctx, out, Event{Type: EventComplete, Data: completePayload{Status: "completed"}})
		answer := notFoundAnswer
		o.persist(userID, documentID, question, &answer, topScore, len(chunks), false)
		return
	}

	// PROMPT: deterministic concatenation in similarity-ranked order.
	var ctxBlock strings.Builder
	for i, c := range chunks {
		if i > 0 {
			ctxBlock.WriteString("\n\n")
		}
		ctxBlock.WriteString(c.Ref.ChunkText)
	}

	// GENERATE: forward fragments as they arrive, accumulating a full
	// copy for persistence. Backend errors terminate the stream; no
	// internal retry.
	frags, err := o.generator.Generate(ctx, ctxBlock.String(), question)
	if err != nil {
		o.log.Error("generation start failed", "document_id", documentID, "error", err)
		o.emit(ctx, out, Event{Type: EventError, Data: errorPayload{Message: "error generating response"}})
		o.persist(userID, documentID, question, nil, topScore, len(chunks), false)
		return
	}

	var full strings.Builder
	for {
		select {
		case frag, ok := <-frags:
			if !ok {
				// FINALIZE.
				answer := full.String()
				flagged := detectHallucination(answer, chunks)
				o.emit(ctx, out, Event{Type: EventComplete, Data: completePayload{Status: "completed", Flagged: flagged}})
				o.persist(userID, documentID, question, &answer, topScore, len(chunks), flagged)
				return
			}
			if frag.Err != nil {
				o.log.Error("generation stream failed", "document_id", documentID, "error", frag.Err)
				o.emit(ctx, out, Event{Type: EventError, Data: errorPayload{Message: "error generating response"}})
				o.persistPartial(userID, documentID, question, full.String(), topScore, len(chunks))
				return
			}
			full.WriteString(frag.Text)
			if !o.emit(ctx, out, Event{Type: EventText, Data: frag.Text}) {
				// Same outcome as the ctx.Done branch below: whichever
				// select loses the cancellation race, the exchange is
				// still recorded.
				o.emitFinal(out, Event{Type: EventError, Data: errorPayload{Message: "request timed out"}})
				o.persistPartial(userID, documentID, question, full.String(), topScore, len(chunks))
				return
			}
		case <-ctx.Done():
			// Timeout or caller gone: the generate context is cancelled
			// with us, so the backend call is abandoned, not detached.
			o.log.Warn("chat request cancelled", "document_id", documentID, "error", ctx.Err())
			o.emitFinal(out, Event{Type: EventError, Data: errorPayload{Message: "request timed out"}})
			o.persistPartial(userID, documentID, question, full.String(), topScore, len(chunks))
			return
		}
	}
}

func (o *Orchestrator) assess(chunks []entity.ScoredChunk, topScore float64) bool {
	switch o.policy {
	case config.PolicyMaxScore:
		return len(chunks) > 0 && topScore >= o.threshold
	case config.PolicyAlways:
		return len(chunks) > 0
	default: // PolicyAnyChunk: the search already applied the threshold.
		return len(chunks) > 0
	}
}

// emit sends unless the request is done. Returns false when the
// consumer is gone.
func (o *Orchestrator) emit(ctx context.Context, out chan<- Event, ev Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// emitFinal delivers a terminal frame best-effort after the request
// context is already done; the channel buffer usually still has room.
func (o *Orchestrator) emitFinal(out chan<- Event, ev Event) {
	select {
	case out <- ev:
	default:
	}
}

// persist appends the exchange. Uses its own context: the request may
// already be cancelled, and history must still be written.
func (o *Orchestrator) persist(userID, documentID, question string, answer *string, score float64, chunkCount int, flagged bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	msg := &entity.ChatMessage{
		UserID:         userID,
		DocumentID:     documentID,
		Question:       question,
		Answer:         answer,
		RelevanceScore: score,
		ContextChunks:  chunkCount,
		Flagged:        flagged,
	}
	if err := o.chatRepo.Create(ctx, msg); err != nil {
		o.log.Error("failed to persist chat message", "document_id", documentID, "error", err)
	}
}

// persistPartial keeps whatever text streamed before a failure; nil
// answer when nothing streamed at all.
func (o *Orchestrator) persistPartial(userID, documentID, question, partial string, score float64, chunkCount int) {
	var answer *string
	if partial != "" {
		answer = &partial
	}
	o.persist(userID, documentID, question, answer, score, chunkCount, false)
}
