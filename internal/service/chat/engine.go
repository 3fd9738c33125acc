// Package chat implements the conversation session engine: session identity,
// per-turn intent dispatch, the rating/feedback state machine, and the
// idempotent transcript upsert.
package chat

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/Utkarsh-Jha-MSAIB/NFL-Insight-Assistant/internal/analysis/intent"
	"github.com/Utkarsh-Jha-MSAIB/NFL-Insight-Assistant/internal/model/chat"
	"github.com/Utkarsh-Jha-MSAIB/NFL-Insight-Assistant/internal/transcript"
)

var ErrEmptyMessage = errors.New("message text is required")

// Generator produces a grounded answer for a scouting question.
type Generator interface {
	GenerateAnswer(ctx context.Context, query string, history []chat.Turn, docContext string) (string, error)
}

// ContextProvider surfaces relevant corpus excerpts for a query. An empty
// result is valid; the provider never fails fatally.
type ContextProvider interface {
	DocumentContext(query string) string
}

// ScheduleOutcome is the result of a free-text booking attempt.
type ScheduleOutcome struct {
	Success   bool
	EventTime string
	Err       string
}

// Scheduler books consultation calls from free-text requests.
type Scheduler interface {
	ScheduleCall(ctx context.Context, freeText string) ScheduleOutcome
}

// Config tunes the engine thresholds.
type Config struct {
	// RatingThreshold is the post-append turn count (user + assistant) at
	// which the engine asks for a rating. Zero means the default of 10.
	RatingThreshold int
	// CallSuggestionTurn is the exact post-append turn count at which the
	// reply carries the scheduling hint. Zero means the default of 6.
	CallSuggestionTurn int
	// HistoryLimit caps how many prior turns are passed to generation.
	HistoryLimit int
	// CollaboratorTimeout bounds generation and calendar calls.
	CollaboratorTimeout time.Duration
	// StrictPersistence makes transcript failures surface to the caller
	// instead of being logged and swallowed.
	StrictPersistence bool
}

func (c Config) withDefaults() Config {
	if c.RatingThreshold <= 0 {
		c.RatingThreshold = 10
	}
	if c.CallSuggestionTurn <= 0 {
		c.CallSuggestionTurn = 6
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = 5
	}
	if c.CollaboratorTimeout <= 0 {
		c.CollaboratorTimeout = 30 * time.Second
	}
	return c
}

// Reply is what one inbound message produces.
type Reply struct {
	Text                string
	SessionID           string
	OfferSchedulingHint bool
}

// Engine ties registry, classifier, state machine, collaborators, and
// transcript store together per inbound message. Collaborators may be nil;
// the engine degrades to its fixed fallback replies.
type Engine struct {
	registry  *Registry
	store     transcript.Store
	generator Generator
	docs      ContextProvider
	scheduler Scheduler
	cfg       Config
}

// NewEngine wires an engine from its collaborators.
func NewEngine(store transcript.Store, generator Generator, docs ContextProvider, scheduler Scheduler, cfg Config) *Engine {
	return &Engine{
		registry:  NewRegistry(),
		store:     store,
		generator: generator,
		docs:      docs,
		scheduler: scheduler,
		cfg:       cfg.withDefaults(),
	}
}

// HandleMessage processes one inbound user message end to end: resolve the
// session, classify, run the state machine, call collaborators as needed,
// append both turns, and upsert the transcript row.
//
// Collaborator calls run without the session lock held; the state mutation
// itself is atomic relative to other operations on the same session.
func (e *Engine) HandleMessage(ctx context.Context, sessionID, message string) (Reply, error) {
	if strings.TrimSpace(message) == "" {
		return Reply{}, ErrEmptyMessage
	}

	id, sess := e.registry.Resolve(sessionID)

	sess.mu.Lock()
	if sess.data.Completed() {
		sess.mu.Unlock()
		return Reply{Text: completedReply, SessionID: id}, nil
	}

	var replyText string
	switch intent.Classify(message, sess.data.State) {
	case intent.RatingReply:
		rating, ok := intent.ParseRating(message)
		if !ok {
			// Re-prompt without appending turns or touching the transcript.
			sess.mu.Unlock()
			return Reply{Text: ratingRepromptReply, SessionID: id}, nil
		}
		sess.data.Rating = rating
		sess.data.State = chat.StateAwaitingFeedback
		replyText = ratingThanksReply

	case intent.FeedbackReply:
		sess.data.Feedback = message
		sess.data.State = chat.StateCompleted
		e.registry.MarkCompleted(id)
		replyText = closingReply

	case intent.Greeting:
		replyText = greetingReply(message)

	case intent.ButtonShortcut:
		topic, _ := intent.Topic(message)
		if canned, ok := topicResponses[topic]; ok {
			replyText = canned
			break
		}
		// Unknown topic behind the button prefix: single-shot generation.
		sess.mu.Unlock()
		replyText = e.generate(ctx, "Tell me about "+topic, nil, "")
		sess.mu.Lock()
		if sess.data.Completed() {
			sess.mu.Unlock()
			return Reply{Text: completedReply, SessionID: id}, nil
		}

	case intent.Scheduling:
		sess.mu.Unlock()
		outcome := e.scheduleCall(ctx, message)
		sess.mu.Lock()
		if sess.data.Completed() {
			sess.mu.Unlock()
			return Reply{Text: completedReply, SessionID: id}, nil
		}
		if outcome.Success {
			sess.data.State = chat.StateAwaitingRating
			sess.data.CallScheduled = true
			sess.data.TurnCount = 0
			replyText = schedulingSuccessReply(outcome.EventTime)
		} else {
			if outcome.Err != "" {
				log.Printf("[engine] scheduling failed for session=%s: %s", id, outcome.Err)
			}
			replyText = schedulingFailedReply
		}

	default: // intent.GeneralQuery
		history := snapshotHistory(sess.data.Turns, e.cfg.HistoryLimit)
		sess.mu.Unlock()
		docContext := e.documentContext(message)
		replyText = e.generate(ctx, message, history, docContext)
		sess.mu.Lock()
		if sess.data.Completed() {
			sess.mu.Unlock()
			return Reply{Text: completedReply, SessionID: id}, nil
		}
	}

	replyText = e.appendExchange(sess, message, replyText)
	row := transcript.Derive(&sess.data)
	hint := sess.data.TurnCount == e.cfg.CallSuggestionTurn && sess.data.State == chat.StateActive
	sess.mu.Unlock()

	if err := e.persist(ctx, row); err != nil {
		return Reply{}, err
	}
	return Reply{Text: replyText, SessionID: id, OfferSchedulingHint: hint}, nil
}

// Clear finalizes the session's transcript row with whatever rating,
// feedback, and call data it holds, marks it completed, and evicts it.
// Clearing an unknown session is a no-op.
func (e *Engine) Clear(ctx context.Context, sessionID string) error {
	sess, ok := e.registry.Get(sessionID)
	if !ok {
		return nil
	}

	sess.mu.Lock()
	sess.data.State = chat.StateCompleted
	row := transcript.Derive(&sess.data)
	sess.mu.Unlock()

	e.registry.Remove(sessionID)
	return e.persist(ctx, row)
}

// MarkCallScheduled flags the session after a direct booking through the
// scheduling form and re-upserts its row. Unknown sessions are ignored.
func (e *Engine) MarkCallScheduled(ctx context.Context, sessionID string) error {
	sess, ok := e.registry.Get(sessionID)
	if !ok {
		return nil
	}

	sess.mu.Lock()
	sess.data.CallScheduled = true
	row := transcript.Derive(&sess.data)
	sess.mu.Unlock()

	return e.persist(ctx, row)
}

// DocumentContext exposes the corpus lookup for the streaming handler.
func (e *Engine) DocumentContext(query string) string {
	return e.documentContext(query)
}

// StreamPrep is the outcome of BeginStream. When Streamable is false the
// engine already produced the full reply and no follow-up call is needed.
type StreamPrep struct {
	SessionID  string
	History    []chat.Turn
	Streamable bool
	Reply      Reply
}

// BeginStream decides whether a turn can be answered as a token stream.
// Only plain general queries stream; gated turns (rating, feedback,
// completed, greetings, buttons, scheduling) go through HandleMessage so the
// state machine semantics stay identical to the non-streaming path.
func (e *Engine) BeginStream(ctx context.Context, sessionID, message string) (StreamPrep, error) {
	if strings.TrimSpace(message) == "" {
		return StreamPrep{}, ErrEmptyMessage
	}

	id, sess := e.registry.Resolve(sessionID)

	sess.mu.Lock()
	streamable := e.generator != nil &&
		!sess.data.Completed() &&
		intent.Classify(message, sess.data.State) == intent.GeneralQuery
	if streamable {
		history := snapshotHistory(sess.data.Turns, e.cfg.HistoryLimit)
		sess.mu.Unlock()
		return StreamPrep{SessionID: id, History: history, Streamable: true}, nil
	}
	sess.mu.Unlock()

	reply, err := e.HandleMessage(ctx, id, message)
	if err != nil {
		return StreamPrep{}, err
	}
	return StreamPrep{SessionID: id, Reply: reply}, nil
}

// CompleteStream records a streamed exchange. The returned Reply carries any
// rating-prompt suffix the stream handler still needs to emit, plus the
// scheduling hint.
func (e *Engine) CompleteStream(ctx context.Context, sessionID, userMessage, assistantMessage string) (Reply, error) {
	sess, ok := e.registry.Get(sessionID)
	if !ok {
		return Reply{SessionID: sessionID}, nil
	}

	sess.mu.Lock()
	if sess.data.Completed() {
		sess.mu.Unlock()
		return Reply{Text: completedReply, SessionID: sessionID}, nil
	}

	before := assistantMessage
	after := e.appendExchange(sess, userMessage, assistantMessage)
	row := transcript.Derive(&sess.data)
	hint := sess.data.TurnCount == e.cfg.CallSuggestionTurn && sess.data.State == chat.StateActive
	sess.mu.Unlock()

	if err := e.persist(ctx, row); err != nil {
		return Reply{}, err
	}

	suffix := ""
	if len(after) > len(before) {
		suffix = after[len(before):]
	}
	return Reply{Text: suffix, SessionID: sessionID, OfferSchedulingHint: hint}, nil
}

// appendExchange appends the user and assistant turns, then applies the
// turn-count rating gate against the post-append counter. Returns the reply
// text, extended with the rating prompt when the gate opened.
func (e *Engine) appendExchange(sess *session, userMessage, replyText string) string {
	sess.data.Turns = append(sess.data.Turns,
		chat.Turn{Role: chat.RoleUser, Content: userMessage},
		chat.Turn{Role: chat.RoleAssistant, Content: replyText},
	)
	sess.data.TurnCount += 2

	if sess.data.State == chat.StateActive && sess.data.TurnCount >= e.cfg.RatingThreshold {
		sess.data.State = chat.StateAwaitingRating
		replyText += ratingPromptSuffix
		sess.data.Turns[len(sess.data.Turns)-1].Content = replyText
	}
	return replyText
}

func (e *Engine) generate(ctx context.Context, query string, history []chat.Turn, docContext string) string {
	if e.generator == nil {
		return GenerationFailedReply
	}

	genCtx, cancel := context.WithTimeout(ctx, e.cfg.CollaboratorTimeout)
	defer cancel()

	answer, err := e.generator.GenerateAnswer(genCtx, query, history, docContext)
	if err != nil {
		log.Printf("[engine] generation failed: %v", err)
		return GenerationFailedReply
	}
	return answer
}

func (e *Engine) scheduleCall(ctx context.Context, freeText string) ScheduleOutcome {
	if e.scheduler == nil {
		return ScheduleOutcome{Err: "scheduling unavailable"}
	}

	callCtx, cancel := context.WithTimeout(ctx, e.cfg.CollaboratorTimeout)
	defer cancel()

	return e.scheduler.ScheduleCall(callCtx, freeText)
}

func (e *Engine) documentContext(query string) string {
	if e.docs == nil {
		return ""
	}
	return e.docs.DocumentContext(query)
}

func (e *Engine) persist(ctx context.Context, row transcript.Row) error {
	if e.store == nil {
		return nil
	}
	if err := e.store.Upsert(ctx, row); err != nil {
		if e.cfg.StrictPersistence {
			return err
		}
		log.Printf("[engine] transcript upsert failed for session=%s: %v", row.SessionID, err)
	}
	return nil
}

func snapshotHistory(turns []chat.Turn, limit int) []chat.Turn {
	start := 0
	if len(turns) > limit {
		start = len(turns) - limit
	}
	history := make([]chat.Turn, len(turns)-start)
	copy(history, turns[start:])
	return history
}

