package chat

import (
	"context"
	"strings"
	"sync"
	"testing"

	chatmodel "github.com/Utkarsh-Jha-MSAIB/NFL-Insight-Assistant/internal/model/chat"
	"github.com/Utkarsh-Jha-MSAIB/NFL-Insight-Assistant/internal/transcript"
)

type stubGenerator struct {
	calls  int
	answer string
	err    error
}

func (g *stubGenerator) GenerateAnswer(_ context.Context, _ string, _ []chatmodel.Turn, _ string) (string, error) {
	g.calls++
	return g.answer, g.err
}

type stubDocs struct{ context string }

func (d *stubDocs) DocumentContext(string) string { return d.context }

type stubScheduler struct {
	calls   int
	outcome ScheduleOutcome
}

func (s *stubScheduler) ScheduleCall(context.Context, string) ScheduleOutcome {
	s.calls++
	return s.outcome
}

// recordingStore captures every upserted row in memory.
type recordingStore struct {
	mu      sync.Mutex
	upserts int
	last    transcript.Row
}

func (r *recordingStore) Upsert(_ context.Context, row transcript.Row) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserts++
	r.last = row
	return nil
}

func (r *recordingStore) Close() error { return nil }

func (r *recordingStore) snapshot() (int, transcript.Row) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.upserts, r.last
}

func newTestEngine(store transcript.Store, gen Generator, sched Scheduler, cfg Config) *Engine {
	return NewEngine(store, gen, &stubDocs{context: "Based on our documents:\nthird and short runs"}, sched, cfg)
}

func TestGreetingAllocatesSession(t *testing.T) {
	store := &recordingStore{}
	engine := newTestEngine(store, &stubGenerator{answer: "ok"}, nil, Config{})

	reply, err := engine.HandleMessage(context.Background(), "", "hello")
	if err != nil {
		t.Fatalf("HandleMessage err: %v", err)
	}
	if !strings.HasPrefix(reply.SessionID, "session_") {
		t.Fatalf("expected minted identifier, got %q", reply.SessionID)
	}
	if !strings.Contains(reply.Text, "Welcome to the NFL Play-by-Play Assistant") {
		t.Fatalf("unexpected greeting: %q", reply.Text)
	}

	upserts, row := store.snapshot()
	if upserts != 1 {
		t.Fatalf("expected one upsert, got %d", upserts)
	}
	if len(row.UserTurns) != 1 || row.UserTurns[0] != "hello" {
		t.Fatalf("row user turns: %v", row.UserTurns)
	}
}

func TestEmptyMessageRejected(t *testing.T) {
	engine := newTestEngine(&recordingStore{}, nil, nil, Config{})
	if _, err := engine.HandleMessage(context.Background(), "", "   "); err != ErrEmptyMessage {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
}

func TestSchedulingFlowEndToEnd(t *testing.T) {
	store := &recordingStore{}
	gen := &stubGenerator{answer: "grounded answer"}
	sched := &stubScheduler{outcome: ScheduleOutcome{Success: true, EventTime: "July 10, 2026 at 02:00 PM"}}
	engine := newTestEngine(store, gen, sched, Config{})
	ctx := context.Background()

	// (b) scheduling request with a successful collaborator.
	reply, err := engine.HandleMessage(ctx, "", "schedule a call tomorrow at 2 pm")
	if err != nil {
		t.Fatalf("HandleMessage err: %v", err)
	}
	id := reply.SessionID
	if sched.calls != 1 {
		t.Fatalf("scheduler calls: %d", sched.calls)
	}
	if !strings.Contains(reply.Text, "rate your experience") {
		t.Fatalf("expected rating ask, got %q", reply.Text)
	}

	// (c) rating reply advances to feedback collection.
	reply, err = engine.HandleMessage(ctx, id, "5")
	if err != nil {
		t.Fatalf("HandleMessage err: %v", err)
	}
	if reply.Text != ratingThanksReply {
		t.Fatalf("expected feedback ask, got %q", reply.Text)
	}
	_, row := store.snapshot()
	if row.Rating != 5 {
		t.Fatalf("rating persisted eagerly: got %d", row.Rating)
	}
	if row.Complete {
		t.Fatal("session must not be complete yet")
	}

	// (d) feedback completes the conversation.
	reply, err = engine.HandleMessage(ctx, id, "great experience")
	if err != nil {
		t.Fatalf("HandleMessage err: %v", err)
	}
	if reply.Text != closingReply {
		t.Fatalf("expected closing reply, got %q", reply.Text)
	}
	_, row = store.snapshot()
	if row.Rating != 5 || row.Feedback != "great experience" || !row.CallScheduled || !row.Complete {
		t.Fatalf("final row: %+v", row)
	}

	// (e) the session stays locked and touches no collaborator.
	upsertsBefore, _ := store.snapshot()
	genBefore, schedBefore := gen.calls, sched.calls
	reply, err = engine.HandleMessage(ctx, id, "one more question about the run game")
	if err != nil {
		t.Fatalf("HandleMessage err: %v", err)
	}
	if reply.Text != completedReply {
		t.Fatalf("expected locked reply, got %q", reply.Text)
	}
	if gen.calls != genBefore || sched.calls != schedBefore {
		t.Fatal("completed session invoked a collaborator")
	}
	if upsertsAfter, _ := store.snapshot(); upsertsAfter != upsertsBefore {
		t.Fatal("completed session mutated the transcript")
	}
}

func TestSchedulingFailureKeepsState(t *testing.T) {
	store := &recordingStore{}
	gen := &stubGenerator{answer: "grounded answer"}
	sched := &stubScheduler{outcome: ScheduleOutcome{Err: "no free slot"}}
	engine := newTestEngine(store, gen, sched, Config{})
	ctx := context.Background()

	reply, err := engine.HandleMessage(ctx, "", "book me tomorrow at 2 pm")
	if err != nil {
		t.Fatalf("HandleMessage err: %v", err)
	}
	if reply.Text != schedulingFailedReply {
		t.Fatalf("expected neutral failure reply, got %q", reply.Text)
	}

	// State is unchanged: the next general question reaches the generator.
	reply, err = engine.HandleMessage(ctx, reply.SessionID, "what is their red zone tendency")
	if err != nil {
		t.Fatalf("HandleMessage err: %v", err)
	}
	if reply.Text != "grounded answer" {
		t.Fatalf("expected generated answer, got %q", reply.Text)
	}
	if gen.calls != 1 {
		t.Fatalf("generator calls: %d", gen.calls)
	}
}

func TestInvalidRatingReprompts(t *testing.T) {
	store := &recordingStore{}
	sched := &stubScheduler{outcome: ScheduleOutcome{Success: true, EventTime: "tomorrow 2 PM"}}
	engine := newTestEngine(store, nil, sched, Config{})
	ctx := context.Background()

	reply, _ := engine.HandleMessage(ctx, "", "schedule a call tomorrow at 2 pm")
	id := reply.SessionID
	upsertsBefore, _ := store.snapshot()

	for _, bad := range []string{"ten", "0", "6", "amazing"} {
		reply, err := engine.HandleMessage(ctx, id, bad)
		if err != nil {
			t.Fatalf("HandleMessage(%q) err: %v", bad, err)
		}
		if reply.Text != ratingRepromptReply {
			t.Fatalf("expected re-prompt for %q, got %q", bad, reply.Text)
		}
	}

	if upsertsAfter, _ := store.snapshot(); upsertsAfter != upsertsBefore {
		t.Fatal("invalid ratings must not touch the transcript")
	}

	// A valid rating still advances.
	reply, err := engine.HandleMessage(ctx, id, "3")
	if err != nil {
		t.Fatalf("HandleMessage err: %v", err)
	}
	if reply.Text != ratingThanksReply {
		t.Fatalf("expected feedback ask, got %q", reply.Text)
	}
}

func TestRatingThresholdOpensGate(t *testing.T) {
	store := &recordingStore{}
	gen := &stubGenerator{answer: "grounded answer"}
	engine := newTestEngine(store, gen, nil, Config{RatingThreshold: 4, CallSuggestionTurn: 99})
	ctx := context.Background()

	reply, err := engine.HandleMessage(ctx, "", "break down the red zone offense")
	if err != nil {
		t.Fatalf("HandleMessage err: %v", err)
	}
	if strings.Contains(reply.Text, "rate your experience") {
		t.Fatalf("gate opened too early: %q", reply.Text)
	}
	id := reply.SessionID

	reply, err = engine.HandleMessage(ctx, id, "and on second down?")
	if err != nil {
		t.Fatalf("HandleMessage err: %v", err)
	}
	if !strings.HasSuffix(reply.Text, ratingPromptSuffix) {
		t.Fatalf("expected rating prompt suffix, got %q", reply.Text)
	}

	// The recorded assistant turn carries the prompt too.
	_, row := store.snapshot()
	lastAssistant := row.AssistantTurns[len(row.AssistantTurns)-1]
	if !strings.Contains(lastAssistant, "Please rate your experience") {
		t.Fatalf("persisted turn missing prompt: %q", lastAssistant)
	}

	// Next message is treated as a rating even though it reads like a query.
	reply, err = engine.HandleMessage(ctx, id, "what about play action")
	if err != nil {
		t.Fatalf("HandleMessage err: %v", err)
	}
	if reply.Text != ratingRepromptReply {
		t.Fatalf("expected rating re-prompt, got %q", reply.Text)
	}
}

func TestOfferSchedulingHintExactTurn(t *testing.T) {
	store := &recordingStore{}
	gen := &stubGenerator{answer: "grounded answer"}
	engine := newTestEngine(store, gen, nil, Config{CallSuggestionTurn: 4, RatingThreshold: 100})
	ctx := context.Background()

	reply, err := engine.HandleMessage(ctx, "", "first question")
	if err != nil {
		t.Fatalf("HandleMessage err: %v", err)
	}
	if reply.OfferSchedulingHint {
		t.Fatal("hint before the configured turn")
	}
	id := reply.SessionID

	reply, _ = engine.HandleMessage(ctx, id, "second question")
	if !reply.OfferSchedulingHint {
		t.Fatal("hint missing at the configured turn")
	}

	reply, _ = engine.HandleMessage(ctx, id, "one more question")
	if reply.OfferSchedulingHint {
		t.Fatal("hint after the configured turn")
	}
}

func TestGenerationFailureReturnsApology(t *testing.T) {
	gen := &stubGenerator{err: context.DeadlineExceeded}
	engine := newTestEngine(&recordingStore{}, gen, nil, Config{})

	reply, err := engine.HandleMessage(context.Background(), "", "summarize the offense")
	if err != nil {
		t.Fatalf("HandleMessage err: %v", err)
	}
	if reply.Text != GenerationFailedReply {
		t.Fatalf("expected apology, got %q", reply.Text)
	}
}

func TestButtonShortcutUsesCannedReply(t *testing.T) {
	gen := &stubGenerator{answer: "generated"}
	engine := newTestEngine(&recordingStore{}, gen, nil, Config{})

	reply, err := engine.HandleMessage(context.Background(), "", "tell me about team report")
	if err != nil {
		t.Fatalf("HandleMessage err: %v", err)
	}
	if reply.Text != "Sharing a team-level behavior report!" {
		t.Fatalf("expected canned reply, got %q", reply.Text)
	}
	if gen.calls != 0 {
		t.Fatal("canned topic must not invoke generation")
	}

	// Unknown topics behind the prefix fall through to generation.
	reply, err = engine.HandleMessage(context.Background(), reply.SessionID, "tell me about zone blitzes")
	if err != nil {
		t.Fatalf("HandleMessage err: %v", err)
	}
	if reply.Text != "generated" || gen.calls != 1 {
		t.Fatalf("expected generated fallback, got %q (calls=%d)", reply.Text, gen.calls)
	}
}

func TestClearFinalizesTranscript(t *testing.T) {
	store := &recordingStore{}
	engine := newTestEngine(store, &stubGenerator{answer: "ok"}, nil, Config{})
	ctx := context.Background()

	reply, _ := engine.HandleMessage(ctx, "", "hello")
	id := reply.SessionID

	if err := engine.Clear(ctx, id); err != nil {
		t.Fatalf("Clear err: %v", err)
	}
	_, row := store.snapshot()
	if !row.Complete {
		t.Fatal("cleared session row must be complete")
	}

	// The identifier can never resume a live conversation.
	reply, err := engine.HandleMessage(ctx, id, "hello again")
	if err != nil {
		t.Fatalf("HandleMessage err: %v", err)
	}
	if reply.Text != completedReply {
		t.Fatalf("expected locked reply, got %q", reply.Text)
	}

	// Clearing an unknown session is a quiet no-op.
	if err := engine.Clear(ctx, "session_missing_0000"); err != nil {
		t.Fatalf("Clear unknown err: %v", err)
	}
}

func TestCompleteStreamRecordsExchange(t *testing.T) {
	store := &recordingStore{}
	gen := &stubGenerator{answer: "streamed answer"}
	engine := newTestEngine(store, gen, nil, Config{RatingThreshold: 2})
	ctx := context.Background()

	prep, err := engine.BeginStream(ctx, "", "how often do they blitz")
	if err != nil {
		t.Fatalf("BeginStream err: %v", err)
	}
	if !prep.Streamable {
		t.Fatal("general query should stream")
	}

	final, err := engine.CompleteStream(ctx, prep.SessionID, "how often do they blitz", "streamed answer")
	if err != nil {
		t.Fatalf("CompleteStream err: %v", err)
	}
	if final.Text != ratingPromptSuffix {
		t.Fatalf("expected rating suffix from threshold, got %q", final.Text)
	}

	_, row := store.snapshot()
	if len(row.UserTurns) != 1 || len(row.AssistantTurns) != 1 {
		t.Fatalf("streamed exchange not recorded: %+v", row)
	}
}

func TestBeginStreamFallsBackForGatedTurns(t *testing.T) {
	engine := newTestEngine(&recordingStore{}, &stubGenerator{answer: "x"}, nil, Config{})

	prep, err := engine.BeginStream(context.Background(), "", "hello there")
	if err != nil {
		t.Fatalf("BeginStream err: %v", err)
	}
	if prep.Streamable {
		t.Fatal("greetings must not stream")
	}
	if !strings.Contains(prep.Reply.Text, "Welcome") {
		t.Fatalf("fallback reply missing: %q", prep.Reply.Text)
	}
}
