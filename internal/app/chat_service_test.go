package app

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"sopbot/internal/ai"
	"sopbot/internal/model"
	"sopbot/internal/retrieval"
)

type fakeCache struct {
	entries  map[string]*model.Answer
	sets     map[string]*model.Answer
	getCalls int
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		entries: make(map[string]*model.Answer),
		sets:    make(map[string]*model.Answer),
	}
}

func cacheKey(question string) string {
	return strings.ToLower(strings.TrimSpace(question))
}

func (f *fakeCache) Get(_ context.Context, question string) (*model.Answer, bool) {
	f.getCalls++
	answer, ok := f.entries[cacheKey(question)]
	if !ok {
		return nil, false
	}
	copied := *answer
	return &copied, true
}

func (f *fakeCache) Set(_ context.Context, question string, answer *model.Answer) {
	f.sets[cacheKey(question)] = answer
}

type fakeSearcher struct {
	passages []retrieval.Passage
	err      error
	queries  []string
}

func (f *fakeSearcher) Search(_ context.Context, query string, _ int) ([]retrieval.Passage, error) {
	f.queries = append(f.queries, query)
	return f.passages, f.err
}

type fakeGenerator struct {
	text      string
	err       error
	chunks    []string
	failAfter int // stream: error after this many chunks, -1 for never
}

func (f *fakeGenerator) Generate(_ context.Context, _ []ai.ChatMessage) (string, error) {
	return f.text, f.err
}

func (f *fakeGenerator) GenerateStream(_ context.Context, _ []ai.ChatMessage, onChunk func(string) error) (string, error) {
	var b strings.Builder
	for i, chunk := range f.chunks {
		if f.failAfter >= 0 && i == f.failAfter {
			return "", errors.New("upstream connection reset")
		}
		if err := onChunk(chunk); err != nil {
			return "", err
		}
		b.WriteString(chunk)
	}
	return b.String(), nil
}

type fakeMutator struct {
	result    *MutationResult
	err       error
	learned   []string
	unlearned []string
	lastActor Identity
}

func (f *fakeMutator) Learn(_ context.Context, actor Identity, fact string) (*MutationResult, error) {
	f.lastActor = actor
	f.learned = append(f.learned, fact)
	return f.result, f.err
}

func (f *fakeMutator) Unlearn(_ context.Context, actor Identity, term string) (*MutationResult, error) {
	f.lastActor = actor
	f.unlearned = append(f.unlearned, term)
	return f.result, f.err
}

type fakeRecorder struct {
	records []*model.AnalyticsRecord
	err     error
}

func (f *fakeRecorder) Record(record *model.AnalyticsRecord) error {
	f.records = append(f.records, record)
	return f.err
}

type fakePublisher struct {
	appends []model.HistoryAppend
}

func (f *fakePublisher) Publish(_ context.Context, appendReq model.HistoryAppend) error {
	f.appends = append(f.appends, appendReq)
	return nil
}

type chatFixture struct {
	service   *ChatService
	cache     *fakeCache
	searcher  *fakeSearcher
	generator *fakeGenerator
	mutator   *fakeMutator
	recorder  *fakeRecorder
	publisher *fakePublisher
}

func newChatFixture() *chatFixture {
	f := &chatFixture{
		cache:     newFakeCache(),
		searcher:  &fakeSearcher{},
		generator: &fakeGenerator{failAfter: -1},
		mutator:   &fakeMutator{result: &MutationResult{Message: "ok"}},
		recorder:  &fakeRecorder{},
		publisher: &fakePublisher{},
	}
	f.service = NewChatService(
		f.cache, f.searcher, f.generator, f.mutator, f.recorder, f.publisher,
		zap.NewNop(), ChatServiceOptions{},
	)
	f.service.newRand = func() *rand.Rand { return rand.New(rand.NewSource(1)) }
	return f
}

func adminIdentity() Identity {
	id := uint(7)
	return Identity{UserID: &id, Username: "admin", Name: "Admin", Role: model.RoleAdministrator}
}

func TestAskRejectsEmptyAndOversizedQuestions(t *testing.T) {
	f := newChatFixture()

	if _, err := f.service.Ask(context.Background(), AskInput{Question: "   "}); !errors.Is(err, ErrQuestionEmpty) {
		t.Fatalf("blank question: got %v, want ErrQuestionEmpty", err)
	}

	long := strings.Repeat("a", f.service.maxQuestion+1)
	if _, err := f.service.Ask(context.Background(), AskInput{Question: long}); !errors.Is(err, ErrQuestionTooLong) {
		t.Fatalf("oversized question: got %v, want ErrQuestionTooLong", err)
	}
	if f.cache.getCalls != 0 {
		t.Fatalf("invalid questions must not reach the cache, got %d lookups", f.cache.getCalls)
	}
}

func TestAskCacheHitReturnsStoredAnswer(t *testing.T) {
	f := newChatFixture()
	stored := &model.Answer{
		Answer:       "Report within 3 days.",
		Sources:      []string{"Event SOP"},
		FollowUps:    []string{"a", "b", "c"},
		ResponseTime: 42,
		QuestionID:   "q_1_abc",
	}
	f.cache.entries[cacheKey("What is the deadline?")] = stored

	answer, err := f.service.Ask(context.Background(), AskInput{
		Question: "  What is the DEADLINE? ",
		Identity: adminIdentity(),
		Start:    time.Now(),
	})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if !answer.Cached {
		t.Fatal("cache hit must set the cached flag")
	}
	if answer.Answer != stored.Answer || answer.QuestionID != stored.QuestionID {
		t.Fatalf("cache hit must return the stored answer unchanged, got %+v", answer)
	}
	if len(f.searcher.queries) != 0 {
		t.Fatal("cache hit must not trigger retrieval")
	}
	if len(f.recorder.records) != 1 {
		t.Fatalf("cache hit must still record analytics, got %d records", len(f.recorder.records))
	}
	if f.recorder.records[0].QuestionID == stored.QuestionID {
		t.Fatal("cache hit analytics row must carry a fresh question id")
	}
}

func TestAskGeneratesAndCaches(t *testing.T) {
	f := newChatFixture()
	f.searcher.passages = []retrieval.Passage{
		{Text: "Penalty is 500.", Metadata: map[string]string{"source": "Finance SOP"}},
		{Text: "Report in 3 days.", Metadata: map[string]string{"fileName": "events.pdf"}},
		{Text: "Repeat clause.", Metadata: map[string]string{"source": "Finance SOP"}},
	}
	f.generator.text = "  The penalty is 500.  "

	answer, err := f.service.Ask(context.Background(), AskInput{
		Question:  "What is the penalty?",
		SessionID: "s1",
		Identity:  adminIdentity(),
		Start:     time.Now(),
	})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer.Answer != "The penalty is 500." {
		t.Fatalf("answer text = %q", answer.Answer)
	}
	wantSources := []string{"Finance SOP", "events.pdf"}
	if len(answer.Sources) != len(wantSources) || answer.Sources[0] != wantSources[0] || answer.Sources[1] != wantSources[1] {
		t.Fatalf("sources = %v, want %v", answer.Sources, wantSources)
	}
	if len(answer.FollowUps) != 3 {
		t.Fatalf("follow-ups = %v, want 3 entries", answer.FollowUps)
	}
	// "penalty" trigger must surface first.
	if answer.FollowUps[0] != "Who decides whether a penalty applies?" {
		t.Fatalf("keyword follow-up missing, got %v", answer.FollowUps)
	}
	if !strings.HasPrefix(answer.QuestionID, "q_") {
		t.Fatalf("question id = %q", answer.QuestionID)
	}

	if len(f.recorder.records) != 1 || f.recorder.records[0].QuestionID != answer.QuestionID {
		t.Fatal("analytics row must carry the answer's question id")
	}
	if _, ok := f.cache.sets[cacheKey("What is the penalty?")]; !ok {
		t.Fatal("generated answer must be written to the cache")
	}
	if len(f.publisher.appends) != 1 || f.publisher.appends[0].SessionID != "s1" {
		t.Fatalf("history append = %+v", f.publisher.appends)
	}
}

func TestAskAnonymousSkipsHistory(t *testing.T) {
	f := newChatFixture()
	f.generator.text = "answer"

	if _, err := f.service.Ask(context.Background(), AskInput{Question: "hi", SessionID: "s1"}); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if len(f.publisher.appends) != 0 {
		t.Fatal("anonymous requests must not persist history")
	}
	if len(f.recorder.records) != 1 || f.recorder.records[0].UserRole != model.RoleGuest {
		t.Fatalf("anonymous analytics must bucket as guest, got %+v", f.recorder.records)
	}
}

func TestAskLearnCommandBypassesCacheAndGeneration(t *testing.T) {
	f := newChatFixture()
	f.mutator.result = &MutationResult{Message: "learned", Sources: []string{model.LearnedFactSource}}
	f.cache.entries[cacheKey("/learn the sky is blue")] = &model.Answer{Answer: "stale"}

	answer, err := f.service.Ask(context.Background(), AskInput{
		Question: "/learn the sky is blue",
		Identity: adminIdentity(),
		Start:    time.Now(),
	})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer.Answer != "learned" {
		t.Fatalf("answer = %q, want mutation acknowledgement", answer.Answer)
	}
	if f.cache.getCalls != 0 || len(f.cache.sets) != 0 {
		t.Fatal("commands must never touch the answer cache")
	}
	if len(f.mutator.learned) != 1 || f.mutator.learned[0] != "the sky is blue" {
		t.Fatalf("learned = %v", f.mutator.learned)
	}
	if len(f.searcher.queries) != 0 {
		t.Fatal("commands must not trigger retrieval")
	}
}

func TestAskEmptyCommandPayload(t *testing.T) {
	f := newChatFixture()

	for _, question := range []string{"/learn ", "/learn   ", "/unlearn ", "  /unlearn   "} {
		_, err := f.service.Ask(context.Background(), AskInput{
			Question: question,
			Identity: adminIdentity(),
			Start:    time.Now(),
		})
		if !errors.Is(err, ErrEmptyCommand) {
			t.Fatalf("Ask(%q): got %v, want ErrEmptyCommand", question, err)
		}
	}
	if len(f.searcher.queries) != 0 {
		t.Fatalf("empty commands must not reach retrieval, got queries %v", f.searcher.queries)
	}
	if len(f.mutator.learned) != 0 || len(f.mutator.unlearned) != 0 {
		t.Fatal("empty commands must not reach the mutator")
	}
	if len(f.cache.sets) != 0 || len(f.recorder.records) != 0 {
		t.Fatal("empty commands must not be cached or recorded")
	}
}

func TestStreamEmptyCommandPayload(t *testing.T) {
	f := newChatFixture()

	events, err := collectStream(t, f, AskInput{
		Question: "/learn   ",
		Identity: adminIdentity(),
		Start:    time.Now(),
	})
	if !errors.Is(err, ErrEmptyCommand) {
		t.Fatalf("got %v, want ErrEmptyCommand", err)
	}
	if len(events) != 0 {
		t.Fatalf("rejected input must emit nothing, got %v", events)
	}
}

func TestAskCommandWithLeadingWhitespace(t *testing.T) {
	f := newChatFixture()
	f.mutator.result = &MutationResult{Message: "learned", Sources: []string{model.LearnedFactSource}}

	if _, err := f.service.Ask(context.Background(), AskInput{
		Question: "   /learn the sky is blue",
		Identity: adminIdentity(),
		Start:    time.Now(),
	}); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if len(f.mutator.learned) != 1 || f.mutator.learned[0] != "the sky is blue" {
		t.Fatalf("learned = %v", f.mutator.learned)
	}
	if len(f.searcher.queries) != 0 {
		t.Fatal("indented commands must still branch to the mutator")
	}
}

func TestAskForwardsMutationErrors(t *testing.T) {
	f := newChatFixture()
	f.mutator.err = ErrForbidden
	f.mutator.result = nil

	if _, err := f.service.Ask(context.Background(), AskInput{Question: "/unlearn sky"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("got %v, want ErrForbidden", err)
	}
}

func TestAskRetrievalFailure(t *testing.T) {
	f := newChatFixture()
	f.searcher.err = errors.New("store down")

	if _, err := f.service.Ask(context.Background(), AskInput{Question: "hi"}); !errors.Is(err, ErrRetrievalFailed) {
		t.Fatalf("got %v, want ErrRetrievalFailed", err)
	}
	if len(f.recorder.records) != 0 {
		t.Fatal("failed requests must not record analytics")
	}
}

func collectStream(t *testing.T, f *chatFixture, input AskInput) ([]StreamEvent, error) {
	t.Helper()
	var events []StreamEvent
	err := f.service.Stream(context.Background(), input, func(event StreamEvent) error {
		events = append(events, event)
		return nil
	})
	return events, err
}

func TestStreamEventOrder(t *testing.T) {
	f := newChatFixture()
	f.searcher.passages = []retrieval.Passage{
		{Text: "ctx", Metadata: map[string]string{"source": "Event SOP"}},
	}
	f.generator.chunks = []string{"The ", "penalty ", "is 500."}

	events, err := collectStream(t, f, AskInput{Question: "what now", Start: time.Now()})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}

	types := make([]string, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	want := []string{EventSources, EventContent, EventContent, EventContent, EventFollowUps, EventDone}
	if len(types) != len(want) {
		t.Fatalf("event types = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("event types = %v, want %v", types, want)
		}
	}
	if events[1].Content+events[2].Content+events[3].Content != "The penalty is 500." {
		t.Fatal("content fragments must arrive in generation order")
	}
	if len(f.cache.sets) != 1 {
		t.Fatal("completed stream must cache the assembled answer")
	}
}

func TestStreamMidGenerationFailure(t *testing.T) {
	f := newChatFixture()
	f.searcher.passages = []retrieval.Passage{
		{Text: "ctx", Metadata: map[string]string{"source": "Event SOP"}},
	}
	f.generator.chunks = []string{"partial ", "output "}
	f.generator.failAfter = 2

	events, err := collectStream(t, f, AskInput{Question: "what now", Start: time.Now()})
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("got %v, want ErrGenerationFailed", err)
	}

	last := events[len(events)-1]
	if last.Type != EventError {
		t.Fatalf("last event = %q, want error", last.Type)
	}
	for _, e := range events {
		if e.Type == EventDone {
			t.Fatal("failed stream must not emit done")
		}
	}
	if events[0].Type != EventSources || events[1].Type != EventContent || events[2].Type != EventContent {
		t.Fatal("fragments sent before the failure stay sent")
	}
	if len(f.cache.sets) != 0 {
		t.Fatal("failed stream must not cache a partial answer")
	}
	if len(f.recorder.records) != 0 {
		t.Fatal("failed stream must not record analytics")
	}
}

func TestStreamCacheHitReplaysWholeAnswer(t *testing.T) {
	f := newChatFixture()
	f.cache.entries[cacheKey("cached q")] = &model.Answer{
		Answer:    "stored answer",
		Sources:   []string{"Event SOP"},
		FollowUps: []string{"a", "b", "c"},
	}

	events, err := collectStream(t, f, AskInput{Question: "cached q", Start: time.Now()})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	want := []string{EventSources, EventContent, EventFollowUps, EventDone}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d", len(events), len(want))
	}
	for i := range want {
		if events[i].Type != want[i] {
			t.Fatalf("event %d = %q, want %q", i, events[i].Type, want[i])
		}
	}
	if events[1].Content != "stored answer" {
		t.Fatalf("cached stream content = %q", events[1].Content)
	}
	if len(f.searcher.queries) != 0 {
		t.Fatal("cache hit must not trigger retrieval")
	}
}

func TestNewQuestionIDShape(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	now := time.UnixMilli(1700000000000)
	id := newQuestionID(now, rng)
	if !strings.HasPrefix(id, "q_1700000000000_") {
		t.Fatalf("question id = %q", id)
	}
}
