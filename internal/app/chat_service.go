package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"sopbot/internal/ai"
	"sopbot/internal/model"
	"sopbot/internal/retrieval"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrQuestionEmpty    = errors.New("question is empty")
	ErrQuestionTooLong  = errors.New("question exceeds the maximum length")
	ErrRetrievalFailed  = errors.New("document retrieval failed")
	ErrGenerationFailed = errors.New("answer generation failed")
)

// Searcher is the vector retriever as the pipeline sees it.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]retrieval.Passage, error)
}

// TextGenerator is the hosted language model as the pipeline sees it.
type TextGenerator interface {
	Generate(ctx context.Context, messages []ai.ChatMessage) (string, error)
	GenerateStream(ctx context.Context, messages []ai.ChatMessage, onChunk func(string) error) (string, error)
}

// AnswerCache is consulted for normal questions only; command variants bypass
// it entirely.
type AnswerCache interface {
	Get(ctx context.Context, question string) (*model.Answer, bool)
	Set(ctx context.Context, question string, answer *model.Answer)
}

// KnowledgeMutator handles the learn/unlearn branch of the pipeline.
type KnowledgeMutator interface {
	Learn(ctx context.Context, actor Identity, fact string) (*MutationResult, error)
	Unlearn(ctx context.Context, actor Identity, term string) (*MutationResult, error)
}

// AnalyticsRecorder appends the per-question record before the response
// completes.
type AnalyticsRecorder interface {
	Record(record *model.AnalyticsRecord) error
}

// HistoryPublisher enqueues an exchange for session-history persistence.
type HistoryPublisher interface {
	Publish(ctx context.Context, appendReq model.HistoryAppend) error
}

// StreamEvent is one frame of the push protocol: sources, then content
// fragments in order, then followUps, then exactly one of done or error.
type StreamEvent struct {
	Type         string   `json:"type"`
	Sources      []string `json:"sources,omitempty"`
	Content      string   `json:"content,omitempty"`
	FollowUps    []string `json:"followUps,omitempty"`
	ResponseTime int64    `json:"responseTime,omitempty"`
	Message      string   `json:"message,omitempty"`
}

const (
	EventSources   = "sources"
	EventContent   = "content"
	EventFollowUps = "followUps"
	EventDone      = "done"
	EventError     = "error"
)

type ChatService struct {
	cache       AnswerCache
	searcher    Searcher
	generator   TextGenerator
	knowledge   KnowledgeMutator
	analytics   AnalyticsRecorder
	historyPub  HistoryPublisher
	logger      *zap.Logger
	topK        int
	maxQuestion int
	devMode     bool
	newRand     func() *rand.Rand
	now         func() time.Time
}

type ChatServiceOptions struct {
	TopK             int
	MaxQuestionChars int
	DevMode          bool
}

func NewChatService(
	cache AnswerCache,
	searcher Searcher,
	generator TextGenerator,
	knowledge KnowledgeMutator,
	analytics AnalyticsRecorder,
	historyPub HistoryPublisher,
	logger *zap.Logger,
	opts ChatServiceOptions,
) *ChatService {
	if opts.TopK <= 0 {
		opts.TopK = 4
	}
	if opts.MaxQuestionChars <= 0 {
		opts.MaxQuestionChars = 2000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{
		cache:       cache,
		searcher:    searcher,
		generator:   generator,
		knowledge:   knowledge,
		analytics:   analytics,
		historyPub:  historyPub,
		logger:      logger,
		topK:        opts.TopK,
		maxQuestion: opts.MaxQuestionChars,
		devMode:     opts.DevMode,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
		now: time.Now,
	}
}

// AskInput carries one inbound question through the pipeline. Start is taken
// at request entry so response time covers the whole pipeline.
type AskInput struct {
	Question  string
	History   string
	SessionID string
	Identity  Identity
	Start     time.Time
}

// Ask runs the batch pipeline: cache lookup, command dispatch or
// retrieve-and-generate, analytics, history, cache write.
func (s *ChatService) Ask(ctx context.Context, input AskInput) (*model.Answer, error) {
	question, err := s.validateQuestion(input.Question)
	if err != nil {
		return nil, err
	}

	// Classify on the raw text: full trimming would erase the trailing
	// whitespace that distinguishes an empty command from a plain question.
	cmd, err := ParseCommand(input.Question)
	if err != nil {
		return nil, err
	}

	switch c := cmd.(type) {
	case LearnCommand:
		result, err := s.knowledge.Learn(ctx, input.Identity, c.Fact)
		if err != nil {
			return nil, err
		}
		return s.finishMutation(ctx, input, question, result), nil
	case UnlearnCommand:
		result, err := s.knowledge.Unlearn(ctx, input.Identity, c.SearchTerm)
		if err != nil {
			return nil, err
		}
		return s.finishMutation(ctx, input, question, result), nil
	}

	if cached, hit := s.cache.Get(ctx, question); hit {
		cached.Cached = true
		s.recordAnalytics(input, question, newQuestionID(s.now(), s.newRand()), cached.Sources, s.elapsedMs(input))
		s.publishHistory(ctx, input, question, cached.Answer, cached.Sources)
		return cached, nil
	}

	passages, err := s.searcher.Search(ctx, question, s.topK)
	if err != nil {
		s.logger.Error("retrieval failed", zap.Error(err))
		return nil, s.upstreamError(ErrRetrievalFailed, err)
	}

	prompt := BuildPrompt(input.History, retrieval.JoinContext(passages), question)
	text, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		s.logger.Error("generation failed", zap.Error(err))
		return nil, s.upstreamError(ErrGenerationFailed, err)
	}

	answer := &model.Answer{
		Answer:       strings.TrimSpace(text),
		Sources:      retrieval.CollectSources(passages),
		FollowUps:    SuggestFollowUps(question, s.newRand()),
		ResponseTime: s.elapsedMs(input),
		QuestionID:   newQuestionID(s.now(), s.newRand()),
	}

	s.recordAnalytics(input, question, answer.QuestionID, answer.Sources, answer.ResponseTime)
	s.publishHistory(ctx, input, question, answer.Answer, answer.Sources)
	s.cache.Set(ctx, question, answer)

	return answer, nil
}

// Stream runs the pipeline in streaming mode, emitting protocol events in
// order through emit. A mid-stream generator failure yields a terminal error
// event instead of done; fragments already forwarded are never retracted.
func (s *ChatService) Stream(ctx context.Context, input AskInput, emit func(StreamEvent) error) error {
	question, err := s.validateQuestion(input.Question)
	if err != nil {
		return err
	}

	cmd, err := ParseCommand(input.Question)
	if err != nil {
		return err
	}

	switch c := cmd.(type) {
	case LearnCommand:
		result, err := s.knowledge.Learn(ctx, input.Identity, c.Fact)
		if err != nil {
			return err
		}
		answer := s.finishMutation(ctx, input, question, result)
		return s.emitWholeAnswer(emit, answer)
	case UnlearnCommand:
		result, err := s.knowledge.Unlearn(ctx, input.Identity, c.SearchTerm)
		if err != nil {
			return err
		}
		answer := s.finishMutation(ctx, input, question, result)
		return s.emitWholeAnswer(emit, answer)
	}

	if cached, hit := s.cache.Get(ctx, question); hit {
		cached.Cached = true
		s.recordAnalytics(input, question, newQuestionID(s.now(), s.newRand()), cached.Sources, s.elapsedMs(input))
		s.publishHistory(ctx, input, question, cached.Answer, cached.Sources)
		return s.emitWholeAnswer(emit, cached)
	}

	passages, err := s.searcher.Search(ctx, question, s.topK)
	if err != nil {
		s.logger.Error("retrieval failed", zap.Error(err))
		return s.emitTerminalError(emit, ErrRetrievalFailed, err)
	}
	sources := retrieval.CollectSources(passages)

	if err := emit(StreamEvent{Type: EventSources, Sources: sources}); err != nil {
		return err
	}

	prompt := BuildPrompt(input.History, retrieval.JoinContext(passages), question)
	full, err := s.generator.GenerateStream(ctx, prompt, func(chunk string) error {
		return emit(StreamEvent{Type: EventContent, Content: chunk})
	})
	if err != nil {
		s.logger.Error("stream generation failed", zap.Error(err))
		return s.emitTerminalError(emit, ErrGenerationFailed, err)
	}

	followUps := SuggestFollowUps(question, s.newRand())
	if err := emit(StreamEvent{Type: EventFollowUps, FollowUps: followUps}); err != nil {
		return err
	}

	responseTime := s.elapsedMs(input)
	answer := &model.Answer{
		Answer:       strings.TrimSpace(full),
		Sources:      sources,
		FollowUps:    followUps,
		ResponseTime: responseTime,
		QuestionID:   newQuestionID(s.now(), s.newRand()),
	}

	s.recordAnalytics(input, question, answer.QuestionID, sources, responseTime)
	s.publishHistory(ctx, input, question, answer.Answer, sources)
	s.cache.Set(ctx, question, answer)

	return emit(StreamEvent{Type: EventDone, ResponseTime: responseTime})
}

func (s *ChatService) validateQuestion(raw string) (string, error) {
	question := strings.TrimSpace(raw)
	if question == "" {
		return "", ErrQuestionEmpty
	}
	if len([]rune(question)) > s.maxQuestion {
		return "", ErrQuestionTooLong
	}
	return question, nil
}

// finishMutation wraps a mutation acknowledgement as an Answer. Mutations are
// recorded in analytics and history like any answered question, but never
// cached.
func (s *ChatService) finishMutation(ctx context.Context, input AskInput, question string, result *MutationResult) *model.Answer {
	answer := &model.Answer{
		Answer:       result.Message,
		Sources:      result.Sources,
		FollowUps:    SuggestFollowUps(question, s.newRand()),
		ResponseTime: s.elapsedMs(input),
		QuestionID:   newQuestionID(s.now(), s.newRand()),
	}
	s.recordAnalytics(input, question, answer.QuestionID, answer.Sources, answer.ResponseTime)
	s.publishHistory(ctx, input, question, answer.Answer, answer.Sources)
	return answer
}

func (s *ChatService) emitWholeAnswer(emit func(StreamEvent) error, answer *model.Answer) error {
	if err := emit(StreamEvent{Type: EventSources, Sources: answer.Sources}); err != nil {
		return err
	}
	if err := emit(StreamEvent{Type: EventContent, Content: answer.Answer}); err != nil {
		return err
	}
	if err := emit(StreamEvent{Type: EventFollowUps, FollowUps: answer.FollowUps}); err != nil {
		return err
	}
	return emit(StreamEvent{Type: EventDone, ResponseTime: answer.ResponseTime})
}

func (s *ChatService) emitTerminalError(emit func(StreamEvent) error, sentinel, cause error) error {
	message := sentinel.Error()
	if s.devMode && cause != nil {
		message = fmt.Sprintf("%s: %v", sentinel.Error(), cause)
	}
	_ = emit(StreamEvent{Type: EventError, Message: message})
	return sentinel
}

func (s *ChatService) upstreamError(sentinel, cause error) error {
	if s.devMode && cause != nil {
		return fmt.Errorf("%w: %v", sentinel, cause)
	}
	return sentinel
}

func (s *ChatService) recordAnalytics(input AskInput, question, questionID string, sources []string, responseTimeMs int64) {
	record := &model.AnalyticsRecord{
		QuestionID:     questionID,
		Question:       question,
		UserID:         input.Identity.UserID,
		UserRole:       input.Identity.EffectiveRole(),
		ResponseTimeMs: responseTimeMs,
	}
	if payload, err := encodeSources(sources); err == nil {
		record.Sources = payload
	}
	if err := s.analytics.Record(record); err != nil {
		// Analytics must not take the answer down with it.
		s.logger.Error("record analytics failed", zap.Error(err))
	}
}

func (s *ChatService) publishHistory(ctx context.Context, input AskInput, question, answer string, sources []string) {
	if !input.Identity.Identified() || input.SessionID == "" || s.historyPub == nil {
		return
	}
	now := s.now()
	appendReq := model.HistoryAppend{
		UserID:    *input.Identity.UserID,
		SessionID: input.SessionID,
		UserMessage: model.ChatMessageEntry{
			Role:      "user",
			Content:   question,
			Timestamp: now,
		},
		BotMessage: model.ChatMessageEntry{
			Role:      "assistant",
			Content:   answer,
			Sources:   sources,
			Timestamp: now,
		},
	}
	if err := s.historyPub.Publish(ctx, appendReq); err != nil {
		s.logger.Error("enqueue history append failed", zap.Error(err))
	}
}

func (s *ChatService) elapsedMs(input AskInput) int64 {
	start := input.Start
	if start.IsZero() {
		return 0
	}
	return s.now().Sub(start).Milliseconds()
}

func newQuestionID(now time.Time, rng *rand.Rand) string {
	return fmt.Sprintf("q_%d_%06x", now.UnixMilli(), rng.Intn(1<<24))
}

func encodeSources(sources []string) (datatypes.JSON, error) {
	if len(sources) == 0 {
		return nil, nil
	}
	payload, err := json.Marshal(sources)
	if err != nil {
		return nil, fmt.Errorf("marshal sources: %w", err)
	}
	return datatypes.JSON(payload), nil
}
