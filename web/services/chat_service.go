package services

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	apperrors "campus-assistant/errors"
	"campus-assistant/metrics"
	"campus-assistant/prompts"
	"campus-assistant/rag"
	"campus-assistant/web/format"
	"campus-assistant/web/types"

	"go.uber.org/zap"
)

// GenerationFailedAnswer is returned to the student whenever the
// generation service fails.
const GenerationFailedAnswer = "Sorry, something went wrong with the AI service."

// MaxQuestionLength bounds a question in runes.
const MaxQuestionLength = 2000

// ContextBuilder retrieves and assembles grounding context for a question.
type ContextBuilder interface {
	BuildContext(ctx context.Context, query string) (rag.Context, rag.Results, error)
}

// Generator turns a prompt into an answer.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type ChatService struct {
	contexts  ContextBuilder
	generator Generator
	timeout   time.Duration
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewChatService wires the retrieval and generation halves of a chat turn.
// timeout <= 0 leaves generation bounded only by the request context.
func NewChatService(contexts ContextBuilder, generator Generator, timeout time.Duration, m *metrics.Metrics, logger *zap.Logger) *ChatService {
	return &ChatService{
		contexts:  contexts,
		generator: generator,
		timeout:   timeout,
		metrics:   m,
		logger:    logger,
	}
}

// Answer runs one chat turn. On a generation failure the response still
// carries GenerationFailedAnswer and the error wraps ErrGeneration.
func (cs *ChatService) Answer(ctx context.Context, question string) (types.ChatResponse, error) {
	if n := utf8.RuneCountInString(question); n > MaxQuestionLength {
		return types.ChatResponse{}, fmt.Errorf("%w: question has %d characters, limit is %d",
			apperrors.ErrInvalidInput, n, MaxQuestionLength)
	}

	grounding, results, err := cs.contexts.BuildContext(ctx, question)
	if err != nil {
		return types.ChatResponse{}, apperrors.WrapError(err, "build grounding context")
	}
	cs.logger.Debug("Assembled grounding context",
		zap.Int("faqs", len(results.FAQs)),
		zap.Int("departments", len(results.Departments)),
		zap.Int("procedures", len(results.Procedures)),
		zap.Bool("fallback_faqs", grounding.UsedFallback))

	prompt := prompts.BuildPrompt(grounding.String(), question)

	genCtx := ctx
	if cs.timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, cs.timeout)
		defer cancel()
	}

	start := time.Now()
	answer, err := cs.generator.Generate(genCtx, prompt)
	cs.metrics.RecordGeneration(time.Since(start), err)
	if err != nil {
		return types.ChatResponse{Answer: GenerationFailedAnswer}, apperrors.Mark(err, apperrors.ErrGeneration)
	}

	return types.ChatResponse{
		Answer:     answer,
		AnswerHTML: format.RenderAnswer(answer),
	}, nil
}
