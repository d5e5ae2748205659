package service

import (
	"context"
	"errors"
	"fmt"
	"mysql_practice_backend/internal/config"
	"mysql_practice_backend/internal/model"
	"mysql_practice_backend/internal/scoring"
	"mysql_practice_backend/internal/util"
	"mysql_practice_backend/pkg/logger"
	"mysql_practice_backend/pkg/monitoring"
	"mysql_practice_backend/pkg/tracing"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const MaxBatchSize = 50

// HistoryWriter 答题记录写入
type HistoryWriter interface {
	Append(ctx context.Context, h *model.UserAnswerHistory) error
}

// Explainer 为答错的客观题生成讲解
type Explainer interface {
	Explain(ctx context.Context, questionText, correctAnswer, submittedAnswer string) (string, error)
}

type SubmissionResult struct {
	QuestionID  uint      `json:"questionId"`
	HistoryID   uint      `json:"historyId"`
	IsCorrect   bool      `json:"isCorrect"`
	Score       float64   `json:"score"`
	Explanation string    `json:"explanation"`
	AnswerTime  time.Time `json:"answerTime"`
}

type SubmissionItem struct {
	QuestionID uint   `json:"questionId" binding:"required"`
	Answer     string `json:"answer" binding:"required"`
}

type BatchItemResult struct {
	QuestionID uint              `json:"questionId"`
	Result     *SubmissionResult `json:"result,omitempty"`
	Error      string            `json:"error,omitempty"`
	Status     int               `json:"status"`
}

type scoringSettings struct {
	gradingRetries int
	historyRetries int
	batchLimit     int
	aiExplanations bool
}

type ScoringService struct {
	Questions *QuestionService
	History   HistoryWriter
	Engine    *scoring.Engine
	Explainer Explainer

	mu       sync.RWMutex
	settings scoringSettings
	// 两次写入重试之间的等待
	retryWait time.Duration
}

func NewScoringService(questions *QuestionService, history HistoryWriter, engine *scoring.Engine, explainer Explainer, cfg config.ScoringConfig) *ScoringService {
	s := &ScoringService{
		Questions: questions,
		History:   history,
		Engine:    engine,
		Explainer: explainer,
		retryWait: 50 * time.Millisecond,
	}
	s.ApplyConfig(cfg)
	return s
}

// ApplyConfig 热加载评分相关配置
func (s *ScoringService) ApplyConfig(cfg config.ScoringConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = scoringSettings{
		gradingRetries: max(cfg.GradingRetries, 0),
		historyRetries: max(cfg.HistoryRetries, 0),
		batchLimit:     max(cfg.BatchLimit, 1),
		aiExplanations: cfg.AIExplanations,
	}
}

func (s *ScoringService) current() scoringSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// SubmitAnswer 判题并追加答题记录
// 评分不可用时不写记录；写入失败重试后返回 ErrStorage
func (s *ScoringService) SubmitAnswer(ctx context.Context, userID, questionID uint, answer string) (*SubmissionResult, error) {
	ctx, span := tracing.StartSpan(ctx, "scoring.SubmitAnswer",
		attribute.Int64("user.id", int64(userID)),
		attribute.Int64("question.id", int64(questionID)),
	)
	defer span.End()

	settings := s.current()

	q, err := s.Questions.GetActive(questionID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	item := scoring.FromQuestion(q)
	span.SetAttributes(attribute.String("question.type", q.TypeID.Code()))

	start := time.Now()
	result, err := s.evaluate(ctx, item, answer, settings.gradingRetries)
	monitoring.ObserveEvaluation(q.TypeID.Code(), outcome(result, err), time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if !result.IsCorrect && !q.TypeID.NeedsGrader() && settings.aiExplanations {
		result.Explanation = s.explain(ctx, q, answer, result.Explanation)
	}

	record := &model.UserAnswerHistory{
		UserID:        userID,
		QuestionID:    questionID,
		AnswerContent: answer,
		IsCorrect:     result.IsCorrect,
		Score:         result.Score,
		Explanation:   result.Explanation,
		AnswerTime:    time.Now(),
	}
	if err := s.appendHistory(ctx, record, settings.historyRetries); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Bool("answer.correct", result.IsCorrect), attribute.Float64("answer.score", result.Score))
	return &SubmissionResult{
		QuestionID:  questionID,
		HistoryID:   record.ID,
		IsCorrect:   result.IsCorrect,
		Score:       result.Score,
		Explanation: result.Explanation,
		AnswerTime:  record.AnswerTime,
	}, nil
}

func (s *ScoringService) evaluate(ctx context.Context, item scoring.Item, answer string, retries int) (scoring.Result, error) {
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		result, err := s.Engine.Evaluate(ctx, item, answer)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, util.ErrGradingUnavailable) || ctx.Err() != nil {
			return scoring.Result{}, err
		}
		lastErr = err
		logger.Log.Warn("评分服务不可用",
			zap.Uint("questionID", item.ID),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
	return scoring.Result{}, lastErr
}

func (s *ScoringService) appendHistory(ctx context.Context, record *model.UserAnswerHistory, retries int) error {
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %w", util.ErrStorage, ctx.Err())
			case <-time.After(s.retryWait):
			}
			record.ID = 0
		}
		err := s.History.Append(ctx, record)
		if err == nil {
			return nil
		}
		lastErr = err
		logger.Log.Error("答题记录写入失败",
			zap.Uint("userID", record.UserID),
			zap.Uint("questionID", record.QuestionID),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
	return fmt.Errorf("%w: append answer history: %w", util.ErrStorage, lastErr)
}

// explain 失败时保留原解析
func (s *ScoringService) explain(ctx context.Context, q *model.Question, answer, fallback string) string {
	if s.Explainer == nil {
		return fallback
	}
	correct := strings.Join(q.CanonicalAnswers(), " / ")
	if q.TypeID == model.KindChoice {
		var labels []string
		for _, o := range q.CorrectOptions() {
			labels = append(labels, o.Label+". "+o.Content)
		}
		correct = strings.Join(labels, "; ")
	}

	text, err := s.Explainer.Explain(ctx, q.Content, correct, answer)
	if err != nil || text == "" {
		logger.Log.Debug("AI 讲解生成失败", zap.Uint("questionID", q.ID), zap.Error(err))
		return fallback
	}
	return fallback + "\n" + text
}

// SubmitBatch 并发判题，单题失败不影响其他题
func (s *ScoringService) SubmitBatch(ctx context.Context, userID uint, items []SubmissionItem) ([]BatchItemResult, error) {
	if len(items) == 0 {
		return nil, util.Validationf("batch must not be empty")
	}
	if len(items) > MaxBatchSize {
		return nil, util.Validationf("batch size must be <= %d", MaxBatchSize)
	}

	results := make([]BatchItemResult, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.current().batchLimit)

	for i, it := range items {
		g.Go(func() error {
			res, err := s.SubmitAnswer(gctx, userID, it.QuestionID, it.Answer)
			results[i] = BatchItemResult{QuestionID: it.QuestionID, Result: res, Status: util.StatusFor(err)}
			if err != nil {
				results[i].Error = err.Error()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, ctx.Err()
}

func outcome(r scoring.Result, err error) string {
	switch {
	case errors.Is(err, util.ErrGradingUnavailable):
		return "unavailable"
	case err != nil:
		return "error"
	case r.IsCorrect:
		return "correct"
	default:
		return "incorrect"
	}
}
