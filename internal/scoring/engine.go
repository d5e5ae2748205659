// Package scoring evaluates submitted answers against stored questions.
//
// Closed question types (choice, true/false, fill-in) are scored
// deterministically. Short-answer and design questions are delegated to a
// Grader under a bounded timeout; a grader failure is reported as
// util.ErrGradingUnavailable and never turned into a wrong answer.
// The engine does not persist anything.
package scoring

import (
	"context"
	"fmt"
	"math"
	"mysql_practice_backend/internal/model"
	"mysql_practice_backend/internal/util"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	DefaultPassThreshold = 0.7
	DefaultTimeout       = 30 * time.Second
)

// Grade is what an external grader returns for a free-text answer.
type Grade struct {
	Score       float64
	Explanation string
}

// Grader scores free-text answers. Implementations must honour ctx.
type Grader interface {
	Evaluate(ctx context.Context, questionText, canonicalAnswer, submittedAnswer string) (Grade, error)
}

// Result of evaluating one submission.
type Result struct {
	IsCorrect   bool    `json:"isCorrect"`
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation"`
}

// Option is the scoring view of a multiple-choice option.
type Option struct {
	ID        uint
	Label     string
	IsCorrect bool
}

// Item is the scoring view of a question.
type Item struct {
	ID          uint
	Kind        model.QuestionKind
	Content     string
	Options     []Option
	Canonical   []string
	Explanation string
}

// FromQuestion builds an Item from a loaded question with options and answers.
func FromQuestion(q *model.Question) Item {
	item := Item{
		ID:          q.ID,
		Kind:        q.TypeID,
		Content:     q.Content,
		Canonical:   q.CanonicalAnswers(),
		Explanation: q.Explanation(),
	}
	for _, o := range q.Options {
		item.Options = append(item.Options, Option{ID: o.ID, Label: o.Label, IsCorrect: o.IsCorrect})
	}
	return item
}

type Engine struct {
	grader Grader

	mu            sync.RWMutex
	passThreshold float64
	timeout       time.Duration
}

type EngineOption func(*Engine)

func WithPassThreshold(t float64) EngineOption {
	return func(e *Engine) { e.passThreshold = t }
}

func WithTimeout(d time.Duration) EngineOption {
	return func(e *Engine) { e.timeout = d }
}

// NewEngine creates an engine. grader may be nil, in which case
// short-answer and design questions always fail with ErrGradingUnavailable.
func NewEngine(grader Grader, opts ...EngineOption) *Engine {
	e := &Engine{
		grader:        grader,
		passThreshold: DefaultPassThreshold,
		timeout:       DefaultTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Configure updates the runtime-tunable settings.
func (e *Engine) Configure(passThreshold float64, timeout time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if passThreshold >= 0 && passThreshold <= 1 {
		e.passThreshold = passThreshold
	}
	if timeout > 0 {
		e.timeout = timeout
	}
}

func (e *Engine) settings() (float64, time.Duration) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.passThreshold, e.timeout
}

// Evaluate scores submitted against item.
func (e *Engine) Evaluate(ctx context.Context, item Item, submitted string) (Result, error) {
	if strings.TrimSpace(submitted) == "" {
		return Result{}, util.Validationf("answer must not be empty")
	}

	switch item.Kind {
	case model.KindChoice:
		return evaluateChoice(item, submitted)
	case model.KindTrueFalse:
		return evaluateTrueFalse(item, submitted)
	case model.KindFillBlank:
		return evaluateFillBlank(item, submitted)
	case model.KindShortAnswer, model.KindDesign:
		return e.evaluateFreeText(ctx, item, submitted)
	default:
		return Result{}, util.Validationf("unknown question type %d", item.Kind)
	}
}

func evaluateChoice(item Item, submitted string) (Result, error) {
	byLabel := make(map[string]Option, len(item.Options))
	byID := make(map[uint]Option, len(item.Options))
	correct := make(map[uint]bool)
	var correctLabels []string
	for _, o := range item.Options {
		byLabel[strings.ToUpper(strings.TrimSpace(o.Label))] = o
		byID[o.ID] = o
		if o.IsCorrect {
			correct[o.ID] = true
			correctLabels = append(correctLabels, o.Label)
		}
	}
	if len(correct) == 0 {
		return Result{}, util.Validationf("question %d has no correct option", item.ID)
	}

	selected := make(map[uint]bool)
	for _, token := range splitChoices(submitted) {
		if o, ok := byLabel[token]; ok {
			selected[o.ID] = true
			continue
		}
		if id, err := strconv.ParseUint(token, 10, 64); err == nil {
			if o, ok := byID[uint(id)]; ok {
				selected[o.ID] = true
				continue
			}
		}
		return Result{}, util.Validationf("unknown option %q", token)
	}
	if len(selected) == 0 {
		return Result{}, util.Validationf("no option selected")
	}

	ok := len(selected) == len(correct)
	if ok {
		for id := range selected {
			if !correct[id] {
				ok = false
				break
			}
		}
	}
	return deterministic(ok, strings.Join(correctLabels, ","), item.Explanation), nil
}

func evaluateTrueFalse(item Item, submitted string) (Result, error) {
	got, ok := parseBool(submitted)
	if !ok {
		return Result{}, util.Validationf("unrecognized true/false answer %q", submitted)
	}

	for _, c := range item.Canonical {
		want, ok := parseBool(c)
		if !ok {
			continue
		}
		label := "错误"
		if want {
			label = "正确"
		}
		return deterministic(got == want, label, item.Explanation), nil
	}
	return Result{}, util.Validationf("question %d has no valid true/false answer", item.ID)
}

func evaluateFillBlank(item Item, submitted string) (Result, error) {
	if len(item.Canonical) == 0 {
		return Result{}, util.Validationf("question %d has no reference answer", item.ID)
	}

	normalized := normalizeAnswer(submitted)
	for _, c := range item.Canonical {
		if normalizeAnswer(c) == normalized {
			return deterministic(true, c, item.Explanation), nil
		}
	}
	return deterministic(false, item.Canonical[0], item.Explanation), nil
}

func deterministic(correct bool, answer, explanation string) Result {
	r := Result{IsCorrect: correct}
	if correct {
		r.Score = 1
		r.Explanation = "回答正确。"
	} else {
		r.Explanation = fmt.Sprintf("回答错误，正确答案：%s。", answer)
	}
	if explanation != "" {
		r.Explanation += explanation
	}
	return r
}

type gradeOutcome struct {
	grade Grade
	err   error
}

func (e *Engine) evaluateFreeText(ctx context.Context, item Item, submitted string) (Result, error) {
	if e.grader == nil {
		return Result{}, fmt.Errorf("%w: no grader configured", util.ErrGradingUnavailable)
	}

	threshold, timeout := e.settings()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	canonical := strings.Join(item.Canonical, "\n")
	done := make(chan gradeOutcome, 1)
	go func() {
		g, err := e.grader.Evaluate(ctx, item.Content, canonical, submitted)
		done <- gradeOutcome{grade: g, err: err}
	}()

	var out gradeOutcome
	select {
	case <-ctx.Done():
		return Result{}, fmt.Errorf("%w: %w", util.ErrGradingUnavailable, ctx.Err())
	case out = <-done:
	}

	if out.err != nil {
		return Result{}, fmt.Errorf("%w: %w", util.ErrGradingUnavailable, out.err)
	}
	score := out.grade.Score
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return Result{}, fmt.Errorf("%w: grader returned non-finite score", util.ErrGradingUnavailable)
	}
	score = math.Max(0, math.Min(1, score))

	explanation := out.grade.Explanation
	if explanation == "" {
		explanation = item.Explanation
	}
	return Result{
		IsCorrect:   score >= threshold,
		Score:       score,
		Explanation: explanation,
	}, nil
}
