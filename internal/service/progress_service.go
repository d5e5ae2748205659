package service

import (
	"errors"
	"mysql_practice_backend/internal/model"
	"mysql_practice_backend/internal/repository"
	"mysql_practice_backend/internal/util"
	"strconv"
	"time"

	"gorm.io/gorm"
)

const (
	DefaultMistakes = 10
	MaxMistakes     = 100
	DefaultDays     = 7
	MaxDays         = 90
)

type HistoryQuery struct {
	From      *time.Time
	To        *time.Time
	IsCorrect *bool
	TypeID    uint
	Page      int
	PerPage   int
}

// HistoryView 答题记录，附带题干摘要
type HistoryView struct {
	ID            uint               `json:"id"`
	QuestionID    uint               `json:"questionId"`
	TypeID        model.QuestionKind `json:"typeId"`
	Content       string             `json:"content"`
	AnswerContent string             `json:"answerContent"`
	IsCorrect     bool               `json:"isCorrect"`
	Score         float64            `json:"score"`
	Explanation   string             `json:"explanation"`
	AnswerTime    time.Time          `json:"answerTime"`
}

// ProgressService 只读汇总用户答题记录
type ProgressService struct {
	HistoryRepo  *repository.HistoryRepository
	QuestionRepo *repository.QuestionRepository
	now          func() time.Time
}

func NewProgressService(historyRepo *repository.HistoryRepository, questionRepo *repository.QuestionRepository) *ProgressService {
	return &ProgressService{HistoryRepo: historyRepo, QuestionRepo: questionRepo, now: time.Now}
}

// GetProgress 无答题记录时各维度均为 0
func (s *ProgressService) GetProgress(userID uint) (*model.Progress, error) {
	totals, err := s.HistoryRepo.Totals(userID)
	if err != nil {
		return nil, err
	}
	totalQuestions, err := s.QuestionRepo.CountActive()
	if err != nil {
		return nil, err
	}

	p := &model.Progress{
		UserID:               userID,
		TotalAttempted:       totals.Attempted,
		TotalCorrect:         totals.Correct,
		AnsweredQuestions:    totals.Answered,
		TotalQuestions:       totalQuestions,
		Accuracy:             model.NewAccuracyStat(totals.Attempted, totals.Correct).Accuracy,
		AccuracyByType:       make(map[string]model.AccuracyStat, len(model.AllKinds)),
		AccuracyByDifficulty: make(map[string]model.AccuracyStat, model.MaxDifficulty),
	}

	for _, k := range model.AllKinds {
		p.AccuracyByType[k.Code()] = model.AccuracyStat{}
	}
	for d := model.MinDifficulty; d <= model.MaxDifficulty; d++ {
		p.AccuracyByDifficulty[strconv.Itoa(d)] = model.AccuracyStat{}
	}

	byType, err := s.HistoryRepo.StatsByType(userID)
	if err != nil {
		return nil, err
	}
	for _, row := range byType {
		p.AccuracyByType[model.QuestionKind(row.GroupKey).Code()] = model.NewAccuracyStat(row.Attempted, row.Correct)
	}

	byDifficulty, err := s.HistoryRepo.StatsByDifficulty(userID)
	if err != nil {
		return nil, err
	}
	for _, row := range byDifficulty {
		p.AccuracyByDifficulty[strconv.FormatUint(uint64(row.GroupKey), 10)] = model.NewAccuracyStat(row.Attempted, row.Correct)
	}

	latest, err := s.HistoryRepo.Latest(userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if latest != nil {
		t := latest.AnswerTime
		p.LastAnswerTime = &t
	}
	return p, nil
}

func (s *ProgressService) History(userID uint, q HistoryQuery) ([]HistoryView, int64, error) {
	if err := ValidatePage(q.Page, q.PerPage); err != nil {
		return nil, 0, err
	}
	if q.From != nil && q.To != nil && !q.From.Before(*q.To) {
		return nil, 0, util.Validationf("from must be before to")
	}
	if q.TypeID != 0 && !model.QuestionKind(q.TypeID).Valid() {
		return nil, 0, util.Validationf("unknown question type %d", q.TypeID)
	}

	records, total, err := s.HistoryRepo.List(userID, repository.HistoryFilter{
		From:      q.From,
		To:        q.To,
		IsCorrect: q.IsCorrect,
		TypeID:    model.QuestionKind(q.TypeID),
		Page:      q.Page,
		PerPage:   q.PerPage,
	})
	if err != nil {
		return nil, 0, err
	}

	views := make([]HistoryView, 0, len(records))
	for _, r := range records {
		v := HistoryView{
			ID:            r.ID,
			QuestionID:    r.QuestionID,
			AnswerContent: r.AnswerContent,
			IsCorrect:     r.IsCorrect,
			Score:         r.Score,
			Explanation:   r.Explanation,
			AnswerTime:    r.AnswerTime,
		}
		if r.Question != nil {
			v.TypeID = r.Question.TypeID
			v.Content = r.Question.Content
		}
		views = append(views, v)
	}
	return views, total, nil
}

// Mistakes 错误次数最多的题目及其标准答案
func (s *ProgressService) Mistakes(userID uint, limit int) ([]model.MistakeStat, error) {
	if limit == 0 {
		limit = DefaultMistakes
	}
	if limit < 1 || limit > MaxMistakes {
		return nil, util.Validationf("limit must be in 1..%d", MaxMistakes)
	}

	rows, err := s.HistoryRepo.MostMissed(userID, limit)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.QuestionID)
	}
	answers, err := s.QuestionRepo.FindAnswers(ids)
	if err != nil {
		return nil, err
	}

	out := make([]model.MistakeStat, 0, len(rows))
	for _, r := range rows {
		stat := model.MistakeStat{
			QuestionID:     r.QuestionID,
			Content:        r.Content,
			TypeID:         r.TypeID,
			ErrorCount:     r.ErrorCount,
			CorrectAnswers: []string{},
		}
		for _, a := range answers[r.QuestionID] {
			stat.CorrectAnswers = append(stat.CorrectAnswers, a.AnswerContent)
		}
		out = append(out, stat)
	}
	return out, nil
}

// Daily 最近 days 天（含今天）每天的答题情况，按本地时区分日
func (s *ProgressService) Daily(userID uint, days int) ([]model.DailyProgress, error) {
	if days == 0 {
		days = DefaultDays
	}
	if days < 1 || days > MaxDays {
		return nil, util.Validationf("days must be in 1..%d", MaxDays)
	}

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	from := today.AddDate(0, 0, -(days - 1))

	records, err := s.HistoryRepo.Since(userID, from)
	if err != nil {
		return nil, err
	}

	out := make([]model.DailyProgress, days)
	index := make(map[string]int, days)
	for i := range out {
		date := from.AddDate(0, 0, i).Format(util.DateFormat)
		out[i].Date = date
		index[date] = i
	}
	for _, r := range records {
		i, ok := index[r.AnswerTime.In(now.Location()).Format(util.DateFormat)]
		if !ok {
			continue
		}
		out[i].Attempted++
		if r.IsCorrect {
			out[i].Correct++
		}
	}
	for i := range out {
		out[i].Accuracy = model.NewAccuracyStat(out[i].Attempted, out[i].Correct).Accuracy
	}
	return out, nil
}
