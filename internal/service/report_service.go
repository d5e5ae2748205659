package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"mysql_practice_backend/internal/model"
	"mysql_practice_backend/internal/util"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
)

type Report struct {
	FileName    string    `json:"fileName"`
	URL         string    `json:"url"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// ReportService 导出学习报告 CSV
type ReportService struct {
	Progress *ProgressService
	Storage  *StorageService
}

func NewReportService(progress *ProgressService, storage *StorageService) *ReportService {
	return &ReportService{Progress: progress, Storage: storage}
}

func (s *ReportService) Export(ctx context.Context, userID uint) (*Report, error) {
	p, err := s.Progress.GetProgress(userID)
	if err != nil {
		return nil, err
	}
	mistakes, err := s.Progress.Mistakes(userID, DefaultMistakes)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	data, err := renderReport(p, mistakes, now)
	if err != nil {
		return nil, err
	}

	name := fmt.Sprintf("reports/%d/%s-%s.csv", userID, now.Format("20060102"), uuid.NewString())
	url, err := s.Storage.Upload(ctx, name, bytes.NewReader(data), int64(len(data)), util.MimeCSV)
	if err != nil {
		return nil, err
	}
	return &Report{FileName: name, URL: url, GeneratedAt: now}, nil
}

func renderReport(p *model.Progress, mistakes []model.MistakeStat, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	// Excel 打开中文 CSV 需要 BOM
	buf.WriteString("\ufeff")
	w := csv.NewWriter(&buf)

	ratio := func(f float64) string { return strconv.FormatFloat(f, 'f', 4, 64) }
	count := func(n int64) string { return strconv.FormatInt(n, 10) }

	rows := [][]string{
		{"section", "key", "attempted", "correct", "accuracy"},
		{"summary", "generated_at", now.Format(util.TimeFormat), "", ""},
		{"summary", "total", count(p.TotalAttempted), count(p.TotalCorrect), ratio(p.Accuracy)},
		{"summary", "answered_questions", count(p.AnsweredQuestions), count(p.TotalQuestions), ""},
	}

	for _, k := range model.AllKinds {
		stat := p.AccuracyByType[k.Code()]
		rows = append(rows, []string{"type", k.Code(), count(stat.Attempted), count(stat.Correct), ratio(stat.Accuracy)})
	}

	levels := make([]string, 0, len(p.AccuracyByDifficulty))
	for level := range p.AccuracyByDifficulty {
		levels = append(levels, level)
	}
	slices.Sort(levels)
	for _, level := range levels {
		stat := p.AccuracyByDifficulty[level]
		rows = append(rows, []string{"difficulty", level, count(stat.Attempted), count(stat.Correct), ratio(stat.Accuracy)})
	}

	for _, m := range mistakes {
		rows = append(rows, []string{"mistake", strconv.FormatUint(uint64(m.QuestionID), 10), count(m.ErrorCount), "", m.Content})
	}

	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
