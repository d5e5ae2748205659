package service

import (
	"context"
	"mysql_practice_backend/internal/repository"
	"mysql_practice_backend/pkg/logger"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
)

const autoTagBatch = 50

// TagSuggester 为题目推荐标签名
type TagSuggester interface {
	SuggestTags(ctx context.Context, questionText string, existing []string) ([]string, error)
}

// AutoTaggingService 扫描没有标签的题目，调用 AI 生成标签并写回
type AutoTaggingService struct {
	QuestionRepo *repository.QuestionRepository
	Tags         *TagService
	AI           TagSuggester
	// 两次 AI 调用之间的间隔
	Pause        time.Duration
}

func NewAutoTaggingService(questionRepo *repository.QuestionRepository, tags *TagService, ai TagSuggester) *AutoTaggingService {
	return &AutoTaggingService{QuestionRepo: questionRepo, Tags: tags, AI: ai, Pause: time.Second}
}

type AutoTagResult struct {
	Total  int `json:"total"`
	Tagged int `json:"tagged"`
}

// RunAutoTagging 执行一次自动打标签任务，单题失败只记录日志
func (s *AutoTaggingService) RunAutoTagging(ctx context.Context) (AutoTagResult, error) {
	var result AutoTagResult

	questions, err := s.QuestionRepo.ListUntagged(autoTagBatch)
	if err != nil {
		return result, err
	}
	result.Total = len(questions)
	if len(questions) == 0 {
		return result, nil
	}

	existing, err := s.Tags.TagRepo.FindAll()
	if err != nil {
		return result, err
	}
	names := make([]string, 0, len(existing))
	for _, t := range existing {
		names = append(names, t.Name)
	}

	logger.Log.Info("开始为题目自动生成标签", zap.Int("count", len(questions)))

	for i, q := range questions {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if i > 0 && s.Pause > 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(s.Pause):
			}
		}

		suggested, err := s.AI.SuggestTags(ctx, q.Content, names)
		if err != nil {
			logger.Log.Warn("AI生成标签失败", zap.Uint("questionID", q.ID), zap.Error(err))
			continue
		}

		var ids []uint
		for _, name := range cleanTags(suggested) {
			tag, err := s.Tags.CreateTag(name, "")
			if err != nil {
				logger.Log.Warn("创建标签失败", zap.String("tag", name), zap.Error(err))
				continue
			}
			ids = append(ids, tag.ID)
			if !slices.Contains(names, tag.Name) {
				names = append(names, tag.Name)
			}
		}
		if len(ids) == 0 {
			continue
		}

		if err := s.Tags.AttachTags(q.ID, ids); err != nil {
			logger.Log.Warn("更新题目标签失败", zap.Uint("questionID", q.ID), zap.Error(err))
			continue
		}
		result.Tagged++
	}

	logger.Log.Info("题目自动打标签完成", zap.Int("tagged", result.Tagged), zap.Int("total", result.Total))
	return result, nil
}

// cleanTags 去掉空白、markdown 符号和重复
func cleanTags(raw []string) []string {
	var cleaned []string
	for _, t := range raw {
		t = strings.Trim(strings.TrimSpace(t), "`#*")
		if t == "" || len([]rune(t)) > 50 || slices.Contains(cleaned, t) {
			continue
		}
		cleaned = append(cleaned, t)
	}
	return cleaned
}

// truncate 截取文本前 n 个字符
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
