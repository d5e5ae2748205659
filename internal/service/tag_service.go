package service

import (
	"errors"
	"mysql_practice_backend/internal/model"
	"mysql_practice_backend/internal/repository"
	"mysql_practice_backend/internal/util"
	"strings"

	"gorm.io/gorm"
)

type TagView struct {
	model.QuestionTag
	QuestionCount int64 `json:"questionCount"`
}

type TagService struct {
	TagRepo      *repository.TagRepository
	QuestionRepo *repository.QuestionRepository
}

func NewTagService(tagRepo *repository.TagRepository, questionRepo *repository.QuestionRepository) *TagService {
	return &TagService{TagRepo: tagRepo, QuestionRepo: questionRepo}
}

// ListTags 所有标签及其启用题目数
func (s *TagService) ListTags() ([]TagView, error) {
	tags, err := s.TagRepo.FindAll()
	if err != nil {
		return nil, err
	}
	counts, err := s.TagRepo.CountQuestions()
	if err != nil {
		return nil, err
	}

	views := make([]TagView, 0, len(tags))
	for _, t := range tags {
		views = append(views, TagView{QuestionTag: t, QuestionCount: counts[t.ID]})
	}
	return views, nil
}

// CreateTag 名称已存在时返回已有标签
func (s *TagService) CreateTag(name, description string) (*model.QuestionTag, error) {
	name = strings.TrimSpace(name)
	if name == "" || len([]rune(name)) > 50 {
		return nil, util.Validationf("tag name must be 1..50 characters")
	}

	existing, err := s.TagRepo.FindByName(name)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	tag := &model.QuestionTag{Name: name, Description: description}
	if err := s.TagRepo.Create(tag); err != nil {
		return nil, err
	}
	return tag, nil
}

// AttachTags 覆盖题目的标签集合
func (s *TagService) AttachTags(questionID uint, tagIDs []uint) error {
	if _, err := s.QuestionRepo.FindByID(questionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrQuestionNotFound
		}
		return err
	}

	ids := uniqueIDs(tagIDs)
	tags, err := s.TagRepo.FindByIDs(ids)
	if err != nil {
		return err
	}
	if len(tags) != len(ids) {
		return util.ErrTagNotFound
	}
	return s.QuestionRepo.ReplaceTags(questionID, ids)
}
