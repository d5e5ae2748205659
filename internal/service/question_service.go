package service

import (
	"errors"
	"fmt"
	"mysql_practice_backend/internal/model"
	"mysql_practice_backend/internal/repository"
	"mysql_practice_backend/internal/scoring"
	"mysql_practice_backend/internal/util"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	DefaultRecommendations = 10
	MaxRecommendations     = 50
)

// OptionView 对学生展示的选项，不含正确性
type OptionView struct {
	ID      uint   `json:"id"`
	Label   string `json:"label"`
	Content string `json:"content"`
}

// QuestionView 对学生展示的题目，不含答案
type QuestionView struct {
	ID              uint                `json:"id"`
	TypeID          model.QuestionKind  `json:"typeId"`
	TypeCode        string              `json:"typeCode"`
	TypeName        string              `json:"typeName"`
	DifficultyLevel uint                `json:"difficultyLevel"`
	Content         string              `json:"content"`
	Options         []OptionView        `json:"options,omitempty"`
	Tags            []model.QuestionTag `json:"tags,omitempty"`
	CreatedAt       time.Time           `json:"createdAt"`
}

func NewQuestionView(q *model.Question) QuestionView {
	v := QuestionView{
		ID:              q.ID,
		TypeID:          q.TypeID,
		TypeCode:        q.TypeID.Code(),
		TypeName:        q.TypeID.Label(),
		DifficultyLevel: q.DifficultyLevel,
		Content:         q.Content,
		Tags:            q.Tags,
		CreatedAt:       q.CreatedAt,
	}
	for _, o := range q.Options {
		v.Options = append(v.Options, OptionView{ID: o.ID, Label: o.Label, Content: o.Content})
	}
	return v
}

type OptionInput struct {
	Label     string `json:"label" validate:"required,max=8"`
	Content   string `json:"content" validate:"required"`
	IsCorrect bool   `json:"isCorrect"`
}

// QuestionInput 管理端创建/更新题目
type QuestionInput struct {
	TypeID          uint          `json:"typeId" validate:"required,min=1,max=5"`
	DifficultyLevel uint          `json:"difficultyLevel" validate:"required,min=1,max=5"`
	Content         string        `json:"content" validate:"required,max=10000"`
	Options         []OptionInput `json:"options" validate:"omitempty,max=26,dive"`
	Answers         []string      `json:"answers" validate:"omitempty,dive,required"`
	Explanation     string        `json:"explanation"`
	TagIDs          []uint        `json:"tagIds"`
	IsActive        *bool         `json:"isActive"`
}

type QuestionListQuery struct {
	TypeID     uint
	Difficulty uint
	TagID      uint
	Page       int
	PerPage    int
}

type QuestionService struct {
	QuestionRepo *repository.QuestionRepository
	TagRepo      *repository.TagRepository
	validate     *validator.Validate
}

func NewQuestionService(questionRepo *repository.QuestionRepository, tagRepo *repository.TagRepository) *QuestionService {
	return &QuestionService{
		QuestionRepo: questionRepo,
		TagRepo:      tagRepo,
		validate:     validator.New(),
	}
}

// ValidatePage page 从 1 开始，per_page 在 1..100
func ValidatePage(page, perPage int) error {
	if page < 1 {
		return util.Validationf("page must be >= 1, got %d", page)
	}
	if perPage < 1 || perPage > util.MaxPerPage {
		return util.Validationf("perPage must be in 1..%d, got %d", util.MaxPerPage, perPage)
	}
	return nil
}

func (s *QuestionService) ListQuestions(q QuestionListQuery) ([]QuestionView, int64, error) {
	if err := ValidatePage(q.Page, q.PerPage); err != nil {
		return nil, 0, err
	}
	if q.TypeID != 0 && !model.QuestionKind(q.TypeID).Valid() {
		return nil, 0, util.Validationf("unknown question type %d", q.TypeID)
	}
	if q.Difficulty != 0 && (q.Difficulty < model.MinDifficulty || q.Difficulty > model.MaxDifficulty) {
		return nil, 0, util.Validationf("difficulty must be in %d..%d", model.MinDifficulty, model.MaxDifficulty)
	}

	questions, total, err := s.QuestionRepo.List(repository.QuestionFilter{
		TypeID:     model.QuestionKind(q.TypeID),
		Difficulty: q.Difficulty,
		TagID:      q.TagID,
		Page:       q.Page,
		PerPage:    q.PerPage,
	})
	if err != nil {
		return nil, 0, err
	}

	views := make([]QuestionView, 0, len(questions))
	for i := range questions {
		views = append(views, NewQuestionView(&questions[i]))
	}
	return views, total, nil
}

// GetActive 启用题目的完整数据（含答案），仅供服务内部判题使用
func (s *QuestionService) GetActive(id uint) (*model.Question, error) {
	q, err := s.QuestionRepo.FindActiveByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrQuestionNotFound
	}
	if err != nil {
		return nil, err
	}
	return q, nil
}

func (s *QuestionService) GetQuestion(id uint) (*QuestionView, error) {
	q, err := s.GetActive(id)
	if err != nil {
		return nil, err
	}
	v := NewQuestionView(q)
	return &v, nil
}

// GetForAdmin 管理端查看，包含答案和已停用题目
func (s *QuestionService) GetForAdmin(id uint) (*model.Question, error) {
	q, err := s.QuestionRepo.FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrQuestionNotFound
	}
	return q, err
}

func (s *QuestionService) build(in *QuestionInput) (*model.Question, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %s", util.ErrValidation, err.Error())
	}

	q := &model.Question{
		TypeID:          model.QuestionKind(in.TypeID),
		DifficultyLevel: in.DifficultyLevel,
		Content:         strings.TrimSpace(in.Content),
	}
	for _, o := range in.Options {
		q.Options = append(q.Options, model.MultipleChoiceOption{
			Label:     strings.ToUpper(strings.TrimSpace(o.Label)),
			Content:   o.Content,
			IsCorrect: o.IsCorrect,
		})
	}

	answers := in.Answers
	// 选择题的标准答案即正确选项，解析仍需落库
	if q.TypeID == model.KindChoice && len(answers) == 0 {
		for _, o := range q.CorrectOptions() {
			answers = append(answers, o.Label)
		}
	}
	for i, a := range answers {
		ans := model.Answer{AnswerContent: strings.TrimSpace(a)}
		if i == 0 {
			ans.Explanation = in.Explanation
		}
		q.Answers = append(q.Answers, ans)
	}

	if err := scoring.ValidateItem(scoring.FromQuestion(q)); err != nil {
		return nil, err
	}

	if len(in.TagIDs) > 0 {
		tags, err := s.TagRepo.FindByIDs(in.TagIDs)
		if err != nil {
			return nil, err
		}
		if len(tags) != len(uniqueIDs(in.TagIDs)) {
			return nil, util.ErrTagNotFound
		}
		q.Tags = tags
	}
	return q, nil
}

func (s *QuestionService) CreateQuestion(in *QuestionInput, operatorID uint) (*model.Question, error) {
	q, err := s.build(in)
	if err != nil {
		return nil, err
	}
	q.CreatedBy = operatorID
	q.UpdatedBy = operatorID

	if err := s.QuestionRepo.Create(q); err != nil {
		return nil, err
	}
	// IsActive 列默认 true，创建时无法直接写入 false
	if in.IsActive != nil && !*in.IsActive {
		if err := s.QuestionRepo.SetActive(q.ID, false, operatorID); err != nil {
			return nil, err
		}
	}
	return s.GetForAdmin(q.ID)
}

// UpdateQuestion 整体替换题目内容；已被作答过的题目只能停用或改标签
func (s *QuestionService) UpdateQuestion(id uint, in *QuestionInput, operatorID uint) (*model.Question, error) {
	q, err := s.build(in)
	if err != nil {
		return nil, err
	}
	q.ID = id
	q.UpdatedBy = operatorID

	err = s.QuestionRepo.Update(q, uniqueIDs(in.TagIDs), in.IsActive)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, util.ErrQuestionNotFound
	case errors.Is(err, repository.ErrQuestionReferenced):
		return nil, util.ErrQuestionAnswered
	case err != nil:
		return nil, err
	}
	return s.GetForAdmin(id)
}

// SetActive 停用或重新启用题目
func (s *QuestionService) SetActive(id uint, active bool, operatorID uint) error {
	err := s.QuestionRepo.SetActive(id, active, operatorID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrQuestionNotFound
	}
	return err
}

func (s *QuestionService) ListTypes() ([]model.QuestionType, error) {
	return s.QuestionRepo.ListTypes()
}

// ListDifficulties 附带每个难度的启用题目数
func (s *QuestionService) ListDifficulties() ([]model.DifficultyLevel, error) {
	levels, err := s.QuestionRepo.ListDifficulties()
	if err != nil {
		return nil, err
	}
	counts, err := s.QuestionRepo.CountByDifficulty()
	if err != nil {
		return nil, err
	}
	for i := range levels {
		levels[i].QuestionCount = counts[levels[i].ID]
	}
	return levels, nil
}

// Recommend 推荐用户从未作答过的题目，先易后难
func (s *QuestionService) Recommend(userID uint, n int) ([]QuestionView, error) {
	if n == 0 {
		n = DefaultRecommendations
	}
	if n < 1 || n > MaxRecommendations {
		return nil, util.Validationf("n must be in 1..%d, got %d", MaxRecommendations, n)
	}

	questions, err := s.QuestionRepo.ListUnanswered(userID, n)
	if err != nil {
		return nil, err
	}
	views := make([]QuestionView, 0, len(questions))
	for i := range questions {
		views = append(views, NewQuestionView(&questions[i]))
	}
	return views, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
