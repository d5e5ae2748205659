package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mysql_practice_backend/internal/model"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QuestionFilter 题目列表筛选条件，零值表示不过滤
type QuestionFilter struct {
	TypeID     model.QuestionKind
	Difficulty uint
	TagID      uint
	Page       int
	PerPage    int
}

type QuestionRepository struct {
	DB       *gorm.DB
	Redis    *redis.Client
	CacheTTL time.Duration
	ctx      context.Context
}

func NewQuestionRepository(db *gorm.DB, rdb *redis.Client, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		DB:       db,
		Redis:    rdb,
		CacheTTL: ttl,
		ctx:      context.Background(),
	}
}

func questionCacheKey(id uint) string {
	return fmt.Sprintf("question:detail:%d", id)
}

func orderOptions(db *gorm.DB) *gorm.DB {
	return db.Order("multiple_choice_options.id ASC")
}

func orderAnswers(db *gorm.DB) *gorm.DB {
	return db.Order("answers.id ASC")
}

func (r *QuestionRepository) activeQuery(f QuestionFilter) *gorm.DB {
	db := r.DB.Model(&model.Question{}).Where("questions.is_active = ?", true)
	if f.TypeID != 0 {
		db = db.Where("questions.type_id = ?", f.TypeID)
	}
	if f.Difficulty != 0 {
		db = db.Where("questions.difficulty_level = ?", f.Difficulty)
	}
	if f.TagID != 0 {
		db = db.Joins("JOIN question_tag_relations ON question_tag_relations.question_id = questions.id").
			Where("question_tag_relations.tag_id = ?", f.TagID)
	}
	return db
}

// List 分页查询启用中的题目，按 id 升序
func (r *QuestionRepository) List(f QuestionFilter) ([]model.Question, int64, error) {
	var total int64
	if err := r.activeQuery(f).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var questions []model.Question
	offset := (f.Page - 1) * f.PerPage
	err := r.activeQuery(f).
		Preload("Options", orderOptions).
		Preload("Tags").
		Order("questions.id ASC").
		Offset(offset).
		Limit(f.PerPage).
		Find(&questions).Error
	return questions, total, err
}

// FindActiveByID 查询启用中的题目详情；停用或不存在时返回 gorm.ErrRecordNotFound
func (r *QuestionRepository) FindActiveByID(id uint) (*model.Question, error) {
	if q, ok := r.getCached(id); ok {
		return q, nil
	}

	var q model.Question
	err := r.DB.
		Preload("Type").
		Preload("Difficulty").
		Preload("Options", orderOptions).
		Preload("Answers", orderAnswers).
		Preload("Tags").
		Where("id = ? AND is_active = ?", id, true).
		First(&q).Error
	if err != nil {
		return nil, err
	}

	// 读库之后、写缓存之前可能被停用，写完再确认一次
	if r.setCached(&q) && !r.stillActive(q.ID) {
		r.invalidate(q.ID)
	}
	return &q, nil
}

func (r *QuestionRepository) stillActive(id uint) bool {
	var n int64
	err := r.DB.Model(&model.Question{}).Where("id = ? AND is_active = ?", id, true).Count(&n).Error
	return err == nil && n > 0
}

// FindByID 管理端查询，包含已停用题目
func (r *QuestionRepository) FindByID(id uint) (*model.Question, error) {
	var q model.Question
	err := r.DB.
		Preload("Options", orderOptions).
		Preload("Answers", orderAnswers).
		Preload("Tags").
		First(&q, id).Error
	return &q, err
}

func (r *QuestionRepository) Create(q *model.Question) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		tags := q.Tags
		if err := tx.Omit("Tags", "Type", "Difficulty").Create(q).Error; err != nil {
			return err
		}
		return replaceTagRelations(tx, q.ID, tagIDs(tags))
	})
}

// ErrQuestionReferenced 题目已被答题记录引用，题干和答案不可再改
var ErrQuestionReferenced = errors.New("question is referenced by answer history")

// Update 在一个事务内替换题干、选项、标准答案和标签，active 非空时同时修改启用状态。
// 已有答题记录的题目返回 ErrQuestionReferenced，停用后另建新题
func (r *QuestionRepository) Update(q *model.Question, tagIDs []uint, active *bool) error {
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		// 行锁与答题记录的外键检查互斥
		var current model.Question
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Where("id = ?", q.ID).
			First(&current).Error
		if err != nil {
			return err
		}
		referenced, err := hasHistory(tx, q.ID)
		if err != nil {
			return err
		}
		if referenced {
			return ErrQuestionReferenced
		}

		fields := map[string]interface{}{
			"type_id":          q.TypeID,
			"difficulty_level": q.DifficultyLevel,
			"content":          q.Content,
			"updated_by":       q.UpdatedBy,
			"updated_at":       time.Now(),
		}
		if active != nil {
			fields["is_active"] = *active
		}
		if err := tx.Model(&model.Question{}).Where("id = ?", q.ID).Updates(fields).Error; err != nil {
			return err
		}

		if err := tx.Where("question_id = ?", q.ID).Delete(&model.MultipleChoiceOption{}).Error; err != nil {
			return err
		}
		if err := tx.Where("question_id = ?", q.ID).Delete(&model.Answer{}).Error; err != nil {
			return err
		}

		for i := range q.Options {
			q.Options[i].ID = 0
			q.Options[i].QuestionID = q.ID
		}
		if len(q.Options) > 0 {
			if err := tx.Create(&q.Options).Error; err != nil {
				return err
			}
		}

		for i := range q.Answers {
			q.Answers[i].ID = 0
			q.Answers[i].QuestionID = q.ID
		}
		if len(q.Answers) > 0 {
			if err := tx.Create(&q.Answers).Error; err != nil {
				return err
			}
		}
		return replaceTagRelations(tx, q.ID, tagIDs)
	})

	if err == nil {
		r.invalidate(q.ID)
	}
	return err
}

func hasHistory(db *gorm.DB, questionID uint) (bool, error) {
	var n int64
	err := db.Model(&model.UserAnswerHistory{}).Where("question_id = ?", questionID).Limit(1).Count(&n).Error
	return n > 0, err
}

// SetActive 启用/停用题目（软删除）
func (r *QuestionRepository) SetActive(id uint, active bool, operatorID uint) error {
	res := r.DB.Model(&model.Question{}).Where("id = ?", id).Updates(map[string]interface{}{
		"is_active":  active,
		"updated_by": operatorID,
		"updated_at": time.Now(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	r.invalidate(id)
	return nil
}

// ReplaceTags 覆盖题目的标签
func (r *QuestionRepository) ReplaceTags(questionID uint, tagIDs []uint) error {
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		return replaceTagRelations(tx, questionID, tagIDs)
	})
	if err == nil {
		r.invalidate(questionID)
	}
	return err
}

func replaceTagRelations(tx *gorm.DB, questionID uint, ids []uint) error {
	if err := tx.Where("question_id = ?", questionID).Delete(&model.QuestionTagRelation{}).Error; err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	relations := make([]model.QuestionTagRelation, 0, len(ids))
	seen := make(map[uint]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		relations = append(relations, model.QuestionTagRelation{QuestionID: questionID, TagID: id})
	}
	return tx.Create(&relations).Error
}

func tagIDs(tags []model.QuestionTag) []uint {
	ids := make([]uint, 0, len(tags))
	for _, t := range tags {
		ids = append(ids, t.ID)
	}
	return ids
}

func (r *QuestionRepository) ListTypes() ([]model.QuestionType, error) {
	var types []model.QuestionType
	err := r.DB.Where("is_active = ?", true).Order("id ASC").Find(&types).Error
	return types, err
}

func (r *QuestionRepository) ListDifficulties() ([]model.DifficultyLevel, error) {
	var levels []model.DifficultyLevel
	err := r.DB.Where("is_active = ?", true).Order("id ASC").Find(&levels).Error
	return levels, err
}

// CountActive 启用中的题目总数
func (r *QuestionRepository) CountActive() (int64, error) {
	var count int64
	err := r.DB.Model(&model.Question{}).Where("is_active = ?", true).Count(&count).Error
	return count, err
}

// CountByDifficulty 各难度下启用中的题目数
func (r *QuestionRepository) CountByDifficulty() (map[uint]int64, error) {
	var rows []struct {
		DifficultyLevel uint
		Total           int64
	}
	err := r.DB.Model(&model.Question{}).
		Select("difficulty_level, COUNT(*) AS total").
		Where("is_active = ?", true).
		Group("difficulty_level").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uint]int64, len(rows))
	for _, row := range rows {
		out[row.DifficultyLevel] = row.Total
	}
	return out, nil
}

// ListUnanswered 用户尚未作答过的启用题目，先易后难
func (r *QuestionRepository) ListUnanswered(userID uint, limit int) ([]model.Question, error) {
	var questions []model.Question
	err := r.DB.
		Preload("Options", orderOptions).
		Preload("Tags").
		Where("questions.is_active = ?", true).
		Where("NOT EXISTS (SELECT 1 FROM user_answer_history h WHERE h.question_id = questions.id AND h.user_id = ?)", userID).
		Order("questions.difficulty_level ASC, questions.id ASC").
		Limit(limit).
		Find(&questions).Error
	return questions, err
}

// ListUntagged 没有任何标签的题目，按 id 升序
func (r *QuestionRepository) ListUntagged(limit int) ([]model.Question, error) {
	var questions []model.Question
	err := r.DB.
		Where("NOT EXISTS (SELECT 1 FROM question_tag_relations rel WHERE rel.question_id = questions.id)").
		Order("questions.id ASC").
		Limit(limit).
		Find(&questions).Error
	return questions, err
}

// FindAnswers 批量获取标准答案
func (r *QuestionRepository) FindAnswers(questionIDs []uint) (map[uint][]model.Answer, error) {
	out := make(map[uint][]model.Answer, len(questionIDs))
	if len(questionIDs) == 0 {
		return out, nil
	}
	var answers []model.Answer
	if err := r.DB.Where("question_id IN ?", questionIDs).Order("id ASC").Find(&answers).Error; err != nil {
		return nil, err
	}
	for _, a := range answers {
		out[a.QuestionID] = append(out[a.QuestionID], a)
	}
	return out, nil
}

// 详情缓存，Redis 不可用时直接回源
func (r *QuestionRepository) getCached(id uint) (*model.Question, bool) {
	if r.Redis == nil {
		return nil, false
	}
	data, err := r.Redis.Get(r.ctx, questionCacheKey(id)).Bytes()
	if err != nil {
		return nil, false
	}
	var q model.Question
	if err := json.Unmarshal(data, &q); err != nil {
		return nil, false
	}
	return &q, true
}

func (r *QuestionRepository) setCached(q *model.Question) bool {
	if r.Redis == nil || r.CacheTTL <= 0 {
		return false
	}
	data, err := json.Marshal(q)
	if err != nil {
		return false
	}
	return r.Redis.Set(r.ctx, questionCacheKey(q.ID), data, r.CacheTTL).Err() == nil
}

func (r *QuestionRepository) invalidate(id uint) {
	if r.Redis == nil {
		return
	}
	r.Redis.Del(r.ctx, questionCacheKey(id))
}
