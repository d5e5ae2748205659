package repository

import (
	"context"
	"mysql_practice_backend/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// HistoryFilter 答题记录筛选条件
type HistoryFilter struct {
	From      *time.Time
	To        *time.Time
	IsCorrect *bool
	TypeID    model.QuestionKind
	Page      int
	PerPage   int
}

// HistoryTotals 用户答题总量
type HistoryTotals struct {
	Attempted int64
	Correct   int64
	Answered  int64
}

// GroupStat 分组统计行
type GroupStat struct {
	GroupKey  uint  `gorm:"column:group_key"`
	Attempted int64 `gorm:"column:attempted"`
	Correct   int64 `gorm:"column:correct"`
}

// MissedRow 错题统计行
type MissedRow struct {
	QuestionID uint               `gorm:"column:question_id"`
	Content    string             `gorm:"column:content"`
	TypeID     model.QuestionKind `gorm:"column:type_id"`
	ErrorCount int64              `gorm:"column:error_count"`
}

type HistoryRepository struct {
	DB *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{DB: db}
}

// Append 在事务中写入一条答题记录，记录写入后不再修改
func (r *HistoryRepository) Append(ctx context.Context, h *model.UserAnswerHistory) error {
	if h.AnswerTime.IsZero() {
		h.AnswerTime = time.Now()
	}
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit(clause.Associations).Create(h).Error
	})
}

func (r *HistoryRepository) filtered(userID uint, f HistoryFilter) *gorm.DB {
	db := r.DB.Model(&model.UserAnswerHistory{}).Where("user_answer_history.user_id = ?", userID)
	if f.From != nil {
		db = db.Where("user_answer_history.answer_time >= ?", *f.From)
	}
	if f.To != nil {
		db = db.Where("user_answer_history.answer_time < ?", *f.To)
	}
	if f.IsCorrect != nil {
		db = db.Where("user_answer_history.is_correct = ?", *f.IsCorrect)
	}
	if f.TypeID != 0 {
		db = db.Joins("JOIN questions ON questions.id = user_answer_history.question_id").
			Where("questions.type_id = ?", f.TypeID)
	}
	return db
}

// List 分页查询答题记录，最新的在前
func (r *HistoryRepository) List(userID uint, f HistoryFilter) ([]model.UserAnswerHistory, int64, error) {
	var total int64
	if err := r.filtered(userID, f).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []model.UserAnswerHistory
	err := r.filtered(userID, f).
		Preload("Question").
		Order("user_answer_history.answer_time DESC, user_answer_history.id DESC").
		Offset((f.Page - 1) * f.PerPage).
		Limit(f.PerPage).
		Find(&records).Error
	return records, total, err
}

func (r *HistoryRepository) Totals(userID uint) (HistoryTotals, error) {
	var totals HistoryTotals
	err := r.DB.Model(&model.UserAnswerHistory{}).
		Select("COUNT(*) AS attempted, COALESCE(SUM(CASE WHEN is_correct = ? THEN 1 ELSE 0 END), 0) AS correct, COUNT(DISTINCT question_id) AS answered", true).
		Where("user_id = ?", userID).
		Scan(&totals).Error
	return totals, err
}

// Latest 最近一次答题记录
func (r *HistoryRepository) Latest(userID uint) (*model.UserAnswerHistory, error) {
	var h model.UserAnswerHistory
	err := r.DB.Where("user_id = ?", userID).Order("answer_time DESC, id DESC").First(&h).Error
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *HistoryRepository) groupBy(userID uint, column string) ([]GroupStat, error) {
	var rows []GroupStat
	err := r.DB.Table("user_answer_history AS h").
		Select("questions."+column+" AS group_key, COUNT(*) AS attempted, SUM(CASE WHEN h.is_correct = ? THEN 1 ELSE 0 END) AS correct", true).
		Joins("JOIN questions ON questions.id = h.question_id").
		Where("h.user_id = ?", userID).
		Group("questions." + column).
		Order("questions." + column).
		Scan(&rows).Error
	return rows, err
}

// StatsByType 按题型统计
func (r *HistoryRepository) StatsByType(userID uint) ([]GroupStat, error) {
	return r.groupBy(userID, "type_id")
}

// StatsByDifficulty 按难度统计
func (r *HistoryRepository) StatsByDifficulty(userID uint) ([]GroupStat, error) {
	return r.groupBy(userID, "difficulty_level")
}

// MostMissed 错误次数最多的题目
func (r *HistoryRepository) MostMissed(userID uint, limit int) ([]MissedRow, error) {
	var rows []MissedRow
	err := r.DB.Table("user_answer_history AS h").
		Select("h.question_id AS question_id, questions.content AS content, questions.type_id AS type_id, COUNT(*) AS error_count").
		Joins("JOIN questions ON questions.id = h.question_id").
		Where("h.user_id = ? AND h.is_correct = ?", userID, false).
		Group("h.question_id, questions.content, questions.type_id").
		Order("error_count DESC, h.question_id ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

// Since 某时间之后的记录，供按天汇总
func (r *HistoryRepository) Since(userID uint, from time.Time) ([]model.UserAnswerHistory, error) {
	var records []model.UserAnswerHistory
	err := r.DB.Select("id", "question_id", "is_correct", "answer_time").
		Where("user_id = ? AND answer_time >= ?", userID, from).
		Order("answer_time ASC").
		Find(&records).Error
	return records, err
}
