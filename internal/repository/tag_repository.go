package repository

import (
	"mysql_practice_backend/internal/model"

	"gorm.io/gorm"
)

type TagRepository struct {
	DB *gorm.DB
}

func NewTagRepository(db *gorm.DB) *TagRepository {
	return &TagRepository{DB: db}
}

func (r *TagRepository) FindAll() ([]model.QuestionTag, error) {
	var tags []model.QuestionTag
	err := r.DB.Order("name ASC").Find(&tags).Error
	return tags, err
}

func (r *TagRepository) FindByIDs(ids []uint) ([]model.QuestionTag, error) {
	var tags []model.QuestionTag
	if len(ids) == 0 {
		return tags, nil
	}
	err := r.DB.Where("id IN ?", ids).Find(&tags).Error
	return tags, err
}

func (r *TagRepository) FindByName(name string) (*model.QuestionTag, error) {
	var tag model.QuestionTag
	err := r.DB.Where("name = ?", name).First(&tag).Error
	return &tag, err
}

func (r *TagRepository) Create(tag *model.QuestionTag) error {
	return r.DB.Create(tag).Error
}

// CountQuestions 每个标签下启用中的题目数
func (r *TagRepository) CountQuestions() (map[uint]int64, error) {
	var rows []struct {
		TagID uint
		Total int64
	}
	err := r.DB.Table("question_tag_relations").
		Select("question_tag_relations.tag_id AS tag_id, COUNT(*) AS total").
		Joins("JOIN questions ON questions.id = question_tag_relations.question_id").
		Where("questions.is_active = ?", true).
		Group("question_tag_relations.tag_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uint]int64, len(rows))
	for _, row := range rows {
		out[row.TagID] = row.Total
	}
	return out, nil
}
