package model

import "time"

// QuestionTag 题目知识点标签
type QuestionTag struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Description string    `gorm:"size:255" json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (QuestionTag) TableName() string {
	return "question_tags"
}

// QuestionTagRelation 题目与标签的多对多关联
type QuestionTagRelation struct {
	QuestionID uint      `gorm:"primaryKey"`
	TagID      uint      `gorm:"primaryKey;index"`
	CreatedAt  time.Time
}

func (QuestionTagRelation) TableName() string {
	return "question_tag_relations"
}
