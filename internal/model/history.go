package model

import "time"

// UserAnswerHistory 答题记录，只追加不修改
type UserAnswerHistory struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        uint      `gorm:"not null;index:idx_history_user_question,priority:1" json:"userId"`
	QuestionID    uint      `gorm:"not null;index:idx_history_user_question,priority:2" json:"questionId"`
	AnswerContent string    `gorm:"type:text;not null" json:"answerContent"`
	IsCorrect     bool      `gorm:"not null;default:false" json:"isCorrect"`
	Score         float64   `gorm:"not null;default:0" json:"score"`
	Explanation   string    `gorm:"type:text" json:"explanation"`
	AnswerTime    time.Time `gorm:"not null;index" json:"answerTime"`
	Question      *Question `gorm:"foreignKey:QuestionID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"question,omitempty"`
}

func (UserAnswerHistory) TableName() string {
	return "user_answer_history"
}
