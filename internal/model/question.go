package model

import (
	"time"
)

// QuestionKind 题型，对应 question_types 表的固定主键
type QuestionKind uint

const (
	KindChoice      QuestionKind = 1 // 选择题
	KindTrueFalse   QuestionKind = 2 // 判断题
	KindFillBlank   QuestionKind = 3 // 填空题
	KindShortAnswer QuestionKind = 4 // 简答题
	KindDesign      QuestionKind = 5 // MySQL 设计题
)

// AllKinds 所有题型，按主键排序
var AllKinds = []QuestionKind{KindChoice, KindTrueFalse, KindFillBlank, KindShortAnswer, KindDesign}

func (k QuestionKind) Valid() bool {
	return k >= KindChoice && k <= KindDesign
}

// Code 题型编码，用于接口与统计
func (k QuestionKind) Code() string {
	switch k {
	case KindChoice:
		return "choice"
	case KindTrueFalse:
		return "true_false"
	case KindFillBlank:
		return "fill_blank"
	case KindShortAnswer:
		return "short_answer"
	case KindDesign:
		return "design"
	}
	return "unknown"
}

func (k QuestionKind) Label() string {
	switch k {
	case KindChoice:
		return "选择题"
	case KindTrueFalse:
		return "判断题"
	case KindFillBlank:
		return "填空题"
	case KindShortAnswer:
		return "简答题"
	case KindDesign:
		return "MySQL设计题"
	}
	return "未知题型"
}

// NeedsGrader 主观题需要外部评分
func (k QuestionKind) NeedsGrader() bool {
	return k == KindShortAnswer || k == KindDesign
}

// QuestionType 题型表
type QuestionType struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Code        string `gorm:"size:32;uniqueIndex;not null" json:"code"`
	Name        string `gorm:"size:50;not null" json:"name"`
	Description string `gorm:"size:255" json:"description"`
	IsActive    bool   `gorm:"default:true" json:"isActive"`
}

func (QuestionType) TableName() string {
	return "question_types"
}

// DifficultyLevel 难度等级，主键即难度序数 1-5
type DifficultyLevel struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:50;not null" json:"name"`
	Description string `gorm:"size:255" json:"description"`
	IsActive    bool   `gorm:"default:true" json:"isActive"`

	// 该难度下启用中的题目数，不落库
	QuestionCount int64 `gorm:"-" json:"questionCount"`
}

func (DifficultyLevel) TableName() string {
	return "difficulty_levels"
}

const (
	MinDifficulty = 1
	MaxDifficulty = 5
)

// Question 题目。只做软删除（IsActive=false），不物理删除
type Question struct {
	ID              uint                   `gorm:"primaryKey;autoIncrement" json:"id"`
	TypeID          QuestionKind           `gorm:"not null;index:idx_questions_type_difficulty,priority:1" json:"typeId"`
	DifficultyLevel uint                   `gorm:"not null;index:idx_questions_type_difficulty,priority:2" json:"difficultyLevel"`
	Content         string                 `gorm:"type:text;not null" json:"content"`
	IsActive        bool                   `gorm:"default:true;index" json:"isActive"`
	CreatedBy       uint                   `json:"createdBy"`
	UpdatedBy       uint                   `json:"updatedBy"`
	CreatedAt       time.Time              `json:"createdAt"`
	UpdatedAt       time.Time              `json:"updatedAt"`
	Type            *QuestionType          `gorm:"foreignKey:TypeID" json:"type,omitempty"`
	Difficulty      *DifficultyLevel       `gorm:"foreignKey:DifficultyLevel" json:"difficulty,omitempty"`
	Options         []MultipleChoiceOption `gorm:"foreignKey:QuestionID" json:"options,omitempty"`
	Answers         []Answer               `gorm:"foreignKey:QuestionID" json:"answers,omitempty"`
	Tags            []QuestionTag          `gorm:"many2many:question_tag_relations;joinForeignKey:QuestionID;joinReferences:TagID" json:"tags,omitempty"`
}

func (Question) TableName() string {
	return "questions"
}

// MultipleChoiceOption 选择题选项
type MultipleChoiceOption struct {
	ID         uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	QuestionID uint   `gorm:"not null;index" json:"questionId"`
	Label      string `gorm:"size:8;not null" json:"label"`
	Content    string `gorm:"type:text;not null" json:"content"`
	IsCorrect  bool   `gorm:"default:false;index" json:"isCorrect"`
}

func (MultipleChoiceOption) TableName() string {
	return "multiple_choice_options"
}

// Answer 标准答案，同一题可有多种可接受写法
type Answer struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	QuestionID    uint      `gorm:"not null;index" json:"questionId"`
	AnswerContent string    `gorm:"type:text;not null" json:"answerContent"`
	Explanation   string    `gorm:"type:text" json:"explanation"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (Answer) TableName() string {
	return "answers"
}

// CorrectOptions 正确选项
func (q *Question) CorrectOptions() []MultipleChoiceOption {
	var out []MultipleChoiceOption
	for _, o := range q.Options {
		if o.IsCorrect {
			out = append(out, o)
		}
	}
	return out
}

// CanonicalAnswers 所有标准答案文本
func (q *Question) CanonicalAnswers() []string {
	out := make([]string, 0, len(q.Answers))
	for _, a := range q.Answers {
		out = append(out, a.AnswerContent)
	}
	return out
}

// Explanation 取第一条非空解析
func (q *Question) Explanation() string {
	for _, a := range q.Answers {
		if a.Explanation != "" {
			return a.Explanation
		}
	}
	return ""
}
