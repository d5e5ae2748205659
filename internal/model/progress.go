package model

import "time"

// AccuracyStat 某一维度下的答题统计
type AccuracyStat struct {
	Attempted int64   `json:"attempted"`
	Correct   int64   `json:"correct"`
	Accuracy  float64 `json:"accuracy"`
}

// NewAccuracyStat 计算正确率，未作答时为 0
func NewAccuracyStat(attempted, correct int64) AccuracyStat {
	stat := AccuracyStat{Attempted: attempted, Correct: correct}
	if attempted > 0 {
		stat.Accuracy = float64(correct) / float64(attempted)
	}
	return stat
}

// Progress 用户学习进度汇总
type Progress struct {
	UserID               uint                    `json:"userId"`
	TotalAttempted       int64                   `json:"totalAttempted"`
	TotalCorrect         int64                   `json:"totalCorrect"`
	AnsweredQuestions    int64                   `json:"answeredQuestions"`
	TotalQuestions       int64                   `json:"totalQuestions"`
	Accuracy             float64                 `json:"accuracy"`
	AccuracyByType       map[string]AccuracyStat `json:"accuracyByType"`
	AccuracyByDifficulty map[string]AccuracyStat `json:"accuracyByDifficulty"`
	LastAnswerTime       *time.Time              `json:"lastAnswerTime,omitempty"`
}

// MistakeStat 错题统计
type MistakeStat struct {
	QuestionID     uint         `json:"questionId"`
	Content        string       `json:"content"`
	TypeID         QuestionKind `json:"typeId"`
	ErrorCount     int64        `json:"errorCount"`
	CorrectAnswers []string     `json:"correctAnswers"`
}

// DailyProgress 每日答题情况
type DailyProgress struct {
	Date      string  `json:"date"`
	Attempted int64   `json:"attempted"`
	Correct   int64   `json:"correct"`
	Accuracy  float64 `json:"accuracy"`
}
