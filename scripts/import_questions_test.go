package main

import (
	"mysql_practice_backend/internal/model"
	"mysql_practice_backend/pkg/database"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const sampleBank = `
questions:
  - type: choice
    difficulty: 1
    content: 哪个语句用于查询数据？
    options:
      - {label: A, content: SELECT, correct: true}
      - {label: B, content: UPDATE}
    explanation: SELECT 用于查询
    tags: [基础查询]
  - type: fill_blank
    difficulty: 2
    content: 删除表的语句是 ____ TABLE
    answers: [DROP]
    tags: [基础查询, DDL]
  - type: true_false
    difficulty: 1
    content: InnoDB 支持事务
    answers: ["true"]
    inactive: true
`

func newDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.Seed(db))
	return db
}

func TestParseBank(t *testing.T) {
	b, err := parseBank(strings.NewReader(sampleBank))
	require.NoError(t, err)
	require.Len(t, b.Questions, 3)
	assert.Equal(t, "choice", b.Questions[0].Type)
	assert.True(t, b.Questions[0].Options[0].Correct)
	assert.True(t, b.Questions[2].Inactive)

	_, err = parseBank(strings.NewReader("questions:\n  - kind: choice\n"))
	assert.Error(t, err, "unknown fields are rejected")
}

func TestImportBank(t *testing.T) {
	db := newDB(t)
	b, err := parseBank(strings.NewReader(sampleBank))
	require.NoError(t, err)

	n, err := importBank(db, b, 0, false)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	var questions []model.Question
	require.NoError(t, db.Preload("Tags").Order("id").Find(&questions).Error)
	require.Len(t, questions, 3)
	assert.Len(t, questions[1].Tags, 2)
	assert.False(t, questions[2].IsActive)

	var tags int64
	db.Model(&model.QuestionTag{}).Count(&tags)
	assert.Equal(t, int64(2), tags)
}

func TestImportBank_DryRunAndRollback(t *testing.T) {
	db := newDB(t)
	b, err := parseBank(strings.NewReader(sampleBank))
	require.NoError(t, err)

	n, err := importBank(db, b, 0, true)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	var count int64
	db.Model(&model.Question{}).Count(&count)
	assert.Zero(t, count)

	b.Questions = append(b.Questions, bankQuestion{Type: "essay", Difficulty: 1, Content: "x"})
	_, err = importBank(db, b, 0, false)
	require.Error(t, err)
	db.Model(&model.Question{}).Count(&count)
	assert.Zero(t, count, "a failed import writes nothing")
}
