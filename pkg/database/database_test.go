package database

import (
	"mysql_practice_backend/internal/model"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	return db
}

func TestMigrateAndSeed(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Migrate(db))
	require.NoError(t, Seed(db))

	var types []model.QuestionType
	require.NoError(t, db.Order("id").Find(&types).Error)
	require.Len(t, types, 5)
	for i, kind := range model.AllKinds {
		assert.Equal(t, uint(kind), types[i].ID)
		assert.Equal(t, kind.Code(), types[i].Code)
	}

	var levels int64
	require.NoError(t, db.Model(&model.DifficultyLevel{}).Count(&levels).Error)
	assert.Equal(t, int64(5), levels)

	assert.True(t, db.Migrator().HasIndex(&model.Question{}, "idx_questions_type_difficulty"))
	assert.True(t, db.Migrator().HasIndex(&model.UserAnswerHistory{}, "idx_history_user_question"))
	assert.True(t, db.Migrator().HasTable("question_tag_relations"))
}

func TestSeedIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Migrate(db))
	require.NoError(t, Seed(db))
	require.NoError(t, Seed(db))

	var count int64
	require.NoError(t, db.Model(&model.QuestionType{}).Count(&count).Error)
	assert.Equal(t, int64(5), count)
}
