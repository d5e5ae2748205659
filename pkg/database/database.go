package database

import (
	"fmt"
	"log"
	"mysql_practice_backend/internal/config"
	"mysql_practice_backend/internal/model"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig, mode string, migrate bool) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	logLevel := logger.Warn
	if mode == "debug" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Println("Database connection established")

	// release 模式下默认跳过迁移，除非显式指定 -migrate
	if mode != "release" || migrate {
		if err := Migrate(db); err != nil {
			return nil, err
		}
		log.Println("Database migration completed")
	}

	if err := Seed(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate 建表及索引
func Migrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&model.Question{}, "Tags", &model.QuestionTagRelation{}); err != nil {
		return err
	}

	return db.AutoMigrate(
		&model.User{},
		&model.QuestionType{},
		&model.DifficultyLevel{},
		&model.Question{},
		&model.MultipleChoiceOption{},
		&model.Answer{},
		&model.QuestionTag{},
		&model.QuestionTagRelation{},
		&model.UserAnswerHistory{},
	)
}

// Seed 写入题型、难度等参考数据（表为空时）
func Seed(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.QuestionType{}).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		descriptions := map[model.QuestionKind]string{
			model.KindChoice:      "从给定选项中选出正确答案",
			model.KindTrueFalse:   "判断陈述是否正确",
			model.KindFillBlank:   "填写 SQL 语句或关键字",
			model.KindShortAnswer: "简要回答 MySQL 相关问题",
			model.KindDesign:      "根据需求设计表结构或查询",
		}
		for _, kind := range model.AllKinds {
			qt := &model.QuestionType{
				ID:          uint(kind),
				Code:        kind.Code(),
				Name:        kind.Label(),
				Description: descriptions[kind],
				IsActive:    true,
			}
			if err := db.Create(qt).Error; err != nil {
				return err
			}
		}
	}

	count = 0
	if err := db.Model(&model.DifficultyLevel{}).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		levels := []model.DifficultyLevel{
			{ID: 1, Name: "入门", Description: "基础语法与概念"},
			{ID: 2, Name: "初级", Description: "单表查询与常用函数"},
			{ID: 3, Name: "中级", Description: "多表连接、子查询与索引"},
			{ID: 4, Name: "高级", Description: "事务、锁与性能优化"},
			{ID: 5, Name: "专家", Description: "架构设计与复杂调优"},
		}
		for i := range levels {
			levels[i].IsActive = true
			if err := db.Create(&levels[i]).Error; err != nil {
				return err
			}
		}
	}

	return nil
}
