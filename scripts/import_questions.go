// 从 YAML 题库批量导入题目
//
// 用法: go run ./scripts -file questions.yaml [-config configs] [-dry-run]
//
// 标签按名称自动创建；任意一题校验失败则不写入任何数据。

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"mysql_practice_backend/internal/config"
	"mysql_practice_backend/internal/model"
	"mysql_practice_backend/internal/repository"
	"mysql_practice_backend/internal/service"
	"mysql_practice_backend/pkg/database"
	"mysql_practice_backend/pkg/logger"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

type bankOption struct {
	Label   string `yaml:"label"`
	Content string `yaml:"content"`
	Correct bool   `yaml:"correct"`
}

type bankQuestion struct {
	Type        string       `yaml:"type"`
	Difficulty  uint         `yaml:"difficulty"`
	Content     string       `yaml:"content"`
	Options     []bankOption `yaml:"options"`
	Answers     []string     `yaml:"answers"`
	Explanation string       `yaml:"explanation"`
	Tags        []string     `yaml:"tags"`
	Inactive    bool         `yaml:"inactive"`
}

type bank struct {
	Questions []bankQuestion `yaml:"questions"`
}

func parseBank(r io.Reader) (*bank, error) {
	var b bank
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&b); err != nil {
		if errors.Is(err, io.EOF) {
			return &b, nil
		}
		return nil, fmt.Errorf("parse question bank: %w", err)
	}
	return &b, nil
}

// kindByCode 题型 code（choice、true_false …）
func kindByCode(code string) (model.QuestionKind, error) {
	for _, k := range model.AllKinds {
		if k.Code() == code {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown question type %q", code)
}

func (q bankQuestion) input(tagIDs []uint) (*service.QuestionInput, error) {
	kind, err := kindByCode(q.Type)
	if err != nil {
		return nil, err
	}
	in := &service.QuestionInput{
		TypeID:          uint(kind),
		DifficultyLevel: q.Difficulty,
		Content:         q.Content,
		Answers:         q.Answers,
		Explanation:     q.Explanation,
		TagIDs:          tagIDs,
	}
	for _, o := range q.Options {
		in.Options = append(in.Options, service.OptionInput{Label: o.Label, Content: o.Content, IsCorrect: o.Correct})
	}
	if q.Inactive {
		active := false
		in.IsActive = &active
	}
	return in, nil
}

func importBank(db *gorm.DB, b *bank, operatorID uint, dryRun bool) (int, error) {
	imported := 0
	err := db.Transaction(func(tx *gorm.DB) error {
		questionRepo := repository.NewQuestionRepository(tx, nil, 0)
		tagRepo := repository.NewTagRepository(tx)
		questions := service.NewQuestionService(questionRepo, tagRepo)
		tags := service.NewTagService(tagRepo, questionRepo)

		tagIDs := make(map[string]uint)
		for i, q := range b.Questions {
			var ids []uint
			for _, name := range q.Tags {
				id, ok := tagIDs[name]
				if !ok {
					tag, err := tags.CreateTag(name, "")
					if err != nil {
						return fmt.Errorf("question #%d: %w", i+1, err)
					}
					id = tag.ID
					tagIDs[name] = id
				}
				ids = append(ids, id)
			}

			in, err := q.input(ids)
			if err != nil {
				return fmt.Errorf("question #%d: %w", i+1, err)
			}
			if _, err := questions.CreateQuestion(in, operatorID); err != nil {
				return fmt.Errorf("question #%d: %w", i+1, err)
			}
			imported++
		}

		if dryRun {
			return errDryRun
		}
		return nil
	})
	if errors.Is(err, errDryRun) {
		return imported, nil
	}
	return imported, err
}

var errDryRun = errors.New("dry run")

func main() {
	configDir := flag.String("config", "configs", "配置文件目录")
	file := flag.String("file", "", "题库 YAML 文件")
	operator := flag.Uint("operator", 0, "记录为创建者的用户 ID")
	dryRun := flag.Bool("dry-run", false, "只校验，不写入")
	flag.Parse()

	if *file == "" {
		log.Fatal("缺少 -file 参数")
	}

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}
	logger.InitLogger(cfg)

	f, err := os.Open(*file)
	if err != nil {
		log.Fatalf("无法打开题库文件: %v", err)
	}
	defer f.Close()

	b, err := parseBank(f)
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode, true)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	n, err := importBank(db, b, *operator, *dryRun)
	if err != nil {
		logger.Log.Error("导入失败", zap.Error(err))
		log.Fatal(err)
	}
	logger.Log.Info("导入完成", zap.Int("questions", n), zap.Bool("dryRun", *dryRun))
}
