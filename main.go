// @title MySQL 练习系统 API
// @version 1.0
// @description MySQL 查询练习后端：题库、判题与学习进度。

// @BasePath /api
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

package main

import (
	"flag"
	"log"
	"mysql_practice_backend/internal/app"
	"mysql_practice_backend/internal/config"
	"mysql_practice_backend/pkg/logger"
)

func main() {
	// 命令行参数
	configDir := flag.String("config", "configs", "配置文件目录")
	migrateOnly := flag.Bool("migrate-only", false, "只执行数据库迁移，完成后退出")
	migrate := flag.Bool("migrate", false, "启动时强制执行数据库迁移（即使是 release 模式）")
	watch := flag.Bool("watch", true, "监听配置文件变化并热更新")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 设置迁移标志
	cfg.ForceMigrate = *migrate || *migrateOnly
	cfg.MigrateOnly = *migrateOnly

	configFile := ""
	if *watch && !*migrateOnly {
		configFile = app.DefaultConfigFile(*configDir)
	}

	application := app.NewApp(cfg, configFile)
	defer logger.Log.Sync()

	// 迁移完成后直接退出
	if *migrateOnly {
		log.Println("数据库迁移完成，退出程序")
		return
	}

	application.Run()
}
