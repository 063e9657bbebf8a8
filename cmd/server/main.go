package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rbac-platform/internal/config"
	"rbac-platform/internal/server"

	"go.uber.org/zap"
)

func main() {
	initConfig := flag.Bool("init-config", false, "生成示例配置文件后退出")
	flag.Parse()

	// 初始化日志
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	if *initConfig {
		if err := config.WriteExample("./configs/config.yaml"); err != nil {
			logger.Fatal("Failed to write example config", zap.Error(err))
		}
		logger.Info("Example config written", zap.String("path", "./configs/config.yaml"))
		return
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}
	config.SetConfig(cfg)

	// 配置文件热更新
	watcher, err := config.NewWatcher("./configs/config.yaml", cfg, logger)
	if err != nil {
		logger.Warn("Config watcher disabled", zap.Error(err))
	} else {
		if err := watcher.Start(); err != nil {
			logger.Warn("Config watcher failed to start", zap.Error(err))
		} else {
			defer watcher.Stop()
		}
	}

	// 创建服务器
	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create server", zap.Error(err))
	}

	// 启动服务器
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// 优雅关闭
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	if err := srv.Close(); err != nil {
		logger.Error("Error closing server resources", zap.Error(err))
	}

	logger.Info("Server exited")
}
