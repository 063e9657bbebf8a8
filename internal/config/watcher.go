package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ChangeHandler 配置变更处理器
type ChangeHandler interface {
	OnConfigChange(oldConfig, newConfig *Config) error
	Name() string
}

// Watcher 配置文件监听器
// 监听配置目录，变更后重新加载并通知订阅方
type Watcher struct {
	watcher     *fsnotify.Watcher
	configPath  string
	logger      *zap.Logger
	subscribers []ChangeHandler
	current     *Config
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewWatcher 创建配置监听器
func NewWatcher(configPath string, current *Config, logger *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Watcher{
		watcher:    fw,
		configPath: configPath,
		logger:     logger,
		current:    current,
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// Subscribe 订阅配置变更
func (w *Watcher) Subscribe(handler ChangeHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.subscribers = append(w.subscribers, handler)
	w.logger.Info("Config change handler subscribed",
		zap.String("handler", handler.Name()))
}

// Start 启动配置监听
func (w *Watcher) Start() error {
	configDir := filepath.Dir(w.configPath)
	if err := w.watcher.Add(configDir); err != nil {
		return fmt.Errorf("failed to watch config directory: %w", err)
	}

	w.logger.Info("Config watcher started", zap.String("path", configDir))

	go w.watchLoop()
	return nil
}

// Stop 停止配置监听
func (w *Watcher) Stop() error {
	w.cancel()
	return w.watcher.Close()
}

// watchLoop 监听循环
// 防抖动：短时间内的多次变更只处理一次
func (w *Watcher) watchLoop() {
	var debounce *time.Timer

	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if filepath.Base(event.Name) != filepath.Base(w.configPath) {
				continue
			}

			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(500*time.Millisecond, w.reload)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Config watcher error", zap.Error(err))
		}
	}
}

// reload 重新加载配置并通知订阅方
func (w *Watcher) reload() {
	newConfig, err := LoadWithPath(filepath.Dir(w.configPath))
	if err != nil {
		w.logger.Error("Failed to reload config", zap.Error(err))
		return
	}

	w.mu.Lock()
	oldConfig := w.current
	w.current = newConfig
	handlers := make([]ChangeHandler, len(w.subscribers))
	copy(handlers, w.subscribers)
	w.mu.Unlock()

	SetConfig(newConfig)

	for _, handler := range handlers {
		if err := handler.OnConfigChange(oldConfig, newConfig); err != nil {
			w.logger.Error("Config change handler failed",
				zap.String("handler", handler.Name()),
				zap.Error(err))
		}
	}

	w.logger.Info("Config reloaded", zap.String("path", w.configPath))
}
