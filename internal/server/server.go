// Package server HTTP服务器装配
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"rbac-platform/internal/api"
	"rbac-platform/internal/audit"
	"rbac-platform/internal/auth"
	"rbac-platform/internal/cache"
	"rbac-platform/internal/config"
	"rbac-platform/internal/database"
	"rbac-platform/internal/performance"
	"rbac-platform/internal/redis"
	"rbac-platform/internal/repository"
	"rbac-platform/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Server HTTP服务器
type Server struct {
	config      *config.Config
	logger      *zap.Logger
	router      *gin.Engine
	httpServer  *http.Server
	db          *gorm.DB
	redisClient *redis.Client

	resolver *auth.Resolver
	monitor  *performance.Monitor

	authHandler   *api.AuthHandler
	userHandler   *api.UserHandler
	roleHandler   *api.RoleHandler
	systemHandler *api.SystemHandler

	retentionJob *audit.RetentionJob
	startTime    time.Time
}

// New 创建新的服务器实例
func New(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	gin.SetMode(cfg.Server.Mode)
	api.SetDebugMode(cfg.Server.Mode == "debug")

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	if err := database.Migrate(db); err != nil {
		logger.Error("Failed to migrate database", zap.Error(err))
		return nil, err
	}

	// Redis可选，未启用时系统设置仅保存在进程内
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.Connect(&cfg.Redis, logger)
		if err != nil {
			logger.Error("Failed to connect to Redis", zap.Error(err))
			return nil, err
		}
	}

	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	permRepo := repository.NewPermissionRepository(db)
	logRepo := repository.NewOperationLogRepository(db)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry, cfg.Auth.RefreshExpiry)
	resolver := auth.NewResolver(db, logger)
	authService := auth.NewService(userRepo, roleRepo, permRepo, resolver, tokens, logger)

	roleCache := cache.New(1024)
	monitor := performance.NewMonitor()

	userService := service.NewUserManagementService(userRepo, roleRepo, resolver, logger)
	roleService := service.NewRoleManagementService(roleRepo, permRepo, roleCache, logger)
	systemService := service.NewSystemManagementService(logRepo, userRepo, redisClient, logger)

	router := gin.New()
	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggerMiddleware(logger))
	router.Use(CORSMiddleware())
	router.Use(SecurityMiddleware())
	router.Use(monitor.Middleware())
	router.Use(auth.UserContextMiddleware(tokens, userRepo, logger))
	router.Use(audit.Middleware(logRepo, logger))

	server := &Server{
		config:      cfg,
		logger:      logger,
		router:      router,
		db:          db,
		redisClient: redisClient,
		resolver:    resolver,
		monitor:     monitor,

		authHandler:   api.NewAuthHandler(authService),
		userHandler:   api.NewUserHandler(userService),
		roleHandler:   api.NewRoleHandler(roleService),
		systemHandler: api.NewSystemHandler(systemService, monitor),

		startTime: time.Now(),
	}

	if cfg.Audit.DailyCleanup {
		server.retentionJob = audit.NewRetentionJob(logRepo, cfg.Audit.RetentionDays, logger)
	}

	server.setupRoutes()

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  time.Second * 60,
	}

	return server, nil
}

// Router 返回Gin路由器
func (s *Server) Router() *gin.Engine {
	return s.router
}

// DB 返回数据库连接
func (s *Server) DB() *gorm.DB {
	return s.db
}

// Start 启动HTTP服务器
func (s *Server) Start() error {
	if s.retentionJob != nil {
		if err := s.retentionJob.Start(); err != nil {
			s.logger.Error("Failed to start retention job", zap.Error(err))
			return err
		}
	}

	s.logger.Info("Starting HTTP server",
		zap.String("address", s.httpServer.Addr),
		zap.String("mode", s.config.Server.Mode),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Error("Failed to start HTTP server", zap.Error(err))
		return err
	}

	return nil
}

// Shutdown 优雅关闭HTTP服务器
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")

	if s.retentionJob != nil {
		s.retentionJob.Stop()
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to shutdown HTTP server", zap.Error(err))
		return err
	}

	return nil
}

// Close 关闭服务器资源
func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.logger.Error("Failed to close Redis connection", zap.Error(err))
		}
	}

	if err := database.Close(s.db); err != nil {
		s.logger.Error("Failed to close database connection", zap.Error(err))
		return err
	}

	return nil
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	s.router.GET("/", s.index)
	s.router.GET("/health", s.healthCheck)

	apiGroup := s.router.Group("/api")
	{
		s.authHandler.RegisterRoutes(apiGroup)
		s.userHandler.RegisterRoutes(apiGroup, s.resolver)
		s.roleHandler.RegisterRoutes(apiGroup, s.resolver)
		s.systemHandler.RegisterRoutes(apiGroup, s.resolver)
	}
}

// index 根路径处理器
func (s *Server) index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":    "RBAC Platform",
		"version": "1.0.0",
		"message": "RBAC Administrative Platform API",
	})
}

// healthCheck 健康检查处理器
func (s *Server) healthCheck(c *gin.Context) {
	status := gin.H{
		"status":    "ok",
		"uptime":    time.Since(s.startTime).String(),
		"timestamp": time.Now().Unix(),
	}

	if s.redisClient != nil {
		if err := s.redisClient.Health(); err != nil {
			status["redis"] = "unreachable"
		} else {
			status["redis"] = "ok"
		}
	}

	c.JSON(http.StatusOK, status)
}
