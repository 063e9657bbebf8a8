package audit

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"rbac-platform/internal/auth"
	"rbac-platform/internal/models"
	"rbac-platform/internal/repository"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	maxRequestBody  = 10 * 1024
	maxResponseBody = 5 * 1024

	oversizeRequestNote  = "请求体过大，已跳过记录"
	oversizeResponseNote = "响应体过大，已跳过记录"
)

// 完全跳过审计的路径前缀
var skipPathPrefixes = []string{
	"/health",
	"/docs",
	"/redoc",
	"/openapi.json",
	"/favicon.ico",
	"/static",
}

// 静态资源后缀不记录
var skipExtensions = []string{
	".css", ".js", ".ico", ".png", ".jpg", ".jpeg", ".gif", ".svg", ".woff", ".woff2",
}

// 高频低价值接口，显式跳过
var skipMethodPaths = map[[2]string]struct{}{
	{"GET", "/api/dashboard"}: {},
	{"GET", "/api/users"}:     {},
}

// 请求体含凭据，不落库
var credentialPathKeywords = []string{
	"login", "register", "forgot-password", "reset", "password",
}

func shouldSkip(method, path string) bool {
	for _, prefix := range skipPathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	for _, ext := range skipExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	if path == "/" {
		return true
	}
	if _, ok := skipMethodPaths[[2]string{method, path}]; ok {
		return true
	}
	return !IsSensitive(method, path)
}

func carriesCredentials(path string) bool {
	lower := strings.ToLower(path)
	for _, kw := range credentialPathKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// bodyCaptureWriter 复制响应体用于审计，超出上限后停止累积
type bodyCaptureWriter struct {
	gin.ResponseWriter
	buf       bytes.Buffer
	truncated bool
}

func (w *bodyCaptureWriter) Write(b []byte) (int, error) {
	if !w.truncated {
		if w.buf.Len()+len(b) > maxResponseBody {
			w.truncated = true
			w.buf.Reset()
		} else {
			w.buf.Write(b)
		}
	}
	return w.ResponseWriter.Write(b)
}

// Middleware 审计日志中间件
// 只记录敏感操作；日志写入失败不影响响应；handler panic时先落一条500日志再继续抛出
func Middleware(logRepo repository.OperationLogRepository, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		path := c.Request.URL.Path

		if shouldSkip(method, path) {
			c.Next()
			return
		}

		logger.Debug("Audit middleware capturing request",
			zap.String("method", method), zap.String("path", path))

		requestData := captureRequestBody(c, logger)

		writer := &bodyCaptureWriter{ResponseWriter: c.Writer}
		c.Writer = writer

		defer func() {
			if r := recover(); r != nil {
				writeLog(c, logRepo, logger, method, path, 500, requestData, "")
				panic(r)
			}
		}()

		c.Next()

		status := writer.Status()
		responseData := ""
		if status < 400 && strings.HasPrefix(writer.Header().Get("Content-Type"), "application/json") {
			if writer.truncated {
				responseData = jsonNote(oversizeResponseNote)
			} else if writer.buf.Len() > 0 {
				responseData = writer.buf.String()
			}
		}

		writeLog(c, logRepo, logger, method, path, status, requestData, responseData)
	}
}

// captureRequestBody 读取并还原请求体，返回序列化后的审计数据
func captureRequestBody(c *gin.Context, logger *zap.Logger) string {
	method := c.Request.Method
	if method != "POST" && method != "PUT" && method != "PATCH" {
		return ""
	}
	if carriesCredentials(c.Request.URL.Path) {
		return ""
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		logger.Warn("Failed to read request body for audit", zap.Error(err))
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))

	if len(body) == 0 {
		return ""
	}
	if len(body) >= maxRequestBody {
		return jsonNote(oversizeRequestNote)
	}
	if !json.Valid(body) {
		return ""
	}
	return string(body)
}

func jsonNote(message string) string {
	b, _ := json.Marshal(map[string]string{"message": message})
	return string(b)
}

func writeLog(
	c *gin.Context,
	logRepo repository.OperationLogRepository,
	logger *zap.Logger,
	method, path string,
	status int,
	requestData, responseData string,
) {
	cls := Classify(method, path)

	var userID *uint
	username := "匿名"
	if user, ok := auth.CurrentUser(c); ok {
		userID = &user.ID
		username = user.Username
	}

	entry := &models.OperationLog{
		UserID:       userID,
		Action:       cls.Action,
		Resource:     cls.Resource,
		ResourceID:   ExtractResourceID(path),
		Description:  Describe(cls.Action, status),
		IPAddress:    c.ClientIP(),
		UserAgent:    c.Request.UserAgent(),
		StatusCode:   status,
		RequestData:  requestData,
		ResponseData: responseData,
		IsActive:     true,
	}

	if err := logRepo.Create(entry); err != nil {
		// 审计失败不影响已完成的响应
		logger.Error("Failed to persist operation log",
			zap.String("action", cls.Action), zap.Error(err))
		return
	}

	logger.Info("Operation logged",
		zap.String("action", cls.Action),
		zap.String("resource", cls.Resource),
		zap.String("user", username))
}
