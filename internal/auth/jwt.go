package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// 令牌类型
const (
	TokenKindAccess  = "access"
	TokenKindRefresh = "refresh"
)

// 默认有效期：access 30分钟，refresh 7天
const (
	DefaultAccessExpiry  = 30 * time.Minute
	DefaultRefreshExpiry = 7 * 24 * time.Hour
)

// TokenClaims JWT令牌声明
// Kind 区分 access/refresh；旧版令牌缺少该字段
type TokenClaims struct {
	Kind string `json:"kind,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager JWT令牌管理器
type TokenManager struct {
	secretKey     string
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

// NewTokenManager 创建新的令牌管理器
func NewTokenManager(secretKey string, accessExpiry, refreshExpiry time.Duration) *TokenManager {
	if accessExpiry <= 0 {
		accessExpiry = DefaultAccessExpiry
	}
	if refreshExpiry <= 0 {
		refreshExpiry = DefaultRefreshExpiry
	}
	return &TokenManager{
		secretKey:     secretKey,
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

// AccessExpiry 返回access令牌有效期
func (t *TokenManager) AccessExpiry() time.Duration {
	return t.accessExpiry
}

// Issue 签发指定类型和有效期的令牌
// ttl 为 0 时使用该类型的默认有效期
func (t *TokenManager) Issue(subject string, kind string, ttl time.Duration) (string, error) {
	if kind != TokenKindAccess && kind != TokenKindRefresh {
		return "", errors.New("unknown token kind")
	}

	if ttl <= 0 {
		if kind == TokenKindRefresh {
			ttl = t.refreshExpiry
		} else {
			ttl = t.accessExpiry
		}
	}

	now := time.Now()
	claims := TokenClaims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "rbac-platform",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(t.secretKey))
}

// Verify 验证令牌签名、有效期和类型，返回令牌主体
// 缺少 kind 字段的旧版令牌按 access 处理（兼容旧客户端）
// 任何验证失败均返回 ok=false，不向调用方抛错
func (t *TokenManager) Verify(tokenString, expectedKind string) (subject string, ok bool) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, isHMAC := token.Method.(*jwt.SigningMethodHMAC); !isHMAC {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(t.secretKey), nil
	})
	if err != nil || !token.Valid {
		return "", false
	}

	claims, isClaims := token.Claims.(*TokenClaims)
	if !isClaims {
		return "", false
	}

	kind := claims.Kind
	if kind == "" {
		kind = TokenKindAccess
	}
	if kind != expectedKind {
		return "", false
	}

	if claims.Subject == "" {
		return "", false
	}

	return claims.Subject, true
}
