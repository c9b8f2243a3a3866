package utils

import (
	"time"

	"healthhive/internal/pkg/config"

	"github.com/golang-jwt/jwt/v5"
)

// clockSkew 容忍认证服务与本服务之间的时钟偏差
const clockSkew = 30 * time.Second

// Claims 自定义JWT Claims
// 令牌由外部认证服务签发，本服务只做校验
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken 按认证服务的格式签发令牌
// 线上令牌不由本服务签发，这里只给测试与压测工具使用
func GenerateToken(userID string, role string, ttl time.Duration) (string, *time.Time, error) {
	now := time.Now()
	expireTime := now.Add(ttl)

	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expireTime),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    config.GlobalConfig.JWT.Issuer,
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(config.GlobalConfig.JWT.Secret))
	if err != nil {
		return "", nil, err
	}
	return token, &expireTime, nil
}

// ParseToken 校验签名、过期时间与签发方
// 配置了 issuer 时拒绝其他签发方的令牌；没有 exp 的令牌一律拒绝
func ParseToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkew),
	}
	if issuer := config.GlobalConfig.JWT.Issuer; issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	claims := &Claims{}
	_, err := jwt.NewParser(opts...).ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(config.GlobalConfig.JWT.Secret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
