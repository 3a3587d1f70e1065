package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"neura/backend/internal/auth"
)

// JWTAuth 管理端点的 JWT 认证中间件
//
// 管理接口（密钥管理、订阅管理、用量面板）只接受 JWT 凭证，
// API 密钥不能用来管理自身。
type JWTAuth struct {
	authenticator *auth.Authenticator
}

// NewJWTAuth 创建 JWT 认证中间件
func NewJWTAuth(authenticator *auth.Authenticator) *JWTAuth {
	return &JWTAuth{authenticator: authenticator}
}

// RequireUser 要求有效的 JWT 凭证
func (m *JWTAuth) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		cred := credential(c)
		if cred == "" || auth.IsAPIKey(cred) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "a valid access token is required",
			})
			c.Abort()
			return
		}

		identity, err := m.authenticator.Authenticate(c.Request.Context(), cred)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "invalid or expired token",
			})
			c.Abort()
			return
		}

		c.Set(CtxUserID, identity.UserID)
		c.Set(CtxIdentity, identity)
		c.Next()
	}
}

// UserID 从上下文取出已认证的用户ID
func UserID(c *gin.Context) string {
	v, _ := c.Get(CtxUserID)
	id, _ := v.(string)
	return id
}

// IdentityFrom 从上下文取出已认证的身份
func IdentityFrom(c *gin.Context) *auth.Identity {
	v, _ := c.Get(CtxIdentity)
	identity, _ := v.(*auth.Identity)
	return identity
}
