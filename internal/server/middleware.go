package server

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	apperrors "github.com/mowind/proxyadmin-go/internal/errors"
)

// RequestIDHeader 请求 ID 头，同时作为管理操作的 operation_id
const RequestIDHeader = "X-Request-ID"

// AuthMiddleware authenticates requests using Bearer tokens or X-API-Key headers.
// Paths in whitelist (prefix match, "/" only matches itself) skip authentication.
func AuthMiddleware(enabled bool, secret string, whitelist []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			c.Next()
			return
		}

		path := c.Request.URL.Path
		for _, whitelistedPath := range whitelist {
			if strings.HasPrefix(path, whitelistedPath) {
				if whitelistedPath == "/" && path != "/" {
					continue
				}
				c.Next()
				return
			}
		}

		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && parts[0] == "Bearer" && secretMatches(parts[1], secret) {
				c.Next()
				return
			}
			abortUnauthorized(c)
			return
		}

		if apiKey := c.GetHeader("X-API-Key"); apiKey != "" && secretMatches(apiKey, secret) {
			c.Next()
			return
		}

		abortUnauthorized(c)
	}
}

func secretMatches(got, secret string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(secret)) == 1
}

// 统一的错误信息，不区分缺失和错误的凭证
func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": "authentication failed",
		"code":  http.StatusUnauthorized,
	})
}

// CORSMiddleware 允许浏览器跨域调用 JSON-RPC 端点，预检请求直接返回 204
func CORSMiddleware() gin.HandlerFunc {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-API-Key", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
	})

	return func(ctx *gin.Context) {
		c.HandlerFunc(ctx.Writer, ctx.Request)
		// 预检请求已经由 cors 写回 204
		if ctx.Request.Method == http.MethodOptions && ctx.GetHeader("Access-Control-Request-Method") != "" {
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

// RequestIDMiddleware 读取或生成请求 ID，写回响应头并放入请求上下文
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = apperrors.NewOperationID()
		}

		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(apperrors.WithOperationID(c.Request.Context(), id))
		c.Next()
	}
}
