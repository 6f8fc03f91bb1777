package api

import (
	"net/http"
	"strings"

	"github.com/annel0/voxel-explorer/internal/auth"
	"github.com/gin-gonic/gin"
)

// jwtMiddleware проверяет JWT токен в заголовке Authorization
func (rs *RestServer) jwtMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			respondError(c, http.StatusUnauthorized, "Отсутствует токен авторизации")
			return
		}

		// Формат "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			respondError(c, http.StatusUnauthorized, "Неверный формат токена")
			return
		}

		claims, err := rs.tokens.Validate(parts[1])
		if err != nil {
			respondError(c, http.StatusUnauthorized, "Недействительный токен")
			return
		}

		c.Set("subject", claims.Subject)
		c.Set("claims", claims)
		c.Next()
	}
}

// editorMiddleware пропускает только токены с ролью editor
func (rs *RestServer) editorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		v, exists := c.Get("claims")
		if !exists {
			respondError(c, http.StatusInternalServerError, "Отсутствует информация о пользователе")
			return
		}
		if claims, ok := v.(*auth.Claims); !ok || !claims.CanEdit() {
			respondError(c, http.StatusForbidden, "Недостаточно прав доступа")
			return
		}
		c.Next()
	}
}
