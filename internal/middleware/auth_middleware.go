package middleware

import (
	"errors"
	"fmt"
	"strings"

	"go-payroll/internal/shared/apperror"
	"go-payroll/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ContextUserID     = "user_id"
	ContextEmployeeID = "employee_id"
	ContextCompanyID  = "company_id"
	ContextRole       = "role"
)

// AuthMiddleware validates an HS256 access token from the Authorization
// header or the access_token cookie and copies its claims into the context.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, found := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !found {
			tokenString = ""
		}

		if tokenString == "" {
			if cookie, err := c.Cookie("access_token"); err == nil {
				tokenString = cookie
			}
		}

		if tokenString == "" {
			response.AbortWithError(c, apperror.ErrUnauthorized)
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return []byte(secret), nil
		})

		if err != nil || !token.Valid {
			if errors.Is(err, jwt.ErrTokenExpired) {
				response.AbortWithError(c, apperror.ErrTokenExpired)
				return
			}
			response.AbortWithError(c, apperror.ErrInvalidToken)
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			response.AbortWithError(c, apperror.ErrInvalidToken)
			return
		}

		values := make(map[string]string, 3)
		for _, key := range []string{ContextUserID, ContextCompanyID, ContextEmployeeID} {
			v, _ := claims[key].(string)
			if v == "" {
				response.AbortWithError(c, apperror.ErrInvalidToken.WithDetails(key+" not found in token"))
				return
			}
			values[key] = v
		}

		role, _ := claims[ContextRole].(string)

		c.Set(ContextUserID, values[ContextUserID])
		c.Set(ContextEmployeeID, values[ContextEmployeeID])
		c.Set(ContextCompanyID, values[ContextCompanyID])
		c.Set(ContextRole, role)

		c.Next()
	}
}
