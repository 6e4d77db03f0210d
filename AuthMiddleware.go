package main

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/nicksnyder/go-i18n/v2/i18n"
)

// AuthMiddleware requires a valid bearer token and loads the account into
// the request context.
func AuthMiddleware(users *UserStore, bundle *i18n.Bundle, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := userFromBearer(c, users, secret)
		if err != nil {
			respondError(c, localizerFor(bundle, c), err)
			c.Abort()
			return
		}

		c.Set("user_id", user.ID)
		c.Set("current_user", user)
		c.Next()
	}
}

// OptionalAuthMiddleware honors a valid bearer token when present but
// lets the request proceed unauthenticated when the token is absent or
// invalid.
func OptionalAuthMiddleware(users *UserStore, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user, err := userFromBearer(c, users, secret); err == nil {
			c.Set("user_id", user.ID)
			c.Set("current_user", user)
		}
		c.Next()
	}
}

func userFromBearer(c *gin.Context, users *UserStore, secret string) (*User, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		return nil, NewUnauthorizedError("errors.unauthorized")
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, NewUnauthorizedError("errors.unauthorized")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, NewUnauthorizedError("errors.unauthorized")
	}
	rawID, ok := claims["user_id"].(float64)
	if !ok {
		return nil, NewUnauthorizedError("errors.unauthorized")
	}

	user, err := users.GetByID(uint(rawID))
	if err != nil {
		// The account may have been deleted since the token was issued.
		return nil, NewUnauthorizedError("errors.unauthorized")
	}
	return user, nil
}

// currentUser returns the authenticated account, or nil on
// optional-auth routes hit without a token.
func currentUser(c *gin.Context) *User {
	if v, exists := c.Get("current_user"); exists {
		if user, ok := v.(*User); ok {
			return user
		}
	}
	return nil
}

// currentUserID returns the authenticated user id set by the middleware.
func currentUserID(c *gin.Context) (uint, bool) {
	if v, exists := c.Get("user_id"); exists {
		if id, ok := v.(uint); ok {
			return id, true
		}
	}
	return 0, false
}
