package utils

import (
	"context"
)

type contextKey string

const (
	UsernameKey  contextKey = "username"
	RoleKey      contextKey = "role"
	RequestIDKey contextKey = "request_id"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

func GetUsernameFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(UsernameKey).(string)
	if !ok || username == "" {
		return "", false
	}
	return username, true
}

func GetRoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(RoleKey).(string)
	return role, ok
}

// IsAdmin reports whether the authenticated caller carries the admin role.
func IsAdmin(ctx context.Context) bool {
	role, ok := GetRoleFromContext(ctx)
	return ok && role == RoleAdmin
}

func SetUserContext(ctx context.Context, username, role string) context.Context {
	ctx = context.WithValue(ctx, UsernameKey, username)
	ctx = context.WithValue(ctx, RoleKey, role)
	return ctx
}

func GetRequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

func SetRequestIDContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}
