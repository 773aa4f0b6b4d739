package auth

import (
	"context"
	"errors"
)

type ctxKey int

const (
	ctxAdminID ctxKey = iota
	ctxRole
)

func WithIdentity(ctx context.Context, adminID, role string) context.Context {
	ctx = context.WithValue(ctx, ctxAdminID, adminID)
	ctx = context.WithValue(ctx, ctxRole, role)
	return ctx
}

func AdminID(ctx context.Context) (string, error) {
	v := ctx.Value(ctxAdminID)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("admin_id not in context")
}

func Role(ctx context.Context) (string, error) {
	v := ctx.Value(ctxRole)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("role not in context")
}
