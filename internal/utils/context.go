package utils

import (
	"context"

	"github.com/EmpoweredVote/EV-Accounts/internal/tokens"
)

type contextKey string

const (
	ContextAccountIDKey contextKey = "accountID"
	ContextClaimsKey    contextKey = "claims"
	ContextAgeKey       contextKey = "age"
)

func WithAccountID(ctx context.Context, id uint) context.Context {
	return context.WithValue(ctx, ContextAccountIDKey, id)
}

func GetAccountIDFromContext(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(ContextAccountIDKey).(uint)
	return id, ok
}

func WithClaims(ctx context.Context, c *tokens.Claims) context.Context {
	return context.WithValue(ctx, ContextClaimsKey, c)
}

func GetClaimsFromContext(ctx context.Context) (*tokens.Claims, bool) {
	c, ok := ctx.Value(ContextClaimsKey).(*tokens.Claims)
	return c, ok && c != nil
}

func WithAge(ctx context.Context, age int) context.Context {
	return context.WithValue(ctx, ContextAgeKey, age)
}

func GetAgeFromContext(ctx context.Context) (int, bool) {
	age, ok := ctx.Value(ContextAgeKey).(int)
	return age, ok
}
