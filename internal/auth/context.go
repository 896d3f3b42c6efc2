package auth

import (
	"context"
	"errors"
)

type ctxKey int

const (
	ctxOperatorID ctxKey = iota
	ctxOrgID
	ctxRole
)

var (
	ErrNoOperator = errors.New("operator_id not in context")
	ErrNoOrg      = errors.New("org_id not in context")
	ErrNoRole     = errors.New("role not in context")
)

// Identity is the caller resolved from an access token.
type Identity struct {
	OperatorID string
	OrgID      string
	Role       string
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	ctx = context.WithValue(ctx, ctxOperatorID, id.OperatorID)
	ctx = context.WithValue(ctx, ctxOrgID, id.OrgID)
	ctx = context.WithValue(ctx, ctxRole, id.Role)
	return ctx
}

func OperatorID(ctx context.Context) (string, error) {
	return lookup(ctx, ctxOperatorID, ErrNoOperator)
}

func OrgID(ctx context.Context) (string, error) {
	return lookup(ctx, ctxOrgID, ErrNoOrg)
}

func Role(ctx context.Context) (string, error) {
	return lookup(ctx, ctxRole, ErrNoRole)
}

func lookup(ctx context.Context, k ctxKey, missing error) (string, error) {
	if s, ok := ctx.Value(k).(string); ok && s != "" {
		return s, nil
	}
	return "", missing
}
