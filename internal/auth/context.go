package auth

import "context"

type ctxKey struct{}

var ctxKeySession ctxKey

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKeySession, s)
}

func SessionFromContext(ctx context.Context) *Session {
	if v := ctx.Value(ctxKeySession); v != nil {
		if s, ok := v.(*Session); ok {
			return s
		}
	}
	return nil
}
