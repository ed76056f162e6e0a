package middleware

import "context"

// principal is the authenticated caller seeded by Auth.
type principal struct {
	userID string
	email  string
}

type principalKey struct{}

func principalFrom(ctx context.Context) principal {
	if ctx == nil {
		return principal{}
	}
	p, _ := ctx.Value(principalKey{}).(principal)
	return p
}

func withPrincipal(ctx context.Context, p principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, principalKey{}, p)
}

func UserIDFromContext(ctx context.Context) string {
	return principalFrom(ctx).userID
}

func EmailFromContext(ctx context.Context) string {
	return principalFrom(ctx).email
}

// WithUserID sets the caller id, keeping any email already present.
func WithUserID(ctx context.Context, userID string) context.Context {
	p := principalFrom(ctx)
	p.userID = userID
	return withPrincipal(ctx, p)
}

// WithEmail sets the caller email, keeping any user id already present.
func WithEmail(ctx context.Context, email string) context.Context {
	p := principalFrom(ctx)
	p.email = email
	return withPrincipal(ctx, p)
}
