package auth

import "context"

type claimsKey struct{}

func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// ClaimsFromContext returns the claims stored by the auth middleware.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok && c != nil
}

// PrincipalFromContext is ClaimsFromContext followed by Claims.Principal.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	c, ok := ClaimsFromContext(ctx)
	if !ok {
		return Principal{}, false
	}
	p, err := c.Principal()
	if err != nil {
		return Principal{}, false
	}
	return p, true
}
