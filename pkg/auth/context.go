package auth

import (
	"context"

	"github.com/quillhq/quill/pkg/contextkeys"
)

// ClaimsFromContext retrieves the authenticated caller's claims, as placed
// there by the auth middleware
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(contextkeys.ClaimsKey).(*Claims)
	return claims, ok
}
