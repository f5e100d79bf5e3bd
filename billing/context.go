package billing

import (
	"context"

	"github.com/google/uuid"
)

// User is the authenticated identity the host application resolves
// before checkout and portal requests reach this package. Credentials
// and sessions are the host's concern.
type User struct {
	ID    uuid.UUID
	Email string
	Name  string
}

type userCtxKey struct{}

// SetUserToContext stores the authenticated user in the context.
// Auth middleware in the host application calls this for every
// authenticated request.
func SetUserToContext(ctx context.Context, user User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, user)
}

// UserFromContext retrieves the authenticated user from the context.
func UserFromContext(ctx context.Context) (User, bool) {
	user, ok := ctx.Value(userCtxKey{}).(User)
	return user, ok
}
