package httpapi

import (
	"context"

	"github.com/google/uuid"

	"github.com/shelfswap/shelfswap/internal/domain/user"
)

type authContextKey string

const authUserKey authContextKey = "authUser"

// AuthUser represents the authenticated user in context.
type AuthUser struct {
	UserID    uuid.UUID
	Username  string
	Role      user.Role
	Status    user.Status
	SessionID uuid.UUID
}

// Actor converts the context identity into the form the services consume.
func (u AuthUser) Actor() user.Actor {
	return user.Actor{
		UserID:    u.UserID,
		Username:  u.Username,
		Role:      u.Role,
		Suspended: u.Status == user.StatusSuspended,
	}
}

func withAuthUser(ctx context.Context, u *AuthUser) context.Context {
	if u == nil {
		return ctx
	}
	return context.WithValue(ctx, authUserKey, u)
}

func authUserFromContext(ctx context.Context) *AuthUser {
	val := ctx.Value(authUserKey)
	if v, ok := val.(*AuthUser); ok {
		return v
	}
	return nil
}
