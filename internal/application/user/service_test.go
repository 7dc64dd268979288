package user

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"github.com/shelfswap/shelfswap/internal/apperr"
	domainUser "github.com/shelfswap/shelfswap/internal/domain/user"
	userMocks "github.com/shelfswap/shelfswap/internal/domain/user/mocks"
)

func newService(t *testing.T) (*Service, *userMocks.MockRepository) {
	ctrl := gomock.NewController(t)
	repo := userMocks.NewMockRepository(ctrl)
	return NewService(repo, zerolog.Nop()), repo
}

func admin() domainUser.Actor {
	return domainUser.Actor{UserID: uuid.New(), Role: domainUser.RoleAdmin}
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("creates an active member with a hashed password", func(t *testing.T) {
		svc, repo := newService(t)
		repo.EXPECT().GetByUsername(ctx, "reader.one").Return(nil, nil)
		repo.EXPECT().Create(ctx, gomock.Any()).Return(nil)

		u, err := svc.Register(ctx, "  Reader.One ", "Tr0ub4dor&3!")
		require.NoError(t, err)
		assert.Equal(t, "reader.one", u.Username)
		assert.Equal(t, domainUser.RoleMember, u.Role)
		assert.Equal(t, domainUser.StatusActive, u.Status)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("Tr0ub4dor&3!")))
	})

	t.Run("rejects an invalid username", func(t *testing.T) {
		svc, _ := newService(t)
		_, err := svc.Register(ctx, "x", "Tr0ub4dor&3!")
		require.Error(t, err)
		assert.Equal(t, apperr.CodeInvalidParam, apperr.CodeOf(err))
	})

	t.Run("rejects a password containing the username", func(t *testing.T) {
		svc, _ := newService(t)
		_, err := svc.Register(ctx, "reader.one", "Reader.One123!x")
		require.Error(t, err)
		assert.Equal(t, apperr.CodeInvalidParam, apperr.CodeOf(err))
	})

	t.Run("refuses a taken username", func(t *testing.T) {
		svc, repo := newService(t)
		repo.EXPECT().GetByUsername(ctx, "reader.one").Return(&domainUser.User{Username: "reader.one"}, nil)

		_, err := svc.Register(ctx, "reader.one", "Tr0ub4dor&3!")
		require.Error(t, err)
		assert.Equal(t, apperr.CodeUsernameTaken, apperr.CodeOf(err))
	})
}

func TestService_Suspend(t *testing.T) {
	ctx := context.Background()

	t.Run("admin suspends another account", func(t *testing.T) {
		svc, repo := newService(t)
		target := uuid.New()
		repo.EXPECT().GetByID(ctx, target).Return(&domainUser.User{UserID: target, Status: domainUser.StatusActive}, nil)
		repo.EXPECT().UpdateStatus(ctx, target, domainUser.StatusSuspended).Return(nil)

		u, err := svc.Suspend(ctx, admin(), target)
		require.NoError(t, err)
		assert.Equal(t, domainUser.StatusSuspended, u.Status)
	})

	t.Run("member cannot suspend", func(t *testing.T) {
		svc, _ := newService(t)
		actor := domainUser.Actor{UserID: uuid.New(), Role: domainUser.RoleMember}
		_, err := svc.Suspend(ctx, actor, uuid.New())
		require.Error(t, err)
		assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))
	})

	t.Run("admin cannot change own status", func(t *testing.T) {
		svc, _ := newService(t)
		a := admin()
		_, err := svc.Suspend(ctx, a, a.UserID)
		require.Error(t, err)
		assert.Equal(t, apperr.CodeInvalidParam, apperr.CodeOf(err))
	})

	t.Run("unknown target", func(t *testing.T) {
		svc, repo := newService(t)
		target := uuid.New()
		repo.EXPECT().GetByID(ctx, target).Return(nil, nil)

		_, err := svc.Suspend(ctx, admin(), target)
		require.Error(t, err)
		assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
	})
}

func TestService_Unsuspend(t *testing.T) {
	ctx := context.Background()
	svc, repo := newService(t)
	target := uuid.New()
	repo.EXPECT().GetByID(ctx, target).Return(&domainUser.User{UserID: target, Status: domainUser.StatusSuspended}, nil)
	repo.EXPECT().UpdateStatus(ctx, target, domainUser.StatusActive).Return(nil)

	u, err := svc.Unsuspend(ctx, admin(), target)
	require.NoError(t, err)
	assert.Equal(t, domainUser.StatusActive, u.Status)
}
