package user

import (
	"context"
	"errors"
	"time"

	"github.com/trezcool/ratiba/core"
)

var ErrNotFound = errors.New("user not found")

type (
	Repository interface {
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		GetUser(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (User, error)
		UpdateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		UpdateOrCreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
	}

	Service interface {
		GetByID(ctx context.Context, id string) (User, error)
		GetByUsernameOrEmail(ctx context.Context, uname string) (User, error)
		// Sync creates or updates the replicated account identified by username or email.
		Sync(ctx context.Context, usr User) (User, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{UsernameOrEmail: core.CleanString(uname, true /* lower */)})
}

func (svc *service) Sync(ctx context.Context, usr User) (User, error) {
	usr.Username = core.CleanString(usr.Username, true /* lower */)
	usr.Email = core.CleanString(usr.Email, true /* lower */)
	usr.Name = core.CleanString(usr.Name)

	filter := GetFilter{Username: usr.Username}
	if usr.Username == "" {
		filter = GetFilter{Email: usr.Email}
	}
	existing, err := svc.repo.GetUser(ctx, filter)
	switch err {
	case nil:
		usr.ID = existing.ID
		usr.CreatedAt = existing.CreatedAt
		if usr.Roles == nil {
			usr.Roles = existing.Roles
		}
	case ErrNotFound:
	default:
		return User{}, err
	}

	now := time.Now().UTC()
	if usr.CreatedAt.IsZero() {
		usr.CreatedAt = now
	}
	usr.UpdatedAt = now
	return svc.repo.UpdateOrCreateUser(ctx, usr)
}
