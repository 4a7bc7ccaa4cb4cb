package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"

	"github.com/dkravtsov/marketplace-backend/internal/models"
	"github.com/dkravtsov/marketplace-backend/internal/pkg/apperror"
	"github.com/dkravtsov/marketplace-backend/internal/repository"
)

// fakeAuthRepo — хранилище пользователей в памяти для тестов AuthService.
type fakeAuthRepo struct {
	byEmail map[string]*models.User
	byID    map[uuid.UUID]*models.User
}

func newFakeAuthRepo() *fakeAuthRepo {
	return &fakeAuthRepo{
		byEmail: make(map[string]*models.User),
		byID:    make(map[uuid.UUID]*models.User),
	}
}

func (r *fakeAuthRepo) Create(_ context.Context, user *models.User) error {
	user.ID = uuid.New()
	user.IsActive = true
	r.byEmail[user.Email] = user
	r.byID[user.ID] = user
	return nil
}

func (r *fakeAuthRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	if u, ok := r.byEmail[email]; ok {
		return u, nil
	}
	return nil, repository.ErrUserNotFound
}

func (r *fakeAuthRepo) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := r.byID[id]; ok {
		return u, nil
	}
	return nil, repository.ErrUserNotFound
}

func (r *fakeAuthRepo) UpdateLastLoginAt(_ context.Context, userID uuid.UUID) error {
	if u, ok := r.byID[userID]; ok {
		now := time.Now()
		u.LastLoginAt = &now
	}
	return nil
}

func newAuthService(repo *fakeAuthRepo) *AuthService {
	tm := NewTokenManager("access-secret", "refresh-secret", 15*time.Minute, 720*time.Hour)
	return NewAuthService(repo, tm)
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	repo := newFakeAuthRepo()
	svc := newAuthService(repo)

	res, err := svc.Register(ctx, RegisterInput{
		Email:    "  Ivan.Petrov@Example.COM ",
		Password: "secret-password",
		Role:     models.RoleProvider,
	})

	assert.NoError(t, err)
	assert.Equal(t, "ivan.petrov@example.com", res.User.Email)
	assert.Equal(t, "ivan_petrov", res.User.Username)
	assert.Equal(t, models.RoleProvider, res.User.Role)
	assert.NotEmpty(t, res.TokenPair.AccessToken)
	assert.NotEmpty(t, res.TokenPair.RefreshToken)

	// Пароль хранится только в виде bcrypt-хеша.
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(res.User.PasswordHash), []byte("secret-password")))
}

func TestRegister_Validation(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(newFakeAuthRepo())

	cases := []RegisterInput{
		{Email: "no-at-sign", Password: "secret-password"},
		{Email: "user@example.com", Password: "short"},
		{Email: "user@example.com", Password: "secret-password", Role: "superuser"},
		{Email: "user@example.com", Password: "secret-password", Role: models.RoleAdmin},
	}
	for _, in := range cases {
		_, err := svc.Register(ctx, in)
		var appErr *apperror.AppError
		assert.True(t, errors.As(err, &appErr), "email=%q role=%q", in.Email, in.Role)
		assert.Equal(t, apperror.ErrCodeValidation, appErr.Code)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(newFakeAuthRepo())

	in := RegisterInput{Email: "user@example.com", Password: "secret-password"}
	_, err := svc.Register(ctx, in)
	assert.NoError(t, err)

	_, err = svc.Register(ctx, in)
	var appErr *apperror.AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperror.ErrCodeConflict, appErr.Code)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	repo := newFakeAuthRepo()
	svc := newAuthService(repo)

	_, err := svc.Register(ctx, RegisterInput{Email: "user@example.com", Password: "secret-password"})
	assert.NoError(t, err)

	res, err := svc.Login(ctx, LoginInput{Email: "User@Example.com", Password: "secret-password"})
	assert.NoError(t, err)
	assert.NotEmpty(t, res.TokenPair.AccessToken)
	assert.NotNil(t, res.User.LastLoginAt)
}

func TestLogin_WrongPassword(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(newFakeAuthRepo())

	_, err := svc.Register(ctx, RegisterInput{Email: "user@example.com", Password: "secret-password"})
	assert.NoError(t, err)

	_, err = svc.Login(ctx, LoginInput{Email: "user@example.com", Password: "wrong-password"})
	var appErr *apperror.AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperror.ErrCodeUnauthorized, appErr.Code)

	// Несуществующий email даёт ту же ошибку, без утечки информации.
	_, err = svc.Login(ctx, LoginInput{Email: "ghost@example.com", Password: "secret-password"})
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperror.ErrCodeUnauthorized, appErr.Code)
}

func TestLogin_BlockedUser(t *testing.T) {
	ctx := context.Background()
	repo := newFakeAuthRepo()
	svc := newAuthService(repo)

	res, err := svc.Register(ctx, RegisterInput{Email: "user@example.com", Password: "secret-password"})
	assert.NoError(t, err)

	repo.byID[res.User.ID].IsActive = false

	_, err = svc.Login(ctx, LoginInput{Email: "user@example.com", Password: "secret-password"})
	assert.True(t, apperror.IsForbidden(err))
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(newFakeAuthRepo())

	res, err := svc.Register(ctx, RegisterInput{Email: "user@example.com", Password: "secret-password"})
	assert.NoError(t, err)

	pair, err := svc.Refresh(ctx, res.TokenPair.RefreshToken)
	assert.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
}

func TestRefresh_GarbageToken(t *testing.T) {
	svc := newAuthService(newFakeAuthRepo())

	_, err := svc.Refresh(context.Background(), "not-a-jwt")

	var appErr *apperror.AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperror.ErrCodeUnauthorized, appErr.Code)
}

func TestParseAccess(t *testing.T) {
	tm := NewTokenManager("access-secret", "refresh-secret", 15*time.Minute, time.Hour)
	user := &models.User{ID: uuid.New(), Role: models.RoleProvider}

	pair, err := tm.GeneratePair(user)
	assert.NoError(t, err)

	userID, role, err := tm.ParseAccess(pair.AccessToken)
	assert.NoError(t, err)
	assert.Equal(t, user.ID, userID)
	assert.Equal(t, models.RoleProvider, role)

	// Access токен не проходит как refresh.
	_, err = tm.ParseRefresh(pair.AccessToken)
	assert.Error(t, err)
}

func TestDeriveUsername(t *testing.T) {
	assert.Equal(t, "ivan_petrov", deriveUsername("ivan.petrov@example.com"))
	assert.Equal(t, "dev_test", deriveUsername("dev+test@example.com"))

	short := deriveUsername("ab@example.com")
	assert.True(t, len(short) > 3)
	assert.Contains(t, short, "user_")
}
