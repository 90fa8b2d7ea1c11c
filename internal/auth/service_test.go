package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dynatable/internal/db"
	"dynatable/internal/domain"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	writeDB, _ := db.OpenTest(t)
	return NewService(NewUserRepo(writeDB), []byte("test-secret"), "iss", "aud", time.Hour, 24*time.Hour)
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name                      string
		email, password, confirm  string
	}{
		{name: "empty email", email: "", password: "password1", confirm: "password1"},
		{name: "no at sign", email: "nope", password: "password1", confirm: "password1"},
		{name: "short password", email: "a@b.com", password: "short", confirm: "short"},
		{name: "confirm mismatch", email: "a@b.com", password: "password1", confirm: "password2"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.email, tt.password, tt.confirm)
			var validation *domain.ValidationError
			assert.ErrorAs(t, err, &validation)
		})
	}
}

func TestRegisterAndLogin(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "a@b.com", "password1", "password1")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "a@b.com", user.Email)
	// Stored password is a hash, never the plaintext.
	assert.NotEqual(t, "password1", user.Password)

	pair, err := svc.Login(ctx, "a@b.com", "password1")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	claims, err := svc.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.Subject)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "a@b.com", "password1", "password1")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "a@b.com", "password1", "password1")
	var conflict *domain.ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestLoginFailureIsUniform(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "a@b.com", "password1", "password1")
	require.NoError(t, err)

	_, unknownErr := svc.Login(ctx, "who@b.com", "password1")
	_, wrongErr := svc.Login(ctx, "a@b.com", "wrong-password")

	var denied *domain.AccessDeniedError
	require.ErrorAs(t, unknownErr, &denied)
	require.ErrorAs(t, wrongErr, &denied)
	// Unknown email and wrong password must be indistinguishable.
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())
}

func TestRefresh(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "a@b.com", "password1", "password1")
	require.NoError(t, err)
	pair, err := svc.Login(ctx, "a@b.com", "password1")
	require.NoError(t, err)

	fresh, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	claims, err := svc.VerifyAccess(fresh.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.Subject)

	_, err = svc.Refresh(ctx, "garbage")
	assert.Error(t, err)
}

func TestMe(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "a@b.com", "password1", "password1")
	require.NoError(t, err)

	got, err := svc.Me(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, got.Email)

	_, err = svc.Me(ctx, "missing")
	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestPasswordHashing(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("password1")
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "password1"))
	assert.False(t, VerifyPassword(hash, "password2"))
}
