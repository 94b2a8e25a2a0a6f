package app

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopherai-docqa/internal/model"
	"gopherai-docqa/internal/pkg/jwtutil"
)

func TestAuthService_RegisterAndLogin(t *testing.T) {
	users := &memUsers{}
	svc := NewAuthService(users, "secret", time.Hour)

	res, err := svc.Register(RegisterInput{Username: " ana ", Email: "Ana@Example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, "ana", res.User.Username)
	assert.Equal(t, "ana@example.com", res.User.Email)
	assert.NotEqual(t, "correct horse", res.User.PasswordHash)

	claims, err := jwtutil.ParseToken("secret", res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)

	assert.Nil(t, res.User.LastLoginAt)
	login, err := svc.Login(LoginInput{Username: "ana", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, login.User.ID)
	require.NotNil(t, login.User.LastLoginAt)
	assert.Equal(t, 1, users.logins)

	_, err = svc.Login(LoginInput{Username: "ana", Password: "wrong password"})
	assert.ErrorIs(t, err, ErrInvalidCredential)
	_, err = svc.Login(LoginInput{Username: "bob", Password: "whatever1"})
	assert.ErrorIs(t, err, ErrInvalidCredential)
	assert.Equal(t, 1, users.logins, "failed logins are not recorded")
}

func TestAuthService_RegisterValidation(t *testing.T) {
	users := &memUsers{}
	svc := NewAuthService(users, "secret", time.Hour)
	_, err := svc.Register(RegisterInput{Username: "ana", Email: "ana@example.com", Password: "password1"})
	require.NoError(t, err)

	tests := []struct {
		name  string
		input RegisterInput
		want  error
	}{
		{"short password", RegisterInput{Username: "bob", Email: "bob@example.com", Password: "short"}, ErrInvalidInput},
		{"bad email", RegisterInput{Username: "bob", Email: "bob.example.com", Password: "password1"}, ErrInvalidInput},
		{"taken username", RegisterInput{Username: "ana", Email: "other@example.com", Password: "password1"}, ErrUsernameExists},
		{"taken email", RegisterInput{Username: "bob", Email: "ANA@example.com", Password: "password1"}, ErrEmailExists},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(tc.input)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestAuthService_GetUserByID(t *testing.T) {
	svc := NewAuthService(&memUsers{}, "secret", time.Hour)

	_, err := svc.GetUserByID(0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	u, err := svc.GetUserByID(42)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Nil(t, u)
}

func TestAuthService_RegisterSurfacesStoreErrors(t *testing.T) {
	svc := NewAuthService(failingUsers{memUsers: &memUsers{}, err: errors.New("db down")}, "secret", time.Hour)

	_, err := svc.Register(RegisterInput{Username: "ana", Email: "ana@example.com", Password: "password1"})
	assert.EqualError(t, err, "db down")
	_, err = svc.Login(LoginInput{Username: "ana", Password: "password1"})
	assert.EqualError(t, err, "db down")
}

type failingUsers struct {
	*memUsers
	err error
}

func (f failingUsers) GetByUsername(string) (*model.User, error) { return nil, f.err }

func (f failingUsers) GetByUsernameOrEmail(string, string) (*model.User, error) {
	return nil, f.err
}
