package usecase

import (
	"context"
	"net/http"
	"testing"
	"time"

	"medqueue-portal/config"
	"medqueue-portal/internal/delivery/dto"
	"medqueue-portal/internal/domain/entity"
	"medqueue-portal/internal/infrastructure/hospitalapi"
	"medqueue-portal/pkg/jwt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuthGateway struct {
	login       *hospitalapi.AuthResponse
	loginErr    error
	register    *hospitalapi.AuthResponse
	blacklisted []string
}

func (g *fakeAuthGateway) Login(ctx context.Context, req hospitalapi.LoginRequest) (*hospitalapi.AuthResponse, error) {
	if g.loginErr != nil {
		return nil, g.loginErr
	}
	return g.login, nil
}

func (g *fakeAuthGateway) Register(ctx context.Context, req hospitalapi.RegisterRequest) (*hospitalapi.AuthResponse, error) {
	return g.register, nil
}

func (g *fakeAuthGateway) Blacklist(ctx context.Context, refreshToken string) error {
	g.blacklisted = append(g.blacklisted, refreshToken)
	return nil
}

type authFixture struct {
	gateway  *fakeAuthGateway
	repo     *memSessionRepo
	registry *fakeRegistry
	audit    *fakeAudit
	usecase  AuthUsecase
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := &authFixture{
		gateway: &fakeAuthGateway{
			login: &hospitalapi.AuthResponse{
				User:    entity.User{ID: "9", Email: "asha@example.com", FullName: "Asha Rao", Role: "doctor"},
				Access:  "upstream-access",
				Refresh: "upstream-refresh",
			},
		},
		repo:     newMemSessionRepo(),
		registry: newFakeRegistry(&fakeHospitalAPI{}),
		audit:    &fakeAudit{},
	}
	jwtService := jwt.NewJWTService(config.JWTConfig{Secret: "test-secret", SessionTTL: time.Hour})
	f.usecase = NewAuthUsecase(testLogger(), f.gateway, f.repo, f.registry, &syncWatcher{}, f.audit, jwtService)
	return f
}

func TestAuth_LoginCreatesSession(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	resp, err := f.usecase.Login(ctx, &dto.LoginRequest{Email: "asha@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "doctor", resp.Role)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, "Login successful", resp.Message)

	session, err := f.usecase.Authenticate(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, entity.RoleDoctor, session.Role)
	assert.Equal(t, "upstream-access", session.AccessToken)
	assert.Equal(t, resp.User.SessionID, session.ID)
	assert.Equal(t, []string{entity.AuditActionUserLogin}, f.audit.actions())
}

func TestAuth_LoginRejected(t *testing.T) {
	f := newAuthFixture(t)
	f.gateway.loginErr = &hospitalapi.APIError{Status: http.StatusUnauthorized, Message: "No active account"}

	_, err := f.usecase.Login(context.Background(), &dto.LoginRequest{Email: "x@example.com", Password: "bad"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// other upstream errors keep the server message
	f.gateway.loginErr = &hospitalapi.APIError{Status: http.StatusBadRequest, Message: "email: Enter a valid email."}
	_, err = f.usecase.Login(context.Background(), &dto.LoginRequest{Email: "x", Password: "bad"})
	require.Error(t, err)
	assert.Equal(t, "email: Enter a valid email.", err.Error())
}

func TestAuth_RegisterWithoutTokens(t *testing.T) {
	f := newAuthFixture(t)
	f.gateway.register = &hospitalapi.AuthResponse{User: entity.User{ID: "12", Username: "ravi"}}

	resp, err := f.usecase.Register(context.Background(), &dto.RegisterRequest{Email: "ravi@example.com"})
	require.NoError(t, err)
	assert.Empty(t, resp.Token)
	assert.Equal(t, "patient", resp.Role)
	assert.Equal(t, "ravi", resp.User.FullName)
	assert.Equal(t, "Registration successful", resp.Message)
	assert.Empty(t, f.repo.sessions)
}

func TestAuth_Authenticate(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.usecase.Authenticate(ctx, "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	resp, err := f.usecase.Login(ctx, &dto.LoginRequest{Email: "asha@example.com", Password: "secret123"})
	require.NoError(t, err)

	// a failed upstream refresh clears the credentials
	_, err = f.repo.Update(ctx, resp.User.SessionID, func(s *entity.Session) error {
		s.AccessToken, s.RefreshToken = "", ""
		return nil
	})
	require.NoError(t, err)
	_, err = f.usecase.Authenticate(ctx, resp.Token)
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestAuth_Logout(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	resp, err := f.usecase.Login(ctx, &dto.LoginRequest{Email: "asha@example.com", Password: "secret123"})
	require.NoError(t, err)
	sessionID := resp.User.SessionID

	require.NoError(t, f.usecase.Logout(ctx, sessionID))

	assert.Equal(t, []string{"upstream-refresh"}, f.gateway.blacklisted)
	assert.Equal(t, []string{sessionID}, f.registry.dropped)
	_, err = f.usecase.Authenticate(ctx, resp.Token)
	assert.ErrorIs(t, err, ErrSessionExpired)
	_, err = f.usecase.GetCurrentUser(ctx, sessionID)
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, []string{entity.AuditActionUserLogin, entity.AuditActionUserLogout}, f.audit.actions())
}
