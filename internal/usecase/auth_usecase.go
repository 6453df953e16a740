package usecase

import (
	"context"
	"errors"
	"net/http"
	"time"

	"medqueue-portal/internal/converter"
	"medqueue-portal/internal/delivery/dto"
	"medqueue-portal/internal/domain/entity"
	"medqueue-portal/internal/domain/repository"
	"medqueue-portal/internal/infrastructure/hospitalapi"
	"medqueue-portal/internal/service"
	"medqueue-portal/pkg/jwt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrSessionExpired     = errors.New("session expired, please log in again")
)

type AuthUsecase interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error)
	Logout(ctx context.Context, sessionID string) error
	Authenticate(ctx context.Context, token string) (*entity.Session, error)
	GetCurrentUser(ctx context.Context, sessionID string) (*dto.UserResponse, error)
}

type authUsecase struct {
	log         *logrus.Logger
	gateway     AuthGateway
	sessionRepo repository.SessionRepository
	registry    SessionRegistry
	watches     WatchController
	audit       service.AuditService
	jwtService  *jwt.JWTService
}

func NewAuthUsecase(
	log *logrus.Logger,
	gateway AuthGateway,
	sessionRepo repository.SessionRepository,
	registry SessionRegistry,
	watches WatchController,
	audit service.AuditService,
	jwtService *jwt.JWTService,
) AuthUsecase {
	return &authUsecase{
		log:         log,
		gateway:     gateway,
		sessionRepo: sessionRepo,
		registry:    registry,
		watches:     watches,
		audit:       audit,
		jwtService:  jwtService,
	}
}

func (u *authUsecase) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	resp, err := u.gateway.Register(ctx, hospitalapi.RegisterRequest{
		Email:           req.Email,
		Username:        req.Username,
		FullName:        req.FullName,
		Phone:           req.Phone,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		u.log.Warnf("Failed to register user %s: %+v", req.Email, err)
		return nil, err
	}

	role := entity.ParseRole(firstNonEmpty(resp.Role, resp.User.Role))

	// Some deployments only return the user and expect a separate login.
	if resp.Access == "" {
		return &dto.AuthResponse{
			User:    *converter.UserToResponse(&resp.User, role),
			Role:    string(role),
			Message: firstNonEmpty(resp.Message, "Registration successful"),
		}, nil
	}

	out, err := u.startSession(ctx, resp, role)
	if err != nil {
		return nil, err
	}
	out.Message = firstNonEmpty(resp.Message, "Registration successful")
	u.audit.Record(ctx, actorOf(out), entity.AuditActionUserRegister, entity.JSON{"email": req.Email})
	return out, nil
}

func (u *authUsecase) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	resp, err := u.gateway.Login(ctx, hospitalapi.LoginRequest{Email: req.Email, Password: req.Password})
	if err != nil {
		if hospitalapi.IsStatus(err, http.StatusUnauthorized) {
			return nil, ErrInvalidCredentials
		}
		u.log.Warnf("Failed to log in %s: %+v", req.Email, err)
		return nil, err
	}

	role := entity.ParseRole(firstNonEmpty(resp.Role, resp.User.Role))
	out, err := u.startSession(ctx, resp, role)
	if err != nil {
		return nil, err
	}
	out.Message = firstNonEmpty(resp.Message, "Login successful")
	u.audit.Record(ctx, actorOf(out), entity.AuditActionUserLogin, entity.JSON{"email": req.Email})
	return out, nil
}

// startSession stores the upstream credentials in a new Redis session and
// issues the portal token that refers to it.
func (u *authUsecase) startSession(ctx context.Context, resp *hospitalapi.AuthResponse, role entity.Role) (*dto.AuthResponse, error) {
	session := &entity.Session{
		ID:           uuid.New().String(),
		UserID:       resp.User.ID,
		Role:         role,
		FullName:     firstNonEmpty(resp.User.FullName, resp.User.Username),
		Email:        resp.User.Email,
		AccessToken:  resp.Access,
		RefreshToken: resp.Refresh,
		CreatedAt:    time.Now(),
	}

	if err := u.sessionRepo.Create(ctx, session, u.jwtService.GetSessionTTL()); err != nil {
		u.log.Warnf("Failed to create session: %+v", err)
		return nil, err
	}

	token, err := u.jwtService.GenerateSessionToken(session.ID, session.UserID.String(), string(role))
	if err != nil {
		u.log.Warnf("Failed to generate session token: %+v", err)
		if delErr := u.sessionRepo.Delete(ctx, session.ID); delErr != nil {
			u.log.Warnf("Failed to delete orphan session %s: %+v", session.ID, delErr)
		}
		return nil, err
	}

	user := converter.SessionToUserResponse(session)
	return &dto.AuthResponse{
		Token:        token,
		ExpiresIn:    int64(u.jwtService.GetSessionTTL().Seconds()),
		User:         *user,
		Role:         string(role),
		DashboardURL: resp.DashboardURL,
	}, nil
}

// Logout revokes the upstream refresh token on a best effort basis and
// tears down everything the session owns.
func (u *authUsecase) Logout(ctx context.Context, sessionID string) error {
	session, err := u.sessionRepo.FindByID(ctx, sessionID)
	if err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
		u.log.Warnf("Failed to find session %s: %+v", sessionID, err)
		return err
	}

	if session != nil && session.RefreshToken != "" {
		if err := u.gateway.Blacklist(ctx, session.RefreshToken); err != nil {
			u.log.Warnf("Failed to blacklist refresh token: %+v", err)
		}
	}

	stopped := u.watches.StopSession(sessionID)
	u.registry.Drop(sessionID)

	if err := u.sessionRepo.Delete(ctx, sessionID); err != nil {
		u.log.Warnf("Failed to delete session %s: %+v", sessionID, err)
		return err
	}

	if session != nil {
		u.audit.Record(ctx, service.AuditActor{SessionID: session.ID, UserID: session.UserID, Role: session.Role},
			entity.AuditActionUserLogout, entity.JSON{"watches_stopped": stopped})
	}
	return nil
}

// Authenticate resolves a portal token to its live session. A session whose
// upstream credentials were cleared by a failed refresh is expired.
func (u *authUsecase) Authenticate(ctx context.Context, token string) (*entity.Session, error) {
	claims, err := u.jwtService.ValidateToken(token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	session, err := u.sessionRepo.FindByID(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrSessionExpired
		}
		u.log.Warnf("Failed to load session %s: %+v", claims.SessionID, err)
		return nil, err
	}
	if !session.Authenticated() {
		return nil, ErrSessionExpired
	}
	return session, nil
}

func (u *authUsecase) GetCurrentUser(ctx context.Context, sessionID string) (*dto.UserResponse, error) {
	session, err := u.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrSessionExpired
		}
		u.log.Warnf("Failed to load session %s: %+v", sessionID, err)
		return nil, err
	}
	return converter.SessionToUserResponse(session), nil
}

func actorOf(resp *dto.AuthResponse) service.AuditActor {
	return service.AuditActor{
		SessionID: resp.User.SessionID,
		UserID:    entity.ID(resp.User.ID),
		Role:      entity.Role(resp.Role),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
