package converter

import (
	"medqueue-portal/internal/delivery/dto"
	"medqueue-portal/internal/domain/entity"
)

// UserToResponse converts an upstream User to UserResponse DTO
func UserToResponse(user *entity.User, role entity.Role) *dto.UserResponse {
	if user == nil {
		return nil
	}

	return &dto.UserResponse{
		ID:       user.ID.String(),
		Email:    user.Email,
		Username: user.Username,
		FullName: displayName(user),
		Role:     string(role),
	}
}

// SessionToUserResponse converts a portal Session to UserResponse DTO
func SessionToUserResponse(session *entity.Session) *dto.UserResponse {
	if session == nil {
		return nil
	}

	return &dto.UserResponse{
		ID:        session.UserID.String(),
		Email:     session.Email,
		FullName:  session.FullName,
		Role:      string(session.Role),
		SessionID: session.ID,
		CreatedAt: session.CreatedAt,
	}
}

func displayName(user *entity.User) string {
	if user.FullName != "" {
		return user.FullName
	}
	return user.Username
}
