package dto

import (
	"medqueue-portal/internal/domain/entity"
)

// Request DTOs

type AvailabilityRequest struct {
	Status string `json:"status" validate:"required,oneof=online offline break"`
}

type AnnouncementRequest struct {
	Message string `json:"message" validate:"required,max=200"`
}

type MoveTokenRequest struct {
	Token     entity.Token `json:"token" validate:"required"`
	Direction string       `json:"direction" validate:"required,oneof=up down"`
}

type PauseQueueRequest struct {
	Paused *bool `json:"paused" validate:"required"`
}

type ReassignRequest struct {
	DoctorID entity.ID `json:"doctor_id" validate:"required"`
}

// Response DTOs

type AnnouncementResponse struct {
	Message       string   `json:"message"`
	QuickMessages []string `json:"quick_messages,omitempty"`
}
