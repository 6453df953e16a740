package converter

import (
	"strings"

	"medqueue-portal/internal/delivery/dto"
	"medqueue-portal/internal/domain/entity"
)

// PatientDetailsFromRequest converts a PatientDetailsRequest DTO to the entity
func PatientDetailsFromRequest(req *dto.PatientDetailsRequest) entity.PatientDetails {
	return entity.PatientDetails{
		Name:     strings.TrimSpace(req.Name),
		Age:      strings.TrimSpace(req.Age),
		Gender:   req.Gender,
		IDNumber: strings.TrimSpace(req.IDNumber),
		Relation: strings.TrimSpace(req.Relation),
	}
}

// BookingMethodFromRequest maps the requested method to the API value
func BookingMethodFromRequest(req *dto.BookingMethodRequest) entity.BookingMethod {
	if req.Method == "department" {
		return entity.BookingMethodDepartment
	}
	return entity.BookingMethod(req.Method)
}
