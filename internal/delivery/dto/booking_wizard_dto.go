package dto

import (
	"medqueue-portal/internal/domain/entity"
)

// Request DTOs

type PatientModeRequest struct {
	Mode string `json:"mode" validate:"required,oneof=self other"`
}

type PatientDetailsRequest struct {
	Name     string `json:"name" validate:"required,max=150"`
	Age      string `json:"age" validate:"required,max=3"`
	Gender   string `json:"gender" validate:"required,oneof=male female other"`
	IDNumber string `json:"id_number" validate:"required,max=50"`
	Relation string `json:"relation" validate:"omitempty,max=50"`
}

// BookingMethodRequest accepts "department" as an alias of "disease".
type BookingMethodRequest struct {
	Method string `json:"method" validate:"required,oneof=disease department doctor"`
}

type SelectDepartmentRequest struct {
	DepartmentID entity.ID `json:"department_id" validate:"required"`
}

type SelectDoctorRequest struct {
	DoctorID entity.ID `json:"doctor_id" validate:"required"`
}

type SelectDateRequest struct {
	Date string `json:"date" validate:"required,isodate"`
}

// Response DTOs

type CatalogResponse struct {
	Departments []entity.Department `json:"departments,omitempty"`
	Doctors     []entity.Doctor     `json:"doctors,omitempty"`
	Failed      bool                `json:"failed"`
}
