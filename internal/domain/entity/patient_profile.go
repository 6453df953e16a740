package entity

// PatientDetails describes the patient when booking for someone else.
type PatientDetails struct {
	Name     string `json:"name" validate:"required"`
	Age      string `json:"age" validate:"required"`
	Gender   string `json:"gender" validate:"required"`
	IDNumber string `json:"id_number" validate:"required"`
	Relation string `json:"relation,omitempty"`
}

// Gender constants
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)
