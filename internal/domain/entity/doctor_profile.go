package entity

// DoctorProfile is the profile block of the doctor dashboard.
type DoctorProfile struct {
	ID             ID     `json:"id,omitempty"`
	FullName       string `json:"full_name,omitempty"`
	DoctorName     string `json:"doctor_name,omitempty"`
	Specialty      string `json:"specialty,omitempty"`
	DepartmentName string `json:"department_name,omitempty"`
	IsAvailable    *bool  `json:"is_available,omitempty"`
}

// DisplayName returns "Dr. <name>" or "Dr. —" when the profile has no name.
func (p *DoctorProfile) DisplayName() string {
	if p == nil {
		return "Dr. —"
	}
	if p.FullName != "" {
		return "Dr. " + p.FullName
	}
	if p.DoctorName != "" {
		return "Dr. " + p.DoctorName
	}
	return "Dr. —"
}

// SpecialtyText prefers the specialty over the department name.
func (p *DoctorProfile) SpecialtyText() string {
	if p == nil {
		return ""
	}
	if p.Specialty != "" {
		return p.Specialty
	}
	return p.DepartmentName
}
