package entity

import (
	"bytes"
	"encoding/json"
)

type Doctor struct {
	ID             ID             `json:"id"`
	FullName       string         `json:"full_name"`
	Specialty      string         `json:"specialty,omitempty"`
	DepartmentRef  ID             `json:"department_id,omitempty"`
	Department     *DepartmentRef `json:"department,omitempty"`
	IsAvailable    *bool          `json:"is_available,omitempty"`
	ExperienceYear int            `json:"experience_years,omitempty"`
}

// DepartmentID resolves the doctor's department. department_id wins over
// the nested department object. ok is false when neither is present.
func (d *Doctor) DepartmentID() (ID, bool) {
	if d == nil {
		return "", false
	}
	if !d.DepartmentRef.IsZero() {
		return d.DepartmentRef, true
	}
	if d.Department != nil && !d.Department.ID.IsZero() {
		return d.Department.ID, true
	}
	return "", false
}

// DepartmentRef is the nested department of a doctor record. Some API
// versions send only the primary key instead of an object.
type DepartmentRef struct {
	ID   ID     `json:"id"`
	Name string `json:"name,omitempty"`
}

func (r *DepartmentRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		type plain DepartmentRef
		var p plain
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		*r = DepartmentRef(p)
		return nil
	}
	return r.ID.UnmarshalJSON(data)
}

// FilterDoctorsByDepartment returns the doctors whose resolved department
// equals departmentID, in their original order.
func FilterDoctorsByDepartment(doctors []Doctor, departmentID ID) []Doctor {
	filtered := make([]Doctor, 0, len(doctors))
	for _, d := range doctors {
		if dept, ok := d.DepartmentID(); ok && dept == departmentID {
			filtered = append(filtered, d)
		}
	}
	return filtered
}

// FindDoctor returns a copy of the doctor with the given id.
func FindDoctor(doctors []Doctor, id ID) (*Doctor, bool) {
	for i := range doctors {
		if doctors[i].ID == id {
			d := doctors[i]
			return &d, true
		}
	}
	return nil, false
}
