package entity

// Department is read-only catalog data owned by the hospital API.
type Department struct {
	ID          ID     `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}
