package entities

// Service is a category of work offered through the portal (e.g. Plumbing).
type Service struct {
	ID          int64  `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description,omitempty" db:"description"`
}

// ServiceSummary is the catalog shape served to the registration form's service picker.
type ServiceSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Summary returns the id/name projection of the service
func (s *Service) Summary() ServiceSummary {
	return ServiceSummary{ID: s.ID, Name: s.Name}
}
