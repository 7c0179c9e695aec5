package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/zatekoja/serviceportal/internal/domain/repositories"
)

// ExportColumns is the fixed CSV header of a request export
var ExportColumns = []string{
	"id", "service_id", "customer_name", "customer_email", "customer_phone",
	"address", "description", "urgency", "created_at",
}

// ExportService writes service requests out for offline processing.
type ExportService struct {
	requests repositories.ServiceRequestRepository
}

// NewExportService creates a new export service.
func NewExportService(requests repositories.ServiceRequestRepository) *ExportService {
	return &ExportService{requests: requests}
}

// WriteCSV writes every service request, ordered by id, and returns the row count
func (s *ExportService) WriteCSV(ctx context.Context, w io.Writer) (int, error) {
	requests, err := s.requests.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(ExportColumns); err != nil {
		return 0, fmt.Errorf("writing header: %w", err)
	}

	for _, r := range requests {
		createdAt := ""
		if !r.CreatedAt.IsZero() {
			createdAt = r.CreatedAt.UTC().Format(time.RFC3339)
		}
		record := []string{
			strconv.FormatInt(r.ID, 10),
			strconv.FormatInt(r.ServiceID, 10),
			r.CustomerName,
			r.CustomerEmail,
			r.CustomerPhone,
			r.Address,
			r.Description,
			r.Urgency,
			createdAt,
		}
		if err := cw.Write(record); err != nil {
			return 0, fmt.Errorf("writing request %d: %w", r.ID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, err
	}
	return len(requests), nil
}
