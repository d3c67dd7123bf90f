package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fitzone/booking-api/internal/models"
	appErrors "github.com/fitzone/booking-api/pkg/errors"
	"github.com/fitzone/booking-api/pkg/export"
)

// ExportFile is a rendered export ready for download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders class rosters and payment receipts for download.
type ExportService struct {
	classes  classReader
	members  memberRoster
	payments *PaymentService
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	enabled  bool
	logger   *zap.Logger
}

// NewExportService constructs ExportService.
func NewExportService(classes classReader, members memberRoster, payments *PaymentService, enabled bool, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		classes:  classes,
		members:  members,
		payments: payments,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		enabled:  enabled,
		logger:   logger,
	}
}

// Roster renders the active attendee list of a class as CSV or PDF.
func (s *ExportService) Roster(ctx context.Context, classID, format string) (*ExportFile, error) {
	if !s.enabled {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "exports are disabled")
	}
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	attendees, err := s.members.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendees")
	}

	dataset := rosterDataset(attendees)
	base := fmt.Sprintf("roster-%s-%s", slugify(class.Name), time.Now().UTC().Format("20060102"))

	switch strings.ToLower(format) {
	case "", "csv":
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
		}
		return &ExportFile{Filename: base + ".csv", ContentType: "text/csv", Data: data}, nil
	case "pdf":
		data, err := s.pdf.RenderTable(dataset, class.Name+" roster")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
		}
		return &ExportFile{Filename: base + ".pdf", ContentType: "application/pdf", Data: data}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

// Receipt renders a settled payment as a PDF receipt.
func (s *ExportService) Receipt(ctx context.Context, userID, orderID string) (*ExportFile, error) {
	if !s.enabled {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "exports are disabled")
	}
	receipt, err := s.payments.Receipt(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	data, err := s.pdf.RenderReceipt(*receipt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render receipt")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("receipt-%s.pdf", orderID),
		ContentType: "application/pdf",
		Data:        data,
	}, nil
}

func rosterDataset(attendees []models.AttendeeDetail) export.Dataset {
	headers := []string{"Full Name", "Email", "Phone", "Joined At"}
	rows := make([]map[string]string, 0, len(attendees))
	for _, a := range attendees {
		rows = append(rows, map[string]string{
			"Full Name": a.FullName,
			"Email":     a.Email,
			"Phone":     a.Phone,
			"Joined At": a.JoinedAt.Format("2006-01-02 15:04"),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

func slugify(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		case r == ' ', r == '-', r == '_':
			return '-'
		default:
			return -1
		}
	}, name)
	return strings.Trim(cleaned, "-")
}
