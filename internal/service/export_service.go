package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/emeraldmc/appeals-api/internal/models"
	appErrors "github.com/emeraldmc/appeals-api/pkg/errors"
	"github.com/emeraldmc/appeals-api/pkg/export"
)

type appealLister interface {
	List(ctx context.Context, filter models.AppealFilter) ([]models.Appeal, error)
}

// ExportService renders appeal listings into downloadable documents for
// the admin surface.
type ExportService struct {
	appeals appealLister
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	logger  *zap.Logger
}

// NewExportService constructs the export service.
func NewExportService(appeals appealLister, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		appeals: appeals,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		logger:  logger,
	}
}

// ExportResult carries rendered bytes plus HTTP download metadata.
type ExportResult struct {
	Content     []byte
	ContentType string
	Filename    string
}

// Export renders the filtered appeal list in the requested format
// ("csv" by default, "pdf" as an alternative).
func (s *ExportService) Export(ctx context.Context, filter models.AppealFilter, format string) (*ExportResult, error) {
	if format == "" {
		format = "csv"
	}
	format = strings.ToLower(format)
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Validation(map[string]string{"format": "format must be csv or pdf"})
	}

	appeals, err := s.appeals.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	dataset := appealDataset(appeals)

	switch format {
	case "pdf":
		content, err := s.pdf.Render(dataset, "Ban Appeals")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{Content: content, ContentType: "application/pdf", Filename: "ban-appeals.pdf"}, nil
	default:
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{Content: content, ContentType: "text/csv", Filename: "ban-appeals.csv"}, nil
	}
}

func appealDataset(appeals []models.Appeal) export.Dataset {
	headers := []string{"ID", "Username", "Discord", "Email", "Ban Reason", "Status", "Handled By", "Created At"}
	rows := make([]map[string]string, 0, len(appeals))
	for _, appeal := range appeals {
		handledBy := ""
		if appeal.HandledBy != nil {
			handledBy = *appeal.HandledBy
		}
		rows = append(rows, map[string]string{
			"ID":         appeal.ID,
			"Username":   appeal.Username,
			"Discord":    appeal.DiscordTag,
			"Email":      appeal.Email,
			"Ban Reason": string(appeal.BanReason),
			"Status":     string(appeal.Status),
			"Handled By": handledBy,
			"Created At": appeal.CreatedAt.UTC().Format("2006-01-02 15:04"),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
