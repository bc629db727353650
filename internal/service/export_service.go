package service

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/exam-assign-api/internal/models"
	appErrors "github.com/noah-isme/exam-assign-api/pkg/errors"
	"github.com/noah-isme/exam-assign-api/pkg/export"
)

// ExportType names a downloadable dataset.
type ExportType string

const (
	ExportTeachers    ExportType = "teachers"
	ExportAssignments ExportType = "assignments"
	ExportRecords     ExportType = "records"
)

// ExportFormat names a rendering.
type ExportFormat string

const (
	FormatCSV ExportFormat = "csv"
	FormatPDF ExportFormat = "pdf"
)

// ExportFile is a rendered dataset ready to be served.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
	Write(w io.Writer, data export.Dataset) error
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	PDFEnabled bool
}

// ExportService builds the teachers, assignments and records datasets from the snapshot.
type ExportService struct {
	store  *SnapshotStore
	csv    csvRenderer
	pdf    pdfRenderer
	cfg    ExportConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(store *SnapshotStore, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{store: store, csv: csv, pdf: pdf, cfg: cfg, logger: logger, now: time.Now}
}

// ParseExportType validates a dataset name.
func ParseExportType(raw string) (ExportType, error) {
	switch t := ExportType(raw); t {
	case ExportTeachers, ExportAssignments, ExportRecords:
		return t, nil
	}
	return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown export type %q", raw))
}

// Render produces the file for a dataset in the requested format.
func (s *ExportService) Render(_ context.Context, exportType ExportType, format ExportFormat) (*ExportFile, error) {
	if format == "" {
		format = FormatCSV
	}
	dataset := s.Dataset(exportType)
	date := s.now().UTC().Format(models.DateLayout)

	switch format {
	case FormatCSV:
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportFile{Filename: fmt.Sprintf("%s_%s.csv", exportType, date), ContentType: "text/csv; charset=utf-8", Data: data}, nil
	case FormatPDF:
		if !s.cfg.PDFEnabled || exportType == ExportTeachers {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("pdf export is not available for %s", exportType))
		}
		data, err := s.pdf.Render(dataset, string(exportType))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportFile{Filename: fmt.Sprintf("%s_%s.pdf", exportType, date), ContentType: "application/pdf", Data: data}, nil
	}
	return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
}

// WriteCSV streams a dataset as CSV.
func (s *ExportService) WriteCSV(w io.Writer, exportType ExportType) error {
	return s.csv.Write(w, s.Dataset(exportType))
}

// Dataset builds the rows of one export type from the current snapshot.
func (s *ExportService) Dataset(exportType ExportType) export.Dataset {
	snapshot := s.store.Current()
	switch exportType {
	case ExportTeachers:
		return teachersDataset(snapshot.Teachers)
	case ExportAssignments:
		return assignmentsDataset(snapshot.Assignments, snapshot.Teachers)
	default:
		return recordsDataset(snapshot.Assignments, snapshot.Teachers)
	}
}

func teachersDataset(teachers []models.Teacher) export.Dataset {
	dataset := export.Dataset{Headers: []string{"ID", "Name", "Email", "Phone"}}
	for _, teacher := range teachers {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"ID":    teacher.ID,
			"Name":  teacher.Name,
			"Email": teacher.Email,
			"Phone": teacher.Phone,
		})
	}
	return dataset
}

func assignmentsDataset(assignments []models.Assignment, teachers []models.Teacher) export.Dataset {
	names := teacherNames(teachers)
	dataset := export.Dataset{Headers: []string{"ID", "Teacher", "Subject", "Shift", "Packet", "Exams", "DueDate", "Status"}}
	for _, assignment := range assignments {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"ID":      assignment.ID,
			"Teacher": names(assignment.TeacherID),
			"Subject": assignment.SubjectCode,
			"Shift":   assignment.Shift,
			"Packet":  assignment.PacketCode,
			"Exams":   strconv.Itoa(assignment.TotalExams),
			"DueDate": assignment.DueDate,
			"Status":  string(assignment.Status),
		})
	}
	return dataset
}

// recordsDataset sums total exams per (year, teacher, subject code) in first-seen order.
func recordsDataset(assignments []models.Assignment, teachers []models.Teacher) export.Dataset {
	type recordKey struct{ year, teacherID, subject string }
	names := teacherNames(teachers)

	totals := map[recordKey]int{}
	var order []recordKey
	for _, assignment := range assignments {
		key := recordKey{year: assignment.Year, teacherID: assignment.TeacherID, subject: assignment.SubjectCode}
		if _, seen := totals[key]; !seen {
			order = append(order, key)
		}
		totals[key] += assignment.TotalExams
	}

	dataset := export.Dataset{Headers: []string{"Year", "Teacher", "Subject", "TotalExams"}}
	for _, key := range order {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Year":       key.year,
			"Teacher":    names(key.teacherID),
			"Subject":    key.subject,
			"TotalExams": strconv.Itoa(totals[key]),
		})
	}
	return dataset
}

func teacherNames(teachers []models.Teacher) func(id string) string {
	byID := make(map[string]string, len(teachers))
	for _, teacher := range teachers {
		byID[teacher.ID] = teacher.Name
	}
	return func(id string) string {
		if name, ok := byID[id]; ok {
			return name
		}
		return models.UnknownTeacher
	}
}
