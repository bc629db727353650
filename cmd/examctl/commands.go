package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/noah-isme/exam-assign-api/internal/models"
	"github.com/noah-isme/exam-assign-api/internal/service"
	appErrors "github.com/noah-isme/exam-assign-api/pkg/errors"
)

type poolSetter interface {
	SetPools(ctx context.Context, req models.SetupRequest) (models.CodePools, error)
}

type csvWriter interface {
	WriteCSV(w io.Writer, exportType service.ExportType) error
}

type bulkCompleter interface {
	BulkMarkCompleted(ctx context.Context) (*models.BulkResult, error)
}

func setupRequest() models.SetupRequest {
	return models.SetupRequest{
		SubjectCodes:      setupFlags.subjectCodes,
		Shifts:            setupFlags.shifts,
		PacketCodes:       setupFlags.packetCodes,
		TotalExamsOptions: setupFlags.totalExams,
	}
}

func runSetup(ctx context.Context, pools poolSetter, req models.SetupRequest, out io.Writer) error {
	saved, err := pools.SetPools(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "Setup saved successfully!")
	fmt.Fprintf(out, "  subject codes: %d\n  shifts: %d\n  packet codes: %d\n  exam counts: %v\n",
		len(saved.SubjectCodes), len(saved.Shifts), len(saved.PacketCodes), saved.TotalExamsOptions)
	return nil
}

func runExport(_ context.Context, exports csvWriter, rawType, output string, out io.Writer) error {
	exportType, err := service.ParseExportType(rawType)
	if err != nil {
		return err
	}

	if output == "-" {
		return exports.WriteCSV(out, exportType)
	}
	if output == "" {
		output = fmt.Sprintf("%s_%s.csv", exportType, time.Now().UTC().Format(models.DateLayout))
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create %s: %w", output, err)
	}
	if err := exports.WriteCSV(f, exportType); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s exported successfully! (%s)\n", exportType, output)
	return nil
}

func runCompleteAll(ctx context.Context, assignments bulkCompleter, out io.Writer) error {
	result, err := assignments.BulkMarkCompleted(ctx)
	if err != nil {
		if appErr := appErrors.FromError(err); appErr.Code == appErrors.ErrNoOp.Code {
			fmt.Fprintln(out, appErr.Message)
			return nil
		}
		return err
	}
	fmt.Fprintf(out, "%d assignment(s) marked as completed!\n", result.Succeeded)
	for _, failure := range result.Failed {
		fmt.Fprintf(out, "  failed %s: %s\n", failure.ID, failure.Reason)
	}
	if result.FailedCount > 0 {
		return fmt.Errorf("%d assignment(s) could not be completed", result.FailedCount)
	}
	return nil
}
