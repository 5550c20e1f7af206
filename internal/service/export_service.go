package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/lumostories/telemetry-api/internal/dto"
	"github.com/lumostories/telemetry-api/internal/models"
	"github.com/lumostories/telemetry-api/internal/observability"
)

// Export targets.
const (
	ExportTargetCSV   = "csv"
	ExportTargetSheet = "sheet"
)

// exportHeader is the fixed column order for both export targets.
var exportHeader = []string{
	"id", "timestamp", "type", "action", "result", "actor_id", "client_ip",
	"param1", "param2", "param3", "param4", "param5", "metadata",
}

// SheetWriter pushes a row batch into a named remote worksheet.
type SheetWriter interface {
	Write(ctx context.Context, title string, header []string, rows [][]string) (string, error)
}

// ExportResult is the outcome of an export run. Data is only populated for
// the CSV target.
type ExportResult struct {
	Response dto.ExportResponse
	Data     []byte
}

// ExportService materializes a bounded, filtered result set. It reads
// through the query engine — never a second query path — so exports always
// match what the explorer shows for the same filter.
type ExportService interface {
	Export(ctx context.Context, filter QueryFilter, target string, actor Actor) (ExportResult, error)
}

type exportService struct {
	query   ActivityQueryService
	sheets  SheetWriter
	log     LogService
	maxRows int
	logger  zerolog.Logger
	now     func() time.Time
}

// NewExportService constructs the export pipeline. sheets may be nil when
// no spreadsheet target is configured; sheet exports then fail with a
// validation error.
func NewExportService(query ActivityQueryService, sheets SheetWriter, log LogService, maxRows int, logger zerolog.Logger) ExportService {
	if maxRows <= 0 {
		maxRows = 100000
	}
	return &exportService{
		query:   query,
		sheets:  sheets,
		log:     log,
		maxRows: maxRows,
		logger:  logger.With().Str("component", "export_service").Logger(),
		now:     time.Now,
	}
}

// Export gathers up to the row cap and writes to the chosen target. When
// the true result set exceeds the cap the result carries truncated=true;
// callers must surface that rather than presenting a partial view as
// complete.
func (s *exportService) Export(ctx context.Context, filter QueryFilter, target string, actor Actor) (ExportResult, error) {
	if target != ExportTargetCSV && target != ExportTargetSheet {
		return ExportResult{}, validationErrorf("unsupported export target %q", target)
	}
	if target == ExportTargetSheet && s.sheets == nil {
		return ExportResult{}, validationErrorf("no spreadsheet destination is configured")
	}

	tracer := otel.Tracer("github.com/lumostories/telemetry-api/internal/service/export")
	ctx, span := tracer.Start(ctx, "activity.export")
	span.SetAttributes(attribute.String("export.target", target))
	defer span.End()

	entries, truncated, err := s.query.Gather(ctx, filter, s.maxRows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "gather_failed")
		return ExportResult{}, err
	}

	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, entryRow(entry))
	}

	// Destination names carry the export timestamp so repeated exports
	// never silently overwrite unrelated data.
	stamp := s.now().UTC().Format("20060102_1504")
	name := fmt.Sprintf("activity_logs_%s", stamp)

	result := ExportResult{Response: dto.ExportResponse{
		Target:    target,
		RowCount:  len(rows),
		Truncated: truncated,
	}}

	switch target {
	case ExportTargetCSV:
		data, err := rowsToCSV(rows)
		if err != nil {
			span.RecordError(err)
			return ExportResult{}, err
		}
		result.Data = data
		result.Response.Filename = name + ".csv"
	case ExportTargetSheet:
		url, err := s.sheets.Write(ctx, name, exportHeader, rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "sheet_write_failed")
			return ExportResult{}, err
		}
		result.Response.SheetURL = url
	}

	observability.ExportRows().WithLabelValues(target).Add(float64(len(rows)))
	span.SetAttributes(
		attribute.Int("export.rows", len(rows)),
		attribute.Bool("export.truncated", truncated),
	)

	s.recordExport(ctx, target, actor, len(rows), truncated)

	return result, nil
}

func (s *exportService) recordExport(ctx context.Context, target string, actor Actor, rowCount int, truncated bool) {
	_, err := s.log.Record(ctx, RawEvent{
		Type:    string(models.EventTypeAdmin),
		Action:  "export " + target,
		Result:  string(models.ResultSuccess),
		ActorID: actor.ID,
		Params:  []string{fmt.Sprintf("%d", rowCount), fmt.Sprintf("%t", truncated)},
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to record export event")
	}
}

func rowsToCSV(rows [][]string) ([]byte, error) {
	var buffer bytes.Buffer
	writer := csv.NewWriter(&buffer)

	if err := writer.Write(exportHeader); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}

	return buffer.Bytes(), nil
}

func entryRow(entry models.LogEntry) []string {
	metadata := ""
	if len(entry.Metadata) > 0 {
		if payload, err := json.Marshal(entry.Metadata); err == nil {
			metadata = string(payload)
		}
	}

	params := entry.Params()
	row := make([]string, 0, len(exportHeader))
	row = append(row,
		fmt.Sprintf("%d", entry.ID),
		entry.TimestampISO,
		entry.Type,
		entry.Action,
		entry.Result,
		derefString(entry.ActorID),
		derefString(entry.ClientIP),
	)
	for _, param := range params {
		row = append(row, derefString(param))
	}
	return append(row, metadata)
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
