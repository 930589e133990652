package tracing

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// FileExporter writes spans as JSON lines to a local file. It implements
// sdktrace.SpanExporter and exists so tracing works without any collector
// infrastructure.
type FileExporter struct {
	mu   sync.Mutex
	file *os.File
}

// spanRecord is the JSONL shape of one exported span.
type spanRecord struct {
	TraceID  string         `json:"trace_id"`
	SpanID   string         `json:"span_id"`
	ParentID string         `json:"parent_id,omitempty"`
	Name     string         `json:"name"`
	Start    string         `json:"start"`
	End      string         `json:"end"`
	Attrs    map[string]any `json:"attrs,omitempty"`
}

// NewFileExporter opens (or creates) the JSONL file at path, creating parent
// directories as needed. The file is appended to across runs.
func NewFileExporter(path string) (*FileExporter, error) {
	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o750); err != nil {
		return nil, fmt.Errorf("create trace directory: %w", err)
	}
	file, err := os.OpenFile(cleanPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600) //nolint:gosec // G304: path is cleaned above
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	return &FileExporter{file: file}, nil
}

// ExportSpans writes one JSON line per span.
func (e *FileExporter) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.file == nil {
		return nil
	}
	for _, span := range spans {
		record := spanRecord{
			TraceID: span.SpanContext().TraceID().String(),
			SpanID:  span.SpanContext().SpanID().String(),
			Name:    span.Name(),
			Start:   span.StartTime().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
			End:     span.EndTime().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		}
		if span.Parent().HasSpanID() {
			record.ParentID = span.Parent().SpanID().String()
		}
		if attrs := span.Attributes(); len(attrs) > 0 {
			record.Attrs = make(map[string]any, len(attrs))
			for _, attr := range attrs {
				record.Attrs[string(attr.Key)] = attr.Value.AsInterface()
			}
		}

		line, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal span: %w", err)
		}
		if _, err := e.file.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("write span: %w", err)
		}
	}
	return nil
}

// Shutdown closes the file. Further exports are no-ops.
func (e *FileExporter) Shutdown(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.file == nil {
		return nil
	}
	err := e.file.Close()
	e.file = nil
	return err
}
