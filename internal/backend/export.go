package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

const maxExportBody = 64 << 20

type ExportKind string

const (
	ExportPDF   ExportKind = "pdf"
	ExportExcel ExportKind = "excel"
)

type exportSpec struct {
	path        string
	filename    string
	contentType string
}

var exportSpecs = map[ExportKind]exportSpec{
	ExportPDF: {
		path:        "/report/pdf",
		filename:    "file-behavior-report.pdf",
		contentType: "application/pdf",
	},
	ExportExcel: {
		path:        "/report/excel",
		filename:    "file-behavior-report.xlsx",
		contentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	},
}

// ParseExportKind accepts "pdf" and "excel".
func ParseExportKind(value string) (ExportKind, error) {
	kind := ExportKind(value)
	if _, ok := exportSpecs[kind]; !ok {
		return "", &ValidationError{Message: fmt.Sprintf("unknown export format %q", value)}
	}
	return kind, nil
}

// Export is a fully received report file.
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Download fetches a report export. The whole body is buffered so a failure
// never leaves a truncated artifact behind.
func (c *Client) Download(ctx context.Context, kind ExportKind) (Export, error) {
	spec, ok := exportSpecs[kind]
	if !ok {
		return Export{}, &ValidationError{Message: fmt.Sprintf("unknown export format %q", kind)}
	}
	if _, allowed := allowedEndpoints[endpoint{http.MethodGet, spec.path}]; !allowed {
		return Export{}, fmt.Errorf("GET %s is not an allowed endpoint", spec.path)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+spec.path, nil)
	if err != nil {
		return Export{}, &DownloadError{Filename: spec.filename, Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Export{}, &DownloadError{Filename: spec.filename, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Export{}, &DownloadError{Filename: spec.filename, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxExportBody+1))
	if err != nil {
		return Export{}, &DownloadError{Filename: spec.filename, StatusCode: resp.StatusCode, Err: err}
	}
	if len(data) > maxExportBody {
		return Export{}, &DownloadError{Filename: spec.filename, StatusCode: resp.StatusCode, Err: fmt.Errorf("export exceeds %d bytes", maxExportBody)}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = spec.contentType
	}

	return Export{Filename: spec.filename, ContentType: contentType, Data: data}, nil
}

// Save writes the export into dir through a temporary file renamed into place.
func (e Export) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+e.Filename+".*.part")
	if err != nil {
		return "", fmt.Errorf("create temp export: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(e.Data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("write export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close export: %w", err)
	}

	target := filepath.Join(dir, e.Filename)
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("move export into place: %w", err)
	}

	return target, nil
}
