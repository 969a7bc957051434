package export

import "fmt"

// Format names a supported rendering.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// ParseFormat resolves a user supplied format, defaulting to CSV.
func ParseFormat(raw string) (Format, error) {
	switch Format(raw) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", raw)
	}
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/csv; charset=utf-8"
}

// Table is tabular export content. Every row must have len(Headers) cells.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// Renderer turns a table into a document.
type Renderer interface {
	Render(Table) ([]byte, error)
}

// ForFormat returns the renderer for f.
func ForFormat(f Format) Renderer {
	if f == FormatPDF {
		return NewPDFRenderer()
	}
	return NewCSVRenderer()
}

func validate(t Table) error {
	if len(t.Headers) == 0 {
		return fmt.Errorf("table requires at least one header")
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Headers) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(t.Headers))
		}
	}
	return nil
}
