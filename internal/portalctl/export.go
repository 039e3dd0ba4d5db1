// Package portalctl implements the portalctl operator commands.
package portalctl

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/cfi/selfservice/internal/core"
	"github.com/cfi/selfservice/internal/model"
)

// Lister returns the filtered request listing in dashboard order.
type Lister interface {
	Export(ctx context.Context, f model.AccessRequestFilter) ([]model.AccessRequest, error)
}

// Export writes the requests matching f to w as CSV or XLSX and returns
// how many were written.
func Export(ctx context.Context, src Lister, f model.AccessRequestFilter, format string, w io.Writer) (int, error) {
	var write func(io.Writer, []model.AccessRequest) error
	switch format {
	case "", core.FormatCSV:
		write = core.WriteCSV
	case core.FormatXLSX:
		write = core.WriteXLSX
	default:
		return 0, fmt.Errorf("unknown format %q (want csv or xlsx)", format)
	}

	items, err := src.Export(ctx, f)
	if err != nil {
		return 0, err
	}
	if err := write(w, items); err != nil {
		return 0, err
	}
	return len(items), nil
}

// ExportFile is Export to path, or to stdout when path is "" or "-".
func ExportFile(ctx context.Context, src Lister, f model.AccessRequestFilter, format, path string) error {
	if path == "" || path == "-" {
		_, err := Export(ctx, src, f, format, os.Stdout)
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	n, err := Export(ctx, src, f, format, file)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Exported %d access requests to %s\n", n, path)
	return nil
}
