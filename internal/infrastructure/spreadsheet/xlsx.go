// Package spreadsheet converts uploaded workbooks into the CSV text the ingestion pipeline reads.
package spreadsheet

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/salesscope/internal/core/domain"
)

type XLSXConverter struct{}

func NewXLSXConverter() *XLSXConverter {
	return &XLSXConverter{}
}

// ToCSV renders the first worksheet as CSV. Cells keep their displayed (formatted) value,
// short rows are padded to the header width and fully empty rows are dropped.
func (c *XLSXConverter) ToCSV(ctx context.Context, r io.Reader) (string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return "", domain.WrapError(domain.ErrParse, "open workbook", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", domain.WrapError(domain.ErrEmptyFile, "open workbook", errors.New("workbook has no sheets"))
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		return "", domain.WrapError(domain.ErrParse, "read worksheet", err)
	}
	defer func() { _ = rows.Close() }()

	var (
		buf   strings.Builder
		w     = csv.NewWriter(&buf)
		width = -1
		line  int
	)
	for rows.Next() {
		line++
		if line%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return "", err
			}
		}

		cols, err := rows.Columns()
		if err != nil {
			return "", domain.WrapError(domain.ErrParse, "read worksheet", fmt.Errorf("row %d: %w", line, err))
		}
		if isBlank(cols) {
			continue
		}
		if width < 0 {
			width = len(cols)
		}
		for len(cols) < width {
			cols = append(cols, "")
		}
		if err := w.Write(cols); err != nil {
			return "", fmt.Errorf("write csv row %d: %w", line, err)
		}
	}
	if err := rows.Error(); err != nil {
		return "", domain.WrapError(domain.ErrParse, "read worksheet", err)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}
	if width < 0 {
		return "", domain.WrapError(domain.ErrEmptyFile, "read worksheet", errors.New("worksheet is empty"))
	}
	return buf.String(), nil
}

func isBlank(cols []string) bool {
	for _, c := range cols {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
