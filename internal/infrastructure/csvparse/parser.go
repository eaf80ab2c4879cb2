package csvparse

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kirillkom/salesscope/internal/core/domain"
	"github.com/kirillkom/salesscope/internal/core/ports"
)

const ctxCheckEvery = 1000

// Parser reads header-first CSV text. Blank lines are skipped; every other
// line must have as many fields as the header.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(ctx context.Context, text string) (*ports.CSVTable, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, domain.WrapError(domain.ErrEmptyFile, "parse csv", errors.New("CSV file is empty"))
	}
	if err != nil {
		return nil, parseError(err)
	}

	headers := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		headers[i] = strings.TrimSpace(h)
	}

	table := &ports.CSVTable{Headers: headers}
	for line := 1; ; line++ {
		if line%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, parseError(err)
		}
		if len(record) != len(headers) {
			row, _ := r.FieldPos(0)
			return nil, parseError(fmt.Errorf("line %d: expected %d fields, got %d", row, len(headers), len(record)))
		}

		row := make(map[string]string, len(headers))
		for i, h := range headers {
			row[h] = record[i]
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func parseError(err error) error {
	return domain.WrapError(domain.ErrParse, "parse csv", fmt.Errorf("CSV parsing error: %w", err))
}
