package ingestion

import (
	"errors"
	"strings"

	"github.com/kirillkom/salesscope/internal/core/domain"
)

// Field is a canonical sales attribute that CSV headers are mapped onto.
type Field string

const (
	FieldDate     Field = "date"
	FieldRevenue  Field = "revenue"
	FieldQuantity Field = "quantity"
	FieldProduct  Field = "product"
	FieldCategory Field = "category"
)

// Aliases lists accepted header names per field in priority order. "amount" feeds
// both revenue and quantity.
var Aliases = map[Field][]string{
	FieldDate:     {"date", "transaction_date", "order_date"},
	FieldRevenue:  {"revenue", "amount", "total", "price"},
	FieldQuantity: {"quantity", "qty", "amount"},
	FieldProduct:  {"product", "product_name", "item"},
	FieldCategory: {"category", "product_category"},
}

// Mapping holds, per field, the header names, as written in the file, that matched an alias, in alias priority order.
type Mapping map[Field][]string

// ResolveMapping matches headers against the alias table case-insensitively.
// When two headers differ only in case the later one is used.
func ResolveMapping(headers []string) Mapping {
	byLower := make(map[string]string, len(headers))
	for _, h := range headers {
		byLower[strings.ToLower(h)] = h
	}

	m := make(Mapping, len(Aliases))
	for field, aliases := range Aliases {
		for _, alias := range aliases {
			if header, ok := byLower[alias]; ok {
				m[field] = append(m[field], header)
			}
		}
	}
	return m
}

// Primary returns the highest-priority header mapped to field.
func (m Mapping) Primary(field Field) (string, bool) {
	headers := m[field]
	if len(headers) == 0 {
		return "", false
	}
	return headers[0], true
}

// Validate requires a date alias and a revenue alias.
func (m Mapping) Validate() error {
	if _, ok := m.Primary(FieldDate); !ok {
		return domain.WrapError(domain.ErrSchemaValidation, "validate schema",
			errors.New("CSV must contain a date column (date, transaction_date, or order_date)"))
	}
	if _, ok := m.Primary(FieldRevenue); !ok {
		return domain.WrapError(domain.ErrSchemaValidation, "validate schema",
			errors.New("CSV must contain a revenue column (revenue, amount, total, or price)"))
	}
	return nil
}
