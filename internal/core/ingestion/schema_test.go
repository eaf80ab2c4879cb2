package ingestion

import (
	"strings"
	"testing"

	"github.com/kirillkom/salesscope/internal/core/domain"
)

func TestResolveMappingIsCaseInsensitive(t *testing.T) {
	m := ResolveMapping([]string{"Order_Date", "TOTAL", "Qty", "Item"})

	checks := map[Field]string{
		FieldDate:     "Order_Date",
		FieldRevenue:  "TOTAL",
		FieldQuantity: "Qty",
		FieldProduct:  "Item",
	}
	for field, want := range checks {
		got, ok := m.Primary(field)
		if !ok || got != want {
			t.Fatalf("field %s: expected %s, got %q (ok=%v)", field, want, got, ok)
		}
	}
	if _, ok := m.Primary(FieldCategory); ok {
		t.Fatalf("expected no category mapping")
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestResolveMappingHonorsAliasPriority(t *testing.T) {
	m := ResolveMapping([]string{"price", "revenue", "order_date", "date"})
	if got, _ := m.Primary(FieldRevenue); got != "revenue" {
		t.Fatalf("expected revenue to win over price, got %s", got)
	}
	if got, _ := m.Primary(FieldDate); got != "date" {
		t.Fatalf("expected date to win over order_date, got %s", got)
	}
}

// "amount" is an alias of both revenue and quantity, so a file with only "amount"
// uses the same column for both.
func TestResolveMappingAmountFeedsRevenueAndQuantity(t *testing.T) {
	m := ResolveMapping([]string{"date", "amount"})
	rev, _ := m.Primary(FieldRevenue)
	qty, _ := m.Primary(FieldQuantity)
	if rev != "amount" || qty != "amount" {
		t.Fatalf("expected amount for both, got revenue=%s quantity=%s", rev, qty)
	}
}

func TestValidateMissingDate(t *testing.T) {
	err := ResolveMapping([]string{"revenue", "product"}).Validate()
	if !domain.IsKind(err, domain.ErrSchemaValidation) {
		t.Fatalf("expected ErrSchemaValidation, got %v", err)
	}
	if !strings.Contains(err.Error(), "date column") {
		t.Fatalf("expected date column message, got %v", err)
	}
}

func TestValidateMissingRevenue(t *testing.T) {
	err := ResolveMapping([]string{"date", "qty"}).Validate()
	if !domain.IsKind(err, domain.ErrSchemaValidation) {
		t.Fatalf("expected ErrSchemaValidation, got %v", err)
	}
	if !strings.Contains(err.Error(), "revenue column") {
		t.Fatalf("expected revenue column message, got %v", err)
	}
}
