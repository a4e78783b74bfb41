package catalog

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/storefrontapp/storefront/internal/models"
)

// MismatchError reports a client-declared total that disagrees with the server total.
type MismatchError struct {
	Expected decimal.Decimal
	Received decimal.Decimal
	Currency string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("Total amount mismatch. Expected: %s %s, Received: %s %s",
		e.Expected.StringFixed(2), e.Currency, e.Received.StringFixed(2), e.Currency)
}

type Pricer struct {
	currency  string
	fee       decimal.Decimal
	tolerance decimal.Decimal
}

func NewPricer(currency string, fee, tolerance decimal.Decimal) *Pricer {
	return &Pricer{
		currency:  currency,
		fee:       fee,
		tolerance: tolerance.Abs(),
	}
}

func (p *Pricer) Currency() string {
	return p.currency
}

func (p *Pricer) ProcessingFee() decimal.Decimal {
	return p.fee
}

func (p *Pricer) ComputeSubtotal(items []models.OrderItem) decimal.Decimal {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	return subtotal
}

// ComputeTotal is the subtotal plus the processing fee, rounded to cents.
func (p *Pricer) ComputeTotal(items []models.OrderItem) decimal.Decimal {
	return p.ComputeSubtotal(items).Add(p.fee).Round(2)
}

// CheckDeclared returns the server total when the declared total is within tolerance.
func (p *Pricer) CheckDeclared(items []models.OrderItem, declared decimal.Decimal) (decimal.Decimal, error) {
	total := p.ComputeTotal(items)
	if total.Sub(declared).Abs().GreaterThan(p.tolerance) {
		return total, &MismatchError{Expected: total, Received: declared, Currency: p.currency}
	}
	return total, nil
}
