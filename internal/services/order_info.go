package services

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/storefrontapp/storefront/internal/db"
	"github.com/storefrontapp/storefront/internal/email"
)

// ShopDetails identifies the storefront in customer-facing messages.
type ShopDetails struct {
	Name string
	URL  string
}

// BuildOrderInfo builds a consistent OrderInfo payload for email templates.
func BuildOrderInfo(shop ShopDetails, order *db.Order) *email.OrderInfo {
	if order == nil {
		return &email.OrderInfo{ShopName: shop.Name, ShopURL: shop.URL}
	}

	items := make([]email.OrderItem, 0, len(order.Items))
	subtotal := decimal.Zero
	for _, item := range order.Items {
		lineTotal := item.LineTotal()
		subtotal = subtotal.Add(lineTotal)
		items = append(items, email.OrderItem{
			Name:       item.Name,
			Quantity:   item.Quantity,
			UnitPrice:  formatMoney(item.UnitPrice, order.Currency),
			TotalPrice: formatMoney(lineTotal, order.Currency),
		})
	}

	return &email.OrderInfo{
		OrderNumber:     shortOrderNumber(order),
		CustomerName:    strings.TrimSpace(order.CustomerInfo.Name),
		CustomerEmail:   strings.TrimSpace(order.CustomerInfo.Email),
		ShopName:        shop.Name,
		ShopURL:         shop.URL,
		OrderDate:       order.CreatedAt.Format("January 2, 2006"),
		ShippingAddress: formatAddress(order.CustomerInfo),
		Items:           items,
		Subtotal:        formatMoney(subtotal, order.Currency),
		ProcessingFee:   formatMoney(order.ProcessingFee, order.Currency),
		Total:           formatMoney(order.TotalAmount, order.Currency),
	}
}

func formatMoney(amount decimal.Decimal, currency string) string {
	return strings.TrimSpace(amount.StringFixed(2) + " " + currency)
}

// shortOrderNumber is the first block of the order id, upper-cased for readability.
func shortOrderNumber(order *db.Order) string {
	id := order.ID.String()
	if i := strings.IndexByte(id, '-'); i > 0 {
		id = id[:i]
	}
	return strings.ToUpper(id)
}

func formatAddress(info db.CustomerInfo) string {
	lines := []string{}
	if address := strings.TrimSpace(info.Address); address != "" {
		lines = append(lines, address)
	}

	cityStateZip := strings.TrimSpace(strings.TrimSpace(info.City) + ", " + strings.TrimSpace(info.State) + " " + strings.TrimSpace(info.Zip))
	cityStateZip = strings.Trim(cityStateZip, ", ")
	if cityStateZip != "" {
		lines = append(lines, cityStateZip)
	}

	return strings.Join(lines, "\n")
}
