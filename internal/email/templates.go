package email

import (
	"fmt"
	"strings"

	"github.com/example/storefront/internal/payment"
)

// ReceiptItem is one purchased line for receipt rendering.
type ReceiptItem struct {
	ProductID string
	Name      string
	Variant   string
	Quantity  int
	Price     string
}

func formatMinorUnits(minor int64) string {
	return "$" + payment.FromMinorUnits(minor).StringFixed(2)
}

// BuildPaymentReceiptBody builds the HTML body for a payment receipt email.
func BuildPaymentReceiptBody(intentID string, totalMinor int64, items []ReceiptItem) string {
	var itemsHTML strings.Builder
	for _, item := range items {
		name := item.Name
		if name == "" {
			name = item.ProductID
		}
		if item.Variant != "" {
			name = fmt.Sprintf("%s (%s)", name, item.Variant)
		}
		itemsHTML.WriteString(fmt.Sprintf(
			`<tr>
				<td style="padding: 12px; border-bottom: 1px solid #eee;">%s</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: center;">%d</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">%s</td>
			</tr>`,
			name, item.Quantity, item.Price,
		))
	}

	return fmt.Sprintf(
		`<html>
<body style="font-family: sans-serif; color: #1f2937; max-width: 600px; margin: 0 auto;">
	<h2>Thank you for your order!</h2>
	<p>Your payment has been received. Payment reference: <strong>%s</strong></p>
	<table style="width: 100%%; border-collapse: collapse; margin: 16px 0;">
		<thead>
			<tr style="background: #f9fafb;">
				<th style="padding: 12px; text-align: left;">Item</th>
				<th style="padding: 12px; text-align: center;">Qty</th>
				<th style="padding: 12px; text-align: right;">Price</th>
			</tr>
		</thead>
		<tbody>%s</tbody>
	</table>
	<p style="font-size: 18px; text-align: right;"><strong>Total charged: %s</strong></p>
	<p style="color: #6b7280; font-size: 12px;">Your payment was processed securely. This receipt confirms the charge only; shipping updates follow separately.</p>
</body>
</html>`,
		shortReference(intentID), itemsHTML.String(), formatMinorUnits(totalMinor),
	)
}

// shortReference trims an intent id to the tail shown to customers.
func shortReference(intentID string) string {
	if len(intentID) > 8 {
		return intentID[len(intentID)-8:]
	}
	return intentID
}
