// Package invoice renders order invoices as A4 PDF documents.
package invoice

import (
	"bytes"
	"fmt"
	"time"

	"github.com/fashalt/fashaltbackend/config"
	"github.com/fashalt/fashaltbackend/models"
	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

const dateLayout = "02 Jan 2006"

type Generator struct {
	store    config.StoreIdentity
	currency string
}

func NewGenerator(store config.StoreIdentity, currency string) *Generator {
	if currency == "" {
		currency = "INR"
	}
	return &Generator{store: store, currency: currency}
}

// Render builds the invoice for a committed order.
func (g *Generator) Render(order *models.Order, user *models.User) ([]byte, error) {
	if order == nil || user == nil {
		return nil, fmt.Errorf("invoice: order and user are required")
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Invoice "+order.OrderID, true)
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 22)
	pdf.CellFormat(0, 12, "INVOICE", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, line := range []string{g.store.Name, g.store.Address, g.store.Contact} {
		if line != "" {
			pdf.CellFormat(0, 5, tr(line), "", 1, "C", false, 0, "")
		}
	}
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 11)
	line := func(s string) { pdf.CellFormat(0, 6, tr(s), "", 1, "L", false, 0, "") }
	heading := func(s string) {
		pdf.SetFont("Helvetica", "BU", 11)
		line(s)
		pdf.SetFont("Helvetica", "", 11)
	}

	line("Order ID: " + order.OrderID)
	line("Date: " + orDash(order.CreatedAt))
	line("Estimated Delivery: " + orDash(order.EstimatedDelivery))
	line("Payment: " + string(order.PaymentMethod) + " (" + string(order.PaymentStatus) + ")")
	pdf.Ln(4)

	name := order.CustomerName
	if name == "" {
		name = user.Name
	}
	line("Customer: " + name)
	if phone := order.CustomerPhoneNumber; phone != "" {
		line("Phone: " + phone)
	}
	line("Email: " + user.Email)
	pdf.Ln(4)

	addr := order.ShippingAddress
	heading("Shipping Address:")
	line(addr.Street)
	line(addr.City + ", " + addr.State)
	line(addr.ZipCode + ", " + addr.Country)
	pdf.Ln(4)

	heading("Items:")
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(235, 235, 235)
	widths := []float64{90, 20, 35, 35}
	for i, h := range []string{"Item", "Qty", "Unit price", "Amount"} {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(widths[i], 7, h, "1", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, it := range order.Items {
		label := it.Name
		if it.Size != "" {
			label += " (" + string(it.Size) + ")"
		}
		unit := decimal.NewFromFloat(it.Price)
		amount := unit.Mul(decimal.NewFromInt(int64(it.Quantity)))
		pdf.CellFormat(widths[0], 7, tr(label), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 7, fmt.Sprint(it.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 7, g.money(unit), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 7, g.money(amount), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.Ln(4)

	total := func(label string, v decimal.Decimal, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 11)
		pdf.CellFormat(145, 6, label, "", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, g.money(v), "", 1, "R", false, 0, "")
	}
	total("Subtotal:", decimal.NewFromFloat(order.Subtotal), false)
	total("Discounts:", decimal.NewFromFloat(order.Discounts).Neg(), false)
	total("Tax:", decimal.NewFromFloat(order.Tax), false)
	total("Shipping:", decimal.NewFromFloat(order.ShippingCharge), false)
	total("Total:", decimal.NewFromFloat(order.Total), true)
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "I", 10)
	pdf.CellFormat(0, 6, "Thank you for your purchase!", "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("invoice: render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *Generator) money(v decimal.Decimal) string {
	return g.currency + " " + v.StringFixed(2)
}

func orDash(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(dateLayout)
}
