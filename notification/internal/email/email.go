// Package email renders the notification emails.
package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/Alturino/storefront/internal/money"
	"github.com/Alturino/storefront/order/pkg/event"
)

//go:embed templates/*.html
var files embed.FS

var templates = template.Must(template.ParseFS(files, "templates/*.html"))

const dateLayout = "2 January 2006"

type Rendered struct {
	Subject string
	Html    string
	Text    string
}

type itemView struct {
	Name      string
	Quantity  int32
	UnitPrice string
	Subtotal  string
}

type orderCreatedView struct {
	OrderID int64
	Date    string
	Items   []itemView
	Total   string
}

type orderPaidView struct {
	OrderID          int64
	Date             string
	Total            string
	PaymentReference string
}

func OrderCreated(e event.OrderCreated, currency string) (Rendered, error) {
	view := orderCreatedView{
		OrderID: e.OrderID,
		Date:    date(e.CreatedAt),
		Items:   make([]itemView, 0, len(e.Items)),
		Total:   money.FormatCurrency(e.Total, currency),
	}
	for _, item := range e.Items {
		view.Items = append(view.Items, itemView{
			Name:      item.ProductName,
			Quantity:  item.Quantity,
			UnitPrice: money.FormatCurrency(item.UnitPrice, currency),
			Subtotal:  money.FormatCurrency(item.UnitPrice*int64(item.Quantity), currency),
		})
	}
	html, err := execute("order_created.html", view)
	if err != nil {
		return Rendered{}, err
	}
	return Rendered{
		Subject: fmt.Sprintf("Order Confirmation #%d", e.OrderID),
		Html:    html,
		Text:    fmt.Sprintf("Thank you for your order #%d. Total: %s.", e.OrderID, view.Total),
	}, nil
}

func OrderPaid(e event.OrderPaid, currency string) (Rendered, error) {
	view := orderPaidView{
		OrderID:          e.OrderID,
		Date:             date(e.PaidAt),
		Total:            money.FormatCurrency(e.Total, currency),
		PaymentReference: e.PaymentReference,
	}
	html, err := execute("order_paid.html", view)
	if err != nil {
		return Rendered{}, err
	}
	return Rendered{
		Subject: fmt.Sprintf("Payment received for order #%d", e.OrderID),
		Html:    html,
		Text:    fmt.Sprintf("We received your payment of %s for order #%d.", view.Total, e.OrderID),
	}, nil
}

func execute(name string, data any) (string, error) {
	buf := bytes.Buffer{}
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed rendering template=%s with error=%w", name, err)
	}
	return buf.String(), nil
}

func date(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(dateLayout)
}
