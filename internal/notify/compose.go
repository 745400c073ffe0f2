package notify

import (
	"strconv"
	"strings"
	"text/template"

	"github.com/shopspring/decimal"

	"github.com/noodlesaucehaven/storefront/internal/domain"
	"github.com/noodlesaucehaven/storefront/internal/email"
)

const orderDateLayout = "January 2, 2006 at 03:04 PM"

var orderTemplate = template.Must(template.New("order").Funcs(template.FuncMap{
	"rupees": Rupees,
}).Parse(`Hi {{.Customer.FirstName}},
{{if .AdminCopy}}
Admin copy: order placed by {{.Customer.Email}}.
{{end}}
Thank you for your order from Noodle Sauce Haven!

Order number: {{.Order.OrderNumber}}
Order date: {{.Date}}
Payment method: {{.PaymentMethod}}{{if .Order.PaymentID}} ({{.Order.PaymentID}}){{end}}

Items:
{{.Items}}

Subtotal: {{rupees .Order.Subtotal}}
Shipping: {{.Shipping}}
Tax (18%): {{rupees .Order.Tax}}
Total: {{rupees .Order.Total}}

Shipping to:
{{.Customer.FullName}}
{{.Customer.PostalAddress}}
Phone: {{.Customer.Phone}}
`))

type orderView struct {
	Order         domain.OrderSnapshot
	Customer      domain.Customer
	Date          string
	PaymentMethod string
	Shipping      string
	Items         string
	AdminCopy     bool
}

// Compose renders the confirmation sent to the customer.
func Compose(order domain.OrderSnapshot) (email.Message, error) {
	return compose(order, order.Customer.Email, false)
}

// AdminCopy renders the same confirmation for the shop's inbox, with replies
// going to the customer.
func AdminCopy(order domain.OrderSnapshot, adminEmail string) (email.Message, error) {
	msg, err := compose(order, adminEmail, true)
	if err != nil {
		return email.Message{}, err
	}
	msg.Subject = "[Admin copy] " + msg.Subject
	msg.ReplyTo = order.Customer.Email
	return msg, nil
}

func compose(order domain.OrderSnapshot, to string, adminCopy bool) (email.Message, error) {
	view := orderView{
		Order:         order,
		Customer:      order.Customer,
		Date:          order.CreatedAt.Format(orderDateLayout),
		PaymentMethod: order.PaymentMethod.DisplayName(),
		Shipping:      ShippingText(order.Shipping),
		Items:         ItemsList(order.Items),
		AdminCopy:     adminCopy,
	}

	var body strings.Builder
	if err := orderTemplate.Execute(&body, view); err != nil {
		return email.Message{}, err
	}

	return email.Message{
		To:      to,
		Subject: "Order Confirmation: " + order.OrderNumber,
		Body:    body.String(),
	}, nil
}

func Rupees(d decimal.Decimal) string {
	return "₹" + d.StringFixed(2)
}

func ShippingText(shipping decimal.Decimal) string {
	if shipping.IsZero() {
		return "FREE"
	}
	return Rupees(shipping)
}

// ItemsList renders one "• Name (Qty: n) - ₹x.xx" line per item.
func ItemsList(items []domain.OrderItem) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, "• "+item.Name+" (Qty: "+strconv.Itoa(item.Quantity)+") - "+Rupees(item.Subtotal()))
	}
	return strings.Join(lines, "\n")
}
