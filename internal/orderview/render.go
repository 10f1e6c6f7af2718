package orderview

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/01moynul/orderdesk/internal/models"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02 15:04"

// Render writes the order detail screen as plain text.
func (v *View) Render(w io.Writer) error {
	order := v.Order()
	if order == nil {
		if err := v.Err(); err != nil {
			_, werr := fmt.Fprintf(w, "Error: %s\n", errorMessage(err))
			return werr
		}
		return ErrNotLoaded
	}
	return renderOrder(w, order, v.CanPay(), v.CanDeliver())
}

func renderOrder(out io.Writer, o *models.Order, canPay, canDeliver bool) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	p := func(format string, args ...any) { fmt.Fprintf(tw, format, args...) }

	p("Order %s\n\n", o.ID.Hex())

	p("Shipping\n")
	if o.User != nil {
		p("  Name:\t%s\n", o.User.Name)
		p("  Email:\t%s\n", o.User.Email)
	}
	a := o.ShippingAddress
	p("  Address:\t%s, %s %s, %s\n", a.Address, a.City, a.PostalCode, a.Country)
	p("  %s\n\n", status("Delivered", o.IsDelivered, o.DeliveredAt))

	p("Payment Method\n")
	p("  Method:\t%s\n", o.PaymentMethod)
	p("  %s\n\n", status("Paid", o.IsPaid, o.PaidAt))

	p("Order Items\n")
	if len(o.OrderItems) == 0 {
		p("  Order is empty\n")
	}
	for _, it := range o.OrderItems {
		line := it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		p("  %s\t%d x $%s\t= $%s\n", it.Name, it.Quantity, it.Price.StringFixed(2), line.StringFixed(2))
	}
	p("\n")

	p("Order Summary\n")
	p("  Items\t$%s\n", o.ItemsPrice.StringFixed(2))
	p("  Shipping\t$%s\n", o.ShippingPrice.StringFixed(2))
	p("  Tax\t$%s\n", o.TaxPrice.StringFixed(2))
	p("  Total\t$%s\n", o.TotalPrice.StringFixed(2))

	if canPay {
		p("\n[PayPal checkout available]\n")
	}
	if canDeliver {
		p("\n[Mark As Delivered]\n")
	}
	return tw.Flush()
}

func status(label string, done bool, at *time.Time) string {
	if !done {
		return "Not " + label
	}
	if at == nil {
		return label
	}
	return label + " on " + at.UTC().Format(dateLayout)
}
