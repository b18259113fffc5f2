// Package messenger builds chat deep links that hand a completed order over
// to the shop's messaging page.
package messenger

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/xenking/galleria-shop/internal/domain/order"
)

// Link renders m.me style deep links with a prefilled order message.
type Link struct {
	// Host is the messaging domain, e.g. "m.me".
	Host string
	// PageID is the page username or ID the chat is opened with.
	PageID string
	// ShopName heads the message.
	ShopName string
	// Currency is the price symbol, e.g. "₱".
	Currency string
}

// Text returns the unescaped order message.
func (l Link) Text(o *order.Order) string {
	var b strings.Builder
	b.WriteString(l.ShopName)
	b.WriteString(" Order\nOrder#: ")
	b.WriteString(strconv.FormatInt(o.ID, 10))
	b.WriteString("\n")
	for _, line := range lines(o, l.Currency) {
		b.WriteString("- ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\nTotal: ")
	b.WriteString(o.Total.Format(l.Currency))
	b.WriteString("\nName: ")
	b.WriteString(o.CustomerName)
	b.WriteString("\nAddress: ")
	b.WriteString(o.CustomerAddress)
	return b.String()
}

// URL returns https://<Host>/<PageID>?text=<message> with the message
// percent-encoded. Spaces are encoded as %20.
func (l Link) URL(o *order.Order) string {
	u := url.URL{
		Scheme:   "https",
		Host:     l.Host,
		Path:     "/" + l.PageID,
		RawQuery: "text=" + escape(l.Text(o)),
	}
	return u.String()
}

func lines(o *order.Order, currency string) []string {
	if len(o.Lines) > 0 {
		out := make([]string, len(o.Lines))
		for i, line := range o.Lines {
			out[i] = line.Render(currency)
		}
		return out
	}
	if o.Summary == "" {
		return nil
	}
	return strings.Split(o.Summary, "; ")
}

func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
