// Package order maps a completed checkout session onto the fulfillment
// backend's order schema. Nothing here performs I/O.
package order

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/fjod/go_merch/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	ErrNilSession      = errors.New("checkout session is nil")
	ErrMissingCustomer = errors.New("checkout session has no customer details")
)

var (
	ordinalPrefix = regexp.MustCompile(`^(\d+[_-])+`)
	pngSuffix     = regexp.MustCompile(`(?i)(\.png)+$`)
)

// SplitName splits on the first space: the head is the first name, the
// remainder (possibly empty) the last name.
func SplitName(full string) (first, last string) {
	first, last, _ = strings.Cut(strings.TrimSpace(full), " ")
	return first, strings.TrimSpace(last)
}

// MinorToMajor converts integer cents to major units. The division is exact;
// no rounding is applied.
func MinorToMajor(minor int64) float64 {
	return decimal.New(minor, -2).InexactFloat64()
}

// CleanEmojiFilename strips a leading ordinal prefix and the .png suffix:
// "01_love_stickers.png" -> "love_stickers".
func CleanEmojiFilename(name string) string {
	name = pngSuffix.ReplaceAllString(strings.TrimSpace(name), "")
	return strings.TrimSpace(ordinalPrefix.ReplaceAllString(name, ""))
}

// MetadataKey is the session metadata key of the N-th line item's field.
func MetadataKey(index int, field string) string {
	return fmt.Sprintf("item_%d_%s", index, field)
}

// PaymentID prefers the payment intent id and falls back to the session id.
func PaymentID(s *domain.CheckoutSession) string {
	if s.PaymentIntentID != "" {
		return s.PaymentIntentID
	}
	return s.ID
}

// EmojiAttributes builds the attribute pair. Both values are required;
// otherwise no attributes are produced.
func EmojiAttributes(good, bad string) []domain.Attribute {
	good, bad = CleanEmojiFilename(good), CleanEmojiFilename(bad)
	if good == "" || bad == "" {
		return nil
	}
	return []domain.Attribute{
		{Name: domain.AttributeEmojiGood, Value: good},
		{Name: domain.AttributeEmojiBad, Value: bad},
	}
}

// Transform maps the session onto a fulfillment order. Line item
// attributes are read from session metadata by position, which is the only
// source available to every trigger (success page and webhook alike).
func Transform(s *domain.CheckoutSession) (*domain.FulfillmentOrder, error) {
	if s == nil {
		return nil, ErrNilSession
	}
	if s.Customer == nil {
		return nil, ErrMissingCustomer
	}

	order := &domain.FulfillmentOrder{
		Customer:  customer(s.Customer),
		PaymentID: PaymentID(s),
		Products:  make([]domain.OrderProduct, 0, len(s.LineItems)),
		Shipping:  MinorToMajor(s.AmountShipping),
		Tax:       MinorToMajor(s.AmountTax),
	}

	for i, li := range s.LineItems {
		order.Products = append(order.Products, domain.OrderProduct{
			ProductID: productID(s.Metadata, i, li),
			Quantity:  li.Quantity,
			Attributes: EmojiAttributes(
				s.Metadata[MetadataKey(i, domain.AttributeEmojiGood)],
				s.Metadata[MetadataKey(i, domain.AttributeEmojiBad)],
			),
		})
	}

	return order, nil
}

func customer(c *domain.CustomerDetails) domain.OrderCustomer {
	first, last := SplitName(c.Name)
	oc := domain.OrderCustomer{
		Email:     c.Email,
		FirstName: first,
		LastName:  last,
	}
	if a := c.Address; a != nil {
		oc.Addr1 = a.Line1
		oc.Addr2 = a.Line2
		oc.City = a.City
		oc.StateProv = a.State
		oc.PostalCode = a.PostalCode
		oc.Country = a.Country
	}
	return oc
}

func productID(metadata map[string]string, index int, li domain.LineItem) string {
	if id := metadata[MetadataKey(index, "product_id")]; id != "" {
		return id
	}
	if li.ProductID != "" {
		return li.ProductID
	}
	return li.PriceID
}
