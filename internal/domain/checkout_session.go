package domain

// PaymentStatus mirrors the processor's payment_status values.
type PaymentStatus string

const (
	PaymentStatusPaid              PaymentStatus = "paid"
	PaymentStatusUnpaid            PaymentStatus = "unpaid"
	PaymentStatusNoPaymentRequired PaymentStatus = "no_payment_required"
)

// IsSettled reports whether the session needs no further payment.
func (s PaymentStatus) IsSettled() bool {
	return s == PaymentStatusPaid || s == PaymentStatusNoPaymentRequired
}

func (s PaymentStatus) String() string {
	return string(s)
}

type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type CustomerDetails struct {
	Email   string   `json:"email"`
	Name    string   `json:"name"`
	Address *Address `json:"address"`
}

type LineItem struct {
	ID          string `json:"id"`
	PriceID     string `json:"price_id"`
	ProductID   string `json:"product_id"`
	Description string `json:"description"`
	Quantity    int64  `json:"quantity"`
	AmountTotal int64  `json:"amount_total"`
}

// CheckoutSession is the read model of a processor checkout session.
// Amounts are integer minor units.
type CheckoutSession struct {
	ID              string            `json:"id"`
	URL             string            `json:"url,omitempty"`
	PaymentStatus   PaymentStatus     `json:"payment_status"`
	AmountTotal     int64             `json:"amount_total"`
	AmountSubtotal  int64             `json:"amount_subtotal"`
	AmountTax       int64             `json:"amount_tax"`
	AmountShipping  int64             `json:"amount_shipping"`
	Customer        *CustomerDetails  `json:"customer_details,omitempty"`
	LineItems       []LineItem        `json:"line_items"`
	PaymentIntentID string            `json:"payment_intent,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// NewSessionRequest is what the initiator asks the processor to create.
type NewSessionRequest struct {
	LineItems         []SessionLineItem
	SuccessURL        string
	CancelURL         string
	ShippingCountries []string
	Metadata          map[string]string
}

type SessionLineItem struct {
	PriceID  string
	Quantity int64
}
