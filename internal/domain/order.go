package domain

const (
	AttributeEmojiGood = "emoji_good"
	AttributeEmojiBad  = "emoji_bad"
)

type Attribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type OrderProduct struct {
	ProductID  string      `json:"product_id"`
	Quantity   int64       `json:"quantity"`
	Attributes []Attribute `json:"attributes,omitempty"`
}

type OrderCustomer struct {
	Email      string `json:"email"`
	FirstName  string `json:"firstname"`
	LastName   string `json:"lastname"`
	Addr1      string `json:"addr1"`
	Addr2      string `json:"addr2"`
	City       string `json:"city"`
	StateProv  string `json:"state_prov"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// FulfillmentOrder is the payload the fulfillment backend accepts on
// POST /api/orders. PaymentID doubles as the relay idempotency key.
type FulfillmentOrder struct {
	Customer  OrderCustomer  `json:"customer"`
	PaymentID string         `json:"payment_id"`
	Products  []OrderProduct `json:"products"`
	Shipping  float64        `json:"shipping"`
	Tax       float64        `json:"tax"`
}

// OrderReceipt is the subset of the backend's response the storefront shows.
type OrderReceipt struct {
	OrderNumber string `json:"order_number,omitempty"`
	OrderID     string `json:"order_id,omitempty"`
}

// Reference returns the order number, falling back to the order id.
func (r OrderReceipt) Reference() string {
	if r.OrderNumber != "" {
		return r.OrderNumber
	}
	return r.OrderID
}
