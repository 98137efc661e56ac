package order

import (
	"encoding/json"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/fjod/go_merch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitName(t *testing.T) {
	tests := []struct {
		in, first, last string
	}{
		{"Jane Q Public", "Jane", "Q Public"},
		{"Cher", "Cher", ""},
		{"  Elon Musk ", "Elon", "Musk"},
		{"", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			first, last := SplitName(tt.in)
			assert.Equal(t, tt.first, first)
			assert.Equal(t, tt.last, last)

			again1, again2 := SplitName(tt.in)
			assert.Equal(t, first, again1)
			assert.Equal(t, last, again2)
		})
	}
}

func TestMinorToMajor(t *testing.T) {
	assert.Equal(t, 15.99, MinorToMajor(1599))
	assert.Equal(t, 20.0, MinorToMajor(2000))
	assert.Equal(t, 0.01, MinorToMajor(1))
	assert.Equal(t, 0.0, MinorToMajor(0))
	assert.Equal(t, 1234567.89, MinorToMajor(123456789))
}

func TestCleanEmojiFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"01_love_stickers.png", "love_stickers"},
		{"love_stickers", "love_stickers"},
		{"12-vomit_face.png", "vomit_face"},
		{"vomit_face.PNG", "vomit_face"},
		{"01_02_double.png.png", "double"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			once := CleanEmojiFilename(tt.in)
			assert.Equal(t, tt.want, once)
			assert.Equal(t, once, CleanEmojiFilename(once), "cleanup must be idempotent")
		})
	}
}

func TestEmojiAttributes_BothOrNeither(t *testing.T) {
	attrs := EmojiAttributes("01_love_stickers.png", "vomit_face.png")
	assert.Equal(t, []domain.Attribute{
		{Name: "emoji_good", Value: "love_stickers"},
		{Name: "emoji_bad", Value: "vomit_face"},
	}, attrs)

	assert.Nil(t, EmojiAttributes("love_stickers", ""))
	assert.Nil(t, EmojiAttributes("", "vomit_face"))
	assert.Nil(t, EmojiAttributes("", ""))
}

func TestPaymentID(t *testing.T) {
	assert.Equal(t, "pi_123", PaymentID(&domain.CheckoutSession{ID: "cs_1", PaymentIntentID: "pi_123"}))
	assert.Equal(t, "cs_1", PaymentID(&domain.CheckoutSession{ID: "cs_1"}))
}

func completedSession() *domain.CheckoutSession {
	return &domain.CheckoutSession{
		ID:             "cs_test_1",
		PaymentStatus:  domain.PaymentStatusPaid,
		AmountTotal:    3599,
		AmountSubtotal: 3000,
		AmountTax:      240,
		AmountShipping: 359,
		Customer: &domain.CustomerDetails{
			Email: "jane@example.com",
			Name:  "Jane Q Public",
			Address: &domain.Address{
				Line1:      "1 Rocket Rd",
				Line2:      "Unit 2",
				City:       "Hawthorne",
				State:      "CA",
				PostalCode: "90250",
				Country:    "US",
			},
		},
		LineItems: []domain.LineItem{
			{PriceID: "price_sticker", ProductID: "prod_sticker", Quantity: 1, AmountTotal: 2000},
			{PriceID: "price_mug", ProductID: "prod_mug", Quantity: 2, AmountTotal: 1000},
		},
		PaymentIntentID: "pi_abc",
		Metadata: map[string]string{
			"item_0_emoji_good": "love_stickers",
			"item_0_emoji_bad":  "vomit_face",
			"item_0_product_id": "good-bad-sticker",
		},
	}
}

func TestTransform(t *testing.T) {
	order, err := Transform(completedSession())
	require.NoError(t, err)
	t.Log(spew.Sdump(order))

	assert.Equal(t, "pi_abc", order.PaymentID)
	assert.Equal(t, domain.OrderCustomer{
		Email:      "jane@example.com",
		FirstName:  "Jane",
		LastName:   "Q Public",
		Addr1:      "1 Rocket Rd",
		Addr2:      "Unit 2",
		City:       "Hawthorne",
		StateProv:  "CA",
		PostalCode: "90250",
		Country:    "US",
	}, order.Customer)
	assert.Equal(t, 3.59, order.Shipping)
	assert.Equal(t, 2.4, order.Tax)

	require.Len(t, order.Products, 2)
	assert.Equal(t, "good-bad-sticker", order.Products[0].ProductID)
	assert.Equal(t, int64(1), order.Products[0].Quantity)
	assert.Len(t, order.Products[0].Attributes, 2)
	assert.Equal(t, "prod_mug", order.Products[1].ProductID)
	assert.Equal(t, int64(2), order.Products[1].Quantity)
	assert.Nil(t, order.Products[1].Attributes)
}

func TestTransform_JSONOmitsAttributesForPlainProducts(t *testing.T) {
	order, err := Transform(completedSession())
	require.NoError(t, err)

	data, err := json.Marshal(order)
	require.NoError(t, err)

	var raw struct {
		Products []map[string]json.RawMessage `json:"products"`
	}
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw.Products, 2)
	assert.Contains(t, raw.Products[0], "attributes")
	assert.NotContains(t, raw.Products[1], "attributes")
	assert.JSONEq(t,
		`[{"name":"emoji_good","value":"love_stickers"},{"name":"emoji_bad","value":"vomit_face"}]`,
		string(raw.Products[0]["attributes"]))
}

func TestTransform_DefaultsShippingAndTax(t *testing.T) {
	s := completedSession()
	s.AmountShipping = 0
	s.AmountTax = 0

	order, err := Transform(s)
	require.NoError(t, err)
	assert.Zero(t, order.Shipping)
	assert.Zero(t, order.Tax)
}

func TestTransform_PartialEmojiMetadataDropsAttributes(t *testing.T) {
	s := completedSession()
	delete(s.Metadata, "item_0_emoji_bad")

	order, err := Transform(s)
	require.NoError(t, err)
	assert.Nil(t, order.Products[0].Attributes)
}

func TestTransform_ProductIDFallsBackToPrice(t *testing.T) {
	s := completedSession()
	s.Metadata = nil
	s.LineItems[0].ProductID = ""

	order, err := Transform(s)
	require.NoError(t, err)
	assert.Equal(t, "price_sticker", order.Products[0].ProductID)
}

func TestTransform_MissingAddressKeepsCustomer(t *testing.T) {
	s := completedSession()
	s.Customer.Address = nil
	s.Customer.Name = "Cher"

	order, err := Transform(s)
	require.NoError(t, err)
	assert.Equal(t, "Cher", order.Customer.FirstName)
	assert.Empty(t, order.Customer.LastName)
	assert.Empty(t, order.Customer.Addr1)
}

func TestTransform_Errors(t *testing.T) {
	_, err := Transform(nil)
	assert.ErrorIs(t, err, ErrNilSession)

	s := completedSession()
	s.Customer = nil
	_, err = Transform(s)
	assert.ErrorIs(t, err, ErrMissingCustomer)
}
