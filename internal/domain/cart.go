package domain

import (
	"path"

	"github.com/shopspring/decimal"
)

// CartItem is one line of the client-held cart. Field names follow the
// JSON the storefront keeps in local storage.
type CartItem struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	Quantity      int             `json:"quantity"`
	Image         string          `json:"image,omitempty"`
	StripeID      string          `json:"stripeId,omitempty"`
	ProductID     string          `json:"productId,omitempty"`
	CustomOptions *CustomOptions  `json:"customOptions,omitempty"`
}

type EmojiChoice struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Filename returns the base file name of the choice, falling back to its
// display name when no path was stored.
func (e *EmojiChoice) Filename() string {
	if e == nil {
		return ""
	}
	if e.Path != "" {
		return path.Base(e.Path)
	}
	return e.Name
}

type EmojiChoices struct {
	TeslaEmoji *EmojiChoice `json:"teslaEmoji,omitempty"`
	ElonEmoji  *EmojiChoice `json:"elonEmoji,omitempty"`
}

// CustomOptions holds product personalisation. Older carts nest the emoji
// pair under emojiChoices instead of at the top level.
type CustomOptions struct {
	TeslaEmoji   *EmojiChoice  `json:"teslaEmoji,omitempty"`
	ElonEmoji    *EmojiChoice  `json:"elonEmoji,omitempty"`
	Variant      string        `json:"variant,omitempty"`
	EmojiChoices *EmojiChoices `json:"emojiChoices,omitempty"`
}

// Emojis returns the raw good/bad emoji file names.
func (o *CustomOptions) Emojis() (good, bad string) {
	if o == nil {
		return "", ""
	}
	good, bad = o.TeslaEmoji.Filename(), o.ElonEmoji.Filename()
	if o.EmojiChoices != nil {
		if good == "" {
			good = o.EmojiChoices.TeslaEmoji.Filename()
		}
		if bad == "" {
			bad = o.EmojiChoices.ElonEmoji.Filename()
		}
	}
	return good, bad
}

// Subtotal is price * quantity.
func (i CartItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
