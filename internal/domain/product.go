package domain

import "time"

type Product struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Price         float64   `json:"price"`
	ImageURL      string    `json:"image_url"`
	StripePriceID string    `json:"stripe_price_id"`
	Customizable  bool      `json:"customizable"`
	CreatedAt     time.Time `json:"created_at"`
}
