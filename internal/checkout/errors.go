package checkout

import "errors"

var (
	ErrEmptyCart               = errors.New("cart is empty, nothing to checkout")
	ErrUnresolvedPrice         = errors.New("cart item has no price reference")
	ErrInvalidQuantity         = errors.New("cart item quantity must be positive")
	ErrIncompleteCustomization = errors.New("customizable item needs both emoji choices")
	ErrCartTooLarge            = errors.New("cart has too many items for one checkout")
)
