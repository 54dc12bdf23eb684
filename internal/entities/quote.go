package entities

import "fmt"

// ProductQuoteRequest is the "message" action a mini-app sends for a product.
// All fields are already redacted and rendered for display.
type ProductQuoteRequest struct {
	ProductName  string
	ProductID    string
	ProductPrice string
	Text         string
}

// Summary formats the request as the reply shown in the chat.
func (q ProductQuoteRequest) Summary() string {
	return fmt.Sprintf("New message from the mini-app:\nProduct: %s (%s)\nPrice: %s EUR\nText: %s\n",
		q.ProductName, q.ProductID, q.ProductPrice, q.Text)
}
