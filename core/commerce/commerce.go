package commerce

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/trezcool/ratiba/core/user"
)

// DateFormat is the layout of the dates returned by the ecommerce API.
const DateFormat = "2006-01-02T15:04:05Z"

var ErrOrderNotFound = errors.New("order not found")

// Order is the part of an ecommerce order needed to compute refund windows.
type Order struct {
	Number     string    `json:"number"`
	DatePlaced time.Time `json:"date_placed"`
}

// APIError is returned when the ecommerce API answers with an unexpected status.
type APIError struct {
	StatusCode int
	Body       string
}

func (err *APIError) Error() string {
	return fmt.Sprintf("ecommerce API error: status %d: %s", err.StatusCode, err.Body)
}

// OrdersClient fetches orders on behalf of a user.
type OrdersClient interface {
	GetOrder(ctx context.Context, usr user.User, number string) (Order, error)
}
