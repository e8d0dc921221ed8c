package commercesvc

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/commerce"
	"github.com/trezcool/ratiba/core/user"
)

const (
	ordersPath = "/orders/{number}/"
	tokenTTL   = 5 * time.Minute
)

// orderResponse is the subset of the ecommerce order payload we care about.
type orderResponse struct {
	Number     string `json:"number"`
	DatePlaced string `json:"date_placed"`
}

// userClaims identify the user on whose behalf orders are fetched.
type userClaims struct {
	jwt.StandardClaims
	Username string `json:"username"`
	Email    string `json:"email"`
}

type ordersClient struct {
	client *resty.Client
	secret []byte
	issuer string
}

var _ commerce.OrdersClient = (*ordersClient)(nil)

// NewOrdersClient returns a commerce.OrdersClient calling the ecommerce orders API at conf.Commerce.APIURL.
// Requests are authenticated with a short-lived JWT of the user, signed with the shared API token.
func NewOrdersClient(conf *core.Config) commerce.OrdersClient {
	client := resty.New().
		SetBaseURL(conf.Commerce.APIURL).
		SetTimeout(conf.Commerce.Timeout).
		SetHeader("Accept", "application/json")
	return &ordersClient{
		client: client,
		secret: []byte(conf.Commerce.APIToken),
		issuer: conf.AppName,
	}
}

func (c *ordersClient) token(usr user.User) (string, error) {
	now := time.Now()
	claims := userClaims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    c.issuer,
			Subject:   usr.ID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(tokenTTL).Unix(),
		},
		Username: usr.Username,
		Email:    usr.Email,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

func (c *ordersClient) GetOrder(ctx context.Context, usr user.User, number string) (commerce.Order, error) {
	tkn, err := c.token(usr)
	if err != nil {
		return commerce.Order{}, errors.Wrap(err, "signing user token")
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "JWT "+tkn).
		SetPathParam("number", number).
		Get(ordersPath)
	if err != nil {
		return commerce.Order{}, errors.Wrap(err, "requesting order")
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusNotFound:
		return commerce.Order{}, commerce.ErrOrderNotFound
	case code < http.StatusOK || code >= http.StatusMultipleChoices:
		return commerce.Order{}, &commerce.APIError{StatusCode: code, Body: resp.String()}
	}

	var data orderResponse
	if err = json.Unmarshal(resp.Body(), &data); err != nil {
		return commerce.Order{}, errors.Wrap(err, "decoding order")
	}
	datePlaced, err := time.Parse(commerce.DateFormat, data.DatePlaced)
	if err != nil {
		return commerce.Order{}, errors.Wrap(err, "parsing date_placed")
	}
	if data.Number == "" {
		data.Number = number
	}
	return commerce.Order{Number: data.Number, DatePlaced: datePlaced.UTC()}, nil
}
