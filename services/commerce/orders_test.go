package commercesvc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/commerce"
	"github.com/trezcool/ratiba/core/user"
)

const orderNumber = "EDX-123456"

func newTestClient(t *testing.T, handler http.HandlerFunc) commerce.OrdersClient {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOrdersClient(&core.Config{
		AppName: "Ratiba",
		Commerce: core.CommerceConfig{
			APIURL:   srv.URL,
			APIToken: "secret",
			Timeout:  time.Second,
		},
	})
}

func TestOrdersClient_GetOrder(t *testing.T) {
	usr := user.User{ID: "3f1e9b0c-3c55-4c1a-9a59-6c1f0e7c0a11", Username: "jdoe", Email: "jdoe@test.com"}
	datePlaced := time.Date(2020, 1, 5, 10, 30, 0, 0, time.UTC)

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/orders/"+orderNumber+"/", r.URL.Path)

		auth := r.Header.Get("Authorization")
		require.True(t, strings.HasPrefix(auth, "JWT "))
		claims := new(userClaims)
		_, err := jwt.ParseWithClaims(strings.TrimPrefix(auth, "JWT "), claims, func(*jwt.Token) (interface{}, error) {
			return []byte("secret"), nil
		})
		require.NoError(t, err)
		assert.Equal(t, usr.Username, claims.Username)
		assert.Equal(t, usr.Email, claims.Email)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"number": "` + orderNumber + `", "date_placed": "` + datePlaced.Format(commerce.DateFormat) + `"}`))
	})

	order, err := client.GetOrder(context.Background(), usr, orderNumber)
	require.NoError(t, err)
	assert.Equal(t, orderNumber, order.Number)
	assert.True(t, datePlaced.Equal(order.DatePlaced))
}

func TestOrdersClient_GetOrder_errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantErr  error
		wantCode int
	}{
		{name: "not found", status: http.StatusNotFound, body: `{"detail": "Not found."}`, wantErr: commerce.ErrOrderNotFound},
		{name: "client error", status: http.StatusForbidden, body: `{"detail": "nope"}`, wantCode: http.StatusForbidden},
		{name: "server error", status: http.StatusInternalServerError, body: `oops`, wantCode: http.StatusInternalServerError},
		{name: "invalid date", status: http.StatusOK, body: `{"date_placed": "05/01/2020"}`},
		{name: "invalid json", status: http.StatusOK, body: `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.GetOrder(context.Background(), user.User{Username: "jdoe"}, orderNumber)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
			}
			if tt.wantCode != 0 {
				apiErr, ok := errors.Cause(err).(*commerce.APIError)
				require.True(t, ok, "want *commerce.APIError, got %T", err)
				assert.Equal(t, tt.wantCode, apiErr.StatusCode)
			}
		})
	}
}
