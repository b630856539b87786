package checkout

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-caseshop/internal/common"
	"github.com/noah-isme/backend-caseshop/internal/store"
)

func newHandler(st *stubCheckoutStore, pay *stubPayments) *Handler {
	return &Handler{
		Svc: &Service{
			Store:         st,
			Payments:      pay,
			PublicBaseURL: "https://shop.example",
			Currency:      "USD",
			Logger:        zerolog.Nop(),
		},
		Validate: validator.New(),
	}
}

func authedRequest(body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/session", strings.NewReader(body))
	return r.WithContext(common.WithUserID(r.Context(), "user-1"))
}

func TestCreateSessionHandler(t *testing.T) {
	st := &stubCheckoutStore{
		cfg:       texturedPolycarbonateConfig(),
		unpaidErr: store.ErrOrderNotFound,
		created:   store.Order{ID: orderID, AmountCents: 22_00, Currency: "USD"},
	}
	h := newHandler(st, &stubPayments{payment: approvedPayment()})

	rec := httptest.NewRecorder()
	h.CreateSession(rec, authedRequest(`{"configurationId":"`+cfgID+`"}`))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"orderId":"`+orderID+`"`)
	assert.Contains(t, rec.Body.String(), "checkoutnow")
}

func TestCreateSessionHandlerRequiresAuth(t *testing.T) {
	h := newHandler(&stubCheckoutStore{}, &stubPayments{})

	rec := httptest.NewRecorder()
	h.CreateSession(rec, httptest.NewRequest(http.MethodPost, "/api/v1/checkout/session", strings.NewReader(`{"configurationId":"`+cfgID+`"}`)))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
}

func TestCreateSessionHandlerRejectsBadPayload(t *testing.T) {
	pay := &stubPayments{}
	h := newHandler(&stubCheckoutStore{}, pay)

	cases := map[string]string{
		"invalid json":  `{`,
		"missing field": `{}`,
		"not a uuid":    `{"configurationId":"nope"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.CreateSession(rec, authedRequest(body))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	assert.Zero(t, pay.calls)
}

func TestOrderStatusHandler(t *testing.T) {
	st := &stubCheckoutStore{
		order: store.Order{ID: orderID, UserID: "user-1", AmountCents: 22_00, Currency: "USD", Status: "pending"},
	}
	h := newHandler(st, &stubPayments{})

	router := chi.NewRouter()
	router.Get("/api/v1/orders/{orderID}", h.OrderStatus)

	r := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+orderID, nil)
	r = r.WithContext(common.WithUserID(r.Context(), "user-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"orderId":"`+orderID+`"`)
	assert.Contains(t, rec.Body.String(), `"isPaid":false`)
}

func TestOrderStatusHandlerRequiresAuth(t *testing.T) {
	h := newHandler(&stubCheckoutStore{}, &stubPayments{})

	rec := httptest.NewRecorder()
	h.OrderStatus(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+orderID, nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateSessionHandlerMapsAppErrors(t *testing.T) {
	h := newHandler(&stubCheckoutStore{cfgErr: store.ErrConfigurationNotFound}, &stubPayments{})

	rec := httptest.NewRecorder()
	h.CreateSession(rec, authedRequest(`{"configurationId":"`+cfgID+`"}`))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "CONFIGURATION_NOT_FOUND")
}
