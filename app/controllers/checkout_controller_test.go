package controllers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripe "github.com/stripe/stripe-go/v82"

	"github.com/orbitkey/payrelay/internal/pkg/env"
	"github.com/orbitkey/payrelay/internal/pkg/payments"
)

func TestInstantCheckoutRedirectsToProvider(t *testing.T) {
	env.Env = map[string]string{
		"BASIC_PRODUCT_ID": "prod_basic",
		"DOMAIN":           "https://relay.example",
	}
	defer func() { env.Env = nil }()

	te := newTestApp()
	te.api.price = &stripe.Price{ID: "price_1", Type: stripe.PriceTypeOneTime}
	te.api.createResp = &stripe.CheckoutSession{URL: "https://pay.example/cs_1"}

	resp, err := te.app.Test(httptest.NewRequest(http.MethodGet, "/basic", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "https://pay.example/cs_1", resp.Header.Get("Location"))

	params := te.api.created()
	require.NotNil(t, params)
	assert.Equal(t, "basic", params.Metadata["tier"])
	assert.Equal(t, "/basic", params.Metadata["endpoint"])
	assert.Contains(t, stripe.StringValue(params.SuccessURL), "https://relay.example/success?tier=basic")
	assert.Contains(t, stripe.StringValue(params.SuccessURL), "{CHECKOUT_SESSION_ID}")
}

func TestInstantCheckoutFailsClosedWithoutProduct(t *testing.T) {
	env.Env = map[string]string{}
	t.Setenv("PREMIUM_PRODUCT_ID", "")

	te := newTestApp()
	resp, err := te.app.Test(httptest.NewRequest(http.MethodGet, "/premium", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "PREMIUM_PRODUCT_ID")
	assert.Nil(t, te.api.created(), "no provider call on configuration errors")
}

func TestInstantCheckoutNoActivePrice(t *testing.T) {
	env.Env = map[string]string{"BASIC_PRODUCT_ID": "prod_basic"}
	defer func() { env.Env = nil }()

	te := newTestApp()
	te.api.priceErr = payments.ErrNoActivePrice

	resp, err := te.app.Test(httptest.NewRequest(http.MethodGet, "/basic", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Location"), "must never redirect without a price")
}

func TestRequestCheckoutRejectsOversizedText(t *testing.T) {
	env.Env = map[string]string{"REQUEST_PRODUCT_ID": "prod_req"}
	defer func() { env.Env = nil }()

	te := newTestApp()
	long := strings.Repeat("x", 61)

	resp, err := te.app.Test(httptest.NewRequest(http.MethodGet, "/request?text="+long, nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Nil(t, te.api.created(), "no session may be created for oversized text")
}

func TestRequestCheckoutCountsTextInRunes(t *testing.T) {
	env.Env = map[string]string{"REQUEST_PRODUCT_ID": "prod_req"}
	defer func() { env.Env = nil }()

	te := newTestApp()
	te.api.price = &stripe.Price{ID: "price_req", Type: stripe.PriceTypeOneTime}
	te.api.createResp = &stripe.CheckoutSession{URL: "https://pay.example/cs_req"}

	// 60 characters but 120 bytes; the cap counts characters.
	text := strings.Repeat("ö", 60)
	resp, err := te.app.Test(httptest.NewRequest(http.MethodGet, "/request?text="+url.QueryEscape(text), nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	params := te.api.created()
	require.NotNil(t, params)
	assert.Equal(t, text, params.Metadata["request_text"])
}

func TestRequestCheckoutCarriesTextAndRef(t *testing.T) {
	env.Env = map[string]string{"REQUEST_PRODUCT_ID": "prod_req"}
	defer func() { env.Env = nil }()

	te := newTestApp()
	te.api.price = &stripe.Price{ID: "price_req", Type: stripe.PriceTypeOneTime}
	te.api.createResp = &stripe.CheckoutSession{URL: "https://pay.example/cs_req"}

	resp, err := te.app.Test(httptest.NewRequest(http.MethodGet, "/request?text=play+my+song&ref=radio", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	params := te.api.created()
	require.NotNil(t, params)
	assert.Equal(t, "play my song", params.Metadata["request_text"])
	assert.Equal(t, "radio", params.Metadata["ref"])
}
