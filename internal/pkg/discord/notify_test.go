package discord

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "15.00 EUR", FormatAmount(1500, "eur"))
	assert.Equal(t, "0.99 USD", FormatAmount(99, "USD"))
	assert.Equal(t, "0.00 ???", FormatAmount(0, ""))
}

func TestPaymentEmbedFields(t *testing.T) {
	embed := PaymentEmbed(PaymentNotice{
		SessionRef:    "cs_123",
		Tier:          "premium",
		Endpoint:      "/premium",
		AmountTotal:   2500,
		Currency:      "eur",
		PaymentMethod: "card",
		PayerName:     "Jordan",
		RequestText:   "please add me",
	})

	require.NotNil(t, embed.Footer)
	assert.Equal(t, "cs_123", embed.Footer.Text)

	values := map[string]string{}
	for _, f := range embed.Fields {
		values[f.Name] = f.Value
	}
	assert.Equal(t, "premium", values["Tier"])
	assert.Equal(t, "25.00 EUR", values["Amount"])
	assert.Equal(t, "card", values["Method"])
	assert.Equal(t, "Jordan", values["Name"])
	assert.Equal(t, "please add me", values["Request"])
}

func TestRoleGrantEmbedOutcomes(t *testing.T) {
	ok := RoleGrantEmbed("alpha", "1234", nil)
	failed := RoleGrantEmbed("alpha", "", errors.New("bot missing permission"))

	okValues := map[string]string{}
	for _, f := range ok.Fields {
		okValues[f.Name] = f.Value
	}
	assert.Equal(t, "granted", okValues["Outcome"])
	assert.Equal(t, "1234", okValues["Member"])

	failedValues := map[string]string{}
	for _, f := range failed.Fields {
		failedValues[f.Name] = f.Value
	}
	assert.Contains(t, failedValues["Outcome"], "bot missing permission")
	assert.NotEqual(t, ok.Color, failed.Color)
}

func TestWebhookNotifierSend(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := &WebhookNotifier{URL: srv.URL, HTTPClient: srv.Client()}
	err := n.Send(context.Background(), PaymentEmbed(PaymentNotice{SessionRef: "cs_1", Tier: "basic", AmountTotal: 500, Currency: "usd"}))
	require.NoError(t, err)

	var decoded struct {
		Embeds []struct {
			Title string `json:"title"`
		} `json:"embeds"`
	}
	require.NoError(t, json.Unmarshal(gotBody, &decoded))
	require.Len(t, decoded.Embeds, 1)
	assert.Equal(t, "Payment received", decoded.Embeds[0].Title)
}

func TestWebhookNotifierSurfacesHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	n := &WebhookNotifier{URL: srv.URL, HTTPClient: srv.Client()}
	err := n.Send(context.Background(), RoleGrantEmbed("alpha", "1", nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestWebhookNotifierDisabledWithoutURL(t *testing.T) {
	n := &WebhookNotifier{}
	require.NoError(t, n.Send(context.Background(), nil))
}
