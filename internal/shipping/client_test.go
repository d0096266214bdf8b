package shipping

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPackage() Package {
	return Package{WeightLb: 120, LengthIn: 40, WidthIn: 48, HeightIn: 40, FromZip: "07302", ToZip: "30303"}
}

func TestHTTPClient_Rates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/rates", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var pkg Package
		require.NoError(t, json.NewDecoder(r.Body).Decode(&pkg))
		assert.Equal(t, 120.0, pkg.WeightLb)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"rates": []Rate{
				{Carrier: "FREIGHTLINE", Service: "LTL Standard", Amount: 84.20, Days: 5, RateID: "r1", Currency: "USD"},
			},
		})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "test-key")
	rates, err := c.Rates(context.Background(), testPackage())
	require.NoError(t, err)
	require.Len(t, rates, 1)
	assert.Equal(t, 84.20, rates[0].Amount)
	assert.Equal(t, "r1", rates[0].RateID)
}

func TestHTTPClient_BuyLabel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/labels", r.URL.Path)
		_ = json.NewEncoder(w).Encode(Label{
			LabelURL: "https://labels.example/r1.pdf", TrackingNumber: "1ZTEST", Amount: 84.20,
		})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "test-key")
	label, err := c.BuyLabel(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "1ZTEST", label.TrackingNumber)
}

func TestHTTPClient_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "test-key")
	for i := 0; i < 3; i++ {
		_, err := c.Rates(context.Background(), testPackage())
		require.Error(t, err)
		require.NotErrorIs(t, err, ErrUnavailable, "breaker must stay closed for the first failures")
	}

	// Fourth call: the breaker is open and the provider is not touched.
	before := hits.Load()
	_, err := c.Rates(context.Background(), testPackage())
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, before, hits.Load())
}

func TestStaticClient(t *testing.T) {
	var c Client = StaticClient{}

	_, err := c.Rates(context.Background(), Package{})
	require.Error(t, err, "weightless packages cannot be quoted")

	rates, err := c.Rates(context.Background(), testPackage())
	require.NoError(t, err)
	require.Len(t, rates, 2)
	assert.Less(t, rates[0].Amount, rates[1].Amount, "priority costs more than standard")

	label, err := c.BuyLabel(context.Background(), rates[0].RateID)
	require.NoError(t, err)
	assert.NotEmpty(t, label.TrackingNumber)

	_, err = c.BuyLabel(context.Background(), "")
	require.Error(t, err, "a label needs a rate id")
}
