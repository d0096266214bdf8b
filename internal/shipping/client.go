// Package shipping talks to the carrier rate/label provider. All calls go
// through a circuit breaker so a degraded provider fails fast instead of
// holding checkout requests open.
package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

var ErrUnavailable = errors.New("shipping provider unavailable")

// Package describes the parcel being quoted.
type Package struct {
	WeightLb float64 `json:"weight_lb"`
	LengthIn float64 `json:"length_in"`
	WidthIn  float64 `json:"width_in"`
	HeightIn float64 `json:"height_in"`
	FromZip  string  `json:"from_zip"`
	ToZip    string  `json:"to_zip"`
}

type Rate struct {
	Carrier  string  `json:"carrier"`
	Service  string  `json:"service"`
	Amount   float64 `json:"amount"`
	Days     int     `json:"days"`
	RateID   string  `json:"rate_id"`
	Currency string  `json:"currency"`
}

type Label struct {
	LabelURL       string  `json:"label_url"`
	TrackingNumber string  `json:"tracking_number"`
	Amount         float64 `json:"amount"`
}

type Client interface {
	Rates(ctx context.Context, pkg Package) ([]Rate, error)
	BuyLabel(ctx context.Context, rateID string) (Label, error)
}

// HTTPClient is the real provider client.
type HTTPClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
}

func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:    "shipping-api",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
		breaker: cb,
	}
}

func (c *HTTPClient) post(ctx context.Context, path string, body any, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			resp.Body.Close()
			return nil, fmt.Errorf("shipping api: %s", resp.Status)
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return ErrUnavailable
		}
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("shipping api: %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *HTTPClient) Rates(ctx context.Context, pkg Package) ([]Rate, error) {
	var out struct {
		Rates []Rate `json:"rates"`
	}
	if err := c.post(ctx, "/v1/rates", pkg, &out); err != nil {
		return nil, err
	}
	return out.Rates, nil
}

func (c *HTTPClient) BuyLabel(ctx context.Context, rateID string) (Label, error) {
	var out Label
	err := c.post(ctx, "/v1/labels", map[string]string{"rate_id": rateID}, &out)
	return out, err
}

// StaticClient serves development and tests with weight-based flat rates.
type StaticClient struct{}

func (StaticClient) Rates(_ context.Context, pkg Package) ([]Rate, error) {
	if pkg.WeightLb <= 0 {
		return nil, errors.New("package weight required")
	}
	base := 12.50 + pkg.WeightLb*0.42
	return []Rate{
		{Carrier: "FREIGHTLINE", Service: "LTL Standard", Amount: round2(base), Days: 5, RateID: "static-ltl-std", Currency: "USD"},
		{Carrier: "FREIGHTLINE", Service: "LTL Priority", Amount: round2(base * 1.6), Days: 2, RateID: "static-ltl-pri", Currency: "USD"},
	}, nil
}

func (StaticClient) BuyLabel(_ context.Context, rateID string) (Label, error) {
	if rateID == "" {
		return Label{}, errors.New("rate_id required")
	}
	return Label{
		LabelURL:       "https://labels.clearlot.test/" + rateID + ".pdf",
		TrackingNumber: "CLT" + fmt.Sprintf("%d", time.Now().UnixNano()%1e10),
		Amount:         0,
	}, nil
}

func round2(f float64) float64 { return float64(int(f*100+0.5)) / 100 }
