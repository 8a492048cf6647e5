package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/NAOUI1/fx-pipeline-data-warehouse/internal/models"
)

// Client fetches daily reference rates from the Frankfurter API. One run
// issues a single range request; there is no retry, so a failed extract
// is simply re-invoked.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// rangeResponse is the shape of GET /{start}..{end}. Rates are keyed by
// date, then by quote currency.
type rangeResponse struct {
	Base      string                                `json:"base"`
	StartDate string                                `json:"start_date"`
	EndDate   string                                `json:"end_date"`
	Rates     map[string]map[string]decimal.Decimal `json:"rates"`
}

// NewClient creates a rate API client. An empty baseURL selects the
// public Frankfurter endpoint.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://api.frankfurter.dev/v1"
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// FetchRange retrieves the reference-currency rates for every universe
// currency over [start, end] inclusive. The API quotes everything against
// the reference currency, which therefore never appears as a quote in the
// result. Observations come back sorted by date, then quote currency.
func (c *Client) FetchRange(ctx context.Context, start, end time.Time, universe models.Universe) ([]models.RateObservation, error) {
	endpoint := fmt.Sprintf("%s/%s..%s?symbols=%s",
		c.baseURL,
		start.Format("2006-01-02"),
		end.Format("2006-01-02"),
		url.QueryEscape(universe.Symbols()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build rates request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rates request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rates API returned status %d", resp.StatusCode)
	}

	var decoded rangeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode rates response: %w", err)
	}

	observations := make([]models.RateObservation, 0, len(decoded.Rates)*universe.Size())
	for dateStr, quotes := range decoded.Rates {
		d, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			return nil, fmt.Errorf("malformed date %q in rates response: %w", dateStr, err)
		}
		for code, rate := range quotes {
			quote := models.Currency(code)
			// Rate-sign validation is deliberately left to the transform
			// stage, which degrades per date instead of failing the fetch.
			if quote == models.ReferenceCurrency || !universe.Contains(quote) {
				continue
			}
			observations = append(observations, models.RateObservation{
				Date:          models.DateOnly(d),
				BaseCurrency:  models.ReferenceCurrency,
				QuoteCurrency: quote,
				Rate:          rate,
			})
		}
	}

	sort.Slice(observations, func(i, j int) bool {
		if !observations[i].Date.Equal(observations[j].Date) {
			return observations[i].Date.Before(observations[j].Date)
		}
		return observations[i].QuoteCurrency < observations[j].QuoteCurrency
	})

	return observations, nil
}
