package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Compile-time interface check.
var _ AnalystSource = (*YahooAnalystSource)(nil)

const defaultYahooBaseURL = "https://query1.finance.yahoo.com"

// YahooAnalystSource fetches analyst consensus data (mean target price and
// recommendation key) from the Yahoo Finance quoteSummary API.
type YahooAnalystSource struct {
	client  *http.Client
	baseURL string
}

// NewYahooAnalystSource creates a YahooAnalystSource. An empty baseURL uses
// the public Yahoo endpoint; tests point it at a local server.
func NewYahooAnalystSource(baseURL string) *YahooAnalystSource {
	if baseURL == "" {
		baseURL = defaultYahooBaseURL
	}
	return &YahooAnalystSource{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: baseURL,
	}
}

// quoteSummary is the slice of the Yahoo response this source reads.
type quoteSummary struct {
	QuoteSummary struct {
		Result []struct {
			FinancialData struct {
				TargetMeanPrice struct {
					Raw *float64 `json:"raw"`
				} `json:"targetMeanPrice"`
				RecommendationKey string `json:"recommendationKey"`
			} `json:"financialData"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

// FetchAnalystView fetches the consensus for one symbol. A symbol without
// analyst coverage returns a zero view, not an error.
func (s *YahooAnalystSource) FetchAnalystView(ctx context.Context, symbol string) (AnalystView, error) {
	u := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=financialData",
		s.baseURL, url.PathEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return AnalystView{}, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return AnalystView{}, fmt.Errorf("yahoo fetch %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return AnalystView{}, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return AnalystView{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return AnalystView{}, fmt.Errorf("yahoo %s: status %d, body: %s", symbol, resp.StatusCode, string(body))
	}

	var summary quoteSummary
	if err := json.Unmarshal(body, &summary); err != nil {
		return AnalystView{}, fmt.Errorf("yahoo decode %s: %w", symbol, err)
	}
	if summary.QuoteSummary.Error != nil {
		return AnalystView{}, fmt.Errorf("yahoo api error %s: %s", symbol, summary.QuoteSummary.Error.Description)
	}
	if len(summary.QuoteSummary.Result) == 0 {
		return AnalystView{}, nil
	}

	fin := summary.QuoteSummary.Result[0].FinancialData
	view := AnalystView{Rating: fin.RecommendationKey}
	if fin.TargetMeanPrice.Raw != nil {
		target := *fin.TargetMeanPrice.Raw
		view.TargetPrice = &target
	}
	return view, nil
}
