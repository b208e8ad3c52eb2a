package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"SigmaHunter/internal/model"
)

const restDateLayout = "2006-01-02"

// RESTFetcher implements Fetcher against a self-hosted options data API.
type RESTFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewRESTFetcher creates a new fetcher with optional proxy support.
func NewRESTFetcher(baseURL, apiKey, proxyURL string) *RESTFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &RESTFetcher{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (f *RESTFetcher) Name() string { return "rest" }

// restContract is the expected JSON shape of one option contract.
type restContract struct {
	Strike    float64  `json:"strike"`
	LastPrice *float64 `json:"last_price"`
}

func (f *RESTFetcher) getJSON(ctx context.Context, path string, q url.Values, out interface{}) error {
	endpoint := fmt.Sprintf("%s%s?%s", f.BaseURL, path, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("fetch %s: status %d, body: %s", path, resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (f *RESTFetcher) FetchLastClose(ctx context.Context, symbol string) (float64, error) {
	var result struct {
		Close float64 `json:"close"`
	}
	if err := f.getJSON(ctx, "/api/v1/quote", url.Values{"symbol": {symbol}}, &result); err != nil {
		return 0, err
	}
	return result.Close, nil
}

func (f *RESTFetcher) FetchExpirations(ctx context.Context, symbol string) ([]time.Time, error) {
	var result struct {
		Expirations []string `json:"expirations"`
	}
	if err := f.getJSON(ctx, "/api/v1/options/expirations", url.Values{"symbol": {symbol}}, &result); err != nil {
		return nil, err
	}
	exps := make([]time.Time, 0, len(result.Expirations))
	for _, s := range result.Expirations {
		t, err := time.Parse(restDateLayout, s)
		if err != nil {
			return nil, fmt.Errorf("parse expiration %q: %w", s, err)
		}
		exps = append(exps, t)
	}
	sort.Slice(exps, func(i, j int) bool { return exps[i].Before(exps[j]) })
	return exps, nil
}

func (f *RESTFetcher) FetchOptionChain(ctx context.Context, symbol string, expiration time.Time) (*model.OptionChain, error) {
	var result struct {
		Calls []restContract `json:"calls"`
		Puts  []restContract `json:"puts"`
	}
	q := url.Values{"symbol": {symbol}, "expiration": {expiration.Format(restDateLayout)}}
	if err := f.getJSON(ctx, "/api/v1/options/chain", q, &result); err != nil {
		return nil, err
	}
	chain := &model.OptionChain{Symbol: symbol, Expiration: expiration}
	for _, c := range result.Calls {
		chain.Calls = append(chain.Calls, model.OptionContract{Strike: c.Strike, LastPrice: c.LastPrice})
	}
	for _, p := range result.Puts {
		chain.Puts = append(chain.Puts, model.OptionContract{Strike: p.Strike, LastPrice: p.LastPrice})
	}
	return chain, nil
}
