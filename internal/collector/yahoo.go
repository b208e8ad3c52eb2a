package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"SigmaHunter/internal/model"
)

const (
	yahooChartURL   = "https://query1.finance.yahoo.com/v8/finance/chart/"
	yahooOptionsURL = "https://query2.finance.yahoo.com/v7/finance/options/"
	yahooCookieURL  = "https://fc.yahoo.com"
	yahooCrumbURL   = "https://query1.finance.yahoo.com/v1/test/getcrumb"
)

// YahooFetcher implements Fetcher using Yahoo Finance public endpoints.
// The options endpoint requires a session cookie and crumb, which are
// obtained once and reused for the lifetime of the fetcher.
type YahooFetcher struct {
	Client     *http.Client
	SymbolMap  map[string]string // maps internal symbol to Yahoo ticker
	ChartURL   string
	OptionsURL string
	CookieURL  string
	CrumbURL   string

	mu    sync.Mutex
	crumb string
}

// NewYahooFetcher creates a new Yahoo Finance fetcher with optional proxy support.
// symbolMap translates configured symbols to Yahoo tickers; unmapped symbols
// are requested as-is.
func NewYahooFetcher(proxyURL string, symbolMap map[string]string) *YahooFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	jar, _ := cookiejar.New(nil)
	mapped := make(map[string]string, len(symbolMap))
	for k, v := range symbolMap {
		mapped[k] = v
	}
	return &YahooFetcher{
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
			Jar:       jar,
		},
		SymbolMap:  mapped,
		ChartURL:   yahooChartURL,
		OptionsURL: yahooOptionsURL,
		CookieURL:  yahooCookieURL,
		CrumbURL:   yahooCrumbURL,
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"chart"`
}

type yahooError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// yahooOptions is the response structure from Yahoo Finance options API.
type yahooOptions struct {
	OptionChain struct {
		Result []struct {
			UnderlyingSymbol string  `json:"underlyingSymbol"`
			ExpirationDates  []int64 `json:"expirationDates"`
			Options          []struct {
				ExpirationDate int64            `json:"expirationDate"`
				Calls          []yahooContract `json:"calls"`
				Puts           []yahooContract `json:"puts"`
			} `json:"options"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"optionChain"`
}

type yahooContract struct {
	ContractSymbol string      `json:"contractSymbol"`
	Strike         float64     `json:"strike"`
	LastPrice      interface{} `json:"lastPrice"`
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func (f *YahooFetcher) get(ctx context.Context, u string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("yahoo read body: %w", err)
	}
	return body, resp.StatusCode, nil
}

// ensureCrumb primes the session cookie and fetches a crumb if none is cached.
func (f *YahooFetcher) ensureCrumb(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.crumb != "" {
		return f.crumb, nil
	}

	// fc.yahoo.com answers 404 but still sets the session cookie.
	if _, _, err := f.get(ctx, f.CookieURL); err != nil {
		return "", fmt.Errorf("yahoo cookie: %w", err)
	}
	body, status, err := f.get(ctx, f.CrumbURL)
	if err != nil {
		return "", fmt.Errorf("yahoo crumb: %w", err)
	}
	crumb := strings.TrimSpace(string(body))
	if status != http.StatusOK || crumb == "" || strings.ContainsAny(crumb, "<{") {
		return "", fmt.Errorf("yahoo crumb: status %d", status)
	}
	log.Debugf("yahoo crumb acquired")
	f.crumb = crumb
	return crumb, nil
}

// FetchLastClose returns the most recent non-null daily close.
func (f *YahooFetcher) FetchLastClose(ctx context.Context, symbol string) (float64, error) {
	u := fmt.Sprintf("%s%s?interval=1d&range=5d", f.ChartURL, url.PathEscape(f.yahooSymbol(symbol)))
	body, status, err := f.get(ctx, u)
	if err != nil {
		return 0, err
	}
	if status != http.StatusOK {
		return 0, fmt.Errorf("yahoo: status %d, body: %s", status, string(body))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return 0, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return 0, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return 0, fmt.Errorf("yahoo: no data returned")
	}
	closes := chart.Chart.Result[0].Indicators.Quote[0].Close
	for i := len(closes) - 1; i >= 0; i-- {
		if closes[i] != nil && *closes[i] > 0 {
			return *closes[i], nil
		}
	}
	return 0, fmt.Errorf("yahoo: no price data")
}

func (f *YahooFetcher) fetchOptions(ctx context.Context, symbol string, date int64) (*yahooOptions, error) {
	crumb, err := f.ensureCrumb(ctx)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("crumb", crumb)
	if date > 0 {
		q.Set("date", fmt.Sprintf("%d", date))
	}
	u := fmt.Sprintf("%s%s?%s", f.OptionsURL, url.PathEscape(f.yahooSymbol(symbol)), q.Encode())

	body, status, err := f.get(ctx, u)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		f.mu.Lock()
		f.crumb = ""
		f.mu.Unlock()
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("yahoo options: status %d, body: %s", status, string(body))
	}

	var opts yahooOptions
	if err := json.Unmarshal(body, &opts); err != nil {
		return nil, fmt.Errorf("yahoo options decode: %w", err)
	}
	if opts.OptionChain.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", opts.OptionChain.Error.Description)
	}
	if len(opts.OptionChain.Result) == 0 {
		return nil, fmt.Errorf("yahoo options: no data returned")
	}
	return &opts, nil
}

func (f *YahooFetcher) FetchExpirations(ctx context.Context, symbol string) ([]time.Time, error) {
	opts, err := f.fetchOptions(ctx, symbol, 0)
	if err != nil {
		return nil, err
	}
	raw := opts.OptionChain.Result[0].ExpirationDates
	exps := make([]time.Time, 0, len(raw))
	for _, ts := range raw {
		exps = append(exps, time.Unix(ts, 0).UTC())
	}
	sort.Slice(exps, func(i, j int) bool { return exps[i].Before(exps[j]) })
	return exps, nil
}

func (f *YahooFetcher) FetchOptionChain(ctx context.Context, symbol string, expiration time.Time) (*model.OptionChain, error) {
	opts, err := f.fetchOptions(ctx, symbol, expiration.Unix())
	if err != nil {
		return nil, err
	}
	chain := &model.OptionChain{Symbol: symbol, Expiration: expiration}
	result := opts.OptionChain.Result[0]
	if len(result.Options) == 0 {
		return chain, nil
	}
	chain.Calls = convertContracts(result.Options[0].Calls)
	chain.Puts = convertContracts(result.Options[0].Puts)
	return chain, nil
}

func convertContracts(in []yahooContract) []model.OptionContract {
	out := make([]model.OptionContract, 0, len(in))
	for _, c := range in {
		oc := model.OptionContract{Strike: c.Strike}
		if v, ok := toFloat(c.LastPrice); ok {
			oc.LastPrice = &v
		}
		out = append(out, oc)
	}
	return out
}
