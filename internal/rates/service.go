// Package rates fetches currency exchange rates and performs conversions.
// It is transport-agnostic: nothing here knows about Telegram or the bus.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

// SupportedCurrencies maps ISO codes to display names.
var SupportedCurrencies = map[string]string{
	"USD": "🇺🇸 US Dollar",
	"EUR": "🇪🇺 Euro",
	"RUB": "🇷🇺 Russian Ruble",
	"GBP": "🇬🇧 British Pound",
	"JPY": "🇯🇵 Japanese Yen",
	"CNY": "🇨🇳 Chinese Yuan",
	"CHF": "🇨🇭 Swiss Franc",
	"AUD": "🇦🇺 Australian Dollar",
	"CAD": "🇨🇦 Canadian Dollar",
	"TRY": "🇹🇷 Turkish Lira",
}

// DefaultAPIURL is the free, keyless endpoint rates are fetched from.
// Per-base request format: {DefaultAPIURL}/{BASE}.
const DefaultAPIURL = "https://open.er-api.com/v6/latest"

const fetchTimeout = 15 * time.Second

// Service fetches and caches exchange rates per base currency. A scheduled
// RefreshAll keeps the cache warm; a conversion against a cold base fetches
// on demand. Safe for concurrent use.
type Service struct {
	apiURL     string
	httpClient *http.Client

	mu        sync.RWMutex
	cache     map[string]rateTable
	fetchedAt map[string]time.Time
}

type rateTable map[string]float64

// NewService creates a Service talking to apiURL (DefaultAPIURL when empty).
// httpClient may be nil.
func NewService(apiURL string, httpClient *http.Client) *Service {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: fetchTimeout}
	}
	return &Service{
		apiURL:     apiURL,
		httpClient: httpClient,
		cache:      make(map[string]rateTable),
		fetchedAt:  make(map[string]time.Time),
	}
}

// Rate returns how many units of target one unit of base buys.
func (s *Service) Rate(ctx context.Context, base, target string) (float64, error) {
	base = strings.ToUpper(base)
	target = strings.ToUpper(target)

	if _, ok := SupportedCurrencies[base]; !ok {
		return 0, fmt.Errorf("unsupported currency %q", base)
	}
	if _, ok := SupportedCurrencies[target]; !ok {
		return 0, fmt.Errorf("unsupported currency %q", target)
	}
	if base == target {
		return 1, nil
	}

	s.mu.RLock()
	table, ok := s.cache[base]
	s.mu.RUnlock()

	if !ok {
		var err error
		table, err = s.refreshBase(ctx, base)
		if err != nil {
			return 0, err
		}
	}

	rate, ok := table[target]
	if !ok {
		return 0, fmt.Errorf("rate for %s not present in %s table", target, base)
	}
	return rate, nil
}

// Convert converts amount from base to target, returning the converted amount
// and the rate used.
func (s *Service) Convert(ctx context.Context, amount float64, base, target string) (converted, rate float64, err error) {
	rate, err = s.Rate(ctx, base, target)
	if err != nil {
		return 0, 0, err
	}
	return amount * rate, rate, nil
}

// RefreshAll re-fetches the rate table for every supported base currency.
// Intended to run on a schedule; individual failures are logged and skipped
// so one flaky base does not abort the sweep.
func (s *Service) RefreshAll(ctx context.Context) {
	bases := make([]string, 0, len(SupportedCurrencies))
	for code := range SupportedCurrencies {
		bases = append(bases, code)
	}
	sort.Strings(bases)

	var refreshed int
	for _, base := range bases {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.refreshBase(ctx, base); err != nil {
			slog.Warn("rates: refresh failed", "base", base, "err", err)
			continue
		}
		refreshed++
	}
	slog.Info("rates: cache refreshed", "bases", refreshed, "total", len(bases))
}

// apiResponse is the open.er-api.com envelope.
type apiResponse struct {
	Result string             `json:"result"`
	Rates  map[string]float64 `json:"rates"`
}

// refreshBase fetches the rate table for one base and stores it in the cache.
func (s *Service) refreshBase(ctx context.Context, base string) (rateTable, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	url := s.apiURL + "/" + base
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rates for %s: %w", base, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read rates response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rates API returned status %d for %s", resp.StatusCode, base)
	}

	var body apiResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("decode rates response: %w", err)
	}
	if body.Result != "success" {
		return nil, fmt.Errorf("rates API result %q for %s", body.Result, base)
	}
	if len(body.Rates) == 0 {
		return nil, fmt.Errorf("rates API returned empty table for %s", base)
	}

	table := rateTable(body.Rates)
	s.mu.Lock()
	s.cache[base] = table
	s.fetchedAt[base] = time.Now()
	s.mu.Unlock()

	return table, nil
}

// FormatResult renders a conversion result for the user.
func FormatResult(amount float64, base string, converted float64, target string, rate float64) string {
	baseName := displayName(base)
	targetName := displayName(target)
	return fmt.Sprintf(
		"💱 Currency conversion\n\n📊 %.2f %s (%s)\n➡️ %.2f %s (%s)\n\n📈 Rate: 1 %s = %.4f %s",
		amount, base, baseName, converted, target, targetName, base, rate, target)
}

func displayName(code string) string {
	if name, ok := SupportedCurrencies[code]; ok {
		return name
	}
	return code
}
