package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"TrendSignal/internal/model"
)

// RetryPolicy bounds retries of transient network failures.
type RetryPolicy struct {
	MaxAttempts     uint          `yaml:"max_attempts" envconfig:"RETRY_MAX_ATTEMPTS"`
	InitialInterval time.Duration `yaml:"initial_interval" envconfig:"RETRY_INITIAL_INTERVAL"`
	MaxInterval     time.Duration `yaml:"max_interval" envconfig:"RETRY_MAX_INTERVAL"`
	Multiplier      float64       `yaml:"multiplier" envconfig:"RETRY_MULTIPLIER"`
}

// ClientOptions configures the HTTP side of a provider fetcher.
type ClientOptions struct {
	BaseURL string        `yaml:"base_url" envconfig:"PROVIDER_BASE_URL"`
	APIKey  string        `yaml:"api_key" envconfig:"ALPHA_VANTAGE_API_KEY"`
	Proxy   string        `yaml:"proxy" envconfig:"HTTPS_PROXY"`
	Timeout time.Duration `yaml:"timeout" envconfig:"PROVIDER_TIMEOUT"`
	// OutputSize is the Alpha Vantage outputsize parameter (compact or full).
	OutputSize string `yaml:"output_size" envconfig:"PROVIDER_OUTPUT_SIZE"`

	Retry RetryPolicy `yaml:"retry"`
	// RequestsPerMinute paces outbound calls; 0 disables pacing.
	RequestsPerMinute float64 `yaml:"requests_per_minute" envconfig:"PROVIDER_REQUESTS_PER_MINUTE"`
	// BreakerFailures consecutive network failures open the circuit; 0 disables it.
	BreakerFailures uint32        `yaml:"breaker_failures" envconfig:"PROVIDER_BREAKER_FAILURES"`
	BreakerCooldown time.Duration `yaml:"breaker_cooldown" envconfig:"PROVIDER_BREAKER_COOLDOWN"`
}

// DefaultClientOptions returns options suited to the Alpha Vantage free tier.
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		Timeout:    30 * time.Second,
		OutputSize: "compact",
		Retry: RetryPolicy{
			MaxAttempts:     3,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
			Multiplier:      2,
		},
		RequestsPerMinute: 5,
		BreakerFailures:   5,
		BreakerCooldown:   time.Minute,
	}
}

// classified tags a transport error with an error kind without repeating
// the kind in its message.
type classified struct {
	kind error
	err  error
}

func (c *classified) Error() string   { return c.err.Error() }
func (c *classified) Unwrap() []error { return []error{c.kind, c.err} }

func classify(kind error, format string, args ...any) error {
	return &classified{kind: kind, err: fmt.Errorf(format, args...)}
}

// response is a non-retryable HTTP reply handed back to the fetcher for decoding.
type response struct {
	Status int
	Body   []byte
}

// httpDoer performs paced, retried, circuit-broken GET requests.
type httpDoer struct {
	name    string
	client  *http.Client
	retry   RetryPolicy
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

func newHTTPDoer(name string, opts ClientOptions) *httpDoer {
	transport := &http.Transport{}
	if opts.Proxy != "" {
		if u, err := url.Parse(opts.Proxy); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	limit := rate.Inf
	if opts.RequestsPerMinute > 0 {
		limit = rate.Limit(opts.RequestsPerMinute / 60)
	}

	d := &httpDoer{
		name:    name,
		client:  &http.Client{Timeout: timeout, Transport: transport},
		retry:   opts.Retry,
		limiter: rate.NewLimiter(limit, 1),
	}
	if d.retry.MaxAttempts == 0 {
		d.retry.MaxAttempts = 1
	}

	if opts.BreakerFailures > 0 {
		failures := opts.BreakerFailures
		d.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    name,
			Timeout: opts.BreakerCooldown,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= failures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				slog.Warn("provider circuit state changed", "provider", name, "from", from.String(), "to", to.String())
			},
			// Only transport-level failures count against the provider.
			IsSuccessful: func(err error) bool {
				return err == nil || !errors.Is(err, model.ErrNetwork)
			},
		})
	}
	return d
}

func (d *httpDoer) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if d.retry.InitialInterval > 0 {
		b.InitialInterval = d.retry.InitialInterval
	}
	if d.retry.MaxInterval > 0 {
		b.MaxInterval = d.retry.MaxInterval
	}
	if d.retry.Multiplier > 0 {
		b.Multiplier = d.retry.Multiplier
	}
	return b
}

// get fetches endpoint. Transport failures and 5xx replies are retried with
// exponential backoff; 429 is reported as rate limited without retrying.
// Any other status is returned for the caller to interpret.
func (d *httpDoer) get(ctx context.Context, endpoint string, header http.Header) (*response, error) {
	attempt := 0
	op := func() (*response, error) {
		attempt++
		if err := d.limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(classify(model.ErrNetwork, "pacing wait: %w", err))
		}
		resp, err := d.execute(ctx, endpoint, header)
		if err != nil {
			if errors.Is(err, model.ErrNetwork) && !errors.Is(err, gobreaker.ErrOpenState) {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		return resp, nil
	}

	resp, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(d.backOff()),
		backoff.WithMaxTries(d.retry.MaxAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			slog.Warn("provider request failed, retrying",
				"provider", d.name, "attempt", attempt, "max_attempts", d.retry.MaxAttempts,
				"retry_in", next, "error", err)
		}),
	)
	if err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Unwrap()
		}
		if model.KindOf(err) == nil {
			err = classify(model.ErrNetwork, "after %d attempts: %w", attempt, err)
		}
		return nil, err
	}
	return resp, nil
}

func (d *httpDoer) execute(ctx context.Context, endpoint string, header http.Header) (*response, error) {
	if d.breaker == nil {
		return d.once(ctx, endpoint, header)
	}
	v, err := d.breaker.Execute(func() (interface{}, error) {
		return d.once(ctx, endpoint, header)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, classify(model.ErrNetwork, "%s unavailable: %w", d.name, err)
	}
	if err != nil {
		return nil, err
	}
	return v.(*response), nil
}

func (d *httpDoer) once(ctx context.Context, endpoint string, header http.Header) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, classify(model.ErrMalformedResponse, "build request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, classify(model.ErrNetwork, "%s request: %w", d.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(model.ErrNetwork, "%s read body: %w", d.name, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, classify(model.ErrRateLimited, "%s: status %d", d.name, resp.StatusCode)
	case resp.StatusCode >= 500:
		return nil, classify(model.ErrNetwork, "%s: status %d, body: %s", d.name, resp.StatusCode, truncate(body, 200))
	}
	return &response{Status: resp.StatusCode, Body: body}, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
