package polymarket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultCLOBBase  = "https://clob.polymarket.com"
	defaultGammaBase = "https://gamma-api.polymarket.com"

	// Rate limits al 60% de los documentados, compartidos por todos los engines.
	// CLOB /book: 1500/10s → 90/s
	bookRatePerSec = 90
	// Gamma /events y /markets: 300/10s → 18/s
	gammaRatePerSec = 18

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
	maxRetryAfter = 5 * time.Second
	maxErrorBody  = 512
)

// errDecode marca una respuesta 2xx que no se pudo decodificar. No se reintenta.
var errDecode = errors.New("decode response")

// APIError es una respuesta no-2xx de Gamma o del CLOB.
type APIError struct {
	Status int
	Body   string

	retryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("polymarket: status %d", e.Status)
	}
	return fmt.Sprintf("polymarket: status %d: %s", e.Status, e.Body)
}

// Temporary indica si vale la pena reintentar: 429 y 5xx.
func (e *APIError) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// Client es el HTTP client de Polymarket (Gamma + CLOB) con rate limiting
// por API y reintentos con backoff.
type Client struct {
	http         *http.Client
	clobBase     string
	gammaBase    string
	gammaLimiter *rate.Limiter
	bookLimiter  *rate.Limiter
}

// NewClient crea un Client. Base URLs vacíos = producción.
func NewClient(clobBase, gammaBase string) *Client {
	if clobBase == "" {
		clobBase = defaultCLOBBase
	}
	if gammaBase == "" {
		gammaBase = defaultGammaBase
	}
	return &Client{
		http:         &http.Client{Timeout: 10 * time.Second},
		clobBase:     strings.TrimRight(clobBase, "/"),
		gammaBase:    strings.TrimRight(gammaBase, "/"),
		gammaLimiter: rate.NewLimiter(gammaRatePerSec, 10),
		bookLimiter:  rate.NewLimiter(bookRatePerSec, 8),
	}
}

// getJSON hace GET base+path?query y decodifica el JSON en out.
// Errores de red, 429 y 5xx se reintentan hasta maxRetries veces.
func (c *Client) getJSON(ctx context.Context, limiter *rate.Limiter, base, path string, query url.Values, out any) error {
	u := base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	for attempt := 0; ; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("polymarket %s: rate limiter: %w", path, err)
		}
		err := c.fetch(ctx, u, out)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return fmt.Errorf("polymarket %s: %w", path, ctx.Err())
		}

		var apiErr *APIError
		isAPI := errors.As(err, &apiErr)
		if errors.Is(err, errDecode) || (isAPI && !apiErr.Temporary()) {
			return fmt.Errorf("polymarket %s: %w", path, err)
		}
		if attempt == maxRetries {
			return fmt.Errorf("polymarket %s: giving up after %d attempts: %w", path, attempt+1, err)
		}

		wait := backoff(attempt)
		if isAPI && apiErr.retryAfter > wait {
			wait = apiErr.retryAfter
		}
		slog.Debug("polymarket request retry",
			"path", path,
			"attempt", attempt+1,
			"wait", wait.String(),
			"err", err,
		)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return fmt.Errorf("polymarket %s: %w", path, ctx.Err())
		}
	}
}

func (c *Client) fetch(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{
			Status:     resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			retryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %w", errDecode, err)
	}
	return nil
}

// backoff: 500ms, 1s, 2s... más hasta un 50% de jitter.
func backoff(attempt int) time.Duration {
	wait := baseRetryWait << attempt
	return wait + rand.N(wait/2+1)
}

// parseRetryAfter solo entiende segundos; fechas HTTP se ignoran.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return min(time.Duration(secs)*time.Second, maxRetryAfter)
}
