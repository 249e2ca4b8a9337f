package leagueapi

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"golang.org/x/time/rate"

	"github.com/n1ckdm/pickems-api/internal/platform/logging"
	"github.com/n1ckdm/pickems-api/internal/platform/resilience"
	"github.com/n1ckdm/pickems-api/internal/usecase"
)

const (
	defaultBaseURL  = "https://api.leagueos.gg/v1"
	matchesPageSize = 100
	maxResponseSize = 6 << 20
)

var bearerTokenRegex = regexp.MustCompile(`(?i)bearer\s+[^\s"']+`)
var errLeagueAPITransient = crerr.New("league api transient failure")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Token          string
	Timeout        time.Duration
	MaxRetries     int
	RateLimitRPS   float64
	RateLimitBurst int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

type Client struct {
	httpClient     *http.Client
	baseURL        string
	token          string
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	limiter        *rate.Limiter
	flight         resilience.SingleFlight
}

var _ usecase.MatchProvider = (*Client)(nil)

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	rps := cfg.RateLimitRPS
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = int(rps)
	}
	if burst < 1 {
		burst = 1
	}

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		token:          strings.TrimSpace(cfg.Token),
		maxRetries:     maxInt(cfg.MaxRetries, 0),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenProbes),
		circuitEnabled: breakerCfg.Enabled,
		limiter:        rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// FetchMatches pages through the division schedule ordered by start time.
func (c *Client) FetchMatches(ctx context.Context, query usecase.MatchQuery) ([]usecase.ExternalMatch, error) {
	if query.DivisionID <= 0 {
		return nil, fmt.Errorf("division id must be greater than zero")
	}

	out := make([]usecase.ExternalMatch, 0, matchesPageSize)
	offset := 0
	for {
		params := map[string]string{
			"division_id": strconv.FormatInt(query.DivisionID, 10),
			"limit":       strconv.Itoa(matchesPageSize),
			"offset":      strconv.Itoa(offset),
			"order_by":    "start_time",
			"order_dir":   "asc",
		}
		if game := strings.TrimSpace(query.Game); game != "" {
			params["game"] = game
		}
		if season := strings.TrimSpace(query.Season); season != "" {
			params["season"] = season
		}

		var envelope matchesEnvelope
		if err := c.doJSON(ctx, "/matches", params, &envelope); err != nil {
			return nil, fmt.Errorf("fetch matches division_id=%d offset=%d: %w", query.DivisionID, offset, err)
		}

		for _, item := range envelope.Data {
			out = append(out, mapMatchItem(item, query.DivisionID))
		}

		if len(envelope.Data) < matchesPageSize {
			return out, nil
		}
		offset += matchesPageSize
	}
}

func (c *Client) FetchMatchResult(ctx context.Context, divisionID, matchExternalID int64) (usecase.ExternalMatchResult, error) {
	if divisionID <= 0 || matchExternalID <= 0 {
		return usecase.ExternalMatchResult{}, fmt.Errorf("division and match ids must be greater than zero")
	}

	path := fmt.Sprintf("/division/%d/matchups/%d", divisionID, matchExternalID)
	var envelope matchupEnvelope
	if err := c.doJSON(ctx, path, nil, &envelope); err != nil {
		return usecase.ExternalMatchResult{}, fmt.Errorf("fetch match result division_id=%d match_id=%d: %w", divisionID, matchExternalID, err)
	}

	item := envelope.Data
	mapped := mapMatchItem(item, divisionID)
	return usecase.ExternalMatchResult{
		MatchExternalID: item.ID,
		WinningSide:     strings.ToLower(strings.TrimSpace(item.WinningSide)),
		WinnerTeamID:    resolveResultWinnerTeamID(item),
		Team1MapsWon:    mapped.Team1.MapsWon,
		Team2MapsWon:    mapped.Team2.MapsWon,
		FinishedAt:      mapped.FinishedAt,
	}, nil
}

func (c *Client) doJSON(ctx context.Context, path string, query map[string]string, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "league api circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: league api is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	values := url.Values{}
	for key, value := range query {
		values.Set(key, value)
	}

	fullURL := c.baseURL + path
	if encoded := values.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	key := path + "?" + values.Encode()
	out, err, _ := c.flight.Do(key, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && isLeagueAPICircuitFailure(reqErr) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return err
	}

	raw, ok := out.([]byte)
	if !ok {
		return fmt.Errorf("unexpected response payload type %T", out)
	}

	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode league api payload: %w", err)
	}
	return nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("accept", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			// Keep the context sentinel in the chain so callers can treat
			// deadline expiry differently from hard upstream failures.
			switch {
			case stderrors.Is(err, context.DeadlineExceeded):
				lastErr = fmt.Errorf("%w: send request: %w", errLeagueAPITransient, context.DeadlineExceeded)
			case stderrors.Is(err, context.Canceled):
				lastErr = fmt.Errorf("%w: send request: %w", errLeagueAPITransient, context.Canceled)
			default:
				lastErr = fmt.Errorf("%w: send request: %s", errLeagueAPITransient, sanitizeSensitiveText(err.Error(), c.token))
			}
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
			_ = resp.Body.Close()
			if readErr != nil {
				lastErr = fmt.Errorf("%w: read response body: %v", errLeagueAPITransient, readErr)
			} else if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return raw, nil
			} else {
				if isRetryableStatus(resp.StatusCode) {
					lastErr = fmt.Errorf("%w: league api status=%d body=%s", errLeagueAPITransient, resp.StatusCode, abbreviateBody(raw))
				} else {
					lastErr = fmt.Errorf("league api status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
					return nil, lastErr
				}
			}
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("league api request failed")
	}
	c.logger.WarnContext(ctx, "league api request failed", "url", fullURL, "error", lastErr)
	return nil, lastErr
}

func mapMatchItem(item matchItem, divisionID int64) usecase.ExternalMatch {
	if item.DivisionID > 0 {
		divisionID = item.DivisionID
	}

	out := usecase.ExternalMatch{
		ExternalID:  item.ID,
		Team1:       mapSignup(item.Signup1),
		Team2:       mapSignup(item.Signup2),
		DivisionID:  divisionID,
		BestOf:      item.BestOf,
		Round:       strings.TrimSpace(item.Round),
		WinningSide: strings.ToLower(strings.TrimSpace(item.WinningSide)),
		StreamURL:   resolveStreamURL(item.Videos),
	}
	if parsed := parseAPITime(item.StartTime); parsed != nil {
		out.StartTime = *parsed
	}
	out.FinishedAt = parseAPITime(item.FinishedAt)
	return out
}

func mapSignup(item signupItem) usecase.ExternalTeamSide {
	side := usecase.ExternalTeamSide{
		TeamID:  item.Team.ID,
		Name:    strings.TrimSpace(item.Team.Name),
		LogoURL: strings.TrimSpace(item.Team.Logo),
	}
	if item.MapsWon != nil && *item.MapsWon >= 0 {
		v := *item.MapsWon
		side.MapsWon = &v
	}
	return side
}

func resolveResultWinnerTeamID(item matchItem) int64 {
	switch strings.ToLower(strings.TrimSpace(item.WinningSide)) {
	case "home", "team1", "1":
		return item.Signup1.Team.ID
	case "away", "team2", "2":
		return item.Signup2.Team.ID
	default:
		return 0
	}
}

func resolveStreamURL(videos []videoItem) string {
	for _, video := range videos {
		if !strings.EqualFold(strings.TrimSpace(video.Source), "twitch") {
			continue
		}
		remoteID := strings.TrimSpace(video.RemoteID)
		if remoteID == "" {
			continue
		}
		return "https://www.twitch.tv/videos/" + remoteID
	}
	return ""
}

func parseAPITime(raw string) *time.Time {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil
	}

	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			v := parsed.UTC()
			return &v
		}
	}
	return nil
}

func sanitizeSensitiveText(value, token string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	if token != "" {
		value = strings.ReplaceAll(value, token, "REDACTED")
	}
	value = bearerTokenRegex.ReplaceAllString(value, "Bearer REDACTED")
	return value
}

func isLeagueAPICircuitFailure(err error) bool {
	if err == nil {
		return false
	}
	return stderrors.Is(err, errLeagueAPITransient)
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}

func maxInt(left, right int) int {
	if left > right {
		return left
	}
	return right
}

type matchesEnvelope struct {
	Data []matchItem `json:"data"`
}

type matchupEnvelope struct {
	Data matchItem `json:"data"`
}

type matchItem struct {
	ID          int64       `json:"id"`
	DivisionID  int64       `json:"division_id"`
	StartTime   string      `json:"start_time"`
	FinishedAt  string      `json:"finished_at"`
	BestOf      int         `json:"best_of"`
	Round       string      `json:"round"`
	WinningSide string      `json:"winning_side"`
	Signup1     signupItem  `json:"signup1"`
	Signup2     signupItem  `json:"signup2"`
	Videos      []videoItem `json:"videos"`
}

type signupItem struct {
	Team    teamRef `json:"team"`
	MapsWon *int    `json:"maps_won"`
}

type teamRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Logo string `json:"logo"`
}

type videoItem struct {
	Source   string `json:"source"`
	RemoteID string `json:"remote_id"`
}
