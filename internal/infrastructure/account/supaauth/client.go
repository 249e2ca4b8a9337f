package supaauth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/n1ckdm/pickems-api/internal/domain/user"
	"github.com/n1ckdm/pickems-api/internal/platform/cache"
	"github.com/n1ckdm/pickems-api/internal/platform/logging"
	"github.com/n1ckdm/pickems-api/internal/usecase"
)

const (
	defaultUserInfoPath = "/auth/v1/user"
	maxUserInfoSize     = 1 << 20
)

// Client resolves access tokens against the Supabase auth userinfo endpoint.
type Client struct {
	httpClient  *http.Client
	userInfoURL string
	apiKey      string
	adminRole   string
	cache       *cache.Store
	cacheTTL    time.Duration
	logger      *logging.Logger
}

type Config struct {
	HTTPClient   *http.Client
	BaseURL      string
	UserInfoPath string
	APIKey       string
	AdminRole    string
	Cache        *cache.Store
	CacheTTL     time.Duration
	Logger       *logging.Logger
}

func NewClient(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}

	path := strings.TrimSpace(cfg.UserInfoPath)
	if path == "" {
		path = defaultUserInfoPath
	}

	adminRole := strings.TrimSpace(cfg.AdminRole)
	if adminRole == "" {
		adminRole = "admin"
	}

	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}

	return &Client{
		httpClient:  httpClient,
		userInfoURL: buildURL(cfg.BaseURL, path),
		apiKey:      strings.TrimSpace(cfg.APIKey),
		adminRole:   adminRole,
		cache:       cfg.Cache,
		cacheTTL:    cacheTTL,
		logger:      logger,
	}
}

func (c *Client) VerifyAccessToken(ctx context.Context, token string) (user.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return user.Principal{}, fmt.Errorf("%w: token is required", usecase.ErrUnauthorized)
	}

	cacheKey := "auth:token:" + hashToken(token)
	if c.cache != nil {
		if cached, ok := c.cache.Get(ctx, cacheKey); ok {
			if principal, ok := cached.(user.Principal); ok {
				return principal, nil
			}
		}
	}

	principal, err := c.fetchUserInfo(ctx, token)
	if err != nil {
		return user.Principal{}, err
	}

	if c.cache != nil {
		c.cache.SetWithTTL(ctx, cacheKey, principal, c.cacheTTL)
	}
	return principal, nil
}

func (c *Client) fetchUserInfo(ctx context.Context, token string) (user.Principal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfoURL, nil)
	if err != nil {
		return user.Principal{}, fmt.Errorf("create userinfo request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return user.Principal{}, fmt.Errorf("request userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return user.Principal{}, fmt.Errorf("%w: token rejected", usecase.ErrUnauthorized)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUserInfoSize))
	if err != nil {
		return user.Principal{}, fmt.Errorf("read userinfo response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.WarnContext(ctx, "auth userinfo non-200",
			"status_code", resp.StatusCode,
		)
		return user.Principal{}, fmt.Errorf("auth userinfo failed with status %d", resp.StatusCode)
	}

	var decoded userInfoResponse
	if err := sonic.Unmarshal(body, &decoded); err != nil {
		return user.Principal{}, fmt.Errorf("unmarshal userinfo response: %w", err)
	}

	if strings.TrimSpace(decoded.ID) == "" {
		return user.Principal{}, fmt.Errorf("invalid userinfo response: id is empty")
	}

	return user.Principal{
		UserID:  decoded.ID,
		Email:   decoded.Email,
		IsAdmin: c.isAdmin(decoded),
	}, nil
}

func (c *Client) isAdmin(decoded userInfoResponse) bool {
	if strings.EqualFold(strings.TrimSpace(decoded.Role), c.adminRole) {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(decoded.AppMetadata.Role), c.adminRole) {
		return true
	}
	for _, role := range decoded.AppMetadata.Roles {
		if strings.EqualFold(strings.TrimSpace(role), c.adminRole) {
			return true
		}
	}
	return false
}

type userInfoResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	AppMetadata struct {
		Role  string   `json:"role"`
		Roles []string `json:"roles"`
	} `json:"app_metadata"`
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func buildURL(baseURL, path string) string {
	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	path = strings.TrimSpace(path)
	if path == "" {
		return baseURL
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return baseURL + path
}
