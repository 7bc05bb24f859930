package robinhood

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/STTM-NSU/options-tracker/internal/config"
	"github.com/STTM-NSU/options-tracker/internal/logger"
	"github.com/STTM-NSU/options-tracker/internal/tools"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

const (
	_tokenURL = "/oauth2/token/"

	_tokenLifetime = 24 * time.Hour
	_expiryMargin  = 1 * time.Minute
)

var (
	ErrUnauthorized = errors.New("robinhood unauthorized")
	ErrMFARequired  = errors.New("robinhood mfa required")
)

type ErrorResponse struct {
	Detail      string `json:"detail"`
	Error       string `json:"error"`
	MFARequired bool   `json:"mfa_required"`
}

func (e *ErrorResponse) message() string {
	if e == nil {
		return "unknown"
	}
	if e.Detail != "" {
		return e.Detail
	}
	if e.Error != "" {
		return e.Error
	}
	return "unknown"
}

type tokenRequest struct {
	GrantType   string `json:"grant_type"`
	Scope       string `json:"scope"`
	ClientID    string `json:"client_id"`
	ExpiresIn   int    `json:"expires_in"`
	DeviceToken string `json:"device_token"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	MFACode     string `json:"mfa_code,omitempty"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
	MFARequired bool   `json:"mfa_required"`
	MFAType     string `json:"mfa_type"`
}

// Client talks to the unofficial Robinhood REST API. Every pipeline stage
// calls Login; the access token is reused until it expires.
type Client struct {
	c           *resty.Client
	cfg         config.BrokerConfig
	creds       config.Credentials
	rateLimiter ratelimit.Limiter
	instruments *cache.Cache

	logger logger.Logger

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func NewClient(cfg config.BrokerConfig, creds config.Credentials, logger logger.Logger) *Client {
	if creds.DeviceToken == "" {
		creds.DeviceToken = uuid.NewString()
	}

	return &Client{
		c:           tools.NewRestyClient(cfg.Address, cfg.Timeout, logger),
		cfg:         cfg,
		creds:       creds,
		rateLimiter: ratelimit.New(cfg.RequestsPerMinute, ratelimit.Per(1*time.Minute)),
		instruments: cache.New(cfg.InstrumentCacheTTL, 2*cfg.InstrumentCacheTTL),
		logger:      logger,
	}
}

func (c *Client) Close() error {
	return c.c.Close()
}

// Login returns a session bound to a valid access token.
func (c *Client) Login(ctx context.Context) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.expiresAt) {
		return &Session{client: c, token: c.token}, nil
	}

	token, expiresIn, err := c.fetchToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: can't login", err)
	}

	c.token = token
	c.expiresAt = time.Now().Add(expiresIn - _expiryMargin)
	c.logger.Debugf("logged in to robinhood, token valid until %s", c.expiresAt)

	return &Session{client: c, token: token}, nil
}

func (c *Client) fetchToken(ctx context.Context) (string, time.Duration, error) {
	c.rateLimiter.Take()
	resp, err := c.c.R().
		SetContext(ctx).
		SetBody(tokenRequest{
			GrantType:   "password",
			Scope:       "internal",
			ClientID:    c.cfg.ClientID,
			ExpiresIn:   int(_tokenLifetime.Seconds()),
			DeviceToken: c.creds.DeviceToken,
			Username:    c.creds.Username,
			Password:    c.creds.Password,
			MFACode:     c.creds.MFACode,
		}).
		SetResult(&tokenResponse{}).
		SetError(&ErrorResponse{}).
		Post(_tokenURL)
	if err != nil {
		return "", 0, fmt.Errorf("%w: can't send token request", err)
	}
	defer resp.Body.Close()

	if resp.IsError() {
		e, _ := resp.Error().(*ErrorResponse)
		if e != nil && e.MFARequired {
			return "", 0, ErrMFARequired
		}
		if resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusBadRequest {
			return "", 0, fmt.Errorf("%w: %s", ErrUnauthorized, e.message())
		}
		return "", 0, fmt.Errorf("%s: token request error %s", e.message(), resp.Status())
	}

	result := resp.Result().(*tokenResponse)
	if result.MFARequired {
		return "", 0, fmt.Errorf("%w: type %s", ErrMFARequired, result.MFAType)
	}
	if result.AccessToken == "" {
		return "", 0, fmt.Errorf("empty access token")
	}

	expiresIn := time.Duration(result.ExpiresIn) * time.Second
	if expiresIn <= _expiryMargin {
		expiresIn = _tokenLifetime
	}

	return result.AccessToken, expiresIn, nil
}

// invalidate drops the cached token if it is still the one that got rejected.
func (c *Client) invalidate(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == token {
		c.token = ""
		c.expiresAt = time.Time{}
	}
}
