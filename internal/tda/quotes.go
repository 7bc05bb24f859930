package tda

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/STTM-NSU/options-tracker/internal/config"
	"github.com/STTM-NSU/options-tracker/internal/logger"
	"github.com/STTM-NSU/options-tracker/internal/model"
	"github.com/STTM-NSU/options-tracker/internal/tools"
	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

const (
	_quotesURL = "/v1/marketdata/quotes"
)

var ErrEmptySymbol = errors.New("empty quote symbol")

type ErrorResponse struct {
	Error string `json:"error"`
}

type QuoteService struct {
	c           *resty.Client
	cfg         config.QuotesConfig
	rateLimiter ratelimit.Limiter

	logger logger.Logger
}

func NewQuoteService(cfg config.QuotesConfig, logger logger.Logger) *QuoteService {
	return &QuoteService{
		c:           tools.NewRestyClient(cfg.Address, cfg.Timeout, logger),
		cfg:         cfg,
		rateLimiter: ratelimit.New(cfg.RequestsPerMinute, ratelimit.Per(1*time.Minute)),
		logger:      logger,
	}
}

func (s *QuoteService) Close() error {
	return s.c.Close()
}

// curl -X GET "https://api.tdameritrade.com/v1/marketdata/quotes?apikey=KEY&symbol=XYZ_031524P50"
// An unknown symbol is not an error: the provider answers with an empty map.
func (s *QuoteService) GetQuote(ctx context.Context, symbol string) (model.Quotes, error) {
	if symbol == "" {
		return nil, ErrEmptySymbol
	}

	s.rateLimiter.Take()
	resp, err := s.c.R().
		SetQueryParams(map[string]string{
			"apikey": s.cfg.APIKey,
			"symbol": symbol,
		}).
		SetResult(&model.Quotes{}).
		SetError(&ErrorResponse{}).
		SetContext(ctx).
		Get(_quotesURL)
	if err != nil {
		return nil, fmt.Errorf("%w: can't send request for quote %s", err, symbol)
	}
	defer resp.Body.Close()

	s.logger.Debugf("got response %s status: %s, %s", symbol, resp.Status(), resp.Duration())

	if resp.IsError() {
		response, _ := resp.Error().(*ErrorResponse)
		msg := "unknown"
		if response != nil && response.Error != "" {
			msg = response.Error
		}
		return nil, fmt.Errorf("%s: quote request error %s", msg, resp.Status())
	}
	if resp.IsSuccess() {
		quotes := *resp.Result().(*model.Quotes)
		if quotes == nil {
			quotes = model.Quotes{}
		}
		return quotes, nil
	}

	return nil, fmt.Errorf("quote unexpected request error: %s", resp.Status())
}
