package robinhood

import (
	"context"
	"fmt"
	"net/http"

	"github.com/STTM-NSU/options-tracker/internal/model"
	"resty.dev/v3"
)

const (
	_accountsURL         = "/accounts/"
	_optionsOrdersURL    = "/options/orders/"
	_optionsPositionsURL = "/options/positions/"

	_maxPages = 100
)

// Session is an authenticated view of the Client.
type Session struct {
	client *Client
	token  string
}

func (s *Session) request(ctx context.Context) *resty.Request {
	s.client.rateLimiter.Take()
	return s.client.c.R().
		SetContext(ctx).
		SetAuthToken(s.token).
		SetError(&ErrorResponse{})
}

func (s *Session) check(resp *resty.Response, what string) error {
	s.client.logger.Debugf("got response %s status: %s, %s", resp.Request.URL, resp.Status(), resp.Duration())

	if resp.IsSuccess() {
		return nil
	}

	e, _ := resp.Error().(*ErrorResponse)
	if resp.StatusCode() == http.StatusUnauthorized {
		s.client.invalidate(s.token)
		return fmt.Errorf("%w: %s", ErrUnauthorized, e.message())
	}
	if resp.IsError() {
		return fmt.Errorf("%s: %s request error %s", e.message(), what, resp.Status())
	}

	return fmt.Errorf("%s unexpected request error: %s", what, resp.Status())
}

func (s *Session) Accounts(ctx context.Context) ([]model.Account, error) {
	return getAll[model.Account](ctx, s, _accountsURL, "accounts")
}

func (s *Session) Orders(ctx context.Context) ([]model.Order, error) {
	return getAll[model.Order](ctx, s, _optionsOrdersURL, "option orders")
}

func (s *Session) OptionsPositions(ctx context.Context) ([]model.OptionPosition, error) {
	return getAll[model.OptionPosition](ctx, s, _optionsPositionsURL, "option positions")
}

// getAll follows next links until the last page.
func getAll[T any](ctx context.Context, s *Session, url, what string) ([]T, error) {
	var all []T
	next := url
	for page := 0; next != ""; page++ {
		if page >= _maxPages {
			return nil, fmt.Errorf("%s: more than %d pages", what, _maxPages)
		}

		result := &model.Page[T]{}
		resp, err := s.request(ctx).SetResult(result).Get(next)
		if err != nil {
			return nil, fmt.Errorf("%w: can't send request for %s", err, what)
		}
		err = s.check(resp, what)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}

		all = append(all, result.Results...)

		next = ""
		if result.Next != nil {
			next = *result.Next
		}
	}

	return all, nil
}
