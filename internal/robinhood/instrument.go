package robinhood

import (
	"context"
	"errors"
	"fmt"

	"github.com/STTM-NSU/options-tracker/internal/model"
	"github.com/patrickmn/go-cache"
)

var ErrEmptyInstrumentURL = errors.New("empty option instrument url")

// OptionsInstrument fetches the instrument a position's option field points
// to. Instruments never change once listed, so they are cached by url.
func (s *Session) OptionsInstrument(ctx context.Context, instrumentURL string) (model.OptionInstrument, error) {
	if instrumentURL == "" {
		return model.OptionInstrument{}, ErrEmptyInstrumentURL
	}

	if v, ok := s.client.instruments.Get(instrumentURL); ok {
		return v.(model.OptionInstrument), nil
	}

	result := &model.OptionInstrument{}
	resp, err := s.request(ctx).SetResult(result).Get(instrumentURL)
	if err != nil {
		return model.OptionInstrument{}, fmt.Errorf("%w: can't send request for option instrument", err)
	}
	defer resp.Body.Close()

	if err := s.check(resp, "option instrument"); err != nil {
		return model.OptionInstrument{}, err
	}

	s.client.instruments.Set(instrumentURL, *result, cache.DefaultExpiration)

	return *result, nil
}
