package pipeline

import (
	"context"
	"sync"

	"github.com/STTM-NSU/options-tracker/internal/logger"
	"github.com/STTM-NSU/options-tracker/internal/model"
	"github.com/STTM-NSU/options-tracker/internal/store"
)

// Stage names, as they appear in logs and error reports.
const (
	StageFetchAccountData    = "fetchAccountData"
	StageFetchOptionLegs     = "fetchOptionLegs"
	StageFetchInstrumentData = "fetchRobinhoodInstrumentData"
	StageProcessOptionData   = "processRobinhoodOptionData"
	StageFetchQuoteData      = "fetchQuoteData"
	StageRefreshQuoteData    = "refreshQuoteData"
	StageRefreshQuote        = "refreshQuote"
)

type BrokerSession interface {
	Accounts(ctx context.Context) ([]model.Account, error)
	Orders(ctx context.Context) ([]model.Order, error)
	OptionsPositions(ctx context.Context) ([]model.OptionPosition, error)
	OptionsInstrument(ctx context.Context, instrumentURL string) (model.OptionInstrument, error)
}

type Broker interface {
	Login(ctx context.Context) (BrokerSession, error)
}

// BrokerFunc adapts a login function to Broker.
type BrokerFunc func(ctx context.Context) (BrokerSession, error)

func (f BrokerFunc) Login(ctx context.Context) (BrokerSession, error) {
	return f(ctx)
}

type QuoteProvider interface {
	GetQuote(ctx context.Context, symbol string) (model.Quotes, error)
}

type Store interface {
	Commit(label store.Label, payload any) error
	OpenPositions() []model.OptionPosition
	Position(key string) (model.EnrichedPosition, bool)
}

// ErrorHandler receives errors of dispatched stages, which have no caller to
// return to.
type ErrorHandler func(stage string, err error)

// Pipeline fetches account, positions, instruments and quotes and commits
// the results to a Store. Stages trigger each other through dispatch; there
// is no barrier between the chains of different positions.
type Pipeline struct {
	broker Broker
	quotes QuoteProvider
	store  Store

	logger  logger.Logger
	onError ErrorHandler

	wg sync.WaitGroup
}

func NewPipeline(broker Broker, quotes QuoteProvider, store Store, logger logger.Logger) *Pipeline {
	return &Pipeline{
		broker: broker,
		quotes: quotes,
		store:  store,
		logger: logger,
	}
}

// OnError sets the handler for failed dispatched stages. Call before the
// first Sync or Refresh.
func (p *Pipeline) OnError(h ErrorHandler) {
	p.onError = h
}

// Sync starts a full run from the account fetch and returns immediately.
func (p *Pipeline) Sync(ctx context.Context) {
	p.dispatch(ctx, StageFetchAccountData, p.FetchAccountData)
}

// Refresh starts a quote-only refresh and returns immediately.
func (p *Pipeline) Refresh(ctx context.Context) {
	p.dispatch(ctx, StageRefreshQuoteData, func(ctx context.Context) error {
		p.RefreshQuoteData(ctx)
		return nil
	})
}

// Wait blocks until every dispatched stage finished. It exists for shutdown
// and tests, stages never wait on each other.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// dispatch runs fn on its own goroutine. Once dispatched a chain runs to
// completion: cancelling the caller's context doesn't stop it.
func (p *Pipeline) dispatch(ctx context.Context, stage string, fn func(ctx context.Context) error) {
	ctx = context.WithoutCancel(ctx)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := fn(ctx); err != nil {
			p.report(stage, err)
		}
	}()
}

func (p *Pipeline) report(stage string, err error) {
	p.logger.Errorf("%s: stage %s failed", err, stage)
	if p.onError != nil {
		p.onError(stage, err)
	}
}
