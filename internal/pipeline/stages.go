package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/STTM-NSU/options-tracker/internal/model"
	"github.com/STTM-NSU/options-tracker/internal/store"
)

// FetchAccountData logs in and fetches accounts and orders side by side.
// Each result is committed as soon as it arrives; a committed account
// dispatches the position fetch.
func (p *Pipeline) FetchAccountData(ctx context.Context) error {
	session, err := p.broker.Login(ctx)
	if err != nil {
		return fmt.Errorf("%w: can't login for account data", err)
	}

	var (
		wg                     sync.WaitGroup
		accountsErr, ordersErr error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		accountsErr = p.fetchAccounts(ctx, session)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		ordersErr = p.fetchOrders(ctx, session)
	}()

	wg.Wait()

	return errors.Join(accountsErr, ordersErr)
}

func (p *Pipeline) fetchAccounts(ctx context.Context, session BrokerSession) error {
	accounts, err := session.Accounts(ctx)
	if err != nil {
		return fmt.Errorf("%w: can't get accounts", err)
	}

	if err := p.store.Commit(store.Account, accounts); err != nil {
		return fmt.Errorf("%w: can't commit accounts", err)
	}
	p.logger.Infof("got %d accounts", len(accounts))

	p.dispatch(ctx, StageFetchOptionLegs, p.FetchOptionLegs)
	return nil
}

func (p *Pipeline) fetchOrders(ctx context.Context, session BrokerSession) error {
	orders, err := session.Orders(ctx)
	if err != nil {
		return fmt.Errorf("%w: can't get option orders", err)
	}

	if err := p.store.Commit(store.OptionOrders, orders); err != nil {
		return fmt.Errorf("%w: can't commit option orders", err)
	}
	p.logger.Debugf("got %d option orders", len(orders))

	return nil
}

// FetchOptionLegs commits the open legs with signed quantities and dispatches
// an instrument fetch per leg.
func (p *Pipeline) FetchOptionLegs(ctx context.Context) error {
	session, err := p.broker.Login(ctx)
	if err != nil {
		return fmt.Errorf("%w: can't login for option positions", err)
	}

	positions, err := session.OptionsPositions(ctx)
	if err != nil {
		return fmt.Errorf("%w: can't get option positions", err)
	}

	open := model.FilterOpen(positions)
	for i := range open {
		open[i].Normalize()
	}

	if err := p.store.Commit(store.OpenPositions, open); err != nil {
		return fmt.Errorf("%w: can't commit open positions", err)
	}
	p.logger.Infof("got %d option positions, %d open", len(positions), len(open))

	for _, position := range open {
		p.dispatch(ctx, StageFetchInstrumentData, func(ctx context.Context) error {
			return p.FetchInstrumentData(ctx, position)
		})
	}

	return nil
}

// FetchInstrumentData merges a single leg with its instrument.
func (p *Pipeline) FetchInstrumentData(ctx context.Context, position model.OptionPosition) error {
	session, err := p.broker.Login(ctx)
	if err != nil {
		return fmt.Errorf("%w: can't login for instrument %s", err, position.Option)
	}

	instrument, err := session.OptionsInstrument(ctx, position.Option)
	if err != nil {
		return fmt.Errorf("%w: can't get instrument for position %s", err, position.ID)
	}

	merged := model.Merge(position, instrument)
	p.dispatch(ctx, StageProcessOptionData, func(ctx context.Context) error {
		return p.ProcessOptionData(ctx, merged)
	})

	return nil
}

// ProcessOptionData derives the quote symbol and dispatches the quote fetch.
func (p *Pipeline) ProcessOptionData(ctx context.Context, position model.EnrichedPosition) error {
	keyed := position.WithQuoteSymbol()
	p.logger.Debugf("position %s keyed as %s", keyed.Key(), keyed.TDAPI)

	p.dispatch(ctx, StageFetchQuoteData, func(ctx context.Context) error {
		return p.FetchQuoteData(ctx, keyed)
	})

	return nil
}

// FetchQuoteData commits the raw quote, then the position with analytics. A
// symbol missing from the response leaves NaN analytics and is still
// committed.
func (p *Pipeline) FetchQuoteData(ctx context.Context, position model.EnrichedPosition) error {
	quotes, err := p.quotes.GetQuote(ctx, position.TDAPI)
	if err != nil {
		return fmt.Errorf("%w: can't get quote for %s", err, position.TDAPI)
	}

	if err := p.store.Commit(store.Quote, quotes); err != nil {
		return fmt.Errorf("%w: can't commit quote", err)
	}

	quote, ok := quotes.Lookup(position.TDAPI)
	if !ok {
		p.logger.Warnf("no quote for %s", position.TDAPI)
	}

	position.Analytics = model.ComputeAnalytics(position.Quantity, position.AveragePrice, quote)

	if err := p.store.Commit(store.Positions, position); err != nil {
		return fmt.Errorf("%w: can't commit position %s", err, position.Key())
	}

	return nil
}

// RefreshQuoteData re-fetches the quote of every open leg that already has a
// symbol and commits only the quotes. It returns how many fetches it started.
func (p *Pipeline) RefreshQuoteData(ctx context.Context) int {
	dispatched := 0
	for _, open := range p.store.OpenPositions() {
		position, ok := p.store.Position(open.ID)
		if !ok || position.TDAPI == "" {
			p.logger.Debugf("position %s has no quote symbol yet", open.ID)
			continue
		}

		symbol := position.TDAPI
		p.dispatch(ctx, StageRefreshQuote, func(ctx context.Context) error {
			quotes, err := p.quotes.GetQuote(ctx, symbol)
			if err != nil {
				return fmt.Errorf("%w: can't refresh quote for %s", err, symbol)
			}
			if err := p.store.Commit(store.Quote, quotes); err != nil {
				return fmt.Errorf("%w: can't commit quote", err)
			}
			return nil
		})
		dispatched++
	}

	return dispatched
}
