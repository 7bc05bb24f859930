package storage

import (
	"context"
	"fmt"

	"github.com/STTM-NSU/options-tracker/internal/model"
)

const (
	_upsertPosition = `INSERT INTO option_positions (
								position_key,
								position_id,
								account,
								option,
								chain_symbol,
								side,
								type,
								quantity,
								average_price,
								strike_price,
								expiration_date,
								tdapi,
								price, delta, gamma, theta, vega, imp_vol,
								pos_delta, pos_gamma, pos_theta, pos_vega,
								netliq, gainloss, costbasis,
								days_to_expiration, underlying_price,
								recorded_at
							) VALUES (
								:position_key, :position_id, :account, :option, :chain_symbol,
								:side, :type, :quantity, :average_price, :strike_price,
								:expiration_date, :tdapi,
								:price, :delta, :gamma, :theta, :vega, :imp_vol,
								:pos_delta, :pos_gamma, :pos_theta, :pos_vega,
								:netliq, :gainloss, :costbasis,
								:days_to_expiration, :underlying_price,
								now()
							)
							ON CONFLICT (position_key)
							DO UPDATE SET
								position_id = EXCLUDED.position_id,
								account = EXCLUDED.account,
								option = EXCLUDED.option,
								chain_symbol = EXCLUDED.chain_symbol,
								side = EXCLUDED.side,
								type = EXCLUDED.type,
								quantity = EXCLUDED.quantity,
								average_price = EXCLUDED.average_price,
								strike_price = EXCLUDED.strike_price,
								expiration_date = EXCLUDED.expiration_date,
								tdapi = EXCLUDED.tdapi,
								price = EXCLUDED.price,
								delta = EXCLUDED.delta,
								gamma = EXCLUDED.gamma,
								theta = EXCLUDED.theta,
								vega = EXCLUDED.vega,
								imp_vol = EXCLUDED.imp_vol,
								pos_delta = EXCLUDED.pos_delta,
								pos_gamma = EXCLUDED.pos_gamma,
								pos_theta = EXCLUDED.pos_theta,
								pos_vega = EXCLUDED.pos_vega,
								netliq = EXCLUDED.netliq,
								gainloss = EXCLUDED.gainloss,
								costbasis = EXCLUDED.costbasis,
								days_to_expiration = EXCLUDED.days_to_expiration,
								underlying_price = EXCLUDED.underlying_price,
								recorded_at = EXCLUDED.recorded_at;`
	_upsertQuote = `INSERT INTO option_quotes (
								symbol, mark, bid, ask, last_price,
								delta, gamma, theta, vega, volatility,
								days_to_expiration, underlying_price, recorded_at
							) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,now())
							ON CONFLICT (symbol)
							DO UPDATE SET
								mark = EXCLUDED.mark,
								bid = EXCLUDED.bid,
								ask = EXCLUDED.ask,
								last_price = EXCLUDED.last_price,
								delta = EXCLUDED.delta,
								gamma = EXCLUDED.gamma,
								theta = EXCLUDED.theta,
								vega = EXCLUDED.vega,
								volatility = EXCLUDED.volatility,
								days_to_expiration = EXCLUDED.days_to_expiration,
								underlying_price = EXCLUDED.underlying_price,
								recorded_at = EXCLUDED.recorded_at;`
)

type positionRow struct {
	PositionKey string `db:"position_key"`
	model.EnrichedPosition
}

// Flush writes everything buffered since the last flush. Records that
// failed to write stay buffered for the next attempt.
func (r *Recorder) Flush(ctx context.Context) error {
	positions, quotes := r.take()
	if len(positions) == 0 && len(quotes) == 0 {
		return nil
	}
	nPositions, nQuotes := len(positions), len(quotes)

	for symbol, q := range quotes {
		if _, err := r.db.ExecContext(ctx, _upsertQuote,
			symbol,
			q.Mark,
			q.Bid,
			q.Ask,
			q.LastPrice,
			q.Delta,
			q.Gamma,
			q.Theta,
			q.Vega,
			q.Volatility,
			q.DaysToExpiration,
			q.UnderlyingPrice,
		); err != nil {
			r.putBack(positions, quotes)
			return fmt.Errorf("%w: can't upsert quote %s", err, symbol)
		}
		delete(quotes, symbol)
	}

	for key, p := range positions {
		if _, err := r.db.NamedExecContext(ctx, _upsertPosition, positionRow{PositionKey: key, EnrichedPosition: p}); err != nil {
			r.putBack(positions, quotes)
			return fmt.Errorf("%w: can't upsert position %s", err, key)
		}
		delete(positions, key)
	}

	r.logger.Debugf("flushed %d positions and %d quotes", nPositions, nQuotes)
	return nil
}
