package store

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"github.com/STTM-NSU/options-tracker/internal/model"
)

type Label string

const (
	Account       Label = "ACCOUNT"
	OptionOrders  Label = "OPTION_ORDERS"
	OpenPositions Label = "OPENPOSITIONS"
	Positions     Label = "POSITIONS"
	Quote         Label = "QUOTE"
)

// Mutation is one committed change, as seen by subscribers.
type Mutation struct {
	Label   Label
	Payload any
}

type Subscriber func(Mutation)

// State is a point-in-time copy of the store.
type State struct {
	Accounts      []model.Account                   `json:"account"`
	Orders        []model.Order                     `json:"option_orders"`
	OpenPositions []model.OptionPosition            `json:"openposition"`
	Positions     map[string]model.EnrichedPosition `json:"positions"`
	Quotes        model.Quotes                      `json:"quotes"`
}

// Store serializes commits and hands copies to readers.
type Store struct {
	mu    sync.RWMutex
	state State

	subsMu      sync.RWMutex
	subscribers []Subscriber
}

func New() *Store {
	return &Store{
		state: State{
			Positions: make(map[string]model.EnrichedPosition),
			Quotes:    make(model.Quotes),
		},
	}
}

// Subscribe registers fn to be called after every commit, on the committing
// goroutine.
func (s *Store) Subscribe(fn Subscriber) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Commit applies a mutation. The payload type must match the label.
func (s *Store) Commit(label Label, payload any) error {
	if err := s.apply(label, payload); err != nil {
		return err
	}

	s.subsMu.RLock()
	subs := slices.Clone(s.subscribers)
	s.subsMu.RUnlock()

	for _, fn := range subs {
		fn(Mutation{Label: label, Payload: payload})
	}

	return nil
}

func (s *Store) apply(label Label, payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch label {
	case Account:
		v, ok := payload.([]model.Account)
		if !ok {
			return payloadError(label, payload)
		}
		s.state.Accounts = slices.Clone(v)
	case OptionOrders:
		v, ok := payload.([]model.Order)
		if !ok {
			return payloadError(label, payload)
		}
		s.state.Orders = slices.Clone(v)
	case OpenPositions:
		v, ok := payload.([]model.OptionPosition)
		if !ok {
			return payloadError(label, payload)
		}
		s.state.OpenPositions = slices.Clone(v)
	case Positions:
		v, ok := payload.(model.EnrichedPosition)
		if !ok {
			return payloadError(label, payload)
		}
		s.state.Positions[v.Key()] = v
	case Quote:
		v, ok := payload.(model.Quotes)
		if !ok {
			return payloadError(label, payload)
		}
		for symbol, q := range v {
			s.state.Quotes[symbol] = q
		}
	default:
		return fmt.Errorf("unknown mutation %s", label)
	}

	return nil
}

func payloadError(label Label, payload any) error {
	return fmt.Errorf("unexpected payload %T for %s", payload, label)
}

func (s *Store) OpenPositions() []model.OptionPosition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.state.OpenPositions)
}

func (s *Store) Position(key string) (model.EnrichedPosition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.state.Positions[key]
	return p, ok
}

func (s *Store) Positions() []model.EnrichedPosition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	positions := make([]model.EnrichedPosition, 0, len(s.state.Positions))
	for _, p := range s.state.Positions {
		positions = append(positions, p)
	}
	slices.SortFunc(positions, func(a, b model.EnrichedPosition) int {
		return cmp.Or(cmp.Compare(a.TDAPI, b.TDAPI), cmp.Compare(a.Key(), b.Key()))
	})
	return positions
}

func (s *Store) Quotes() model.Quotes {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quotes := make(model.Quotes, len(s.state.Quotes))
	for k, v := range s.state.Quotes {
		quotes[k] = v
	}
	return quotes
}

func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	positions := make(map[string]model.EnrichedPosition, len(s.state.Positions))
	for k, v := range s.state.Positions {
		positions[k] = v
	}
	quotes := make(model.Quotes, len(s.state.Quotes))
	for k, v := range s.state.Quotes {
		quotes[k] = v
	}

	return State{
		Accounts:      slices.Clone(s.state.Accounts),
		Orders:        slices.Clone(s.state.Orders),
		OpenPositions: slices.Clone(s.state.OpenPositions),
		Positions:     positions,
		Quotes:        quotes,
	}
}
