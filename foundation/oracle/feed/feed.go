// Package feed provides access to the reference price feed the verifier
// reads alongside the attested price.
package feed

import (
	"fmt"
	"math/big"
	"sync"
	"time"
)

// RoundData represents one completed pricing round reported by a feed.
type RoundData struct {
	RoundID         uint64   `json:"round_id"`          // Unique id for the round.
	Answer          *big.Int `json:"answer"`            // Price reported for the round.
	StartedAt       uint64   `json:"started_at"`        // When the round was opened.
	UpdatedAt       uint64   `json:"updated_at"`        // When the answer was recorded. Zero means incomplete.
	AnsweredInRound uint64   `json:"answered_in_round"` // Round the answer was computed in.
}

// Reader interface represents the behavior required to be implemented by
// any package providing reference price rounds.
type Reader interface {
	LatestRoundData() (RoundData, error)
}

// =============================================================================

// Aggregator simulates a reference price feed by keeping round bookkeeping
// in memory. Each answer update opens and immediately completes a new round.
type Aggregator struct {
	mu          sync.RWMutex
	decimals    uint8
	description string
	rounds      map[uint64]RoundData
	latest      uint64
}

// NewAggregator constructs an aggregator with no completed rounds. The feed
// reports an incomplete round until the first answer is recorded.
func NewAggregator(decimals uint8, description string) *Aggregator {
	return &Aggregator{
		decimals:    decimals,
		description: description,
		rounds:      make(map[uint64]RoundData),
	}
}

// UpdateAnswer records a new answer in the next round and returns the id
// of that round.
func (agg *Aggregator) UpdateAnswer(answer *big.Int) uint64 {
	agg.mu.Lock()
	defer agg.mu.Unlock()

	now := uint64(time.Now().UTC().Unix())

	agg.latest++
	agg.rounds[agg.latest] = RoundData{
		RoundID:         agg.latest,
		Answer:          new(big.Int).Set(answer),
		StartedAt:       now,
		UpdatedAt:       now,
		AnsweredInRound: agg.latest,
	}

	return agg.latest
}

// LatestRoundData returns the most recent round. When no answer has been
// recorded yet, a zero value round is returned so callers can detect the
// incomplete state through the UpdatedAt field.
func (agg *Aggregator) LatestRoundData() (RoundData, error) {
	agg.mu.RLock()
	defer agg.mu.RUnlock()

	if agg.latest == 0 {
		return RoundData{}, nil
	}

	return agg.rounds[agg.latest], nil
}

// GetRoundData returns the round with the specified id.
func (agg *Aggregator) GetRoundData(roundID uint64) (RoundData, error) {
	agg.mu.RLock()
	defer agg.mu.RUnlock()

	round, exists := agg.rounds[roundID]
	if !exists {
		return RoundData{}, fmt.Errorf("round %d does not exist", roundID)
	}

	return round, nil
}

// Decimals returns the fixed point precision the feed reports answers in.
func (agg *Aggregator) Decimals() uint8 {
	return agg.decimals
}

// Description returns the pair description for the feed.
func (agg *Aggregator) Description() string {
	return agg.description
}
