// Package signal derives a discrete directional signal from an insider
// transaction. The scorer is a deterministic weighted heuristic, not a
// statistical model; its arithmetic is reproduced exactly so downstream
// consumers see stable classifications.
package signal

import (
	"strings"

	"insider-monitor/internal/types"
)

// Transaction code weights.
const (
	weightPurchase = 2
	weightSale     = -1
	weightAward    = 1
)

// Magnitude tiers keyed on total transaction value in dollars.
const (
	largeTradeValue   = 1_000_000
	notableTradeValue = 100_000

	weightLargeTrade   = 2
	weightNotableTrade = 1
)

// Signal thresholds over the summed score.
const (
	strongBuyMin = 5
	buyMin       = 3
	neutralMin   = 0
	sellMin      = -2
)

// seniorityRules score the insider's title. Rules are evaluated in order and
// the first match wins: a CFO who is also a director scores only the CFO
// weight.
var seniorityRules = []struct {
	keywords []string
	weight   int
}{
	{keywords: []string{"ceo", "chief executive"}, weight: 2},
	{keywords: []string{"cfo", "chief financial"}, weight: 2},
	{keywords: []string{"director"}, weight: 1},
}

// Score maps a transaction to its directional signal. It is a pure function
// of the transaction code, total value, and insider title.
func Score(tx types.Transaction) types.Signal {
	score := 0

	switch tx.Code {
	case types.CodePurchase:
		score += weightPurchase
	case types.CodeSale:
		score += weightSale
	case types.CodeAward:
		score += weightAward
	}

	value := tx.TotalValue()
	if value > largeTradeValue {
		score += weightLargeTrade
	} else if value > notableTradeValue {
		score += weightNotableTrade
	}

	score += seniorityWeight(tx.InsiderTitle)

	switch {
	case score >= strongBuyMin:
		return types.SignalStrongBuy
	case score >= buyMin:
		return types.SignalBuy
	case score >= neutralMin:
		return types.SignalNeutral
	case score >= sellMin:
		return types.SignalSell
	default:
		return types.SignalStrongSell
	}
}

func seniorityWeight(title string) int {
	title = strings.ToLower(title)
	for _, rule := range seniorityRules {
		for _, kw := range rule.keywords {
			if strings.Contains(title, kw) {
				return rule.weight
			}
		}
	}
	return 0
}

// ScoreAll attaches signals and computed totals to a batch of transactions.
func ScoreAll(txs []types.Transaction) []types.ScoredTransaction {
	if len(txs) == 0 {
		return nil
	}
	scored := make([]types.ScoredTransaction, 0, len(txs))
	for _, tx := range txs {
		scored = append(scored, types.ScoredTransaction{
			Transaction: tx,
			TotalValue:  tx.TotalValue(),
			Signal:      Score(tx),
		})
	}
	return scored
}
