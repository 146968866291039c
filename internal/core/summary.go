package core

import "github.com/shopspring/decimal"

// Tone classifies a balance row for coloring.
type Tone string

const (
	TonePositive Tone = "positive" // operator pays the producer
	ToneNegative Tone = "negative" // producer still owes the operator
	ToneNeutral  Tone = "neutral"
)

// ToneOf returns the tone of a net balance.
func ToneOf(net decimal.Decimal) Tone {
	switch net.Sign() {
	case 1:
		return TonePositive
	case -1:
		return ToneNegative
	default:
		return ToneNeutral
	}
}

// Summarize computes the three headline figures.
//
// CashOut is what actually leaves the operator's account. Compensated is
// sales money kept to cover fee debts. OutstandingDebt is what producers
// still owe after compensation.
func Summarize(balances []TitleBalance) Summary {
	sum := Summary{
		CashOut:         decimal.Zero,
		Compensated:     decimal.Zero,
		OutstandingDebt: decimal.Zero,
	}

	for _, b := range balances {
		switch b.Net.Sign() {
		case 1:
			sum.CashOut = sum.CashOut.Add(b.Net)
		case -1:
			sum.Compensated = sum.Compensated.Add(b.Credit)
			sum.OutstandingDebt = sum.OutstandingDebt.Add(b.Net.Abs())
		default:
			sum.Compensated = sum.Compensated.Add(b.Credit)
		}
	}

	return sum
}
