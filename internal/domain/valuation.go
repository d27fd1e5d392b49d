package domain

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// Round2 rounds to the stored value precision
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(ValuePrecision)
}

// PriceFromFloat converts a source price to stored precision. The exact binary value
// is rounded half to even, as fixed-point formatting does, so 2.675 becomes 2.67.
// f must be finite.
func PriceFromFloat(f float64) decimal.Decimal {
	return decimal.RequireFromString(strconv.FormatFloat(f, 'f', int(ValuePrecision), 64))
}

// Valuate computes the valuation line for a holding on a date.
// Cash is valued at face (quantity); any other holding needs a quote for the date.
// ok is false when the holding has no computable value and must be excluded.
func Valuate(date TradingDate, h Holding, quote *Quote) (line ValuationLine, ok bool) {
	line = ValuationLine{
		Date:             date,
		InstrumentName:   h.Instrument.Name,
		InstrumentSymbol: h.Instrument.Symbol,
		Quantity:         h.Quantity,
	}

	if h.Instrument.IsCash() {
		v := Round2(h.Quantity)
		line.OpenValue, line.HighValue, line.LowValue, line.CloseValue = v, v, v, v
		return line, true
	}

	if quote == nil || quote.InstrumentID != h.Instrument.ID || !quote.Date.Equal(date) {
		return ValuationLine{}, false
	}

	line.OpenValue = Round2(quote.Open.Mul(h.Quantity))
	line.HighValue = Round2(quote.High.Mul(h.Quantity))
	line.LowValue = Round2(quote.Low.Mul(h.Quantity))
	line.CloseValue = Round2(quote.Close.Mul(h.Quantity))
	return line, true
}

// Summarize sums valuation lines into the portfolio total for a date.
// Lines for other dates are ignored.
func Summarize(date TradingDate, lines []ValuationLine) ReportSummary {
	summary := ReportSummary{
		Date:       date,
		OpenValue:  decimal.Zero,
		HighValue:  decimal.Zero,
		LowValue:   decimal.Zero,
		CloseValue: decimal.Zero,
	}
	for _, l := range lines {
		if !l.Date.Equal(date) {
			continue
		}
		summary.OpenValue = summary.OpenValue.Add(l.OpenValue)
		summary.HighValue = summary.HighValue.Add(l.HighValue)
		summary.LowValue = summary.LowValue.Add(l.LowValue)
		summary.CloseValue = summary.CloseValue.Add(l.CloseValue)
	}
	return summary
}
