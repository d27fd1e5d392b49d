// Package quotes fetches daily prices for tracked instruments and records them.
package quotes

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aristath/storable/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Record is a normalized quote ready to persist, tagged with its symbol for diagnostics
type Record struct {
	Symbol string
	Quote  domain.Quote
}

// FetchFailure is an instrument whose fetch failed for a reason other than missing data
type FetchFailure struct {
	Symbol string
	Err    error
}

// IngestResult is the outcome of one ingestion pass, in instrument order
type IngestResult struct {
	Records []Record
	Skipped []string       // symbols with no data for the date
	Failed  []FetchFailure // symbols whose fetch errored
}

// Ingestor fetches one day's bar per instrument from a price source
type Ingestor struct {
	source      domain.PriceSource
	timeout     time.Duration
	concurrency int
	log         zerolog.Logger
}

// NewIngestor creates an ingestor. timeout bounds each fetch; concurrency bounds parallel fetches.
func NewIngestor(source domain.PriceSource, timeout time.Duration, concurrency int, log zerolog.Logger) *Ingestor {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Ingestor{
		source:      source,
		timeout:     timeout,
		concurrency: concurrency,
		log:         log.With().Str("component", "quote_ingestor").Logger(),
	}
}

type outcome struct {
	record  *Record
	noData  bool
	failure error
}

// Ingest requests the bar for date from the source for every instrument.
// One instrument's missing data or failure never stops the others.
func (i *Ingestor) Ingest(ctx context.Context, date domain.TradingDate, instruments []domain.Instrument) IngestResult {
	outcomes := make([]outcome, len(instruments))

	var g errgroup.Group
	g.SetLimit(i.concurrency)
	for idx, inst := range instruments {
		g.Go(func() error {
			outcomes[idx] = i.fetchOne(ctx, date, inst)
			return nil
		})
	}
	_ = g.Wait()

	result := IngestResult{Records: make([]Record, 0, len(instruments))}
	for idx, o := range outcomes {
		symbol := instruments[idx].Symbol
		switch {
		case o.record != nil:
			result.Records = append(result.Records, *o.record)
		case o.noData:
			result.Skipped = append(result.Skipped, symbol)
		default:
			result.Failed = append(result.Failed, FetchFailure{Symbol: symbol, Err: o.failure})
		}
	}

	i.log.Info().
		Str("date", date.String()).
		Int("fetched", len(result.Records)).
		Int("skipped", len(result.Skipped)).
		Int("failed", len(result.Failed)).
		Msg("Quote ingestion complete")

	return result
}

func (i *Ingestor) fetchOne(ctx context.Context, date domain.TradingDate, inst domain.Instrument) outcome {
	log := i.log.With().Str("symbol", inst.Symbol).Str("date", date.String()).Logger()

	fetchCtx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	bars, err := i.source.Fetch(fetchCtx, inst.Symbol, date.Start(), date.Next().Start())
	if err == nil && len(bars) == 0 {
		err = domain.ErrNoData
	}
	if err != nil {
		if errors.Is(err, domain.ErrNoData) {
			log.Warn().Str("reason", "no_data").Msgf(
				"No data for %s on %s: check that %s is a trading day, not in the future, and %s is a valid symbol",
				inst.Symbol, date, date, inst.Symbol)
			return outcome{noData: true}
		}
		log.Error().Err(err).Str("reason", "fetch_failed").Msg("Failed to fetch quote")
		return outcome{failure: err}
	}

	if len(bars) > 1 {
		log.Debug().Int("bars", len(bars)).Msg("Source returned several bars, using the first")
	}

	quote, err := toQuote(inst.ID, bars[0])
	if err != nil {
		log.Error().Err(err).Str("reason", "fetch_failed").Msg("Malformed bar")
		return outcome{failure: err}
	}

	if valid, reason := ValidateQuote(quote); !valid {
		log.Warn().Str("check", reason).Msg("Source returned an inconsistent bar")
	}

	if !quote.Date.Equal(date) {
		log.Warn().Str("bar_date", quote.Date.String()).Msg("Source dated the bar differently from the request")
	}

	log.Debug().
		Str("open", quote.Open.StringFixed(domain.ValuePrecision)).
		Str("close", quote.Close.StringFixed(domain.ValuePrecision)).
		Msg("Fetched quote")

	return outcome{record: &Record{Symbol: inst.Symbol, Quote: quote}}
}

// toQuote rounds a bar to stored precision. The date comes from the bar itself.
func toQuote(instrumentID int64, bar domain.Bar) (domain.Quote, error) {
	prices := []float64{bar.Open, bar.High, bar.Low, bar.Close}
	for _, p := range prices {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return domain.Quote{}, fmt.Errorf("non-finite price in bar dated %s", bar.Date.Format(time.RFC3339))
		}
	}
	if bar.Date.IsZero() {
		return domain.Quote{}, fmt.Errorf("bar has no date")
	}

	return domain.Quote{
		Date:         domain.DateOf(bar.Date),
		InstrumentID: instrumentID,
		Open:         domain.PriceFromFloat(bar.Open),
		High:         domain.PriceFromFloat(bar.High),
		Low:          domain.PriceFromFloat(bar.Low),
		Close:        domain.PriceFromFloat(bar.Close),
	}, nil
}
