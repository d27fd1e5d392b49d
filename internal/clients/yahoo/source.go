package yahoo

import (
	"fmt"
	"net/http"

	"github.com/aristath/storable/internal/config"
	"github.com/aristath/storable/internal/domain"
	"github.com/rs/zerolog"
)

// NewPriceSource builds the price source selected by configuration
func NewPriceSource(cfg *config.Config, log zerolog.Logger) (domain.PriceSource, error) {
	switch cfg.PriceSource {
	case config.PriceSourceChart:
		return NewChartClient(cfg.YahooBaseURL, log,
			WithHTTPClient(&http.Client{Timeout: cfg.FetchTimeout}),
			WithRetries(cfg.YahooMaxRetries, cfg.YahooBackoff),
		), nil
	case config.PriceSourceNative:
		return NewNativeClient(log), nil
	default:
		return nil, fmt.Errorf("unknown price source %q", cfg.PriceSource)
	}
}
