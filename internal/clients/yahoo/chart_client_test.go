package yahoo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aristath/storable/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const aaplChart = `{
  "chart": {
    "result": [{
      "meta": {"symbol": "AAPL", "gmtoffset": -14400, "exchangeTimezoneName": "America/New_York"},
      "timestamp": [1620048600],
      "indicators": {"quote": [{
        "open": [120.0], "high": [122.0], "low": [119.0], "close": [121.0], "volume": [100]
      }]}
    }],
    "error": null
  }
}`

func newTestChartClient(url string) *ChartClient {
	return NewChartClient(url, zerolog.Nop(), WithRetries(3, time.Millisecond))
}

func TestChartClient_Fetch(t *testing.T) {
	var gotPath, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(aaplChart))
	}))
	defer server.Close()

	client := newTestChartClient(server.URL)
	start := time.Date(2021, 5, 3, 0, 0, 0, 0, time.UTC)

	bars, err := client.Fetch(context.Background(), "AAPL", start, start.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, bars, 1)

	assert.Equal(t, "/v8/finance/chart/AAPL", gotPath)
	assert.Contains(t, gotQuery, "period1=1620000000")
	assert.Contains(t, gotQuery, "period2=1620086400")
	assert.Contains(t, gotQuery, "interval=1d")

	assert.Equal(t, "2021-05-03", domain.DateOf(bars[0].Date).String())
	assert.Equal(t, 120.0, bars[0].Open)
	assert.Equal(t, 122.0, bars[0].High)
	assert.Equal(t, 119.0, bars[0].Low)
	assert.Equal(t, 121.0, bars[0].Close)
}

func TestChartClient_DatesFollowExchangeOffset(t *testing.T) {
	// Midnight in Tokyo is still the previous day in UTC
	body := `{"chart":{"result":[{"meta":{"symbol":"7203.T","gmtoffset":32400},
		"timestamp":[1619967600],
		"indicators":{"quote":[{"open":[1],"high":[2],"low":[0.5],"close":[1.5]}]}}],"error":null}}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	start := time.Date(2021, 5, 3, 0, 0, 0, 0, time.UTC)
	bars, err := newTestChartClient(server.URL).Fetch(context.Background(), "7203.T", start, start.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, "2021-05-03", domain.DateOf(bars[0].Date).String())
}

func TestChartClient_NoData(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		body   string
	}{
		{"empty window", http.StatusOK, `{"chart":{"result":[{"meta":{"gmtoffset":0},"indicators":{"quote":[{}]}}],"error":null}}`},
		{"unknown symbol", http.StatusNotFound, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`},
		{"before first trading day", http.StatusBadRequest, `{"chart":{"result":null,"error":{"code":"Bad Request","description":"Data doesn't exist for startDate = 1619827200, endDate = 1619913600"}}}`},
		{"null prices only", http.StatusOK, `{"chart":{"result":[{"meta":{"gmtoffset":0},"timestamp":[1620048600],"indicators":{"quote":[{"open":[null],"high":[null],"low":[null],"close":[null]}]}}],"error":null}}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			start := time.Date(2021, 5, 1, 0, 0, 0, 0, time.UTC)
			_, err := newTestChartClient(server.URL).Fetch(context.Background(), "ZZZZ", start, start.AddDate(0, 0, 1))
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrNoData))
		})
	}
}

func TestChartClient_OtherBadRequestIsNotNoData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Bad Request","description":"Invalid input - interval=1x is not supported"}}}`))
	}))
	defer server.Close()

	start := time.Date(2021, 5, 3, 0, 0, 0, 0, time.UTC)
	_, err := newTestChartClient(server.URL).Fetch(context.Background(), "AAPL", start, start.AddDate(0, 0, 1))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoData)
	assert.Contains(t, err.Error(), "Bad Request")
}

func TestChartClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(aaplChart))
	}))
	defer server.Close()

	start := time.Date(2021, 5, 3, 0, 0, 0, 0, time.UTC)
	bars, err := newTestChartClient(server.URL).Fetch(context.Background(), "AAPL", start, start.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Len(t, bars, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestChartClient_PersistentFailureIsNotNoData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	start := time.Date(2021, 5, 3, 0, 0, 0, 0, time.UTC)
	_, err := newTestChartClient(server.URL).Fetch(context.Background(), "AAPL", start, start.AddDate(0, 0, 1))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoData)
}

func TestChartClient_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	}))
	defer server.Close()

	start := time.Date(2021, 5, 3, 0, 0, 0, 0, time.UTC)
	_, err := newTestChartClient(server.URL).Fetch(context.Background(), "AAPL", start, start.AddDate(0, 0, 1))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoData)
}

func TestChartClient_HonoursContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Date(2021, 5, 3, 0, 0, 0, 0, time.UTC)
	_, err := newTestChartClient(server.URL).Fetch(ctx, "AAPL", start, start.AddDate(0, 0, 1))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
