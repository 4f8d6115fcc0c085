package web

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"

	"github.com/robinvdvleuten/ratebook/date"
)

const testRecords = `
2020-01-01 commodity USD
2020-01-01 commodity EUR
  convert: "*(EUR/USD:ECB)"
2020-01-01 commodity GBP
  convert: "*(GBP/USD)"
2020-01-01 commodity ZZZ
  convert: "/(ZZZ/USD)"

2020-01-01 price EUR 1.10 USD
  source: "ECB"
2020-02-01 price EUR 1.20 USD
  source: "ECB"
2020-01-01 price ZZZ 0 USD
`

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.bean")
	assert.NoError(t, os.WriteFile(path, []byte(testRecords), 0o644))

	server := NewWithVersion(0, path, "1.0.0", "abc123")
	assert.NoError(t, server.reload(context.Background()))
	return server, path
}

func get(t *testing.T, handler http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var v T
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestConvert(t *testing.T) {
	server, _ := newTestServer(t)
	handler := server.Handler()

	tests := []struct {
		name   string
		target string
		status int
		result string
		kind   string
	}{
		{"Identity", "/api/convert?date=2020-01-15&amount=50&symbol=USD", http.StatusOK, "50.0000", ""},
		{"Multiply", "/api/convert?date=2020-01-15&amount=10&symbol=EUR", http.StatusOK, "11.0000", ""},
		{"LaterPrice", "/api/convert?date=2020-03-01&amount=10&symbol=EUR", http.StatusOK, "12.0000", ""},
		{"MissingRule", "/api/convert?date=2020-01-15&amount=10&symbol=BTC", http.StatusNotFound, "", "missing_rule"},
		{"MissingSeries", "/api/convert?date=2020-01-15&amount=10&symbol=GBP", http.StatusUnprocessableEntity, "", "missing_series"},
		{"DateOutOfRange", "/api/convert?date=2019-12-31&amount=10&symbol=EUR", http.StatusUnprocessableEntity, "", "date_out_of_range"},
		{"DivisionByZero", "/api/convert?date=2020-01-15&amount=10&symbol=ZZZ", http.StatusUnprocessableEntity, "", "division_by_zero"},
		{"MissingSymbol", "/api/convert?date=2020-01-15&amount=10", http.StatusBadRequest, "", "bad_request"},
		{"BadAmount", "/api/convert?date=2020-01-15&amount=ten&symbol=EUR", http.StatusBadRequest, "", "bad_request"},
		{"BadDate", "/api/convert?date=15-01-2020&amount=10&symbol=EUR", http.StatusBadRequest, "", "bad_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, handler, tt.target)
			assert.Equal(t, tt.status, rec.Code)

			if tt.status == http.StatusOK {
				resp := decode[ConvertResponse](t, rec)
				assert.Equal(t, tt.result, resp.Result)
				assert.Equal(t, 0, len(resp.Steps))
				return
			}

			resp := decode[ErrorResponse](t, rec)
			assert.Equal(t, tt.kind, resp.Kind)
			assert.NotEqual(t, "", resp.Error)
		})
	}
}

func TestConvertExplain(t *testing.T) {
	server, _ := newTestServer(t)

	rec := get(t, server.Handler(), "/api/convert?date=2020-01-15&amount=10&symbol=EUR&explain=true")
	assert.Equal(t, http.StatusOK, rec.Code)

	resp := decode[ConvertResponse](t, rec)
	assert.Equal(t, "2020-01-15", resp.Date.String())
	assert.Equal(t, "EUR", resp.Symbol)
	assert.Equal(t, "10", resp.Amount)
	assert.Equal(t, "11.0000", resp.Result)
	assert.Equal(t, []StepResponse{
		{Op: "*", Key: "EUR/USD:ECB", Observed: date.MustParse("2020-01-01"), Price: "1.1", Amount: "11"},
	}, resp.Steps)
}

func TestCurrencies(t *testing.T) {
	server, _ := newTestServer(t)

	rec := get(t, server.Handler(), "/api/currencies")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []CurrencyResponse{
		{Code: "EUR", Rule: "*(EUR/USD:ECB)"},
		{Code: "GBP", Rule: "*(GBP/USD)"},
		{Code: "USD", Rule: ""},
		{Code: "ZZZ", Rule: "/(ZZZ/USD)"},
	}, decode[[]CurrencyResponse](t, rec))
}

func TestPrices(t *testing.T) {
	server, _ := newTestServer(t)

	rec := get(t, server.Handler(), "/api/prices")
	assert.Equal(t, http.StatusOK, rec.Code)

	resp := decode[[]SeriesSummaryResponse](t, rec)
	assert.Equal(t, 2, len(resp))
	assert.Equal(t, "EUR/USD:ECB", resp[0].Key)
	assert.Equal(t, 2, resp[0].Points)
	assert.Equal(t, "2020-01-01", resp[0].First.String())
	assert.Equal(t, "2020-02-01", resp[0].Last.String())
	assert.Equal(t, "1.2", resp[0].Price)
	assert.Equal(t, "ZZZ/USD", resp[1].Key)
}

func TestSeries(t *testing.T) {
	server, _ := newTestServer(t)
	handler := server.Handler()

	t.Run("PlainKey", func(t *testing.T) {
		rec := get(t, handler, "/api/prices/EUR/USD:ECB")
		assert.Equal(t, http.StatusOK, rec.Code)

		resp := decode[SeriesResponse](t, rec)
		assert.Equal(t, "EUR/USD:ECB", resp.Key)
		assert.Equal(t, 2, len(resp.Points))
		assert.Equal(t, "2020-01-01", resp.Points[0].Date.String())
		assert.Equal(t, "1.1", resp.Points[0].Price)
		assert.Equal(t, "1.2", resp.Points[1].Price)
	})

	t.Run("EscapedKey", func(t *testing.T) {
		rec := get(t, handler, "/api/prices/EUR%2FUSD:ECB")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "EUR/USD:ECB", decode[SeriesResponse](t, rec).Key)
	})

	t.Run("UnknownKey", func(t *testing.T) {
		rec := get(t, handler, "/api/prices/GBP/USD")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "missing_series", decode[ErrorResponse](t, rec).Kind)
	})
}

func TestStatus(t *testing.T) {
	server, path := newTestServer(t)

	rec := get(t, server.Handler(), "/api/status")
	assert.Equal(t, http.StatusOK, rec.Code)

	resp := decode[StatusResponse](t, rec)
	assert.Equal(t, "1.0.0", resp.Version)
	assert.Equal(t, "abc123", resp.CommitSHA)
	assert.Equal(t, 1, len(resp.Files))
	assert.True(t, strings.HasSuffix(resp.Files[0], filepath.Base(path)))
	assert.Equal(t, 4, resp.Currencies)
	assert.Equal(t, 2, resp.Series)
	assert.Equal(t, int32(4), resp.Places)
	assert.False(t, resp.LoadedAt.IsZero())
}

func TestCORS(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/currencies", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestUnknownRoute(t *testing.T) {
	server, _ := newTestServer(t)

	rec := get(t, server.Handler(), "/api/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReloadSwapsConverter(t *testing.T) {
	server, path := newTestServer(t)
	before := server.converter()

	updated := testRecords + "2020-01-10 price EUR 1.50 USD\n  source: \"ECB\"\n"
	assert.NoError(t, os.WriteFile(path, []byte(updated), 0o644))
	assert.NoError(t, server.reload(context.Background()))
	assert.True(t, before != server.converter())

	rec := get(t, server.Handler(), "/api/convert?date=2020-01-15&amount=10&symbol=EUR")
	assert.Equal(t, "15.0000", decode[ConvertResponse](t, rec).Result)
}

func TestReloadKeepsConverterOnError(t *testing.T) {
	server, path := newTestServer(t)
	before := server.converter()

	assert.NoError(t, os.WriteFile(path, []byte("2020-01-01 price EUR\n"), 0o644))
	assert.Error(t, server.reload(context.Background()))
	assert.True(t, before == server.converter())
}

func TestReloadRejectsInvalidRule(t *testing.T) {
	server, path := newTestServer(t)
	before := server.converter()

	assert.NoError(t, os.WriteFile(path, []byte("2020-01-01 commodity EUR\n  convert: \"*(EUR\"\n"), 0o644))
	assert.Error(t, server.reload(context.Background()))
	assert.True(t, before == server.converter())
}

func TestStartRequiresFile(t *testing.T) {
	server := New(0, "")
	err := server.Start(context.Background())
	assert.EqualError(t, err, "records file is required")
}

func TestSSE(t *testing.T) {
	server, _ := newTestServer(t)

	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	assert.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	assert.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	assert.Equal(t, "data: connected", readEvent(t, reader))
	assert.Equal(t, 1, server.clients())

	server.broadcast("reload")
	assert.Equal(t, "data: reload", readEvent(t, reader))
}

func readEvent(t *testing.T, reader *bufio.Reader) string {
	t.Helper()
	line, err := reader.ReadString('\n')
	assert.NoError(t, err)
	blank, err := reader.ReadString('\n')
	assert.NoError(t, err)
	assert.Equal(t, "\n", blank)
	return strings.TrimSuffix(line, "\n")
}

func TestWatchRebuildsOnChange(t *testing.T) {
	server, path := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	assert.NoError(t, server.startWatcher(ctx))

	events := make(chan string, 1)
	server.sseMu.Lock()
	server.sseClients[events] = struct{}{}
	server.sseMu.Unlock()

	updated := testRecords + "2020-01-10 price EUR 1.50 USD\n  source: \"ECB\"\n"
	assert.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	select {
	case event := <-events:
		assert.Equal(t, "reload", event)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload event")
	}

	rec := get(t, server.Handler(), "/api/convert?date=2020-01-15&amount=10&symbol=EUR")
	assert.Equal(t, "15.0000", decode[ConvertResponse](t, rec).Result)
}
