package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/ratebook/converter"
	"github.com/robinvdvleuten/ratebook/date"
)

// writeJSONResponse writes a JSON response to the http.ResponseWriter.
// If encoding fails, it writes an error response.
func writeJSONResponse(w http.ResponseWriter, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func writeError(w http.ResponseWriter, status int, kind string, err error) {
	writeJSONResponse(w, status, ErrorResponse{Error: err.Error(), Kind: kind})
}

// writeConversionError maps converter errors to HTTP statuses.
func writeConversionError(w http.ResponseWriter, err error) {
	var (
		missingRule   *converter.MissingRuleError
		missingSeries *converter.MissingSeriesError
		outOfRange    *converter.DateOutOfRangeError
		divByZero     *converter.DivisionByZeroError
	)
	switch {
	case errors.As(err, &missingRule):
		writeError(w, http.StatusNotFound, "missing_rule", err)
	case errors.As(err, &missingSeries):
		writeError(w, http.StatusUnprocessableEntity, "missing_series", err)
	case errors.As(err, &outOfRange):
		writeError(w, http.StatusUnprocessableEntity, "date_out_of_range", err)
	case errors.As(err, &divByZero):
		writeError(w, http.StatusUnprocessableEntity, "division_by_zero", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal", err)
	}
}

type StatusResponse struct {
	Version    string    `json:"version"`
	CommitSHA  string    `json:"commit"`
	Files      []string  `json:"files"`
	Currencies int       `json:"currencies"`
	Series     int       `json:"series"`
	Dropped    int       `json:"dropped"`
	Places     int32     `json:"places"`
	LoadedAt   time.Time `json:"loadedAt"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	conv := s.converter()

	s.mu.RLock()
	loadedAt := s.loadedAt
	s.mu.RUnlock()

	writeJSONResponse(w, http.StatusOK, StatusResponse{
		Version:    s.Version,
		CommitSHA:  s.CommitSHA,
		Files:      s.Files(),
		Currencies: len(conv.Currencies()),
		Series:     conv.Index().Len(),
		Dropped:    conv.Index().Dropped(),
		Places:     conv.Config().Places,
		LoadedAt:   loadedAt,
	})
}

type ConvertResponse struct {
	Date   date.Date      `json:"date"`
	Symbol string         `json:"symbol"`
	Amount string         `json:"amount"`
	Result string         `json:"result"`
	Steps  []StepResponse `json:"steps,omitempty"`
}

type StepResponse struct {
	Op       string    `json:"op"`
	Key      string    `json:"key"`
	Observed date.Date `json:"observed"`
	Price    string    `json:"price"`
	Amount   string    `json:"amount"`
}

// handleConvert answers GET /api/convert?date=&amount=&symbol=[&explain=true].
// The date defaults to today.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	symbol := query.Get("symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("symbol is required"))
		return
	}

	amount, err := decimal.NewFromString(query.Get("amount"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("amount must be a decimal number"))
		return
	}

	on := date.Today()
	if raw := query.Get("date"); raw != "" {
		on, err = date.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
	}

	conv := s.converter()
	places := conv.Config().Places

	if query.Get("explain") != "true" {
		result, err := conv.Convert(on, amount, symbol)
		if err != nil {
			writeConversionError(w, err)
			return
		}
		writeJSONResponse(w, http.StatusOK, ConvertResponse{
			Date:   on,
			Symbol: symbol,
			Amount: amount.String(),
			Result: result.StringFixed(places),
		})
		return
	}

	trace, err := conv.Explain(on, amount, symbol)
	if err != nil {
		writeConversionError(w, err)
		return
	}

	resp := ConvertResponse{
		Date:   on,
		Symbol: symbol,
		Amount: amount.String(),
		Result: trace.Result.StringFixed(places),
		Steps:  make([]StepResponse, 0, len(trace.Steps)),
	}
	for _, step := range trace.Steps {
		resp.Steps = append(resp.Steps, StepResponse{
			Op:       step.Step.Op.String(),
			Key:      step.Step.Key(),
			Observed: step.Observed,
			Price:    step.Price.String(),
			Amount:   step.Running.String(),
		})
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

type CurrencyResponse struct {
	Code string `json:"code"`
	Rule string `json:"rule"`
}

func (s *Server) handleCurrencies(w http.ResponseWriter, r *http.Request) {
	conv := s.converter()

	codes := conv.Currencies()
	resp := make([]CurrencyResponse, 0, len(codes))
	for _, code := range codes {
		rl, _ := conv.Rule(code)
		resp = append(resp, CurrencyResponse{Code: code, Rule: rl.String()})
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

type SeriesSummaryResponse struct {
	Key    string    `json:"key"`
	Points int       `json:"points"`
	First  date.Date `json:"first"`
	Last   date.Date `json:"last"`
	Price  string    `json:"price"`
}

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	idx := s.converter().Index()

	resp := make([]SeriesSummaryResponse, 0, idx.Len())
	for _, key := range idx.Keys() {
		series, _ := idx.Series(key)
		resp = append(resp, SeriesSummaryResponse{
			Key:    key,
			Points: series.Len(),
			First:  series.First().Date,
			Last:   series.Last().Date,
			Price:  series.Last().Price.String(),
		})
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

type PointResponse struct {
	Date  date.Date `json:"date"`
	Price string    `json:"price"`
}

type SeriesResponse struct {
	Key    string          `json:"key"`
	Points []PointResponse `json:"points"`
}

// handleSeries answers GET /api/prices/{key}. Keys contain a slash, so the
// route is a wildcard; an escaped slash is accepted as well.
func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	key, err := url.PathUnescape(chi.URLParam(r, "*"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	series, ok := s.converter().Index().Series(key)
	if !ok {
		writeError(w, http.StatusNotFound, "missing_series", fmt.Errorf("no price series %q", key))
		return
	}

	resp := SeriesResponse{Key: key, Points: make([]PointResponse, 0, series.Len())}
	for _, p := range series.All() {
		resp.Points = append(resp.Points, PointResponse{Date: p.Date, Price: p.Price.String()})
	}
	writeJSONResponse(w, http.StatusOK, resp)
}
