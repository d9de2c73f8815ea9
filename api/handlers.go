package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"stocksim/sim"
	"stocksim/strategies"
)

// simulationRequest is the POST /api/simulate body.
type simulationRequest struct {
	StartDate      string            `json:"start_date"`
	EndDate        string            `json:"end_date"`
	Symbol         string            `json:"symbol"`
	Strategy       string            `json:"strategy"`
	StrategyConfig strategies.Config `json:"strategy_config"`
}

// fieldErrors collects per-field validation messages.
type fieldErrors map[string][]string

func (fe fieldErrors) add(field, msg string) {
	fe[field] = append(fe[field], msg)
}

// parseDate accepts RFC3339 timestamps or plain dates.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// validate checks the request body and returns the simulation request it
// describes, or the per-field errors.
func (r *simulationRequest) validate() (sim.Request, fieldErrors) {
	errs := fieldErrors{}
	req := sim.Request{
		Symbol:   r.Symbol,
		Strategy: r.Strategy,
		Config:   r.StrategyConfig,
	}

	if r.Symbol == "" {
		errs.add("symbol", "This field is required.")
	}
	if r.Strategy == "" {
		errs.add("strategy", "This field is required.")
	}
	if r.StartDate == "" {
		errs.add("start_date", "This field is required.")
	} else if t, err := parseDate(r.StartDate); err != nil {
		errs.add("start_date", "Datetime has wrong format.")
	} else {
		req.Start = t
	}
	if r.EndDate == "" {
		errs.add("end_date", "This field is required.")
	} else if t, err := parseDate(r.EndDate); err != nil {
		errs.add("end_date", "Datetime has wrong format.")
	} else {
		req.End = t
	}
	if len(errs) == 0 && req.End.Before(req.Start) {
		errs.add("end_date", "end_date must not precede start_date.")
	}
	if req.Config == nil {
		req.Config = strategies.Config{}
	}

	if len(errs) > 0 {
		return sim.Request{}, errs
	}
	return req, nil
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var body simulationRequest
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Malformed request body"})
		return
	}

	req, fieldErrs := body.validate()
	if fieldErrs != nil {
		writeJSON(w, http.StatusBadRequest, fieldErrs)
		return
	}

	// Resolve the strategy name against the registry up front so a typo
	// reads as an invalid name rather than a run failure.
	if !strategies.Known(req.Strategy) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid strategy name"})
		return
	}

	ctx := r.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	out, err := s.engine.Run(ctx, req)
	if err != nil {
		// Every run failure maps to a 400 with its cause; one bad run never
		// takes the process down.
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStrategies(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"strategies": strategies.Names()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
