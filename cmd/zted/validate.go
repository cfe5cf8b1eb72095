package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"zte.szuro.net/internal/logger"
	"zte.szuro.net/pkg/expression"
)

type macroError struct {
	Macro   string `json:"macro"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type validateResponse struct {
	Expression string       `json:"expression"`
	Valid      bool         `json:"valid"`
	Error      string       `json:"error,omitempty"`
	Macros     []macroError `json:"macros"`
}

// validateHandler reports syntax errors and unresolvable macros of the
// expression given in the "expression" query parameter.
func validateHandler(v *expression.Validator) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		expr := r.URL.Query().Get("expression")
		resp := validateResponse{Expression: expr, Macros: []macroError{}}

		if _, err := expression.Parse(expr); err != nil {
			resp.Error = err.Error()
		}
		errs, err := v.Errors(r.Context(), expr)
		if err != nil {
			logger.Error("Validation failed", slog.String("expression", expr), slog.Any("error", err))
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		for _, e := range errs {
			resp.Macros = append(resp.Macros, macroError{Macro: e.Macro, Code: e.Code.String(), Message: e.Code.Message()})
		}
		resp.Valid = resp.Error == "" && len(resp.Macros) == 0

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Error("Failed to write response", slog.Any("error", err))
		}
	})
}
