package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"balanced-bowl/internal/cookmode"
	"balanced-bowl/internal/rating"
	"balanced-bowl/internal/spoonacular"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// errBadRequest marks client errors that are not validation failures.
var errBadRequest = errors.New("bad request")

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	// Report JSON field names rather than Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

// writeError maps err to a status code and writes it as JSON.
func writeError(w http.ResponseWriter, err error) {
	status, resp := errorStatus(err)
	writeJSON(w, status, resp)
}

func errorStatus(err error) (int, errorResponse) {
	var verrs validator.ValidationErrors
	var apiErr *spoonacular.APIError

	switch {
	case errors.As(err, &verrs):
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Namespace()] = fe.Tag()
		}
		return http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: fields}
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, errorResponse{Error: err.Error()}
	case isAuthError(err):
		return http.StatusUnauthorized, errorResponse{Error: err.Error()}
	case errors.Is(err, rating.ErrInvalidRating):
		return http.StatusBadRequest, errorResponse{Error: rating.ErrInvalidRating.Error()}
	case errors.Is(err, cookmode.ErrNoInstructions):
		return http.StatusUnprocessableEntity, errorResponse{Error: cookmode.ErrNoInstructions.Error()}
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound:
		return http.StatusNotFound, errorResponse{Error: apiErr.Message}
	case errors.As(err, &apiErr):
		return http.StatusBadGateway, errorResponse{Error: apiErr.Message}
	case errors.Is(err, spoonacular.ErrFetchFailed):
		return http.StatusBadGateway, errorResponse{Error: "recipe provider unavailable"}
	default:
		slog.Error("Unhandled API error", "error", err)
		return http.StatusInternalServerError, errorResponse{Error: "internal server error"}
	}
}

// decode reads a JSON body into dst and validates it.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON payload", errBadRequest)
	}
	return s.validate.Struct(dst)
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid recipe id %q", chi.URLParam(r, "id"))
	}
	return id, nil
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, badRequest("invalid %s %q", key, raw)
	}
	return n, nil
}
