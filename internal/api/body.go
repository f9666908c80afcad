package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/mux"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/go-ports/wordmask/internal/service"
)

var (
	errInvalidBody  = errors.New("invalid request body")
	errBodyTooLarge = errors.New("request body too large")
)

// readBody reads the whole request body, bounded by maxBodyBytes.
func readBody(w http.ResponseWriter, r *http.Request) (string, error) {
	b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return "", errBodyTooLarge
		}
		return "", errors.Wrap(err, "read request body")
	}
	return string(b), nil
}

// readText returns the request body as text. A body that is a JSON string
// literal is unwrapped and a JSON null reads as empty; anything else is
// taken verbatim.
func readText(w http.ResponseWriter, r *http.Request) (string, error) {
	body, err := readBody(w, r)
	if err != nil {
		return "", err
	}
	trimmed := strings.TrimSpace(body)
	if gjson.Valid(trimmed) {
		switch res := gjson.Parse(trimmed); res.Type {
		case gjson.String:
			return res.String(), nil
		case gjson.Null:
			return "", nil
		}
	}
	return body, nil
}

// readTextArray decodes a JSON array of strings. An absent or null body is
// empty input; any other non-array body or non-string element is invalid.
func readTextArray(w http.ResponseWriter, r *http.Request) ([]string, error) {
	body, err := readBody(w, r)
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(body)
	if trimmed == "" || trimmed == "null" {
		return nil, service.ErrEmptyInput
	}
	if !gjson.Valid(trimmed) {
		return nil, errInvalidBody
	}
	res := gjson.Parse(trimmed)
	if !res.IsArray() {
		return nil, errInvalidBody
	}

	texts := make([]string, 0)
	ok := true
	res.ForEach(func(_, v gjson.Result) bool {
		if v.Type != gjson.String {
			ok = false
			return false
		}
		texts = append(texts, v.String())
		return true
	})
	if !ok {
		return nil, errInvalidBody
	}
	return texts, nil
}

// pathID parses the {id} route variable.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, service.ErrInvalidID
	}
	return id, nil
}

// ---------------------------------------------------------------------------
// Responses
// ---------------------------------------------------------------------------

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("encode response", zap.Error(err))
		writeText(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

// writeError maps err to a status code and a fixed message. Errors that are
// not part of the API contract become a 500 and are logged.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errInvalidBody):
		writeText(w, http.StatusBadRequest, "Invalid request body")
		return
	case errors.Is(err, errBodyTooLarge):
		writeText(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}

	if msg, ok := service.Message(err); ok {
		status := http.StatusBadRequest
		if errors.Is(err, service.ErrNotFound) {
			status = http.StatusNotFound
		}
		s.logger.Debug("request rejected",
			zap.String("request_id", RequestID(r.Context())),
			zap.Int("status", status),
			zap.String("reason", msg))
		writeText(w, status, msg)
		return
	}

	s.logger.Error("request failed",
		zap.String("request_id", RequestID(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err))
	writeText(w, http.StatusInternalServerError, "Internal server error")
}
