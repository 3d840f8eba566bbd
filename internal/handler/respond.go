package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pavelanni/academy/internal/auth"
	"github.com/pavelanni/academy/internal/i18n"
	"github.com/pavelanni/academy/internal/model"
)

const maxJSONBody = 1 << 20

var (
	errRateLimited = errors.New("rate limited")
	errTooLarge    = errors.New("request too large")
)

// apiError attaches a message ID to one of the model error kinds.
type apiError struct {
	kind  error
	msgID string
	data  map[string]any
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s: %v", e.msgID, e.kind)
}

func (e *apiError) Unwrap() error {
	return e.kind
}

func notFound(msgID string) error {
	return &apiError{kind: model.ErrNotFound, msgID: msgID}
}

func forbidden(msgID string) error {
	return &apiError{kind: model.ErrForbidden, msgID: msgID}
}

type errorBody struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// status maps an error to its HTTP status and default message ID.
func status(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest, "InvalidRequestBody"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "InvalidCredentials"
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, "TokenInvalid"
	case errors.Is(err, model.ErrUnauthorized):
		return http.StatusUnauthorized, "NotAuthenticated"
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, "NotFound"
	case errors.Is(err, model.ErrConflict):
		return http.StatusConflict, "Conflict"
	case errors.Is(err, model.ErrUpstreamUnavailable):
		return http.StatusBadGateway, "UpstreamUnavailable"
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests, "RateLimited"
	case errors.Is(err, errTooLarge):
		return http.StatusRequestEntityTooLarge, "FileTooLarge"
	}
	return http.StatusInternalServerError, "InternalError"
}

// writeError renders err as {"detail": "..."} in the request language.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, msgID := status(err)
	var data map[string]any

	var ve *model.ValidationError
	var ae *apiError
	switch {
	case errors.As(err, &ve):
		msgID, data = ve.MsgID, ve.Data
	case errors.As(err, &ae):
		msgID, data = ae.msgID, ae.data
	}

	switch {
	case code >= http.StatusInternalServerError && code != http.StatusBadGateway:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	case code == http.StatusBadGateway:
		slog.Warn("content generation failed", "path", r.URL.Path, "error", err)
	default:
		slog.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", code, "error", err)
	}
	if code == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	writeJSON(w, code, errorBody{Detail: i18n.Td(r.Context(), msgID, data)})
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads a JSON body into dst and validates its struct tags.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return model.Invalid("InvalidRequestBody", "invalid request body: "+err.Error(), nil)
	}
	return h.validateStruct(dst)
}

func (h *Handler) validateStruct(v any) error {
	err := h.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return model.Invalid("InvalidRequestBody", err.Error(), nil)
	}
	fe := verrs[0]
	data := map[string]any{"Field": fe.Field(), "Rule": fe.Tag()}
	if fe.Tag() == "required" {
		return model.Invalid("FieldRequired", fmt.Sprintf("field %s is required", fe.Field()), data)
	}
	if fe.Param() != "" {
		data["Rule"] = fe.Tag() + "=" + fe.Param()
	}
	return model.Invalid("FieldInvalid", fmt.Sprintf("field %s failed %s", fe.Field(), data["Rule"]), data)
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, model.Invalid("InvalidID", "invalid identifier "+raw, map[string]any{"Value": raw})
	}
	return id, nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, model.Invalid("InvalidQueryParam", "invalid value for "+name, map[string]any{"Name": name})
	}
	return n, nil
}

func paging(r *http.Request) (skip, limit int, err error) {
	if skip, err = queryInt(r, "skip", 0); err != nil {
		return 0, 0, err
	}
	if limit, err = queryInt(r, "limit", 100); err != nil {
		return 0, 0, err
	}
	return skip, limit, nil
}
