package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/takax-network/takax/internal/app/service"
	"github.com/takax-network/takax/internal/domain"
	"github.com/takax-network/takax/internal/infra/observability"
)

// maxBodyBytes caps request bodies. Support screenshots arrive as data URLs.
const maxBodyBytes = 8 << 20

// ─── Error Mapping ──────────────────────────────────────────────────────────

// statusFor maps a service error to an HTTP status and client message.
// Business rejections are 400 like validation failures.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrBotNotConfigured):
		return http.StatusInternalServerError, err.Error()
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrConflict):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, err.Error()
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// fail writes err to the client. Unexpected errors are logged with their
// detail and answered with a generic message.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		observability.Entry(r.Context(), s.log).WithError(err).
			WithField("route", r.URL.Path).Error("request failed")
	}
	writeError(w, status, msg)
}

// ─── Request Decoding ───────────────────────────────────────────────────────

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads a JSON body into dst and validates it.
func (s *Server) decode(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return domain.WithMessage(domain.ErrValidation, "Invalid JSON body")
	}
	return s.check(dst)
}

// check validates a decoded request struct.
func (s *Server) check(v interface{}) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validate request: %w", err)
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return domain.WithMessage(domain.ErrValidation, fe.Field()+" is required")
	case "oneof":
		return domain.WithMessage(domain.ErrValidation, fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param()))
	default:
		return domain.WithMessage(domain.ErrValidation, fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag()))
	}
}

// ─── Admin Guard ────────────────────────────────────────────────────────────

type adminKey struct{}

// adminOnly admits requests whose admin id (X-Admin-ID header, adminId query
// parameter, or adminId body field) is configured.
func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Admin-ID")
		if id == "" {
			id = r.URL.Query().Get("adminId")
		}
		if id == "" && r.Body != nil {
			body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
			if err == nil {
				var peek struct {
					AdminID string `json:"adminId"`
				}
				_ = json.Unmarshal(body, &peek)
				id = peek.AdminID
				r.Body = io.NopCloser(bytes.NewReader(body))
			}
		}
		if id == "" || s.cfg.IsAdmin == nil || !s.cfg.IsAdmin(id) {
			writeError(w, http.StatusForbidden, domain.ErrUnauthorized.Error())
			return
		}
		ctx := context.WithValue(observability.WithUserID(r.Context(), id), adminKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// adminID returns the admin admitted by adminOnly.
func adminID(r *http.Request) string {
	id, _ := r.Context().Value(adminKey{}).(string)
	return id
}
