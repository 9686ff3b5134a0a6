package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"fdctax/internal/platform/middleware"
	"fdctax/internal/validation"
	"fdctax/internal/validation/handler/mocks"
)

//go:generate mockgen -source=handler.go -destination=mocks/validation-mocks.go -package=mocks Checker
type ValidationHandlerSuite struct {
	suite.Suite
}

func TestValidationHandlerSuite(t *testing.T) {
	suite.Run(t, new(ValidationHandlerSuite))
}

func newRouter(checker Checker, limiter *middleware.IPRateLimiter) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	New(checker, logger, limiter).Register(r)
	return r
}

func post(h http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.9:4000"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func (s *ValidationHandlerSuite) TestValidTFN() {
	r := newRouter(validation.NewLocalChecker(nil), nil)
	w := post(r, "/api/validate-tfn", `{"tfn":"123 456 782"}`)

	s.Equal(http.StatusOK, w.Code)
	body := decode(s.T(), w)
	s.Equal(true, body["valid"])
	s.Equal("Valid TFN", body["message"])
}

func (s *ValidationHandlerSuite) TestInvalidABNStillAnswers200() {
	r := newRouter(validation.NewLocalChecker(nil), nil)
	w := post(r, "/api/validate-abn", `{"abn":"51824753557"}`)

	s.Equal(http.StatusOK, w.Code)
	body := decode(s.T(), w)
	s.Equal(false, body["valid"])
	s.Equal("Invalid ABN - please check the number", body["message"])
}

func (s *ValidationHandlerSuite) TestShortInputGetsLengthMessage() {
	r := newRouter(validation.NewLocalChecker(nil), nil)
	w := post(r, "/api/validate-abn", `{"abn":""}`)

	s.Equal(http.StatusOK, w.Code)
	s.Equal("ABN must be 11 digits", decode(s.T(), w)["message"])
}

func (s *ValidationHandlerSuite) TestMissingField() {
	r := newRouter(validation.NewLocalChecker(nil), nil)
	w := post(r, "/api/validate-tfn", `{}`)

	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("bad_request", decode(s.T(), w)["error"])
}

func (s *ValidationHandlerSuite) TestMalformedBody() {
	r := newRouter(validation.NewLocalChecker(nil), nil)
	w := post(r, "/api/validate-tfn", `{"tfn":`)

	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *ValidationHandlerSuite) TestCheckerFailure() {
	ctrl := gomock.NewController(s.T())
	checker := mocks.NewMockChecker(ctrl)
	checker.EXPECT().
		Check(gomock.Any(), validation.KindTFN, "123456782").
		Return(validation.Result{}, errors.New("upstream down"))

	w := post(newRouter(checker, nil), "/api/validate-tfn", `{"tfn":"123456782"}`)

	s.Equal(http.StatusBadGateway, w.Code)
	body := decode(s.T(), w)
	s.Equal("service_unavailable", body["error"])
	s.Equal("Validation error", body["error_description"])
}

func TestValidationRateLimited(t *testing.T) {
	limiter := middleware.NewIPRateLimiter(0.0001, 2)
	r := newRouter(validation.NewLocalChecker(nil), limiter)

	for i := 0; i < 2; i++ {
		w := post(r, "/api/validate-tfn", `{"tfn":"123456782"}`)
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := post(r, "/api/validate-tfn", `{"tfn":"123456782"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}
