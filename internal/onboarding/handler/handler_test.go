package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	clientmodels "fdctax/internal/clients/models"
	clientservice "fdctax/internal/clients/service"
	"fdctax/internal/events"
	"fdctax/internal/onboarding/flow"
	"fdctax/internal/onboarding/handler/mocks"
	"fdctax/internal/onboarding/service"
	"fdctax/internal/onboarding/store"
	"fdctax/internal/payment"
	"fdctax/internal/validation"
	dErrors "fdctax/pkg/domain-errors"
	"fdctax/pkg/testutil"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

//go:generate mockgen -source=handler.go -destination=mocks/onboarding-mocks.go -package=mocks Service
type OnboardingHandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	router  http.Handler
}

func TestOnboardingHandlerSuite(t *testing.T) {
	suite.Run(t, new(OnboardingHandlerSuite))
}

func (s *OnboardingHandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	r := chi.NewRouter()
	New(s.service, discard).Register(r)
	s.router = r
}

func (s *OnboardingHandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func (s *OnboardingHandlerSuite) TestStartWithResumeToken() {
	s.service.EXPECT().
		Start(gomock.Any(), "luna", "tok-1").
		Return(&service.Snapshot{SessionID: "s1", Flow: "luna", Resumed: true}, nil)

	w := do(s.router, http.MethodPost, "/api/onboarding/luna/sessions", `{"resume_token":"tok-1"}`)

	s.Equal(http.StatusCreated, w.Code)
	var snap service.Snapshot
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &snap))
	s.Equal("s1", snap.SessionID)
	s.True(snap.Resumed)
}

func (s *OnboardingHandlerSuite) TestStartWithoutBody() {
	s.service.EXPECT().Start(gomock.Any(), "abn-assistance", "").Return(&service.Snapshot{SessionID: "s2"}, nil)

	w := do(s.router, http.MethodPost, "/api/onboarding/abn-assistance/sessions", "")

	s.Equal(http.StatusCreated, w.Code)
}

func (s *OnboardingHandlerSuite) TestStartUnknownFlow() {
	s.service.EXPECT().Start(gomock.Any(), "nope", "").
		Return(nil, dErrors.New(dErrors.CodeNotFound, `unknown onboarding flow "nope"`))

	w := do(s.router, http.MethodPost, "/api/onboarding/nope/sessions", "")

	s.Equal(http.StatusNotFound, w.Code)
	body := decodeError(s.T(), w)
	s.Equal("not_found", body.Error)
	s.Nil(body.Session)
}

func (s *OnboardingHandlerSuite) TestUpdateFieldDecodesValue() {
	s.service.EXPECT().
		UpdateField(gomock.Any(), "s1", "declaration_accepted", true).
		Return(&service.Snapshot{SessionID: "s1"}, nil)

	w := do(s.router, http.MethodPatch, "/api/onboarding/sessions/s1/fields", `{"field":"declaration_accepted","value":true}`)

	s.Equal(http.StatusOK, w.Code)
}

func (s *OnboardingHandlerSuite) TestUpdateFieldRequiresField() {
	w := do(s.router, http.MethodPatch, "/api/onboarding/sessions/s1/fields", `{"value":"x"}`)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *OnboardingHandlerSuite) TestToggleRequiresEnabled() {
	w := do(s.router, http.MethodPost, "/api/onboarding/sessions/s1/toggles", `{"toggle":"postal_same_as_residential"}`)
	s.Equal(http.StatusBadRequest, w.Code)

	s.service.EXPECT().SetToggle(gomock.Any(), "s1", "postal_same_as_residential", false).
		Return(&service.Snapshot{SessionID: "s1"}, nil)
	w = do(s.router, http.MethodPost, "/api/onboarding/sessions/s1/toggles", `{"toggle":"postal_same_as_residential","enabled":false}`)
	s.Equal(http.StatusOK, w.Code)
}

func (s *OnboardingHandlerSuite) TestRefusedNextCarriesSession() {
	snap := &service.Snapshot{SessionID: "s1", Error: validation.MsgTFNInvalid, Stage: service.StageView{ID: 2}}
	s.service.EXPECT().Next(gomock.Any(), "s1").
		Return(snap, dErrors.New(dErrors.CodeValidation, validation.MsgTFNInvalid))

	w := do(s.router, http.MethodPost, "/api/onboarding/sessions/s1/next", "")

	s.Equal(http.StatusUnprocessableEntity, w.Code)
	body := decodeError(s.T(), w)
	s.Equal(validation.MsgTFNInvalid, body.ErrorDescription)
	s.Require().NotNil(body.Session)
	s.Equal(2, body.Session.Stage.ID)
}

func (s *OnboardingHandlerSuite) TestInternalErrorHidesDescription() {
	s.service.EXPECT().Back(gomock.Any(), "s1").
		Return(nil, dErrors.New(dErrors.CodeInternal, "failed to save onboarding session"))

	w := do(s.router, http.MethodPost, "/api/onboarding/sessions/s1/back", "")

	s.Equal(http.StatusInternalServerError, w.Code)
	s.Empty(decodeError(s.T(), w).ErrorDescription)
}

func (s *OnboardingHandlerSuite) TestCreatePaymentReturnsIntent() {
	s.service.EXPECT().CreatePayment(gomock.Any(), "s1").
		Return(&service.Snapshot{SessionID: "s1"}, &payment.Intent{ID: "pi_1", ClientSecret: "pi_1_secret", AmountCents: 9900, Currency: "aud"}, nil)

	w := do(s.router, http.MethodPost, "/api/onboarding/sessions/s1/payment", "")

	s.Equal(http.StatusOK, w.Code)
	var body paymentResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	s.Equal("pi_1_secret", body.Payment.ClientSecret)
	s.Equal("s1", body.Session.SessionID)
}

func (s *OnboardingHandlerSuite) TestConfirmPaymentPassesIntent() {
	s.service.EXPECT().ConfirmPayment(gomock.Any(), "s1", "pi_1").Return(&service.Snapshot{SessionID: "s1"}, nil)

	w := do(s.router, http.MethodPost, "/api/onboarding/sessions/s1/payment/confirm", `{"payment_intent_id":"pi_1"}`)

	s.Equal(http.StatusOK, w.Code)
}

func (s *OnboardingHandlerSuite) TestGetSession() {
	s.service.EXPECT().Get(gomock.Any(), "s1").Return(&service.Snapshot{SessionID: "s1"}, nil)

	w := do(s.router, http.MethodGet, "/api/onboarding/sessions/s1", "")

	s.Equal(http.StatusOK, w.Code)
}

// blockingCollaborator holds every submission until release is closed.
type blockingCollaborator struct {
	entered chan struct{}
	release chan struct{}
	mu      sync.Mutex
	calls   int
}

func (c *blockingCollaborator) Submit(_ context.Context, req clientservice.SubmitRequest) (*clientmodels.SubmitResult, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	c.entered <- struct{}{}
	<-c.release
	return &clientmodels.SubmitResult{Success: true, ID: "client-1", ResumeToken: req.ResumeToken}, nil
}

func (c *blockingCollaborator) LoadByToken(context.Context, string) (map[string]any, error) {
	return nil, dErrors.New(dErrors.CodeNotFound, "no onboarding found for this link")
}

func TestDoubleSubmitOverHTTP(t *testing.T) {
	collab := &blockingCollaborator{entered: make(chan struct{}, 1), release: make(chan struct{})}
	svc := service.New(flow.DefaultRegistry(), store.NewInMemorySessionStore(), validation.NewLocalChecker(nil), collab,
		service.WithLogger(discard), service.WithDebounce(0))
	defer svc.Close()
	r := chi.NewRouter()
	New(svc, discard).Register(r)

	w := do(r, http.MethodPost, "/api/onboarding/abn-assistance/sessions", "")
	require.Equal(t, http.StatusCreated, w.Code)
	var snap service.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	base := "/api/onboarding/sessions/" + snap.SessionID

	answers := map[string]any{
		"wantsAssistance": false, "firstName": "Sam", "lastName": "Lee", "dateOfBirth": "1990-01-01",
		"email": "sam@example.com", "mobile": "0400000001", "addressLine1": "2 Creche Rd",
		"suburb": "Logan", "state": "QLD", "postcode": "4114", "businessStartDate": "2025-07-01",
		"registerForGST": "no", "declarationAccepted": true,
	}
	for field, value := range answers {
		body, err := json.Marshal(map[string]any{"field": field, "value": value})
		require.NoError(t, err)
		w = do(r, http.MethodPatch, base+"/fields", string(body))
		require.Equal(t, http.StatusOK, w.Code, field)
	}
	for i := 0; i < 6; i++ {
		w = do(r, http.MethodPost, base+"/next", "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	w = do(r, http.MethodPost, base+"/next", "")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, flow.MsgReadyToSubmit, decodeError(t, w).ErrorDescription)

	first := make(chan *httptest.ResponseRecorder, 1)
	go func() { first <- do(r, http.MethodPost, base+"/submit", "") }()
	<-collab.entered

	second := do(r, http.MethodPost, base+"/submit", "")
	assert.Equal(t, http.StatusConflict, second.Code)
	assert.Equal(t, "conflict", decodeError(t, second).Error)

	close(collab.release)
	done := <-first
	require.Equal(t, http.StatusOK, done.Code, done.Body.String())
	require.NoError(t, json.Unmarshal(done.Body.Bytes(), &snap))
	assert.True(t, snap.Complete)
	assert.Equal(t, "client-1", snap.ClientID)
	assert.Equal(t, 9, snap.Stage.ID)
	assert.Equal(t, 1, collab.calls)

	again := do(r, http.MethodPost, base+"/submit", "")
	assert.Equal(t, http.StatusConflict, again.Code)
	assert.Equal(t, "invalid_state", decodeError(t, again).Error)
}

func TestStartStampsRequestMetadata(t *testing.T) {
	sink := events.NewMemorySink()
	svc := service.New(flow.DefaultRegistry(), store.NewInMemorySessionStore(), validation.NewLocalChecker(nil), &blockingCollaborator{},
		service.WithLogger(discard), service.WithEvents(events.NewPublisher(sink)))
	defer svc.Close()
	r := chi.NewRouter()
	New(svc, discard).Register(r)

	pinned := time.Date(2025, 7, 1, 9, 30, 0, 0, time.UTC)
	req := testutil.NewRequest(t, http.MethodPost, "/api/onboarding/luna/sessions")
	req.Header.Set("User-Agent", "onboarding-test")
	req = testutil.WithRequestID(req, "req-42")
	req = testutil.WithClientIP(req, "203.0.113.7")
	req = testutil.WithRequestTime(req, pinned)

	rr := testutil.DoRequest(r, req)
	testutil.AssertStatus(t, rr, http.StatusCreated)

	got := sink.Events()
	require.Len(t, got, 1)
	assert.Equal(t, events.TypeSessionStarted, got[0].Type)
	assert.Equal(t, "req-42", got[0].RequestID)
	assert.Equal(t, pinned, got[0].OccurredAt)
	assert.Equal(t, "203.0.113.7", got[0].Attributes["client_ip"])
	assert.Equal(t, "onboarding-test", got[0].Attributes["user_agent"])
}
