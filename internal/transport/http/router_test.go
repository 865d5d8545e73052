package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"haven/internal/assessment"
	assessmentHandler "haven/internal/assessment/handler"
	"haven/internal/assessment/handler/mocks"
	"haven/internal/auth"
	"haven/internal/auth/revocation"
	"haven/internal/isolation"
	isolationHandler "haven/internal/isolation/handler"
	"haven/internal/sla"
	id "haven/pkg/domain"
	audit "haven/pkg/platform/audit"
	"haven/pkg/platform/middleware/admin"
	"haven/pkg/requestcontext"
)

const testAdminToken = "test-admin-token"

// securitySpy records emitted events for assertions.
type securitySpy struct {
	events []audit.SecurityEvent
}

func (s *securitySpy) Emit(event audit.SecurityEvent) {
	s.events = append(s.events, event)
}

// testStack is a fully wired router over real token, revocation, isolation,
// and enforcement components. Only the assessment service is mocked; the
// chain in front of it is the chain production requests go through.
type testStack struct {
	router      http.Handler
	tokens      *auth.TokenService
	revocations *revocation.MemoryList
	enforcer    *sla.Enforcer
	assessments *mocks.MockService
	security    *securitySpy
}

func newTestStack(t *testing.T, adminToken string) *testStack {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockService := mocks.NewMockService(ctrl)

	guard, err := isolation.New(nil)
	if err != nil {
		t.Fatalf("construct guard: %v", err)
	}

	tokens := auth.NewTokenService("test-signing-key", "haven", "haven-mobile")
	revocations := revocation.NewMemoryList()
	enforcer := sla.New()
	spy := &securitySpy{}

	router := New(Deps{
		Logger:       logger,
		Assessments:  assessmentHandler.New(mockService, logger),
		Isolation:    isolationHandler.New(guard, logger),
		Operator:     NewOperatorHandler(enforcer, tokens, revocations, spy, logger),
		JWTValidator: auth.NewTokenServiceAdapter(tokens),
		Revocations:  revocations,
		AdminToken:   adminToken,
	})

	return &testStack{
		router:      router,
		tokens:      tokens,
		revocations: revocations,
		enforcer:    enforcer,
		assessments: mockService,
		security:    spy,
	}
}

func (ts *testStack) mintToken(t *testing.T, userID id.UserID, tier string, expiresIn time.Duration) string {
	t.Helper()
	token, err := ts.tokens.GenerateSessionToken(userID, id.NewSessionID(), "haven-mobile", tier, expiresIn)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

type RouterSuite struct {
	suite.Suite
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func (s *RouterSuite) decodeBody(w *httptest.ResponseRecorder) map[string]any {
	var resp map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (s *RouterSuite) TestOpenEndpoints() {
	stack := newTestStack(s.T(), testAdminToken)

	s.Run("healthz answers without credentials", func() {
		w := s.serve(stack.router, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		s.Equal(http.StatusOK, w.Code)
		s.Equal("ok", s.decodeBody(w)["status"])
	})

	s.Run("metrics endpoint serves the exposition format", func() {
		w := s.serve(stack.router, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		s.Equal(http.StatusOK, w.Code)
		s.NotEmpty(w.Body.String())
	})

	s.Run("unknown route answers JSON not found", func() {
		w := s.serve(stack.router, httptest.NewRequest(http.MethodGet, "/nope", nil))

		s.Equal(http.StatusNotFound, w.Code)
		s.Equal("not_found", s.decodeBody(w)["error"])
	})
}

func (s *RouterSuite) TestV1AuthChain() {
	userID := id.NewUserID()

	s.Run("request without a token is rejected", func() {
		stack := newTestStack(s.T(), testAdminToken)

		w := s.serve(stack.router, httptest.NewRequest(http.MethodGet, "/v1/assessments", nil))

		s.Equal(http.StatusUnauthorized, w.Code)
		s.Equal("unauthorized", s.decodeBody(w)["error"])
	})

	s.Run("garbage token is rejected", func() {
		stack := newTestStack(s.T(), testAdminToken)

		req := httptest.NewRequest(http.MethodGet, "/v1/assessments", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		w := s.serve(stack.router, req)

		s.Equal(http.StatusUnauthorized, w.Code)
	})

	s.Run("expired token is rejected", func() {
		stack := newTestStack(s.T(), testAdminToken)
		token := stack.mintToken(s.T(), userID, "free", -time.Minute)

		req := httptest.NewRequest(http.MethodGet, "/v1/assessments", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := s.serve(stack.router, req)

		s.Equal(http.StatusUnauthorized, w.Code)
	})

	s.Run("valid token reaches the handler with its tier claim", func() {
		stack := newTestStack(s.T(), testAdminToken)
		token := stack.mintToken(s.T(), userID, "premium", time.Hour)

		var seenTier string
		stack.assessments.EXPECT().History(gomock.Any(), userID).DoAndReturn(
			func(ctx context.Context, _ id.UserID) ([]assessment.Record, error) {
				seenTier = requestcontext.SubscriptionTier(ctx)
				return []assessment.Record{}, nil
			})

		req := httptest.NewRequest(http.MethodGet, "/v1/assessments", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := s.serve(stack.router, req)

		s.Equal(http.StatusOK, w.Code)
		s.Equal("premium", seenTier)
		s.Equal(float64(0), s.decodeBody(w)["count"])
	})

	s.Run("revoked token is rejected", func() {
		stack := newTestStack(s.T(), testAdminToken)
		token := stack.mintToken(s.T(), userID, "free", time.Hour)

		claims, err := stack.tokens.ValidateToken(token)
		s.Require().NoError(err)
		s.Require().NoError(stack.revocations.Revoke(context.Background(), claims.ID, time.Hour))

		req := httptest.NewRequest(http.MethodGet, "/v1/assessments", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := s.serve(stack.router, req)

		s.Equal(http.StatusUnauthorized, w.Code)
		s.Equal("token has been revoked", s.decodeBody(w)["error_description"])
	})
}

func (s *RouterSuite) TestOperatorGate() {
	s.Run("operator route without token is rejected", func() {
		stack := newTestStack(s.T(), testAdminToken)

		w := s.serve(stack.router, httptest.NewRequest(http.MethodGet, "/admin/sla/history", nil))

		s.Equal(http.StatusUnauthorized, w.Code)
	})

	s.Run("wrong operator token is rejected", func() {
		stack := newTestStack(s.T(), testAdminToken)

		req := httptest.NewRequest(http.MethodGet, "/admin/sla/history", nil)
		req.Header.Set(admin.HeaderAdminToken, "wrong-token")
		w := s.serve(stack.router, req)

		s.Equal(http.StatusUnauthorized, w.Code)
	})

	s.Run("unset operator token disables the routes", func() {
		stack := newTestStack(s.T(), "")

		req := httptest.NewRequest(http.MethodGet, "/admin/sla/history", nil)
		req.Header.Set(admin.HeaderAdminToken, "")
		w := s.serve(stack.router, req)

		s.Equal(http.StatusUnauthorized, w.Code)
	})

	s.Run("correct operator token is accepted", func() {
		stack := newTestStack(s.T(), testAdminToken)

		req := httptest.NewRequest(http.MethodGet, "/admin/sla/history", nil)
		req.Header.Set(admin.HeaderAdminToken, testAdminToken)
		w := s.serve(stack.router, req)

		s.Equal(http.StatusOK, w.Code)
	})

	s.Run("boundary check requires the operator token", func() {
		stack := newTestStack(s.T(), testAdminToken)

		body := []byte(`{"tier":"free","context_type":"therapeutic"}`)
		w := s.serve(stack.router, httptest.NewRequest(http.MethodPost, "/v1/isolation/check", bytes.NewReader(body)))

		s.Equal(http.StatusUnauthorized, w.Code)
	})

	s.Run("boundary check with the token runs the guard", func() {
		stack := newTestStack(s.T(), testAdminToken)

		body := []byte(`{"tier":"free","context_type":"therapeutic","data":{"card_number":"4111111111111111"}}`)
		req := httptest.NewRequest(http.MethodPost, "/v1/isolation/check", bytes.NewReader(body))
		req.Header.Set(admin.HeaderAdminToken, testAdminToken)
		w := s.serve(stack.router, req)

		s.Equal(http.StatusOK, w.Code)
		resp := s.decodeBody(w)
		s.Equal(true, resp["isolated"])
		corrected := resp["corrected_data"].(map[string]any)
		s.NotContains(corrected, "card_number")
	})
}

// TestRevokeThenAuthenticate covers the operator revocation cutting off a
// live session end to end: the same list the operator writes is the one the
// auth middleware consults.
func (s *RouterSuite) TestRevokeThenAuthenticate() {
	stack := newTestStack(s.T(), testAdminToken)
	userID := id.NewUserID()
	token := stack.mintToken(s.T(), userID, "premium", time.Hour)

	stack.assessments.EXPECT().History(gomock.Any(), userID).Return([]assessment.Record{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/assessments", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	s.Equal(http.StatusOK, s.serve(stack.router, req).Code)

	body, err := json.Marshal(map[string]string{"token": token})
	s.Require().NoError(err)
	revokeReq := httptest.NewRequest(http.MethodPost, "/admin/revocations", bytes.NewReader(body))
	revokeReq.Header.Set(admin.HeaderAdminToken, testAdminToken)
	s.Equal(http.StatusNoContent, s.serve(stack.router, revokeReq).Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/assessments", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := s.serve(stack.router, req)

	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal("token has been revoked", s.decodeBody(w)["error_description"])

	s.Require().Len(stack.security.events, 1)
	s.Equal("session_revoked", stack.security.events[0].Action)
	s.Equal(userID.String(), stack.security.events[0].Subject)
}
