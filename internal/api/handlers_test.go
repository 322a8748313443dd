package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shoply/renewal-service/internal/app"
	"github.com/shoply/renewal-service/internal/config"
	"github.com/shoply/renewal-service/internal/domain"
	"github.com/shoply/renewal-service/internal/store"
)

const testJWTSecret = "test-secret"
const testInternalKey = "internal-key"

// apiRepoStub backs the handler tests with a single subscription and its
// next delivery.
type apiRepoStub struct {
	sub      *domain.Subscription
	delivery *domain.SubscriptionDelivery

	cancelCalls []store.CancelCycleParams
	resumed     []uuid.UUID
	getCalls    int
}

func (s *apiRepoStub) GetSubscription(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	s.getCalls++
	if s.sub == nil || s.sub.ID != id {
		return nil, store.ErrSubscriptionNotFound
	}
	copied := *s.sub
	return &copied, nil
}

func (s *apiRepoStub) ListDueSubscriptions(ctx context.Context, dueOn time.Time, limit, offset int) ([]domain.Subscription, error) {
	return nil, nil
}

func (s *apiRepoStub) GetPlan(ctx context.Context, id uuid.UUID) (*domain.SubscriptionPlan, error) {
	return nil, store.ErrPlanNotFound
}

func (s *apiRepoStub) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return nil, store.ErrProductNotFound
}

func (s *apiRepoStub) GetWalletByCustomerID(ctx context.Context, customerID uuid.UUID) (*domain.Wallet, error) {
	return nil, store.ErrWalletNotFound
}

func (s *apiRepoStub) GetNextDelivery(ctx context.Context, subscriptionID uuid.UUID, onOrAfter time.Time) (*domain.SubscriptionDelivery, error) {
	if s.delivery == nil || s.delivery.SubscriptionID != subscriptionID {
		return nil, nil
	}
	copied := *s.delivery
	return &copied, nil
}

func (s *apiRepoStub) ClaimSubscription(ctx context.Context, id uuid.UUID) error   { return nil }
func (s *apiRepoStub) ReleaseSubscription(ctx context.Context, id uuid.UUID) error { return nil }
func (s *apiRepoStub) MarkPaused(ctx context.Context, id uuid.UUID) error          { return nil }

func (s *apiRepoStub) ResumeSubscription(ctx context.Context, id uuid.UUID) error {
	if s.sub == nil || s.sub.ID != id {
		return store.ErrSubscriptionNotFound
	}
	if s.sub.Status != domain.SubscriptionPaused {
		return store.ErrSubscriptionNotPaused
	}
	s.sub.Status = domain.SubscriptionActive
	s.resumed = append(s.resumed, id)
	return nil
}

func (s *apiRepoStub) ApplyWalletCharge(ctx context.Context, p store.WalletChargeParams) (*domain.Order, error) {
	return nil, store.ErrSubscriptionNotFound
}

func (s *apiRepoStub) LockNextCycle(ctx context.Context, p store.LockNextCycleParams) error {
	return nil
}

func (s *apiRepoStub) ApplyCODRenewal(ctx context.Context, p store.CODRenewalParams) (*domain.Order, error) {
	return nil, store.ErrSubscriptionNotFound
}

func (s *apiRepoStub) CancelSubscriptionCycle(ctx context.Context, p store.CancelCycleParams) error {
	s.cancelCalls = append(s.cancelCalls, p)
	if s.sub != nil && s.sub.ID == p.SubscriptionID {
		s.sub.Status = p.NewStatus
	}
	return nil
}

type apiNotifierStub struct{}

func (apiNotifierStub) Notify(ctx context.Context, event domain.NotificationEvent) error { return nil }

func testRouter(repo *apiRepoStub) (*SubscriptionHandlers, http.Handler) {
	cfg := config.Config{
		JWTSecret:                   testJWTSecret,
		InternalAPIKey:              testInternalKey,
		BatchSize:                   10,
		ConcurrentBatches:           1,
		MaxRetries:                  1,
		BufferDays:                  2,
		LifecycleRateLimitPerMinute: 30,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := app.NewService(repo, apiNotifierStub{}, logger, cfg)
	handlers := NewSubscriptionHandlers(service)
	return handlers, NewRouter(handlers, nil, cfg)
}

func bearerTokenFor(t *testing.T, customerID uuid.UUID) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": customerID.String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return "Bearer " + signed
}

func seedAPISubscription(status string) *apiRepoStub {
	return &apiRepoStub{
		sub: &domain.Subscription{
			ID:            uuid.New(),
			CustomerID:    uuid.New(),
			PlanID:        uuid.New(),
			Status:        status,
			PaymentMethod: domain.PaymentMethodWallet,
			RenewalDate:   time.Now().AddDate(0, 0, 5),
			PlanPrice:     decimal.NewFromInt(50),
		},
	}
}

func TestGetEndpoint_ReturnsOwnSubscription(t *testing.T) {
	repo := seedAPISubscription(domain.SubscriptionActive)
	_, router := testRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/subscriptions/"+repo.sub.ID.String(), nil)
	req.Header.Set("Authorization", bearerTokenFor(t, repo.sub.CustomerID))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body domain.Subscription
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.ID != repo.sub.ID {
		t.Errorf("expected subscription %s in body, got %s", repo.sub.ID, body.ID)
	}
	// The ownership check and the response share one load.
	if repo.getCalls != 1 {
		t.Errorf("expected a single subscription load, got %d", repo.getCalls)
	}
}

func TestPauseEndpoint_RequiresAuth(t *testing.T) {
	repo := seedAPISubscription(domain.SubscriptionActive)
	_, router := testRouter(repo)

	req := httptest.NewRequest(http.MethodPost, "/subscriptions/"+repo.sub.ID.String()+"/pause", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestPauseEndpoint_PausesOwnSubscription(t *testing.T) {
	repo := seedAPISubscription(domain.SubscriptionActive)
	_, router := testRouter(repo)

	req := httptest.NewRequest(http.MethodPost, "/subscriptions/"+repo.sub.ID.String()+"/pause", nil)
	req.Header.Set("Authorization", bearerTokenFor(t, repo.sub.CustomerID))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(repo.cancelCalls) != 1 || repo.cancelCalls[0].NewStatus != domain.SubscriptionPaused {
		t.Fatalf("expected a pause reversal, got %+v", repo.cancelCalls)
	}
}

func TestPauseEndpoint_ForeignSubscriptionReadsAsNotFound(t *testing.T) {
	repo := seedAPISubscription(domain.SubscriptionActive)
	_, router := testRouter(repo)

	req := httptest.NewRequest(http.MethodPost, "/subscriptions/"+repo.sub.ID.String()+"/pause", nil)
	req.Header.Set("Authorization", bearerTokenFor(t, uuid.New()))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for another customer's subscription, got %d", rec.Code)
	}
	if len(repo.cancelCalls) != 0 {
		t.Fatal("expected no reversal for another customer's subscription")
	}
}

func TestPauseEndpoint_ImminentDeliveryConflicts(t *testing.T) {
	repo := seedAPISubscription(domain.SubscriptionActive)
	repo.delivery = &domain.SubscriptionDelivery{
		ID:             uuid.New(),
		SubscriptionID: repo.sub.ID,
		DeliveryDate:   time.Now().AddDate(0, 0, 1),
		Status:         domain.DeliveryProcessing,
	}
	_, router := testRouter(repo)

	req := httptest.NewRequest(http.MethodPost, "/subscriptions/"+repo.sub.ID.String()+"/pause", nil)
	req.Header.Set("Authorization", bearerTokenFor(t, repo.sub.CustomerID))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 inside the delivery buffer, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestResumeEndpoint_ConflictsWhenNotPaused(t *testing.T) {
	repo := seedAPISubscription(domain.SubscriptionActive)
	_, router := testRouter(repo)

	req := httptest.NewRequest(http.MethodPost, "/subscriptions/"+repo.sub.ID.String()+"/resume", nil)
	req.Header.Set("Authorization", bearerTokenFor(t, repo.sub.CustomerID))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 resuming an active subscription, got %d", rec.Code)
	}
}

func TestResumeEndpoint_ReactivatesPausedSubscription(t *testing.T) {
	repo := seedAPISubscription(domain.SubscriptionPaused)
	_, router := testRouter(repo)

	req := httptest.NewRequest(http.MethodPost, "/subscriptions/"+repo.sub.ID.String()+"/resume", nil)
	req.Header.Set("Authorization", bearerTokenFor(t, repo.sub.CustomerID))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(repo.resumed) != 1 {
		t.Fatalf("expected resume call, got %v", repo.resumed)
	}
}

func TestInternalRenewalsEndpoint_RequiresAPIKey(t *testing.T) {
	repo := seedAPISubscription(domain.SubscriptionActive)
	_, router := testRouter(repo)

	req := httptest.NewRequest(http.MethodPost, "/internal/renewals/run", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without internal key, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/internal/renewals/run", nil)
	req.Header.Set("X-Internal-API-Key", testInternalKey)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with internal key, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHealthEndpoint(t *testing.T) {
	repo := seedAPISubscription(domain.SubscriptionActive)
	_, router := testRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
