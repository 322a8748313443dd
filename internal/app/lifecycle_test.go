package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shoply/renewal-service/internal/domain"
	"github.com/shoply/renewal-service/internal/store"
)

func TestPauseSubscription_ReversesPendingCycle(t *testing.T) {
	repo := newRepoStub()
	notifier := &notifierStub{}
	service := newTestService(repo, notifier)

	sub := seedWalletSubscription(repo, mondayUTC())
	repo.delivery = &domain.SubscriptionDelivery{
		ID:             uuid.New(),
		SubscriptionID: sub.ID,
		DeliveryDate:   mondayUTC().AddDate(0, 0, 5),
		Status:         domain.DeliveryProcessing,
	}

	if err := service.PauseSubscription(context.Background(), sub.ID, mondayUTC()); err != nil {
		t.Fatalf("PauseSubscription returned error: %v", err)
	}

	if len(repo.cancelCalls) != 1 {
		t.Fatalf("expected 1 cycle reversal, got %d", len(repo.cancelCalls))
	}
	if repo.cancelCalls[0].NewStatus != domain.SubscriptionPaused {
		t.Errorf("expected paused status, got %q", repo.cancelCalls[0].NewStatus)
	}
	templates := notifier.templates()
	if len(templates) != 1 || templates[0] != domain.NotifyPaused {
		t.Errorf("expected a paused notification, got %v", templates)
	}
}

// Pausing two days before a delivery with a two-day buffer must be refused:
// the window closes when the days remaining are equal to the buffer, not
// only when they are below it.
func TestPauseSubscription_RefusedAtBufferBoundary(t *testing.T) {
	repo := newRepoStub()
	notifier := &notifierStub{}
	service := newTestService(repo, notifier)

	sub := seedWalletSubscription(repo, mondayUTC())
	repo.delivery = &domain.SubscriptionDelivery{
		ID:             uuid.New(),
		SubscriptionID: sub.ID,
		DeliveryDate:   mondayUTC().AddDate(0, 0, 2),
		Status:         domain.DeliveryProcessing,
	}

	err := service.PauseSubscription(context.Background(), sub.ID, mondayUTC())
	if !errors.Is(err, ErrDeliveryTooClose) {
		t.Fatalf("expected ErrDeliveryTooClose, got %v", err)
	}
	if len(repo.cancelCalls) != 0 {
		t.Fatalf("expected no reversal inside the buffer window, got %d", len(repo.cancelCalls))
	}
}

func TestPauseSubscription_AllowedJustOutsideBuffer(t *testing.T) {
	repo := newRepoStub()
	notifier := &notifierStub{}
	service := newTestService(repo, notifier)

	sub := seedWalletSubscription(repo, mondayUTC())
	repo.delivery = &domain.SubscriptionDelivery{
		ID:             uuid.New(),
		SubscriptionID: sub.ID,
		DeliveryDate:   mondayUTC().AddDate(0, 0, 3),
		Status:         domain.DeliveryProcessing,
	}

	if err := service.PauseSubscription(context.Background(), sub.ID, mondayUTC()); err != nil {
		t.Fatalf("expected pause three days out to succeed, got %v", err)
	}
}

func TestPauseSubscription_RequiresActiveStatus(t *testing.T) {
	repo := newRepoStub()
	notifier := &notifierStub{}
	service := newTestService(repo, notifier)

	sub := seedWalletSubscription(repo, mondayUTC())
	repo.subs[sub.ID].Status = domain.SubscriptionPaused

	err := service.PauseSubscription(context.Background(), sub.ID, mondayUTC())
	if !errors.Is(err, store.ErrSubscriptionNotActive) {
		t.Fatalf("expected ErrSubscriptionNotActive, got %v", err)
	}
}

func TestResumeSubscription_Reactivates(t *testing.T) {
	repo := newRepoStub()
	notifier := &notifierStub{}
	service := newTestService(repo, notifier)

	sub := seedWalletSubscription(repo, mondayUTC())
	repo.subs[sub.ID].Status = domain.SubscriptionPaused

	if err := service.ResumeSubscription(context.Background(), sub.ID); err != nil {
		t.Fatalf("ResumeSubscription returned error: %v", err)
	}
	if repo.subs[sub.ID].Status != domain.SubscriptionActive {
		t.Fatalf("expected subscription active, got %q", repo.subs[sub.ID].Status)
	}
}

func TestResumeSubscription_PropagatesNotPaused(t *testing.T) {
	repo := newRepoStub()
	notifier := &notifierStub{}
	service := newTestService(repo, notifier)

	sub := seedWalletSubscription(repo, mondayUTC())
	repo.resumeErr = store.ErrSubscriptionNotPaused

	if err := service.ResumeSubscription(context.Background(), sub.ID); !errors.Is(err, store.ErrSubscriptionNotPaused) {
		t.Fatalf("expected ErrSubscriptionNotPaused, got %v", err)
	}
}

func TestCancelSubscription_AllowedFromPaused(t *testing.T) {
	repo := newRepoStub()
	notifier := &notifierStub{}
	service := newTestService(repo, notifier)

	sub := seedWalletSubscription(repo, mondayUTC())
	repo.subs[sub.ID].Status = domain.SubscriptionPaused

	if err := service.CancelSubscription(context.Background(), sub.ID, mondayUTC()); err != nil {
		t.Fatalf("CancelSubscription returned error: %v", err)
	}
	if len(repo.cancelCalls) != 1 || repo.cancelCalls[0].NewStatus != domain.SubscriptionCancelled {
		t.Fatalf("expected a cancellation reversal, got %+v", repo.cancelCalls)
	}
	templates := notifier.templates()
	if len(templates) != 1 || templates[0] != domain.NotifyCancelled {
		t.Errorf("expected a cancelled notification, got %v", templates)
	}
}

func TestCancelSubscription_RefusedFromCancelled(t *testing.T) {
	repo := newRepoStub()
	notifier := &notifierStub{}
	service := newTestService(repo, notifier)

	sub := seedWalletSubscription(repo, mondayUTC())
	repo.subs[sub.ID].Status = domain.SubscriptionCancelled

	err := service.CancelSubscription(context.Background(), sub.ID, mondayUTC())
	if !errors.Is(err, store.ErrSubscriptionNotActive) {
		t.Fatalf("expected ErrSubscriptionNotActive, got %v", err)
	}
}

func TestCancelSubscription_NoUpcomingDeliveryAllowed(t *testing.T) {
	repo := newRepoStub()
	notifier := &notifierStub{}
	service := newTestService(repo, notifier)

	sub := seedWalletSubscription(repo, mondayUTC())
	repo.delivery = nil

	if err := service.CancelSubscription(context.Background(), sub.ID, mondayUTC()); err != nil {
		t.Fatalf("expected cancel without pending delivery to succeed, got %v", err)
	}
	if len(repo.cancelCalls) != 1 {
		t.Fatalf("expected 1 cycle reversal, got %d", len(repo.cancelCalls))
	}
}

func TestCancelSubscription_RefusedInsideBuffer(t *testing.T) {
	repo := newRepoStub()
	notifier := &notifierStub{}
	service := newTestService(repo, notifier)

	sub := seedWalletSubscription(repo, mondayUTC())
	repo.delivery = &domain.SubscriptionDelivery{
		ID:             uuid.New(),
		SubscriptionID: sub.ID,
		DeliveryDate:   mondayUTC().Add(24 * time.Hour),
		Status:         domain.DeliveryProcessing,
	}

	err := service.CancelSubscription(context.Background(), sub.ID, mondayUTC())
	if !errors.Is(err, ErrDeliveryTooClose) {
		t.Fatalf("expected ErrDeliveryTooClose, got %v", err)
	}
}
