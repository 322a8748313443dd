/**
 * @description
 * This file contains the HTTP handlers for the renewal-service's API endpoints.
 * Handlers are responsible for parsing incoming requests, calling the appropriate
 * methods on the application service, and writing the HTTP response. They act as the
 * bridge between the web layer and the business logic layer.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/store: For service logic and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shoply/renewal-service/internal/app"
	"github.com/shoply/renewal-service/internal/domain"
	"github.com/shoply/renewal-service/internal/store"
)

// SubscriptionHandlers holds the application service that handlers will use.
type SubscriptionHandlers struct {
	service *app.Service
}

// NewSubscriptionHandlers creates a new instance of SubscriptionHandlers.
func NewSubscriptionHandlers(service *app.Service) *SubscriptionHandlers {
	return &SubscriptionHandlers{service: service}
}

// subscriptionFromRequest loads the subscription addressed by the URL and
// enforces that the authenticated customer owns it. A foreign subscription
// reads as not found so ids cannot be probed.
func (h *SubscriptionHandlers) subscriptionFromRequest(w http.ResponseWriter, r *http.Request) (*domain.Subscription, bool) {
	customerID, ok := CustomerFromContext(r.Context())
	if !ok {
		http.Error(w, "Could not get customer ID from context", http.StatusInternalServerError)
		return nil, false
	}

	subscriptionID, err := uuid.Parse(chi.URLParam(r, "subscriptionID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid subscription ID")
		return nil, false
	}

	sub, err := h.service.GetSubscription(r.Context(), subscriptionID)
	if err != nil {
		if errors.Is(err, store.ErrSubscriptionNotFound) {
			h.writeError(w, http.StatusNotFound, "Subscription not found")
			return nil, false
		}
		log.Printf("level=error component=api msg=\"failed to load subscription\" subscription_id=%s err=%v", subscriptionID, err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return nil, false
	}
	if sub.CustomerID != customerID {
		h.writeError(w, http.StatusNotFound, "Subscription not found")
		return nil, false
	}

	return sub, true
}

// GetSubscriptionHandler returns the current state of a subscription.
func (h *SubscriptionHandlers) GetSubscriptionHandler(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.subscriptionFromRequest(w, r)
	if !ok {
		return
	}

	h.writeJSON(w, http.StatusOK, sub)
}

// PauseSubscriptionHandler pauses an active subscription.
func (h *SubscriptionHandlers) PauseSubscriptionHandler(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.subscriptionFromRequest(w, r)
	if !ok {
		return
	}

	if err := h.service.PauseSubscription(r.Context(), sub.ID, time.Now()); err != nil {
		h.writeLifecycleError(w, sub.ID, "pause", err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "paused"})
}

// ResumeSubscriptionHandler reactivates a paused subscription.
func (h *SubscriptionHandlers) ResumeSubscriptionHandler(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.subscriptionFromRequest(w, r)
	if !ok {
		return
	}

	if err := h.service.ResumeSubscription(r.Context(), sub.ID); err != nil {
		h.writeLifecycleError(w, sub.ID, "resume", err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "active"})
}

// CancelSubscriptionHandler cancels an active or paused subscription.
func (h *SubscriptionHandlers) CancelSubscriptionHandler(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.subscriptionFromRequest(w, r)
	if !ok {
		return
	}

	if err := h.service.CancelSubscription(r.Context(), sub.ID, time.Now()); err != nil {
		h.writeLifecycleError(w, sub.ID, "cancel", err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// RunRenewalsHandler triggers a renewal sweep. Internal use only; the
// scheduler is the usual caller, this endpoint covers manual reruns.
func (h *SubscriptionHandlers) RunRenewalsHandler(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.RenewSubscriptions(r.Context(), time.Now())
	if err != nil {
		log.Printf("level=error component=api msg=\"manual renewal run failed\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Renewal run failed")
		return
	}

	h.writeJSON(w, http.StatusOK, summary)
}

// writeLifecycleError maps service errors from pause/resume/cancel to HTTP
// status codes.
func (h *SubscriptionHandlers) writeLifecycleError(w http.ResponseWriter, subscriptionID uuid.UUID, action string, err error) {
	switch {
	case errors.Is(err, store.ErrSubscriptionNotFound):
		h.writeError(w, http.StatusNotFound, "Subscription not found")
	case errors.Is(err, app.ErrDeliveryTooClose):
		h.writeError(w, http.StatusConflict, "The next delivery is too close; try again after it ships")
	case errors.Is(err, store.ErrSubscriptionNotActive):
		h.writeError(w, http.StatusConflict, "Subscription is not active")
	case errors.Is(err, store.ErrSubscriptionNotPaused):
		h.writeError(w, http.StatusConflict, "Subscription is not paused")
	default:
		log.Printf("level=error component=api msg=\"subscription lifecycle action failed\" action=%s subscription_id=%s err=%v", action, subscriptionID, err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// writeJSON is a helper for writing JSON responses.
func (h *SubscriptionHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func (h *SubscriptionHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
