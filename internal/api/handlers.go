/**
 * @description
 * HTTP handlers for the payout service. Handlers parse requests, call the
 * application service and translate domain failures into the outward
 * response shape: 400 for client-caused rejections, 500 with a generic
 * message for provider/config failures (the real cause stays in the logs).
 */
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/watchads/payout-service/internal/app"
	"github.com/watchads/payout-service/internal/domain"
	"github.com/watchads/payout-service/internal/store"
	"github.com/watchads/payout-service/pkg/paypalclient"
)

// Handler holds the application service that handlers will interact with.
type Handler struct {
	service *app.Service
}

// NewHandler creates a new Handler with the given service.
func NewHandler(service *app.Service) *Handler {
	return &Handler{service: service}
}

type healthResponse struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type balanceResponse struct {
	Balance int64 `json:"balance"`
}

type payoutSuccessResponse struct {
	Success       bool   `json:"success"`
	PayoutBatchID string `json:"payout_batch_id"`
	NewBalance    int64  `json:"new_balance"`
	Message       string `json:"message"`
}

type payoutErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, healthResponse{
		Status:    "OK",
		Message:   "Server is running",
		Timestamp: time.Now().UTC(),
	})
}

func (h *Handler) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	respondWithJSON(w, http.StatusOK, balanceResponse{Balance: h.service.BalanceOf(userID)})
}

func (h *Handler) handlePayout(w http.ResponseWriter, r *http.Request) {
	var req domain.PayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=payout outcome=reject reason=invalid_json err=%v", err)
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.service.Payout(r.Context(), req)
	if err != nil {
		h.writePayoutError(w, req, err)
		return
	}

	respondWithJSON(w, http.StatusOK, payoutSuccessResponse{
		Success:       true,
		PayoutBatchID: result.BatchID,
		NewBalance:    result.NewBalance,
		Message:       "Payout processed successfully",
	})
}

func (h *Handler) writePayoutError(w http.ResponseWriter, req domain.PayoutRequest, err error) {
	switch {
	case errors.Is(err, app.ErrMissingRecipient):
		respondWithError(w, http.StatusBadRequest, "Missing required field: email")
	case errors.Is(err, app.ErrInvalidAmount):
		respondWithError(w, http.StatusBadRequest, "Amount must be a positive number")
	case errors.Is(err, store.ErrInsufficientBalance):
		respondWithError(w, http.StatusBadRequest, "Insufficient balance")
	default:
		switch paypalclient.KindOf(err) {
		case paypalclient.KindInvalidReceiver:
			respondWithError(w, http.StatusBadRequest, "Payment provider rejected the recipient or amount")
		case paypalclient.KindAuthentication:
			// Config problem, not user-caused; keep it distinguishable in logs.
			log.Printf("level=error component=api endpoint=payout outcome=error reason=provider_auth_failure err=%v", err)
			respondWithError(w, http.StatusInternalServerError, "Payout could not be processed")
		default:
			log.Printf("level=error component=api endpoint=payout outcome=error reason=provider_failure user_id=%s err=%v", req.UserID, err)
			respondWithError(w, http.StatusInternalServerError, "Payout could not be processed")
		}
	}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, payoutErrorResponse{Success: false, Message: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Printf("level=error component=api msg=\"failed to marshal response\" err=%v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
