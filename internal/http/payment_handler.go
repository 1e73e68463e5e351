package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jesslyntrixie/beegrub-payments-api/internal/gateway"
	"github.com/jesslyntrixie/beegrub-payments-api/internal/payment"
)

// TransactionCreator is the slice of the gateway adapter the handlers need.
type TransactionCreator interface {
	CreateQRISTransaction(ctx context.Context, p gateway.ChargeParams) (*gateway.Transaction, error)
	VerifySignature(orderID, statusCode, grossAmount, signatureKey string) bool
}

// StatusPublisher emits payment status events after persistence. Nil when
// events are disabled.
type StatusPublisher interface {
	PublishPaymentStatus(ctx context.Context, orderID string, status payment.Status) error
}

type Handler struct {
	repo       payment.Repository
	gateway    TransactionCreator
	pub        StatusPublisher
	logger     *log.Logger
	production bool
}

func NewHandler(repo payment.Repository, gw TransactionCreator, pub StatusPublisher, logger *log.Logger, production bool) *Handler {
	return &Handler{repo: repo, gateway: gw, pub: pub, logger: logger, production: production}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

type createQRISRequest struct {
	OrderID  string           `json:"orderId"`
	Amount   int64            `json:"amount"`
	Customer gateway.Customer `json:"customer"`
	Items    []gateway.Item   `json:"items"`
}

func (h *Handler) CreateQRISPayment(w http.ResponseWriter, r *http.Request) {
	var req createQRISRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OrderID == "" || req.Amount == 0 {
		writeError(w, http.StatusBadRequest, "orderId and amount are required")
		return
	}

	tx, err := h.gateway.CreateQRISTransaction(r.Context(), gateway.ChargeParams{
		OrderID:  req.OrderID,
		Amount:   req.Amount,
		Customer: req.Customer,
		Items:    req.Items,
	})
	if err != nil {
		if errors.Is(err, gateway.ErrAmountRequired) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Printf("create QRIS transaction for order=%s: %v", req.OrderID, err)
		body := map[string]any{
			"error":   "Unable to create payment at the moment.",
			"details": err.Error(),
		}
		if !h.production {
			body["stack"] = fmt.Sprintf("%+v", err)
		}
		writeJSON(w, http.StatusBadGateway, body)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"transaction": tx})
}

func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	rec, err := h.repo.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, payment.ErrNotFound) {
			writeError(w, http.StatusNotFound, "payment not found")
			return
		}
		h.logger.Printf("load payment order=%s: %v", orderID, err)
		writeError(w, http.StatusInternalServerError, "failed to load payment")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

type midtransNotification struct {
	OrderID           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
}

func (h *Handler) MidtransWebhook(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid notification payload")
		return
	}

	var n midtransNotification
	if err := json.Unmarshal(raw, &n); err != nil {
		writeError(w, http.StatusBadRequest, "invalid notification payload")
		return
	}
	if n.OrderID == "" || n.SignatureKey == "" {
		writeError(w, http.StatusBadRequest, "invalid notification payload")
		return
	}

	if !h.gateway.VerifySignature(n.OrderID, n.StatusCode, n.GrossAmount, n.SignatureKey) {
		writeError(w, http.StatusForbidden, "signature mismatch")
		return
	}

	status := payment.NormalizeStatus(n.TransactionStatus, n.FraudStatus)

	var paidAt *time.Time
	if status == payment.StatusCompleted {
		now := time.Now().UTC()
		paidAt = &now
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.repo.MarkPaymentStatus(ctx, n.OrderID, status, paidAt, raw); err != nil {
		h.logger.Printf("persist payment status order=%s status=%s: %v", n.OrderID, status, err)
		writeError(w, http.StatusInternalServerError, "failed to persist payment status")
		return
	}

	// Best-effort: the notification is already persisted, so a publish
	// failure must not turn into a 5xx that makes the gateway redeliver.
	if h.pub != nil {
		if err := h.pub.PublishPaymentStatus(r.Context(), n.OrderID, status); err != nil {
			h.logger.Printf("publish payment status order=%s status=%s: %v", n.OrderID, status, err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"received": true})
}

type demoCompleteRequest struct {
	OrderID string `json:"orderId"`
}

// CompleteDemoPayment marks an order paid without touching Midtrans.
// Demo use only; kept out of production deployments by routing config.
func (h *Handler) CompleteDemoPayment(w http.ResponseWriter, r *http.Request) {
	var req demoCompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "orderId is required")
		return
	}
	if req.OrderID == "" {
		writeError(w, http.StatusBadRequest, "orderId is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	now := time.Now().UTC()
	resp := json.RawMessage(`{"source":"demo-payments-complete"}`)
	if err := h.repo.MarkPaymentStatus(ctx, req.OrderID, payment.StatusCompleted, &now, resp); err != nil {
		h.logger.Printf("complete demo payment order=%s: %v", req.OrderID, err)
		writeError(w, http.StatusInternalServerError, "failed to complete demo payment")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"orderId": req.OrderID,
		"status":  string(payment.StatusCompleted),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
