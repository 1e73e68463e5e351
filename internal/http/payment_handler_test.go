package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jesslyntrixie/beegrub-payments-api/internal/gateway"
	"github.com/jesslyntrixie/beegrub-payments-api/internal/payment"
)

type markCall struct {
	orderID         string
	status          payment.Status
	paidAt          *time.Time
	gatewayResponse json.RawMessage
}

type fakeRepo struct {
	marks   []markCall
	markErr error
	getFunc func(ctx context.Context, orderID string) (payment.Record, error)
}

func (f *fakeRepo) Get(ctx context.Context, orderID string) (payment.Record, error) {
	if f.getFunc != nil {
		return f.getFunc(ctx, orderID)
	}
	return payment.Record{}, payment.ErrNotFound
}

func (f *fakeRepo) MarkPaymentStatus(ctx context.Context, orderID string, status payment.Status, paidAt *time.Time, gatewayResponse json.RawMessage) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.marks = append(f.marks, markCall{orderID: orderID, status: status, paidAt: paidAt, gatewayResponse: gatewayResponse})
	return nil
}

type fakeGateway struct {
	lastParams gateway.ChargeParams
	createErr  error
	validSig   bool
}

func (f *fakeGateway) CreateQRISTransaction(ctx context.Context, p gateway.ChargeParams) (*gateway.Transaction, error) {
	f.lastParams = p
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &gateway.Transaction{OrderID: p.OrderID, TransactionStatus: "pending"}, nil
}

func (f *fakeGateway) VerifySignature(orderID, statusCode, grossAmount, signatureKey string) bool {
	return f.validSig
}

type fakePublisher struct {
	published []markCall
	err       error
}

func (f *fakePublisher) PublishPaymentStatus(ctx context.Context, orderID string, status payment.Status) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, markCall{orderID: orderID, status: status})
	return nil
}

func newTestRouter(repo *fakeRepo, gw *fakeGateway, pub StatusPublisher, production bool) http.Handler {
	logger := log.New(io.Discard, "", 0)
	return NewRouter(NewHandler(repo, gw, pub, logger, production))
}

func postJSON(t *testing.T, router http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestHealth(t *testing.T) {
	router := newTestRouter(&fakeRepo{}, &fakeGateway{}, nil, false)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestCreateQRISPayment_Success(t *testing.T) {
	gw := &fakeGateway{}
	router := newTestRouter(&fakeRepo{}, gw, nil, false)

	rec := postJSON(t, router, "/payments/qris", `{"orderId":"A1","amount":10000}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Contains(t, body, "transaction")

	assert.Equal(t, "A1", gw.lastParams.OrderID)
	assert.Equal(t, int64(10000), gw.lastParams.Amount)
	assert.Empty(t, gw.lastParams.Customer.Name)
	assert.Empty(t, gw.lastParams.Items)
}

func TestCreateQRISPayment_MissingFields(t *testing.T) {
	router := newTestRouter(&fakeRepo{}, &fakeGateway{}, nil, false)

	for _, body := range []string{
		`{"amount":10000}`,
		`{"orderId":"A1"}`,
		`{}`,
	} {
		rec := postJSON(t, router, "/payments/qris", body)
		require.Equal(t, http.StatusBadRequest, rec.Code, "body: %s", body)
		assert.NotEmpty(t, decodeBody(t, rec)["error"])
	}
}

func TestCreateQRISPayment_InvalidJSON(t *testing.T) {
	router := newTestRouter(&fakeRepo{}, &fakeGateway{}, nil, false)

	rec := postJSON(t, router, "/payments/qris", `{invalid`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateQRISPayment_GatewayFailure(t *testing.T) {
	gw := &fakeGateway{createErr: errors.New("midtrans unreachable")}
	router := newTestRouter(&fakeRepo{}, gw, nil, false)

	rec := postJSON(t, router, "/payments/qris", `{"orderId":"A1","amount":10000}`)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Unable to create payment at the moment.", body["error"])
	assert.Equal(t, "midtrans unreachable", body["details"])
	assert.Contains(t, body, "stack")
}

func TestCreateQRISPayment_GatewayFailureProductionHidesStack(t *testing.T) {
	gw := &fakeGateway{createErr: errors.New("midtrans unreachable")}
	router := newTestRouter(&fakeRepo{}, gw, nil, true)

	rec := postJSON(t, router, "/payments/qris", `{"orderId":"A1","amount":10000}`)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	body := decodeBody(t, rec)
	assert.NotContains(t, body, "stack")
}

func TestGetPayment_OK(t *testing.T) {
	paid := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	repo := &fakeRepo{
		getFunc: func(ctx context.Context, orderID string) (payment.Record, error) {
			return payment.Record{OrderID: orderID, Status: payment.StatusCompleted, PaidAt: &paid}, nil
		},
	}
	router := newTestRouter(repo, &fakeGateway{}, nil, false)

	req := httptest.NewRequest(http.MethodGet, "/payments/A1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "A1", body["orderId"])
	assert.Equal(t, "completed", body["status"])
}

func TestGetPayment_NotFound(t *testing.T) {
	router := newTestRouter(&fakeRepo{}, &fakeGateway{}, nil, false)

	req := httptest.NewRequest(http.MethodGet, "/payments/missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

const settlementNotification = `{
	"order_id": "A1",
	"status_code": "200",
	"gross_amount": "10000.00",
	"signature_key": "abc",
	"transaction_status": "settlement",
	"fraud_status": "accept"
}`

func TestMidtransWebhook_SettlementCompletes(t *testing.T) {
	repo := &fakeRepo{}
	pub := &fakePublisher{}
	router := newTestRouter(repo, &fakeGateway{validSig: true}, pub, false)

	rec := postJSON(t, router, "/webhooks/midtrans", settlementNotification)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["received"])

	require.Len(t, repo.marks, 1)
	call := repo.marks[0]
	assert.Equal(t, "A1", call.orderID)
	assert.Equal(t, payment.StatusCompleted, call.status)
	require.NotNil(t, call.paidAt)
	assert.JSONEq(t, settlementNotification, string(call.gatewayResponse))

	require.Len(t, pub.published, 1)
	assert.Equal(t, payment.StatusCompleted, pub.published[0].status)
}

func TestMidtransWebhook_ChallengedCaptureStaysPending(t *testing.T) {
	repo := &fakeRepo{}
	router := newTestRouter(repo, &fakeGateway{validSig: true}, nil, false)

	rec := postJSON(t, router, "/webhooks/midtrans", `{
		"order_id": "A1",
		"signature_key": "abc",
		"transaction_status": "capture",
		"fraud_status": "challenge"
	}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, repo.marks, 1)
	assert.Equal(t, payment.StatusPending, repo.marks[0].status)
	assert.Nil(t, repo.marks[0].paidAt)
}

func TestMidtransWebhook_InvalidSignature(t *testing.T) {
	repo := &fakeRepo{}
	router := newTestRouter(repo, &fakeGateway{validSig: false}, nil, false)

	rec := postJSON(t, router, "/webhooks/midtrans", settlementNotification)

	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, repo.marks)
}

func TestMidtransWebhook_MissingFields(t *testing.T) {
	router := newTestRouter(&fakeRepo{}, &fakeGateway{validSig: true}, nil, false)

	for _, body := range []string{
		`{"signature_key":"abc"}`,
		`{"order_id":"A1"}`,
		`not json`,
	} {
		rec := postJSON(t, router, "/webhooks/midtrans", body)
		require.Equal(t, http.StatusBadRequest, rec.Code, "body: %s", body)
	}
}

func TestMidtransWebhook_PersistenceFailure(t *testing.T) {
	repo := &fakeRepo{markErr: errors.New("db down")}
	router := newTestRouter(repo, &fakeGateway{validSig: true}, nil, false)

	rec := postJSON(t, router, "/webhooks/midtrans", settlementNotification)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestMidtransWebhook_PublishFailureStillAcks(t *testing.T) {
	repo := &fakeRepo{}
	pub := &fakePublisher{err: errors.New("amqp away")}
	router := newTestRouter(repo, &fakeGateway{validSig: true}, pub, false)

	rec := postJSON(t, router, "/webhooks/midtrans", settlementNotification)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, repo.marks, 1)
}

func TestCompleteDemoPayment_OK(t *testing.T) {
	repo := &fakeRepo{}
	router := newTestRouter(repo, &fakeGateway{}, nil, false)

	rec := postJSON(t, router, "/demo/payments/complete", `{"orderId":"A1"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "A1", body["orderId"])
	assert.Equal(t, "completed", body["status"])

	require.Len(t, repo.marks, 1)
	call := repo.marks[0]
	assert.Equal(t, payment.StatusCompleted, call.status)
	require.NotNil(t, call.paidAt)
	assert.JSONEq(t, `{"source":"demo-payments-complete"}`, string(call.gatewayResponse))
}

func TestCompleteDemoPayment_MissingOrderID(t *testing.T) {
	repo := &fakeRepo{}
	router := newTestRouter(repo, &fakeGateway{}, nil, false)

	rec := postJSON(t, router, "/demo/payments/complete", `{}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, repo.marks)
}

func TestCompleteDemoPayment_PersistenceFailure(t *testing.T) {
	repo := &fakeRepo{markErr: errors.New("db down")}
	router := newTestRouter(repo, &fakeGateway{}, nil, false)

	rec := postJSON(t, router, "/demo/payments/complete", `{"orderId":"A1"}`)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
