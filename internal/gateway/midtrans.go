package gateway

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"errors"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
)

// Transaction is the raw charge response from Midtrans. Handed back to the
// caller untouched; the frontend reads the QR payload out of it.
type Transaction = coreapi.ChargeResponse

var ErrAmountRequired = errors.New("amount is required")

const (
	qrisAcquirer        = "gopay"
	defaultCustomerName = "BeeGrub Student"
	defaultEmail        = "student@beegrub.app"
	defaultPhone        = "081200000000"
)

type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type Item struct {
	ID       string `json:"id"`
	Price    int64  `json:"price"`
	Quantity int32  `json:"quantity"`
	Name     string `json:"name"`
}

type ChargeParams struct {
	OrderID  string
	Amount   int64
	Customer Customer
	Items    []Item
}

// Midtrans wraps the Core API client for QRIS charges plus the webhook
// signature check. Constructed once at startup and injected, never a
// package-level singleton.
type Midtrans struct {
	core      coreapi.Client
	serverKey string
}

func NewMidtrans(serverKey string, production bool) *Midtrans {
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}

	var c coreapi.Client
	c.New(serverKey, env)

	return &Midtrans{core: c, serverKey: serverKey}
}

// CreateQRISTransaction charges a QRIS payment for the given order. The
// gateway itself validates the order id; the amount is guarded here because
// Midtrans accepts a zero gross amount and fails later at scan time.
func (m *Midtrans) CreateQRISTransaction(ctx context.Context, p ChargeParams) (*Transaction, error) {
	if p.Amount <= 0 {
		return nil, ErrAmountRequired
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, mdErr := m.core.ChargeTransaction(chargeRequest(p))
	if mdErr != nil {
		return nil, mdErr
	}
	return res, nil
}

func chargeRequest(p ChargeParams) *coreapi.ChargeReq {
	items := make([]midtrans.ItemDetails, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, midtrans.ItemDetails{
			ID:    it.ID,
			Price: it.Price,
			Qty:   it.Quantity,
			Name:  it.Name,
		})
	}
	if len(items) == 0 {
		// Midtrans rejects charges whose item totals do not match the gross
		// amount, so cover the whole order with one synthetic line.
		items = append(items, midtrans.ItemDetails{
			ID:    p.OrderID,
			Price: p.Amount,
			Qty:   1,
			Name:  "BeeGrub order " + p.OrderID,
		})
	}

	name := p.Customer.Name
	if name == "" {
		name = defaultCustomerName
	}
	email := p.Customer.Email
	if email == "" {
		email = defaultEmail
	}
	phone := p.Customer.Phone
	if phone == "" {
		phone = defaultPhone
	}

	return &coreapi.ChargeReq{
		PaymentType: coreapi.PaymentTypeQris,
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  p.OrderID,
			GrossAmt: p.Amount,
		},
		CustomerDetails: &midtrans.CustomerDetails{
			FName: name,
			Email: email,
			Phone: phone,
		},
		Items: &items,
		Qris:  &coreapi.QrisDetails{Acquirer: qrisAcquirer},
	}
}

// VerifySignature checks a webhook notification against the Midtrans signing
// scheme: SHA-512 over order_id + status_code + gross_amount + server key,
// lowercase hex. The concatenation order is fixed by the gateway.
func (m *Midtrans) VerifySignature(orderID, statusCode, grossAmount, signatureKey string) bool {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + m.serverKey))
	return hex.EncodeToString(sum[:]) == signatureKey
}
