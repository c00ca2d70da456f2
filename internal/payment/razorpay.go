package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"time"

	razorpay "github.com/razorpay/razorpay-go"
	log "github.com/sirupsen/logrus"
)

// Gateway wraps the Razorpay client for order creation, verification, and
// refunds. Amounts cross the wire in paise.
type Gateway struct {
	client    *razorpay.Client
	keyID     string
	keySecret string
}

// NewGateway constructs a Gateway from API credentials.
func NewGateway(keyID, keySecret string) *Gateway {
	return &Gateway{
		client:    razorpay.NewClient(keyID, keySecret),
		keyID:     keyID,
		keySecret: keySecret,
	}
}

// KeyID returns the public API key the frontend embeds in its checkout form.
func (g *Gateway) KeyID() string { return g.keyID }

// Order is the subset of a gateway order the backend acts on.
type Order struct {
	ID          string
	AmountPaise int64
	Currency    string
	Notes       OrderNotes
}

// OrderNotes carries the purchase context through the gateway round trip.
// Verification reads these back from the fetched order rather than trusting
// the callback body.
type OrderNotes struct {
	UserID    uint64
	PlanID    uint64
	ExpiresAt time.Time
}

// AmountToPaise converts a rupee price to paise. Rounding, not truncation:
// 2499.99 rupees is 249999 paise, and float multiplication alone lands on
// 249998.99999....
func AmountToPaise(amountRupees float64) int64 {
	return int64(math.Round(amountRupees * 100))
}

// CreateOrder opens a gateway order for the given amount in rupees.
func (g *Gateway) CreateOrder(amountRupees float64, notes OrderNotes) (*Order, error) {
	data := map[string]any{
		"amount":   AmountToPaise(amountRupees),
		"currency": "INR",
		"receipt":  fmt.Sprintf("receipt_%d", time.Now().UnixMilli()),
		"notes": map[string]any{
			"userId":    strconv.FormatUint(notes.UserID, 10),
			"planId":    strconv.FormatUint(notes.PlanID, 10),
			"expiresAt": notes.ExpiresAt.UTC().Format(time.RFC3339),
		},
	}
	body, errCreate := g.client.Order.Create(data, nil)
	if errCreate != nil {
		return nil, fmt.Errorf("payment: create order: %w", errCreate)
	}
	return orderFromBody(body)
}

// FetchOrder reloads an order by its gateway ID.
func (g *Gateway) FetchOrder(orderID string) (*Order, error) {
	body, errFetch := g.client.Order.Fetch(orderID, nil, nil)
	if errFetch != nil {
		return nil, fmt.Errorf("payment: fetch order %s: %w", orderID, errFetch)
	}
	return orderFromBody(body)
}

// Refund issues a full refund for the payment. Callers treat this as best
// effort: a failed refund is logged for manual follow-up, never retried into
// the request path.
func (g *Gateway) Refund(paymentID string, amountPaise int64) error {
	_, errRefund := g.client.Payment.Refund(paymentID, int(amountPaise), nil, nil)
	if errRefund != nil {
		log.WithError(errRefund).WithField("payment_id", paymentID).Error("refund failed, needs manual follow-up")
		return fmt.Errorf("payment: refund %s: %w", paymentID, errRefund)
	}
	return nil
}

// VerifySignature checks the checkout callback signature: HMAC-SHA256 over
// "orderId|paymentId" keyed with the API secret, hex encoded. The comparison
// is constant time.
func (g *Gateway) VerifySignature(orderID, paymentID, signature string) bool {
	return VerifySignature(g.keySecret, orderID, paymentID, signature)
}

// VerifySignature is the keyed form used directly by tests.
func VerifySignature(secret, orderID, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func orderFromBody(body map[string]any) (*Order, error) {
	order := &Order{}
	if id, ok := body["id"].(string); ok {
		order.ID = id
	}
	if order.ID == "" {
		return nil, fmt.Errorf("payment: order response missing id")
	}
	switch amount := body["amount"].(type) {
	case float64:
		order.AmountPaise = int64(amount)
	case int64:
		order.AmountPaise = amount
	case int:
		order.AmountPaise = int64(amount)
	}
	if currency, ok := body["currency"].(string); ok {
		order.Currency = currency
	}

	notes, _ := body["notes"].(map[string]any)
	order.Notes = notesFromBody(notes)
	return order, nil
}

func notesFromBody(notes map[string]any) OrderNotes {
	parsed := OrderNotes{}
	if notes == nil {
		return parsed
	}
	if raw, ok := notes["userId"].(string); ok {
		if id, errParse := strconv.ParseUint(raw, 10, 64); errParse == nil {
			parsed.UserID = id
		}
	}
	if raw, ok := notes["planId"].(string); ok {
		if id, errParse := strconv.ParseUint(raw, 10, 64); errParse == nil {
			parsed.PlanID = id
		}
	}
	if raw, ok := notes["expiresAt"].(string); ok {
		if at, errParse := time.Parse(time.RFC3339, raw); errParse == nil {
			parsed.ExpiresAt = at
		}
	}
	return parsed
}
