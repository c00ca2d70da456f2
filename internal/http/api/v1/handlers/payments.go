package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/sidpg123/filemate-be/internal/apierror"
	"github.com/sidpg123/filemate-be/internal/models"
	"github.com/sidpg123/filemate-be/internal/payment"
	"github.com/sidpg123/filemate-be/internal/quota"
)

// PaymentHandler runs the plan purchase flow: plan listing, checkout, and
// callback verification.
type PaymentHandler struct {
	db      *gorm.DB
	ledger  *quota.Ledger
	gateway *payment.Gateway
}

// NewPaymentHandler constructs a payment handler.
func NewPaymentHandler(db *gorm.DB, ledger *quota.Ledger, gateway *payment.Gateway) *PaymentHandler {
	return &PaymentHandler{db: db, ledger: ledger, gateway: gateway}
}

// Key returns the public gateway key for the frontend checkout widget.
func (h *PaymentHandler) Key(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"key":     h.gateway.KeyID(),
	})
}

// Plans lists the purchasable plans in display order.
func (h *PaymentHandler) Plans(c *gin.Context) {
	var plans []models.Plan
	errFind := h.db.WithContext(c.Request.Context()).
		Where("is_enabled = ?", true).
		Order("sort_order ASC, price ASC").
		Find(&plans).Error
	if errFind != nil {
		fail(c, apierror.Server("list plans", errFind))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"plans":   plans,
	})
}

type checkoutRequest struct {
	PlanID uint64 `json:"planId"` // Plan being purchased.
}

// Checkout opens a gateway order for the chosen plan. The purchase context
// rides in the order notes so verification never trusts the callback body.
func (h *PaymentHandler) Checkout(c *gin.Context) {
	account, ok := mustAccount(c)
	if !ok {
		return
	}

	var body checkoutRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		fail(c, apierror.Validation("invalid json"))
		return
	}
	if body.PlanID == 0 {
		fail(c, apierror.Validation("planId is required"))
		return
	}

	var plan models.Plan
	errFind := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND is_enabled = ?", body.PlanID, true).
		First(&plan).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			fail(c, apierror.NotFound("plan not found"))
			return
		}
		fail(c, apierror.Server("load plan", errFind))
		return
	}

	expiresAt := time.Now().AddDate(0, 0, plan.ValidityDays)
	order, errOrder := h.gateway.CreateOrder(plan.Price, payment.OrderNotes{
		UserID:    account.ID,
		PlanID:    plan.ID,
		ExpiresAt: expiresAt,
	})
	if errOrder != nil {
		fail(c, apierror.Server("create order", errOrder))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"orderId":  order.ID,
		"amount":   order.AmountPaise,
		"currency": order.Currency,
	})
}

type verifyRequest struct {
	OrderID   string `json:"razorpay_order_id"`   // Gateway order ID.
	PaymentID string `json:"razorpay_payment_id"` // Gateway payment ID.
	Signature string `json:"razorpay_signature"`  // Checkout callback signature.
}

// Verify checks the checkout callback signature and, on success, grants the
// purchased plan's storage and records the subscription. On a signature
// mismatch the payment is refunded best effort and the request rejected.
func (h *PaymentHandler) Verify(c *gin.Context) {
	var body verifyRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		fail(c, apierror.Validation("invalid json"))
		return
	}
	body.OrderID = strings.TrimSpace(body.OrderID)
	body.PaymentID = strings.TrimSpace(body.PaymentID)
	body.Signature = strings.TrimSpace(body.Signature)
	if body.OrderID == "" || body.PaymentID == "" || body.Signature == "" {
		fail(c, apierror.Validation("razorpay_order_id, razorpay_payment_id, and razorpay_signature are required"))
		return
	}

	order, errOrder := h.gateway.FetchOrder(body.OrderID)
	if errOrder != nil {
		fail(c, apierror.Server("fetch order", errOrder))
		return
	}

	if !h.gateway.VerifySignature(body.OrderID, body.PaymentID, body.Signature) {
		log.WithFields(log.Fields{
			"order_id":   body.OrderID,
			"payment_id": body.PaymentID,
		}).Warn("payment signature mismatch")
		if errRefund := h.gateway.Refund(body.PaymentID, order.AmountPaise); errRefund != nil {
			log.WithError(errRefund).Warn("refund after signature mismatch failed")
		}
		fail(c, apierror.Validation("payment verification failed"))
		return
	}

	notes := order.Notes
	if notes.UserID == 0 || notes.PlanID == 0 {
		fail(c, apierror.Server("verify payment", errors.New("order notes missing purchase context")))
		return
	}

	var plan models.Plan
	if errFind := h.db.WithContext(c.Request.Context()).First(&plan, notes.PlanID).Error; errFind != nil {
		fail(c, apierror.Server("load plan", errFind))
		return
	}

	errGrant := h.ledger.Grant(c.Request.Context(), notes.UserID, &plan,
		body.OrderID, body.PaymentID, body.Signature, notes.ExpiresAt)
	if errGrant != nil {
		fail(c, apierror.Server("grant plan", errGrant))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "payment verified successfully",
	})
}

// Subscription returns the caller's subscription, flipping the status to
// expired on read when the expiry has passed.
func (h *PaymentHandler) Subscription(c *gin.Context) {
	account, ok := mustAccount(c)
	if !ok {
		return
	}

	sub, found, errLoad := h.loadSubscription(c, account.ID)
	if errLoad != nil {
		fail(c, errLoad)
		return
	}
	if !found {
		c.JSON(http.StatusOK, gin.H{
			"success":      true,
			"subscription": nil,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"subscription": sub,
	})
}

// Status reports whether the caller holds an unexpired subscription. The
// check shares the lazy expiry flip with the fetch path.
func (h *PaymentHandler) Status(c *gin.Context) {
	account, ok := mustAccount(c)
	if !ok {
		return
	}

	sub, found, errLoad := h.loadSubscription(c, account.ID)
	if errLoad != nil {
		fail(c, errLoad)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":               true,
		"hasActiveSubscription": found && sub.Status == models.SubscriptionStatusActive,
	})
}

// loadSubscription fetches the user's subscription and applies the lazy
// expiry transition. Expiry is never flipped by a background job; reads are
// the only place the stored status catches up with the clock.
func (h *PaymentHandler) loadSubscription(c *gin.Context, userID uint64) (*models.Subscription, bool, *apierror.Error) {
	var sub models.Subscription
	errFind := h.db.WithContext(c.Request.Context()).
		Preload("Plan").
		Where("user_id = ?", userID).
		First(&sub).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, apierror.Server("load subscription", errFind)
	}

	if sub.Status == models.SubscriptionStatusActive && sub.ExpiredAt(time.Now()) {
		sub.Status = models.SubscriptionStatusExpired
		errUpdate := h.db.WithContext(c.Request.Context()).
			Model(&models.Subscription{}).
			Where("id = ?", sub.ID).
			Update("status", models.SubscriptionStatusExpired).Error
		if errUpdate != nil {
			log.WithError(errUpdate).WithField("subscription_id", sub.ID).Warn("expire subscription")
		}
	}
	return &sub, true, nil
}
