package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/safar/go-bookstore/internal/auth"
	"github.com/safar/go-bookstore/internal/checkout"
)

type cartItem struct {
	BookID   int64 `json:"bookId"`
	Quantity int   `json:"quantity"`
}

// paymentToken accepts the payment method id as either a JSON string or a
// number. The checkout validates that it is a positive integer.
type paymentToken string

func (p *paymentToken) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = paymentToken(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*p = paymentToken(n.String())
	return nil
}

type checkoutRequest struct {
	CustomerPhone string       `json:"customerPhone"`
	CustomerName  string       `json:"customerName"`
	EmployeeID    *int64       `json:"employeeId"`
	PromotionID   *int64       `json:"promotionId"`
	PaymentMethod paymentToken `json:"paymentMethod"`
	CartItems     []cartItem   `json:"cartItems"`
}

type checkoutResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	OrderID int64             `json:"orderId,omitempty"`
	Receipt *checkout.Receipt `json:"receipt,omitempty"`
}

func statusFor(kind checkout.Kind) int {
	switch kind {
	case checkout.KindValidation:
		return http.StatusBadRequest
	case checkout.KindNotFound:
		return http.StatusNotFound
	case checkout.KindInsufficientStock:
		return http.StatusConflict
	case checkout.KindConflict:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func handleCheckout(svc Checkouter, channel checkout.Channel) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body checkoutRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, checkoutResponse{Message: "invalid request body"})
			return
		}

		req := checkout.Request{
			Channel:        channel,
			CustomerPhone:  body.CustomerPhone,
			CustomerName:   body.CustomerName,
			EmployeeID:     body.EmployeeID,
			ActorUserID:    auth.ActorID(c),
			PromotionID:    body.PromotionID,
			PaymentMethod:  string(body.PaymentMethod),
			IdempotencyKey: c.GetHeader("Idempotency-Key"),
		}
		for _, item := range body.CartItems {
			req.Items = append(req.Items, checkout.Item{BookID: item.BookID, Quantity: item.Quantity})
		}

		receipt, err := svc.Checkout(c.Request.Context(), req)
		if err != nil {
			var ce *checkout.Error
			if !errors.As(err, &ce) {
				logError("checkout", err)
				c.JSON(http.StatusInternalServerError, checkoutResponse{Message: "checkout failed"})
				return
			}
			if ce.Kind == checkout.KindConflict {
				c.Header("Retry-After", "1")
			}
			c.JSON(statusFor(ce.Kind), checkoutResponse{Message: ce.Message})
			return
		}

		status, message := http.StatusCreated, "order placed"
		if receipt.Replayed {
			status, message = http.StatusOK, "order already placed"
		}
		c.JSON(status, checkoutResponse{
			Success: true,
			Message: message,
			OrderID: receipt.OrderID,
			Receipt: receipt,
		})
	}
}
