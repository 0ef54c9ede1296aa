package handler

import (
	"github.com/gin-gonic/gin"

	paymentapp "github.com/landplots/backend/internal/application/payment"
)

// PaymentHandler handles payment API endpoints
type PaymentHandler struct {
	BaseHandler
	payments *paymentapp.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(payments *paymentapp.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// ForPlot returns the payment ledger of a plot
//
//	GET /plots/:id/payments
func (h *PaymentHandler) ForPlot(c *gin.Context) {
	ledger, err := h.payments.ForPlot(c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, paymentapp.ToPlotPaymentsResponse(ledger))
}

// Add records a payment against a plot. Every failed rule is listed in the
// error details.
//
//	POST /plots/:id/payments
func (h *PaymentHandler) Add(c *gin.Context) {
	var req paymentapp.AddPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	plotID := c.Param("id")
	pm, err := h.payments.AddPayment(c.Request.Context(), plotID, req.ToInput())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, paymentapp.ToPaymentResponse(plotID, *pm))
}

// Validate checks a payment without recording it
//
//	POST /payments/validate
func (h *PaymentHandler) Validate(c *gin.Context) {
	var req paymentapp.AddPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	h.Success(c, h.payments.Validate(req.ToInput()))
}

// List returns payments across plots, newest first, with totals
//
//	GET /payments?mode=UPI&from=2024-01-01&to=2024-12-31
func (h *PaymentHandler) List(c *gin.Context) {
	filter, ok := h.bindFilter(c)
	if !ok {
		return
	}
	h.Success(c, paymentapp.ToListResponse(h.payments.List(filter)))
}

func (h *PaymentHandler) bindFilter(c *gin.Context) (paymentapp.ListFilter, bool) {
	var q paymentapp.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return paymentapp.ListFilter{}, false
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.FilterError(c, err)
		return paymentapp.ListFilter{}, false
	}
	return filter, true
}
