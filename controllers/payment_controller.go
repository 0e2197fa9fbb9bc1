package controllers

import (
	"net/http"

	"github.com/fashalt/fashaltbackend/dto"
	"github.com/gin-gonic/gin"
)

func CreatePayment(payments Payments) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.CreatePaymentDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			bindFailed(c, err)
			return
		}
		order, keyID, err := payments.CreatePaymentOrder(c.Request.Context(), body.Amount)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"id":       order.ID,
			"amount":   order.Amount,
			"currency": order.Currency,
			"key":      keyID,
		})
	}
}

func VerifyPayment(payments Payments) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.VerifyPaymentDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			bindFailed(c, err)
			return
		}
		if err := payments.Verify(body.RazorpayOrderID, body.RazorpayPaymentID, body.RazorpaySignature); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Payment verification successful"})
	}
}
