package controllers

import (
	"net/http"

	"github.com/fashalt/fashaltbackend/dto"
	"github.com/fashalt/fashaltbackend/services"
	"github.com/gin-gonic/gin"
)

func orderItems(in []dto.OrderItemDTO) []services.OrderItemInput {
	out := make([]services.OrderItemInput, len(in))
	for i, it := range in {
		out[i] = services.OrderItemInput{ProductID: it.ProductID, Quantity: it.Quantity, Size: it.Size}
	}
	return out
}

func CreateOrder(orders Orders) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := requester(c)
		if !ok {
			return
		}
		var body dto.CreateOrderDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			bindFailed(c, err)
			return
		}

		res, err := orders.Create(c.Request.Context(), req, services.CreateOrderInput{
			UserID:              body.UserID,
			Items:               orderItems(body.Items),
			PaymentMethod:       body.PaymentMethod,
			ShippingAddress:     body.ShippingAddress,
			Subtotal:            body.Subtotal,
			Total:               body.Total,
			Discounts:           body.Discounts,
			Tax:                 body.Tax,
			ShippingCharge:      body.ShippingCharge,
			CustomerName:        body.CustomerName,
			CustomerPhoneNumber: body.CustomerPhoneNumber,
			RazorpayOrderID:     body.RazorpayOrderID,
			RazorpayPaymentID:   body.RazorpayPaymentID,
			RazorpaySignature:   body.RazorpaySignature,
		})
		if err != nil {
			fail(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"success":        true,
			"message":        "Order created successfully",
			"order":          res.Order,
			"invoiceSent":    res.InvoiceSent,
			"invoiceMessage": res.InvoiceMessage,
		})
	}
}

func CheckStock(orders Orders) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.CheckStockDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			bindFailed(c, err)
			return
		}
		lines, available, err := orders.CheckStock(c.Request.Context(), orderItems(body.Items))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "available": available, "items": lines})
	}
}

func GetMyOrders(orders Orders) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := requester(c)
		if !ok {
			return
		}
		page, err := orders.MyOrders(c.Request.Context(), req.ID,
			queryInt(c, "page", 1), queryInt(c, "limit", services.DefaultOrderPageSize))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":    true,
			"orderCount": page.Total,
			"totalPage":  page.TotalPages,
			"orders":     page.Items,
		})
	}
}

func GetOrder(orders Orders) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := requester(c)
		if !ok {
			return
		}
		order, err := orders.Get(c.Request.Context(), req, c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
	}
}

func UpdateOrderStatus(orders Orders) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.UpdateOrderStatusDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			bindFailed(c, err)
			return
		}
		order, err := orders.UpdateStatus(c.Request.Context(), c.Param("id"), body.Status)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Order status updated successfully",
			"order":   order,
		})
	}
}

func DeleteOrder(orders Orders) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := orders.Delete(c.Request.Context(), c.Param("id")); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Order deleted successfully"})
	}
}
