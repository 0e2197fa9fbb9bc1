package controllers

import (
	"net/http"

	"github.com/fashalt/fashaltbackend/realtime"
	"github.com/gin-gonic/gin"
)

func DashboardCounts(dash Dashboard) gin.HandlerFunc {
	return func(c *gin.Context) {
		counts, err := dash.Counts(c.Request.Context())
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "counts": counts})
	}
}

// WeeklyStats returns order counts and revenue for the last seven days, bucketed by weekday.
func WeeklyStats(dash Dashboard) gin.HandlerFunc {
	return func(c *gin.Context) {
		week, err := dash.Week(c.Request.Context())
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "orders": week.Orders, "revenue": week.Revenue})
	}
}

func MonthlyStats(dash Dashboard) gin.HandlerFunc {
	return func(c *gin.Context) {
		months, err := dash.Months(c.Request.Context())
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "orders": months.Orders, "revenue": months.Revenue})
	}
}

func LatestTransactions(dash Dashboard) gin.HandlerFunc {
	return func(c *gin.Context) {
		txs, err := dash.LatestTransactions(c.Request.Context())
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "transactions": txs})
	}
}

func OrderStatusBreakdown(dash Dashboard) gin.HandlerFunc {
	return func(c *gin.Context) {
		slices, err := dash.StatusBreakdown(c.Request.Context())
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "orderStatus": slices})
	}
}

func AllOrders(dash Dashboard) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := dash.Orders(c.Request.Context(), queryInt(c, "page", 1), queryInt(c, "limit", 10))
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

// DashboardSocket upgrades the request and subscribes the client to live order updates.
func DashboardSocket(hub *realtime.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		hub.ServeWS(c.Writer, c.Request)
	}
}
