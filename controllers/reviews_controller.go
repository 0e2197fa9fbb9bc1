package controllers

import (
	"net/http"

	"github.com/fashalt/fashaltbackend/dto"
	"github.com/fashalt/fashaltbackend/services"
	"github.com/fashalt/fashaltbackend/utils"
	"github.com/gin-gonic/gin"
)

func CreateReview(reviews Reviews, v *utils.ImageValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := requester(c)
		if !ok {
			return
		}
		var body dto.CreateReviewDTO
		if err := c.ShouldBind(&body); err != nil {
			bindFailed(c, err)
			return
		}
		image, err := optionalFile(c, v, "image")
		if err != nil {
			fail(c, err)
			return
		}

		review, err := reviews.Create(c.Request.Context(), req, services.ReviewInput{
			ProductID: body.ProductID,
			Rating:    body.Rating,
			Comment:   body.Comment,
		}, image)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"message": "Review added successfully",
			"review":  review,
		})
	}
}

// GetProductReviews lists the reviews of the product named by :id.
func GetProductReviews(reviews Reviews) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := reviews.ListForProduct(c.Request.Context(), c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "reviews": list})
	}
}

func DeleteReview(reviews Reviews) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := requester(c)
		if !ok {
			return
		}
		if err := reviews.Delete(c.Request.Context(), req, c.Param("id")); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Review deleted successfully"})
	}
}
