package controllers

import (
	"net/http"

	"github.com/fashalt/fashaltbackend/dto"
	"github.com/fashalt/fashaltbackend/services"
	"github.com/fashalt/fashaltbackend/utils"
	"github.com/gin-gonic/gin"
)

// GET /user/profile
func GetProfile(accounts Accounts) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := requester(c)
		if !ok {
			return
		}
		profile, err := accounts.Profile(c.Request.Context(), req.ID)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "user": profile})
	}
}

// PUT /user/profile/update
func UpdateProfile(accounts Accounts, v *utils.ImageValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := requester(c)
		if !ok {
			return
		}
		var body dto.UpdateProfileDTO
		if err := c.ShouldBind(&body); err != nil {
			bindFailed(c, err)
			return
		}
		avatar, err := optionalFile(c, v, "avatar")
		if err != nil {
			fail(c, err)
			return
		}

		user, err := accounts.UpdateProfile(c.Request.Context(), req.ID, services.ProfileChanges{
			Name:     body.Name,
			Email:    body.Email,
			Password: body.Password,
			Gender:   body.Gender,
		}, avatar)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Profile updated successfully",
			"user":    user,
		})
	}
}

// POST /user/wishlist
func AddToWishlist(accounts Accounts) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := requester(c)
		if !ok {
			return
		}
		var body dto.WishlistDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			bindFailed(c, err)
			return
		}
		if err := accounts.AddToWishlist(c.Request.Context(), req.ID, body.ProductID); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Product added to wishlist"})
	}
}

// PUT /user/wishlist
func RemoveFromWishlist(accounts Accounts) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := requester(c)
		if !ok {
			return
		}
		var body dto.WishlistDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			bindFailed(c, err)
			return
		}
		if err := accounts.RemoveFromWishlist(c.Request.Context(), req.ID, body.ProductID); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Product removed from wishlist"})
	}
}

// GET /user/wishlist
func GetWishlist(accounts Accounts) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := requester(c)
		if !ok {
			return
		}
		items, err := accounts.Wishlist(c.Request.Context(), req.ID)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "wishlist": items})
	}
}
