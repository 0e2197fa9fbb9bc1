package controllers

import (
	"net/http"
	"time"

	"github.com/fashalt/fashaltbackend/dto"
	"github.com/fashalt/fashaltbackend/services"
	"github.com/fashalt/fashaltbackend/utils"
	"github.com/gin-gonic/gin"
)

// SessionCookie controls how the session token cookie is written.
type SessionCookie struct {
	TTL    time.Duration
	Secure bool
	Domain string
}

func (s SessionCookie) issue(c *gin.Context, status int, message string, res *services.AuthResult) {
	utils.SetAuthCookie(c, res.Token, s.TTL, s.Secure, s.Domain)
	c.JSON(status, gin.H{
		"success": true,
		"message": message,
		"user":    res.User,
		"token":   res.Token,
	})
}

func Register(accounts Accounts, v *utils.ImageValidator, cookie SessionCookie) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.RegisterDTO
		if err := c.ShouldBind(&body); err != nil {
			bindFailed(c, err)
			return
		}
		avatar, err := optionalFile(c, v, "avatar")
		if err != nil {
			fail(c, err)
			return
		}

		res, err := accounts.Register(c.Request.Context(), services.RegisterInput{
			Name:     body.Name,
			Email:    body.Email,
			Password: body.Password,
			Gender:   body.Gender,
			PhoneNo:  body.PhoneNo,
		}, avatar)
		if err != nil {
			fail(c, err)
			return
		}
		cookie.issue(c, http.StatusCreated, "Registered successfully", res)
	}
}

func Login(accounts Accounts, cookie SessionCookie) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.LoginDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			bindFailed(c, err)
			return
		}

		res, err := accounts.Login(c.Request.Context(), body.Email, body.Password)
		if err != nil {
			fail(c, err)
			return
		}
		cookie.issue(c, http.StatusOK, "Logged in successfully", res)
	}
}

func Logout(cookie SessionCookie) gin.HandlerFunc {
	return func(c *gin.Context) {
		utils.ClearAuthCookie(c, cookie.Secure, cookie.Domain)
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out successfully"})
	}
}

func ForgotPassword(accounts Accounts) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.ForgotPasswordDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			bindFailed(c, err)
			return
		}
		if err := accounts.ForgotPassword(c.Request.Context(), body.Email); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Email sent to " + body.Email + " successfully",
		})
	}
}

func ResetPassword(accounts Accounts) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.ResetPasswordDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			bindFailed(c, err)
			return
		}
		if err := accounts.ResetPassword(c.Request.Context(), c.Param("token"), body.Password); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password reset successfully"})
	}
}
