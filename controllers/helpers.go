package controllers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/fashalt/fashaltbackend/apperr"
	"github.com/fashalt/fashaltbackend/middleware"
	"github.com/fashalt/fashaltbackend/services"
	"github.com/fashalt/fashaltbackend/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// fail hands err to middleware.ErrorHandler, which writes the response.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

func bindFailed(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		fail(c, apperr.Validation("%s", fieldMessage(fe)))
		return
	}
	fail(c, apperr.Validation("Invalid request body"))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "Please enter a valid email"
	case "min", "gte", "gt":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

func requester(c *gin.Context) (services.Requester, bool) {
	req, ok := middleware.RequesterFrom(c)
	if !ok {
		fail(c, apperr.Auth("Please login to access this resource"))
	}
	return req, ok
}

// queryInt returns def for a missing value and -1 for a malformed one, which the
// services reject with a validation error.
func queryInt(c *gin.Context, key string, def int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return n
}

// optionalFile returns nil when the form has no file under field.
func optionalFile(c *gin.Context, v *utils.ImageValidator, field string) (*multipart.FileHeader, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Validation("Invalid multipart form")
	}
	if _, err := v.ValidateFile(fh); err != nil {
		return nil, apperr.Validation("%s: %s", fh.Filename, err.Error())
	}
	return fh, nil
}

func formFiles(c *gin.Context, v *utils.ImageValidator, field string) ([]*multipart.FileHeader, error) {
	form, err := c.MultipartForm()
	if errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Validation("Invalid multipart form")
	}
	files := form.File[field]
	if err := v.ValidateAll(files); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}
	return files, nil
}
