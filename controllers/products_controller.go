package controllers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/fashalt/fashaltbackend/apperr"
	"github.com/fashalt/fashaltbackend/dto"
	"github.com/fashalt/fashaltbackend/logger"
	"github.com/fashalt/fashaltbackend/services"
	"github.com/fashalt/fashaltbackend/utils"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

func GetProducts(catalog Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := catalog.Query(c.Request.Context(), services.CatalogParams{
			Category: c.Query("category"),
			Price:    c.Query("price"),
			Brand:    c.Query("brand"),
			Sizes:    c.Query("sizes"),
			Discount: c.Query("discount"),
			Rating:   c.Query("rating"),
			ForWhat:  c.Query("forwhat"),
			Keyword:  c.Query("keyword"),
			Sort:     strings.TrimSpace(c.Query("sort")),
			Page:     utils.ParseIntDefault(c.Query("page"), 0),
			Limit:    utils.ParseIntDefault(c.Query("limit"), 0),
		})
		if err != nil {
			fail(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":       true,
			"totalPage":     page.TotalPages,
			"totalProducts": page.Total,
			"products":      page.Items,
		})
	}
}

func SearchProducts(catalog Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		products, err := catalog.Search(c.Request.Context(), c.Query("keyword"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "products": products})
	}
}

func GetProduct(catalog Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		product, err := catalog.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "product": product})
	}
}

func NewArrivals(catalog Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		products, err := catalog.NewArrivals(c.Request.Context())
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "products": products})
	}
}

func TopSelling(catalog Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		products, err := catalog.TopSelling(c.Request.Context())
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "products": products})
	}
}

func SaleProducts(catalog Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		products, err := catalog.Sale(c.Request.Context())
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "products": products})
	}
}

func RelatedProducts(catalog Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		products, err := catalog.Related(c.Request.Context(), c.Param("categoryID"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "products": products})
	}
}

// productPayload decodes the JSON "data" field of a multipart product form.
func productPayload(c *gin.Context, dst any) error {
	raw := c.PostForm("data")
	if raw == "" {
		return apperr.Validation("missing data")
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return apperr.Validation("invalid data json")
	}
	return nil
}

func AddProduct(catalog Catalog, v *utils.ImageValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.CreateProductDTO
		if err := productPayload(c, &body); err != nil {
			fail(c, err)
			return
		}
		if err := binding.Validator.ValidateStruct(&body); err != nil {
			bindFailed(c, err)
			return
		}
		files, err := formFiles(c, v, "images")
		if err != nil {
			fail(c, err)
			return
		}

		product, err := catalog.Create(c.Request.Context(), services.ProductInput{
			Name:        body.Name,
			Description: body.Description,
			Price:       body.Price,
			Discount:    body.Discount,
			Brand:       body.Brand,
			Stock:       body.Stock,
			Category:    body.Category,
			Sizes:       body.Sizes,
			For:         body.For,
			Sale:        body.Sale,
		}, files)
		if err != nil {
			fail(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"message": "Product Created Successfully",
			"product": product,
		})
	}
}

func UpdateProduct(catalog Catalog, v *utils.ImageValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.UpdateProductDTO
		if err := productPayload(c, &body); err != nil {
			fail(c, err)
			return
		}
		files, err := formFiles(c, v, "images")
		if err != nil {
			fail(c, err)
			return
		}

		product, err := catalog.Update(c.Request.Context(), c.Param("id"), services.ProductChanges{
			Name:          body.Name,
			Description:   body.Description,
			Price:         body.Price,
			Discount:      body.Discount,
			Brand:         body.Brand,
			Stock:         body.Stock,
			Category:      body.Category,
			Sizes:         body.Sizes,
			For:           body.For,
			Sale:          body.Sale,
			RemovedImages: body.RemovedImages,
		}, files)
		if err != nil {
			fail(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Product updated successfully",
			"product": product,
		})
	}
}

func DeleteProduct(catalog Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := catalog.Delete(c.Request.Context(), c.Param("id")); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Product deleted successfully"})
	}
}

// ExportProducts streams the whole catalog as an xlsx workbook.
func ExportProducts(catalog Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		rows, err := catalog.ExportRows(ctx)
		if err != nil {
			fail(c, err)
			return
		}
		book, err := services.BuildProductWorkbook(rows)
		if err != nil {
			fail(c, apperr.Internal(err, "Failed to build export"))
			return
		}

		c.Header("Content-Disposition", "attachment; filename="+services.ExportFilename(time.Now()))
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Status(http.StatusOK)
		if err := book.Write(c.Writer); err != nil {
			logger.Error(ctx, "product export write failed", "error", err)
		}
	}
}
