package controllers

import (
	"net/http"

	"github.com/fashalt/fashaltbackend/dto"
	"github.com/fashalt/fashaltbackend/utils"
	"github.com/gin-gonic/gin"
)

func AddCategory(categories Categories, v *utils.ImageValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.CreateCategoryDTO
		if err := c.ShouldBind(&body); err != nil {
			bindFailed(c, err)
			return
		}
		image, err := optionalFile(c, v, "categoryImage")
		if err != nil {
			fail(c, err)
			return
		}

		category, err := categories.Create(c.Request.Context(), body.Name, body.ForWhat, image)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"success":  true,
			"message":  "Category created successfully",
			"category": category,
		})
	}
}

func GetCategories(categories Categories) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := categories.List(c.Request.Context(), c.Query("forWhat"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "categories": list})
	}
}

// GetCategoriesFor lists the categories of one audience (mens, womens, kids).
func GetCategoriesFor(categories Categories) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := categories.ListFor(c.Request.Context(), c.Param("forWhat"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "categories": list})
	}
}

func DeleteCategory(categories Categories) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := categories.Delete(c.Request.Context(), c.Param("id")); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Category deleted successfully"})
	}
}
