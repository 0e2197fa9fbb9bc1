package dto

// CreateCategoryDTO is bound from the multipart form; the image is the optional
// "categoryImage" file.
type CreateCategoryDTO struct {
	Name    string `form:"name" binding:"required"`
	ForWhat string `form:"forWhat"`
}
