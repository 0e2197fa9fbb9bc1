package dto

// CreateReviewDTO is bound from the multipart form; "image" is an optional file.
type CreateReviewDTO struct {
	ProductID string  `form:"productId" binding:"required"`
	Rating    float64 `form:"rating"`
	Comment   string  `form:"comment"`
}
