package dto

type LoginDTO struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// RegisterDTO is bound from the multipart form alongside the optional "avatar" file.
type RegisterDTO struct {
	Name     string `form:"name"`
	Email    string `form:"email" binding:"omitempty,email"`
	Password string `form:"password"`
	Gender   string `form:"gender"`
	PhoneNo  string `form:"phoneNo"`
}

type UpdateProfileDTO struct {
	Name     string `form:"name"`
	Email    string `form:"email" binding:"omitempty,email"`
	Password string `form:"password"`
	Gender   string `form:"gender"`
}

type WishlistDTO struct {
	ProductID string `json:"productId" binding:"required"`
}
