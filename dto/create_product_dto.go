package dto

// CreateProductDTO is parsed from the "data" multipart field (JSON).
type CreateProductDTO struct {
	Name        string   `json:"name" binding:"required,min=2"`
	Description string   `json:"description" binding:"required"`
	Price       float64  `json:"price" binding:"required,gt=0"`
	Discount    float64  `json:"discount" binding:"gte=0,lte=100"`
	Brand       string   `json:"brand" binding:"required"`
	Stock       int      `json:"stock" binding:"gte=0"`
	Category    string   `json:"category" binding:"required"`
	Sizes       []string `json:"sizes" binding:"required,min=1"`
	For         []string `json:"for"`
	Sale        bool     `json:"sale"`
}

// UpdateProductDTO fields are optional; nil means unchanged.
type UpdateProductDTO struct {
	Name          *string   `json:"name,omitempty"`
	Description   *string   `json:"description,omitempty"`
	Price         *float64  `json:"price,omitempty"`
	Discount      *float64  `json:"discount,omitempty"`
	Brand         *string   `json:"brand,omitempty"`
	Stock         *int      `json:"stock,omitempty"`
	Category      *string   `json:"category,omitempty"`
	Sizes         *[]string `json:"sizes,omitempty"`
	For           *[]string `json:"for,omitempty"`
	Sale          *bool     `json:"sale,omitempty"`
	RemovedImages []string  `json:"removedImages,omitempty"`
}
