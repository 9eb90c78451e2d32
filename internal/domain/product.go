package domain

// Brand is a product brand.
type Brand struct {
	ID   int    `json:"brand_id"`
	Name string `json:"name"`
}

// Category is a node of the two-level product taxonomy.
type Category struct {
	ID       int        `json:"category_id"`
	Name     string     `json:"name"`
	Parent   *Category  `json:"parent,omitempty"`
	Children []Category `json:"children,omitempty"`
}

// Product is a catalog item; search results are products too.
type Product struct {
	ID          string     `json:"product_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Price       float64    `json:"price"`
	Brand       Brand      `json:"brand"`
	Categories  []Category `json:"categories"`
	Subcategory string     `json:"subcategory"`
	Images      []string   `json:"images"`
}

// ProductImage is one stored image of a product.
type ProductImage struct {
	Image string `json:"image"`
}

// ProductInput is the create/update payload.
type ProductInput struct {
	Name          string   `json:"name" validate:"required,max=200"`
	Description   string   `json:"description" validate:"max=5000"`
	Price         float64  `json:"price" validate:"gte=0"`
	BrandName     string   `json:"brand_name" validate:"required,max=100"`
	CategoryID    int      `json:"category_id" validate:"required,gt=0"`
	SubcategoryID int      `json:"subcategory_id,omitempty" validate:"gte=0"`
	Images        []string `json:"images,omitempty" validate:"dive,url"`
}

// ImageResult is one record of the streaming image search.
type ImageResult struct {
	ID      int    `json:"id"`
	Content string `json:"content"`
	Alt     string `json:"alt"`
}
