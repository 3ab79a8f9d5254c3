package domain

// Product is a search hit passed through verbatim from the search provider.
type Product struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	BrandName   string   `json:"brandName,omitempty"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	URL         string   `json:"url,omitempty"`
	Description string   `json:"description,omitempty"`
	Price       *Price   `json:"price,omitempty"`
	ImageURLs   []string `json:"imageUrls,omitempty"`
}

// Price mirrors the provider's price block.
type Price struct {
	Price          float64 `json:"price"`
	CompareAtPrice float64 `json:"compareAtPrice,omitempty"`
	Currency       string  `json:"currency,omitempty"`
}
