package catalog

import (
	"time"

	"github.com/ariefcatur/go-storefront/internal/pricing"
)

type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
}

type Image struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Alt      string `json:"alt,omitempty"`
	Position int    `json:"position"`
}

// Variant.Price is an override of the product price; nil means inherit.
type Variant struct {
	ID        string         `json:"id"`
	ProductID string         `json:"-"`
	Name      string         `json:"name"`
	SKU       string         `json:"sku"`
	Color     *string        `json:"color"`
	Size      *string        `json:"size"`
	Price     *pricing.Cents `json:"price"`
	Stock     int            `json:"stock"`
}

type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type Review struct {
	ID         string    `json:"id"`
	ProductID  string    `json:"productId"`
	UserID     string    `json:"userId"`
	AuthorName string    `json:"authorName,omitempty"`
	Rating     int       `json:"rating"`
	Title      string    `json:"title,omitempty"`
	Body       string    `json:"body"`
	Verified   bool      `json:"verified"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Product struct {
	ID               string         `json:"id"`
	Slug             string         `json:"slug"`
	Name             string         `json:"name"`
	Description      string         `json:"description"`
	ShortDescription string         `json:"shortDesc,omitempty"`
	SKU              string         `json:"sku"`
	Price            pricing.Cents  `json:"price"`
	ComparePrice     *pricing.Cents `json:"comparePrice"`
	Stock            int            `json:"stock"`
	Active           bool           `json:"active"`
	Featured         bool           `json:"featured"`
	CategoryID       string         `json:"categoryId"`
	Category         Category       `json:"category"`
	Images           []Image        `json:"images"`
	Variants         []Variant      `json:"variants"`
	Tags             []Tag          `json:"tags,omitempty"`
	Reviews          []Review       `json:"reviews,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`

	// Ratings are the loaded review ratings used for enrichment when the
	// full reviews are not needed.
	Ratings []int `json:"-"`
}

// Summary is a listing entry enriched with its rating aggregate.
type Summary struct {
	Product
	AvgRating   float64 `json:"avgRating"`
	ReviewCount int     `json:"reviewCount"`
	Discount    int     `json:"discount"`
}

// Page is one page of a catalog listing.
type Page struct {
	Items       []Summary `json:"products"`
	TotalCount  int       `json:"total"`
	TotalPages  int       `json:"pages"`
	CurrentPage int       `json:"page"`
}

// Detail is the product page payload.
type Detail struct {
	Product
	VariantGroups []Group       `json:"variantGroups"`
	Rating        RatingSummary `json:"rating"`
	Discount      int           `json:"discount"`
	Related       []Summary     `json:"related"`
}

// ratings returns the product's ratings from whichever source was loaded.
func (p *Product) ratings() []int {
	if len(p.Ratings) > 0 || len(p.Reviews) == 0 {
		return p.Ratings
	}
	out := make([]int, len(p.Reviews))
	for i, r := range p.Reviews {
		out[i] = r.Rating
	}
	return out
}

func summarize(p Product, maxImages int) Summary {
	rs := Summarize(p.ratings())
	if maxImages > 0 && len(p.Images) > maxImages {
		p.Images = p.Images[:maxImages]
	}
	return Summary{
		Product:     p,
		AvgRating:   rs.Average,
		ReviewCount: rs.Count,
		Discount:    pricing.DiscountPercent(p.Price, p.ComparePrice),
	}
}
