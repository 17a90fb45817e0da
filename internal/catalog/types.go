package catalog

import (
	"strings"
)

// Mode selects which optional enrichment steps run for a request.
type Mode string

const (
	ModeSearch    Mode = "search"
	ModeSeller    Mode = "seller"
	ModeFavorites Mode = "favorites"
)

// ProductIdentifier is one product id extracted from a detail URL.
type ProductIdentifier struct {
	ID  int64
	URL string
}

// Seller is the storefront owning a listing.
type Seller struct {
	Title string `json:"title"`
}

// Group is one level of a product's category path.
type Group struct {
	Title string `json:"title"`
}

// ProductDetail is the bulk-lookup result for one identifier. It is
// read-only input to enrichment.
type ProductDetail struct {
	ID             int64   `json:"id"`
	Href           string  `json:"href"`
	Title          string  `json:"title"`
	Price          float64 `json:"price"`
	OldPrice       float64 `json:"old_price"`
	Brand          string  `json:"brand"`
	CommentsMark   float64 `json:"comments_mark"`
	CommentsAmount int     `json:"comments_amount"`
	Seller         Seller  `json:"seller"`
	Category       Group   `json:"category"`
	Groups         []Group `json:"groups"`
}

// CategoryPath joins the group titles, outermost first. Empty when the
// product carries no groups.
func (d *ProductDetail) CategoryPath() string {
	titles := make([]string, 0, len(d.Groups))
	for _, g := range d.Groups {
		if g.Title != "" {
			titles = append(titles, g.Title)
		}
	}
	return strings.Join(titles, " / ")
}

// DeliveryOption is one delivery method offered for a product.
type DeliveryOption struct {
	Title string
	Cost  string
}

// DeliveryInfo bundles a product's delivery options and payment description.
type DeliveryInfo struct {
	Deliveries []DeliveryOption
	Payments   string
}

// GroupingResult is the outcome of a rendered-page cross-seller lookup.
// The zero value means "no grouping detected".
type GroupingResult struct {
	Found    bool
	Count    int
	MinPrice string
	Sellers  []string
}

// SellersJoined returns the extracted seller names comma-joined, in
// encounter order.
func (g GroupingResult) SellersJoined() string {
	return strings.Join(g.Sellers, ", ")
}

// EnrichedProduct is a ProductDetail plus everything the enrichment
// orchestrator could gather. Created once per product, immutable after.
// Every enrichment field has a documented default so a failed sub-fetch
// degrades that field only.
type EnrichedProduct struct {
	ProductDetail

	Characteristics map[string]string
	Warranty        string
	WishlistCount   int
	Delivery        DeliveryInfo

	// Seller mode without characteristics only.
	AvgRating    float64
	HasAvgRating bool
	Grouping     *GroupingResult
}

// ListingPage is one page of a paginated listing source.
type ListingPage struct {
	IDs         []int64
	TotalPages  int
	TotalFound  int
	SellerTitle string
}
