// Package storage provides optional sinks for enriched product records,
// alongside the spreadsheet export. Sinks receive records batch by batch
// as the pipeline produces them.
package storage

import (
	"time"

	"github.com/rozvidka/rozvidka/internal/catalog"
)

// Sink is the interface for all record sinks.
type Sink interface {
	// Store persists a batch of enriched products.
	Store(products []catalog.EnrichedProduct) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the sink identifier.
	Name() string
}

// Record is the flattened serialization of one enriched product.
type Record struct {
	ID              int64             `json:"id" bson:"id"`
	Title           string            `json:"title" bson:"title"`
	Href            string            `json:"href" bson:"href"`
	Category        string            `json:"category" bson:"category"`
	Brand           string            `json:"brand,omitempty" bson:"brand,omitempty"`
	Price           float64           `json:"price" bson:"price"`
	OldPrice        float64           `json:"old_price,omitempty" bson:"old_price,omitempty"`
	CommentsMark    float64           `json:"comments_mark,omitempty" bson:"comments_mark,omitempty"`
	CommentsAmount  int               `json:"comments_amount" bson:"comments_amount"`
	Seller          string            `json:"seller,omitempty" bson:"seller,omitempty"`
	WishlistCount   int               `json:"wishlist_count" bson:"wishlist_count"`
	Warranty        string            `json:"warranty,omitempty" bson:"warranty,omitempty"`
	Payments        string            `json:"payments,omitempty" bson:"payments,omitempty"`
	Deliveries      map[string]string `json:"deliveries,omitempty" bson:"deliveries,omitempty"`
	Characteristics map[string]string `json:"characteristics,omitempty" bson:"characteristics,omitempty"`
	AvgRating       float64           `json:"avg_rating,omitempty" bson:"avg_rating,omitempty"`
	GroupingFound   bool              `json:"grouping_found,omitempty" bson:"grouping_found,omitempty"`
	GroupingCount   int               `json:"grouping_count,omitempty" bson:"grouping_count,omitempty"`
	Timestamp       time.Time         `json:"timestamp" bson:"timestamp"`
}

// NewRecord flattens an enriched product for serialization.
func NewRecord(p *catalog.EnrichedProduct) Record {
	r := Record{
		ID:              p.ID,
		Title:           p.Title,
		Href:            p.Href,
		Category:        p.CategoryPath(),
		Brand:           p.Brand,
		Price:           p.Price,
		OldPrice:        p.OldPrice,
		CommentsMark:    p.CommentsMark,
		CommentsAmount:  p.CommentsAmount,
		Seller:          p.Seller.Title,
		WishlistCount:   p.WishlistCount,
		Warranty:        p.Warranty,
		Payments:        p.Delivery.Payments,
		Characteristics: p.Characteristics,
		Timestamp:       time.Now().UTC(),
	}
	if r.Category == "" {
		r.Category = p.Category.Title
	}
	if len(p.Delivery.Deliveries) > 0 {
		r.Deliveries = make(map[string]string, len(p.Delivery.Deliveries))
		for _, d := range p.Delivery.Deliveries {
			r.Deliveries[d.Title] = d.Cost
		}
	}
	if p.HasAvgRating {
		r.AvgRating = p.AvgRating
	}
	if p.Grouping != nil {
		r.GroupingFound = p.Grouping.Found
		r.GroupingCount = p.Grouping.Count
	}
	return r
}
