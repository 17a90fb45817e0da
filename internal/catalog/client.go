package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/rozvidka/rozvidka/internal/session"
)

// Default endpoint roots. Overridable per client for tests.
const (
	defaultSearchAPI   = "https://search.rozetka.com.ua/ua/search/api/v7/"
	defaultSellerAPI   = "https://search.rozetka.com.ua/ua/seller/api/v7/"
	defaultDetailsAPI  = "https://xl-catalog-api.rozetka.com.ua/v4/goods/getDetails"
	defaultWishlistAPI = "https://uss.rozetka.com.ua/session/wishlist/count-goods"
	defaultDeliveryAPI = "https://product-api.rozetka.com.ua/v4/deliveries/get-deliveries"
	defaultProductRoot = "https://rozetka.com.ua/ua"

	deliveryCityID = "b205dde2-2e2e-4eb9-aef2-a67c82bbdf27"
)

// Client speaks the marketplace's JSON API through a shared Session.
// Listing and lookup failures degrade to empty results; the pipeline
// decides whether an empty overall outcome is an error.
type Client struct {
	SearchAPI   string
	SellerAPI   string
	DetailsAPI  string
	WishlistAPI string
	DeliveryAPI string
	ProductRoot string

	sess   *session.Session
	logger *slog.Logger
}

// NewClient creates a marketplace API client on top of a session.
func NewClient(sess *session.Session, logger *slog.Logger) *Client {
	return &Client{
		SearchAPI:   defaultSearchAPI,
		SellerAPI:   defaultSellerAPI,
		DetailsAPI:  defaultDetailsAPI,
		WishlistAPI: defaultWishlistAPI,
		DeliveryAPI: defaultDeliveryAPI,
		ProductRoot: defaultProductRoot,
		sess:        sess,
		logger:      logger.With("component", "catalog"),
	}
}

type pagination struct {
	TotalPages int `json:"total_pages"`
	TotalFound int `json:"total_found"`
}

type listingGood struct {
	ID int64 `json:"id"`
}

type listingData struct {
	Pagination pagination    `json:"pagination"`
	Goods      []listingGood `json:"goods"`
	SellerInfo Seller        `json:"seller_info"`
}

type listingEnvelope struct {
	Data listingData `json:"data"`
}

// SearchPage fetches one page of search results for a query text.
// Failures yield an empty page, which the caller treats as end of listing.
func (c *Client) SearchPage(ctx context.Context, text string, page int) ListingPage {
	u := fmt.Sprintf("%s?country=UA&lang=ua&text=%s&page=%d", c.SearchAPI, url.QueryEscape(text), page)
	return c.listingPage(ctx, u)
}

// SellerPage fetches one page of a seller's storefront listing.
func (c *Client) SellerPage(ctx context.Context, name string, page int) ListingPage {
	u := fmt.Sprintf("%s?front-type=xl&country=UA&lang=ua&name=%s&page=%d", c.SellerAPI, url.QueryEscape(name), page)
	return c.listingPage(ctx, u)
}

func (c *Client) listingPage(ctx context.Context, u string) ListingPage {
	var env listingEnvelope
	if err := c.sess.GetJSON(ctx, u, nil, &env); err != nil {
		c.logger.Warn("listing page degraded to empty", "url", u, "error", err)
		return ListingPage{}
	}
	c.sess.Pace(ctx)

	page := ListingPage{
		TotalPages:  env.Data.Pagination.TotalPages,
		TotalFound:  env.Data.Pagination.TotalFound,
		SellerTitle: env.Data.SellerInfo.Title,
	}
	for _, g := range env.Data.Goods {
		if g.ID != 0 {
			page.IDs = append(page.IDs, g.ID)
		}
	}
	return page
}

type detailsEnvelope struct {
	Data []ProductDetail `json:"data"`
}

// Details resolves a batch of identifiers to full product records with one
// bulk call. A failed call yields an empty slice.
func (c *Client) Details(ctx context.Context, ids []int64) []ProductDetail {
	if len(ids) == 0 {
		return nil
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	u := fmt.Sprintf("%s?country=UA&lang=ua&goods_group_href=0&product_ids=%s&with_docket=1&with_extra_info=1&with_groups=1",
		c.DetailsAPI, strings.Join(parts, ","))

	var env detailsEnvelope
	headers := map[string]string{"X-Requested-With": "XMLHttpRequest"}
	if err := c.sess.GetJSON(ctx, u, headers, &env); err != nil {
		c.logger.Warn("bulk details degraded to empty", "ids", len(ids), "error", err)
		return nil
	}
	c.sess.Pace(ctx)
	return env.Data
}

type wishlistEnvelope struct {
	Data []struct {
		Count int `json:"count"`
	} `json:"data"`
}

// WishlistCount returns how many wishlists contain the product. Defaults
// to 0 on any failure.
func (c *Client) WishlistCount(ctx context.Context, id int64) int {
	ctx, cancel := context.WithTimeout(ctx, c.sess.ShortTimeout())
	defer cancel()

	u := fmt.Sprintf("%s?country=UA&lang=ua&goods_ids=%d", c.WishlistAPI, id)
	var env wishlistEnvelope
	if err := c.sess.GetJSON(ctx, u, nil, &env); err != nil {
		c.logger.Warn("wishlist count degraded to zero", "product_id", id, "error", err)
		return 0
	}
	c.sess.Pace(ctx)
	if len(env.Data) == 0 {
		return 0
	}
	return env.Data[0].Count
}

// deliveryCost prefers the discounted numeric price over the display text.
type deliveryCost struct {
	New  *json.Number `json:"new"`
	Text string       `json:"text"`
}

func (dc deliveryCost) String() string {
	if dc.New != nil {
		return dc.New.String()
	}
	if dc.Text != "" {
		return dc.Text
	}
	return "Н/Д"
}

type deliveryEnvelope struct {
	Data struct {
		Deliveries []struct {
			Title string       `json:"title"`
			Cost  deliveryCost `json:"cost"`
		} `json:"deliveries"`
		Payments string `json:"payments"`
	} `json:"data"`
}

// Deliveries returns the delivery options available for a product at the
// given price. Defaults to an empty DeliveryInfo on any failure.
func (c *Client) Deliveries(ctx context.Context, id int64, price float64) DeliveryInfo {
	u := fmt.Sprintf("%s?country=UA&lang=ua&city_id=%s&cost=%s&product_id=%d",
		c.DeliveryAPI, deliveryCityID, strconv.FormatFloat(price, 'f', -1, 64), id)

	var env deliveryEnvelope
	if err := c.sess.GetJSON(ctx, u, nil, &env); err != nil {
		c.logger.Warn("delivery options degraded to empty", "product_id", id, "error", err)
		return DeliveryInfo{}
	}
	c.sess.Pace(ctx)

	info := DeliveryInfo{Payments: env.Data.Payments}
	for _, d := range env.Data.Deliveries {
		info.Deliveries = append(info.Deliveries, DeliveryOption{Title: d.Title, Cost: d.Cost.String()})
	}
	return info
}

// ProductPageURL builds the canonical detail page URL for an identifier.
func (c *Client) ProductPageURL(id int64) string {
	return fmt.Sprintf("%s/%d/p%d/", c.ProductRoot, id, id)
}

// ReviewsURL builds the review page URL for an identifier.
func (c *Client) ReviewsURL(id int64) string {
	return fmt.Sprintf("%s/%d/p%d/comments/", c.ProductRoot, id, id)
}

// ProductHTML fetches a product detail page's static HTML. Empty on failure.
func (c *Client) ProductHTML(ctx context.Context, pageURL string) string {
	return c.sess.FetchHTML(ctx, pageURL)
}
