package usecase

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/adapter/httpapi"
	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/domain"
	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/query"
	"go.uber.org/zap"
)

const listingsPath = "/api/listings"

// ListingsClient searches listings and creates new ones.
type ListingsClient struct {
	api     API
	queries *query.Client
	logger  *logger.Logger
}

func NewListingsClient(api API, queries *query.Client, log *logger.Logger) *ListingsClient {
	return &ListingsClient{
		api:     api,
		queries: queries,
		logger:  log.Named("ListingsClient"),
	}
}

func listingsKey(params domain.ListingSearchParams) query.Key {
	return query.NewKey(query.ScopeListings, params.Encode())
}

// FetchListings returns the listings matching params. Results are served
// from the query cache until they go stale or a mutation invalidates them.
func (c *ListingsClient) FetchListings(ctx context.Context, params domain.ListingSearchParams) ([]domain.Listing, error) {
	return query.Fetch(ctx, c.queries, listingsKey(params), c.fetcher(params))
}

// Listings is FetchListings expressed as a query result.
func (c *ListingsClient) Listings(ctx context.Context, params domain.ListingSearchParams) query.Result[[]domain.Listing] {
	return query.Settled[[]domain.Listing](c.FetchListings(ctx, params))
}

// ObserveListings tracks one search; SetParams re-enters Loading with new
// filters.
func (c *ListingsClient) ObserveListings(params domain.ListingSearchParams) *query.Observer[[]domain.Listing] {
	return query.Observe(c.queries, listingsKey(params), nil, c.fetcher(params))
}

func (c *ListingsClient) SetParams(ctx context.Context, o *query.Observer[[]domain.Listing], params domain.ListingSearchParams) query.Result[[]domain.Listing] {
	return o.SetKey(ctx, listingsKey(params), c.fetcher(params))
}

func (c *ListingsClient) fetcher(params domain.ListingSearchParams) query.Fetcher[[]domain.Listing] {
	return func(ctx context.Context) ([]domain.Listing, error) {
		var listings []domain.Listing
		err := c.api.Do(ctx, httpapi.Request{
			Op:       "fetchListings",
			Method:   http.MethodGet,
			Path:     listingsPath,
			Query:    params.Values(),
			Auth:     httpapi.AuthOptional,
			Fallback: msgFetchListingsFailed,
		}, &listings)
		if err != nil {
			return nil, err
		}
		if listings == nil {
			listings = []domain.Listing{}
		}
		return listings, nil
	}
}

// CreateListing uploads a new listing with its photos. On success every
// cached listing query is invalidated.
func (c *ListingsClient) CreateListing(ctx context.Context, in domain.NewListing) (*domain.Listing, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	body, contentType, err := httpapi.MultipartBody([]httpapi.Field{
		{Name: "title", Value: in.Title},
		{Name: "description", Value: in.Description},
		{Name: "price", Value: strconv.FormatFloat(in.Price, 'f', -1, 64)},
		{Name: "condition", Value: in.Condition},
	}, "images", in.Images)
	if err != nil {
		return nil, fmt.Errorf("createListing: %w", err)
	}

	var created domain.Listing
	err = c.api.Do(ctx, httpapi.Request{
		Op:          "createListing",
		Method:      http.MethodPost,
		Path:        listingsPath,
		Body:        body,
		ContentType: contentType,
		Auth:        httpapi.AuthOptional,
		Fallback:    msgCreateListingFailed,
	}, &created)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Listing created", zap.String("listing_id", created.ID), zap.Int("images", len(in.Images)))
	invalidateAfter(ctx, c.queries, c.logger, MutationCreateListing)
	return &created, nil
}
