package usecase

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/adapter/httpapi"
	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/domain"
	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/query"
)

// ListingClient fetches a single listing by id.
type ListingClient struct {
	api     API
	queries *query.Client
	logger  *logger.Logger
}

func NewListingClient(api API, queries *query.Client, log *logger.Logger) *ListingClient {
	return &ListingClient{
		api:     api,
		queries: queries,
		logger:  log.Named("ListingClient"),
	}
}

// FetchListingByID returns domain.ErrDisabledQuery, without a request, when
// id is empty. A 404 matches domain.ErrListingNotFound.
func (c *ListingClient) FetchListingByID(ctx context.Context, id string) (*domain.Listing, error) {
	if id == "" {
		return nil, domain.ErrDisabledQuery
	}
	return query.Fetch(ctx, c.queries, query.NewKey(query.ScopeListing, id), c.fetcher(id))
}

// Listing reports Disabled for an empty id.
func (c *ListingClient) Listing(ctx context.Context, id string) query.Result[*domain.Listing] {
	if id == "" {
		return query.DisabledResult[*domain.Listing]()
	}
	return query.Settled[*domain.Listing](c.FetchListingByID(ctx, id))
}

func (c *ListingClient) ObserveListing(id string) *query.Observer[*domain.Listing] {
	return query.Observe(c.queries, query.NewKey(query.ScopeListing, id),
		func() bool { return id != "" }, c.fetcher(id))
}

func (c *ListingClient) fetcher(id string) query.Fetcher[*domain.Listing] {
	return func(ctx context.Context) (*domain.Listing, error) {
		var listing domain.Listing
		err := c.api.Do(ctx, httpapi.Request{
			Op:       "fetchListingById",
			Method:   http.MethodGet,
			Path:     listingsPath + "/" + url.PathEscape(id),
			Auth:     httpapi.AuthOptional,
			Fallback: msgFetchListingFailed,
		}, &listing)
		if err != nil {
			if apiErr, ok := domain.AsAPIError(err); ok && apiErr.StatusCode == http.StatusNotFound {
				apiErr.Err = domain.ErrListingNotFound
			}
			return nil, err
		}
		return &listing, nil
	}
}
