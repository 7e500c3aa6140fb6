package usecase

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/adapter/httpapi"
	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/domain"
	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/query"
	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/session"
	"go.uber.org/zap"
)

// UserListingsClient reads and deletes the listings of one user. Reads run
// only while a user id is given and the session holds a token.
type UserListingsClient struct {
	api     API
	session *session.Context
	queries *query.Client
	logger  *logger.Logger
}

func NewUserListingsClient(api API, sess *session.Context, queries *query.Client, log *logger.Logger) *UserListingsClient {
	return &UserListingsClient{
		api:     api,
		session: sess,
		queries: queries,
		logger:  log.Named("UserListingsClient"),
	}
}

func profilePath(userID string) string {
	return "/api/profile/" + url.PathEscape(userID)
}

func (c *UserListingsClient) enabled(userID string) bool {
	_, hasToken := c.session.Token()
	return userID != "" && hasToken
}

func (c *UserListingsClient) key(userID string) query.Key {
	return query.NewKey(query.ScopeUserListings, c.session.CacheID(), userID)
}

// FetchUserListings reports Disabled, without a request, until userID is
// non-empty and a token is present.
func (c *UserListingsClient) FetchUserListings(ctx context.Context, userID string) query.Result[domain.UserListings] {
	if !c.enabled(userID) {
		return query.DisabledResult[domain.UserListings]()
	}
	return query.Settled[domain.UserListings](query.Fetch(ctx, c.queries, c.key(userID), c.fetcher(userID)))
}

// ObserveUserListings re-checks the precondition on every load, so a login
// enables a previously disabled observer.
func (c *UserListingsClient) ObserveUserListings(userID string) *query.Observer[domain.UserListings] {
	return query.ObserveFunc(c.queries, query.ScopeUserListings,
		func() query.Key { return c.key(userID) },
		func() bool { return c.enabled(userID) }, c.fetcher(userID))
}

func (c *UserListingsClient) fetcher(userID string) query.Fetcher[domain.UserListings] {
	return func(ctx context.Context) (domain.UserListings, error) {
		var out domain.UserListings
		err := c.api.Do(ctx, httpapi.Request{
			Op:       "fetchUserListings",
			Method:   http.MethodGet,
			Path:     profilePath(userID),
			Auth:     httpapi.AuthRequired,
			Fallback: msgFetchUserListingFailed,
		}, &out)
		if err != nil {
			return domain.UserListings{}, err
		}
		if out.Listings == nil {
			out.Listings = []domain.Listing{}
		}
		return out, nil
	}
}

// DeleteListing removes one of the user's listings and invalidates every
// query that may still show it.
func (c *UserListingsClient) DeleteListing(ctx context.Context, userID, listingID string) error {
	if userID == "" {
		return domain.ErrMissingUserID
	}
	if listingID == "" {
		return domain.ErrMissingListingID
	}
	err := c.api.Do(ctx, httpapi.Request{
		Op:       "deleteListing",
		Method:   http.MethodDelete,
		Path:     profilePath(userID) + "/" + url.PathEscape(listingID),
		Auth:     httpapi.AuthRequired,
		Fallback: msgDeleteListingFailed,
	}, nil)
	if err != nil {
		return err
	}
	c.logger.Info("Listing deleted", zap.String("user_id", userID), zap.String("listing_id", listingID))
	invalidateAfter(ctx, c.queries, c.logger, MutationDeleteListing)
	return nil
}
