package usecase

import (
	"context"

	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/adapter/httpapi"
	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/query"
	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/session"
	"go.uber.org/zap"
)

// API sends one request to the backend. *httpapi.Client implements it.
type API interface {
	Do(ctx context.Context, req httpapi.Request, out any) error
}

// Messages shown when the backend does not explain a failure.
const (
	msgFetchListingsFailed    = "Erreur lors du chargement des annonces"
	msgCreateListingFailed    = "Erreur lors de la création de l'annonce"
	msgFetchListingFailed     = "Erreur lors de la récupération de l’annonce."
	msgNotLoggedIn            = "Non connecté"
	msgLoginFailed            = "Erreur lors de la connexion"
	msgRegisterFailed         = "Erreur lors de l'inscription"
	msgLogoutFailed           = "Erreur lors de la déconnexion"
	msgFetchUserListingFailed = "Erreur lors de la récupération des annonces"
	msgDeleteListingFailed    = "Erreur lors de la suppression"
)

// Mutation names a state-changing operation.
type Mutation string

const (
	MutationCreateListing Mutation = "createListing"
	MutationDeleteListing Mutation = "deleteListing"
	MutationLogin         Mutation = "login"
	MutationRegister      Mutation = "register"
	MutationLogout        Mutation = "logout"
)

// invalidations lists, for each mutation, the query scopes its success
// makes stale.
var invalidations = map[Mutation][]string{
	MutationCreateListing: {query.ScopeListings, query.ScopeListing},
	MutationDeleteListing: {query.ScopeListings, query.ScopeListing, query.ScopeUserListings},
	MutationLogin:         {query.ScopeCurrentUser, query.ScopeUserListings},
	MutationRegister:      {query.ScopeCurrentUser, query.ScopeUserListings},
	MutationLogout:        {query.ScopeCurrentUser, query.ScopeUserListings},
}

// InvalidatedScopes returns the scopes m invalidates.
func InvalidatedScopes(m Mutation) []string {
	scopes := invalidations[m]
	out := make([]string, len(scopes))
	copy(out, scopes)
	return out
}

// invalidateAfter runs once m succeeded on the backend. A cache failure is
// logged and does not fail the mutation.
func invalidateAfter(ctx context.Context, queries *query.Client, log *logger.Logger, m Mutation) {
	if err := queries.Invalidate(ctx, invalidations[m]...); err != nil {
		log.Warn("Failed to invalidate queries after mutation", zap.String("mutation", string(m)), zap.Error(err))
	}
}

// Clients groups the API clients of one process around a single session
// and query cache.
type Clients struct {
	Session      *session.Context
	Queries      *query.Client
	Listings     *ListingsClient
	Listing      *ListingClient
	Auth         *SessionClient
	UserListings *UserListingsClient
}

func NewClients(api API, sess *session.Context, queries *query.Client, log *logger.Logger) *Clients {
	return &Clients{
		Session:      sess,
		Queries:      queries,
		Listings:     NewListingsClient(api, queries, log),
		Listing:      NewListingClient(api, queries, log),
		Auth:         NewSessionClient(api, sess, queries, log),
		UserListings: NewUserListingsClient(api, sess, queries, log),
	}
}
