package usecase

import (
	"context"
	"net/http"

	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/adapter/httpapi"
	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/domain"
	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/query"
	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/session"
	"go.uber.org/zap"
)

// SessionClient manages the logged-in user. It writes the session token on
// login, register and logout.
type SessionClient struct {
	api     API
	session *session.Context
	queries *query.Client
	logger  *logger.Logger
}

func NewSessionClient(api API, sess *session.Context, queries *query.Client, log *logger.Logger) *SessionClient {
	return &SessionClient{
		api:     api,
		session: sess,
		queries: queries,
		logger:  log.Named("SessionClient"),
	}
}

// currentUserKey is partitioned by session, so clients sharing a cache store
// never read each other's user.
func (c *SessionClient) currentUserKey() query.Key {
	return query.NewKey(query.ScopeCurrentUser, c.session.CacheID())
}

// FetchCurrentUser returns the user behind the session. Any failed response
// is reported as "not logged in" and matches domain.ErrUnauthenticated.
func (c *SessionClient) FetchCurrentUser(ctx context.Context) (*domain.User, error) {
	return query.Fetch(ctx, c.queries, c.currentUserKey(), c.fetchCurrentUser)
}

func (c *SessionClient) CurrentUser(ctx context.Context) query.Result[*domain.User] {
	return query.Settled[*domain.User](c.FetchCurrentUser(ctx))
}

func (c *SessionClient) ObserveCurrentUser() *query.Observer[*domain.User] {
	return query.ObserveFunc(c.queries, query.ScopeCurrentUser, c.currentUserKey, nil, c.fetchCurrentUser)
}

func (c *SessionClient) fetchCurrentUser(ctx context.Context) (*domain.User, error) {
	var user domain.User
	err := c.api.Do(ctx, httpapi.Request{
		Op:       "fetchCurrentUser",
		Method:   http.MethodGet,
		Path:     "/api/me",
		Auth:     httpapi.AuthOptional,
		Fallback: msgNotLoggedIn,
		Sentinel: domain.ErrUnauthenticated,
	}, &user)
	if err != nil {
		if apiErr, ok := domain.AsAPIError(err); ok {
			apiErr.Message = msgNotLoggedIn
		}
		return nil, err
	}
	return &user, nil
}

// Login authenticates with email and password. A token in the response is
// stored in the session before Login returns, so the next request of any
// client carries it.
func (c *SessionClient) Login(ctx context.Context, email, password string) (*domain.AuthResponse, error) {
	resp, err := c.authenticate(ctx, "login", "/api/login", msgLoginFailed, []httpapi.Field{
		{Name: "email", Value: email},
		{Name: "password", Value: password},
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("User logged in", zap.String("user_id", resp.ID), zap.Bool("token", resp.Token != ""))
	invalidateAfter(ctx, c.queries, c.logger, MutationLogin)
	return resp, nil
}

// Register creates an account and logs it in, like Login.
func (c *SessionClient) Register(ctx context.Context, email, password, pseudo string) (*domain.AuthResponse, error) {
	resp, err := c.authenticate(ctx, "register", "/api/register", msgRegisterFailed, []httpapi.Field{
		{Name: "email", Value: email},
		{Name: "password", Value: password},
		{Name: "pseudo", Value: pseudo},
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("User registered", zap.String("user_id", resp.ID), zap.Bool("token", resp.Token != ""))
	invalidateAfter(ctx, c.queries, c.logger, MutationRegister)
	return resp, nil
}

func (c *SessionClient) authenticate(ctx context.Context, op, path, fallback string, fields []httpapi.Field) (*domain.AuthResponse, error) {
	body, contentType, err := httpapi.MultipartBody(fields, "", nil)
	if err != nil {
		return nil, err
	}
	var resp domain.AuthResponse
	err = c.api.Do(ctx, httpapi.Request{
		Op:          op,
		Method:      http.MethodPost,
		Path:        path,
		Body:        body,
		ContentType: contentType,
		Auth:        httpapi.AuthNone,
		Fallback:    fallback,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Token != "" {
		c.session.SetToken(resp.Token)
	}
	return &resp, nil
}

// Logout ends the session on the backend, then clears the token. A failed
// logout leaves the session untouched.
func (c *SessionClient) Logout(ctx context.Context) error {
	err := c.api.Do(ctx, httpapi.Request{
		Op:       "logout",
		Method:   http.MethodPost,
		Path:     "/api/logout",
		Auth:     httpapi.AuthNone,
		Fallback: msgLogoutFailed,
	}, nil)
	if err != nil {
		if apiErr, ok := domain.AsAPIError(err); ok {
			apiErr.Message = msgLogoutFailed
		}
		return err
	}
	c.session.Clear()
	c.logger.Info("User logged out")
	invalidateAfter(ctx, c.queries, c.logger, MutationLogout)
	return nil
}
