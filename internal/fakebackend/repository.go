package fakebackend

import (
	"context"
	"errors"
	"strings"

	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrForbidden          = errors.New("forbidden")
)

// Repository persists users and listings. Store keeps them in memory,
// MongoStore in MongoDB.
type Repository interface {
	Register(ctx context.Context, email, password, pseudo string) (domain.User, error)
	Authenticate(ctx context.Context, email, password string) (domain.User, error)
	User(ctx context.Context, id string) (domain.User, error)
	AddListing(ctx context.Context, l domain.Listing) (domain.Listing, error)
	Listing(ctx context.Context, id string) (domain.Listing, error)
	// Search matches the query text case-insensitively against title and
	// description, the condition exactly and the price bounds inclusively.
	// Newest listings come first.
	Search(ctx context.Context, p domain.ListingSearchParams) ([]domain.Listing, error)
	// ListingsOf returns the listings of userID, newest first.
	ListingsOf(ctx context.Context, userID string) ([]domain.Listing, error)
	// DeleteListing removes a listing owned by userID.
	DeleteListing(ctx context.Context, userID, listingID string) error
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func searchText(p domain.ListingSearchParams) string {
	if p.Query == nil {
		return ""
	}
	return strings.TrimSpace(*p.Query)
}

func searchCondition(p domain.ListingSearchParams) string {
	if p.Condition == nil {
		return ""
	}
	return *p.Condition
}

func hashPassword(password string, cost int) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), cost)
}

func checkPassword(hash []byte, password string) error {
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
