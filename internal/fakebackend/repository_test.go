package fakebackend

import (
	"bytes"
	"context"
	"testing"

	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// testRepository runs the behavior every Repository must share.
func testRepository(t *testing.T, repo Repository) {
	ctx := context.Background()

	t.Run("register and authenticate", func(t *testing.T) {
		u, err := repo.Register(ctx, " Seller@Example.com ", "secret", "seller")
		require.NoError(t, err)
		assert.NotEmpty(t, u.ID)
		assert.Equal(t, "seller@example.com", u.Email)

		_, err = repo.Register(ctx, "seller@example.com", "other", "copy")
		assert.ErrorIs(t, err, ErrEmailTaken)

		got, err := repo.Authenticate(ctx, "SELLER@example.com", "secret")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)

		_, err = repo.Authenticate(ctx, "seller@example.com", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		_, err = repo.Authenticate(ctx, "nobody@example.com", "secret")
		assert.ErrorIs(t, err, ErrInvalidCredentials)

		found, err := repo.User(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "seller", found.Pseudo)
		_, err = repo.User(ctx, "missing")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("search", func(t *testing.T) {
		for _, l := range []domain.Listing{
			{UserID: "search-user", Title: "Chaise", Price: 20, Condition: domain.ConditionNew},
			{UserID: "search-user", Title: "Table", Description: "avec chaise", Price: 80, Condition: domain.ConditionGood},
			{UserID: "search-user", Title: "Lampe (vintage)", Price: 5},
		} {
			_, err := repo.AddListing(ctx, l)
			require.NoError(t, err)
		}

		tests := []struct {
			name   string
			params domain.ListingSearchParams
			want   []string
		}{
			{name: "all newest first", want: []string{"Lampe (vintage)", "Table", "Chaise"}},
			{name: "text in description", params: domain.ListingSearchParams{Query: domain.String("CHAISE")}, want: []string{"Table", "Chaise"}},
			{name: "text is not a pattern", params: domain.ListingSearchParams{Query: domain.String("(vintage)")}, want: []string{"Lampe (vintage)"}},
			{name: "condition", params: domain.ListingSearchParams{Condition: domain.String(domain.ConditionNew)}, want: []string{"Chaise"}},
			{name: "price range inclusive", params: domain.ListingSearchParams{MinPrice: domain.Float(20), MaxPrice: domain.Float(80)}, want: []string{"Table", "Chaise"}},
			{name: "empty query matches all", params: domain.ListingSearchParams{Query: domain.String(" ")}, want: []string{"Lampe (vintage)", "Table", "Chaise"}},
			{name: "no match", params: domain.ListingSearchParams{MinPrice: domain.Float(1000)}, want: nil},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				listings, err := repo.Search(ctx, tt.params)
				require.NoError(t, err)
				assert.NotNil(t, listings)
				var titles []string
				for _, l := range listings {
					titles = append(titles, l.Title)
				}
				assert.Equal(t, tt.want, titles)
			})
		}
	})

	t.Run("delete checks ownership", func(t *testing.T) {
		l, err := repo.AddListing(ctx, domain.Listing{UserID: "owner", Title: "Chaise", Images: []string{"/uploads/photos/a.jpg"}})
		require.NoError(t, err)

		got, err := repo.Listing(ctx, l.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"/uploads/photos/a.jpg"}, got.Images)

		assert.ErrorIs(t, repo.DeleteListing(ctx, "intruder", l.ID), ErrForbidden)
		assert.ErrorIs(t, repo.DeleteListing(ctx, "owner", "missing"), domain.ErrListingNotFound)
		require.NoError(t, repo.DeleteListing(ctx, "owner", l.ID))

		_, err = repo.Listing(ctx, l.ID)
		assert.ErrorIs(t, err, domain.ErrListingNotFound)
		mine, err := repo.ListingsOf(ctx, "owner")
		require.NoError(t, err)
		assert.Empty(t, mine)
	})
}

func TestStore(t *testing.T) {
	store := NewStore()
	store.bcryptCost = bcrypt.MinCost
	testRepository(t, store)
}

func TestMailMessages(t *testing.T) {
	var buf bytes.Buffer
	_, err := welcomeMessage("noreply@example.com", domain.User{Email: "a@b.com", Pseudo: "ab"}).WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "To: a@b.com")
	assert.Contains(t, buf.String(), "Subject: Welcome to the marketplace")
	assert.Contains(t, buf.String(), "Hello ab,")

	buf.Reset()
	_, err = listingCreatedMessage("noreply@example.com", "a@b.com", domain.Listing{Title: "Chaise"}).WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Subject: New Listing Created")
	assert.Contains(t, buf.String(), "Your listing 'Chaise' has been created successfully.")
}
