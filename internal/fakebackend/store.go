package fakebackend

import (
	"context"
	"strings"
	"sync"

	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type userRecord struct {
	domain.User
	passwordHash []byte
}

// Store holds users and listings in memory. Listings keep insertion order.
type Store struct {
	mu         sync.RWMutex
	users      map[string]*userRecord
	emails     map[string]string
	listings   map[string]domain.Listing
	order      []string
	bcryptCost int
}

var _ Repository = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		users:      make(map[string]*userRecord),
		emails:     make(map[string]string),
		listings:   make(map[string]domain.Listing),
		bcryptCost: bcrypt.DefaultCost,
	}
}

func (s *Store) Register(_ context.Context, email, password, pseudo string) (domain.User, error) {
	email = normalizeEmail(email)
	hash, err := hashPassword(password, s.bcryptCost)
	if err != nil {
		return domain.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.emails[email]; taken {
		return domain.User{}, ErrEmailTaken
	}
	u := &userRecord{
		User:         domain.User{ID: uuid.NewString(), Email: email, Pseudo: pseudo},
		passwordHash: hash,
	}
	s.users[u.ID] = u
	s.emails[email] = u.ID
	return u.User, nil
}

func (s *Store) Authenticate(_ context.Context, email, password string) (domain.User, error) {
	s.mu.RLock()
	id, ok := s.emails[normalizeEmail(email)]
	var u *userRecord
	if ok {
		u = s.users[id]
	}
	s.mu.RUnlock()
	if u == nil {
		return domain.User{}, ErrInvalidCredentials
	}
	if err := checkPassword(u.passwordHash, password); err != nil {
		return domain.User{}, err
	}
	return u.User, nil
}

func (s *Store) User(_ context.Context, id string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, ErrUserNotFound
	}
	return u.User, nil
}

func (s *Store) AddListing(_ context.Context, l domain.Listing) (domain.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.ID = uuid.NewString()
	s.listings[l.ID] = l
	s.order = append(s.order, l.ID)
	return l, nil
}

func (s *Store) Listing(_ context.Context, id string) (domain.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.listings[id]
	if !ok {
		return domain.Listing{}, domain.ErrListingNotFound
	}
	return l, nil
}

func (s *Store) Search(_ context.Context, p domain.ListingSearchParams) ([]domain.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(searchText(p))
	condition := searchCondition(p)
	out := make([]domain.Listing, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		l := s.listings[s.order[i]]
		if q != "" && !strings.Contains(strings.ToLower(l.Title), q) && !strings.Contains(strings.ToLower(l.Description), q) {
			continue
		}
		if condition != "" && l.Condition != condition {
			continue
		}
		if p.MinPrice != nil && l.Price < *p.MinPrice {
			continue
		}
		if p.MaxPrice != nil && l.Price > *p.MaxPrice {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (s *Store) ListingsOf(_ context.Context, userID string) ([]domain.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Listing, 0)
	for i := len(s.order) - 1; i >= 0; i-- {
		if l := s.listings[s.order[i]]; l.UserID == userID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *Store) DeleteListing(_ context.Context, userID, listingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[listingID]
	if !ok {
		return domain.ErrListingNotFound
	}
	if l.UserID != userID {
		return ErrForbidden
	}
	delete(s.listings, listingID)
	for i, id := range s.order {
		if id == listingID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}
