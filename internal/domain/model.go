package domain

import (
	"encoding/json"
	"io"
)

// Listing is a marketplace item as returned by the backend.
type Listing struct {
	ID          string   `json:"_id"`
	UserID      string   `json:"userId,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Condition   string   `json:"condition,omitempty"`
	Images      []string `json:"images,omitempty"`
}

// UserListings is the payload of GET /api/profile/{userId}.
type UserListings struct {
	Listings []Listing `json:"listings"`
}

type User struct {
	ID     string `json:"_id"`
	Email  string `json:"email"`
	Pseudo string `json:"pseudo,omitempty"`
}

// UnmarshalJSON accepts both "_id" and "id", the backend has used both.
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	var aux struct {
		plain
		AltID string `json:"id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*u = User(aux.plain)
	if u.ID == "" {
		u.ID = aux.AltID
	}
	return nil
}

// AuthResponse is returned by login and register. Token is empty when the
// backend relies on the session cookie only.
type AuthResponse struct {
	User
	Token string `json:"token,omitempty"`
}

func (a *AuthResponse) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &a.User); err != nil {
		return err
	}
	var aux struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	a.Token = aux.Token
	return nil
}

// ImageFile is one attachment of a listing creation request.
type ImageFile struct {
	Name        string
	ContentType string
	Data        io.Reader
}
