package domain

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
)

// MaxListingImages is the number of photos a listing can carry.
const MaxListingImages = 5

// Condition values accepted by the backend.
const (
	ConditionNew     = "neuf"
	ConditionLikeNew = "comme neuf"
	ConditionGood    = "bon état"
	ConditionFair    = "état moyen"
	ConditionPoor    = "mauvais état"
)

const (
	DefaultImageType   = "image/jpeg"
	defaultImagePrefix = "photo_"
)

var conditions = []string{ConditionNew, ConditionLikeNew, ConditionGood, ConditionFair, ConditionPoor}

// Conditions returns the condition vocabulary in display order.
func Conditions() []string {
	out := make([]string, len(conditions))
	copy(out, conditions)
	return out
}

func IsValidCondition(c string) bool {
	for _, v := range conditions {
		if v == c {
			return true
		}
	}
	return false
}

// NewListing is the payload of a listing creation request.
type NewListing struct {
	Title       string
	Description string
	Price       float64
	Condition   string
	Images      []ImageFile
}

// Validate runs the checks the creation form performs before submitting.
func (n *NewListing) Validate() error {
	if strings.TrimSpace(n.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidListing)
	}
	if strings.TrimSpace(n.Description) == "" {
		return fmt.Errorf("%w: description is required", ErrInvalidListing)
	}
	if math.IsNaN(n.Price) || math.IsInf(n.Price, 0) || n.Price < 0 {
		return fmt.Errorf("%w: price must be a non-negative number", ErrInvalidListing)
	}
	if n.Condition != "" && !IsValidCondition(n.Condition) {
		return fmt.Errorf("%w: unknown condition %q", ErrInvalidListing, n.Condition)
	}
	if len(n.Images) > MaxListingImages {
		return fmt.Errorf("%w: at most %d images, got %d", ErrInvalidListing, MaxListingImages, len(n.Images))
	}
	for i, img := range n.Images {
		if img.Data == nil {
			return fmt.Errorf("%w: image %d has no data", ErrInvalidListing, i)
		}
	}
	return nil
}

// FileName returns the attachment name, generating one when empty.
func (f ImageFile) FileName() string {
	if f.Name != "" {
		return f.Name
	}
	return defaultImagePrefix + uuid.NewString() + ".jpg"
}

func (f ImageFile) MIMEType() string {
	if f.ContentType != "" {
		return f.ContentType
	}
	return DefaultImageType
}
