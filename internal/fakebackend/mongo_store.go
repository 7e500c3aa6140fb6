package fakebackend

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/domain"
	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/platform/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	usersCollection    = "users"
	listingsCollection = "listings"
)

type userDocument struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Email        string             `bson:"email"`
	Pseudo       string             `bson:"pseudo"`
	PasswordHash []byte             `bson:"password_hash"`
	CreatedAt    time.Time          `bson:"created_at"`
}

type listingDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	UserID      string             `bson:"user_id"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Price       float64            `bson:"price"`
	Condition   string             `bson:"condition,omitempty"`
	Images      []string           `bson:"images,omitempty"`
	CreatedAt   time.Time          `bson:"created_at"`
}

func (d *userDocument) toDomain() domain.User {
	return domain.User{ID: d.ID.Hex(), Email: d.Email, Pseudo: d.Pseudo}
}

func (d *listingDocument) toDomain() domain.Listing {
	return domain.Listing{
		ID:          d.ID.Hex(),
		UserID:      d.UserID,
		Title:       d.Title,
		Description: d.Description,
		Price:       d.Price,
		Condition:   d.Condition,
		Images:      d.Images,
	}
}

// MongoStore keeps users and listings in MongoDB.
type MongoStore struct {
	client     *mongo.Client
	users      *mongo.Collection
	listings   *mongo.Collection
	bcryptCost int
	logger     *logger.Logger
}

var _ Repository = (*MongoStore)(nil)

// NewMongoStore connects to uri, checks the connection and creates the
// unique email index.
func NewMongoStore(ctx context.Context, uri, database string, log *logger.Logger) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	db := client.Database(database)
	s := &MongoStore{
		client:     client,
		users:      db.Collection(usersCollection),
		listings:   db.Collection(listingsCollection),
		bcryptCost: bcrypt.DefaultCost,
		logger:     log.Named("MongoStore"),
	}

	_, err = s.users.Indexes().CreateOne(connectCtx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create email index: %w", err)
	}
	_, err = s.listings.Indexes().CreateOne(connectCtx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create listings index: %w", err)
	}

	s.logger.Info("Connected to MongoDB", zap.String("database", database))
	return s, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) Register(ctx context.Context, email, password, pseudo string) (domain.User, error) {
	hash, err := hashPassword(password, s.bcryptCost)
	if err != nil {
		return domain.User{}, err
	}
	doc := userDocument{
		ID:           primitive.NewObjectID(),
		Email:        normalizeEmail(email),
		Pseudo:       pseudo,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.User{}, ErrEmailTaken
		}
		s.logger.Error("Register: failed to insert user", zap.Error(err))
		return domain.User{}, err
	}
	return doc.toDomain(), nil
}

func (s *MongoStore) Authenticate(ctx context.Context, email, password string) (domain.User, error) {
	var doc userDocument
	err := s.users.FindOne(ctx, bson.M{"email": normalizeEmail(email)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}
	if err := checkPassword(doc.PasswordHash, password); err != nil {
		return domain.User{}, err
	}
	return doc.toDomain(), nil
}

func (s *MongoStore) User(ctx context.Context, id string) (domain.User, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.User{}, ErrUserNotFound
	}
	var doc userDocument
	if err := s.users.FindOne(ctx, bson.M{"_id": objID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return doc.toDomain(), nil
}

func (s *MongoStore) AddListing(ctx context.Context, l domain.Listing) (domain.Listing, error) {
	doc := listingDocument{
		ID:          primitive.NewObjectID(),
		UserID:      l.UserID,
		Title:       l.Title,
		Description: l.Description,
		Price:       l.Price,
		Condition:   l.Condition,
		Images:      l.Images,
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := s.listings.InsertOne(ctx, doc); err != nil {
		s.logger.Error("AddListing: failed to insert listing", zap.Error(err))
		return domain.Listing{}, err
	}
	return doc.toDomain(), nil
}

func (s *MongoStore) findListing(ctx context.Context, id string) (*listingDocument, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrListingNotFound
	}
	var doc listingDocument
	if err := s.listings.FindOne(ctx, bson.M{"_id": objID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrListingNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func (s *MongoStore) Listing(ctx context.Context, id string) (domain.Listing, error) {
	doc, err := s.findListing(ctx, id)
	if err != nil {
		return domain.Listing{}, err
	}
	return doc.toDomain(), nil
}

// searchFilter builds the Mongo filter of a listing search.
func searchFilter(p domain.ListingSearchParams) bson.M {
	filter := bson.M{}
	if q := searchText(p); q != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(q), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"title": pattern},
			bson.M{"description": pattern},
		}
	}
	if c := searchCondition(p); c != "" {
		filter["condition"] = c
	}
	price := bson.M{}
	if p.MinPrice != nil {
		price["$gte"] = *p.MinPrice
	}
	if p.MaxPrice != nil {
		price["$lte"] = *p.MaxPrice
	}
	if len(price) > 0 {
		filter["price"] = price
	}
	return filter
}

var newestFirst = options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})

func (s *MongoStore) find(ctx context.Context, filter bson.M) ([]domain.Listing, error) {
	cursor, err := s.listings.Find(ctx, filter, newestFirst)
	if err != nil {
		return nil, err
	}
	var docs []listingDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.Listing, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, nil
}

func (s *MongoStore) Search(ctx context.Context, p domain.ListingSearchParams) ([]domain.Listing, error) {
	return s.find(ctx, searchFilter(p))
}

func (s *MongoStore) ListingsOf(ctx context.Context, userID string) ([]domain.Listing, error) {
	return s.find(ctx, bson.M{"user_id": userID})
}

func (s *MongoStore) DeleteListing(ctx context.Context, userID, listingID string) error {
	doc, err := s.findListing(ctx, listingID)
	if err != nil {
		return err
	}
	if doc.UserID != userID {
		return ErrForbidden
	}
	res, err := s.listings.DeleteOne(ctx, bson.M{"_id": doc.ID, "user_id": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrListingNotFound
	}
	return nil
}
