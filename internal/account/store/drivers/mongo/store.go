package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/pharmacy/internal/account/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	usersCollection          = "users"
	pendingSignupsCollection = "pending_signups"

	usernameIndex = "users_username_key"
	emailIndex    = "users_email_key"
)

// Store is the document-database driver. It is the production default and
// reads the same "users" collection layout the desktop app has always used.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewStore connects to uri and selects database.
func NewStore(ctx context.Context, uri, database string) (*Store, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}

	return &Store{client: client, db: client.Database(database)}, nil
}

func (s *Store) Close(ctx context.Context) error { return s.client.Disconnect(ctx) }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Users() store.Users {
	return &usersRepo{c: s.db.Collection(usersCollection)}
}

func (s *Store) PendingSignups() store.PendingSignups {
	return &pendingSignupsRepo{c: s.db.Collection(pendingSignupsCollection)}
}

// EnsureSchema creates the indexes the store relies on. Creating an index
// that already exists with the same definition is a no-op.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Collection(usersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetName(usernameIndex).SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName(emailIndex).SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "otp_expiry", Value: 1}},
			Options: options.Index().SetName("users_otp_expiry_idx").SetSparse(true),
		},
	})
	if err != nil {
		return fmt.Errorf("mongo: create user indexes: %w", err)
	}

	// The TTL index lets the server reap abandoned registrations on its own;
	// housekeeping covers the window before the TTL monitor runs.
	_, err = s.db.Collection(pendingSignupsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "otp_expiry", Value: 1}},
		Options: options.Index().SetName("pending_signups_ttl").SetExpireAfterSeconds(0),
	})
	if err != nil {
		return fmt.Errorf("mongo: create pending signup indexes: %w", err)
	}

	return nil
}

func mapNotFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	return err
}

// mapDuplicate turns a duplicate-key write error into *store.DuplicateError
// naming the field whose unique index was violated.
func mapDuplicate(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return err
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, usernameIndex):
		return &store.DuplicateError{Field: "username"}
	case strings.Contains(msg, emailIndex):
		return &store.DuplicateError{Field: "email"}
	default:
		return store.ErrAlreadyExists
	}
}

// requireMatched returns ErrNotFound when an update matched no document.
func requireMatched(res *mongo.UpdateResult, err error) error {
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
