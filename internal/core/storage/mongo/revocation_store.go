package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/leadflow/leadflow/internal/core/storage/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type revocationStore struct {
	coll *mongo.Collection
}

func NewRevocationStore(db *mongo.Database, collectionName string) types.TokenRevocationStore {
	if collectionName == "" {
		collectionName = "revocations"
	}
	return &revocationStore{
		coll: db.Collection(collectionName),
	}
}

func (s *revocationStore) RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error {
	doc := types.RevokedToken{
		JTI:       jti,
		ExpiresAt: expiresAt,
		RevokedAt: time.Now(),
	}
	_, err := s.coll.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return nil // Already revoked
	}
	return err
}

func (s *revocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var doc types.RevokedToken
	err := s.coll.FindOne(ctx, bson.M{"_id": jti}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *revocationStore) EnsureIndexes(ctx context.Context) error {
	// expired revocations are removed by the server
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	return err
}

func (s *revocationStore) Close(ctx context.Context) error {
	return nil
}
