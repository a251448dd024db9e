package mongo

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/leadflow/leadflow/internal/core/storage/types"
	"github.com/zeebo/blake3"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type userStore struct {
	coll *mongo.Collection
}

func NewUserStore(db *mongo.Database, collectionName string) types.UserStore {
	if collectionName == "" {
		collectionName = "users"
	}
	return &userStore{
		coll: db.Collection(collectionName),
	}
}

// UserID derives the stable user id from a normalized email.
func UserID(email string) string {
	hash := blake3.Sum256([]byte(email))
	return hex.EncodeToString(hash[:16])
}

func (s *userStore) CreateUser(ctx context.Context, user *types.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	count, err := s.coll.CountDocuments(ctx, bson.M{"email": user.Email})
	if err != nil {
		return err
	}
	if count > 0 {
		return types.ErrUserExists
	}

	if user.ID == "" {
		user.ID = UserID(user.Email)
	}

	_, err = s.coll.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return types.ErrUserExists
	}
	return err
}

func (s *userStore) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *userStore) GetUserByID(ctx context.Context, id string) (*types.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *userStore) findOne(ctx context.Context, filter bson.M) (*types.User, error) {
	var user types.User
	err := s.coll.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, types.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *userStore) UpdateUserLoginStats(ctx context.Context, id string, lastLogin time.Time, attempts int, lockoutUntil time.Time) error {
	filter := bson.M{"_id": id}
	update := bson.M{
		"$set": bson.M{
			"last_login_at":  lastLogin,
			"login_attempts": attempts,
			"lockout_until":  lockoutUntil,
			"updated_at":     time.Now(),
		},
	}
	_, err := s.coll.UpdateOne(ctx, filter, update)
	return err
}

func (s *userStore) DeleteAll(ctx context.Context) error {
	_, err := s.coll.DeleteMany(ctx, bson.M{})
	return err
}

func (s *userStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (s *userStore) Close(ctx context.Context) error {
	return nil
}
