package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/leadflow/leadflow/internal/core/query"
	"github.com/leadflow/leadflow/internal/core/storage/types"
	"github.com/leadflow/leadflow/pkg/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// leadDoc is the stored shape of a lead.
type leadDoc struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	FirstName      string             `bson:"first_name"`
	LastName       string             `bson:"last_name"`
	Email          string             `bson:"email"`
	Phone          string             `bson:"phone"`
	Company        string             `bson:"company"`
	City           string             `bson:"city"`
	State          string             `bson:"state"`
	Source         string             `bson:"source"`
	Status         string             `bson:"status"`
	Score          int                `bson:"score"`
	LeadValue      float64            `bson:"lead_value"`
	LastActivityAt *time.Time         `bson:"last_activity_at"`
	IsQualified    bool               `bson:"is_qualified"`
	CreatedAt      time.Time          `bson:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at"`
}

func toLeadDoc(l *model.Lead) (*leadDoc, error) {
	doc := &leadDoc{
		FirstName:      l.FirstName,
		LastName:       l.LastName,
		Email:          l.Email,
		Phone:          l.Phone,
		Company:        l.Company,
		City:           l.City,
		State:          l.State,
		Source:         string(l.Source),
		Status:         string(l.Status),
		Score:          l.Score,
		LeadValue:      l.LeadValue,
		LastActivityAt: l.LastActivityAt,
		IsQualified:    l.IsQualified,
		CreatedAt:      l.CreatedAt,
		UpdatedAt:      l.UpdatedAt,
	}
	if l.ID != "" {
		oid, err := primitive.ObjectIDFromHex(l.ID)
		if err != nil {
			return nil, model.ErrInvalidID
		}
		doc.ID = oid
	}
	return doc, nil
}

func (d *leadDoc) toModel() *model.Lead {
	l := &model.Lead{
		ID:          d.ID.Hex(),
		FirstName:   d.FirstName,
		LastName:    d.LastName,
		Email:       d.Email,
		Phone:       d.Phone,
		Company:     d.Company,
		City:        d.City,
		State:       d.State,
		Source:      model.Source(d.Source),
		Status:      model.Status(d.Status),
		Score:       d.Score,
		LeadValue:   d.LeadValue,
		IsQualified: d.IsQualified,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
	if d.LastActivityAt != nil {
		t := d.LastActivityAt.UTC()
		l.LastActivityAt = &t
	}
	return l
}

type leadStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewLeadStore(db *mongo.Database, collectionName string) types.LeadStore {
	if collectionName == "" {
		collectionName = "leads"
	}
	return &leadStore{
		coll: db.Collection(collectionName),
		now:  time.Now,
	}
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, model.ErrInvalidID
	}
	return oid, nil
}

func (s *leadStore) Count(ctx context.Context, filters model.FilterSet) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, query.Compile(filters))
	if err != nil {
		return 0, fmt.Errorf("count leads: %w", model.WrapError(err))
	}
	return n, nil
}

func (s *leadStore) Find(ctx context.Context, filters model.FilterSet, opts types.FindOptions) ([]*model.Lead, error) {
	findOpts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(opts.Skip)
	if opts.Limit > 0 {
		findOpts.SetLimit(opts.Limit)
	}

	cursor, err := s.coll.Find(ctx, query.Compile(filters), findOpts)
	if err != nil {
		return nil, fmt.Errorf("find leads: %w", model.WrapError(err))
	}
	defer cursor.Close(ctx)

	var docs []leadDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode leads: %w", model.WrapError(err))
	}

	leads := make([]*model.Lead, 0, len(docs))
	for i := range docs {
		leads = append(leads, docs[i].toModel())
	}
	return leads, nil
}

func (s *leadStore) Get(ctx context.Context, id string) (*model.Lead, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var doc leadDoc
	err = s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrNotFound
		}
		return nil, model.WrapError(err)
	}
	return doc.toModel(), nil
}

func (s *leadStore) ExistsByEmail(ctx context.Context, email string, excludeID string) (bool, error) {
	filter := bson.M{"email": email}
	if excludeID != "" {
		if oid, err := primitive.ObjectIDFromHex(excludeID); err == nil {
			filter["_id"] = bson.M{"$ne": oid}
		}
	}
	count, err := s.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, model.WrapError(err)
	}
	return count > 0, nil
}

func (s *leadStore) Create(ctx context.Context, lead *model.Lead) error {
	doc, err := toLeadDoc(lead)
	if err != nil {
		return err
	}
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return model.ErrDuplicateEmail
		}
		return model.WrapError(err)
	}
	lead.ID = doc.ID.Hex()
	return nil
}

func (s *leadStore) Update(ctx context.Context, id string, input model.LeadInput) (*model.Lead, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	set := bson.M{}
	for k, v := range input.Changes() {
		set[k] = v
	}
	set["updated_at"] = s.now()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc leadDoc
	err = s.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, model.ErrDuplicateEmail
		}
		return nil, model.WrapError(err)
	}
	return doc.toModel(), nil
}

func (s *leadStore) Delete(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return model.WrapError(err)
	}
	if res.DeletedCount == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (s *leadStore) InsertMany(ctx context.Context, leads []*model.Lead) error {
	if len(leads) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(leads))
	for _, l := range leads {
		doc, err := toLeadDoc(l)
		if err != nil {
			return err
		}
		if doc.ID.IsZero() {
			doc.ID = primitive.NewObjectID()
		}
		l.ID = doc.ID.Hex()
		docs = append(docs, doc)
	}
	_, err := s.coll.InsertMany(ctx, docs)
	if mongo.IsDuplicateKeyError(err) {
		return model.ErrDuplicateEmail
	}
	return model.WrapError(err)
}

func (s *leadStore) DeleteAll(ctx context.Context) error {
	_, err := s.coll.DeleteMany(ctx, bson.M{})
	return model.WrapError(err)
}

func (s *leadStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "source", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	return err
}

func (s *leadStore) Close(ctx context.Context) error {
	return nil
}
