package schedule

import (
	"context"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wardops/wardops/internal/platform/fault"
	"github.com/wardops/wardops/internal/platform/mongodb"
)

type repoMongo struct {
	db *mongo.Database
}

func NewRepoMongo(db *mongo.Database) Repo {
	return &repoMongo{db: db}
}

func (r *repoMongo) coll() *mongo.Collection {
	return r.db.Collection("staff_schedule")
}

func (r *repoMongo) Create(ctx context.Context, e *Entry) error {
	id, err := mongodb.NextID(ctx, r.db, "staff_schedule")
	if err != nil {
		return err
	}
	e.ID = id
	_, err = r.coll().InsertOne(ctx, e)
	return err
}

func (r *repoMongo) GetByID(ctx context.Context, id int64) (*Entry, error) {
	var e Entry
	err := r.coll().FindOne(ctx, bson.M{"_id": id}).Decode(&e)
	if err != nil {
		if mongodb.IsNoDocuments(err) {
			return nil, fault.NotFound(tableName, strconv.FormatInt(id, 10))
		}
		return nil, err
	}
	return &e, nil
}

func (r *repoMongo) List(ctx context.Context, f Filter, limit, offset int) ([]*Entry, int, error) {
	filter := bson.M{}
	if f.Service != "" {
		filter["service"] = f.Service
	}
	if f.DayOrShift != "" {
		filter["day_or_shift"] = f.DayOrShift
	}
	if f.StaffID != "" {
		filter["staff_id"] = f.StaffID
	}
	if f.OnShift != nil {
		filter["on_shift"] = *f.OnShift
	}

	total, err := r.coll().CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cur, err := r.coll().Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var items []*Entry
	if err := cur.All(ctx, &items); err != nil {
		return nil, 0, err
	}
	return items, int(total), nil
}

func (r *repoMongo) Update(ctx context.Context, e *Entry) error {
	res, err := r.coll().UpdateOne(ctx, bson.M{"_id": e.ID}, bson.M{"$set": bson.M{
		"day_or_shift": e.DayOrShift,
		"staff_id":     e.StaffID,
		"staff_name":   e.StaffName,
		"role":         e.Role,
		"service":      e.Service,
		"on_shift":     e.OnShift,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fault.NotFound(tableName, strconv.FormatInt(e.ID, 10))
	}
	return nil
}

func (r *repoMongo) Delete(ctx context.Context, id int64) (*Entry, error) {
	old, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	res, err := r.coll().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, err
	}
	if res.DeletedCount == 0 {
		return nil, fault.NotFound(tableName, strconv.FormatInt(id, 10))
	}
	return old, nil
}

func (r *repoMongo) CountOnShift(ctx context.Context, service, dayOrShift string) (int, error) {
	n, err := r.coll().CountDocuments(ctx, bson.M{
		"service":      service,
		"day_or_shift": dayOrShift,
		"on_shift":     true,
	})
	return int(n), err
}
