package auditlog

import (
	"context"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wardops/wardops/internal/platform/fault"
	"github.com/wardops/wardops/internal/platform/mongodb"
)

type repoMongo struct{ db *mongo.Database }

func NewRepoMongo(db *mongo.Database) Repo {
	return &repoMongo{db: db}
}

func (r *repoMongo) coll() *mongo.Collection {
	return r.db.Collection("audit_log")
}

func (r *repoMongo) Append(ctx context.Context, e *Entry) error {
	id, err := mongodb.NextID(ctx, r.db, "audit_log")
	if err != nil {
		return err
	}
	e.ID = id
	e.ChangedAt = time.Now().UTC()
	_, err = r.coll().InsertOne(ctx, e)
	return err
}

func (r *repoMongo) GetByID(ctx context.Context, id int64) (*Entry, error) {
	var e Entry
	err := r.coll().FindOne(ctx, bson.M{"_id": id}).Decode(&e)
	if err != nil {
		if mongodb.IsNoDocuments(err) {
			return nil, fault.NotFound("audit_log", strconv.FormatInt(id, 10))
		}
		return nil, err
	}
	return &e, nil
}

func (r *repoMongo) List(ctx context.Context, f Filter, limit, offset int) ([]*Entry, int, error) {
	filter := bson.M{}
	if f.Table != "" {
		filter["table_name"] = f.Table
	}
	if f.RowPK != "" {
		filter["row_pk"] = f.RowPK
	}
	if f.Operation != "" {
		filter["operation"] = f.Operation
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
