package staff

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wardops/wardops/internal/platform/fault"
	"github.com/wardops/wardops/internal/platform/mongodb"
)

const scheduleCollection = "staff_schedule"

type repoMongo struct {
	db       *mongo.Database
	observer UpdateObserver
}

func NewRepoMongo(db *mongo.Database) Repo {
	return &repoMongo{db: db}
}

func (r *repoMongo) SetUpdateObserver(obs UpdateObserver) { r.observer = obs }

func (r *repoMongo) coll() *mongo.Collection {
	return r.db.Collection("staff")
}

func (r *repoMongo) Create(ctx context.Context, s *Staff) error {
	if s.StaffID == "" {
		s.StaffID = NewID()
	}
	_, err := r.coll().InsertOne(ctx, s)
	if err != nil {
		if mongodb.IsDuplicateKey(err) {
			return fault.Validation(tableName, s.StaffID, fmt.Sprintf("duplicate staff_id=%s", s.StaffID))
		}
		return err
	}
	return nil
}

func (r *repoMongo) GetByID(ctx context.Context, id string) (*Staff, error) {
	var s Staff
	err := r.coll().FindOne(ctx, bson.M{"_id": id}).Decode(&s)
	if err != nil {
		if mongodb.IsNoDocuments(err) {
			return nil, fault.NotFound(tableName, id)
		}
		return nil, err
	}
	return &s, nil
}

func (r *repoMongo) Exists(ctx context.Context, id string) (bool, error) {
	n, err := r.coll().CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *repoMongo) List(ctx context.Context, f Filter, limit, offset int) ([]*Staff, int, error) {
	filter := bson.M{}
	if f.Service != "" {
		filter["service"] = f.Service
	}
	if f.Role != "" {
		filter["role"] = f.Role
	}

	total, err := r.coll().CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cur, err := r.coll().Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var items []*Staff
	if err := cur.All(ctx, &items); err != nil {
		return nil, 0, err
	}
	return items, int(total), nil
}

// Update applies the new values and fires the update observer after the
// durable write. Without multi-document transactions an observer failure
// surfaces as audit_write_failed: the staff row IS updated.
func (r *repoMongo) Update(ctx context.Context, s *Staff) error {
	old, err := r.GetByID(ctx, s.StaffID)
	if err != nil {
		return err
	}

	res, err := r.coll().UpdateOne(ctx, bson.M{"_id": s.StaffID}, bson.M{"$set": bson.M{
		"staff_name": s.StaffName,
		"role":       s.Role,
		"service":    s.Service,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fault.NotFound(tableName, s.StaffID)
	}

	if r.observer != nil {
		if err := r.observer.StaffUpdated(ctx, old, s); err != nil {
			return fault.AuditWrite(tableName, s.StaffID, err)
		}
	}
	return nil
}

// Delete removes the document, returns its last snapshot and nulls
// staff_id on referencing schedule rows. The store has no foreign keys,
// so the nulling mirrors the relational ON DELETE SET NULL action; the
// touched schedule rows are not audited.
func (r *repoMongo) Delete(ctx context.Context, id string) (*Staff, error) {
	old, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	res, err := r.coll().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, err
	}
	if res.DeletedCount == 0 {
		return nil, fault.NotFound(tableName, id)
	}

	_, err = r.db.Collection(scheduleCollection).UpdateMany(ctx,
		bson.M{"staff_id": id},
		bson.M{"$set": bson.M{"staff_id": nil}})
	if err != nil {
		return nil, err
	}
	return old, nil
}
