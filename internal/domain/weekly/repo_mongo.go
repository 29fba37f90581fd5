package weekly

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
	return r.db.Collection("services_weekly")
}

func (r *repoMongo) Create(ctx context.Context, rep *Report) error {
	id, err := mongodb.NextID(ctx, r.db, "services_weekly")
	if err != nil {
		return err
	}
	rep.ID = id
	_, err = r.coll().InsertOne(ctx, rep)
	if err != nil {
		if mongodb.IsDuplicateKey(err) {
			return fault.Validation(tableName, "", duplicateTuple(rep))
		}
		return err
	}
	return nil
}

func (r *repoMongo) GetByID(ctx context.Context, id int64) (*Report, error) {
	var rep Report
	err := r.coll().FindOne(ctx, bson.M{"_id": id}).Decode(&rep)
	if err != nil {
		if mongodb.IsNoDocuments(err) {
			return nil, fault.NotFound(tableName, strconv.FormatInt(id, 10))
		}
		return nil, err
	}
	return &rep, nil
}

func (r *repoMongo) List(ctx context.Context, f Filter, limit, offset int) ([]*Report, int, error) {
	filter := bson.M{}
	if f.Service != "" {
		filter["service"] = f.Service
	}
	if f.Week != nil {
		filter["week"] = *f.Week
	}
	if f.Month != nil {
		filter["month"] = *f.Month
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

	var items []*Report
	if err := cur.All(ctx, &items); err != nil {
		return nil, 0, err
	}
	return items, int(total), nil
}

func (r *repoMongo) Update(ctx context.Context, rep *Report) error {
	res, err := r.coll().UpdateOne(ctx, bson.M{"_id": rep.ID}, bson.M{"$set": bson.M{
		"week":                 rep.Week,
		"month":                rep.Month,
		"service":              rep.Service,
		"available_beds":       rep.AvailableBeds,
		"patients_request":     rep.PatientsRequest,
		"patients_admitted":    rep.PatientsAdmitted,
		"patients_refused":     rep.PatientsRefused,
		"patient_satisfaction": rep.PatientSatisfaction,
		"staff_morale":         rep.StaffMorale,
		"event":                rep.Event,
	}})
	if err != nil {
		if mongodb.IsDuplicateKey(err) {
			return fault.Validation(tableName, strconv.FormatInt(rep.ID, 10), duplicateTuple(rep))
		}
		return err
	}
	if res.MatchedCount == 0 {
		return fault.NotFound(tableName, strconv.FormatInt(rep.ID, 10))
	}
	return nil
}

func (r *repoMongo) Delete(ctx context.Context, id int64) (*Report, error) {
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

func (r *repoMongo) TupleExists(ctx context.Context, week, month int, service string, excludeID int64) (bool, error) {
	n, err := r.coll().CountDocuments(ctx, bson.M{
		"week":    week,
		"month":   month,
		"service": service,
		"_id":     bson.M{"$ne": excludeID},
	}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *repoMongo) Lookup(ctx context.Context, service string, week, month int) (*Report, error) {
	var rep Report
	err := r.coll().FindOne(ctx, bson.M{"service": service, "week": week, "month": month}).Decode(&rep)
	if err != nil {
		if mongodb.IsNoDocuments(err) {
			return nil, fault.NotFound(tableName, tupleKey(week, month, service))
		}
		return nil, err
	}
	return &rep, nil
}
