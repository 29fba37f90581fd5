package patient

import (
	"context"
	"fmt"

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
	return r.db.Collection("patients")
}

func (r *repoMongo) Create(ctx context.Context, p *Patient) error {
	if p.PatientID == "" {
		p.PatientID = NewID()
	}
	_, err := r.coll().InsertOne(ctx, p)
	if err != nil {
		if mongodb.IsDuplicateKey(err) {
			return fault.Validation(tableName, p.PatientID, fmt.Sprintf("duplicate patient_id=%s", p.PatientID))
		}
		return err
	}
	return nil
}

func (r *repoMongo) GetByID(ctx context.Context, id string) (*Patient, error) {
	var p Patient
	err := r.coll().FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err != nil {
		if mongodb.IsNoDocuments(err) {
			return nil, fault.NotFound(tableName, id)
		}
		return nil, err
	}
	return &p, nil
}

func (r *repoMongo) List(ctx context.Context, f Filter, limit, offset int) ([]*Patient, int, error) {
	filter := bson.M{}
	if f.Service != "" {
		filter["service"] = f.Service
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

	var items []*Patient
	if err := cur.All(ctx, &items); err != nil {
		return nil, 0, err
	}
	return items, int(total), nil
}

func (r *repoMongo) Update(ctx context.Context, p *Patient) error {
	res, err := r.coll().UpdateOne(ctx, bson.M{"_id": p.PatientID}, bson.M{"$set": bson.M{
		"name":           p.Name,
		"age":            p.Age,
		"arrival_date":   p.ArrivalDate,
		"departure_date": p.DepartureDate,
		"service":        p.Service,
		"satisfaction":   p.Satisfaction,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fault.NotFound(tableName, p.PatientID)
	}
	return nil
}

func (r *repoMongo) Delete(ctx context.Context, id string) (*Patient, error) {
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
	return old, nil
}
