package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// countersCollection holds one document per sequence:
// {_id: <collection name>, seq: <last issued id>}.
const countersCollection = "counters"

// NextID returns the next integer id for the named sequence, creating the
// counter document on first use. Ids start at 1 and never repeat, so rows
// keep integer primary keys identical to the relational schema.
func NextID(ctx context.Context, database *mongo.Database, name string) (int64, error) {
	res := database.Collection(countersCollection).FindOneAndUpdate(
		ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	)

	var doc struct {
		Seq int64 `bson:"seq"`
	}
	if err := res.Decode(&doc); err != nil {
		return 0, fmt.Errorf("next id for %s: %w", name, err)
	}
	return doc.Seq, nil
}
