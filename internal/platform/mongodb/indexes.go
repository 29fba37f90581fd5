package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the document backend relies on. The
// unique (week, month, service) index mirrors the relational constraint and
// is the race backstop when two writers pass the duplicate pre-check
// concurrently. Creation is idempotent, so serve startup calls this every
// time.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	weekly := database.Collection("services_weekly")
	if _, err := weekly.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "week", Value: 1},
			{Key: "month", Value: 1},
			{Key: "service", Value: 1},
		},
		Options: options.Index().SetUnique(true).SetName("uniq_week_month_service"),
	}); err != nil {
		return fmt.Errorf("ensure services_weekly unique index: %w", err)
	}

	schedule := database.Collection("staff_schedule")
	if _, err := schedule.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "service", Value: 1},
			{Key: "day_or_shift", Value: 1},
			{Key: "on_shift", Value: 1},
		},
		Options: options.Index().SetName("idx_schedule_availability"),
	}); err != nil {
		return fmt.Errorf("ensure staff_schedule availability index: %w", err)
	}

	audit := database.Collection("audit_log")
	if _, err := audit.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "table_name", Value: 1},
			{Key: "row_pk", Value: 1},
		},
		Options: options.Index().SetName("idx_audit_table_row"),
	}); err != nil {
		return fmt.Errorf("ensure audit_log lookup index: %w", err)
	}

	return nil
}
