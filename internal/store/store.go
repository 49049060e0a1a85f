package store

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/harentsoaR/clinic-api/internal/models"
)

const (
	usersCollection    = "users"
	visitsCollection   = "visits"
	countersCollection = "counters"

	visitCounterID = "visit"

	slotIndexName    = "doctor_active_slot"
	duplicateKeyCode = 11000
)

// Connect opens a client and checks the primary is reachable.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates the indexes the repositories rely on. It is idempotent.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(usersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("email_unique").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "role", Value: 1}},
			Options: options.Index().SetName("role"),
		},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}

	active := make(bson.A, 0, len(models.ActiveStatuses))
	for _, s := range models.ActiveStatuses {
		active = append(active, s)
	}
	_, err = db.Collection(visitsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			// One active booking per doctor and timestamp. $in in a partial
			// filter needs MongoDB 6.0 or newer.
			Keys: bson.D{{Key: "doctor", Value: 1}, {Key: "scheduledDate", Value: 1}},
			Options: options.Index().
				SetName(slotIndexName).
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": bson.M{"$in": active}}),
		},
		{
			Keys:    bson.D{{Key: "patient", Value: 1}, {Key: "scheduledDate", Value: -1}},
			Options: options.Index().SetName("patient_scheduled"),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("created"),
		},
	})
	if err != nil {
		return fmt.Errorf("create visit indexes: %w", err)
	}
	return nil
}

// contains builds a case-insensitive substring match for untrusted input.
func contains(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

// equalFold builds a case-insensitive exact match for untrusted input.
func equalFold(s string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(s) + "$", Options: "i"}
}
