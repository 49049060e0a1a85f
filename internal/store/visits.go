package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	apperrors "github.com/harentsoaR/clinic-api/internal/errors"
	"github.com/harentsoaR/clinic-api/internal/models"
	"github.com/harentsoaR/clinic-api/internal/services"
)

type VisitStore struct {
	visits   *mongo.Collection
	counters *mongo.Collection
}

var _ services.VisitRepository = (*VisitStore)(nil)

// isSlotConflict reports whether err is a duplicate key on the active slot
// index. Duplicates on any other index are not booking conflicts.
func isSlotConflict(err error) bool {
	var se mongo.ServerError
	return errors.As(err, &se) && se.HasErrorCodeWithMessage(duplicateKeyCode, slotIndexName)
}

func NewVisitStore(db *mongo.Database) *VisitStore {
	return &VisitStore{
		visits:   db.Collection(visitsCollection),
		counters: db.Collection(countersCollection),
	}
}

// NextSequence increments the visit counter in a single round trip, so
// concurrent bookings never share a number.
func (s *VisitStore) NextSequence(ctx context.Context) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": visitCounterID},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("increment visit counter: %w", err)
	}
	return counter.Seq, nil
}

func (s *VisitStore) Insert(ctx context.Context, v *models.Visit) error {
	if _, err := s.visits.InsertOne(ctx, v); err != nil {
		if isSlotConflict(err) {
			return apperrors.ErrSlotConflict
		}
		return fmt.Errorf("insert visit %s: %w", v.ID, err)
	}
	return nil
}

func (s *VisitStore) FindOne(ctx context.Context, q services.VisitQuery) (*models.Visit, error) {
	opts := options.FindOne()
	if sort := visitSort(q); sort != nil {
		opts.SetSort(sort)
	}

	var visit models.Visit
	err := s.visits.FindOne(ctx, visitFilter(q), opts).Decode(&visit)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &visit, nil
}

func (s *VisitStore) Find(ctx context.Context, q services.VisitQuery) ([]models.Visit, error) {
	findOptions := options.Find()
	if sort := visitSort(q); sort != nil {
		findOptions.SetSort(sort)
	}
	if q.Limit > 0 {
		findOptions.SetLimit(q.Limit)
	}

	cursor, err := s.visits.Find(ctx, visitFilter(q), findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var visits []models.Visit
	if err := cursor.All(ctx, &visits); err != nil {
		return nil, err
	}
	if visits == nil {
		visits = []models.Visit{}
	}
	return visits, nil
}

func (s *VisitStore) Save(ctx context.Context, v *models.Visit) error {
	res, err := s.visits.ReplaceOne(ctx, bson.M{"_id": v.ID}, v)
	if err != nil {
		if isSlotConflict(err) {
			return apperrors.ErrSlotConflict
		}
		return fmt.Errorf("save visit %s: %w", v.ID, err)
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (s *VisitStore) SetPaymentStatus(ctx context.Context, id, status string) (*models.Visit, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var visit models.Visit
	err := s.visits.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"paymentStatus": status}, "$currentDate": bson.M{"updatedAt": true}},
		opts,
	).Decode(&visit)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &visit, nil
}

func visitFilter(q services.VisitQuery) bson.M {
	filter := bson.M{}
	if q.ID != "" {
		filter["_id"] = q.ID
	}
	if len(q.Patients) > 0 {
		filter["patient"] = bson.M{"$in": q.Patients}
	}
	if len(q.Doctors) > 0 {
		filter["doctor"] = bson.M{"$in": q.Doctors}
	}
	if len(q.Statuses) > 0 {
		filter["status"] = bson.M{"$in": q.Statuses}
	}
	if q.PaymentStatus != "" {
		filter["paymentStatus"] = equalFold(q.PaymentStatus)
	}

	switch {
	case q.ScheduledAt != nil:
		filter["scheduledDate"] = *q.ScheduledAt
	case q.ScheduledFrom != nil || q.ScheduledTo != nil:
		bounds := bson.M{}
		if q.ScheduledFrom != nil {
			bounds["$gte"] = *q.ScheduledFrom
		}
		if q.ScheduledTo != nil {
			bounds["$lte"] = *q.ScheduledTo
		}
		filter["scheduledDate"] = bounds
	}
	return filter
}

func visitSort(q services.VisitQuery) bson.D {
	if q.SortBy == "" {
		return nil
	}
	dir := 1
	if q.Descending {
		dir = -1
	}
	return bson.D{{Key: q.SortBy, Value: dir}, {Key: "_id", Value: dir}}
}
