package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/coursehub/registration-api/internal/core/domain"
	"github.com/coursehub/registration-api/internal/core/ports"
)

const auditCollection = "registration_events"

// AuditRepository implements ports.AuditRepository using MongoDB.
type AuditRepository struct {
	coll *mongo.Collection
}

var _ ports.AuditRepository = (*AuditRepository)(nil)

func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{coll: db.Collection(auditCollection)}
}

// InsertEvent appends a committed ledger event to the registration_events collection.
func (r *AuditRepository) InsertEvent(ctx context.Context, event domain.LedgerEvent) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := bson.M{
		"kind":         string(event.Kind),
		"course_id":    event.CourseID,
		"registered":   event.Registered,
		"capacity":     event.Capacity,
		"version":      event.Version,
		"at":           event.At.UTC(),
		"processed_at": time.Now().UTC(),
	}
	if event.UserID != "" {
		doc["user_id"] = event.UserID
	}
	if event.RegistrationID != "" {
		doc["registration_id"] = event.RegistrationID
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert ledger event: %w", err)
	}
	return nil
}

// EnsureIndexes creates the per-course and per-user history indexes. Course
// history sorts by ledger version since events may be stored out of order.
func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "course_id", Value: 1}, {Key: "version", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "at", Value: -1}}},
	}
	_, err := r.coll.Indexes().CreateMany(ctx, indexes)
	return err
}
