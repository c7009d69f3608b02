package mongo

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/partpulse/partpulse/internal/core/domain"
	"github.com/partpulse/partpulse/internal/core/ports"
)

const collectionSystemLogs = "system_logs"

// systemLogDoc is the stored shape of an audit row.
type systemLogDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	EventType    string             `bson:"event_type"`
	Action       string             `bson:"action"`
	UserID       string             `bson:"user_id,omitempty"`
	UserName     string             `bson:"user_name,omitempty"`
	Details      bson.M             `bson:"details,omitempty"`
	IPAddress    string             `bson:"ip_address,omitempty"`
	UserAgent    string             `bson:"user_agent,omitempty"`
	Success      bool               `bson:"success"`
	ErrorMessage string             `bson:"error_message,omitempty"`
	Timestamp    time.Time          `bson:"timestamp"`
}

// SystemLogRepository implements ports.SystemLogRepository on a MongoDB
// collection. It is selected with SYSTEM_LOG_STORE=mongo.
type SystemLogRepository struct {
	col *mongo.Collection
}

func NewSystemLogRepository(db *mongo.Database) *SystemLogRepository {
	return &SystemLogRepository{col: db.Collection(collectionSystemLogs)}
}

func (r *SystemLogRepository) Insert(ctx context.Context, e *domain.SystemLog) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := systemLogDoc{
		EventType:    string(e.EventType),
		Action:       e.Action,
		UserID:       e.UserID,
		UserName:     e.UserName,
		Details:      bson.M(e.Details),
		IPAddress:    e.IPAddress,
		UserAgent:    e.UserAgent,
		Success:      e.Success,
		ErrorMessage: e.ErrorMessage,
		Timestamp:    e.Timestamp.UTC(),
	}
	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("insert system log: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		e.ID = oid.Hex()
	}
	return nil
}

func systemLogFilter(f ports.SystemLogFilter) bson.M {
	filter := bson.M{}
	if f.EventType != "" {
		filter["event_type"] = string(f.EventType)
	}
	if f.UserID != "" {
		filter["user_id"] = f.UserID
	}

	var action []bson.M
	if f.Action != "" {
		action = append(action, bson.M{"action": f.Action})
	}
	if f.ActionPrefix != "" {
		action = append(action, bson.M{"action": bson.M{"$regex": "^" + regexp.QuoteMeta(f.ActionPrefix)}})
	}
	if f.ActionSuffix != "" {
		action = append(action, bson.M{"action": bson.M{"$regex": regexp.QuoteMeta(f.ActionSuffix) + "$"}})
	}
	if f.ActionContains != "" {
		action = append(action, bson.M{"action": bson.M{"$regex": regexp.QuoteMeta(f.ActionContains)}})
	}
	if len(action) > 0 {
		filter["$and"] = action
	}

	if f.Success != nil {
		filter["success"] = *f.Success
	}
	if !f.Since.IsZero() {
		filter["timestamp"] = bson.M{"$gte": f.Since.UTC()}
	}
	return filter
}

func (r *SystemLogRepository) Count(ctx context.Context, f ports.SystemLogFilter) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, systemLogFilter(f))
	if err != nil {
		return 0, fmt.Errorf("count system logs: %w", err)
	}
	return n, nil
}

func (r *SystemLogRepository) Query(ctx context.Context, f ports.SystemLogFilter) ([]*domain.SystemLog, int64, error) {
	total, err := r.Count(ctx, f)
	if err != nil {
		return nil, 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	if f.Offset > 0 {
		opts.SetSkip(int64(f.Offset))
	}

	cur, err := r.col.Find(ctx, systemLogFilter(f), opts)
	if err != nil {
		return nil, 0, fmt.Errorf("query system logs: %w", err)
	}
	defer cur.Close(ctx)

	out := make([]*domain.SystemLog, 0)
	for cur.Next(ctx) {
		var doc systemLogDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, 0, fmt.Errorf("decode system log: %w", err)
		}
		out = append(out, &domain.SystemLog{
			ID:           doc.ID.Hex(),
			EventType:    domain.EventType(doc.EventType),
			Action:       doc.Action,
			UserID:       doc.UserID,
			UserName:     doc.UserName,
			Details:      map[string]any(doc.Details),
			IPAddress:    doc.IPAddress,
			UserAgent:    doc.UserAgent,
			Success:      doc.Success,
			ErrorMessage: doc.ErrorMessage,
			Timestamp:    doc.Timestamp,
		})
	}
	return out, total, cur.Err()
}

// EnsureIndexes creates the indexes used by the admin log views.
func (r *SystemLogRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "event_type", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: -1}}},
	}
	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
