package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// document is the BSON shape of a notification. MongoDB keeps dates with
// millisecond precision.
type document struct {
	ID               string    `bson:"_id"`
	TriggerType      string    `bson:"trigger_type"`
	TriggerID        string    `bson:"trigger_id"`
	RecipientID      string    `bson:"recipient_id"`
	SenderID         string    `bson:"sender_id,omitempty"`
	Unread           bool      `bson:"unread"`
	LinkCache        *string   `bson:"link_cache"`
	DescriptionCache *string   `bson:"description_cache"`
	UseDefaultEmail  bool      `bson:"use_default_email"`
	CreatedAt        time.Time `bson:"created_at"`
}

func toDocument(n notifications.Notification) document {
	return document{
		ID:               n.ID,
		TriggerType:      n.Trigger.Type,
		TriggerID:        n.Trigger.ID,
		RecipientID:      n.RecipientID,
		SenderID:         n.SenderID,
		Unread:           n.Unread,
		LinkCache:        n.LinkCache,
		DescriptionCache: n.DescriptionCache,
		UseDefaultEmail:  n.UseDefaultEmail,
		CreatedAt:        n.CreatedAt,
	}
}

func (d document) toNotification() notifications.Notification {
	return notifications.Notification{
		ID:               d.ID,
		Trigger:          notifications.TriggerRef{Type: d.TriggerType, ID: d.TriggerID},
		RecipientID:      d.RecipientID,
		SenderID:         d.SenderID,
		Unread:           d.Unread,
		LinkCache:        d.LinkCache,
		DescriptionCache: d.DescriptionCache,
		UseDefaultEmail:  d.UseDefaultEmail,
		CreatedAt:        d.CreatedAt.UTC(),
	}
}

// Storage is a MongoDB implementation of notifications.Storage.
type Storage struct {
	coll *mongo.Collection
}

// NewStorage wraps a collection. Call EnsureIndexes once at startup.
func NewStorage(coll *mongo.Collection) *Storage {
	return &Storage{coll: coll}
}

// EnsureIndexes creates the indexes used by List, CountUnread and MarkAllRead.
func (s *Storage) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "recipient_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "recipient_id", Value: 1}, {Key: "unread", Value: 1}}},
		{Keys: bson.D{{Key: "trigger_type", Value: 1}, {Key: "trigger_id", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create notification indexes: %w", err)
	}
	return nil
}

func (s *Storage) Create(ctx context.Context, notif notifications.Notification) error {
	if notif.CreatedAt.IsZero() {
		notif.CreatedAt = time.Now().UTC()
	}
	if _, err := s.coll.InsertOne(ctx, toDocument(notif)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.Join(ErrDuplicateNotification, err)
		}
		return fmt.Errorf("failed to insert notification %s: %w", notif.ID, err)
	}
	return nil
}

func (s *Storage) Get(ctx context.Context, notifID string) (*notifications.Notification, error) {
	var doc document
	if err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: notifID}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notifications.ErrNotificationNotFound
		}
		return nil, fmt.Errorf("failed to get notification %s: %w", notifID, err)
	}
	n := doc.toNotification()
	return &n, nil
}

func (s *Storage) List(ctx context.Context, recipientID string, opts notifications.ListOptions) ([]notifications.Notification, error) {
	cur, err := s.coll.Find(ctx, listFilter(recipientID, opts), findOptions(opts))
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer cur.Close(ctx)

	var docs []document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode notifications: %w", err)
	}

	result := make([]notifications.Notification, 0, len(docs))
	for _, d := range docs {
		result = append(result, d.toNotification())
	}
	return result, nil
}

func (s *Storage) SetCache(ctx context.Context, notifID string, field notifications.CacheField, value string) (string, error) {
	if !field.Valid() {
		return "", fmt.Errorf("invalid cache field %q", field)
	}

	var doc document
	err := s.coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: notifID}},
		setCacheUpdate(field, value),
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", notifications.ErrNotificationNotFound
		}
		return "", fmt.Errorf("failed to set %s for notification %s: %w", field, notifID, err)
	}

	stored := doc.LinkCache
	if field == notifications.CacheDescription {
		stored = doc.DescriptionCache
	}
	if stored == nil {
		return value, nil
	}
	return *stored, nil
}

func (s *Storage) MarkRead(ctx context.Context, notifID string) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: notifID}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "unread", Value: false}}}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification %s as read: %w", notifID, err)
	}
	if res.MatchedCount == 0 {
		return notifications.ErrNotificationNotFound
	}
	return nil
}

func (s *Storage) MarkAllRead(ctx context.Context, recipientID string, trigger *notifications.TriggerRef) (int64, error) {
	res, err := s.coll.UpdateMany(ctx,
		markAllFilter(recipientID, trigger),
		bson.D{{Key: "$set", Value: bson.D{{Key: "unread", Value: false}}}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications as read: %w", err)
	}
	return res.ModifiedCount, nil
}

func (s *Storage) CountUnread(ctx context.Context, recipientID string) (int, error) {
	count, err := s.coll.CountDocuments(ctx, bson.D{
		{Key: "recipient_id", Value: recipientID},
		{Key: "unread", Value: true},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return int(count), nil
}

func listFilter(recipientID string, opts notifications.ListOptions) bson.D {
	filter := bson.D{{Key: "recipient_id", Value: recipientID}}
	if opts.OnlyUnread {
		filter = append(filter, bson.E{Key: "unread", Value: true})
	}
	if opts.TriggerType != "" {
		filter = append(filter, bson.E{Key: "trigger_type", Value: opts.TriggerType})
	}
	if opts.Since != nil {
		filter = append(filter, bson.E{Key: "created_at", Value: bson.D{{Key: "$gte", Value: *opts.Since}}})
	}
	return filter
}

func findOptions(opts notifications.ListOptions) *options.FindOptionsBuilder {
	fo := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	if opts.Offset > 0 {
		fo.SetSkip(int64(opts.Offset))
	}
	if opts.Limit > 0 {
		fo.SetLimit(int64(opts.Limit))
	}
	return fo
}

func markAllFilter(recipientID string, trigger *notifications.TriggerRef) bson.D {
	filter := bson.D{
		{Key: "recipient_id", Value: recipientID},
		{Key: "unread", Value: true},
	}
	if trigger != nil {
		filter = append(filter,
			bson.E{Key: "trigger_type", Value: trigger.Type},
			bson.E{Key: "trigger_id", Value: trigger.ID},
		)
	}
	return filter
}

// setCacheUpdate is an update pipeline that keeps an existing cache value
// and only fills the field when it is missing or null.
func setCacheUpdate(field notifications.CacheField, value string) mongo.Pipeline {
	name := string(field)
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: name, Value: bson.D{{Key: "$ifNull", Value: bson.A{"$" + name, value}}}},
		}}},
	}
}
