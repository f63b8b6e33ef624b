// Package mongo keeps the order audit trail in a MongoDB collection.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Zhima-Mochi/marketplace/app/internal/domain/audit"
)

type Client struct {
	client   *mongo.Client
	database *mongo.Database
}

func Connect(ctx context.Context, uri, database string) (*Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}
	return &Client{client: client, database: client.Database(database)}, nil
}

func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

type auditDocument struct {
	ID           string    `bson:"_id"`
	OrderID      string    `bson:"order_id"`
	Action       string    `bson:"action"`
	From         string    `bson:"from,omitempty"`
	To           string    `bson:"to,omitempty"`
	ActorScope   string    `bson:"actor_scope,omitempty"`
	ActorStoreID string    `bson:"actor_store_id,omitempty"`
	ActorUserID  string    `bson:"actor_user_id,omitempty"`
	Detail       string    `bson:"detail,omitempty"`
	CreatedAt    time.Time `bson:"created_at"`
}

type AuditTrail struct {
	collection *mongo.Collection
}

func NewAuditTrail(c *Client, collection string) *AuditTrail {
	return &AuditTrail{collection: c.database.Collection(collection)}
}

// EnsureIndexes creates the (order_id, created_at) index used by ListByOrder.
func (t *AuditTrail) EnsureIndexes(ctx context.Context) error {
	_, err := t.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "order_id", Value: 1}, {Key: "created_at", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("audit trail: ensure indexes: %w", err)
	}
	return nil
}

func (t *AuditTrail) Record(ctx context.Context, e audit.Entry) error {
	at := e.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := t.collection.InsertOne(ctx, auditDocument{
		ID:           e.ID,
		OrderID:      e.OrderID,
		Action:       string(e.Action),
		From:         e.From,
		To:           e.To,
		ActorScope:   e.ActorScope,
		ActorStoreID: e.ActorStoreID,
		ActorUserID:  e.ActorUserID,
		Detail:       e.Detail,
		CreatedAt:    at,
	})
	if err != nil {
		return fmt.Errorf("audit trail: insert: %w", err)
	}
	return nil
}

func (t *AuditTrail) ListByOrder(ctx context.Context, orderID string) ([]audit.Entry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := t.collection.Find(ctx, bson.M{"order_id": orderID}, opts)
	if err != nil {
		return nil, fmt.Errorf("audit trail: find: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []auditDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("audit trail: decode: %w", err)
	}
	out := make([]audit.Entry, 0, len(docs))
	for _, d := range docs {
		out = append(out, audit.Entry{
			ID:           d.ID,
			OrderID:      d.OrderID,
			Action:       audit.Action(d.Action),
			From:         d.From,
			To:           d.To,
			ActorScope:   d.ActorScope,
			ActorStoreID: d.ActorStoreID,
			ActorUserID:  d.ActorUserID,
			Detail:       d.Detail,
			At:           d.CreatedAt,
		})
	}
	return out, nil
}
