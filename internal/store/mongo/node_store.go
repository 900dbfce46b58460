// Package mongo implements the document-shaped NodeStore (C2) against
// MongoDB's message_node collection, grounded in original_source's
// backend/database/mongodb_connection.py (pymongo + bson.ObjectId) and in
// the pack's goadesign-goa-ai Mongo client adapter
// (features/run/mongo/clients/mongo/client.go), adapted to
// go.mongodb.org/mongo-driver/v2.
package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"dagchat/internal/store"
)

const collectionName = "message_node"

// NodeStore implements store.NodeStore against MongoDB.
type NodeStore struct {
	coll *mongo.Collection
}

// NewNodeStore wraps an already-connected database handle.
func NewNodeStore(db *mongo.Database) *NodeStore {
	return &NodeStore{coll: db.Collection(collectionName)}
}

// Connect dials uri and returns a *mongo.Client, mirroring the teacher-pack's
// withTimeout connection helper.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return mongo.Connect(options.Client().ApplyURI(uri))
}

func (s *NodeStore) Init(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "create_time", Value: 1}},
	})
	return err
}

type wireNode struct {
	ID             bson.ObjectID `bson:"_id,omitempty"`
	ConversationID string        `bson:"conversation_id"`
	Role           string        `bson:"role"`
	Content        string        `bson:"content"`
	Reasoning      string        `bson:"reasoning,omitempty"`
	Model          string        `bson:"model,omitempty"`
	ParentIDs      []string      `bson:"parent_ids,omitempty"`
	Children       []string      `bson:"children,omitempty"`
	CreateTime     time.Time     `bson:"create_time"`
	UpdateTime     time.Time     `bson:"update_time"`
}

func toWire(n store.MessageNode) (wireNode, error) {
	w := wireNode{
		ConversationID: n.ConversationID,
		Role:           n.Role,
		Content:        n.Content,
		Reasoning:      n.Reasoning,
		Model:          n.Model,
		ParentIDs:      n.ParentIDs,
		Children:       n.Children,
		CreateTime:     n.CreateTime,
		UpdateTime:     n.UpdateTime,
	}
	if n.ID != "" {
		id, err := bson.ObjectIDFromHex(n.ID)
		if err != nil {
			return wireNode{}, err
		}
		w.ID = id
	}
	return w, nil
}

func fromWire(w wireNode) store.MessageNode {
	return store.MessageNode{
		ID:             w.ID.Hex(),
		ConversationID: w.ConversationID,
		Role:           w.Role,
		Content:        w.Content,
		Reasoning:      w.Reasoning,
		Model:          w.Model,
		ParentIDs:      w.ParentIDs,
		Children:       w.Children,
		CreateTime:     w.CreateTime,
		UpdateTime:     w.UpdateTime,
	}
}

func (s *NodeStore) Insert(ctx context.Context, doc store.MessageNode) (string, error) {
	now := time.Now().UTC()
	if doc.CreateTime.IsZero() {
		doc.CreateTime = now
	}
	if doc.UpdateTime.IsZero() {
		doc.UpdateTime = now
	}

	w, err := toWire(doc)
	if err != nil {
		return "", err
	}
	if w.ID.IsZero() {
		w.ID = bson.NewObjectID()
	}

	if _, err := s.coll.InsertOne(ctx, w); err != nil {
		return "", err
	}
	return w.ID.Hex(), nil
}

func (s *NodeStore) FindByIDs(ctx context.Context, ids []string) ([]store.MessageNode, error) {
	objIDs := make([]bson.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := bson.ObjectIDFromHex(id)
		if err != nil {
			continue // malformed ids are silently skipped, per §4.3
		}
		objIDs = append(objIDs, oid)
	}
	if len(objIDs) == 0 {
		return nil, nil
	}

	cur, err := s.coll.Find(ctx, bson.M{"_id": bson.M{"$in": objIDs}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []store.MessageNode
	for cur.Next(ctx) {
		var w wireNode
		if err := cur.Decode(&w); err != nil {
			return nil, err
		}
		out = append(out, fromWire(w))
	}
	return out, cur.Err()
}

func (s *NodeStore) FindByConversation(ctx context.Context, convID string) ([]store.MessageNode, error) {
	opts := options.Find().SetSort(bson.D{{Key: "create_time", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.M{"conversation_id": convID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []store.MessageNode
	for cur.Next(ctx) {
		var w wireNode
		if err := cur.Decode(&w); err != nil {
			return nil, err
		}
		out = append(out, fromWire(w))
	}
	return out, cur.Err()
}

// AddChild appends childID to id's children set using $addToSet, which is
// Mongo's native idempotent set-insertion and exactly what §4.6's
// "idempotent edge maintenance" calls for. A malformed id cannot name a
// stored node and yields store.ErrNotFound.
func (s *NodeStore) AddChild(ctx context.Context, id, childID string) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return store.ErrNotFound
	}
	_, err = s.coll.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{
			"$addToSet": bson.M{"children": childID},
			"$set":      bson.M{"update_time": time.Now().UTC()},
		},
	)
	return err
}

func (s *NodeStore) DeleteByConversation(ctx context.Context, convID string) error {
	_, err := s.coll.DeleteMany(ctx, bson.M{"conversation_id": convID})
	return err
}
