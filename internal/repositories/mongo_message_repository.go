package repositories

import (
	"context"
	"time"

	"github.com/anonto42/songoftheday/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// messageDocument is the MongoDB shape of a models.Message.
type messageDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	SenderID    uint               `bson:"sender_id"`
	RecipientID uint               `bson:"recipient_id"`
	Body        string             `bson:"body"`
	CreatedAt   time.Time          `bson:"created_at"`
}

// MongoMessageRepository implements MessageRepository for MongoDB.
// Documents are keyed by ObjectID, so the returned models carry ID 0.
type MongoMessageRepository struct {
	collection *mongo.Collection
}

// NewMongoMessageRepository creates a new MongoMessageRepository
func NewMongoMessageRepository(db *mongo.Database) *MongoMessageRepository {
	return &MongoMessageRepository{collection: db.Collection("messages")}
}

// CreateMessage inserts a message document
func (r *MongoMessageRepository) CreateMessage(ctx context.Context, msg *models.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	doc := messageDocument{
		ID:          primitive.NewObjectID(),
		SenderID:    msg.SenderID,
		RecipientID: msg.RecipientID,
		Body:        msg.Body,
		CreatedAt:   msg.CreatedAt,
	}
	_, err := r.collection.InsertOne(ctx, doc)
	return err
}

// GetInbox retrieves messages received by recipientID, newest first
func (r *MongoMessageRepository) GetInbox(ctx context.Context, recipientID uint, limit int) ([]models.Message, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		findOptions.SetLimit(int64(limit))
	}
	cursor, err := r.collection.Find(ctx, bson.M{"recipient_id": recipientID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []messageDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	msgs := make([]models.Message, len(docs))
	for i, d := range docs {
		msgs[i] = models.Message{
			SenderID:    d.SenderID,
			RecipientID: d.RecipientID,
			Body:        d.Body,
			CreatedAt:   d.CreatedAt,
		}
	}
	return msgs, nil
}
