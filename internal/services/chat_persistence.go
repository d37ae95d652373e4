package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/AnshRaj112/salvioris-chat/internal/database"
	"github.com/AnshRaj112/salvioris-chat/internal/models"
)

const messagesCollection = "direct_messages"

// ErrMessageNotFound is returned when a seen update targets a message that
// does not exist or is not addressed to the acknowledging user.
var ErrMessageNotFound = errors.New("message not found")

// EnsureChatIndexes configures indexes for the direct_messages collection.
// Called on startup after Mongo has connected.
func EnsureChatIndexes(ctx context.Context) error {
	col := database.DB.Collection(messagesCollection)

	idx := []mongo.IndexModel{
		{
			// Conversation history is queried by both participants + time.
			Keys: bson.D{
				{Key: "sender_id", Value: 1},
				{Key: "receiver_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_participants_created"),
		},
		{
			// Seen sweeps look for unseen inbound messages per receiver.
			Keys: bson.D{
				{Key: "receiver_id", Value: 1},
				{Key: "seen", Value: 1},
			},
			Options: options.Index().SetName("idx_receiver_seen"),
		},
	}

	for _, m := range idx {
		if _, err := col.Indexes().CreateOne(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// SaveMessage assigns an id and timestamp and persists the message. The
// saved copy is what gets acked back to the sender and pushed to the
// receiver, so both sides agree on the id.
func SaveMessage(ctx context.Context, msg *models.Message) (*models.Message, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	msg.Seen = false

	col := database.DB.Collection(messagesCollection)
	if _, err := col.InsertOne(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// MarkMessageSeen flips the seen flag for a message addressed to userID and
// returns the sender so the gateway can notify them. Already-seen messages
// return the sender without a second write (the flag never reverts).
func MarkMessageSeen(ctx context.Context, messageID string, userID string) (senderID string, err error) {
	col := database.DB.Collection(messagesCollection)

	var msg models.Message
	filter := bson.M{"_id": messageID, "receiver_id": userID}
	if err := col.FindOne(ctx, filter).Decode(&msg); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", ErrMessageNotFound
		}
		return "", err
	}
	if msg.Seen {
		return msg.SenderID, nil
	}

	if _, err := col.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"seen": true}}); err != nil {
		return "", err
	}
	return msg.SenderID, nil
}

// LoadConversation returns paginated history between two users, oldest
// first. Pagination is timestamp-based (newest-first scrolling).
func LoadConversation(ctx context.Context, userA, userB string, before *time.Time, limit int64) ([]models.Message, bool, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	col := database.DB.Collection(messagesCollection)

	filter := bson.M{
		"$or": bson.A{
			bson.M{"sender_id": userA, "receiver_id": userB},
			bson.M{"sender_id": userB, "receiver_id": userA},
		},
	}
	if before != nil {
		filter["created_at"] = bson.M{"$lt": before.UTC()}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit + 1)

	cur, err := col.Find(ctx, filter, opts)
	if err != nil {
		return nil, false, err
	}
	defer cur.Close(ctx)

	var msgs []models.Message
	for cur.Next(ctx) {
		var m models.Message
		if err := cur.Decode(&m); err != nil {
			continue
		}
		msgs = append(msgs, m)
	}
	if err := cur.Err(); err != nil {
		return nil, false, err
	}

	hasMore := int64(len(msgs)) > limit
	if hasMore {
		msgs = msgs[:len(msgs)-1]
	}

	// Reverse to oldest-first for the UI.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	return msgs, hasMore, nil
}
