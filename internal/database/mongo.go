package database

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/AnshRaj112/salvioris-chat/pkg/logger"
)

var (
	Client *mongo.Client
	DB     *mongo.Database
)

// ConnectMongo connects to MongoDB and selects the chat database. The
// database name comes from the URI path when present.
func ConnectMongo(mongoURI string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(mongoURI)
	clientOptions.SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return err
	}

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer pingCancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return err
	}

	Client = client
	DB = client.Database(databaseName(mongoURI))
	logger.L().Infow("connected to MongoDB", "database", DB.Name())
	return nil
}

func databaseName(mongoURI string) string {
	name := "salvioris_chat"
	parts := strings.Split(mongoURI, "/")
	if len(parts) > 3 {
		if dbPart := strings.Split(parts[len(parts)-1], "?")[0]; dbPart != "" {
			name = dbPart
		}
	}
	return name
}

// DisconnectMongo closes the MongoDB connection.
func DisconnectMongo() error {
	if Client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return Client.Disconnect(ctx)
}
