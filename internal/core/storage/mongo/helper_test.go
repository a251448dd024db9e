package mongo

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultTestMongoURI = "mongodb://localhost:27017"

var (
	globalTestClient     *mongo.Client
	globalTestClientErr  error
	globalTestClientOnce sync.Once
)

type TestEnv struct {
	Client *mongo.Client
	DBName string
	DB     *mongo.Database
}

func testMongoURI() string {
	if uri := os.Getenv("LEADFLOW_TEST_MONGO_URI"); uri != "" {
		return uri
	}
	return defaultTestMongoURI
}

func getGlobalTestClient(t *testing.T) *mongo.Client {
	globalTestClientOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		clientOpts := options.Client().ApplyURI(testMongoURI()).SetServerSelectionTimeout(2 * time.Second)
		client, err := mongo.Connect(ctx, clientOpts)
		if err != nil {
			globalTestClientErr = err
			return
		}
		if err := client.Ping(ctx, nil); err != nil {
			_ = client.Disconnect(context.Background())
			globalTestClientErr = err
			return
		}
		globalTestClient = client
	})
	if globalTestClientErr != nil {
		t.Skipf("MongoDB not available, skipping integration tests: %v", globalTestClientErr)
	}
	return globalTestClient
}

func setupTestEnv(t *testing.T) *TestEnv {
	t.Parallel()

	client := getGlobalTestClient(t)

	safeName := strings.ReplaceAll(t.Name(), "/", "_")
	if len(safeName) > 20 {
		safeName = safeName[len(safeName)-20:]
	}
	dbName := fmt.Sprintf("test_leadflow_%s_%d", safeName, time.Now().UnixNano()%100000)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Database(dbName).Drop(ctx)
	})

	return &TestEnv{
		Client: client,
		DBName: dbName,
		DB:     client.Database(dbName),
	}
}
