package mongo_test

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrWong99/voxdrill/pkg/kv"
	"github.com/MrWong99/voxdrill/pkg/kv/kvtest"
	"github.com/MrWong99/voxdrill/pkg/kv/mongo"
)

var collectionSeq atomic.Int64

// testURI returns the MongoDB URI from the environment, or skips the test if
// VOXDRILL_TEST_MONGO_URI is not set.
func testURI(t *testing.T) string {
	t.Helper()
	uri := os.Getenv("VOXDRILL_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("VOXDRILL_TEST_MONGO_URI not set, skipping MongoDB integration tests")
	}
	return uri
}

func newTestStore(t *testing.T) kv.Store {
	t.Helper()
	ctx := context.Background()
	coll := fmt.Sprintf("kv_test_%d_%d", time.Now().UnixNano(), collectionSeq.Add(1))

	s, err := mongo.New(ctx, testURI(t), "voxdrill_test", coll)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Drop(context.Background())
		_ = s.Close()
	})
	return s
}

func TestStore_Contract(t *testing.T) {
	kvtest.Run(t, newTestStore)
}
