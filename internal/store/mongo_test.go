package store

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/oklog/ulid/v2"
)

const testMongoEnv = "TEST_MONGO_URI"

func TestMongoStore_Contract(t *testing.T) {
	uri, ok := os.LookupEnv(testMongoEnv)
	if !ok {
		t.Skipf("you should set %q env variable to run this test, skipped...", testMongoEnv)
	}

	runRepositoryContract(t, func(t *testing.T) Repository {
		t.Helper()

		database := fmt.Sprintf("cigarro_test_%s", ulid.Make().String())
		s, err := NewMongoStore(context.Background(), uri, database, "cigarros")
		if err != nil {
			t.Fatalf("NewMongoStore() error = %v", err)
		}

		t.Cleanup(func() {
			_ = s.client.Database(database).Drop(context.Background())
			_ = s.Close()
		})
		return s
	})
}

func TestMongoStore_ImplementsInterface(_ *testing.T) {
	var _ Repository = (*MongoStore)(nil)
}
