package mongo

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"

	repo "github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/repository"
	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/repository/repotest"
)

func setupMongo(t *testing.T) *mongo.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("mongo container test skipped in -short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	// トランザクションにはレプリカセットが要る
	ctr, err := mongodb.Run(ctx, "mongo:7", mongodb.WithReplicaSet("rs0"))
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	uri, err := ctr.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := Connect(ctx, uri, "bootstrap")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Client().Disconnect(context.Background()) })
	return db.Client()
}

func TestStoreContract(t *testing.T) {
	client := setupMongo(t)
	var n atomic.Int64

	for _, transactions := range []bool{true, false} {
		t.Run(fmt.Sprintf("transactions=%v", transactions), func(t *testing.T) {
			repotest.RunStoreContract(t, func(t *testing.T) repo.Store {
				// サブテストごとに別DB
				db := client.Database(fmt.Sprintf("shop_%d", n.Add(1)))
				s := NewStore(db, transactions)
				require.NoError(t, s.EnsureIndexes(context.Background()))
				return s
			})
		})
	}
}
