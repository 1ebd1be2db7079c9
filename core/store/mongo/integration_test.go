package mongo_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/relabs-tech/carlot/core/store"
	"github.com/relabs-tech/carlot/core/store/mongo"
	"github.com/relabs-tech/carlot/core/store/storetest"
)

func startMongo(t *testing.T) string {
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "27017")
	require.NoError(t, err)
	return fmt.Sprintf("mongodb://%s:%d", host, port.Int())
}

func TestStore_Integration(t *testing.T) {
	if os.Getenv("CARLOT_INTEGRATION") == "" {
		t.Skip("set CARLOT_INTEGRATION to run against a mongo container")
	}
	uri := startMongo(t)

	storetest.Run(t, func(t *testing.T) store.Store {
		ctx := context.Background()
		s, err := mongo.Open(ctx, uri, "carlot_"+uuid.NewString()[:8])
		require.NoError(t, err)
		return s
	})
}
