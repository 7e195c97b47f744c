//go:build integration

package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/godilite/nps-insights/internal/repository"
	"github.com/godilite/nps-insights/internal/repository/models"
	"github.com/godilite/nps-insights/pkg/docstore"
)

func startMongo(t *testing.T) (uri string, stop func()) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)

	req := tc.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("27017/tcp"),
			wait.ForLog("Waiting for connections"),
		).WithDeadline(2 * time.Minute),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		cancel()
		t.Fatalf("failed to start mongo container: %v", err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		_ = c.Terminate(context.Background())
		cancel()
		t.Fatalf("failed to get container host: %v", err)
	}
	mapped, err := c.MappedPort(ctx, "27017/tcp")
	if err != nil {
		_ = c.Terminate(context.Background())
		cancel()
		t.Fatalf("failed to get mapped port: %v", err)
	}

	uri = fmt.Sprintf("mongodb://%s:%s", host, mapped.Port())
	stop = func() {
		_ = c.Terminate(context.Background())
		cancel()
	}
	return uri, stop
}

func TestMongoSurveyRepository_Integration(t *testing.T) {
	uri, stop := startMongo(t)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client, err := docstore.New(ctx, docstore.WithURI(uri), docstore.WithRetry(5, time.Second))
	require.NoError(t, err)
	defer client.Disconnect(context.Background())

	repo := repository.NewMongoSurveyRepository(client.Database(repository.DefaultMongoDatabase))
	no := false

	n, err := repo.InsertResponses(ctx, "kiosk", []models.SurveyDocument{
		{Score: 10, Review: "Quick", Date: "2025-04-01", Sentiment: "positive", Aspects: []string{"Speed"}},
		{Score: "abc", Review: "Broken", Date: "2025-04-02", Rebuy: &no},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := repo.ListResponses(ctx, "kiosk")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.NotEmpty(t, got[0].ID)
	assert.EqualValues(t, 10, got[0].Score)
	assert.Equal(t, []string{"Speed"}, got[0].Aspects)
	assert.Equal(t, "abc", got[1].Score)
	require.NotNil(t, got[1].Rebuy)
	assert.False(t, *got[1].Rebuy)

	empty, err := repo.ListResponses(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
