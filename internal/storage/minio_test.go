package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/common-server/server-bootstrap/internal/config"
)

func TestNewMinIOStorage_RequiresEndpointAndBucket(t *testing.T) {
	_, err := NewMinIOStorage(context.Background(), config.MinIOConfig{Bucket: "b"})
	require.Error(t, err)

	_, err = NewMinIOStorage(context.Background(), config.MinIOConfig{Endpoint: "localhost:9000"})
	require.Error(t, err)
}
