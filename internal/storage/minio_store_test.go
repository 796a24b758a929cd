package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		Endpoint:  "localhost:9000",
		AccessKey: "minio",
		SecretKey: "minio-secret",
		Bucket:    "assets",
		Region:    "us-east-1",
	}
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, testConfig().Validate())

	c := testConfig()
	c.Bucket = ""
	require.ErrorContains(t, c.Validate(), "bucket")

	c = testConfig()
	c.SecretKey = ""
	require.ErrorContains(t, c.Validate(), "credentials")
}

func TestPublicURL(t *testing.T) {
	s, err := NewMinioStore(testConfig())
	require.NoError(t, err)
	require.Equal(t, "http://localhost:9000/assets/projects/p/generated/a.png", s.PublicURL("projects/p/generated/a.png"))

	c := testConfig()
	c.PublicURL = "https://cdn.example.com/"
	s, err = NewMinioStore(c)
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/temp/a.png", s.PublicURL("temp/a.png"))
}

// With a fixed region presigning is computed locally and needs no server.
func TestPresignedURLs(t *testing.T) {
	s, err := NewMinioStore(testConfig())
	require.NoError(t, err)

	put, err := s.PresignPut(context.Background(), "temp/a.png", 10*time.Minute)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(put, "http://localhost:9000/assets/temp/a.png?"), put)
	require.Contains(t, put, "X-Amz-Signature=")
	require.Contains(t, put, "X-Amz-Expires=600")

	get, err := s.PresignGet(context.Background(), "temp/a.png", 0)
	require.NoError(t, err)
	require.Contains(t, get, "X-Amz-Expires=3600")
}

func TestNilStore(t *testing.T) {
	var s *MinioStore
	_, err := s.PresignGet(context.Background(), "k", 0)
	require.Error(t, err)
	require.Error(t, s.Delete(context.Background(), "k"))
}
