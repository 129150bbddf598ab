package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imgtdb/internal/blob/core"
)

func TestMockStoreRoundTripBinary(t *testing.T) {
	ctx := context.Background()
	s := NewMockForTests()
	assert.Equal(t, core.DriverS3, s.Driver())
	assert.Equal(t, "mock-bucket", s.Bucket())

	payload := []byte{0x1f, 0x8b, '\r', '\n', 0x00, 0xff}
	_, err := s.Put(ctx, "3260/hla.dat.gz", bytes.NewReader(payload), core.PutOptions{ContentType: "application/gzip"})
	require.NoError(t, err)

	info, rc, err := s.Get(ctx, "3260/hla.dat.gz")
	require.NoError(t, err)
	defer func() { _ = rc.Close() }()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	assert.Equal(t, "application/gzip", info.ContentType)
	assert.Equal(t, "etag", info.ETag)
}

func TestMapNotFound(t *testing.T) {
	other := errors.New("denied")
	assert.Same(t, other, mapNotFound("k", other))

	_, err := NewMockForTests().Head(context.Background(), "nope")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestDecodeChunked(t *testing.T) {
	body, ok := decodeChunked([]byte("4;chunk-signature=abc\r\nACGT\r\n0\r\nx-amz-checksum-crc32:AAAA\r\n\r\n"))
	require.True(t, ok)
	assert.Equal(t, "ACGT", string(body))

	_, ok = decodeChunked([]byte("ACGT"))
	assert.False(t, ok)
	_, ok = decodeChunked([]byte("10\r\nshort\r\n0\r\n"))
	assert.False(t, ok)
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Config{})
	require.Error(t, err)
}

func TestNewUsesStaticCredentials(t *testing.T) {
	ctx := context.Background()
	s, err := New(ctx, Config{
		Bucket:          "imgt-mirror",
		Endpoint:        "http://127.0.0.1:9000",
		AccessKeyID:     "AKID",
		SecretAccessKey: "secret",
		SessionToken:    "token",
		PathStyle:       true,
	})
	require.NoError(t, err)
	opts := s.client.Options()
	assert.True(t, opts.UsePathStyle)
	assert.Equal(t, "us-east-1", opts.Region)
	creds, err := opts.Credentials.Retrieve(ctx)
	require.NoError(t, err)
	assert.Equal(t, "AKID", creds.AccessKeyID)
	assert.Equal(t, "secret", creds.SecretAccessKey)
	assert.Equal(t, "token", creds.SessionToken)
}
