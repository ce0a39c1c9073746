package archive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func freezeClock(t *testing.T, now time.Time) {
	t.Helper()
	prev := timeNow
	timeNow = func() time.Time { return now }
	t.Cleanup(func() { timeNow = prev })
}

func TestEncodeDecode(t *testing.T) {
	freezeClock(t, fixedNow)
	env, err := newEnvelope("user", map[string]any{"id": "u1", "email": "a@example.com"})
	require.NoError(t, err)

	payload, err := Encode(env)
	require.NoError(t, err)

	got, err := Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, "user", got.EntityType)
	assert.Equal(t, "u1", got.EntityID)
	assert.True(t, got.ArchivedAt.Equal(fixedNow))
	assert.Equal(t, "a@example.com", got.Record["email"])
}

func TestDecodeCorrupt(t *testing.T) {
	_, err := Decode([]byte("not snappy"))
	assert.ErrorIs(t, err, ErrCorruptPayload)
}

func TestEnvelopeRequiresID(t *testing.T) {
	_, err := newEnvelope("user", map[string]any{"email": "a@example.com"})
	assert.ErrorIs(t, err, ErrMissingID)
	_, err = newEnvelope("user", map[string]any{"id": "  "})
	assert.ErrorIs(t, err, ErrMissingID)
}

func TestObjectKey(t *testing.T) {
	env := Envelope{EntityType: "content", EntityID: "c-42", ArchivedAt: fixedNow}

	key := ObjectKey("/compliance/", env)
	bucket := Bucket("c-42")
	assert.Len(t, bucket, 2)
	assert.Equal(t, "archive/compliance/content/"+bucket+"/c-42-1748779200000000000.json.sz", key)
	assert.Equal(t, key, ObjectKey("compliance", env), "keys are deterministic")

	assert.True(t, strings.HasPrefix(ObjectKey("", env), "archive/content/"))
}

type fakeS3 struct {
	mu       sync.Mutex
	failures int
	calls    int
	objects  map[string][]byte
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("503 slow down")
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[*in.Key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestS3SinkRetriesThenStores(t *testing.T) {
	freezeClock(t, fixedNow)
	fake := &fakeS3{failures: 2}
	sink := newS3Sink(fake, S3Config{Bucket: "archive", Prefix: "compliance"})
	sink.baseDelay = time.Millisecond

	require.NoError(t, sink.Archive(context.Background(), "user", map[string]any{"id": "u1"}))
	assert.Equal(t, 3, fake.calls)
	require.Len(t, fake.objects, 1)

	for key := range fake.objects {
		env, err := sink.Get(context.Background(), key)
		require.NoError(t, err)
		assert.Equal(t, "u1", env.EntityID)
	}
}

func TestS3SinkGivesUp(t *testing.T) {
	fake := &fakeS3{failures: 10}
	sink := newS3Sink(fake, S3Config{Bucket: "archive"})
	sink.baseDelay = time.Millisecond

	err := sink.Archive(context.Background(), "user", map[string]any{"id": "u1"})
	require.Error(t, err)
	assert.Equal(t, sink.maxRetries+1, fake.calls)
	assert.Empty(t, fake.objects)
}

func TestS3SinkStopsOnCancel(t *testing.T) {
	fake := &fakeS3{failures: 10}
	sink := newS3Sink(fake, S3Config{Bucket: "archive"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sink.Archive(ctx, "user", map[string]any{"id": "u1"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, fake.calls)
}

func TestSQLiteSink(t *testing.T) {
	ctx := context.Background()
	sink, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "archive.db"), "compliance")
	require.NoError(t, err)
	t.Cleanup(func() { sink.Close() })

	freezeClock(t, fixedNow)
	require.NoError(t, sink.Archive(ctx, "user", map[string]any{"id": "u1", "email": "old@example.com"}))
	freezeClock(t, fixedNow.Add(time.Hour))
	require.NoError(t, sink.Archive(ctx, "user", map[string]any{"id": "u1", "email": "new@example.com"}))
	require.NoError(t, sink.Archive(ctx, "content", map[string]any{"id": 7}))

	copies, err := sink.List(ctx, "user", "u1")
	require.NoError(t, err)
	require.Len(t, copies, 2)
	assert.Equal(t, "old@example.com", copies[0].Record["email"])
	assert.Equal(t, "new@example.com", copies[1].Record["email"])

	n, err := sink.Count(ctx, "content")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	purged, err := sink.PurgeBefore(ctx, fixedNow.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	copies, err = sink.List(ctx, "user", "u1")
	require.NoError(t, err)
	assert.Len(t, copies, 1)
}

func TestSQLiteSinkRejectsMissingID(t *testing.T) {
	sink, err := OpenSQLite(filepath.Join(t.TempDir(), "archive.db"), "")
	require.NoError(t, err)
	t.Cleanup(func() { sink.Close() })

	err = sink.Archive(context.Background(), "user", map[string]any{"email": "x"})
	assert.ErrorIs(t, err, ErrMissingID)
}
