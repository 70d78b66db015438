package export

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gsc-insights/internal/report"
)

func sampleTable() *report.Table {
	return &report.Table{
		Columns: []string{"query", "clicks", "ctr"},
		Rows: [][]any{
			{"blue shoes", 30.0, 0.1},
			{"red, wide", 5.0, 0.05},
		},
	}
}

func TestFormatFor(t *testing.T) {
	assert.Equal(t, FormatJSON, FormatFor("a/b.JSON"))
	assert.Equal(t, FormatCSV, FormatFor("a/b.csv"))
	assert.Equal(t, FormatCSV, FormatFor("noext"))
	assert.Equal(t, "application/json", FormatJSON.ContentType())
	assert.Equal(t, "text/csv", FormatCSV.ContentType())
}

func TestEncode(t *testing.T) {
	t.Run("csv", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, sampleTable(), FormatCSV))
		assert.Equal(t, "query,clicks,ctr\nblue shoes,30,0.1\n\"red, wide\",5,0.05\n", buf.String())
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, sampleTable(), FormatJSON))
		assert.JSONEq(t, `[{"query":"blue shoes","clicks":30,"ctr":0.1},{"query":"red, wide","clicks":5,"ctr":0.05}]`, buf.String())
	})

	t.Run("unknown", func(t *testing.T) {
		assert.Error(t, Encode(io.Discard, sampleTable(), Format("xml")))
	})
}

func TestLocalSink(t *testing.T) {
	dir := t.TempDir()
	loc := Location{Scheme: SchemeFile, Key: filepath.Join(dir, "nested", "out.csv")}

	require.NoError(t, LocalSink{}.Put(context.Background(), loc, []byte("a,b\n"), "text/csv"))

	got, err := os.ReadFile(loc.Key)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(got))
}

// === fakes ===

type fakeS3 struct {
	mu     sync.Mutex
	puts   []*s3.PutObjectInput
	bodies [][]byte
	err    error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, in)
	f.bodies = append(f.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

type fakeAzure struct {
	container, blob string
	body            []byte
}

func (f *fakeAzure) UploadBuffer(_ context.Context, container, blob string, buf []byte, _ *azblob.UploadBufferOptions) (azblob.UploadBufferResponse, error) {
	f.container, f.blob, f.body = container, blob, buf
	return azblob.UploadBufferResponse{}, nil
}

type gcsWriter struct {
	bytes.Buffer
	closeErr error
	closed   bool
}

func (w *gcsWriter) Close() error {
	w.closed = true
	return w.closeErr
}

func TestS3Sink(t *testing.T) {
	fake := &fakeS3{}
	sink := NewS3SinkWithClient(fake)

	loc := Location{Scheme: SchemeS3, Bucket: "bucket", Key: "r.csv"}
	require.NoError(t, sink.Put(context.Background(), loc, []byte("x"), "text/csv"))

	require.Len(t, fake.puts, 1)
	assert.Equal(t, "bucket", *fake.puts[0].Bucket)
	assert.Equal(t, "r.csv", *fake.puts[0].Key)
	assert.Equal(t, "text/csv", *fake.puts[0].ContentType)
	assert.Equal(t, []byte("x"), fake.bodies[0])

	fake.err = errors.New("access denied")
	err := sink.Put(context.Background(), loc, []byte("x"), "text/csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://bucket/r.csv")
}

func TestNewS3Sink_RequiresCredentials(t *testing.T) {
	_, err := NewS3Sink(S3Config{Endpoint: "minio.local:9000"})
	assert.Error(t, err)

	sink, err := NewS3Sink(S3Config{KeyID: "k", Secret: "s", Endpoint: "minio.local:9000"})
	require.NoError(t, err)
	assert.NotNil(t, sink)
}

func TestAzureSink(t *testing.T) {
	fake := &fakeAzure{}
	sink := NewAzureSinkWithClient(fake)

	loc := Location{Scheme: SchemeAzure, Bucket: "data", Key: "gsc/r.json"}
	require.NoError(t, sink.Put(context.Background(), loc, []byte("[]"), "application/json"))
	assert.Equal(t, "data", fake.container)
	assert.Equal(t, "gsc/r.json", fake.blob)
	assert.Equal(t, []byte("[]"), fake.body)

	_, err := NewAzureSink("", "")
	assert.Error(t, err)
}

func TestGCSSink(t *testing.T) {
	w := &gcsWriter{}
	var gotBucket, gotKey, gotType string
	sink := &GCSSink{open: func(_ context.Context, bucket, key, contentType string) io.WriteCloser {
		gotBucket, gotKey, gotType = bucket, key, contentType
		return w
	}}

	loc := Location{Scheme: SchemeGCS, Bucket: "b", Key: "k.csv"}
	require.NoError(t, sink.Put(context.Background(), loc, []byte("data"), "text/csv"))
	assert.Equal(t, "b", gotBucket)
	assert.Equal(t, "k.csv", gotKey)
	assert.Equal(t, "text/csv", gotType)
	assert.Equal(t, "data", w.String())
	assert.True(t, w.closed)

	w = &gcsWriter{closeErr: errors.New("precondition failed")}
	assert.Error(t, sink.Put(context.Background(), loc, []byte("data"), "text/csv"))
}

func TestExporter_Export(t *testing.T) {
	dir := t.TempDir()
	fake := &fakeS3{}
	e := NewExporter(slog.New(slog.DiscardHandler))
	e.Register(SchemeS3, NewS3SinkWithClient(fake))

	local := filepath.Join(dir, "r.json")
	err := e.Export(context.Background(), sampleTable(), local, "s3://bucket/a.csv", "s3://bucket/b.csv")
	require.NoError(t, err)

	got, err := os.ReadFile(local)
	require.NoError(t, err)
	assert.Contains(t, string(got), `"query": "blue shoes"`)

	require.Len(t, fake.puts, 2)
	for _, body := range fake.bodies {
		assert.Equal(t, "query,clicks,ctr\nblue shoes,30,0.1\n\"red, wide\",5,0.05\n", string(body))
	}
}

func TestExporter_Errors(t *testing.T) {
	dir := t.TempDir()
	e := NewExporter(slog.New(slog.DiscardHandler))

	t.Run("no destinations", func(t *testing.T) {
		assert.Error(t, e.Export(context.Background(), sampleTable()))
	})

	t.Run("unregistered scheme writes nothing", func(t *testing.T) {
		local := filepath.Join(dir, "never.csv")
		err := e.Export(context.Background(), sampleTable(), local, "gs://bucket/r.csv")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "gs://")
		_, statErr := os.Stat(local)
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("upload failure", func(t *testing.T) {
		e.Register(SchemeS3, NewS3SinkWithClient(&fakeS3{err: errors.New("boom")}))
		err := e.Export(context.Background(), sampleTable(), "s3://bucket/r.csv")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
	})
}
