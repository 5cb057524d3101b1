package delivery

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleDoc = []byte("%PDF-1.7\n% test document\n%%EOF\n")

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Ayşe Demir":       "ayse-demir",
		"Ali  Veli":        "ali-veli",
		"İLKER IŞIK":       "ilker-isik",
		"  --Çağ!!  ":      "cag",
		"Gül & Öz Ltd. Şti": "gul-oz-ltd-sti",
		"Apt. 12/B":        "apt-12-b",
		"":                 "",
		"!!!":              "",
		"日本":               "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slug(in), in)
	}
}

func TestFilename(t *testing.T) {
	date := time.Date(2024, 6, 1, 15, 4, 5, 0, time.UTC)

	assert.Equal(t, "kira-sozlesmesi-ayse-demir-2024-06-01.pdf", Filename("kira-sozlesmesi", "Ayşe Demir", date))
	assert.Equal(t, "kira-sozlesmesi-isimsiz-2024-06-01.pdf", Filename("kira-sozlesmesi", "  ", date))
	assert.Equal(t, "belge-ali-veli-2024-06-01.pdf", Filename("", "Ali  Veli", date))
	assert.Equal(t, Filename("x", "Ali  Veli", date), Filename("x", "Ali  Veli", date))
}

func TestDirSinkSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	sink, err := NewDirSink(dir, zerolog.Nop())
	require.NoError(t, err)

	loc, err := sink.Save(context.Background(), "kira-sozlesmesi-ayse-demir-2024-06-01.pdf", sampleDoc)
	require.NoError(t, err)
	assert.Equal(t, "kira-sozlesmesi-ayse-demir-2024-06-01.pdf", loc.Name)

	got, err := os.ReadFile(loc.Path)
	require.NoError(t, err)
	assert.Equal(t, sampleDoc, got)

	// overwrite keeps a single file and leaves no partial files behind
	_, err = sink.Save(context.Background(), loc.Name, []byte("%PDF-1.7\nsecond"))
	require.NoError(t, err)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, loc.Name, entries[0].Name())
}

func TestDirSinkRejects(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewDirSink(dir, zerolog.Nop())
	require.NoError(t, err)

	tests := []struct {
		name string
		file string
		doc  []byte
		want error
	}{
		{"empty document", "a.pdf", nil, ErrNoDocument},
		{"traversal", "../escape.pdf", sampleDoc, ErrInvalidName},
		{"nested", "sub/a.pdf", sampleDoc, ErrInvalidName},
		{"dot dot", "..", sampleDoc, ErrInvalidName},
		{"empty name", "", sampleDoc, ErrInvalidName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sink.Save(context.Background(), tt.file, tt.doc)
			var de *DeliveryError
			require.ErrorAs(t, err, &de)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err = os.Stat(filepath.Join(filepath.Dir(dir), "escape.pdf"))
	assert.True(t, os.IsNotExist(err))
}

func TestDirSinkRejectsSymlinkOut(t *testing.T) {
	dir := t.TempDir()
	outside := t.TempDir()
	target := filepath.Join(outside, "victim.pdf")
	require.NoError(t, os.WriteFile(target, []byte("keep"), 0o600))
	if err := os.Symlink(target, filepath.Join(dir, "link.pdf")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	sink, err := NewDirSink(dir, zerolog.Nop())
	require.NoError(t, err)
	_, err = sink.Save(context.Background(), "link.pdf", sampleDoc)
	assert.ErrorIs(t, err, ErrInvalidName)

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "keep", string(got))
}

func TestDirSinkUnwritable(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	_, err := NewDirSink(file, zerolog.Nop())
	var de *DeliveryError
	assert.ErrorAs(t, err, &de)
}

// fakeS3 answers just enough of the S3 protocol for bucket checks and
// single part uploads.
type fakeS3 struct {
	mu       sync.Mutex
	buckets  map[string]bool
	requests []string
	puts     map[string]http.Header
}

func newFakeS3(t *testing.T) (*fakeS3, string) {
	f := &fakeS3{buckets: map[string]bool{}, puts: map[string]http.Header{}}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	return f, strings.TrimPrefix(srv.URL, "http://")
}

func (f *fakeS3) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)

	parts := strings.SplitN(strings.Trim(r.URL.Path, "/"), "/", 2)
	bucket := parts[0]
	switch {
	case len(parts) == 1 && r.Method == http.MethodHead:
		if !f.buckets[bucket] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case len(parts) == 1 && r.Method == http.MethodPut:
		f.buckets[bucket] = true
		w.WriteHeader(http.StatusOK)
	case len(parts) == 2 && r.Method == http.MethodPut:
		f.puts[parts[1]] = r.Header.Clone()
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestObjectSink(t *testing.T) {
	fake, endpoint := newFakeS3(t)
	sink, err := NewObjectSink(ObjectConfig{
		Endpoint:  endpoint,
		AccessKey: "test",
		SecretKey: "test-secret",
		Bucket:    "contracts",
		Region:    "us-east-1",
		Prefix:    "office-1",
		URLExpiry: time.Hour,
	}, zerolog.Nop())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, sink.EnsureBucket(ctx))
	require.NoError(t, sink.EnsureBucket(ctx))

	loc, err := sink.Save(ctx, "kira-sozlesmesi-ayse-demir-2024-06-01.pdf", sampleDoc)
	require.NoError(t, err)
	assert.Equal(t, "contracts/office-1/kira-sozlesmesi-ayse-demir-2024-06-01.pdf", loc.Path)

	u, err := url.Parse(loc.URL)
	require.NoError(t, err)
	assert.Equal(t, "/contracts/office-1/kira-sozlesmesi-ayse-demir-2024-06-01.pdf", u.Path)
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
	assert.Contains(t, u.Query().Get("response-content-disposition"), "attachment")

	fake.mu.Lock()
	defer fake.mu.Unlock()
	h, ok := fake.puts["office-1/kira-sozlesmesi-ayse-demir-2024-06-01.pdf"]
	require.True(t, ok, "requests: %v", fake.requests)
	assert.Equal(t, "application/pdf", h.Get("Content-Type"))
	assert.True(t, fake.buckets["contracts"])
}

func TestObjectSinkRejects(t *testing.T) {
	_, err := NewObjectSink(ObjectConfig{Bucket: "b"}, zerolog.Nop())
	var de *DeliveryError
	require.ErrorAs(t, err, &de)

	_, endpoint := newFakeS3(t)
	sink, err := NewObjectSink(ObjectConfig{Endpoint: endpoint, Bucket: "b", Region: "us-east-1"}, zerolog.Nop())
	require.NoError(t, err)

	_, err = sink.Save(context.Background(), "a.pdf", nil)
	assert.ErrorIs(t, err, ErrNoDocument)
	_, err = sink.Save(context.Background(), "../a.pdf", sampleDoc)
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestCommandPrinterRemovesSpoolFile(t *testing.T) {
	spoolDir := t.TempDir()
	p := NewCommandPrinter("lp", []string{"-d", "ofis"}, zerolog.Nop())
	p.TempDir = spoolDir

	var gotName string
	var gotArgs []string
	var spooled []byte
	p.run = func(_ context.Context, name string, args ...string) ([]byte, error) {
		gotName, gotArgs = name, args
		b, err := os.ReadFile(args[len(args)-1])
		spooled = b
		return []byte("request id is ofis-42"), err
	}

	require.NoError(t, p.Print(context.Background(), sampleDoc))
	assert.Equal(t, "lp", gotName)
	assert.Equal(t, []string{"-d", "ofis"}, gotArgs[:2])
	assert.Equal(t, sampleDoc, spooled)

	entries, err := os.ReadDir(spoolDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCommandPrinterFailure(t *testing.T) {
	spoolDir := t.TempDir()
	p := NewCommandPrinter("", nil, zerolog.Nop())
	p.TempDir = spoolDir
	assert.Equal(t, DefaultPrintCommand, p.Command)

	p.run = func(context.Context, string, ...string) ([]byte, error) {
		return []byte("lp: The printer or class does not exist.\n"), errors.New("exit status 1")
	}

	err := p.Print(context.Background(), sampleDoc)
	var de *DeliveryError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "print", de.Op)
	assert.Contains(t, err.Error(), "does not exist")

	entries, err := os.ReadDir(spoolDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.ErrorIs(t, p.Print(context.Background(), nil), ErrNoDocument)
}

func TestCommandPrinterRunsRealCommand(t *testing.T) {
	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true not available")
	}
	p := NewCommandPrinter("true", nil, zerolog.Nop())
	p.TempDir = t.TempDir()
	assert.NoError(t, p.Print(context.Background(), sampleDoc))
}

func TestDirSinkLoad(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewDirSink(dir, zerolog.Nop())
	require.NoError(t, err)

	loc, err := sink.Save(context.Background(), "a.pdf", sampleDoc)
	require.NoError(t, err)

	got, err := sink.Load(context.Background(), loc.Name, 0)
	require.NoError(t, err)
	assert.Equal(t, sampleDoc, got)

	_, err = sink.Load(context.Background(), loc.Name, 4)
	assert.ErrorContains(t, err, "limit")

	_, err = sink.Load(context.Background(), "missing.pdf", 0)
	var de *DeliveryError
	assert.ErrorAs(t, err, &de)

	_, err = sink.Load(context.Background(), "../a.pdf", 0)
	assert.ErrorIs(t, err, ErrInvalidName)

	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.pdf"), 0o750))
	_, err = sink.Load(context.Background(), "sub.pdf", 0)
	assert.ErrorContains(t, err, "not a regular file")
}
