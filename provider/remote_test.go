package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-billy/v6/osfs"
	"github.com/go-git/go-billy/v6/util"

	"github.com/nickyhof/ADOBridge/core"
)

func TestDetectScheme(t *testing.T) {
	tests := map[string]urlScheme{
		"s3://bucket/key.duckdb": schemeS3,
		"HTTPS://host/db.accdb":  schemeHTTPS,
		"http://host/db.mdb":     schemeHTTP,
		`C:\data\db.accdb`:       schemeLocal,
		"/var/lib/db.duckdb":     schemeLocal,
	}
	for source, want := range tests {
		if got := detectScheme(source); got != want {
			t.Errorf("detectScheme(%q) = %s, want %s", source, got, want)
		}
	}
}

func TestParseS3URL(t *testing.T) {
	bucket, key, err := parseS3URL("s3://data/nested/db.duckdb")
	if err != nil {
		t.Fatal(err)
	}
	if bucket != "data" || key != "nested/db.duckdb" {
		t.Errorf("Unexpected bucket %q key %q", bucket, key)
	}
	if _, _, err := parseS3URL("s3://bucket-only"); err == nil {
		t.Error("Expected invalid S3 URL to fail")
	}
}

func TestStageHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files/sales.duckdb" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, "database bytes")
	}))
	defer server.Close()

	fs := memfs.New()
	stager := NewStager(fs, nil)

	staged, err := stager.Stage(context.Background(), server.URL+"/files/sales.duckdb?token=x")
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if !strings.HasSuffix(staged.Path, "sales.duckdb") {
		t.Errorf("Expected staged path to keep the file name, got %s", staged.Path)
	}
	data, err := util.ReadFile(fs, staged.name)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "database bytes" {
		t.Errorf("Unexpected staged content %q", data)
	}

	if err := staged.Sync(context.Background()); err == nil {
		t.Error("Expected HTTP sources to be read-only")
	}
	if err := staged.Remove(); err != nil {
		t.Fatal(err)
	}
	if _, err := fs.Stat(staged.name); err == nil {
		t.Error("Expected staged file to be removed")
	}

	_, err = stager.Stage(context.Background(), server.URL+"/missing.duckdb")
	record := core.RecordOf(err)
	if record.Code == nil || *record.Code != core.CodeFileNotFound {
		t.Errorf("Expected file not found, got %+v", record)
	}
}

func TestRouterStagesRemoteSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "db")
	}))
	defer server.Close()

	fs := memfs.New()
	memory := NewMemory()
	router := NewRouter(NewStager(fs, nil))
	router.Register("Memory", memory)

	conn, err := router.Open(context.Background(), "Provider=Memory;Data Source="+server.URL+"/a.mdb")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	opened := memory.Stats().Connections[0]
	source := ParseConnectionString(opened).DataSource()
	if IsRemote(source) || !strings.HasSuffix(source, "a.mdb") {
		t.Errorf("Expected a staged local path, got %s", source)
	}

	if err := conn.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	entries, _ := fs.ReadDir("/")
	if len(entries) != 0 {
		t.Errorf("Expected staging area to be empty, found %d entries", len(entries))
	}
}

func TestRouterRejectsRemoteWithoutStager(t *testing.T) {
	router := NewRouter(nil)
	router.Register("Memory", NewMemory())

	_, err := router.Open(context.Background(), "Provider=Memory;Data Source=s3://b/k.mdb")
	if err == nil {
		t.Fatal("Expected remote source without stager to fail")
	}
}

func TestRouterFallsBackToADODB(t *testing.T) {
	router := NewRouter(nil)
	if _, ok := router.route("Microsoft.ACE.OLEDB.12.0").(ADODB); !ok {
		t.Error("Expected unknown providers to route to ADODB")
	}
	if _, ok := router.route("duckdb").(DuckDB); !ok {
		t.Error("Expected DuckDB to be registered")
	}
}

func TestS3RoundTrip(t *testing.T) {
	var mu sync.Mutex
	var puts []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			io.WriteString(w, "remote db")
		case http.MethodPut:
			io.Copy(io.Discard, r.Body)
			mu.Lock()
			puts = append(puts, r.URL.Path)
			mu.Unlock()
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	defer server.Close()

	memory := NewMemory()
	router := NewRouter(NewStager(memfs.New(), &S3Config{
		AccessKey: "test",
		SecretKey: "test",
		Region:    "us-east-1",
		Endpoint:  server.URL,
	}))
	router.Register("Memory", memory)

	// read-only use does not upload
	conn, err := router.Open(context.Background(), "Provider=Memory;Data Source=s3://bucket/db.mdb")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	conn.Close()

	conn, err = router.Open(context.Background(), "Provider=Memory;Data Source=s3://bucket/db.mdb")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := conn.Execute("UPDATE x SET y = 1"); err != nil {
		t.Fatal(err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(puts) != 1 || puts[0] != "/bucket/db.mdb" {
		t.Errorf("Expected one upload to /bucket/db.mdb, got %v", puts)
	}
}

type failingCreateFS struct {
	billy.Filesystem
}

func (failingCreateFS) Create(string) (billy.File, error) {
	return nil, errors.New("disk full")
}

func TestStageRemovesDirWhenCreateFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "db")
	}))
	defer server.Close()

	fs := memfs.New()
	stager := NewStager(failingCreateFS{fs}, nil)

	if _, err := stager.Stage(context.Background(), server.URL+"/a.mdb"); err == nil {
		t.Fatal("Expected Stage to fail")
	}
	entries, _ := fs.ReadDir("/")
	if len(entries) != 0 {
		t.Errorf("Expected staging area to be empty, found %d entries", len(entries))
	}
}

func TestStageS3Concurrently(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, r.URL.Path)
	}))
	defer server.Close()

	stager := NewStager(osfs.New(t.TempDir()), &S3Config{
		AccessKey: "test",
		SecretKey: "test",
		Region:    "us-east-1",
		Endpoint:  server.URL,
	})

	const n = 8
	staged := make([]*StagedFile, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			staged[i], errs[i] = stager.Stage(context.Background(), fmt.Sprintf("s3://bucket/db%d.mdb", i))
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("Stage %d: %v", i, errs[i])
		}
		data, err := util.ReadFile(stager.fs, staged[i].name)
		if err != nil {
			t.Fatal(err)
		}
		if want := fmt.Sprintf("/bucket/db%d.mdb", i); string(data) != want {
			t.Errorf("Stage %d: expected %q, got %q", i, want, data)
		}
		staged[i].Remove()
	}
}
