// Remote Data Source support for S3 and HTTP URLs.
package provider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/util"

	"github.com/nickyhof/ADOBridge/core"
)

// S3Config contains S3 authentication configuration. Empty fields fall
// back to the AWS default chain.
type S3Config struct {
	AccessKey string
	SecretKey string
	Region    string
	Endpoint  string // Optional: custom S3-compatible endpoint
}

// urlScheme represents the scheme of a Data Source
type urlScheme string

const (
	schemeS3    urlScheme = "s3"
	schemeHTTP  urlScheme = "http"
	schemeHTTPS urlScheme = "https"
	schemeLocal urlScheme = "local" // no scheme, local path
)

// detectScheme detects the URL scheme from a Data Source
func detectScheme(source string) urlScheme {
	lower := strings.ToLower(source)
	switch {
	case strings.HasPrefix(lower, "s3://"):
		return schemeS3
	case strings.HasPrefix(lower, "https://"):
		return schemeHTTPS
	case strings.HasPrefix(lower, "http://"):
		return schemeHTTP
	default:
		return schemeLocal
	}
}

// IsRemote reports whether a Data Source must be staged before opening.
func IsRemote(source string) bool {
	return detectScheme(source) != schemeLocal
}

// parseS3URL parses s3://bucket/key into bucket and key parts
func parseS3URL(url string) (bucket, key string, err error) {
	rest := url[len("s3://"):]
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", core.NewProviderError(core.CodeInvalidArgument, "invalid S3 URL: %s", url)
	}
	return parts[0], parts[1], nil
}

// Stager copies remote database files into a filesystem so that a
// provider can open them by path.
type Stager struct {
	fs     billy.Filesystem
	s3     *S3Config
	http   *http.Client
	seq    atomic.Int64

	mu     sync.Mutex // guards client
	client *s3.Client
}

// NewStager stages files on fs. Staged paths are reported under
// fs.Root(), so fs should be an osfs rooted at a real directory whenever
// a native provider opens the result.
func NewStager(fs billy.Filesystem, cfg *S3Config) *Stager {
	return &Stager{
		fs: fs,
		s3: cfg,
		http: &http.Client{
			Timeout: 5 * time.Minute, // generous timeout for large files
		},
	}
}

// StagedFile is a local copy of a remote Data Source.
type StagedFile struct {
	stager *Stager
	dir    string
	name   string
	Source string
	// Path is the copy's location as seen by the operating system.
	Path string
}

// Stage downloads source and returns its local copy.
func (s *Stager) Stage(ctx context.Context, source string) (*StagedFile, error) {
	body, err := s.open(ctx, source)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	base := path.Base(strings.SplitN(source, "?", 2)[0])
	if base == "." || base == "/" {
		base = "database"
	}
	dir := fmt.Sprintf("stage-%d-%d", time.Now().UnixNano(), s.seq.Add(1))
	name := s.fs.Join(dir, base)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("stage %s: %w", source, err)
	}

	f, err := s.fs.Create(name)
	if err != nil {
		util.RemoveAll(s.fs, dir)
		return nil, fmt.Errorf("stage %s: %w", source, err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		util.RemoveAll(s.fs, dir)
		return nil, fmt.Errorf("stage %s: %w", source, err)
	}
	if err := f.Close(); err != nil {
		util.RemoveAll(s.fs, dir)
		return nil, fmt.Errorf("stage %s: %w", source, err)
	}
	return &StagedFile{
		stager: s,
		dir:    dir,
		name:   name,
		Source: source,
		Path:   s.fs.Join(s.fs.Root(), name),
	}, nil
}

// open opens a reader for a remote Data Source
func (s *Stager) open(ctx context.Context, source string) (io.ReadCloser, error) {
	switch detectScheme(source) {
	case schemeHTTP, schemeHTTPS:
		return s.openHTTP(ctx, source)
	case schemeS3:
		return s.openS3(ctx, source)
	default:
		return nil, core.NewProviderError(core.CodeInvalidArgument, "unsupported Data Source URL: %s", source)
	}
}

func (s *Stager) openHTTP(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, core.NewProviderError(core.CodeInvalidArgument, "HTTP request failed: %v", err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, core.NewProviderError(core.CodeConnectionFailed, "HTTP request failed: %v", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return resp.Body, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		resp.Body.Close()
		return nil, core.NewProviderError(core.CodeAccessDenied, "HTTP request returned status %d", resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, core.NewProviderError(core.CodeFileNotFound, "HTTP request returned status %d", resp.StatusCode)
	default:
		resp.Body.Close()
		return nil, core.NewProviderError(core.CodeConnectionFailed, "HTTP request returned status %d", resp.StatusCode)
	}
}

// s3Client creates the S3 client on first use. A failed configuration
// load is retried on the next call.
func (s *Stager) s3Client(ctx context.Context) (*s3.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}
	cfg := s.s3
	var opts []func(*config.LoadOptions) error

	if cfg != nil && cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg != nil && cfg.AccessKey != "" && cfg.SecretKey != "" {
		creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		opts = append(opts, config.WithCredentialsProvider(creds))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, core.NewProviderError(core.CodeConnectionFailed, "failed to load AWS config: %v", err)
	}

	var clientOpts []func(*s3.Options)
	if cfg != nil && cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // For S3-compatible services
		})
	}

	s.client = s3.NewFromConfig(awsCfg, clientOpts...)
	return s.client, nil
}

func (s *Stager) openS3(ctx context.Context, url string) (io.ReadCloser, error) {
	bucket, key, err := parseS3URL(url)
	if err != nil {
		return nil, err
	}
	client, err := s.s3Client(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, core.NewProviderError(core.CodeConnectionFailed, "failed to get S3 object: %v", err)
	}
	return resp.Body, nil
}

// Sync uploads the staged file back to its S3 source. HTTP sources are
// read-only.
func (f *StagedFile) Sync(ctx context.Context) error {
	if detectScheme(f.Source) != schemeS3 {
		return core.NewProviderError(core.CodeAccessDenied, "HTTP/HTTPS Data Sources are read-only: %s", f.Source)
	}
	bucket, key, err := parseS3URL(f.Source)
	if err != nil {
		return err
	}
	data, err := util.ReadFile(f.stager.fs, f.name)
	if err != nil {
		return fmt.Errorf("read staged %s: %w", f.Path, err)
	}
	client, err := f.stager.s3Client(ctx)
	if err != nil {
		return err
	}
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return core.NewProviderError(core.CodeConnectionFailed, "failed to upload to S3: %v", err)
	}
	return nil
}

// Remove deletes the staged copy and its directory.
func (f *StagedFile) Remove() error {
	return util.RemoveAll(f.stager.fs, f.dir)
}
