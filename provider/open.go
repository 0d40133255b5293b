package provider

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-git/go-billy/v6/osfs"

	"github.com/nickyhof/ADOBridge/core"
)

// Router picks a provider by the connection string's Provider key.
// Names without a registered provider go to ADODB, which knows how to
// load the OLE DB providers installed on the machine.
type Router struct {
	mu       sync.RWMutex
	routes   map[string]core.Provider
	fallback core.Provider
	stager   *Stager
}

// NewRouter returns a router with DuckDB registered. stager may be nil,
// in which case remote Data Sources are rejected.
func NewRouter(stager *Stager) *Router {
	r := &Router{
		routes:   make(map[string]core.Provider),
		fallback: ADODB{},
		stager:   stager,
	}
	r.Register("DuckDB", DuckDB{})
	return r
}

// NewDefaultRouter returns a router that stages remote Data Sources in a
// directory under the system temp dir.
func NewDefaultRouter(cfg *S3Config) (*Router, error) {
	dir := filepath.Join(os.TempDir(), "adobridge-staging")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return NewRouter(NewStager(osfs.New(dir), cfg)), nil
}

// Register routes connection strings whose Provider is name to p.
func (r *Router) Register(name string, p core.Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[strings.ToLower(name)] = p
}

func (r *Router) route(name string) core.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.routes[strings.ToLower(strings.TrimSpace(name))]; ok {
		return p
	}
	return r.fallback
}

func (r *Router) Open(ctx context.Context, connection string) (core.Connection, error) {
	cs := ParseConnectionString(connection)
	p := r.route(cs.Provider())

	source := cs.DataSource()
	if !IsRemote(source) {
		return p.Open(ctx, connection)
	}
	if r.stager == nil {
		return nil, core.NewProviderError(core.CodeFileNotFound, "Remote Data Sources are not enabled: %s", source)
	}

	staged, err := r.stager.Stage(ctx, source)
	if err != nil {
		return nil, err
	}
	cs.Set(cs.DataSourceKey(), staged.Path)
	conn, err := p.Open(ctx, cs.String())
	if err != nil {
		return nil, errors.Join(err, staged.Remove())
	}
	return &stagedConnection{Connection: conn, ctx: ctx, file: staged}, nil
}

// stagedConnection writes a modified S3 Data Source back when closed
// and removes the staged copy.
type stagedConnection struct {
	core.Connection
	ctx     context.Context
	file    *StagedFile
	inTrans bool
	pending bool
	dirty   bool
	closed  bool
}

func (c *stagedConnection) Execute(sql string) error {
	if err := c.Connection.Execute(sql); err != nil {
		return err
	}
	if c.inTrans {
		c.pending = true
	} else {
		c.dirty = true
	}
	return nil
}

func (c *stagedConnection) BeginTrans() error {
	if err := c.Connection.BeginTrans(); err != nil {
		return err
	}
	c.inTrans = true
	c.pending = false
	return nil
}

func (c *stagedConnection) CommitTrans() error {
	if err := c.Connection.CommitTrans(); err != nil {
		return err
	}
	c.inTrans = false
	c.dirty = c.dirty || c.pending
	return nil
}

func (c *stagedConnection) RollbackTrans() error {
	c.inTrans = false
	c.pending = false
	return c.Connection.RollbackTrans()
}

func (c *stagedConnection) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	err := c.Connection.Close()
	if err == nil && c.dirty && detectScheme(c.file.Source) == schemeS3 {
		err = c.file.Sync(c.ctx)
	}
	return errors.Join(err, c.file.Remove())
}
