package ADOBridge

import (
	"io"
	"log"

	"github.com/nickyhof/ADOBridge/core"
	"github.com/nickyhof/ADOBridge/db"
	"github.com/nickyhof/ADOBridge/ps"
)

type Instance struct {
	Provider core.Provider
	Charset  string
	Logger   *log.Logger
	Journal  *ps.Journal
	Identity core.Identity
}

type Option func(*Instance)

func WithLogger(logger *log.Logger) Option {
	return func(instance *Instance) { instance.Logger = logger }
}

// WithCharset sets the character set binary fields are decoded with.
func WithCharset(charset string) Option {
	return func(instance *Instance) { instance.Charset = charset }
}

func WithJournal(journal *ps.Journal, identity core.Identity) Option {
	return func(instance *Instance) {
		instance.Journal = journal
		instance.Identity = identity
	}
}

func Open(provider core.Provider, opts ...Option) *Instance {
	instance := &Instance{
		Provider: provider,
		Charset:  core.DefaultCharset,
		Logger:   log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(instance)
	}
	return instance
}

func (instance *Instance) Engine() (*db.Engine, error) {
	decoder, err := core.NewDecoder(instance.Charset)
	if err != nil {
		return nil, err
	}
	opts := []db.Option{
		db.WithLogger(instance.Logger),
		db.WithTranslator(db.NewTranslator(decoder)),
	}
	if instance.Journal != nil {
		opts = append(opts, db.WithJournal(instance.Journal, instance.Identity))
	}
	return db.NewEngine(instance.Provider, opts...), nil
}
