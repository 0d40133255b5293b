package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	json "github.com/goccy/go-json"

	"github.com/nickyhof/ADOBridge"
	"github.com/nickyhof/ADOBridge/core"
	"github.com/nickyhof/ADOBridge/provider"
	"github.com/nickyhof/ADOBridge/ps"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run is the whole worker: one envelope in, one document out. It returns
// the process exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("adodb", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	logFile := flags.String("log", "", "Diagnostic log file (discarded if empty)")
	charset := flags.String("charset", core.DefaultCharset, "Character set for binary fields")
	journalDir := flags.String("journal", "", "Directory of a git journal for successful writes")
	userName := flags.String("name", "ADOBridge", "User name for journal commits")
	userEmail := flags.String("email", "worker@adobridge.local", "User email for journal commits")
	s3Region := flags.String("s3-region", "", "AWS region for s3:// Data Sources")
	s3Endpoint := flags.String("s3-endpoint", "", "Custom S3-compatible endpoint")
	s3AccessKey := flags.String("s3-access-key", "", "S3 access key (default credential chain if empty)")
	s3SecretKey := flags.String("s3-secret-key", "", "S3 secret key")
	showVersion := flags.Bool("version", false, "Show version and exit")

	if err := flags.Parse(args); err != nil {
		return fail(stderr, fmt.Errorf("invalid arguments: %w", err))
	}
	if *showVersion {
		fmt.Fprintf(stdout, "ADOBridge worker v%s\n", Version)
		return core.ExitOK
	}

	logger, closeLog := openLogger(*logFile, os.TempDir())
	defer closeLog()

	router, err := provider.NewDefaultRouter(&provider.S3Config{
		AccessKey: *s3AccessKey,
		SecretKey: *s3SecretKey,
		Region:    *s3Region,
		Endpoint:  *s3Endpoint,
	})
	if err != nil {
		logger.Printf("staging directory: %v", err)
		router = provider.NewRouter(nil)
	}

	opts := []ADOBridge.Option{
		ADOBridge.WithLogger(logger),
		ADOBridge.WithCharset(*charset),
	}
	if *journalDir != "" {
		journal, err := ps.NewFileJournal(*journalDir)
		if err != nil {
			logger.Printf("Failed to initialize journal: %v", err)
		} else {
			opts = append(opts, ADOBridge.WithJournal(journal, core.Identity{
				Name:  *userName,
				Email: *userEmail,
			}))
		}
	}

	engine, err := ADOBridge.Open(router, opts...).Engine()
	if err != nil {
		return fail(stderr, err)
	}

	payload, err := io.ReadAll(stdin)
	if err != nil {
		logger.Printf("read stdin: %v", err)
		return fail(stderr, fmt.Errorf("read input: %w", err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return engine.Run(ctx, flags.Arg(0), payload, stdout, stderr)
}

// fallbackLog is written under the temp dir when the -log file cannot be
// opened, since stderr is reserved for the error record.
const fallbackLog = "adodb.log"

// openLogger returns a logger writing to path, or to fallbackLog in
// fallbackDir when path cannot be opened. An empty path discards.
func openLogger(path, fallbackDir string) (*log.Logger, func()) {
	if path == "" {
		return log.New(io.Discard, "", log.LstdFlags), func() {}
	}
	prefix := fmt.Sprintf("adodb[%d] ", os.Getpid())

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err == nil {
		return log.New(f, prefix, log.LstdFlags|log.Lmicroseconds), func() { f.Close() }
	}
	openErr := err

	f, err = os.OpenFile(filepath.Join(fallbackDir, fallbackLog), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return log.New(io.Discard, "", log.LstdFlags), func() {}
	}
	logger := log.New(f, prefix, log.LstdFlags|log.Lmicroseconds)
	logger.Printf("cannot open log file %s, logging here instead: %v", path, openErr)
	return logger, func() { f.Close() }
}

// fail reports a failure that happens before the engine takes over.
func fail(stderr io.Writer, err error) int {
	record := core.RecordOf(err)
	if data, merr := json.Marshal(record); merr == nil {
		stderr.Write(data)
	}
	return record.ExitCode()
}
