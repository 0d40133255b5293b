package core

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultCharset mirrors the automation layer's text stream default,
// which reads UTF-16LE and honours a byte order mark.
const DefaultCharset = "unicode"

var ErrStreamClosed = errors.New("stream is closed")

// Decoder turns binary field payloads into text through a transient stream.
type Decoder struct {
	charset  string
	encoding encoding.Encoding
	pool     sync.Pool
}

// NewDecoder returns a decoder for the named charset. An empty name
// selects DefaultCharset.
func NewDecoder(charset string) (*Decoder, error) {
	if charset == "" {
		charset = DefaultCharset
	}

	var enc encoding.Encoding
	switch strings.ToLower(charset) {
	case "unicode", "utf-16", "utf-16le":
		enc = unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
	case "utf-16be", "unicodefffe":
		enc = unicode.UTF16(unicode.BigEndian, unicode.UseBOM)
	default:
		var err error
		enc, err = ianaindex.IANA.Encoding(charset)
		if err != nil {
			return nil, fmt.Errorf("unknown charset %q: %w", charset, err)
		}
		if enc == nil {
			return nil, fmt.Errorf("unsupported charset %q", charset)
		}
	}

	return &Decoder{
		charset:  charset,
		encoding: enc,
		pool: sync.Pool{
			New: func() any { return new(bytes.Buffer) },
		},
	}, nil
}

// Charset returns the configured charset name.
func (d *Decoder) Charset() string {
	return d.charset
}

// Stream is a binary-in, text-out buffer that is only valid inside
// Decoder.WithStream.
type Stream struct {
	buf      *bytes.Buffer
	encoding encoding.Encoding
	closed   bool
}

// Write appends binary data at the current position.
func (s *Stream) Write(p []byte) (int, error) {
	if s.closed {
		return 0, ErrStreamClosed
	}
	return s.buf.Write(p)
}

// ReadText rewinds and reads the whole stream as text.
func (s *Stream) ReadText() (string, error) {
	if s.closed {
		return "", ErrStreamClosed
	}
	reader := transform.NewReader(bytes.NewReader(s.buf.Bytes()), s.encoding.NewDecoder())
	text, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(text), nil
}

// WithStream opens a stream, hands it to fn and releases it when fn
// returns, whether or not fn fails.
func (d *Decoder) WithStream(fn func(*Stream) error) error {
	buf := d.pool.Get().(*bytes.Buffer)
	buf.Reset()
	stream := &Stream{buf: buf, encoding: d.encoding}
	defer func() {
		stream.closed = true
		stream.buf = nil
		buf.Reset()
		d.pool.Put(buf)
	}()
	return fn(stream)
}

// Decode reads a binary payload back as text.
func (d *Decoder) Decode(payload []byte) (string, error) {
	var text string
	err := d.WithStream(func(s *Stream) error {
		if _, err := s.Write(payload); err != nil {
			return err
		}
		var err error
		text, err = s.ReadText()
		return err
	})
	return text, err
}
