package schema

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"time"
)

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithFileSystem sets the fs.FS used for SourceKindFS sources.
func WithFileSystem(fsys fs.FS) LoaderOption {
	return func(l *Loader) {
		l.fs = fsys
	}
}

// WithHTTPClient enables URL sources using the supplied client.
func WithHTTPClient(client *http.Client) LoaderOption {
	return func(l *Loader) {
		l.http = client
	}
}

// WithRequestTimeout bounds URL fetches.
func WithRequestTimeout(timeout time.Duration) LoaderOption {
	return func(l *Loader) {
		l.timeout = timeout
	}
}

// Loader reads schema documents from files, an fs.FS, or HTTP endpoints and
// decodes them into FormSchema values.
type Loader struct {
	fs      fs.FS
	http    *http.Client
	timeout time.Duration
}

// NewLoader constructs a Loader. URL sources stay disabled unless an HTTP
// client is supplied.
func NewLoader(options ...LoaderOption) *Loader {
	l := &Loader{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(l)
	}
	return l
}

// Load fetches the document behind src and decodes it.
func (l *Loader) Load(ctx context.Context, src Source) (FormSchema, error) {
	doc, err := l.Document(ctx, src)
	if err != nil {
		return FormSchema{}, err
	}
	return doc.Decode()
}

// Document fetches the raw document behind src without decoding it.
func (l *Loader) Document(ctx context.Context, src Source) (Document, error) {
	if src == nil {
		return Document{}, errors.New("schema loader: source is nil")
	}
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}

	var (
		data []byte
		err  error
	)

	switch src.Kind() {
	case SourceKindFile:
		data, err = os.ReadFile(src.Location())
	case SourceKindFS:
		if l.fs == nil {
			return Document{}, errors.New("schema loader: fs.FS is not configured")
		}
		data, err = fs.ReadFile(l.fs, src.Location())
	case SourceKindURL:
		if l.http == nil {
			return Document{}, errors.New("schema loader: http support disabled")
		}
		data, err = l.loadHTTP(ctx, src.Location())
	default:
		err = fmt.Errorf("schema loader: unsupported source kind %q", src.Kind())
	}
	if err != nil {
		return Document{}, fmt.Errorf("schema loader: read %s: %w", src.Location(), err)
	}

	return NewDocument(src, data)
}

func (l *Loader) loadHTTP(ctx context.Context, url string) ([]byte, error) {
	reqCtx := ctx
	if l.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := l.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.New("unexpected status " + resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// LoadFile is a convenience wrapper for on-disk schema documents.
func LoadFile(ctx context.Context, path string) (FormSchema, error) {
	return NewLoader().Load(ctx, SourceFromFile(path))
}

// Parse decodes raw bytes in the given format.
func Parse(raw []byte, format Format) (FormSchema, error) {
	name := "schema.yaml"
	if format == FormatJSON {
		name = "schema.json"
	}
	doc, err := NewDocument(SourceFromFS(name), raw)
	if err != nil {
		return FormSchema{}, err
	}
	return doc.Decode()
}
