package schema_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goliatone/go-formadvisor/pkg/schema"
)

type reload struct {
	form schema.FormSchema
	err  error
}

func nextReload(t *testing.T, reloads <-chan reload) reload {
	t.Helper()
	select {
	case r := <-reloads:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
		return reload{}
	}
}

// replaceFile swaps content in with a rename so the watcher never reads a
// half-written file.
func replaceFile(t *testing.T, path, content string) {
	t.Helper()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("rename: %v", err)
	}
}

func TestWatcherDeliversNewSchemaOnChange(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "contact.yaml")
	if err := os.WriteFile(path, []byte(contactYAML), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloads := make(chan reload, 16)
	w, err := schema.NewWatcher(path, func(form schema.FormSchema, err error) {
		select {
		case reloads <- reload{form: form, err: err}:
		case <-ctx.Done():
		}
	}, schema.WithWatchDebounce(10*time.Millisecond))
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	initial := nextReload(t, reloads)
	if initial.err != nil {
		t.Fatalf("initial load: %v", initial.err)
	}
	if len(initial.form.Fields) != 3 {
		t.Fatalf("expected 3 fields, got %d", len(initial.form.Fields))
	}

	updated := contactYAML + `  - id: message
    type: textarea
    label: Message
`
	replaceFile(t, path, updated)

	var changed reload
	for changed = nextReload(t, reloads); changed.err == nil && changed.form.Fingerprint() == initial.form.Fingerprint(); {
		changed = nextReload(t, reloads)
	}
	if changed.err != nil {
		t.Fatalf("reload: %v", changed.err)
	}
	if len(changed.form.Fields) != 4 || changed.form.Fields[3].ID != "message" {
		t.Fatalf("expected appended message field, got %+v", changed.form.FieldIDs())
	}
	if len(initial.form.Fields) != 3 {
		t.Fatalf("previously delivered schema was modified")
	}

	replaceFile(t, path, "fields: [\n")
	var broken reload
	for broken = nextReload(t, reloads); broken.err == nil; {
		broken = nextReload(t, reloads)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}
}

func TestNewWatcherRequiresPathAndHandler(t *testing.T) {
	t.Parallel()

	if _, err := schema.NewWatcher("", func(schema.FormSchema, error) {}); err == nil {
		t.Fatal("expected error for empty path")
	}
	if _, err := schema.NewWatcher("form.yaml", nil); err == nil {
		t.Fatal("expected error for nil handler")
	}
}
