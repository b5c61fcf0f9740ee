package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	args = append([]string{"--env-file", "testdata/missing.env"}, args...)
	code := run(context.Background(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestValidateCommand(t *testing.T) {
	code, out, _ := runCLI(t, "validate", "testdata/contact.yaml")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, out)
	}
	if !strings.HasPrefix(out, "✓ contact: 5 fields, fingerprint ") {
		t.Fatalf("unexpected output %q", out)
	}

	code, out, errOut := runCLI(t, "validate", "testdata/broken.yaml")
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	for _, want := range []string{"choice field requires at least one option", "duplicate field id"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if errOut != "" {
		t.Fatalf("schema issues should only be printed once, got stderr %q", errOut)
	}
}

func TestCheckCommandAccepts(t *testing.T) {
	code, out, errOut := runCLI(t, "check", "testdata/contact.yaml",
		"name=Ada Lovelace", "email=ada@example.com", "message=Hi", "newsletter=yes")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d\nstdout:\n%s\nstderr:\n%s", code, out, errOut)
	}
	for _, want := range []string{
		"✓ Name\n",
		"✓ Email\n",
		"[info] Brief content, consider adding more detail (60%)",
		"accepted\n",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestCheckCommandRejectsAsJSON(t *testing.T) {
	code, out, _ := runCLI(t, "check", "--json", "testdata/contact.yaml", "name=A", "email=ada")
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	var result struct {
		Accepted       bool              `json:"accepted"`
		BlockingErrors []string          `json:"blockingErrors"`
		Errors         map[string]string `json:"errors"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode result: %v\n%s", err, out)
	}
	if result.Accepted {
		t.Fatal("expected rejection")
	}
	if got := strings.Join(result.BlockingErrors, ","); got != "name,email" {
		t.Fatalf("unexpected blocking errors %q", got)
	}
	if result.Errors["email"] != "Please enter a valid email address" {
		t.Fatalf("unexpected email error %q", result.Errors["email"])
	}
}

func TestCheckCommandUnknownField(t *testing.T) {
	code, _, errOut := runCLI(t, "check", "testdata/contact.yaml", "phone=123")
	if code != 1 || !strings.Contains(errOut, `unknown field "phone"`) {
		t.Fatalf("expected unknown field error, got %d %q", code, errOut)
	}
}

func TestRenderCommand(t *testing.T) {
	code, out, errOut := runCLI(t, "render", "testdata/contact.yaml", "email=ada")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, errOut)
	}
	for _, want := range []string{`name="email"`, `value="ada"`, "Please enter a valid email address"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestJSONSchemaCommand(t *testing.T) {
	code, out, _ := runCLI(t, "jsonschema")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("expected JSON output: %v", err)
	}
}

func TestMetricsFlag(t *testing.T) {
	code, _, errOut := runCLI(t, "--metrics", "check", "testdata/contact.yaml", "name=Ada", "email=ada@example.com")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, errOut)
	}
	if !strings.Contains(errOut, `formadvisor_submission_decisions_total{decision="accepted"} 1`) {
		t.Fatalf("expected decision metric in:\n%s", errOut)
	}
}
