package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"sync"
	"testing"
)

var captureStdoutMu sync.Mutex

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	captureStdoutMu.Lock()
	defer captureStdoutMu.Unlock()

	orig := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}

	os.Stdout = w

	outputCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		var buf bytes.Buffer
		_, copyErr := io.Copy(&buf, r)
		_ = r.Close()
		if copyErr != nil {
			errCh <- copyErr
			return
		}
		outputCh <- buf.String()
	}()

	fn()

	os.Stdout = orig
	_ = w.Close()
	select {
	case err := <-errCh:
		t.Fatalf("io.Copy: %v", err)
		return ""
	case output := <-outputCh:
		return output
	}
}

func TestHandleErrorJSONMode(t *testing.T) {
	prevJSON := jsonOutput
	t.Cleanup(func() {
		jsonOutput = prevJSON
	})
	jsonOutput = true

	var returned error
	out := captureStdout(t, func() {
		returned = handleError(ErrBookNotFound, errors.New("no such book"), "Run 'mgn list'")
	})
	if returned != nil {
		t.Fatalf("expected nil error in JSON mode, got %v", returned)
	}

	var resp Response
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("failed to parse JSON output: %v; out=%s", err, out)
	}
	if resp.OK {
		t.Fatal("expected ok=false")
	}
	if resp.Error == nil || resp.Error.Code != ErrBookNotFound {
		t.Fatalf("expected error code %s, got %+v", ErrBookNotFound, resp.Error)
	}
	if resp.Error.Message != "no such book" {
		t.Fatalf("expected message %q, got %q", "no such book", resp.Error.Message)
	}
	if resp.Error.Hint != "Run 'mgn list'" {
		t.Fatalf("expected hint to survive, got %q", resp.Error.Hint)
	}
}

func TestHandleErrorTextMode(t *testing.T) {
	prevJSON := jsonOutput
	t.Cleanup(func() {
		jsonOutput = prevJSON
	})
	jsonOutput = false

	err := handleError(ErrSyncFailed, errors.New("boom"), "")
	if err == nil || err.Error() != "boom" {
		t.Fatalf("expected the error back in text mode, got %v", err)
	}
}

func TestInfofRespectsQuiet(t *testing.T) {
	prevQuiet, prevJSON := quiet, jsonOutput
	t.Cleanup(func() {
		quiet, jsonOutput = prevQuiet, prevJSON
	})

	quiet, jsonOutput = false, false
	out := captureStdout(t, func() {
		infof("processed %d", 3)
	})
	if out != "processed 3\n" {
		t.Fatalf("expected progress line, got %q", out)
	}

	quiet = true
	out = captureStdout(t, func() {
		infof("should not appear")
	})
	if out != "" {
		t.Fatalf("expected quiet mode to suppress output, got %q", out)
	}

	quiet, jsonOutput = false, true
	out = captureStdout(t, func() {
		infof("should not appear either")
	})
	if out != "" {
		t.Fatalf("expected JSON mode to suppress progress output, got %q", out)
	}
}
