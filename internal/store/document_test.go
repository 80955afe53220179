package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/calvinalkan/tillbook/internal/fs"
)

func newTestDoc(t *testing.T) (*DocumentFile, string) {
	t.Helper()

	return NewDocumentFile(fs.NewReal(), 5*time.Second), t.TempDir()
}

func Test_DocumentFile_ReadAll_Returns_Nil_For_Missing_File(t *testing.T) {
	t.Parallel()

	doc, dir := newTestDoc(t)

	data, err := doc.ReadAll(filepath.Join(dir, "never-written.json"))
	if err != nil {
		t.Fatalf("ReadAll on missing file: %v", err)
	}

	if data != nil {
		t.Fatalf("ReadAll on missing file = %q, want nil", data)
	}
}

func Test_DocumentFile_ReplaceAll_Then_ReadAll_Round_Trips(t *testing.T) {
	t.Parallel()

	doc, dir := newTestDoc(t)
	path := filepath.Join(dir, "doc.json")

	want := []byte(`["hello"]`)

	if err := doc.ReplaceAll(path, want); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	got, err := doc.ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}

	if string(got) != string(want) {
		t.Fatalf("ReadAll = %q, want %q", got, want)
	}
}

func Test_DocumentFile_ReplaceAll_Truncates_Longer_Previous_Content(t *testing.T) {
	t.Parallel()

	doc, dir := newTestDoc(t)
	path := filepath.Join(dir, "doc.json")

	if err := doc.ReplaceAll(path, []byte(`["a long first document"]`)); err != nil {
		t.Fatalf("first ReplaceAll: %v", err)
	}

	if err := doc.ReplaceAll(path, []byte(`[]`)); err != nil {
		t.Fatalf("second ReplaceAll: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	if string(got) != `[]` {
		t.Fatalf("file content = %q, want %q (stale bytes after truncate?)", got, `[]`)
	}
}

func Test_DocumentFile_ReadModifyWrite_Skips_Write_When_Fn_Returns_Nil(t *testing.T) {
	t.Parallel()

	doc, dir := newTestDoc(t)
	path := filepath.Join(dir, "doc.json")

	if err := doc.ReplaceAll(path, []byte(`["keep"]`)); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	err := doc.ReadModifyWrite(path, func(current []byte) ([]byte, error) {
		if string(current) != `["keep"]` {
			t.Errorf("fn saw %q, want %q", current, `["keep"]`)
		}

		return nil, nil
	})
	if err != nil {
		t.Fatalf("ReadModifyWrite: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	if string(got) != `["keep"]` {
		t.Fatalf("file changed by read-only ReadModifyWrite: %q", got)
	}
}

func Test_DocumentFile_ReadModifyWrite_Aborts_Without_Writing_On_Fn_Error(t *testing.T) {
	t.Parallel()

	doc, dir := newTestDoc(t)
	path := filepath.Join(dir, "doc.json")

	if err := doc.ReplaceAll(path, []byte(`["original"]`)); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	errBoom := errors.New("boom")

	err := doc.ReadModifyWrite(path, func([]byte) ([]byte, error) {
		return []byte("must not land"), errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("ReadModifyWrite err = %v, want %v", err, errBoom)
	}

	got, readErr := os.ReadFile(path)
	if readErr != nil {
		t.Fatalf("ReadFile: %v", readErr)
	}

	if string(got) != `["original"]` {
		t.Fatalf("file content = %q, want untouched %q", got, `["original"]`)
	}
}

func Test_DocumentFile_Concurrent_ReadModifyWrites_Lose_No_Updates(t *testing.T) {
	t.Parallel()

	doc, dir := newTestDoc(t)
	path := filepath.Join(dir, "doc.json")

	const writers = 25

	var wg sync.WaitGroup

	for i := 0; i < writers; i++ {
		i := i

		wg.Add(1)

		go func() {
			defer wg.Done()

			err := doc.ReadModifyWrite(path, func(current []byte) ([]byte, error) {
				lines, err := DecodeRecords[string](path, current)
				if err != nil {
					return nil, err
				}

				lines = append(lines, fmt.Sprintf("update-%d", i))

				return EncodeRecords(lines)
			})
			if err != nil {
				t.Errorf("ReadModifyWrite: %v", err)
			}
		}()
	}

	wg.Wait()

	data, err := doc.ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}

	lines, err := DecodeRecords[string](path, data)
	if err != nil {
		t.Fatalf("DecodeRecords: %v", err)
	}

	if len(lines) != writers {
		t.Fatalf("got %d updates, want %d (lost or duplicated writes)", len(lines), writers)
	}
}

// A reader overlapping in-progress rewrites must always see a fully
// formed JSON array: either the pre-write or the post-write document,
// never a torn one.
func Test_DocumentFile_Readers_Never_Observe_Partial_Writes(t *testing.T) {
	t.Parallel()

	doc, dir := newTestDoc(t)
	path := filepath.Join(dir, "doc.json")

	if err := doc.ReplaceAll(path, []byte(`[]`)); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	done := make(chan struct{})

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()

		for i := 0; ; i++ {
			select {
			case <-done:
				return
			default:
			}

			err := doc.ReadModifyWrite(path, func(current []byte) ([]byte, error) {
				lines, err := DecodeRecords[string](path, current)
				if err != nil {
					return nil, err
				}

				return EncodeRecords(append(lines, fmt.Sprintf("sale-%04d", i)))
			})
			if err != nil {
				t.Errorf("writer: %v", err)

				return
			}
		}
	}()

	deadline := time.Now().Add(250 * time.Millisecond)

	for time.Now().Before(deadline) {
		data, err := doc.ReadAll(path)
		if err != nil {
			t.Fatalf("ReadAll: %v", err)
		}

		if !json.Valid(data) {
			t.Fatalf("reader observed a torn document: %q", data)
		}
	}

	close(done)
	wg.Wait()
}
