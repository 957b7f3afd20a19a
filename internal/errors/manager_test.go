package errors

import (
	stderrors "errors"
	"path/filepath"
	"sync"
	"testing"
)

func TestErrorManager(t *testing.T) {
	em, err := NewErrorManager("")
	if err != nil {
		t.Fatalf("Failed to create error manager: %v", err)
	}

	if err := em.RecordError(4, 2, StageTranslate, 3, stderrors.New("quota exceeded")); err != nil {
		t.Fatalf("Failed to record error: %v", err)
	}

	record, ok := em.GetError(4)
	if !ok {
		t.Fatal("Error record not found")
	}
	if record.Paragraph != 2 || record.Stage != StageTranslate || record.Attempts != 3 {
		t.Errorf("unexpected record: %+v", record)
	}
	if record.ErrorMsg != "quota exceeded" {
		t.Errorf("Expected message 'quota exceeded', got %q", record.ErrorMsg)
	}

	// returned records are copies
	record.Page = 99
	if again, _ := em.GetError(4); again.Page != 4 {
		t.Error("GetError must return a copy")
	}

	if err := em.RemoveError(4); err != nil {
		t.Fatalf("Failed to remove error: %v", err)
	}
	if em.Count() != 0 {
		t.Errorf("Expected 0 records, got %d", em.Count())
	}
}

func TestFailedPagesSorted(t *testing.T) {
	em, _ := NewErrorManager("")
	for _, p := range []int{7, 1, 4} {
		em.RecordError(p, NoParagraph, StageDecode, 0, stderrors.New("bad"))
	}
	// a second failure on the same page replaces the first
	em.RecordError(4, 0, StageSynthesize, 0, stderrors.New("worse"))

	got := em.FailedPages()
	want := []int{1, 4, 7}
	if len(got) != len(want) {
		t.Fatalf("FailedPages() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("FailedPages() = %v, want %v", got, want)
		}
	}

	r, _ := em.GetError(4)
	if r.Stage != StageSynthesize {
		t.Errorf("latest failure should win, got stage %s", r.Stage)
	}
}

func TestPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report", "failures.json")

	em, err := NewErrorManager(path)
	if err != nil {
		t.Fatalf("NewErrorManager: %v", err)
	}
	em.RecordError(5, 0, StageTranslate, 3, stderrors.New("timeout"))

	reloaded, err := NewErrorManager(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Count() != 1 {
		t.Fatalf("Expected 1 persisted record, got %d", reloaded.Count())
	}
	if r, ok := reloaded.GetError(5); !ok || r.ErrorMsg != "timeout" {
		t.Errorf("persisted record mismatch: %+v", r)
	}

	if err := reloaded.ClearAll(); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	empty, _ := NewErrorManager(path)
	if empty.Count() != 0 {
		t.Errorf("ClearAll should persist, got %d records", empty.Count())
	}
}

func TestConcurrentRecord(t *testing.T) {
	em, _ := NewErrorManager("")
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(page int) {
			defer wg.Done()
			em.RecordError(page, NoParagraph, StageWrite, 0, nil)
		}(i)
	}
	wg.Wait()

	if em.Count() != 20 {
		t.Errorf("Expected 20 records, got %d", em.Count())
	}
}

func TestGetStageDisplayName(t *testing.T) {
	if GetStageDisplayName(StageTranslate) != "翻译" {
		t.Errorf("unexpected display name %q", GetStageDisplayName(StageTranslate))
	}
	if GetStageDisplayName(ErrorStage("custom")) != "custom" {
		t.Error("unknown stages should echo their name")
	}
}
