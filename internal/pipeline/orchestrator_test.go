package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"lectern/internal/services"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func newTestOrchestrator(collab *fakeCollab) *Orchestrator {
	return NewOrchestrator(newTestRunner(collab), nil)
}

func unitPrefixes(report *Report) []string {
	var prefixes []string
	for _, unit := range report.Units {
		prefixes = append(prefixes, unit.Unit.Prefix)
	}
	return prefixes
}

func TestProcessTreeConflictNaming(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"lecture1.mp4": "v",
		"lecture1.png": "i",
	})
	collab := &fakeCollab{}

	report, err := newTestOrchestrator(collab).ProcessTree(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if got := unitPrefixes(report); !reflect.DeepEqual(got, []string{"lecture1", "lecture1_images"}) {
		t.Fatalf("unit order %v", got)
	}

	for _, artifact := range []string{
		"lecture1.txt", "lecture1_study.md", "lecture1.pdf",
		"lecture1_images.txt", "lecture1_images_study.md", "lecture1_images.pdf",
	} {
		if _, err := os.Stat(filepath.Join(root, artifact)); err != nil {
			t.Fatalf("missing artifact %s: %v", artifact, err)
		}
	}
}

func TestProcessTreeIdempotence(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"lecture1.mp4":      "v",
		"slides01.png":      "i",
		"slides01.jpg":      "i",
		"week2/podcast.mp3": "a",
	})
	collab := &fakeCollab{}
	orch := newTestOrchestrator(collab)

	first, err := orch.ProcessTree(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if first.Failed() != 0 {
		t.Fatalf("first run failed units: %d", first.Failed())
	}
	callsAfterFirst := collab.totalCalls()

	second, err := orch.ProcessTree(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if collab.totalCalls() != callsAfterFirst {
		t.Fatalf("second run made %d collaborator calls, want 0", collab.totalCalls()-callsAfterFirst)
	}
	if !reflect.DeepEqual(unitPrefixes(first), unitPrefixes(second)) {
		t.Fatalf("unit order changed between runs: %v vs %v", unitPrefixes(first), unitPrefixes(second))
	}
	// The image group's own transcript must not be mistaken for a text
	// source, or a second run would spawn a slides01_images chain.
	for _, stray := range []string{"slides01_images.txt", "slides01_images_study.md", "slides01_images.pdf"} {
		if _, err := os.Stat(filepath.Join(root, stray)); !os.IsNotExist(err) {
			t.Fatalf("second run created %s", stray)
		}
	}
}

func TestProcessTreeThreePassOrder(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		// Pass 3: loose image, stem sorts first but runs last.
		"aaa.gif": "i",
		// Pass 2: image-only group.
		"bbb.png": "i",
		"bbb.jpg": "i",
		// Pass 1: primary group.
		"zzz.mp4": "v",
	})
	collab := &fakeCollab{}

	report, err := newTestOrchestrator(collab).ProcessTree(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"zzz", "bbb", filepath.Base(root) + "_images"}
	if got := unitPrefixes(report); !reflect.DeepEqual(got, want) {
		t.Fatalf("unit order %v, want %v", got, want)
	}
}

func TestProcessTreeLooseImagePooling(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"random.gif": "i",
		"other.bmp":  "i",
	})
	collab := &fakeCollab{}

	report, err := newTestOrchestrator(collab).ProcessTree(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Units) != 1 {
		t.Fatalf("expected one pooled unit, got %d", len(report.Units))
	}
	if collab.ocrCalls != 1 {
		t.Fatalf("ocr calls = %d, want one merged batch", collab.ocrCalls)
	}
	batch := collab.ocrBatches[0]
	if filepath.Base(batch[0]) != "other.bmp" || filepath.Base(batch[1]) != "random.gif" {
		t.Fatalf("batch order %v", batch)
	}
	pooled := filepath.Base(root) + "_images.txt"
	if _, err := os.Stat(filepath.Join(root, pooled)); err != nil {
		t.Fatalf("missing pooled transcript %s: %v", pooled, err)
	}
}

func TestProcessTreePartialFailureIsolation(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"aunit.mp3": "a",
		"bunit.mp3": "a",
	})
	collab := &fakeCollab{failRender: true}

	report, err := newTestOrchestrator(collab).ProcessTree(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if report.Partial() != 2 || report.Failed() != 0 {
		t.Fatalf("partial = %d, failed = %d", report.Partial(), report.Failed())
	}
	// Both units kept their study material despite failed renders.
	for _, name := range []string{"aunit_study.md", "bunit_study.md"} {
		if _, err := os.Stat(filepath.Join(root, name)); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}
}

func TestProcessTreeUnitFailureDoesNotAbortWalk(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"bad.mp3":        "a",
		"sub/good.txt":   "usable text",
		"sub2/other.txt": "more text",
	})
	collab := &fakeCollab{failTranscribe: true}

	report, err := newTestOrchestrator(collab).ProcessTree(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if report.Failed() != 1 {
		t.Fatalf("failed = %d, want 1", report.Failed())
	}
	if report.Succeeded() != 2 {
		t.Fatalf("succeeded = %d, want 2", report.Succeeded())
	}
}

func TestProcessTreeRecursesDirectoryLocalFirst(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"Btop.mp3":       "a",
		"Asub/nested.mp3": "a",
	})
	collab := &fakeCollab{}

	report, err := newTestOrchestrator(collab).ProcessTree(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	// The root's own units run before any subdirectory, even one that sorts
	// earlier by name.
	want := []string{"Btop", "nested"}
	if got := unitPrefixes(report); !reflect.DeepEqual(got, want) {
		t.Fatalf("unit order %v, want %v", got, want)
	}
}

func TestProcessTreeCancellationStopsBetweenUnits(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"one.mp3": "a",
		"two.mp3": "a",
	})
	collab := &fakeCollab{}
	orch := newTestOrchestrator(collab)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := orch.ProcessTree(ctx, root)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if report == nil || len(report.Units) != 0 {
		t.Fatalf("expected empty partial report, got %+v", report)
	}
}

func TestProcessTreeCarriesRunID(t *testing.T) {
	root := t.TempDir()
	ctx := services.WithRunID(context.Background(), "run-7")

	report, err := newTestOrchestrator(&fakeCollab{}).ProcessTree(ctx, root)
	if err != nil {
		t.Fatal(err)
	}
	if report.RunID != "run-7" {
		t.Fatalf("run id = %q", report.RunID)
	}
}

func TestProcessTreeRejectsMissingRoot(t *testing.T) {
	orch := newTestOrchestrator(&fakeCollab{})
	if _, err := orch.ProcessTree(context.Background(), filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing root")
	}
}
