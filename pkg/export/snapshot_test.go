package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/kinview/pkg/config"
	"github.com/vanderheijden86/kinview/pkg/layout"
	"github.com/vanderheijden86/kinview/pkg/model"
	"github.com/vanderheijden86/kinview/pkg/testutil"
)

func fixtureLayout(t *testing.T) (map[model.PersonID]model.Person, *layout.Result) {
	t.Helper()
	people, marriages := testutil.GenerateForest(testutil.TreeSpec{
		Seed: 21, Roots: 1, Generations: 3, MaxChildren: 2, MarriageRate: 0.5,
	})
	eng := layout.New(layout.SizingFromConfig(config.DefaultConfig().Layout))
	res := eng.Compute(people, marriages)

	byID := make(map[model.PersonID]model.Person, len(people))
	for _, p := range people {
		byID[p.ID] = p
	}
	return byID, res
}

func TestSaveSnapshotSVG(t *testing.T) {
	people, res := fixtureLayout(t)
	path := filepath.Join(t.TempDir(), "tree.svg")

	err := SaveSnapshot(SnapshotOptions{
		Path:          path,
		Title:         "Fixture Forest",
		People:        people,
		Layout:        res,
		LayoutVersion: 7,
	})
	if err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	svg := string(data)

	for _, want := range []string{"<svg", "Fixture Forest", "layout v7", "</svg>"} {
		if !strings.Contains(svg, want) {
			t.Errorf("svg missing %q", want)
		}
	}
	// One rect per node at minimum (plus backdrop and header).
	if got := strings.Count(svg, "<rect"); got < len(res.Nodes) {
		t.Errorf("svg has %d rects for %d nodes", got, len(res.Nodes))
	}
}

func TestSaveSnapshotInfersFormatFromExtension(t *testing.T) {
	people, res := fixtureLayout(t)
	path := filepath.Join(t.TempDir(), "tree.png")

	err := SaveSnapshot(SnapshotOptions{Path: path, People: people, Layout: res})
	if err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() == 0 {
		t.Error("png file is empty")
	}
}

func TestSaveSnapshotRejectsEmptyLayout(t *testing.T) {
	err := SaveSnapshot(SnapshotOptions{
		Path:   filepath.Join(t.TempDir(), "x.svg"),
		Layout: &layout.Result{},
	})
	if err == nil {
		t.Error("empty layout accepted")
	}
}

func TestSaveSnapshotRejectsUnknownFormat(t *testing.T) {
	people, res := fixtureLayout(t)
	err := SaveSnapshot(SnapshotOptions{
		Path:   filepath.Join(t.TempDir(), "x.bmp"),
		Format: "bmp",
		People: people,
		Layout: res,
	})
	if err == nil {
		t.Error("unknown format accepted")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 24); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
	if got := truncate("a very long family name indeed", 10); got != "a very ..." {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("ab", 0); got != "" {
		t.Errorf("truncate to 0 = %q", got)
	}
}

func TestSaveManifest(t *testing.T) {
	_, res := fixtureLayout(t)
	path := filepath.Join(t.TempDir(), "manifest.json")

	m := BuildManifest("Fixture", 3, res)
	if err := SaveManifest(path, m); err != nil {
		t.Fatalf("SaveManifest: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got Manifest
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Title != "Fixture" || got.LayoutVersion != 3 || got.NodeCount != len(res.Nodes) {
		t.Errorf("manifest = %+v", got)
	}
}
