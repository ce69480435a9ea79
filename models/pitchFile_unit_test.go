package models

import "testing"

func TestPitchFileRootId(t *testing.T) {
	root := PitchFile{ID: 10}
	if got := root.RootId(); got != 10 {
		t.Fatalf("root file RootId = %d; want 10", got)
	}

	parent := 10
	child := PitchFile{ID: 42, ParentFileId: &parent, FileVersionNumber: 3}
	if got := child.RootId(); got != 10 {
		t.Fatalf("child file RootId = %d; want 10", got)
	}
}

func TestPitchFileVersionLabel(t *testing.T) {
	file := PitchFile{ID: 1, FileVersionNumber: 1}

	// A lone file carries no version label.
	if got := file.VersionLabel(1); got != "" {
		t.Fatalf("lone file label = %q; want empty", got)
	}

	// Once a second version exists, every member labels itself, the
	// original included.
	if got := file.VersionLabel(2); got != "V1" {
		t.Fatalf("label = %q; want V1", got)
	}

	parent := 1
	v3 := PitchFile{ID: 7, ParentFileId: &parent, FileVersionNumber: 3}
	if got := v3.VersionLabel(3); got != "V3" {
		t.Fatalf("label = %q; want V3", got)
	}
}
