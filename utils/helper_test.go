package utils

import "testing"

func TestNormalizeFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Final_Mix.wav", "final_mix"},
		{"final_mix.WAV", "final_mix"},
		{"final_mix.mp3", "final_mix"},
		{"  Final_Mix.wav  ", "final_mix"},
		{"no-extension", "no-extension"},
		{"archive.tar.gz", "archive.tar"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeFilename(tc.in); got != tc.want {
			t.Fatalf("NormalizeFilename(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

// Uploads match existing files on the normalized name, so the same take
// re-exported in a different container format still lands as a new version.
func TestNormalizeFilenameMatchesAcrossFormats(t *testing.T) {
	if NormalizeFilename("Chorus Take 2.aiff") != NormalizeFilename("chorus take 2.mp3") {
		t.Fatalf("expected format-agnostic match")
	}
	if NormalizeFilename("chorus take 2.mp3") == NormalizeFilename("chorus take 3.mp3") {
		t.Fatalf("different takes must not match")
	}
}
