package storage

import "testing"

func TestDeriveThumbnailKey(t *testing.T) {
	cases := []struct {
		fileName string
		fileKey  string
		provided string
		want     string
	}{
		{"scan.JPG", "docs/1/scan.jpg", "", "docs/1/scan.jpg"},
		{"photo.png", "docs/1/photo.png", "ignored", "docs/1/photo.png"},
		{"return.pdf", "docs/1/return.pdf", "docs/1/return-thumb.png", "docs/1/return-thumb.png"},
		{"ledger.xlsx", "docs/1/ledger.xlsx", "", "/thumbnails/xlsx.png"},
		{"notes.txt", "docs/1/notes.txt", "", "/thumbnails/txt.png"},
		{"archive.bin", "docs/1/archive.bin", "", "/thumbnails/default.png"},
		{"noextension", "docs/1/noextension", "", "/thumbnails/default.png"},
	}
	for _, tc := range cases {
		if got := DeriveThumbnailKey(tc.fileName, tc.fileKey, tc.provided); got != tc.want {
			t.Fatalf("DeriveThumbnailKey(%q) = %q, want %q", tc.fileName, got, tc.want)
		}
	}
}
