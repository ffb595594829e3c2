package util

import "testing"

func TestHashUserKey(t *testing.T) {
	id := "google:12345"
	got := HashUserKey(id)
	if got != HashUserKey(id) {
		t.Fatalf("expected stable hash, got %s", got)
	}
	for _, ch := range got {
		if !((ch >= 'a' && ch <= 'f') || (ch >= '0' && ch <= '9')) {
			t.Fatalf("hash contains non-hex character: %c", ch)
		}
	}
	if len(got) != 64 {
		t.Fatalf("expected 64 hex characters, got %d", len(got))
	}
}

func TestContentFingerprint(t *testing.T) {
	if got := ContentFingerprint([]byte("hello")); got != "5d41402abc4b2a76b9719d911017c592" {
		t.Fatalf("unexpected md5 %s", got)
	}
	if ContentFingerprint([]byte("a")) == ContentFingerprint([]byte("b")) {
		t.Fatalf("expected distinct fingerprints")
	}
}

func TestSanitizeFileNameBasic(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"cv.pdf", "cv.pdf", false},
		{" dir/cv.pdf ", "dir_cv.pdf", false},
		{"../etc/passwd", "", true},
		{"   ", "", true},
	}
	for _, tc := range cases {
		got, err := SanitizeFileName(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("expected error for %q", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("SanitizeFileName(%q) = %q, %v", tc.in, got, err)
		}
	}
}
