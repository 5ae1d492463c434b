//go:build linux

package linkbackend

import "testing"

func TestLinuxBackendFallsBackToStoredPath(t *testing.T) {
	b := New()

	blob, err := b.Record("/tmp/whatever.txt")
	if err != nil {
		t.Fatal(err)
	}
	if blob != nil {
		t.Fatalf("expected nil blob, got %v", blob)
	}

	got, err := b.Resolve(blob, "/tmp/fallback.txt")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/fallback.txt" {
		t.Fatalf("got %q, want fallback path", got)
	}
}
