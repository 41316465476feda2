package mariadb

import (
	"slices"
	"strings"
	"testing"
)

func TestNormalizeDSN(t *testing.T) {
	dsn, err := normalizeDSN("faces:secret@tcp(db:3306)/faces")
	if err != nil {
		t.Fatalf("normalizeDSN() error = %v", err)
	}
	if !strings.Contains(dsn, "parseTime=true") {
		t.Errorf("expected parseTime=true in %q", dsn)
	}
	if !strings.HasPrefix(dsn, "faces:secret@tcp(db:3306)/faces") {
		t.Errorf("unexpected DSN %q", dsn)
	}

	if _, err := normalizeDSN("not a dsn"); err == nil {
		t.Error("expected error for an invalid DSN")
	}
}

func TestDecodeEmbedding(t *testing.T) {
	got, err := decodeEmbedding([]byte("[0.125,-1,3.5]"))
	if err != nil {
		t.Fatalf("decodeEmbedding() error = %v", err)
	}
	if want := []float64{0.125, -1, 3.5}; !slices.Equal(got, want) {
		t.Errorf("decodeEmbedding() = %v, want %v", got, want)
	}

	for _, bad := range []string{"", "[]", "{\"a\":1}", "[1,"} {
		if _, err := decodeEmbedding([]byte(bad)); err == nil {
			t.Errorf("decodeEmbedding(%q) expected error", bad)
		}
	}
}
