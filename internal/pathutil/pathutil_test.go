package pathutil

import "testing"

func TestChunkIDDeterminism(t *testing.T) {
	cases := []struct {
		a, b string
		line int
	}{
		{"src/utils/index.ts", `src\utils\index.ts`, 42},
		{"a/b/c.go", "a/b/c.go", 1},
	}
	for _, c := range cases {
		if got, want := ChunkID(c.a, c.line), ChunkID(c.b, c.line); got != want {
			t.Errorf("ChunkID(%q, %d) = %q, ChunkID(%q, %d) = %q, want equal", c.a, c.line, got, c.b, c.line, want)
		}
	}

	if got, want := ChunkID("src/utils/index.ts", 42), "src_utils_index_ts_L42"; got != want {
		t.Errorf("ChunkID = %q, want %q", got, want)
	}
}

func TestPartChunkID(t *testing.T) {
	if got, want := PartChunkID("a/b.go", 10, 2), "a_b_go_L10_p2"; got != want {
		t.Errorf("PartChunkID = %q, want %q", got, want)
	}
}

func TestIsWithinRoot(t *testing.T) {
	cases := []struct {
		test, root string
		want       bool
	}{
		{"/home/user/project/src", "/home/user/project", true},
		{"/home/user/project", "/home/user/project", true},
		{"/home/user/project2", "/home/user/project", false},
		{"../../../etc/passwd", "/home/user/project", false},
	}
	for _, c := range cases {
		if got := IsWithinRoot(c.test, c.root); got != c.want {
			t.Errorf("IsWithinRoot(%q, %q) = %v, want %v", c.test, c.root, got, c.want)
		}
	}
}

func TestStripBOMLeadingOnly(t *testing.T) {
	withBOM := append([]byte(byteOrderMark), []byte("package main")...)
	got := StripBOM(withBOM)
	if string(got) != "package main" {
		t.Errorf("StripBOM = %q, want %q", got, "package main")
	}

	interior := []byte("package main" + byteOrderMark + " // marker")
	got = StripBOM(interior)
	if string(got) != string(interior) {
		t.Errorf("interior BOM was stripped: %q", got)
	}
}
