package slugify

import "testing"

func TestMake(t *testing.T) {
	cases := map[string]string{
		"My First Post":        "my-first-post",
		"  Hello,   World!!  ": "hello-world",
		"--Go_1.25 release--":  "go-1-25-release",
		"Café Société":         "café-société",
		"!!!":                  "",
		"":                     "",
	}
	for in, want := range cases {
		if got := Make(in); got != want {
			t.Errorf("Make(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestUnique_Collisions(t *testing.T) {
	got := Unique([]string{"go", "Go", "GO!"})
	want := map[string]string{"GO!": "go", "Go": "go-2", "go": "go-3"}
	for name, slug := range want {
		if got[name] != slug {
			t.Errorf("Unique[%q] = %q, want %q", name, got[name], slug)
		}
	}
}

func TestUnique_OrderIndependent(t *testing.T) {
	a := Unique([]string{"b", "B", "a"})
	b := Unique([]string{"a", "B", "b"})
	for k, v := range a {
		if b[k] != v {
			t.Errorf("slug for %q differs: %q vs %q", k, v, b[k])
		}
	}
}

func TestUnique_EmptySlugFallback(t *testing.T) {
	got := Unique([]string{"???", "!!!"})
	if got["???"] == "" || got["!!!"] == "" {
		t.Fatalf("empty slug assigned: %v", got)
	}
	if got["???"] == got["!!!"] {
		t.Errorf("distinct names share slug %q", got["???"])
	}
	if len(got["???"]) != 8 {
		t.Errorf("fallback slug = %q, want 8 hex chars", got["???"])
	}
}

func TestUnique_IndexReserved(t *testing.T) {
	got := Unique([]string{"index", "Index"})
	if got["Index"] != "index-2" || got["index"] != "index-3" {
		t.Errorf("Unique = %v, want Index:index-2 index:index-3", got)
	}
}
