package publisher

import "testing"

func TestParseRepoURL_Forms(t *testing.T) {
	cases := []struct {
		url        string
		owner, repo string
	}{
		{"https://github.com/acme/widgets", "acme", "widgets"},
		{"https://github.com/acme/widgets.git", "acme", "widgets"},
		{"git@github.com:acme/widgets.git", "acme", "widgets"},
		{"acme/widgets", "acme", "widgets"},
	}
	for _, c := range cases {
		owner, repo, err := ParseRepoURL(c.url)
		if err != nil {
			t.Fatalf("ParseRepoURL(%q) errored: %v", c.url, err)
		}
		if owner != c.owner || repo != c.repo {
			t.Errorf("ParseRepoURL(%q) = (%s, %s), want (%s, %s)", c.url, owner, repo, c.owner, c.repo)
		}
	}
}

func TestParseRepoURL_Unparseable(t *testing.T) {
	if _, _, err := ParseRepoURL(""); err == nil {
		t.Error("expected error for empty URL")
	}
}

func TestCanonicalizeRepoURL_MatchesAcrossForms(t *testing.T) {
	forms := []string{
		"https://github.com/Acme/Widgets",
		"https://github.com/Acme/Widgets/",
		"git@github.com:Acme/Widgets.git",
		"Acme/Widgets",
	}
	want := CanonicalizeRepoURL(forms[0])
	for _, f := range forms[1:] {
		if got := CanonicalizeRepoURL(f); got != want {
			t.Errorf("CanonicalizeRepoURL(%q) = %q, want %q", f, got, want)
		}
	}
}
