package httpclient

import "testing"

func TestResolveBaseURL_Precedence(t *testing.T) {
	cases := []struct {
		name                               string
		scenarioHost, globalHost, defHost  string
		want                               string
	}{
		{"scenario wins", "http://a", "http://b", "http://c", "http://a"},
		{"global wins when no scenario", "", "http://b", "http://c", "http://b"},
		{"default wins when nothing else", "", "", "http://c", "http://c"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := ResolveBaseURL(c.scenarioHost, c.globalHost, c.defHost); got != c.want {
				t.Errorf("got %q, want %q", got, c.want)
			}
		})
	}
}

func TestSession_ResolveJoinsPath(t *testing.T) {
	s, err := NewSession("http://example.com", Options{})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	u, err := s.Resolve("/check")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if u.String() != "http://example.com/check" {
		t.Errorf("got %s", u.String())
	}
}

func TestSession_ResolveAbsoluteOverridesBase(t *testing.T) {
	s, err := NewSession("http://example.com", Options{})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	u, err := s.Resolve("http://other.example/path")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if u.String() != "http://other.example/path" {
		t.Errorf("got %s", u.String())
	}
}

func TestSession_MaybeStickAdoptsNewAuthority(t *testing.T) {
	s, err := NewSession("http://example.com", Options{StickyFollow: true})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	next, _ := s.Resolve("http://new-host.example/x")
	s.maybeStick(next)
	if s.BaseHost() != "new-host.example" {
		t.Errorf("got base host %s, want new-host.example", s.BaseHost())
	}
}
