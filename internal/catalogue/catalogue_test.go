package catalogue

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/gicmo/home-sync/internal/testutil"
)

func TestDefaultCatalogue(t *testing.T) {
	c := Default()

	want := []string{"homesick", "accounts", "keyrings", "fonts"}
	if got := c.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected names %v, got %v", want, got)
	}

	accounts, ok := c.Lookup("accounts")
	if !ok {
		t.Fatal("accounts group missing")
	}
	if len(accounts.Paths) != 2 {
		t.Errorf("expected accounts to cover 2 paths, got %d", len(accounts.Paths))
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name   string
		groups []Group
	}{
		{
			name:   "empty name",
			groups: []Group{{Name: "", Paths: []PathSpec{{Source: "~/a"}}}},
		},
		{
			name: "duplicate name",
			groups: []Group{
				{Name: "a", Paths: []PathSpec{{Source: "~/a"}}},
				{Name: "a", Paths: []PathSpec{{Source: "~/b"}}},
			},
		},
		{
			name:   "no paths",
			groups: []Group{{Name: "a"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.groups); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestNew_CopiesInput(t *testing.T) {
	groups := []Group{{Name: "a", Paths: []PathSpec{{Source: "~/a"}}}}
	c, err := New(groups)
	if err != nil {
		t.Fatal(err)
	}

	groups[0].Paths[0].Source = "~/changed"

	g, _ := c.Lookup("a")
	if g.Paths[0].Source != "~/a" {
		t.Errorf("catalogue changed after construction: %s", g.Paths[0].Source)
	}
}

func TestPaths(t *testing.T) {
	c := Default()

	paths, err := c.Paths([]string{"fonts", "accounts"})
	if err != nil {
		t.Fatal(err)
	}

	want := []PathSpec{
		{Source: "~/.local/share/fonts/"},
		{Source: "~/.config/goa-1.0/accounts.conf"},
		{Source: "~/.config/evolution/sources/"},
	}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("expected %v, got %v", want, paths)
	}
}

func TestPaths_UnknownGroup(t *testing.T) {
	_, err := Default().Paths([]string{"nope"})

	var selErr *InvalidSelectionError
	if !errors.As(err, &selErr) {
		t.Fatalf("expected InvalidSelectionError, got %v", err)
	}
	if selErr.Value != "nope" {
		t.Errorf("expected value nope, got %s", selErr.Value)
	}
}

func TestPathSpec_RemoteTarget(t *testing.T) {
	if got := (PathSpec{Source: "~/a/"}).RemoteTarget(); got != "~/a/" {
		t.Errorf("expected target to default to source, got %s", got)
	}
	if got := (PathSpec{Source: "~/a/", Target: "~/b/"}).RemoteTarget(); got != "~/b/" {
		t.Errorf("expected explicit target, got %s", got)
	}
}

func TestExpandHome(t *testing.T) {
	home := testutil.FakeHome(t)

	tests := []struct {
		in   string
		want string
	}{
		{in: "~/.homesick/", want: filepath.Join(home, ".homesick")},
		{in: "~/.config/goa-1.0/accounts.conf", want: filepath.Join(home, ".config/goa-1.0/accounts.conf")},
		{in: "~", want: home},
		{in: "/srv/data/", want: "/srv/data"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ExpandHome(tt.in)
			if err != nil {
				t.Fatalf("ExpandHome returned error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}

			again, err := ExpandHome(got)
			if err != nil {
				t.Fatalf("second ExpandHome returned error: %v", err)
			}
			if again != got {
				t.Errorf("expansion not idempotent: %s != %s", again, got)
			}
		})
	}
}

func TestExpandHome_OtherUser(t *testing.T) {
	if _, err := ExpandHome("~root/.ssh"); err == nil {
		t.Error("expected error for user-specific home shorthand")
	}
}
