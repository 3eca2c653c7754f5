package catalog

import (
	"testing"

	"github.com/mark3labs/docsets/internal/config"
	"github.com/mark3labs/docsets/internal/docset"
)

func TestSelect(t *testing.T) {
	t.Parallel()
	tree := config.Defaults()
	tree.Global.Authorization.AuthRegex = "/api/.*"
	tree.Groups = []config.Group{
		{Name: "public", GroupConfig: config.GroupConfig{
			Selection: &config.SelectionRule{BasePaths: []string{"/api/**"}, ExcludePaths: []string{"/api/admin/**"}},
		}},
		{Name: "admin", GroupConfig: config.GroupConfig{
			Selection: &config.SelectionRule{BasePackage: "com.shop.admin"},
		}},
	}
	descriptors, _, err := docset.Assemble(tree)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	endpoints := []docset.Endpoint{
		{Path: "/api/users", Method: docset.MethodGet, Package: "com.shop.users"},
		{Path: "/api/admin/stats", Method: docset.MethodGet, Package: "com.shop.admin"},
		{Path: "/health", Method: docset.MethodGet, Package: "com.shop.ops"},
	}
	res := Select(descriptors, endpoints)

	if len(res.Selections) != 2 {
		t.Fatalf("expected 2 selections, got %d", len(res.Selections))
	}
	pub := res.Selections[0]
	if pub.Descriptor != "public" || len(pub.Matches) != 1 || pub.Matches[0].Path != "/api/users" {
		t.Fatalf("unexpected public selection: %+v", pub)
	}
	if !pub.Matches[0].Secured {
		t.Fatalf("expected /api/users to be secured")
	}
	admin := res.Selections[1]
	if admin.Descriptor != "admin" || len(admin.Matches) != 1 || admin.Matches[0].Path != "/api/admin/stats" {
		t.Fatalf("unexpected admin selection: %+v", admin)
	}
	if len(res.Unmatched) != 1 || res.Unmatched[0].Path != "/health" {
		t.Fatalf("unexpected unmatched: %+v", res.Unmatched)
	}
}

func TestSelect_NoSecurity(t *testing.T) {
	t.Parallel()
	tree := config.Defaults()
	tree.Global.Authorization.Type = "None"
	descriptors, _, err := docset.Assemble(tree)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	res := Select(descriptors, []docset.Endpoint{{Path: "/x", Method: docset.MethodGet}})
	if got := res.Selections[0]; got.Descriptor != docset.DefaultKey || len(got.Matches) != 1 || got.Matches[0].Secured {
		t.Fatalf("unexpected selection: %+v", got)
	}
	if len(res.Unmatched) != 0 {
		t.Fatalf("expected no unmatched endpoints, got %+v", res.Unmatched)
	}
}
