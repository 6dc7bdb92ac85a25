package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/galleria-dev/galleria/internal/model"
)

func TestListTenantsServesPublishedOnly(t *testing.T) {
	env := newTestEnv(t)
	env.createTenant(t, "Aurora Books", "aurora-books", model.TenantCategoryLifestyle, model.StatusPublished)
	env.createTenant(t, "Coming Soon Co", "coming-soon-co", model.TenantCategoryFashion, model.StatusDraft)

	rec := httptest.NewRecorder()
	env.Handler.ListTenants(rec, newGetRequest(t, "/api/v1/tenants", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	tenants, meta := decodeResponse[[]TenantResponse](t, rec)
	if len(tenants) != 1 {
		t.Fatalf("expected 1 tenant, got %d", len(tenants))
	}
	if tenants[0].Slug != "aurora-books" {
		t.Errorf("expected aurora-books, got %s", tenants[0].Slug)
	}
	if meta == nil || meta.Total != 1 {
		t.Errorf("expected meta total 1, got %+v", meta)
	}
}

func TestListTenantsCategoryFilter(t *testing.T) {
	env := newTestEnv(t)
	env.createTenant(t, "Harbor Deli", "harbor-deli", model.TenantCategoryFood, model.StatusPublished)
	env.createTenant(t, "Aurora Books", "aurora-books", model.TenantCategoryLifestyle, model.StatusPublished)

	rec := httptest.NewRecorder()
	env.Handler.ListTenants(rec, newGetRequest(t, "/api/v1/tenants?category=food", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	tenants, _ := decodeResponse[[]TenantResponse](t, rec)
	if len(tenants) != 1 {
		t.Fatalf("expected 1 tenant in category, got %d", len(tenants))
	}
	if tenants[0].Slug != "harbor-deli" {
		t.Errorf("expected harbor-deli, got %s", tenants[0].Slug)
	}
}

func TestListTenantsRejectsUnknownCategory(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.Handler.ListTenants(rec, newGetRequest(t, "/api/v1/tenants?category=warehouse", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown category, got %d", rec.Code)
	}
}

func TestGetTenantHidesDrafts(t *testing.T) {
	env := newTestEnv(t)
	draft := env.createTenant(t, "Coming Soon Co", "coming-soon-co", model.TenantCategoryFashion, model.StatusDraft)

	rec := httptest.NewRecorder()
	env.Handler.GetTenant(rec, newGetRequest(t, "/api/v1/tenants/1",
		map[string]string{"id": formatID(draft.ID)}))

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for draft tenant, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	env.Handler.GetTenantBySlug(rec, newGetRequest(t, "/api/v1/tenants/slug/coming-soon-co",
		map[string]string{"slug": "coming-soon-co"}))

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for draft tenant by slug, got %d", rec.Code)
	}
}

func TestGetTenantBySlug(t *testing.T) {
	env := newTestEnv(t)
	env.createTenant(t, "Aurora Books", "aurora-books", model.TenantCategoryLifestyle, model.StatusPublished)

	rec := httptest.NewRecorder()
	env.Handler.GetTenantBySlug(rec, newGetRequest(t, "/api/v1/tenants/slug/aurora-books",
		map[string]string{"slug": "aurora-books"}))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	got, _ := decodeResponse[TenantResponse](t, rec)
	if got.Name != "Aurora Books" {
		t.Errorf("expected Aurora Books, got %s", got.Name)
	}
	if got.Category != model.TenantCategoryLifestyle {
		t.Errorf("expected lifestyle category, got %s", got.Category)
	}
}
