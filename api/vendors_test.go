package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/poiesic/bidgrid/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVendorCRUD(t *testing.T) {
	env := newTestEnv(t)
	token, user := env.signUp("alice")
	otherToken, _ := env.signUp("bob")

	vendor := env.createVendor(token, "Acme", "Sales@Acme.com")
	assert.Equal(t, "sales@acme.com", vendor.Email)
	assert.Equal(t, user.Id, vendor.CreatedBy)

	rec, body := env.do(http.MethodPost, "/api/v1/vendors", map[string]string{"name": "Acme 2", "email": "sales@acme.com"}, token)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "A vendor with this email already exists", body.Message)

	rec, body = env.do(http.MethodPost, "/api/v1/vendors", map[string]string{"email": "x@acme.com"}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Name is required", body.Message)

	path := "/api/v1/vendors/" + vendor.Id.String()
	rec, _ = env.do(http.MethodGet, path, nil, token)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, body = env.do(http.MethodGet, path, nil, otherToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Vendor not found", body.Message)

	rec, body = env.do(http.MethodGet, "/api/v1/vendors/not-an-id", nil, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid vendor ID", body.Message)

	rec, body = env.do(http.MethodPatch, path, map[string]any{"company": "Acme Corp", "tags": []string{"Hardware"}}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[*core.Vendor](t, body)
	assert.Equal(t, "Acme Corp", updated.Company)
	assert.Equal(t, []string{"hardware"}, updated.Tags)
	assert.Equal(t, "Acme", updated.Name)

	rec, _ = env.do(http.MethodDelete, path, nil, otherToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, body = env.do(http.MethodDelete, path, nil, token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Vendor deleted successfully", body.Message)
	rec, _ = env.do(http.MethodGet, path, nil, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListVendors(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signUp("alice")
	for i := range 5 {
		env.createVendor(token, fmt.Sprintf("Vendor %d", i), fmt.Sprintf("v%d@example.com", i))
	}

	rec, body := env.do(http.MethodGet, "/api/v1/vendors?page=2&limit=2", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[vendorList](t, body)
	assert.Len(t, list.Vendors, 2)
	assert.Equal(t, pagination{Page: 2, Limit: 2, Total: 5, Pages: 3}, list.Pagination)

	_, body = env.do(http.MethodGet, "/api/v1/vendors?search=vendor%203", nil, token)
	list = decode[vendorList](t, body)
	require.Len(t, list.Vendors, 1)
	assert.Equal(t, "v3@example.com", list.Vendors[0].Email)
	assert.Equal(t, 50, list.Pagination.Limit)

	_, body = env.do(http.MethodGet, "/api/v1/vendors?tag=none", nil, token)
	list = decode[vendorList](t, body)
	assert.NotNil(t, list.Vendors)
	assert.Empty(t, list.Vendors)
	assert.Equal(t, 0, list.Pagination.Pages)

	rec, body = env.do(http.MethodGet, "/api/v1/vendors?page=4611686018427387904", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	list = decode[vendorList](t, body)
	assert.NotNil(t, list.Vendors)
	assert.Empty(t, list.Vendors)
	assert.Equal(t, 5, list.Pagination.Total)
}
