package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/poiesic/bidgrid/core"
	"github.com/poiesic/bidgrid/storage"
)

const (
	defaultVendorLimit = 50
	maxVendorLimit     = 100
)

type pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type vendorList struct {
	Vendors    []*core.Vendor `json:"vendors"`
	Pagination pagination     `json:"pagination"`
}

func queryInt(r *http.Request, name string, fallback int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func duplicateVendor(err error) error {
	if errors.Is(err, storage.ErrDuplicateKey) {
		return NewAPIError(http.StatusConflict, "A vendor with this email already exists")
	}
	return err
}

func (s *Server) listVendors(w http.ResponseWriter, r *http.Request) error {
	query := storage.VendorQuery{
		Search: r.URL.Query().Get("search"),
		Tag:    r.URL.Query().Get("tag"),
		Page:   queryInt(r, "page", 1),
		Limit:  min(queryInt(r, "limit", defaultVendorLimit), maxVendorLimit),
	}
	vendors, total, err := s.deps.Stores.Vendors.ListVendors(r.Context(), requestUser(r).Id, query)
	if err != nil {
		return err
	}
	if vendors == nil {
		vendors = []*core.Vendor{}
	}
	respond(w, http.StatusOK, vendorList{
		Vendors: vendors,
		Pagination: pagination{
			Page:  query.Page,
			Limit: query.Limit,
			Total: total,
			Pages: (total + query.Limit - 1) / query.Limit,
		},
	}, "Vendors fetched successfully")
	return nil
}

func (s *Server) createVendor(w http.ResponseWriter, r *http.Request) error {
	in, err := readJSON[core.VendorInput](r)
	if err != nil {
		return err
	}
	in.Normalize()
	if err := in.Validate(); err != nil {
		return err
	}
	vendor, err := s.deps.Stores.Vendors.CreateVendor(r.Context(), in.Vendor(requestUser(r).Id))
	if err != nil {
		return duplicateVendor(err)
	}
	respond(w, http.StatusCreated, vendor, "Vendor created successfully")
	return nil
}

func (s *Server) getVendor(w http.ResponseWriter, r *http.Request) error {
	id, err := parseID(chi.URLParam(r, "id"), "Invalid vendor ID")
	if err != nil {
		return err
	}
	vendor, err := s.deps.Stores.Vendors.GetVendor(r.Context(), requestUser(r).Id, id)
	if err != nil {
		return notFound(err, "Vendor not found")
	}
	respond(w, http.StatusOK, vendor, "Vendor fetched successfully")
	return nil
}

func (s *Server) updateVendor(w http.ResponseWriter, r *http.Request) error {
	id, err := parseID(chi.URLParam(r, "id"), "Invalid vendor ID")
	if err != nil {
		return err
	}
	patch, err := readJSON[core.VendorPatch](r)
	if err != nil {
		return err
	}
	patch.Normalize()
	if err := patch.Validate(); err != nil {
		return err
	}

	vendor, err := s.deps.Stores.Vendors.GetVendor(r.Context(), requestUser(r).Id, id)
	if err != nil {
		return notFound(err, "Vendor not found")
	}
	patch.Apply(vendor)
	vendor, err = s.deps.Stores.Vendors.UpdateVendor(r.Context(), vendor)
	if err != nil {
		return notFound(duplicateVendor(err), "Vendor not found")
	}
	respond(w, http.StatusOK, vendor, "Vendor updated successfully")
	return nil
}

func (s *Server) deleteVendor(w http.ResponseWriter, r *http.Request) error {
	id, err := parseID(chi.URLParam(r, "id"), "Invalid vendor ID")
	if err != nil {
		return err
	}
	if err := s.deps.Stores.Vendors.DeleteVendor(r.Context(), requestUser(r).Id, id); err != nil {
		return notFound(err, "Vendor not found")
	}
	respond(w, http.StatusOK, nil, "Vendor deleted successfully")
	return nil
}
