package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes mounts the complaint API on api, which is expected to be
// the /api/v1 subrouter.
func (h *Handlers) RegisterRoutes(api *mux.Router) {
	api.HandleFunc("/complaint/", h.CreateComplaint).Methods(http.MethodPost)
	api.HandleFunc("/complaint/", h.ListComplaints).Methods(http.MethodGet)
	api.HandleFunc("/complaint/{id}/", h.GetComplaint).Methods(http.MethodGet)
	api.HandleFunc("/complaint/{id}/", h.UpdateComplaint).Methods(http.MethodPatch)
}
