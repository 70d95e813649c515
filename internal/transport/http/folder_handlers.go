package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"mindvault/internal/app"
	"mindvault/internal/domain"
)

type folderHandler struct {
	service *app.FolderService
}

type folderRequest struct {
	Name string `json:"name"`
}

func (h *folderHandler) create(w http.ResponseWriter, r *http.Request) {
	var req folderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	folder, err := h.service.Create(r.Context(), ownerFrom(r.Context()), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, folder)
}

func (h *folderHandler) list(w http.ResponseWriter, r *http.Request) {
	folders, err := h.service.List(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, folders)
}

func (h *folderHandler) get(w http.ResponseWriter, r *http.Request) {
	folder, err := h.service.Get(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, folder)
}

func (h *folderHandler) rename(w http.ResponseWriter, r *http.Request) {
	var req folderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	folder, err := h.service.Rename(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "id"), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, folder)
}

func (h *folderHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Folder deleted successfully")
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body", domain.ErrValidation)
	}
	return nil
}
