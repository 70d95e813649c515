package http

import (
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"mindvault/internal/app"
	"mindvault/internal/domain"
)

type conceptHandler struct {
	service   *app.ConceptService
	maxUpload int64
}

type conceptRequest struct {
	FolderID    string  `json:"folderId"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
	ImageURL    string  `json:"imageUrl"`
	Regenerate  bool    `json:"regenerate"`
}

// create accepts multipart/form-data (fields folderId, name, description,
// image) or a JSON body whose imageUrl references an earlier upload.
func (h *conceptHandler) create(w http.ResponseWriter, r *http.Request) {
	req, image, cleanup, err := h.parse(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer cleanup()

	concept, err := h.service.Create(r.Context(), ownerFrom(r.Context()), app.CreateConceptInput{
		FolderID:    req.FolderID,
		Name:        deref(req.Name),
		Description: deref(req.Description),
		ImageURL:    req.ImageURL,
		Image:       image,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, concept)
}

func (h *conceptHandler) list(w http.ResponseWriter, r *http.Request) {
	concepts, err := h.service.List(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "folderId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, concepts)
}

func (h *conceptHandler) get(w http.ResponseWriter, r *http.Request) {
	concept, err := h.service.Get(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, concept)
}

func (h *conceptHandler) update(w http.ResponseWriter, r *http.Request) {
	req, image, cleanup, err := h.parse(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer cleanup()

	concept, err := h.service.Update(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "id"), app.UpdateConceptInput{
		Name:        req.Name,
		Description: req.Description,
		Image:       image,
		Regenerate:  req.Regenerate,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, concept)
}

func (h *conceptHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Concept deleted successfully")
}

// parse reads either body form. Form fields that are absent stay nil so
// updates can tell "unchanged" from "cleared".
func (h *conceptHandler) parse(w http.ResponseWriter, r *http.Request) (conceptRequest, *app.ImageUpload, func(), error) {
	noop := func() {}
	var req conceptRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		if err := decodeJSON(r, &req); err != nil {
			return req, nil, noop, err
		}
		return req, nil, noop, nil
	}

	// Allow some room for the other form fields on top of the image limit.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+1<<20)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return req, nil, noop, fmt.Errorf("%w: image exceeds %d bytes", domain.ErrValidation, h.maxUpload)
		}
		return req, nil, noop, fmt.Errorf("%w: invalid multipart form", domain.ErrValidation)
	}
	cleanup := func() { _ = r.MultipartForm.RemoveAll() }

	req.FolderID = r.FormValue("folderId")
	req.Name = formField(r.MultipartForm, "name")
	req.Description = formField(r.MultipartForm, "description")
	req.ImageURL = r.FormValue("imageUrl")
	if v := r.FormValue("regenerate"); v != "" {
		regenerate, err := strconv.ParseBool(v)
		if err != nil {
			cleanup()
			return req, nil, noop, fmt.Errorf("%w: regenerate must be a boolean", domain.ErrValidation)
		}
		req.Regenerate = regenerate
	}

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return req, nil, cleanup, nil
	}
	if err != nil {
		cleanup()
		return req, nil, noop, fmt.Errorf("%w: invalid image upload", domain.ErrValidation)
	}
	if header.Size > h.maxUpload {
		file.Close()
		cleanup()
		return req, nil, noop, fmt.Errorf("%w: image exceeds %d bytes", domain.ErrValidation, h.maxUpload)
	}
	image := &app.ImageUpload{Filename: header.Filename, Size: header.Size, Body: file}
	return req, image, func() { file.Close(); cleanup() }, nil
}

func formField(form *multipart.Form, key string) *string {
	values, ok := form.Value[key]
	if !ok || len(values) == 0 {
		return nil
	}
	v := strings.TrimSpace(values[0])
	return &v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
