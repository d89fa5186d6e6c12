package bug

import (
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi"

	apperrors "github.com/irfansh/bugtracker/internal"
	"github.com/irfansh/bugtracker/internal/authz"
	"github.com/irfansh/bugtracker/internal/transport"
	"github.com/irfansh/bugtracker/pkg/logger"
)

type ServiceAPI interface {
	Create(ctx context.Context, p authz.Principal, dto CreateBugDTO, screenshot *Upload) (*Bug, error)
	List(ctx context.Context, p authz.Principal, projectID *int64, assignedToMe bool) ([]*Bug, error)
	GetByID(ctx context.Context, p authz.Principal, id int64) (*Bug, error)
	Update(ctx context.Context, p authz.Principal, id int64, dto UpdateBugDTO, screenshot *Upload) (*Bug, error)
	Delete(ctx context.Context, p authz.Principal, id int64) error
}

type Handler struct {
	*transport.BaseHandler
	Service        ServiceAPI
	maxUploadBytes int64
}

func NewHandler(service ServiceAPI, maxUploadBytes int64) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler:    transport.NewBaseHandler(lg),
		Service:        service,
		maxUploadBytes: maxUploadBytes,
	}
}

// Create accepts either a JSON body or a multipart form with an optional
// screenshot file under the "screenshot" field.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreateBugDTO
	var upload *Upload
	var closeUpload func()

	if isMultipart(r) {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
		if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}

		parsed, err := createDTOFromForm(r)
		if err != nil {
			h.HandleServiceError(w, err)
			return
		}
		dto = parsed

		upload, closeUpload, err = uploadFromForm(r)
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid screenshot upload")
			return
		}
		if closeUpload != nil {
			defer closeUpload()
		}
	} else {
		if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	b, err := h.Service.Create(r.Context(), *principal, dto, upload)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, b)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var projectID *int64
	if raw := r.URL.Query().Get("project_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid project_id")
			return
		}
		projectID = &id
	}
	assignedToMe := r.URL.Query().Get("assigned") == "me"

	bugs, err := h.Service.List(r.Context(), *principal, projectID, assignedToMe)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, bugs)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := h.bugID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid bug id")
		return
	}

	b, err := h.Service.GetByID(r.Context(), *principal, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := h.bugID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid bug id")
		return
	}

	var dto UpdateBugDTO
	var upload *Upload
	var closeUpload func()

	if isMultipart(r) {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
		if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}

		parsed, err := updateDTOFromForm(r)
		if err != nil {
			h.HandleServiceError(w, err)
			return
		}
		dto = parsed

		upload, closeUpload, err = uploadFromForm(r)
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid screenshot upload")
			return
		}
		if closeUpload != nil {
			defer closeUpload()
		}
	} else {
		if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	if dto.Empty() && upload == nil {
		h.HandleServiceError(w, apperrors.NewValidationError("no fields to update", apperrors.ErrCodeValidationFailed))
		return
	}

	b, err := h.Service.Update(r.Context(), *principal, id, dto, upload)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := h.bugID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid bug id")
		return
	}

	if err := h.Service.Delete(r.Context(), *principal, id); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"message": "bug deleted"})
}

func (h *Handler) bugID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

func uploadFromForm(r *http.Request) (*Upload, func(), error) {
	file, header, err := r.FormFile("screenshot")
	if err != nil {
		if err == http.ErrMissingFile {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	return &Upload{Filename: header.Filename, Reader: file}, func() { closeFormFile(file) }, nil
}

func closeFormFile(f multipart.File) {
	_ = f.Close()
}

func createDTOFromForm(r *http.Request) (CreateBugDTO, error) {
	dto := CreateBugDTO{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Type:        r.FormValue("type"),
		Status:      r.FormValue("status"),
	}

	if raw := r.FormValue("project_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return dto, apperrors.NewValidationFieldError("project_id", "project_id must be an integer", apperrors.ErrCodeValidationFailed)
		}
		dto.ProjectID = id
	}
	if raw := r.FormValue("assigned_developer_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return dto, apperrors.NewValidationFieldError("assigned_developer_id", "assigned_developer_id must be an integer", apperrors.ErrCodeValidationFailed)
		}
		dto.AssignedDeveloperID = &id
	}
	if raw := r.FormValue("deadline"); raw != "" {
		deadline, err := parseDeadline(raw)
		if err != nil {
			return dto, err
		}
		dto.Deadline = deadline
	}

	return dto, nil
}

func updateDTOFromForm(r *http.Request) (UpdateBugDTO, error) {
	var dto UpdateBugDTO

	strField := func(name string, dst **string) {
		if _, ok := r.MultipartForm.Value[name]; ok {
			v := r.FormValue(name)
			*dst = &v
		}
	}
	strField("title", &dto.Title)
	strField("description", &dto.Description)
	strField("type", &dto.Type)
	strField("status", &dto.Status)

	if raw := r.FormValue("project_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return dto, apperrors.NewValidationFieldError("project_id", "project_id must be an integer", apperrors.ErrCodeValidationFailed)
		}
		dto.ProjectID = &id
	}
	if raw := r.FormValue("assigned_developer_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return dto, apperrors.NewValidationFieldError("assigned_developer_id", "assigned_developer_id must be an integer", apperrors.ErrCodeValidationFailed)
		}
		dto.AssignedDeveloperID = &id
	}
	if raw := r.FormValue("deadline"); raw != "" {
		deadline, err := parseDeadline(raw)
		if err != nil {
			return dto, err
		}
		dto.Deadline = deadline
	}

	return dto, nil
}

// parseDeadline accepts RFC 3339 timestamps and bare dates.
func parseDeadline(raw string) (*time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, apperrors.NewValidationFieldError("deadline", "deadline must be an RFC 3339 timestamp or YYYY-MM-DD date", apperrors.ErrCodeInvalidDeadline)
	}
	return &t, nil
}
