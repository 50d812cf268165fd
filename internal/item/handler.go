package item

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/barangku/service/internal/auth"
	"github.com/barangku/service/internal/response"
	"github.com/barangku/service/internal/storage"
)

// multipartMemory is how much of a multipart body is held in memory
// before spilling file parts to temporary files.
const multipartMemory = 8 << 20

// Handler holds HTTP handlers for item endpoints.
type Handler struct {
	svc   *Service
	store storage.Storage
	opts  Options
}

// NewHandler creates a new item Handler.
func NewHandler(svc *Service, store storage.Storage, opts Options) *Handler {
	return &Handler{svc: svc, store: store, opts: opts}
}

type createdData struct {
	Status string `json:"status" example:"success"`
	ID     int64  `json:"id" example:"1"`
}

// List godoc
//
//	@Summary		List items
//	@Description	Returns the caller's items, or every item for the admin identity. Without an Authorization header the list is empty.
//	@Tags			barangku
//	@Produce		json
//	@Security		IdentityHeader
//	@Success		200	{array}		View
//	@Failure		401	{object}	response.Status
//	@Router			/barangku [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		response.OK(w, []View{})
		return
	}

	items, err := h.svc.List(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	views := make([]View, 0, len(items))
	for i := range items {
		views = append(views, h.view(r, &items[i]))
	}
	response.OK(w, views)
}

// Get godoc
//
//	@Summary		Get item
//	@Tags			barangku
//	@Produce		json
//	@Security		IdentityHeader
//	@Param			id	path		int	true	"Item ID"
//	@Success		200	{object}	View
//	@Failure		401	{object}	response.Status
//	@Failure		403	{object}	response.Status
//	@Failure		404	{object}	response.Status
//	@Router			/barangku/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, itemID, ok := h.target(w, r)
	if !ok {
		return
	}

	it, err := h.svc.Get(r.Context(), id, itemID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, h.view(r, it))
}

// Create godoc
//
//	@Summary		Create item
//	@Description	Creates an item owned by the caller. The optional image must be JPG, JPEG or PNG.
//	@Tags			barangku
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		IdentityHeader
//	@Param			image		formData	file	false	"Item image"
//	@Param			namaBarang	formData	string	true	"Name"
//	@Param			kategori	formData	string	true	"Category"
//	@Param			jumlah		formData	int		true	"Quantity"
//	@Success		201			{object}	createdData
//	@Failure		400			{object}	response.Status
//	@Failure		401			{object}	response.Status
//	@Failure		413			{object}	response.Status
//	@Router			/barangku [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	if !h.parseForm(w, r) {
		return
	}
	defer removeMultipartTemp(r)

	var img *Image
	if r.MultipartForm != nil {
		if fhs := r.MultipartForm.File[FieldImage]; len(fhs) > 0 && fhs[0].Filename != "" {
			fh := fhs[0]
			f, err := fh.Open()
			if err != nil {
				response.BadRequest(w, response.MsgInvalidInput)
				return
			}
			defer f.Close()
			img = &Image{
				Filename:    fh.Filename,
				Size:        fh.Size,
				ContentType: fh.Header.Get("Content-Type"),
				Body:        f,
			}
		}
	}

	itemID, err := h.svc.Create(r.Context(), id, FormFromValues(r.PostForm), img)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.Created(w, createdData{Status: "success", ID: itemID})
}

// Update godoc
//
//	@Summary		Update item
//	@Description	Replaces name, category and quantity. The image cannot be changed here.
//	@Tags			barangku
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Security		IdentityHeader
//	@Param			id			path		int		true	"Item ID"
//	@Param			namaBarang	formData	string	true	"Name"
//	@Param			kategori	formData	string	true	"Category"
//	@Param			jumlah		formData	int		true	"Quantity"
//	@Success		200			{object}	response.Status
//	@Failure		400			{object}	response.Status
//	@Failure		401			{object}	response.Status
//	@Failure		403			{object}	response.Status
//	@Failure		404			{object}	response.Status
//	@Router			/barangku/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, itemID, ok := h.target(w, r)
	if !ok {
		return
	}

	if !h.parseForm(w, r) {
		return
	}
	defer removeMultipartTemp(r)

	if err := h.svc.Update(r.Context(), id, itemID, FormFromValues(r.PostForm)); err != nil {
		h.fail(w, r, err)
		return
	}
	response.Success(w, "Barang updated")
}

// Delete godoc
//
//	@Summary		Delete item
//	@Description	Deletes the item and its stored image.
//	@Tags			barangku
//	@Produce		json
//	@Security		IdentityHeader
//	@Param			id	path		int	true	"Item ID"
//	@Success		200	{object}	response.Status
//	@Failure		401	{object}	response.Status
//	@Failure		403	{object}	response.Status
//	@Failure		404	{object}	response.Status
//	@Failure		500	{object}	response.Status
//	@Router			/barangku/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, itemID, ok := h.target(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), id, itemID); err != nil {
		h.fail(w, r, err)
		return
	}
	response.Success(w, "Barang terhapus")
}

// target resolves the caller and the {id} path parameter. The identity is
// set by middleware.RequireIdentity on every route that calls it.
func (h *Handler) target(w http.ResponseWriter, r *http.Request) (auth.Identity, int64, bool) {
	id, _ := auth.FromContext(r.Context())
	itemID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.NotFound(w, response.MsgNotFound)
		return auth.Identity{}, 0, false
	}
	return id, itemID, true
}

// parseForm reads a multipart or urlencoded body into r.PostForm (and
// r.MultipartForm), enforcing the configured body size limit.
func (h *Handler) parseForm(w http.ResponseWriter, r *http.Request) bool {
	if h.opts.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes)
	}

	err := r.ParseMultipartForm(multipartMemory)
	if err == nil || errors.Is(err, http.ErrNotMultipart) {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		response.TooLarge(w)
		return false
	}
	response.BadRequest(w, response.MsgInvalidInput)
	return false
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, response.MsgNotFound)
	case errors.Is(err, ErrForbidden):
		response.Forbidden(w)
	case errors.Is(err, ErrInvalidInput):
		response.BadRequest(w, response.MsgInvalidInput)
	case errors.Is(err, ErrImageFormat):
		response.BadRequest(w, response.MsgImageFormat)
	default:
		log.Error().Err(err).
			Str("request_id", chiMiddleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("item request failed")
		response.InternalError(w)
	}
}

func (h *Handler) view(r *http.Request, it *Item) View {
	v := View{
		ID:       it.ID,
		Name:     it.Name,
		Category: it.Category,
		Quantity: it.Quantity,
	}
	if it.ImagePath != nil && *it.ImagePath != "" {
		u := absoluteURL(r, h.store.PublicURL(*it.ImagePath))
		v.ImageURL = &u
	}
	return v
}

// absoluteURL resolves a host-relative storage URL against the request's
// scheme and host; absolute URLs are returned unchanged.
func absoluteURL(r *http.Request, u string) string {
	if strings.Contains(u, "://") {
		return u
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host + "/" + strings.TrimLeft(u, "/")
}

func removeMultipartTemp(r *http.Request) {
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}
