package handler

import (
	"errors"
	"net/http"

	"github.com/detodo/marketplace-backend/internal/storage"
	"github.com/labstack/echo/v4"
)

const maxUploadBytes = 5 << 20

type UploadHandler struct {
	store storage.ImageStore
}

func NewUploadHandler(store storage.ImageStore) *UploadHandler {
	return &UploadHandler{store: store}
}

type UploadResponse struct {
	Ref string `json:"ref"`
	URL string `json:"url"`
}

func (h *UploadHandler) Upload(c echo.Context) error {
	fh, err := c.FormFile("image")
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewFieldErrorResponse("image", "image file is required"))
	}
	if fh.Size > maxUploadBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, NewErrorResponse("too_large", "image must be 5MB or smaller"))
	}
	_, contentType, err := storage.ImageExt(fh.Filename)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewFieldErrorResponse("image", err.Error()))
	}
	f, err := fh.Open()
	if err != nil {
		return writeError(c, err, "read upload")
	}
	defer f.Close()

	ref, err := h.store.Save(c.Request().Context(), fh.Filename, contentType, f)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedType) {
			return c.JSON(http.StatusBadRequest, NewFieldErrorResponse("image", err.Error()))
		}
		return writeError(c, err, "store image")
	}
	return c.JSON(http.StatusCreated, UploadResponse{Ref: ref, URL: h.store.Qualify(ref)})
}
