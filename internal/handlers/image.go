package handlers

import (
	"net/http"

	"growjournal/internal/services"

	"github.com/gin-gonic/gin"
)

// UploadSigner signs direct browser uploads to the image host.
type UploadSigner interface {
	SignUpload() services.UploadSignature
}

type ImageHandler struct {
	images *services.ImageService
	signer UploadSigner
}

func NewImageHandler(images *services.ImageService, signer UploadSigner) *ImageHandler {
	return &ImageHandler{images: images, signer: signer}
}

// Upload accepts one or more "image" form files and returns the stored images.
func (h *ImageHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, services.MaxUploadFiles*services.MaxUploadSize+1<<20)
	form, err := c.MultipartForm()
	if err != nil {
		badRequest(c, "invalid multipart form")
		return
	}

	images, err := h.images.UploadFiles(c.Request.Context(), currentUser(c), form.File["image"])
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "images": images})
}

// Signature lets the browser upload straight to Cloudinary.
func (h *ImageHandler) Signature(c *gin.Context) {
	if h.signer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "image uploads are not configured"})
		return
	}
	c.JSON(http.StatusOK, h.signer.SignUpload())
}

func (h *ImageHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.images.Delete(c.Request.Context(), currentUser(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
