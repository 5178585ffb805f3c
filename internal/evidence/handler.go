package evidence

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"CAMPUS-backend/internal/platform/apperr"
	"CAMPUS-backend/internal/platform/auth"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.POST("/evidence", h.Upload)
	r.GET("/evidence/:ref", h.Download)
}

// Upload godoc
// @Summary 証憑アップロード
// @Description multipart/form-data の file フィールドを受け取り evidence_ref を返す
// @Tags evidence
// @Accept mpfd
// @Produce json
// @Param file formData file true "attachment"
// @Success 201 {object} File
// @Failure 400 {object} apperr.ErrorBody
// @Router /evidence [post]
func (h *Handler) Upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "file field is required"))
		return
	}

	uploadedBy := ""
	if v, ok := c.Get(auth.CtxUserIDKey); ok {
		if s, ok := v.(string); ok {
			uploadedBy = s
		}
	}

	f, err := h.svc.Save(c.Request.Context(), fh, uploadedBy)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.BodyFromErr(err))
		return
	}
	c.JSON(http.StatusCreated, f)
}

// Download godoc
// @Summary 証憑ダウンロード
// @Tags evidence
// @Produce octet-stream
// @Param ref path string true "evidence ref"
// @Success 200 {file} binary
// @Failure 404 {object} apperr.ErrorBody
// @Router /evidence/{ref} [get]
func (h *Handler) Download(c *gin.Context) {
	f, rc, err := h.svc.Open(c.Request.Context(), c.Param("ref"))
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.BodyFromErr(err))
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.OriginalName))
	c.DataFromReader(http.StatusOK, f.SizeBytes, f.ContentType, rc, nil)
}
