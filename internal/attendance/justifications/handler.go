package justifications

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"CAMPUS-backend/internal/platform/apperr"
	"CAMPUS-backend/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(r gin.IRoutes, review gin.HandlerFunc) {
	r.POST("/justifications", h.Submit)
	r.GET("/justifications", h.List)
	r.GET("/justifications/:id", h.Get)
	r.POST("/justifications/:id/approve", review, h.Approve)
	r.POST("/justifications/:id/reject", review, h.Reject)
}

func respondErr(c *gin.Context, err error) {
	c.JSON(apperr.ToHTTPStatus(err), apperr.BodyFromErr(err))
}

func reviewerID(c *gin.Context) string {
	if v, ok := c.Get(auth.CtxUserIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Submit godoc
// @Summary 欠席事由の申請
// @Tags justifications
// @Accept json
// @Produce json
// @Param body body SubmitRequest true "justification"
// @Success 201 {object} JustificationResponse
// @Failure 400 {object} apperr.ErrorBody
// @Router /attendance/justifications [post]
func (h *Handler) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "invalid request body"))
		return
	}

	resp, err := h.svc.Submit(c.Request.Context(), req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// List godoc
// @Summary 申請一覧
// @Tags justifications
// @Produce json
// @Param student_id query int false "student filter"
// @Param status query string false "PENDING/APPROVED/REJECTED"
// @Param limit query int false "default 50, max 200"
// @Param offset query int false "default 0"
// @Success 200 {object} ListResponse
// @Router /attendance/justifications [get]
func (h *Handler) List(c *gin.Context) {
	var f Filter
	if v := c.Query("student_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "invalid student_id"))
			return
		}
		f.StudentID = &id
	}
	if v := c.Query("status"); v != "" {
		f.Status = &v
	}
	if v := c.Query("category"); v != "" {
		f.Category = &v
	}

	p := Page{Order: c.DefaultQuery("order", "desc")}
	if v := c.Query("limit"); v != "" {
		p.Limit, _ = strconv.Atoi(v)
	}
	if v := c.Query("offset"); v != "" {
		p.Offset, _ = strconv.Atoi(v)
	}

	resp, err := h.svc.List(c.Request.Context(), f, p)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Get godoc
// @Summary 申請詳細
// @Tags justifications
// @Produce json
// @Param id path string true "justification id"
// @Success 200 {object} JustificationResponse
// @Failure 404 {object} apperr.ErrorBody
// @Router /attendance/justifications/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	resp, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Approve godoc
// @Summary 申請の承認
// @Description 承認と同時に対象期間のABSENTレコードをJUSTIFIED_ABSENTへ照合する
// @Tags justifications
// @Accept json
// @Produce json
// @Param id path string true "justification id"
// @Param body body DecisionRequest false "decision"
// @Success 200 {object} JustificationResponse
// @Failure 409 {object} apperr.ErrorBody
// @Router /attendance/justifications/{id}/approve [post]
func (h *Handler) Approve(c *gin.Context) {
	var req DecisionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "invalid request body"))
			return
		}
	}

	resp, err := h.svc.Approve(c.Request.Context(), c.Param("id"), reviewerID(c), req.Comment)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Reject godoc
// @Summary 申請の却下
// @Description コメント必須。出欠レコードには影響しない
// @Tags justifications
// @Accept json
// @Produce json
// @Param id path string true "justification id"
// @Param body body DecisionRequest true "decision"
// @Success 200 {object} JustificationResponse
// @Failure 400 {object} apperr.ErrorBody
// @Failure 409 {object} apperr.ErrorBody
// @Router /attendance/justifications/{id}/reject [post]
func (h *Handler) Reject(c *gin.Context) {
	var req DecisionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "invalid request body"))
			return
		}
	}

	resp, err := h.svc.Reject(c.Request.Context(), c.Param("id"), reviewerID(c), req.Comment)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
