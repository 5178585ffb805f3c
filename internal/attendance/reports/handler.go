package reports

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"CAMPUS-backend/internal/platform/apperr"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/reports/sessions/:id/overview", h.SessionOverview)
	r.GET("/reports/sessions/:id/assiduity", h.Assiduity)
	r.GET("/reports/sessions/:id/lateness", h.Lateness)
	r.GET("/reports/justifications/turnaround", h.Turnaround)
}

func (h *Handler) params(c *gin.Context) (int64, DateRange, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "invalid id"))
		return 0, DateRange{}, false
	}
	dr := DateRange{From: c.Query("from"), To: c.Query("to")}
	return id, dr, true
}

func respondErr(c *gin.Context, err error) {
	c.JSON(apperr.ToHTTPStatus(err), apperr.BodyFromErr(err))
}

// SessionOverview godoc
// @Summary セッション単位の出欠概況
// @Tags reports
// @Produce json
// @Param id path int true "session id"
// @Param from query string true "YYYY-MM-DD"
// @Param to query string true "YYYY-MM-DD"
// @Success 200 {object} SessionOverview
// @Router /attendance/reports/sessions/{id}/overview [get]
func (h *Handler) SessionOverview(c *gin.Context) {
	id, dr, ok := h.params(c)
	if !ok {
		return
	}
	resp, err := h.svc.SessionOverview(c.Request.Context(), id, dr)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Assiduity godoc
// @Summary 学生別の皆勤バンド
// @Tags reports
// @Produce json
// @Param id path int true "session id"
// @Param from query string true "YYYY-MM-DD"
// @Param to query string true "YYYY-MM-DD"
// @Success 200 {array} StudentAssiduity
// @Router /attendance/reports/sessions/{id}/assiduity [get]
func (h *Handler) Assiduity(c *gin.Context) {
	id, dr, ok := h.params(c)
	if !ok {
		return
	}
	resp, err := h.svc.Assiduity(c.Request.Context(), id, dr)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Lateness godoc
// @Summary 学生別の遅刻統計（件数・平均/最大遅刻分数）
// @Tags reports
// @Produce json
// @Param id path int true "session id"
// @Param from query string true "YYYY-MM-DD"
// @Param to query string true "YYYY-MM-DD"
// @Success 200 {object} LatenessReport
// @Router /attendance/reports/sessions/{id}/lateness [get]
func (h *Handler) Lateness(c *gin.Context) {
	id, dr, ok := h.params(c)
	if !ok {
		return
	}
	resp, err := h.svc.Lateness(c.Request.Context(), id, dr)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Turnaround godoc
// @Summary 申請から判定までの所要時間
// @Tags reports
// @Produce json
// @Param from query string true "YYYY-MM-DD"
// @Param to query string true "YYYY-MM-DD"
// @Success 200 {object} TurnaroundReport
// @Router /attendance/reports/justifications/turnaround [get]
func (h *Handler) Turnaround(c *gin.Context) {
	dr := DateRange{From: c.Query("from"), To: c.Query("to")}
	resp, err := h.svc.Turnaround(c.Request.Context(), dr)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
