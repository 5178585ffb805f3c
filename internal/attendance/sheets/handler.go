package sheets

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"CAMPUS-backend/internal/platform/apperr"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.POST("/sheets", h.CreateSheet)
	r.GET("/sheets", h.ListSheets)
	r.GET("/sheets/:id", h.GetSheet)
	r.PATCH("/sheets/:id/records", h.BatchUpdate)
	r.POST("/sheets/:id/close", h.CloseSheet)
	r.POST("/sheets/:id/cancel", h.CancelSheet)
	r.GET("/sheets/:id/statistics", h.Statistics)
	r.GET("/students/:id/records", h.StudentRecords)
}

func sheetIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "invalid id"))
		return 0, false
	}
	return id, true
}

func respondErr(c *gin.Context, err error) {
	c.JSON(apperr.ToHTTPStatus(err), apperr.BodyFromErr(err))
}

// CreateSheet godoc
// @Summary 出欠シート作成
// @Description セッションと日付を指定してシートを作る。名簿全員がABSENTで初期化される
// @Tags sheets
// @Accept json
// @Produce json
// @Param body body CreateSheetRequest true "sheet"
// @Success 201 {object} SheetResponse
// @Failure 400 {object} apperr.ErrorBody
// @Failure 409 {object} apperr.ErrorBody
// @Router /attendance/sheets [post]
func (h *Handler) CreateSheet(c *gin.Context) {
	var req CreateSheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "invalid request body"))
		return
	}

	resp, err := h.svc.CreateSheet(c.Request.Context(), req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ListSheets godoc
// @Summary シート一覧
// @Tags sheets
// @Produce json
// @Param session_id query int false "session filter"
// @Param date query string false "YYYY-MM-DD"
// @Param status query string false "OPEN/CLOSED/CANCELLED"
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Param limit query int false "default 50, max 200"
// @Param offset query int false "default 0"
// @Success 200 {object} SheetListResponse
// @Router /attendance/sheets [get]
func (h *Handler) ListSheets(c *gin.Context) {
	var f SheetFilter
	if v := c.Query("session_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "invalid session_id"))
			return
		}
		f.SessionID = &id
	}
	if v := c.Query("date"); v != "" {
		f.Date = &v
	}
	if v := c.Query("status"); v != "" {
		switch v {
		case SheetStatusOpen, SheetStatusClosed, SheetStatusCancelled:
		default:
			c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "invalid status"))
			return
		}
		f.Status = &v
	}
	if v := c.Query("from"); v != "" {
		f.From = &v
	}
	if v := c.Query("to"); v != "" {
		f.To = &v
	}

	p := Page{Order: c.DefaultQuery("order", "desc")}
	if v := c.Query("limit"); v != "" {
		p.Limit, _ = strconv.Atoi(v)
	}
	if v := c.Query("offset"); v != "" {
		p.Offset, _ = strconv.Atoi(v)
	}

	resp, err := h.svc.ListSheets(c.Request.Context(), f, p)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetSheet godoc
// @Summary シート詳細（レコード込み）
// @Tags sheets
// @Produce json
// @Param id path int true "sheet id"
// @Success 200 {object} SheetDetailResponse
// @Failure 404 {object} apperr.ErrorBody
// @Router /attendance/sheets/{id} [get]
func (h *Handler) GetSheet(c *gin.Context) {
	id, ok := sheetIDParam(c)
	if !ok {
		return
	}
	resp, err := h.svc.GetSheet(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// BatchUpdate godoc
// @Summary 出欠の一括マーク
// @Description OPENなシートに対してのみ有効。エントリ単位の不備はskippedで返す
// @Tags sheets
// @Accept json
// @Produce json
// @Param id path int true "sheet id"
// @Param body body BatchUpdateRequest true "entries"
// @Success 200 {object} BatchUpdateResponse
// @Failure 409 {object} apperr.ErrorBody
// @Router /attendance/sheets/{id}/records [patch]
func (h *Handler) BatchUpdate(c *gin.Context) {
	id, ok := sheetIDParam(c)
	if !ok {
		return
	}

	var req BatchUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "invalid request body"))
		return
	}
	if len(req.Entries) == 0 {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "entries must not be empty"))
		return
	}

	resp, err := h.svc.BatchUpdate(c.Request.Context(), id, req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CloseSheet godoc
// @Summary シートを締める
// @Tags sheets
// @Produce json
// @Param id path int true "sheet id"
// @Success 200 {object} SheetResponse
// @Failure 409 {object} apperr.ErrorBody
// @Router /attendance/sheets/{id}/close [post]
func (h *Handler) CloseSheet(c *gin.Context) {
	id, ok := sheetIDParam(c)
	if !ok {
		return
	}
	resp, err := h.svc.Close(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CancelSheet godoc
// @Summary シートを取消す
// @Tags sheets
// @Produce json
// @Param id path int true "sheet id"
// @Success 200 {object} SheetResponse
// @Failure 409 {object} apperr.ErrorBody
// @Router /attendance/sheets/{id}/cancel [post]
func (h *Handler) CancelSheet(c *gin.Context) {
	id, ok := sheetIDParam(c)
	if !ok {
		return
	}
	resp, err := h.svc.Cancel(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Statistics godoc
// @Summary シート統計
// @Tags sheets
// @Produce json
// @Param id path int true "sheet id"
// @Success 200 {object} StatisticsResponse
// @Failure 404 {object} apperr.ErrorBody
// @Router /attendance/sheets/{id}/statistics [get]
func (h *Handler) Statistics(c *gin.Context) {
	id, ok := sheetIDParam(c)
	if !ok {
		return
	}
	resp, err := h.svc.Statistics(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// StudentRecords godoc
// @Summary 学生別の出欠一覧
// @Tags sheets
// @Produce json
// @Param id path int true "student id"
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Success 200 {object} StudentRecordsResponse
// @Router /attendance/students/{id}/records [get]
func (h *Handler) StudentRecords(c *gin.Context) {
	id, ok := sheetIDParam(c)
	if !ok {
		return
	}

	var from, to *string
	if v := c.Query("from"); v != "" {
		from = &v
	}
	if v := c.Query("to"); v != "" {
		to = &v
	}

	resp, err := h.svc.ListRecordsForStudent(c.Request.Context(), id, from, to)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
