package handlers

import (
	"net/http"

	"growjournal/internal/models"
	"growjournal/internal/services"
	"growjournal/internal/utils"

	"github.com/gin-gonic/gin"
)

const (
	defaultPerPage = 20
	maxPerPage     = 50
)

type ReportHandler struct {
	reports *services.ReportService
	images  *services.ImageService
}

func NewReportHandler(reports *services.ReportService, images *services.ImageService) *ReportHandler {
	return &ReportHandler{reports: reports, images: images}
}

// List serves GET /api/reports?page=&per_page=&sort=&q=&strain_id=&author_id=&stage=
func (h *ReportHandler) List(c *gin.Context) {
	pageNum, perPage, _ := utils.Pagination(c.Query("page"), c.Query("per_page"), defaultPerPage, maxPerPage)
	page, err := h.reports.List(c.Request.Context(), services.ReportQuery{
		Page:     pageNum,
		PerPage:  perPage,
		Sort:     c.Query("sort"),
		Search:   c.Query("q"),
		StrainID: queryUint(c, "strain_id"),
		AuthorID: queryUint(c, "author_id"),
		Stage:    models.GrowStage(c.Query("stage")),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *ReportHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	detail, err := h.reports.Get(c.Request.Context(), id, viewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *ReportHandler) Create(c *gin.Context) {
	var in services.ReportInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	report, err := h.reports.Create(c.Request.Context(), currentUser(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

func (h *ReportHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in services.ReportInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	report, err := h.reports.Update(c.Request.Context(), currentUser(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *ReportHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	publicIDs, err := h.reports.Delete(c.Request.Context(), currentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	h.images.DestroyAsync(publicIDs)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
