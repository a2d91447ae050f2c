package handlers

import (
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"growjournal/internal/db"
	"growjournal/internal/models"

	"github.com/gin-gonic/gin"
)

const sitemapReportLimit = 1000

type SEOHandler struct {
	siteURL string
}

func NewSEOHandler(siteURL string) *SEOHandler {
	return &SEOHandler{siteURL: strings.TrimRight(siteURL, "/")}
}

func (h *SEOHandler) RobotsTxt(c *gin.Context) {
	content := fmt.Sprintf(`User-agent: *
Allow: /

Disallow: /api/
Disallow: /settings
Disallow: /notifications

Sitemap: %s/sitemap.xml
`, h.siteURL)

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.String(http.StatusOK, content)
}

// SitemapXML lists the home page and the most recently active reports.
func (h *SEOHandler) SitemapXML(c *gin.Context) {
	var reports []models.Report
	err := db.DB.WithContext(c.Request.Context()).
		Select("id", "updated_at").
		Order("updated_at DESC").
		Limit(sitemapReportLimit).
		Find(&reports).Error
	if err != nil {
		respondError(c, err)
		return
	}

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
`)
	writeURL(&b, h.siteURL+"/", time.Now(), "daily", "1.0")
	for _, r := range reports {
		writeURL(&b, fmt.Sprintf("%s/reports/%d", h.siteURL, r.ID), r.UpdatedAt, "weekly", "0.8")
	}
	b.WriteString("</urlset>\n")

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.String(http.StatusOK, b.String())
}

func writeURL(b *strings.Builder, loc string, lastmod time.Time, freq, priority string) {
	fmt.Fprintf(b, `  <url>
    <loc>%s</loc>
    <lastmod>%s</lastmod>
    <changefreq>%s</changefreq>
    <priority>%s</priority>
  </url>
`, html.EscapeString(loc), lastmod.UTC().Format("2006-01-02"), freq, priority)
}
