package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) QuotationPDF(c *gin.Context) {
	reader, err := s.exportSvc.QuotationPDF(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", `attachment; filename="quotation.pdf"`)
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, reader)
}
