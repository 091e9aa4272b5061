package server

import (
	"net/http"
	"strconv"

	"github.com/craftbom/quotora/internal/orgcontext"
	quotationdomain "github.com/craftbom/quotora/internal/quotation/domain"
	"github.com/craftbom/quotora/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

func (s *Server) CreateQuotation(c *gin.Context) {
	var req quotationdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.quotationSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListQuotations(c *gin.Context) {
	var query struct {
		Status string `form:"status"`
		Name   string `form:"name"`
		pagination.Pagination
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.quotationSvc.List(c.Request.Context(), quotationdomain.ListFilter{
		Status: quotationdomain.Status(query.Status),
		Name:   query.Name,
		Page:   query.Pagination,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp.Data, "page_info": resp.PageInfo})
}

func (s *Server) GetQuotation(c *gin.Context) {
	resp, err := s.quotationSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateQuotation(c *gin.Context) {
	var req quotationdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.quotationSvc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AddQuotationSystem(c *gin.Context) {
	var req quotationdomain.SystemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.quotationSvc.AddSystem(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) UpdateQuotationSystem(c *gin.Context) {
	var req quotationdomain.SystemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.quotationSvc.UpdateSystem(c.Request.Context(), c.Param("id"), c.Param("system_id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteQuotationSystem(c *gin.Context) {
	resp, err := s.quotationSvc.DeleteSystem(c.Request.Context(), c.Param("id"), c.Param("system_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AddQuotationItem(c *gin.Context) {
	var req quotationdomain.ItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.quotationSvc.AddItem(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) UpdateQuotationItem(c *gin.Context) {
	var req quotationdomain.ItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.quotationSvc.UpdateItem(c.Request.Context(), c.Param("id"), c.Param("item_id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteQuotationItem(c *gin.Context) {
	resp, err := s.quotationSvc.DeleteItem(c.Request.Context(), c.Param("id"), c.Param("item_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateQuotationParameters(c *gin.Context) {
	var req quotationdomain.ParametersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.quotationSvc.UpdateParameters(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RecalculateQuotation(c *gin.Context) {
	ctx := c.Request.Context()

	if s.recalcLimiter.Enabled() {
		orgID, _ := orgcontext.OrgIDFromContext(ctx)
		allowed, retryAfter, err := s.recalcLimiter.Allow(ctx, orgID.String())
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if !allowed {
			if retryAfter > 0 {
				c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			}
			AbortWithError(c, ErrTooManyRequest)
			return
		}
	}

	resp, err := s.quotationSvc.Recalculate(ctx, c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) QuotationCalculations(c *gin.Context) {
	resp, err := s.quotationSvc.Calculations(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
