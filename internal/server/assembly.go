package server

import (
	"net/http"
	"strings"
	"time"

	assemblydomain "github.com/craftbom/quotora/internal/assembly/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) CreateAssembly(c *gin.Context) {
	var req assemblydomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.assemblySvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListAssemblies(c *gin.Context) {
	var query struct {
		Name   string `form:"name"`
		Active *bool  `form:"active"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.assemblySvc.List(c.Request.Context(), assemblydomain.ListFilter{
		Name:   query.Name,
		Active: query.Active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetAssembly(c *gin.Context) {
	resp, err := s.assemblySvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateAssembly(c *gin.Context) {
	var req assemblydomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.assemblySvc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SetAssemblyMembers(c *gin.Context) {
	var req struct {
		Members []assemblydomain.MemberRequest `json:"members"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.assemblySvc.SetMembers(c.Request.Context(), c.Param("id"), req.Members)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AssemblyCost(c *gin.Context) {
	var asOf time.Time
	if raw := strings.TrimSpace(c.Query("as_of")); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
		asOf = parsed
	}

	resp, err := s.assemblySvc.Cost(c.Request.Context(), c.Param("id"), asOf)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
