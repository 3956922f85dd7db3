package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	pledgedomain "github.com/kanisahq/kanisa/internal/pledge/domain"
)

func (s *Server) HandleCreatePledge(c *gin.Context) {
	var req pledgedomain.CreatePledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	created, err := s.pledgeSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (s *Server) HandleListPledges(c *gin.Context) {
	resp, err := s.pledgeSvc.List(c.Request.Context(), pledgedomain.ListPledgeRequest{
		MemberID: c.Query("member_id"),
		Status:   c.Query("status"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) HandleCancelPledge(c *gin.Context) {
	cancelled, err := s.pledgeSvc.Cancel(c.Request.Context(), pledgedomain.CancelPledgeRequest{
		ID: c.Param("id"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, cancelled)
}
