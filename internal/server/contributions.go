package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	contributiondomain "github.com/kanisahq/kanisa/internal/contribution/domain"
)

func (s *Server) HandleListContributions(c *gin.Context) {
	resp, err := s.contributionSvc.List(c.Request.Context(), contributiondomain.ListContributionRequest{
		MemberID:  c.Query("member_id"),
		PaymentID: c.Query("payment_id"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) HandleContributionSummary(c *gin.Context) {
	from, err := parseTimeParam(c.Query("from"), "from")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	to, err := parseTimeParam(c.Query("to"), "to")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.contributionSvc.Summary(c.Request.Context(), contributiondomain.SummaryRequest{
		From: from,
		To:   to,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
