package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	mpesadomain "github.com/kanisahq/kanisa/internal/mpesa/domain"
	"go.uber.org/zap"
)

func (s *Server) HandleSTKPush(c *gin.Context) {
	var req mpesadomain.InitiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.mpesaSvc.Initiate(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	// The provider response is passed through unmodified.
	if len(resp.Raw) > 0 {
		c.Data(http.StatusOK, "application/json", resp.Raw)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleMpesaCallback acknowledges the provider unconditionally. Business
// failures must not trigger provider-side callback retries.
func (s *Server) HandleMpesaCallback(c *gin.Context) {
	ack := gin.H{"ResultCode": 0, "ResultDesc": "Success"}

	var envelope mpesadomain.CallbackEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		s.log.Warn("unreadable mpesa callback payload", zap.Error(err))
		c.JSON(http.StatusOK, ack)
		return
	}

	outcome, err := s.mpesaSvc.HandleCallback(c.Request.Context(), envelope)
	if err != nil {
		s.log.Error("mpesa callback processing failed",
			zap.String("checkout_request_id", envelope.Body.StkCallback.CheckoutRequestID),
			zap.String("outcome", string(outcome)),
			zap.Error(err),
		)
	}

	c.JSON(http.StatusOK, ack)
}

func (s *Server) HandleMpesaStatus(c *gin.Context) {
	resp, err := s.mpesaSvc.Status(c.Request.Context(), mpesadomain.StatusRequest{
		CheckoutRequestID: c.Query("checkout_request_id"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
