package handler

import (
	"net/http"

	"stemportal/internal/authz"
	"stemportal/internal/middleware"
	"stemportal/internal/repository"
	"stemportal/internal/service"
	"stemportal/pkg/response"

	"github.com/gin-gonic/gin"
)

type RequestHandler struct {
	requestService service.RequestService
}

func NewRequestHandler(requestService service.RequestService) *RequestHandler {
	return &RequestHandler{requestService: requestService}
}

func (h *RequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	requests := router.Group("/api/requests")
	{
		requests.POST("", middleware.RequireCapability(authz.CapCreateRequest), h.SubmitRequests)
		requests.GET("", middleware.RequireCapability(authz.CapViewRequests), h.ListRequests)
		requests.GET("/user/:username", middleware.RequireAuth(), h.ListUserRequests)
		requests.PUT("/:id/approve", middleware.RequireCapability(authz.CapDecideRequest), h.ApproveRequest)
		requests.PUT("/:id/reject", middleware.RequireCapability(authz.CapDecideRequest), h.RejectRequest)
	}
}

// SubmitRequests creates a batch of pending requests atomically
// @Summary      Submit requests
// @Description  Creates one pending request per entry. One invalid entry rejects the whole batch.
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.SubmitRequestsPayload  true  "Batch of request entries"
// @Success      201      {object}  response.Response{data=[]service.RequestResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/requests [post]
func (h *RequestHandler) SubmitRequests(c *gin.Context) {
	var req service.SubmitRequestsPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	created, err := h.requestService.SubmitRequests(c.Request.Context(), middleware.CallerFrom(c), req.Requests)
	if err != nil {
		writeError(c, err)
		return
	}

	shaped := make([]service.RequestResponse, 0, len(created))
	for _, r := range created {
		shaped = append(shaped, service.ToRequestResponse(r))
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, shaped))
}

// ListRequests returns all requests, newest first
// @Summary      List requests
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        status  query     string  false  "Filter by status (pending, approved, rejected)"
// @Success      200     {object}  response.Response{data=[]service.RequestResponse}
// @Router       /api/requests [get]
func (h *RequestHandler) ListRequests(c *gin.Context) {
	filter := repository.RequestFilter{Status: c.Query("status")}

	requests, err := h.requestService.ListRequests(c.Request.Context(), middleware.CallerFrom(c), filter)
	if err != nil {
		writeError(c, err)
		return
	}

	shaped := make([]service.RequestResponse, 0, len(requests))
	for _, r := range requests {
		shaped = append(shaped, service.ToRequestResponse(r))
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, shaped))
}

// ListUserRequests returns one user's request history
// @Summary      Request history
// @Description  STEMbassadors may only read their own history; managers and directors may read anyone's.
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        username  path      string  true  "Username"
// @Success      200       {object}  response.Response{data=[]service.RequestResponse}
// @Failure      403       {object}  response.Response
// @Router       /api/requests/user/{username} [get]
func (h *RequestHandler) ListUserRequests(c *gin.Context) {
	requests, err := h.requestService.ListOwnRequests(c.Request.Context(), middleware.CallerFrom(c), c.Param("username"))
	if err != nil {
		writeError(c, err)
		return
	}

	shaped := make([]service.RequestResponse, 0, len(requests))
	for _, r := range requests {
		shaped = append(shaped, service.ToRequestResponse(r))
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, shaped))
}

// ApproveRequest approves a pending request
// @Summary      Approve request
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=service.RequestResponse}
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/requests/{id}/approve [put]
func (h *RequestHandler) ApproveRequest(c *gin.Context) {
	h.decide(c, service.DecisionApprove)
}

// RejectRequest rejects a pending request
// @Summary      Reject request
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=service.RequestResponse}
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/requests/{id}/reject [put]
func (h *RequestHandler) RejectRequest(c *gin.Context) {
	h.decide(c, service.DecisionReject)
}

func (h *RequestHandler) decide(c *gin.Context, decision string) {
	request, err := h.requestService.Decide(c.Request.Context(), middleware.CallerFrom(c), c.Param("id"), decision)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, service.ToRequestResponse(*request)))
}
