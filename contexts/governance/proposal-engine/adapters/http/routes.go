package httpadapter

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	domainerrors "fangov/contexts/governance/proposal-engine/domain/errors"
	httptransport "fangov/contexts/governance/proposal-engine/transport/http"
)

// Register mounts the proposal engine routes on group. Every route requires
// a resolved actor.
func (h Handler) Register(group *gin.RouterGroup, secret []byte) {
	proposals := group.Group("/proposals", ActorMiddleware(secret))
	proposals.POST("", h.handleCreateProposal)
	proposals.GET("", h.handleListProposals)
	proposals.GET("/:proposal_id", h.handleGetProposal)
	proposals.PATCH("/:proposal_id", h.handleUpdateDraft)
	proposals.PUT("/:proposal_id/schedule", h.handleSchedule)
	proposals.GET("/:proposal_id/options", h.handleListOptions)
	proposals.POST("/:proposal_id/options", h.handleAddOption)
	proposals.DELETE("/:proposal_id/options/:option_id", h.handleDeleteOption)
	proposals.POST("/:proposal_id/open", h.handleOpen)
	proposals.POST("/:proposal_id/close", h.handleClose)
	proposals.POST("/:proposal_id/finalize", h.handleFinalize)
	proposals.POST("/:proposal_id/votes", h.handleCastVote)
	proposals.GET("/:proposal_id/votes/me", h.handleGetOwnVote)
	proposals.GET("/:proposal_id/results", h.handleResults)
}

// handleCreateProposal godoc
// @Summary Create a draft proposal
// @Tags proposals
// @Accept json
// @Produce json
// @Param request body httptransport.CreateProposalRequest true "proposal"
// @Success 201 {object} httptransport.ProposalResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Router /v1/proposals [post]
func (h Handler) handleCreateProposal(c *gin.Context) {
	var req httptransport.CreateProposalRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.CreateProposalHandler(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h Handler) handleListProposals(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(c, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return
		}
		limit = parsed
	}
	resp, err := h.ListProposalsHandler(c.Request.Context(), c.Query("organization_id"), c.Query("status"), limit)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h Handler) handleGetProposal(c *gin.Context) {
	resp, err := h.GetProposalHandler(c.Request.Context(), c.Param("proposal_id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h Handler) handleUpdateDraft(c *gin.Context) {
	var req httptransport.UpdateDraftRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.UpdateDraftHandler(c.Request.Context(), actorFrom(c), c.Param("proposal_id"), req)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h Handler) handleSchedule(c *gin.Context) {
	var req httptransport.ScheduleRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.ScheduleHandler(c.Request.Context(), actorFrom(c), c.Param("proposal_id"), req)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h Handler) handleListOptions(c *gin.Context) {
	resp, err := h.ListOptionsHandler(c.Request.Context(), c.Param("proposal_id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h Handler) handleAddOption(c *gin.Context) {
	var req httptransport.AddOptionRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.AddOptionHandler(c.Request.Context(), actorFrom(c), c.Param("proposal_id"), req)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h Handler) handleDeleteOption(c *gin.Context) {
	err := h.DeleteOptionHandler(c.Request.Context(), actorFrom(c), c.Param("proposal_id"), c.Param("option_id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h Handler) handleOpen(c *gin.Context) {
	resp, err := h.OpenHandler(c.Request.Context(), actorFrom(c), c.Param("proposal_id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h Handler) handleClose(c *gin.Context) {
	resp, err := h.CloseHandler(c.Request.Context(), actorFrom(c), c.Param("proposal_id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h Handler) handleFinalize(c *gin.Context) {
	resp, err := h.FinalizeHandler(c.Request.Context(), actorFrom(c), c.Param("proposal_id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// handleCastVote godoc
// @Summary Cast the caller's vote
// @Tags votes
// @Accept json
// @Produce json
// @Param proposal_id path string true "proposal id"
// @Param request body httptransport.CastVoteRequest true "vote"
// @Success 201 {object} httptransport.VoteResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Router /v1/proposals/{proposal_id}/votes [post]
func (h Handler) handleCastVote(c *gin.Context) {
	var req httptransport.CastVoteRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.CastVoteHandler(c.Request.Context(), actorFrom(c), c.Param("proposal_id"), req)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h Handler) handleGetOwnVote(c *gin.Context) {
	resp, err := h.GetVoteHandler(c.Request.Context(), c.Param("proposal_id"), actorFrom(c).UserID)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// handleResults godoc
// @Summary Live tally, or the frozen snapshot once finalized
// @Tags results
// @Produce json
// @Param proposal_id path string true "proposal id"
// @Success 200 {object} httptransport.ResultSnapshotResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Router /v1/proposals/{proposal_id}/results [get]
func (h Handler) handleResults(c *gin.Context) {
	resp, err := h.ResultsHandler(c.Request.Context(), c.Param("proposal_id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func bindJSON(c *gin.Context, target any) bool {
	if err := c.ShouldBindJSON(target); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return false
	}
	return true
}

func writeDomainError(c *gin.Context, err error) {
	switch domainerrors.Kind(err) {
	case domainerrors.ErrValidation:
		writeError(c, http.StatusBadRequest, "validation_failed", err.Error())
	case domainerrors.ErrPrecondition:
		writeError(c, http.StatusPreconditionFailed, "precondition_failed", err.Error())
	case domainerrors.ErrInvalidState:
		writeError(c, http.StatusConflict, "invalid_state", err.Error())
	case domainerrors.ErrNotFound:
		writeError(c, http.StatusNotFound, "not_found", err.Error())
	case domainerrors.ErrDuplicateVote:
		writeError(c, http.StatusConflict, "duplicate_vote", err.Error())
	case domainerrors.ErrConflict:
		writeError(c, http.StatusConflict, "conflict", err.Error())
	case domainerrors.ErrForbidden:
		writeError(c, http.StatusForbidden, "forbidden", err.Error())
	default:
		if ctxErr := c.Request.Context().Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			writeError(c, http.StatusServiceUnavailable, "request_cancelled", "request cancelled")
			return
		}
		writeError(c, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeError(c *gin.Context, status int, code string, message string) {
	c.JSON(status, httptransport.ErrorResponse{
		Code:    code,
		Message: message,
	})
}
