package user

import (
	"net/http"

	"github.com/ZJUSCT/OITrack/internal/util"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

type startRequest struct {
	Name       string `json:"name" binding:"required"`
	Stage      string `json:"stage"`
	Autosynced *bool  `json:"autosynced" binding:"required"`
}

func (h *Handler) startVirtual(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}
	if err := h.service.Start(c.Request.Context(), c.GetString("userID"), req.Name, req.Stage, *req.Autosynced); err != nil {
		util.Fail(c, err)
		return
	}
	util.OK(c)
}

func (h *Handler) endVirtual(c *gin.Context) {
	res, err := h.service.End(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	if !res.Autosynced {
		util.OK(c)
		return
	}
	util.Success(c, gin.H{"success": true, "submissions": res.Submissions})
}

func (h *Handler) confirmVirtual(c *gin.Context) {
	if err := h.service.Confirm(c.Request.Context(), c.GetString("userID")); err != nil {
		util.Fail(c, err)
		return
	}
	util.OK(c)
}

func (h *Handler) submitVirtual(c *gin.Context) {
	var req struct {
		Scores []float64 `json:"scores" binding:"required"`
	}
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}
	if err := h.service.Submit(c.Request.Context(), c.GetString("userID"), req.Scores); err != nil {
		util.Fail(c, err)
		return
	}
	util.OK(c)
}

func (h *Handler) setVirtualContext(c *gin.Context) {
	var req struct {
		ContestID uint              `json:"contestId" binding:"required"`
		Type      string            `json:"type" binding:"required"`
		Context   map[string]string `json:"context" binding:"required"`
	}
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}
	if err := h.service.SetContext(c.Request.Context(), c.GetString("userID"), req.ContestID, req.Type, req.Context); err != nil {
		util.Fail(c, err)
		return
	}
	util.OK(c)
}

func (h *Handler) getContextSchemas(c *gin.Context) {
	registry := h.service.Contexts()
	schemas := make(gin.H)
	for _, typ := range registry.Types() {
		fields, _ := registry.Schema(typ)
		schemas[typ] = fields
	}
	util.Success(c, schemas)
}
