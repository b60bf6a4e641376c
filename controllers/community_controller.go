package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/quietcircle/community/middleware"
	"github.com/quietcircle/community/services"
	"github.com/quietcircle/community/utils"
)

// CommunityController serves persona and tag catalog endpoints.
type CommunityController struct {
	identity *services.IdentityBinder
	tags     *services.TagCatalog
}

// NewCommunityController creates a new CommunityController instance.
func NewCommunityController(identity *services.IdentityBinder, tags *services.TagCatalog) *CommunityController {
	return &CommunityController{identity: identity, tags: tags}
}

// Persona returns the caller's persona, creating it on first use.
func (c *CommunityController) Persona(ctx *gin.Context) {
	persona, err := c.identity.Resolve(ctx.Request.Context(), middleware.AccountID(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{
		"id":           persona.ID,
		"display_name": persona.DisplayName,
		"created_at":   persona.CreatedAt,
	})
}

// Tags lists the tag catalog.
func (c *CommunityController) Tags(ctx *gin.Context) {
	utils.Success(ctx, gin.H{"items": c.tags.Names()})
}
