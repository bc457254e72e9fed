package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/k-kitchen/internal/catalog"
	"github.com/tbourn/k-kitchen/internal/domain"
	"github.com/tbourn/k-kitchen/internal/services"
)

// PersonasResponse lists the persona pool.
type PersonasResponse struct {
	Personas []domain.Author `json:"personas"`
}

// ScenariosResponse lists the meal scenarios.
type ScenariosResponse struct {
	Scenarios []catalog.Scenario `json:"scenarios"`
}

// ListPersonas handles GET /personas.
func (h *Handlers) ListPersonas(c *gin.Context) {
	ok(c, http.StatusOK, PersonasResponse{Personas: h.catalog.Authors()})
}

// ListScenarios handles GET /scenarios.
func (h *Handlers) ListScenarios(c *gin.Context) {
	ok(c, http.StatusOK, ScenariosResponse{Scenarios: append([]catalog.Scenario(nil), h.catalog.Scenarios...)})
}

// StoryResponse carries a persona's profile story.
type StoryResponse struct {
	PersonaID string `json:"persona_id"`
	Story     string `json:"story"`
}

// PersonaStory handles GET /personas/:id/story.
func (h *Handlers) PersonaStory(c *gin.Context) {
	if h.personas == nil {
		fail(c, http.StatusServiceUnavailable, ErrCodeStoryUnavailable, "persona stories are not configured")
		return
	}
	id := c.Param("id")
	story, err := h.personas.Story(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrPersonaNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "persona not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, StoryResponse{PersonaID: id, Story: story})
}
