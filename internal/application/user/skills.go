package user_app

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/yebrai/skillswap/internal/application/api_helpers"
	"github.com/yebrai/skillswap/internal/domain/user"
)

// ListSkills returns every offered skill with its owner.
// GET /api/skills
func (h *UserHandler) ListSkills(w http.ResponseWriter, r *http.Request) {
	h.listSkills(w, r, "")
}

// ListSkillsByCategory is ListSkills restricted to one category.
// GET /api/skills/category/{category}
func (h *UserHandler) ListSkillsByCategory(w http.ResponseWriter, r *http.Request) {
	h.listSkills(w, r, mux.Vars(r)["category"])
}

func (h *UserHandler) listSkills(w http.ResponseWriter, r *http.Request, category string) {
	listings, err := h.users.ListSkills(r.Context(), category)
	if err != nil {
		api_helpers.RespondWithAppError(w, h.logger, err)
		return
	}
	api_helpers.RespondWithJSON(w, http.StatusOK, listings)
}

// AddSkill appends an offered skill to the caller's profile.
// POST /api/skills
func (h *UserHandler) AddSkill(w http.ResponseWriter, r *http.Request) {
	var sk user.OfferedSkill
	if err := api_helpers.DecodeJSONBody(r, &sk); err != nil {
		api_helpers.RespondWithAppError(w, h.logger, err)
		return
	}
	listing, err := h.users.AddOfferedSkill(r.Context(), callerID(r), sk)
	if err != nil {
		api_helpers.RespondWithAppError(w, h.logger, err)
		return
	}
	api_helpers.RespondWithJSON(w, http.StatusCreated, listing)
}

// ReplaceSkill overwrites the caller's offered skill with the given title.
// PUT /api/skills/{title}
func (h *UserHandler) ReplaceSkill(w http.ResponseWriter, r *http.Request) {
	var sk user.OfferedSkill
	if err := api_helpers.DecodeJSONBody(r, &sk); err != nil {
		api_helpers.RespondWithAppError(w, h.logger, err)
		return
	}
	listing, err := h.users.ReplaceOfferedSkill(r.Context(), callerID(r), mux.Vars(r)["title"], sk)
	if err != nil {
		api_helpers.RespondWithAppError(w, h.logger, err)
		return
	}
	api_helpers.RespondWithJSON(w, http.StatusOK, listing)
}
