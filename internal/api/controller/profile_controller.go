package controller

import (
	"github.com/bassista/go_autosave/internal/cache"
	"github.com/bassista/go_autosave/internal/logger"
	"github.com/bassista/go_autosave/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// ProfileController handles profile endpoints using the generic CRUD controller.
type ProfileController struct {
	crud *CrudController[repository.Profile]
}

func NewProfileController(store cache.ProfileStore) *ProfileController {
	return &ProfileController{
		crud: &CrudController[repository.Profile]{
			Service:   &ProfileCrudService{Store: store},
			Validator: &ProfileCrudValidator{validator: validator.New()},
		},
	}
}

// AllProfiles handles GET /profiles.
func (pc *ProfileController) AllProfiles(c *gin.Context) {
	logger.WithComponent("profile-controller").Debugf("GET /profiles handler called")
	pc.crud.GetAll(c)
}

// GetProfile handles GET /profile/:id.
func (pc *ProfileController) GetProfile(c *gin.Context) {
	logger.WithComponent("profile-controller").Debugf("GET /profile/%s handler called", c.Param("id"))
	pc.crud.GetOne(c)
}

// CreateOrUpdateProfile handles POST /profile.
func (pc *ProfileController) CreateOrUpdateProfile(c *gin.Context) {
	logger.WithComponent("profile-controller").Debugf("POST /profile handler called")
	pc.crud.CreateOrUpdate(c)
}

// DeleteProfile handles DELETE /profile/:id.
func (pc *ProfileController) DeleteProfile(c *gin.Context) {
	logger.WithComponent("profile-controller").Debugf("DELETE /profile/%s handler called", c.Param("id"))
	pc.crud.Delete(c)
}
