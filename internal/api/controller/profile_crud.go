package controller

import (
	"github.com/bassista/go_autosave/internal/cache"
	"github.com/bassista/go_autosave/internal/repository"
	"github.com/go-playground/validator/v10"
)

// ProfileCrudService implements CrudService for profiles.
type ProfileCrudService struct {
	Store cache.ProfileStore
}

func (s *ProfileCrudService) All() ([]repository.Profile, error) {
	doc, err := s.Store.Snapshot()
	if err != nil {
		return nil, err
	}
	return doc.Profiles, nil
}

func (s *ProfileCrudService) Get(id string) (repository.Profile, error) {
	return s.Store.Profile(id)
}

func (s *ProfileCrudService) Add(item repository.Profile) ([]repository.Profile, error) {
	doc, err := s.Store.UpsertProfile(item)
	if err != nil {
		return nil, err
	}
	return doc.Profiles, nil
}

func (s *ProfileCrudService) Remove(id string) ([]repository.Profile, error) {
	doc, err := s.Store.RemoveProfile(id)
	if err != nil {
		return nil, err
	}
	return doc.Profiles, nil
}

// ProfileCrudValidator implements CrudValidator for profiles.
type ProfileCrudValidator struct {
	validator *validator.Validate
}

func (v *ProfileCrudValidator) Validate(item repository.Profile) error {
	item.ApplyDefaults()
	return v.validator.Struct(item)
}
