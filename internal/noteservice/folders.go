package noteservice

import (
	"context"
	"fmt"

	"github.com/starford/orrery/internal/apperr"
	"github.com/starford/orrery/internal/models"
	"github.com/starford/orrery/internal/parser"
)

// Folders returns the folder tree in display order.
func (s *Service) Folders(ctx context.Context) ([]models.Folder, error) {
	folders, err := s.store.Folders(ctx)
	if err != nil {
		return nil, fmt.Errorf("noteservice: folders: %w", err)
	}
	return folders, nil
}

// CreateFolder appends a folder after its siblings.
func (s *Service) CreateFolder(ctx context.Context, name, parentID string) (models.Folder, error) {
	if name == "" {
		return models.Folder{}, fmt.Errorf("noteservice: create folder: empty name: %w", apperr.ErrInvalidInput)
	}
	folders, err := s.Folders(ctx)
	if err != nil {
		return models.Folder{}, err
	}
	siblings := 0
	parentFound := parentID == ""
	for _, f := range folders {
		if f.ParentID == parentID {
			siblings++
		}
		if f.ID == parentID {
			parentFound = true
		}
	}
	if !parentFound {
		return models.Folder{}, fmt.Errorf("noteservice: create folder: parent %s: %w", parentID, apperr.ErrNotFound)
	}

	f := models.Folder{
		ID:         parser.NewID(),
		Name:       name,
		ParentID:   parentID,
		Order:      siblings,
		IsExpanded: true,
		CreatedAt:  s.now(),
	}
	if err := s.store.PutFolder(ctx, f); err != nil {
		return models.Folder{}, fmt.Errorf("noteservice: create folder: %w", err)
	}
	return f, nil
}

// Settings returns the stored settings, or the defaults if none were saved.
func (s *Service) Settings(ctx context.Context) (models.Settings, error) {
	st, ok, err := s.store.Settings(ctx)
	if err != nil {
		return models.Settings{}, fmt.Errorf("noteservice: settings: %w", err)
	}
	if !ok {
		return models.DefaultSettings(), nil
	}
	return st, nil
}

// UpdateSettings replaces the stored settings.
func (s *Service) UpdateSettings(ctx context.Context, st models.Settings) error {
	if err := s.store.PutSettings(ctx, st); err != nil {
		return fmt.Errorf("noteservice: update settings: %w", err)
	}
	return nil
}
