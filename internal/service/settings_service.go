package service

import (
	"github.com/liliang-cn/askchat/internal/config"
	"github.com/liliang-cn/askchat/internal/domain"
)

// SettingsService serves the read-only client settings
type SettingsService struct {
	cfg *config.Config
}

// NewSettingsService creates a new settings service
func NewSettingsService(cfg *config.Config) *SettingsService {
	return &SettingsService{cfg: cfg}
}

// Display returns which message parts renderers should show
func (s *SettingsService) Display() domain.DisplaySettings {
	return domain.DisplaySettings{
		ShowProcess:    s.cfg.Display.ShowProcess,
		ShowReferences: s.cfg.Display.ShowReferences,
	}
}

// Welcome returns the empty-conversation greeting
func (s *SettingsService) Welcome() domain.Welcome {
	return domain.Welcome{
		Title:   s.cfg.Welcome.Title,
		Message: s.cfg.Welcome.Message,
	}
}
