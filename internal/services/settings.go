package services

import (
	"context"
	"strings"

	"github.com/abrezinsky/rollcall/internal/logger"
	"github.com/abrezinsky/rollcall/internal/repository"
)

const (
	settingBaseURL        = "base_url"
	settingCheckInMessage = "checkin_message"
)

// SettingsService handles settings-related business logic
type SettingsService struct {
	log  logger.Logger
	repo repository.SettingsRepository
}

// NewSettingsService creates a new SettingsService
func NewSettingsService(log logger.Logger, repo repository.SettingsRepository) *SettingsService {
	return &SettingsService{log: log, repo: repo}
}

// GetBaseURL returns the application base URL
func (s *SettingsService) GetBaseURL(ctx context.Context) (string, error) {
	value, err := s.repo.GetSetting(ctx, settingBaseURL)
	if err != nil {
		if err == repository.ErrNotFound {
			return "", nil // No default - setting not yet configured
		}
		return "", err // Propagate database errors
	}
	return value, nil
}

// SetBaseURL saves the application base URL
func (s *SettingsService) SetBaseURL(ctx context.Context, url string) error {
	return s.repo.SetSetting(ctx, settingBaseURL, strings.TrimSuffix(strings.TrimSpace(url), "/"))
}

// GetCheckInMessage returns the note shown above every check-in form
func (s *SettingsService) GetCheckInMessage(ctx context.Context) (string, error) {
	value, err := s.repo.GetSetting(ctx, settingCheckInMessage)
	if err == repository.ErrNotFound {
		return "", nil
	}
	return value, err
}

// GetSetting retrieves an arbitrary setting
func (s *SettingsService) GetSetting(ctx context.Context, key string) (string, error) {
	return s.repo.GetSetting(ctx, key)
}

// SetSetting saves an arbitrary setting
func (s *SettingsService) SetSetting(ctx context.Context, key, value string) error {
	return s.repo.SetSetting(ctx, key, value)
}

// AllSettings returns commonly used settings as a map
func (s *SettingsService) AllSettings(ctx context.Context) (map[string]interface{}, error) {
	settings := make(map[string]interface{})

	baseURL, err := s.GetBaseURL(ctx)
	if err != nil {
		return nil, err
	}
	settings[settingBaseURL] = baseURL

	message, err := s.GetCheckInMessage(ctx)
	if err != nil {
		return nil, err
	}
	settings[settingCheckInMessage] = message

	return settings, nil
}

// Settings represents application settings for update operations
type Settings struct {
	BaseURL        string
	CheckInMessage *string
}

// UpdateSettings updates multiple settings at once
func (s *SettingsService) UpdateSettings(ctx context.Context, settings Settings) error {
	if settings.BaseURL != "" {
		if err := s.SetBaseURL(ctx, settings.BaseURL); err != nil {
			return err
		}
	}
	if settings.CheckInMessage != nil {
		if err := s.SetSetting(ctx, settingCheckInMessage, strings.TrimSpace(*settings.CheckInMessage)); err != nil {
			return err
		}
	}
	return nil
}

// Overview returns counts across every event for the dashboard
func (s *SettingsService) Overview(ctx context.Context) (map[string]interface{}, error) {
	return s.repo.GetOverviewStats(ctx)
}

// ResetTablesResult contains the result of a database reset
type ResetTablesResult struct {
	Tables  []string
	Message string
}

// ValidTables defines which tables can be reset
var ValidTables = map[string]bool{
	"checkins": true, "events": true, "templates": true, "settings": true,
}

// ResetTables validates and resets the specified database tables
func (s *SettingsService) ResetTables(ctx context.Context, tables []string) (*ResetTablesResult, error) {
	if len(tables) == 0 {
		return nil, ErrNoTablesSpecified
	}

	// Validate tables
	var tablesToReset []string
	for _, table := range tables {
		if !ValidTables[table] {
			return nil, &InvalidTableError{Table: table}
		}
		tablesToReset = append(tablesToReset, table)
	}

	// Check-ins go first when their events are cleared
	if containsTable(tablesToReset, "events") && !containsTable(tablesToReset, "checkins") {
		tablesToReset = append([]string{"checkins"}, tablesToReset...)
	}

	for _, table := range tablesToReset {
		if err := s.repo.ClearTable(ctx, table); err != nil {
			return nil, err
		}
	}

	s.log.Warn("Reset database tables", "tables", tablesToReset)
	return &ResetTablesResult{
		Tables:  tablesToReset,
		Message: "Successfully deleted data from tables",
	}, nil
}

func containsTable(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
