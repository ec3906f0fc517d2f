package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/harisabid200/ChatFlowUI/internal/common/config"
)

// GormStore implements Store on top of gorm.
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

// NewStore opens the configured database, runs migrations and seeds the
// default theme.
func NewStore(cfg *config.DatabaseConfig) (*GormStore, error) {
	dialector, err := openDialector(cfg)
	if err != nil {
		return nil, err
	}

	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := gormDB.AutoMigrate(&Chatbot{}, &Theme{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	s := &GormStore{db: gormDB}
	if err := s.seedDefaultTheme(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func openDialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Type {
	case "sqlite":
		if dir := filepath.Dir(cfg.DBName); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		return sqlite.Open(cfg.DBName), nil
	case "postgres":
		dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName, cfg.SSLMode)
		return postgres.Open(dsn), nil
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)
		return mysql.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
}

func (s *GormStore) GetChatbot(ctx context.Context, id string) (*Chatbot, error) {
	var chatbot Chatbot
	err := s.db.WithContext(ctx).First(&chatbot, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &chatbot, nil
}

func (s *GormStore) GetTheme(ctx context.Context, id string) (*Theme, error) {
	var theme Theme
	err := s.db.WithContext(ctx).First(&theme, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &theme, nil
}

func (s *GormStore) SaveChatbot(ctx context.Context, chatbot *Chatbot) error {
	return s.db.WithContext(ctx).Save(chatbot).Error
}

func (s *GormStore) SaveTheme(ctx context.Context, theme *Theme) error {
	return s.db.WithContext(ctx).Save(theme).Error
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// seedDefaultTheme installs the "default" preset used as the fallback when a
// chatbot has no theme of its own. An existing row is left untouched.
func (s *GormStore) seedDefaultTheme(ctx context.Context) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&Theme{}).Where("id = ?", "default").Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(&Theme{
		ID:       "default",
		Name:     "Default",
		IsPreset: true,
		Config:   defaultThemeConfig,
	}).Error
}

const defaultThemeConfig = `{
  "name": "Default",
  "colors": {
    "primary": "#4f46e5",
    "primaryHover": "#4338ca",
    "background": "#ffffff",
    "headerBg": "#4f46e5",
    "headerText": "#ffffff",
    "userMessageBg": "#4f46e5",
    "userMessageText": "#ffffff",
    "botMessageBg": "#f3f4f6",
    "botMessageText": "#111827",
    "inputBg": "#ffffff",
    "inputText": "#111827",
    "inputBorder": "#d1d5db",
    "userAvatarBg": "#4f46e5"
  },
  "typography": {"fontFamily": "system-ui, sans-serif", "fontSize": "14px", "headerFontSize": "16px"},
  "dimensions": {"width": "380px", "height": "600px", "borderRadius": "12px", "buttonSize": "56px"},
  "position": {"placement": "bottom-right", "offsetX": "20px", "offsetY": "20px"},
  "features": {"soundEnabled": false, "typingIndicator": true, "showTimestamps": true}
}`
