package storage

import (
	"encoding/json"
	"time"
)

// Chatbot is an operator-configured widget. The relay core reads it through
// Store; only the admin surface (out of process here) writes it.
type Chatbot struct {
	ID            string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	Name          string    `json:"name" gorm:"type:varchar(128);not null"`
	WebhookURL    string    `json:"webhookUrl" gorm:"not null"`
	WebhookSecret string    `json:"-"`
	// JSON-encoded list of origin patterns, exact or "*.domain".
	AllowedOrigins string    `json:"allowedOrigins" gorm:"not null;default:'[]'"`
	ThemeID        string    `json:"themeId" gorm:"type:varchar(64)"`
	CustomCSS      string    `json:"customCss"`
	Settings       string    `json:"settings" gorm:"not null;default:'{}'"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Origins decodes the allowed-origin patterns. A malformed column yields an
// empty list, which rejects every cross-origin caller rather than admitting
// them.
func (c *Chatbot) Origins() []string {
	var origins []string
	if err := json.Unmarshal([]byte(c.AllowedOrigins), &origins); err != nil {
		return nil
	}
	return origins
}

// SettingsMap decodes the widget settings blob.
func (c *Chatbot) SettingsMap() map[string]any {
	settings := make(map[string]any)
	_ = json.Unmarshal([]byte(c.Settings), &settings)
	return settings
}

// Theme is a widget appearance preset. Config is an opaque JSON document
// consumed by the widget.
type Theme struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	Name      string    `json:"name" gorm:"type:varchar(128);not null"`
	IsPreset  bool      `json:"isPreset" gorm:"not null;default:false"`
	Config    string    `json:"config" gorm:"not null;default:'{}'"`
	CreatedAt time.Time `json:"createdAt"`
}

// ConfigMap decodes the theme configuration.
func (t *Theme) ConfigMap() map[string]any {
	cfg := make(map[string]any)
	_ = json.Unmarshal([]byte(t.Config), &cfg)
	return cfg
}
