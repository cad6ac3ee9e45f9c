package domain

import "time"

// Жесткие значения по умолчанию, когда в таблицах лимитов нет подходящих строк
const (
	DefaultImageLimit = 5
	DefaultTitleLimit = 200
	DefaultBodyLimit  = 2000
)

// RoleImageLimit максимум изображений в объявлении для роли
type RoleImageLimit struct {
	RoleName  string `db:"role_name" json:"role_name"`
	MaxImages int    `db:"max_images" json:"max_images"`
}

// RoleTextLimit лимиты длины заголовка и текста объявления для роли
type RoleTextLimit struct {
	RoleName   string `db:"role_name" json:"role_name"`
	TitleLimit int    `db:"title_limit" json:"title_limit"`
	BodyLimit  int    `db:"body_limit" json:"body_limit"`
}

// TextLimits эффективные текстовые лимиты после разрешения роли
type TextLimits struct {
	Title int `json:"title"`
	Body  int `json:"body"`
}

// EffectiveLimits совокупные лимиты для конкретного вызывающего
type EffectiveLimits struct {
	ImageMax   int        `json:"image_max"`
	TextLimits TextLimits `json:"text_limits"`
}

// SiteConfiguration глобальные настройки сайта. Singleton: в хранилище
// допускается не более одной записи.
type SiteConfiguration struct {
	ID             int64     `db:"id" json:"id"`
	SiteName       string    `db:"site_name" json:"site_name"`
	LogoURL        string    `db:"logo_url" json:"logo_url,omitempty"`
	ContactEmail   string    `db:"contact_email" json:"contact_email"`
	FooterText     string    `db:"footer_text" json:"footer_text,omitempty"`
	MaxImagesPerAd int       `db:"max_images_per_ad" json:"max_images_per_ad"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
