package transfer

import (
	"github.com/golang-jwt/jwt/v5"
)

type CustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

type PostCreation struct {
	Content     string  `json:"content"`
	AccountIDs  []int64 `json:"account_ids"`
	ScheduledAt string  `json:"scheduled_at"`
	Timezone    string  `json:"timezone"`
	AssetIDs    []int64 `json:"asset_ids"`
}

type SettingsUpdate struct {
	NotifyEmail        string `json:"notify_email"`
	NotifyOnFailure    bool   `json:"notify_on_failure"`
	NotifyOnDisconnect bool   `json:"notify_on_disconnect"`
}

type BlueskyConnect struct {
	Handle      string `json:"handle"`
	AppPassword string `json:"app_password"`
}

type TelegramConnect struct {
	ChatID string `json:"chat_id"`
	Title  string `json:"title"`
}
