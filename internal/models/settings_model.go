package models

import "time"

type Settings struct {
	ID                 int64     `db:"id" json:"id"`
	UserID             int64     `db:"user_id" json:"user_id"`
	NotifyEmail        string    `db:"notify_email" json:"notify_email"`
	NotifyOnFailure    bool      `db:"notify_on_failure" json:"notify_on_failure"`
	NotifyOnDisconnect bool      `db:"notify_on_disconnect" json:"notify_on_disconnect"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}
