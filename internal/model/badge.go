package model

import "time"

// Badge is an awarded badge instance. A user holds each named badge at most
// once — UNIQUE(user_id, badge) in the DB. Issuance is monotonic: once
// awarded, a badge survives the user's points dropping back below the
// threshold. Removal happens only through the explicit admin revoke endpoint.
type Badge struct {
	ID        string    `json:"id"         db:"id"`
	UserID    string    `json:"user_id"    db:"user_id"`
	Name      string    `json:"badge"      db:"badge"`
	AwardedAt time.Time `json:"awarded_at" db:"awarded_at"`
}
