package models

import (
	"time"

	"github.com/google/uuid"
)

// Audit holds the created/updated timestamps shared by every entity.
// gorm fills both on insert and bumps UpdatedAt on save.
type Audit struct {
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Member struct {
	ID           uuid.UUID `gorm:"primaryKey"       json:"id"`
	MemberID     string    `gorm:"unique;not null"  json:"member_id"`
	Password     string    `gorm:"not null"         json:"-"`
	Name         *string   `gorm:"unique"           json:"name"`
	Status       bool      `gorm:"not null"         json:"status"`
	Role         Role      `gorm:"not null"         json:"role"`
	RefreshToken *string   `json:"-"`

	GameAccountInfoID *uuid.UUID       `gorm:"index" json:"-"`
	GameAccountInfo   *GameAccountInfo `json:"game_account_info,omitempty"`

	Audit
}

type GameAccountInfo struct {
	ID           uuid.UUID `gorm:"primaryKey" json:"id"`
	GameName     string    `json:"game_name"`
	TagLine      string    `json:"tag_line"`
	IconURL      string    `json:"icon_url"`
	LOLTier      *Tier     `json:"lol_tier"`
	FlexTier     *Tier     `json:"flex_tier"`
	TFTTier      *Tier     `json:"tft_tier"`
	DoubleUpTier *Tier     `json:"double_up_tier"`
}

type AnonymousMember struct {
	ID        uuid.UUID `gorm:"primaryKey"      json:"id"`
	IPAddress string    `gorm:"unique;not null" json:"ip_address"`

	Audit
}

type Board struct {
	ID          uuid.UUID  `gorm:"primaryKey"        json:"id"`
	Title       string     `gorm:"size:100;not null" json:"title"`
	Content     string     `gorm:"size:1000"         json:"content"`
	GameType    GameMode   `gorm:"not null"          json:"game_type"`
	Tags        []BoardTag `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	VoteEnabled bool       `gorm:"not null"          json:"vote_enabled"`
	VoteItems   []VoteItem `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedBy   string     `gorm:"index"             json:"created_by"`
	Password    *string    `json:"-"`

	Audit
}

// BoardTag and VoteItem replace the original element collections with plain
// child tables.
type BoardTag struct {
	ID      uint      `gorm:"primaryKey"       json:"-"`
	BoardID uuid.UUID `gorm:"index;not null"   json:"-"`
	Tag     string    `gorm:"size:50;not null" json:"tag"`
}

type VoteItem struct {
	ID      uint      `gorm:"primaryKey"        json:"-"`
	BoardID uuid.UUID `gorm:"index;not null"    json:"-"`
	Item    string    `gorm:"size:100;not null" json:"item"`
}

// Vote records one choice per board per member, or per IP address when the
// voter is anonymous.
type Vote struct {
	ID        uuid.UUID  `gorm:"primaryKey"                                                   json:"id"`
	BoardID   uuid.UUID  `gorm:"not null;uniqueIndex:idx_vote_member;uniqueIndex:idx_vote_ip" json:"board_id"`
	MemberID  *uuid.UUID `gorm:"uniqueIndex:idx_vote_member"                                  json:"member_id"`
	IPAddress *string    `gorm:"uniqueIndex:idx_vote_ip"                                      json:"ip_address"`
	VoteItem  string     `gorm:"size:100;not null"                                            json:"vote_item"`

	Audit
}

// VoteSummary keeps the running count per board and vote item so reads never
// aggregate the vote table.
type VoteSummary struct {
	BoardID   uuid.UUID `gorm:"primaryKey"          json:"board_id"`
	VoteItem  string    `gorm:"primaryKey;size:100" json:"vote_item"`
	VoteCount int64     `gorm:"not null"            json:"vote_count"`
}

type SaveFile struct {
	FileUUID         uuid.UUID `gorm:"primaryKey"     json:"file_uuid"`
	OriginalFileName string    `gorm:"not null"       json:"original_file_name"`
	DirName          string    `json:"dir_name"`
	FullURL          string    `gorm:"not null"       json:"full_url"`
	BoardID          uuid.UUID `gorm:"index;not null" json:"board_id"`
	UploadedBy       string    `json:"uploaded_by"`

	Audit
}

// UpdateRefreshToken stores the keyed hash of the member's current refresh
// token, or clears it on logout.
func (m *Member) UpdateRefreshToken(hashed *string) {
	m.RefreshToken = hashed
}

func (m *Member) ToggleStatus() {
	m.Status = !m.Status
}
