package repository

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/loltft/rudefriend/internal/models"
	"github.com/loltft/rudefriend/internal/util"
)

// MemberFilter carries the optional search criteria for the member list.
// Absent fields add no predicate; present ones are AND-combined.
type MemberFilter struct {
	Search      string
	Status      *bool
	Role        *models.Role
	DateFrom    *time.Time
	DateTo      *time.Time
	DateOption  models.DateOption
	HasGameInfo *bool
	GameMode    models.GameMode
	Tier        *models.Tier
	FilterMode  models.FilterMode
}

type predicate func(*gorm.DB) *gorm.DB

// predicates builds the shared condition set. List and Count both run over
// exactly this slice, so totals always agree with the paged rows.
func (f MemberFilter) predicates() []predicate {
	var preds []predicate

	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := "%" + strings.ToLower(s) + "%"
		preds = append(preds, func(db *gorm.DB) *gorm.DB {
			return db.Where(
				"LOWER(members.name) LIKE ? OR LOWER(members.member_id) LIKE ? OR LOWER(game_account_infos.game_name || '#' || game_account_infos.tag_line) LIKE ?",
				pattern, pattern, pattern,
			)
		})
	}

	if f.Status != nil {
		status := *f.Status
		preds = append(preds, func(db *gorm.DB) *gorm.DB {
			return db.Where("members.status = ?", status)
		})
	}

	if f.Role != nil {
		role := *f.Role
		preds = append(preds, func(db *gorm.DB) *gorm.DB {
			return db.Where("members.role = ?", role)
		})
	}

	if f.DateOption != "" && (f.DateFrom != nil || f.DateTo != nil) {
		column := "members.created_at"
		if f.DateOption == models.DateUpdate {
			column = "members.updated_at"
		}
		from, to := f.DateFrom, f.DateTo
		preds = append(preds, func(db *gorm.DB) *gorm.DB {
			switch {
			case from != nil && to != nil:
				return db.Where(column+" BETWEEN ? AND ?", *from, *to)
			case from != nil:
				return db.Where(column+" >= ?", *from)
			default:
				return db.Where(column+" <= ?", *to)
			}
		})
	}

	if f.HasGameInfo != nil {
		has := *f.HasGameInfo
		preds = append(preds, func(db *gorm.DB) *gorm.DB {
			if has {
				return db.Where("members.game_account_info_id IS NOT NULL")
			}
			return db.Where("members.game_account_info_id IS NULL")
		})
	}

	if f.GameMode != "" && f.Tier != nil {
		var column string
		switch f.GameMode {
		case models.ModeLOL:
			column = "game_account_infos.lol_tier"
		case models.ModeFlex:
			column = "game_account_infos.flex_tier"
		case models.ModeTFT:
			column = "game_account_infos.tft_tier"
		case models.ModeDoubleUp:
			column = "game_account_infos.double_up_tier"
		}
		tiers := f.FilterMode.Matching(*f.Tier)
		preds = append(preds, func(db *gorm.DB) *gorm.DB {
			return db.Where(column+" IN ?", tiers)
		})
	}

	return preds
}

// MemberQuery composes filtered, paged member listings over the member and
// game account tables.
type MemberQuery struct {
	DB *gorm.DB
}

func (q *MemberQuery) base(f MemberFilter) *gorm.DB {
	db := q.DB.Model(&models.Member{}).
		Joins("LEFT JOIN game_account_infos ON game_account_infos.id = members.game_account_info_id")
	for _, p := range f.predicates() {
		db = p(db)
	}
	return db
}

// List returns at most one page of members, newest first.
func (q *MemberQuery) List(f MemberFilter, pageNo int) ([]models.Member, error) {
	var members []models.Member
	err := q.base(f).
		Select("members.*").
		Preload("GameAccountInfo").
		Order("members.created_at DESC").
		Offset(util.Offset(pageNo)).
		Limit(util.PageSize).
		Find(&members).Error
	return members, err
}

// Count returns the total matching the same predicate set as List.
func (q *MemberQuery) Count(f MemberFilter) (int64, error) {
	var total int64
	err := q.base(f).Count(&total).Error
	return total, err
}
