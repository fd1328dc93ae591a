package repository

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/loltft/rudefriend/internal/models"
	"github.com/loltft/rudefriend/internal/util"
)

type BoardFilter struct {
	Search     string
	GameType   models.GameMode
	Tags       []string
	Author     string
	DateFrom   *time.Time
	DateTo     *time.Time
	DateOption models.DateOption
}

func (f BoardFilter) predicates() []predicate {
	var preds []predicate

	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := "%" + strings.ToLower(s) + "%"
		preds = append(preds, func(db *gorm.DB) *gorm.DB {
			return db.Where("LOWER(boards.title) LIKE ? OR LOWER(boards.content) LIKE ?", pattern, pattern)
		})
	}

	if f.GameType != "" {
		gameType := f.GameType
		preds = append(preds, func(db *gorm.DB) *gorm.DB {
			return db.Where("boards.game_type = ?", gameType)
		})
	}

	if len(f.Tags) > 0 {
		tags := f.Tags
		preds = append(preds, func(db *gorm.DB) *gorm.DB {
			return db.Where(
				"EXISTS (SELECT 1 FROM board_tags WHERE board_tags.board_id = boards.id AND board_tags.tag IN ?)",
				tags,
			)
		})
	}

	if f.Author != "" {
		author := f.Author
		preds = append(preds, func(db *gorm.DB) *gorm.DB {
			return db.Where("boards.created_by = ?", author)
		})
	}

	if f.DateOption != "" && (f.DateFrom != nil || f.DateTo != nil) {
		column := "boards.created_at"
		if f.DateOption == models.DateUpdate {
			column = "boards.updated_at"
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

	return preds
}

// BoardQuery lists boards with the total for the same filter in one call.
type BoardQuery struct {
	DB *gorm.DB
}

func (q *BoardQuery) base(f BoardFilter) *gorm.DB {
	db := q.DB.Model(&models.Board{})
	for _, p := range f.predicates() {
		db = p(db)
	}
	return db
}

// Page returns one page of boards, newest first, plus the unpaged total.
func (q *BoardQuery) Page(f BoardFilter, pageNo int) ([]models.Board, int64, error) {
	var total int64
	if err := q.base(f).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var boards []models.Board
	err := q.base(f).
		Preload("Tags").
		Preload("VoteItems").
		Order("boards.created_at DESC").
		Offset(util.Offset(pageNo)).
		Limit(util.PageSize).
		Find(&boards).Error
	return boards, total, err
}
