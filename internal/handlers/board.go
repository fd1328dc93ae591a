package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/loltft/rudefriend/internal/files"
	"github.com/loltft/rudefriend/internal/hash"
	"github.com/loltft/rudefriend/internal/models"
	"github.com/loltft/rudefriend/internal/mykafka"
	"github.com/loltft/rudefriend/internal/repository"
	"github.com/loltft/rudefriend/internal/service/search"
	"github.com/loltft/rudefriend/internal/util"
)

// anonymousAuthor marks boards written without a member identity. Those
// boards carry a bcrypt password instead, checked on edit and delete.
const anonymousAuthor = "ANONYMOUS"

type BoardHandler struct {
	DB       *gorm.DB
	Files    *files.FileService
	ES       *elasticsearch.Client
	Producer *mykafka.Producer
}

type boardDetail struct {
	models.Board
	Tags      []string          `json:"tags"`
	VoteItems []string          `json:"vote_items"`
	Files     []models.SaveFile `json:"files,omitempty"`
	Votes     map[string]int64  `json:"votes,omitempty"`
	VoteTotal int64             `json:"vote_total,omitempty"`
}

func detailOf(b models.Board) boardDetail {
	d := boardDetail{Board: b, Tags: []string{}, VoteItems: []string{}}
	for _, t := range b.Tags {
		d.Tags = append(d.Tags, t.Tag)
	}
	for _, v := range b.VoteItems {
		d.VoteItems = append(d.VoteItems, v.Item)
	}
	return d
}

func (h *BoardHandler) Create(c echo.Context) error {
	title := strings.TrimSpace(c.FormValue("title"))
	content := c.FormValue("content")
	if title == "" || len(title) > 100 {
		return Fail(c, http.StatusBadRequest, "title is required and must be 100 characters or less")
	}
	if len(content) > 1000 {
		return Fail(c, http.StatusBadRequest, "content must be 1000 characters or less")
	}
	gameType, err := models.ParseGameMode(c.FormValue("game_type"))
	if err != nil {
		return Fail(c, http.StatusBadRequest, err.Error())
	}

	board := models.Board{
		ID:       uuid.New(),
		Title:    title,
		Content:  content,
		GameType: gameType,
	}

	author := PrincipalID(c)
	if author == "" {
		// anonymous boards need a password for later edits
		pw := c.FormValue("password")
		if pw == "" {
			return Fail(c, http.StatusBadRequest, "anonymous boards require a password")
		}
		hashed, err := hash.HashPassword(pw)
		if err != nil {
			return Fail(c, http.StatusInternalServerError, "unexpected error")
		}
		board.CreatedBy = anonymousAuthor
		board.Password = &hashed
	} else {
		board.CreatedBy = author
	}

	form, _ := c.MultipartForm()
	if form != nil {
		for _, tag := range form.Value["tags"] {
			if tag = strings.TrimSpace(tag); tag != "" {
				board.Tags = append(board.Tags, models.BoardTag{Tag: tag})
			}
		}
	}

	if c.FormValue("vote_enabled") == "true" {
		items, err := voteItemsFromForm(form)
		if err != nil {
			return Fail(c, http.StatusBadRequest, err.Error())
		}
		board.VoteEnabled = true
		for _, item := range items {
			board.VoteItems = append(board.VoteItems, models.VoteItem{Item: item})
		}
	}

	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&board).Error; err != nil {
			return err
		}
		for _, item := range board.VoteItems {
			summary := models.VoteSummary{BoardID: board.ID, VoteItem: item.Item}
			if err := tx.Create(&summary).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		return Fail(c, http.StatusInternalServerError, "unexpected error")
	}

	if form != nil && len(form.File["files"]) > 0 {
		if _, err := h.Files.UploadBoardFiles(board.ID, board.CreatedBy, form.File["files"]); err != nil {
			c.Logger().Errorf("file upload failed: %v", err)
			return Fail(c, http.StatusInternalServerError, "file upload failed")
		}
	}

	h.indexBoard(c, &board)
	h.publishBoardEvent(c, "created", board.ID)
	return OK(c, "board created", detailOf(board))
}

func (h *BoardHandler) Update(c echo.Context) error {
	board, err := h.findBoard(c)
	if board == nil {
		return err
	}

	if ok, failResp := h.authorizeEdit(c, board); !ok {
		return failResp
	}

	if title := strings.TrimSpace(c.FormValue("title")); title != "" {
		if len(title) > 100 {
			return Fail(c, http.StatusBadRequest, "title must be 100 characters or less")
		}
		board.Title = title
	}
	if content := c.FormValue("content"); content != "" {
		if len(content) > 1000 {
			return Fail(c, http.StatusBadRequest, "content must be 1000 characters or less")
		}
		board.Content = content
	}
	if gt := c.FormValue("game_type"); gt != "" {
		gameType, err := models.ParseGameMode(gt)
		if err != nil {
			return Fail(c, http.StatusBadRequest, err.Error())
		}
		board.GameType = gameType
	}

	form, _ := c.MultipartForm()

	// vote items are validated before the transaction starts
	var voteItems []string
	if form != nil && len(form.Value["vote_items"]) > 0 {
		items, err := voteItemsFromForm(form)
		if err != nil {
			return Fail(c, http.StatusBadRequest, err.Error())
		}
		voteItems = items
	}

	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		if form != nil && len(form.Value["tags"]) > 0 {
			if err := tx.Where("board_id = ?", board.ID).Delete(&models.BoardTag{}).Error; err != nil {
				return err
			}
			board.Tags = nil
			for _, tag := range form.Value["tags"] {
				if tag = strings.TrimSpace(tag); tag != "" {
					board.Tags = append(board.Tags, models.BoardTag{BoardID: board.ID, Tag: tag})
				}
			}
			if len(board.Tags) > 0 {
				if err := tx.Create(&board.Tags).Error; err != nil {
					return err
				}
			}
		}

		if voteItems != nil {
			if err := h.applyVoteItemEdit(tx, board, voteItems); err != nil {
				return err
			}
		}

		return tx.Model(board).Updates(map[string]interface{}{
			"title":     board.Title,
			"content":   board.Content,
			"game_type": board.GameType,
		}).Error
	})
	if txErr != nil {
		return Fail(c, http.StatusInternalServerError, "unexpected error")
	}

	if form != nil {
		if urls := form.Value["shouldDeleteFileUrls"]; len(urls) > 0 {
			if err := h.Files.DeleteByFullURLs(board.ID, urls); err != nil {
				c.Logger().Errorf("file delete failed: %v", err)
			}
		}
		if len(form.File["files"]) > 0 {
			if _, err := h.Files.UploadBoardFiles(board.ID, board.CreatedBy, form.File["files"]); err != nil {
				c.Logger().Errorf("file upload failed: %v", err)
				return Fail(c, http.StatusInternalServerError, "file upload failed")
			}
		}
	}

	h.indexBoard(c, board)
	h.publishBoardEvent(c, "updated", board.ID)
	return OK(c, "board updated", detailOf(*board))
}

func (h *BoardHandler) Delete(c echo.Context) error {
	board, err := h.findBoard(c)
	if board == nil {
		return err
	}

	author := PrincipalID(c)
	if author == "" || author != board.CreatedBy {
		return Fail(c, http.StatusForbidden, "access denied")
	}

	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		for _, m := range []interface{}{
			&models.Vote{}, &models.VoteSummary{}, &models.VoteItem{}, &models.BoardTag{},
		} {
			if err := tx.Where("board_id = ?", board.ID).Delete(m).Error; err != nil {
				return err
			}
		}
		return tx.Delete(board).Error
	})
	if txErr != nil {
		return Fail(c, http.StatusInternalServerError, "unexpected error")
	}

	if err := h.Files.DeleteByBoardID(board.ID); err != nil {
		c.Logger().Errorf("file cleanup failed: %v", err)
	}
	if h.ES != nil {
		if err := search.DeleteBoard(c.Request().Context(), h.ES, search.BoardIndex, board.ID); err != nil {
			c.Logger().Errorf("search index delete failed: %v", err)
		}
	}

	h.publishBoardEvent(c, "deleted", board.ID)
	return OK(c, "board deleted", nil)
}

func (h *BoardHandler) Detail(c echo.Context) error {
	board, err := h.findBoard(c)
	if board == nil {
		return err
	}

	d := detailOf(*board)
	if attached, err := h.Files.FindByBoardID(board.ID); err == nil {
		d.Files = attached
	}
	if board.VoteEnabled {
		votes, total, err := h.voteCounts(board.ID)
		if err == nil {
			d.Votes, d.VoteTotal = votes, total
		}
	}
	return OK(c, "board detail", d)
}

func (h *BoardHandler) List(c echo.Context) error {
	var f repository.BoardFilter
	f.Search = c.QueryParam("search")
	f.Author = c.QueryParam("author")

	if gt := c.QueryParam("gameType"); gt != "" {
		gameType, err := models.ParseGameMode(gt)
		if err != nil {
			return Fail(c, http.StatusBadRequest, err.Error())
		}
		f.GameType = gameType
	}
	if tags := c.QueryParams()["tags"]; len(tags) > 0 {
		f.Tags = tags
	}

	from, to, err := util.DateRange(c.QueryParam("dateFrom"), c.QueryParam("dateTo"))
	if err != nil {
		return Fail(c, http.StatusBadRequest, err.Error())
	}
	f.DateFrom, f.DateTo = from, to
	if v := c.QueryParam("dateOption"); v != "" {
		opt, err := models.ParseDateOption(v)
		if err != nil {
			return Fail(c, http.StatusBadRequest, err.Error())
		}
		f.DateOption = opt
	}

	q := repository.BoardQuery{DB: h.DB}
	boards, total, err := q.Page(f, pageParam(c))
	if err != nil {
		return Fail(c, http.StatusInternalServerError, "unexpected error")
	}

	items := make([]boardDetail, len(boards))
	for i, b := range boards {
		items[i] = detailOf(b)
	}
	return OK(c, "board list", map[string]interface{}{"items": items, "total": total})
}

func (h *BoardHandler) Vote(c echo.Context) error {
	board, err := h.findBoard(c)
	if board == nil {
		return err
	}
	if !board.VoteEnabled {
		return Fail(c, http.StatusBadRequest, "voting is not enabled on this board")
	}

	var req struct {
		VoteItem string `json:"vote_item"`
	}
	if err := c.Bind(&req); err != nil {
		return Fail(c, http.StatusBadRequest, "malformed request")
	}

	// match the request against the configured items, case-insensitively
	var chosen string
	for _, item := range board.VoteItems {
		if strings.EqualFold(item.Item, strings.TrimSpace(req.VoteItem)) {
			chosen = item.Item
			break
		}
	}
	if chosen == "" {
		return Fail(c, http.StatusBadRequest, "unknown vote item")
	}

	var memberPK *uuid.UUID
	var voterIP *string
	if pk, ok := c.Get(ctxMemberPK).(uuid.UUID); ok {
		memberPK = &pk
	} else {
		ip := util.ClientIP(c.Request())
		voterIP = &ip
	}

	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		existing := models.Vote{}
		query := tx.Where("board_id = ?", board.ID)
		if memberPK != nil {
			query = query.Where("member_id = ?", *memberPK)
		} else {
			query = query.Where("ip_address = ?", *voterIP)
		}
		err := query.First(&existing).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			vote := models.Vote{
				ID:        uuid.New(),
				BoardID:   board.ID,
				MemberID:  memberPK,
				IPAddress: voterIP,
				VoteItem:  chosen,
			}
			if err := tx.Create(&vote).Error; err != nil {
				return err
			}
			return bumpSummary(tx, board.ID, chosen, +1)
		case err != nil:
			return err
		case existing.VoteItem == chosen:
			return nil
		default:
			// switch the earlier choice to the new item
			previous := existing.VoteItem
			if err := tx.Model(&existing).Update("vote_item", chosen).Error; err != nil {
				return err
			}
			if err := bumpSummary(tx, board.ID, previous, -1); err != nil {
				return err
			}
			return bumpSummary(tx, board.ID, chosen, +1)
		}
	})
	if txErr != nil {
		return Fail(c, http.StatusInternalServerError, "unexpected error")
	}

	votes, total, err := h.voteCounts(board.ID)
	if err != nil {
		return Fail(c, http.StatusInternalServerError, "unexpected error")
	}

	h.publishBoardEvent(c, "voted", board.ID)
	return OK(c, "vote recorded", map[string]interface{}{"votes": votes, "total": total})
}

func (h *BoardHandler) CheckPassword(c echo.Context) error {
	board, err := h.findBoard(c)
	if board == nil {
		return err
	}
	if board.Password == nil {
		return Fail(c, http.StatusBadRequest, "board has no password")
	}

	var req struct {
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return Fail(c, http.StatusBadRequest, "malformed request")
	}
	if !hash.CheckPassword(*board.Password, req.Password) {
		return Fail(c, http.StatusUnauthorized, "wrong password")
	}
	return OK(c, "password accepted", nil)
}

func (h *BoardHandler) Search(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return Fail(c, http.StatusBadRequest, "query is required")
	}
	if h.ES == nil {
		return Fail(c, http.StatusInternalServerError, "search is not available")
	}

	page := pageParam(c)
	total, docs, err := search.Search(c.Request().Context(), h.ES, search.BoardIndex, q, util.Offset(page), util.PageSize)
	if err != nil {
		return Fail(c, http.StatusInternalServerError, "unexpected error")
	}
	return OK(c, "board search", map[string]interface{}{"items": docs, "total": total})
}

func (h *BoardHandler) findBoard(c echo.Context) (*models.Board, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, Fail(c, http.StatusBadRequest, "invalid board id")
	}
	var board models.Board
	if err := h.DB.Preload("Tags").Preload("VoteItems").First(&board, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, Fail(c, http.StatusNotFound, "board not found")
		}
		return nil, Fail(c, http.StatusInternalServerError, "unexpected error")
	}
	return &board, nil
}

// authorizeEdit lets the author through directly. Anonymous boards accept
// the board password instead.
func (h *BoardHandler) authorizeEdit(c echo.Context, board *models.Board) (bool, error) {
	author := PrincipalID(c)
	if author != "" && author == board.CreatedBy {
		return true, nil
	}
	if board.Password != nil {
		if pw := c.FormValue("password"); pw != "" && hash.CheckPassword(*board.Password, pw) {
			return true, nil
		}
		return false, Fail(c, http.StatusUnauthorized, "wrong password")
	}
	return false, Fail(c, http.StatusForbidden, "access denied")
}

// applyVoteItemEdit reconciles the stored vote items with the requested
// set: removed items drop their votes and summaries, added ones start a
// zero summary, surviving ones keep their counts.
func (h *BoardHandler) applyVoteItemEdit(tx *gorm.DB, board *models.Board, items []string) error {
	requested := make(map[string]bool, len(items))
	for _, item := range items {
		requested[item] = true
	}
	existing := make(map[string]bool, len(board.VoteItems))
	for _, item := range board.VoteItems {
		existing[item.Item] = true
	}

	for _, item := range board.VoteItems {
		if requested[item.Item] {
			continue
		}
		if err := tx.Where("board_id = ? AND vote_item = ?", board.ID, item.Item).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("board_id = ? AND vote_item = ?", board.ID, item.Item).Delete(&models.VoteSummary{}).Error; err != nil {
			return err
		}
		if err := tx.Where("board_id = ? AND item = ?", board.ID, item.Item).Delete(&models.VoteItem{}).Error; err != nil {
			return err
		}
	}

	var kept []models.VoteItem
	for _, item := range items {
		if !existing[item] {
			vi := models.VoteItem{BoardID: board.ID, Item: item}
			if err := tx.Create(&vi).Error; err != nil {
				return err
			}
			summary := models.VoteSummary{BoardID: board.ID, VoteItem: item}
			if err := tx.Create(&summary).Error; err != nil {
				return err
			}
			kept = append(kept, vi)
		}
	}
	for _, item := range board.VoteItems {
		if requested[item.Item] {
			kept = append(kept, item)
		}
	}
	board.VoteItems = kept
	board.VoteEnabled = len(kept) > 0
	return tx.Model(board).Update("vote_enabled", board.VoteEnabled).Error
}

func (h *BoardHandler) voteCounts(boardID uuid.UUID) (map[string]int64, int64, error) {
	var summaries []models.VoteSummary
	if err := h.DB.Where("board_id = ?", boardID).Find(&summaries).Error; err != nil {
		return nil, 0, err
	}
	votes := make(map[string]int64, len(summaries))
	var total int64
	for _, s := range summaries {
		votes[s.VoteItem] = s.VoteCount
		total += s.VoteCount
	}
	return votes, total, nil
}

func bumpSummary(tx *gorm.DB, boardID uuid.UUID, item string, delta int64) error {
	return tx.Model(&models.VoteSummary{}).
		Where("board_id = ? AND vote_item = ?", boardID, item).
		Update("vote_count", gorm.Expr("vote_count + ?", delta)).Error
}

// voteItemsFromForm collects the trimmed, distinct vote items. Voting
// needs at least two choices to mean anything.
func voteItemsFromForm(form *multipart.Form) ([]string, error) {
	if form == nil {
		return nil, errors.New("voting requires at least 2 distinct vote items")
	}
	seen := make(map[string]bool)
	var items []string
	for _, raw := range form.Value["vote_items"] {
		item := strings.TrimSpace(raw)
		if item == "" {
			continue
		}
		key := strings.ToLower(item)
		if seen[key] {
			continue
		}
		seen[key] = true
		items = append(items, item)
	}
	if len(items) < 2 {
		return nil, errors.New("voting requires at least 2 distinct vote items")
	}
	return items, nil
}

func (h *BoardHandler) indexBoard(c echo.Context, board *models.Board) {
	if h.ES == nil {
		return
	}
	if err := search.IndexBoard(c.Request().Context(), h.ES, search.BoardIndex, board); err != nil {
		c.Logger().Errorf("search index failed: %v", err)
	}
}

func (h *BoardHandler) publishBoardEvent(c echo.Context, eventType string, boardID uuid.UUID) {
	event := map[string]interface{}{
		"type":     eventType,
		"board_id": boardID.String(),
	}
	if err := h.Producer.PublishEvent(c.Request().Context(), "board_events", boardID.String(), event); err != nil {
		c.Logger().Errorf("kafka publish error: %v", err)
	}
}
