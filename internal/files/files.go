package files

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/loltft/rudefriend/internal/models"
)

// Store persists attachment bytes. The production deployment points this
// at a bucket, tests use LocalStore under a temp dir.
type Store interface {
	Save(dirName, fileName string, src io.Reader) (fullURL string, err error)
	Delete(fullURL string) error
}

type LocalStore struct {
	BaseDir string
}

func NewLocalStore(baseDir string) *LocalStore {
	return &LocalStore{BaseDir: baseDir}
}

func (s *LocalStore) Save(dirName, fileName string, src io.Reader) (string, error) {
	dir := filepath.Join(s.BaseDir, dirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("files: mkdir %s: %w", dir, err)
	}
	path := filepath.Join(dir, fileName)
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("files: create %s: %w", path, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("files: write %s: %w", path, err)
	}
	return path, nil
}

func (s *LocalStore) Delete(fullURL string) error {
	if err := os.Remove(fullURL); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("files: remove %s: %w", fullURL, err)
	}
	return nil
}

type FileService struct {
	DB    *gorm.DB
	Store Store
}

// UploadBoardFiles stores every part and records a SaveFile row per file.
// If any part fails, objects already written are removed again so the
// store does not accumulate orphans.
func (s *FileService) UploadBoardFiles(boardID uuid.UUID, uploadedBy string, headers []*multipart.FileHeader) ([]models.SaveFile, error) {
	dirName := time.Now().UTC().Format("2006/01/02")

	var saved []models.SaveFile
	rollback := func() {
		for _, f := range saved {
			_ = s.Store.Delete(f.FullURL)
		}
	}

	for _, h := range headers {
		src, err := h.Open()
		if err != nil {
			rollback()
			return nil, fmt.Errorf("files: open %s: %w", h.Filename, err)
		}

		fileUUID := uuid.New()
		storedName := fileUUID.String() + filepath.Ext(h.Filename)
		fullURL, err := s.Store.Save(dirName, storedName, src)
		src.Close()
		if err != nil {
			rollback()
			return nil, err
		}

		saved = append(saved, models.SaveFile{
			FileUUID:         fileUUID,
			OriginalFileName: h.Filename,
			DirName:          dirName,
			FullURL:          fullURL,
			BoardID:          boardID,
			UploadedBy:       uploadedBy,
		})
	}

	if len(saved) > 0 {
		if err := s.DB.Create(&saved).Error; err != nil {
			rollback()
			return nil, fmt.Errorf("files: record rows: %w", err)
		}
	}
	return saved, nil
}

func (s *FileService) FindByBoardID(boardID uuid.UUID) ([]models.SaveFile, error) {
	var out []models.SaveFile
	if err := s.DB.Where("board_id = ?", boardID).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteByBoardID removes the rows and then the stored objects. Object
// removal is best effort, a missing object does not fail the call.
func (s *FileService) DeleteByBoardID(boardID uuid.UUID) error {
	rows, err := s.FindByBoardID(boardID)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	if err := s.DB.Where("board_id = ?", boardID).Delete(&models.SaveFile{}).Error; err != nil {
		return err
	}
	for _, f := range rows {
		_ = s.Store.Delete(f.FullURL)
	}
	return nil
}

func (s *FileService) DeleteByFullURLs(boardID uuid.UUID, fullURLs []string) error {
	if len(fullURLs) == 0 {
		return nil
	}
	var rows []models.SaveFile
	if err := s.DB.Where("board_id = ? AND full_url IN ?", boardID, fullURLs).Find(&rows).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	if err := s.DB.Where("board_id = ? AND full_url IN ?", boardID, fullURLs).Delete(&models.SaveFile{}).Error; err != nil {
		return err
	}
	for _, f := range rows {
		_ = s.Store.Delete(f.FullURL)
	}
	return nil
}
