package models

import (
	"context"
	"fmt"
	"time"

	"github.com/mixpitch/mixpitch_backend/config"
	"github.com/mixpitch/mixpitch_backend/utils"
	"gorm.io/gorm"
)

// PitchFile rows form flattened version chains: every version is a direct
// child of the root (version-1) file, never a linked list.
type PitchFile struct {
	ID      int `gorm:"primary_key" json:"id"`
	PitchId int `gorm:"not null;index" json:"pitch_id"`

	// ParentFileId is null for root files. The composite unique index lets the
	// database reject a duplicate version number if two uploads race past the
	// pitch row lock; MySQL exempts NULL parents, so roots never collide.
	ParentFileId *int `gorm:"index;uniqueIndex:uniq_chain_version" json:"parent_file_id"`

	FileVersionNumber        int  `gorm:"not null;default:1;uniqueIndex:uniq_chain_version" json:"file_version_number"`
	IncludedInWorkingVersion bool `gorm:"not null;default:true" json:"included_in_working_version"`

	OriginalName string `gorm:"size:255;not null" json:"original_name"`
	StoragePath  string `gorm:"size:512;not null" json:"storage_path"`
	MimeType     string `gorm:"size:100" json:"mime_type"`
	Size         int64  `gorm:"not null;default:0" json:"size"`

	UploadedBy *int `json:"uploaded_by"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}

// RootId returns the chain root id for any member of the chain.
func (f *PitchFile) RootId() int {
	if f.ParentFileId != nil {
		return *f.ParentFileId
	}
	return f.ID
}

func GetPitchFile(ctx context.Context, id int) (*PitchFile, error) {
	return utils.FetchModel[PitchFile](ctx, id)
}

// GetPitchFileUnscoped loads a file including soft-deleted rows.
func GetPitchFileUnscoped(ctx context.Context, id int) (*PitchFile, error) {
	db := config.GetDB()
	var file PitchFile
	err := db.WithContext(ctx).Unscoped().First(&file, id).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &file, nil
}

// NextFileVersionNumber computes 1 + max version across the whole chain,
// soft-deleted rows included so numbers are never reused after deletion.
func NextFileVersionNumber(tx *gorm.DB, rootId int) (int, error) {
	var maxVersion int
	err := tx.Unscoped().Model(&PitchFile{}).
		Where("id = ? OR parent_file_id = ?", rootId, rootId).
		Select("COALESCE(MAX(file_version_number), 0)").
		Scan(&maxVersion).Error
	if err != nil {
		return 0, err
	}
	return maxVersion + 1, nil
}

// ClearWorkingVersionFlags flips included_in_working_version off for every
// chain member except keepId. Called inside the same tx that inserts the new
// working file, so the one-working-file invariant holds at commit.
func ClearWorkingVersionFlags(tx *gorm.DB, rootId int, keepId int) error {
	return tx.Model(&PitchFile{}).
		Where("(id = ? OR parent_file_id = ?) AND id <> ?", rootId, rootId, keepId).
		Update("included_in_working_version", false).Error
}

// GetChainFiles returns the non-deleted chain members ordered by version.
func GetChainFiles(tx *gorm.DB, rootId int) ([]*PitchFile, error) {
	var files []*PitchFile
	err := tx.
		Where("id = ? OR parent_file_id = ?", rootId, rootId).
		Order("file_version_number asc").
		Find(&files).Error
	if err != nil {
		return nil, err
	}
	return files, nil
}

// GetAllVersionsWithSelf returns the full chain including soft-deleted rows,
// ordered by version number ascending. History stays visible after deletion.
func GetAllVersionsWithSelf(ctx context.Context, fileId int) ([]*PitchFile, error) {
	file, err := GetPitchFileUnscoped(ctx, fileId)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	rootId := file.RootId()
	var files []*PitchFile
	err = db.WithContext(ctx).Unscoped().
		Where("id = ? OR parent_file_id = ?", rootId, rootId).
		Order("file_version_number asc").
		Find(&files).Error
	if err != nil {
		return nil, err
	}
	return files, nil
}

// ChainVersionCount counts all chain members including soft-deleted ones.
func ChainVersionCount(tx *gorm.DB, rootId int) (int64, error) {
	var count int64
	err := tx.Unscoped().Model(&PitchFile{}).
		Where("id = ? OR parent_file_id = ?", rootId, rootId).
		Count(&count).Error
	return count, err
}

// VersionLabel is empty for a lone file; once a chain has two or more
// versions every member reports "V{n}".
func (f *PitchFile) VersionLabel(chainSize int64) string {
	if chainSize < 2 {
		return ""
	}
	return fmt.Sprintf("V%d", f.FileVersionNumber)
}

// GetWorkingFiles returns the pitch's current working set: one file per
// chain plus any lone roots, soft-deleted rows excluded.
func GetWorkingFiles(tx *gorm.DB, pitchId int) ([]*PitchFile, error) {
	var files []*PitchFile
	err := tx.
		Where("pitch_id = ? AND included_in_working_version = ?", pitchId, true).
		Order("id asc").
		Find(&files).Error
	if err != nil {
		return nil, err
	}
	return files, nil
}

// GetRootFiles returns the pitch's non-deleted root files (version matching
// targets for bulk uploads).
func GetRootFiles(tx *gorm.DB, pitchId int) ([]*PitchFile, error) {
	var files []*PitchFile
	err := tx.
		Where("pitch_id = ? AND parent_file_id IS NULL", pitchId).
		Order("id asc").
		Find(&files).Error
	if err != nil {
		return nil, err
	}
	return files, nil
}

// SoftDeleteChain soft-deletes the root and every version in its chain in one
// statement. Root and children share fate.
func SoftDeleteChain(tx *gorm.DB, rootId int) error {
	return tx.
		Where("id = ? OR parent_file_id = ?", rootId, rootId).
		Delete(&PitchFile{}).Error
}
