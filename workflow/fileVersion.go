package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/mixpitch/mixpitch_backend/config"
	"github.com/mixpitch/mixpitch_backend/models"
	"github.com/mixpitch/mixpitch_backend/utils"
	"gorm.io/gorm"
)

// UploadedFile describes one file landed in object storage, awaiting a
// PitchFile row.
type UploadedFile struct {
	StorageKey   string `json:"storage_key"`
	OriginalName string `json:"original_name"`
	MimeType     string `json:"mime_type"`
	Size         int64  `json:"size"`
}

func requireUploadsAccepted(pitch *models.Pitch) error {
	if pitch.Status.IsTerminal() {
		return &InvalidStatusTransitionError{
			Current: pitch.Status,
			Reason:  fmt.Sprintf("Pitch is %s and no longer accepts file uploads.", pitch.Status.Readable()),
		}
	}
	return nil
}

// AddPitchFile creates a fresh root file (version 1) on the pitch.
func (e *PitchWorkflowEngine) AddPitchFile(ctx context.Context, pitchId int, upload UploadedFile) (*models.PitchFile, error) {

	db := config.GetDB()
	uploaderId, _ := utils.GetUserIdFromContext(ctx)

	var file *models.PitchFile
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pitch, err := models.GetPitchForUpdate(tx, pitchId)
		if err != nil {
			return err
		}
		if err := requireUploadsAccepted(pitch); err != nil {
			return err
		}

		created := models.PitchFile{
			PitchId:                  pitch.ID,
			FileVersionNumber:        1,
			IncludedInWorkingVersion: true,
			OriginalName:             upload.OriginalName,
			StoragePath:              upload.StorageKey,
			MimeType:                 upload.MimeType,
			Size:                     upload.Size,
			UploadedBy:               &uploaderId,
		}
		if err := tx.Create(&created).Error; err != nil {
			return err
		}
		file = &created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return file, nil
}

// UploadVersion adds a new version to an existing file's chain. Whichever
// version the caller uploaded "from", the new row always becomes a direct
// child of the chain root, takes max+1 numbering (soft-deleted versions
// included, so numbers are never reused), and becomes the sole working file.
func (e *PitchWorkflowEngine) UploadVersion(ctx context.Context, existingFileId int, upload UploadedFile) (*models.PitchFile, error) {

	db := config.GetDB()
	uploaderId, _ := utils.GetUserIdFromContext(ctx)

	var file *models.PitchFile
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.PitchFile
		if err := tx.First(&existing, existingFileId).Error; err != nil {
			return utils.ErrorRecordNotFound
		}

		pitch, err := models.GetPitchForUpdate(tx, existing.PitchId)
		if err != nil {
			return err
		}
		if err := requireUploadsAccepted(pitch); err != nil {
			return err
		}

		file, err = createVersionInTx(tx, &existing, upload, uploaderId)
		return err
	})
	if err != nil {
		return nil, err
	}
	return file, nil
}

// createVersionInTx appends a version to the chain of existing. The caller
// must already hold the pitch row lock.
func createVersionInTx(tx *gorm.DB, existing *models.PitchFile, upload UploadedFile, uploaderId int) (*models.PitchFile, error) {
	rootId := existing.RootId()
	version, err := models.NextFileVersionNumber(tx, rootId)
	if err != nil {
		return nil, err
	}

	created := models.PitchFile{
		PitchId:                  existing.PitchId,
		ParentFileId:             &rootId,
		FileVersionNumber:        version,
		IncludedInWorkingVersion: true,
		OriginalName:             upload.OriginalName,
		StoragePath:              upload.StorageKey,
		MimeType:                 upload.MimeType,
		Size:                     upload.Size,
		UploadedBy:               &uploaderId,
	}
	if err := tx.Create(&created).Error; err != nil {
		if isDuplicateKeyErr(err) {
			return nil, &FileVersionConflictError{RootFileId: rootId, VersionNumber: version}
		}
		return nil, err
	}

	// Exactly one working file per chain, enforced in the same tx as the
	// insert.
	if err := models.ClearWorkingVersionFlags(tx, rootId, created.ID); err != nil {
		return nil, err
	}
	return &created, nil
}

// BulkUploadResult separates uploads that became versions from uploads that
// matched nothing and should be created as fresh root files by the caller.
type BulkUploadResult struct {
	CreatedVersions []*models.PitchFile `json:"created_versions"`
	NewFiles        []UploadedFile      `json:"new_files"`
}

// BulkUploadVersions matches a batch of uploads against the pitch's existing
// root files. Manual matches (original name -> existing file id) win; the
// rest are matched case-insensitively on filename with the extension
// stripped. Each root takes at most one version per batch. The whole batch
// runs in one transaction: one bad upload rolls back every version.
func (e *PitchWorkflowEngine) BulkUploadVersions(ctx context.Context, pitchId int, uploads []UploadedFile, manualMatches map[string]int) (*BulkUploadResult, error) {

	db := config.GetDB()
	uploaderId, _ := utils.GetUserIdFromContext(ctx)

	result := &BulkUploadResult{}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pitch, err := models.GetPitchForUpdate(tx, pitchId)
		if err != nil {
			return err
		}
		if err := requireUploadsAccepted(pitch); err != nil {
			return err
		}

		roots, err := models.GetRootFiles(tx, pitch.ID)
		if err != nil {
			return err
		}

		matchedRoots := map[int]bool{}
		for _, upload := range uploads {
			if fileId, ok := manualMatches[upload.OriginalName]; ok {
				var target models.PitchFile
				if err := tx.First(&target, fileId).Error; err != nil {
					return utils.ErrorRecordNotFound
				}
				if target.PitchId != pitch.ID {
					return &UnauthorizedActionError{Reason: fmt.Sprintf("File %d does not belong to pitch %d.", fileId, pitch.ID)}
				}
				created, err := createVersionInTx(tx, &target, upload, uploaderId)
				if err != nil {
					return err
				}
				result.CreatedVersions = append(result.CreatedVersions, created)
				matchedRoots[target.RootId()] = true
				continue
			}

			matched := false
			normalized := utils.NormalizeFilename(upload.OriginalName)
			for _, root := range roots {
				if matchedRoots[root.ID] {
					continue
				}
				if utils.NormalizeFilename(root.OriginalName) == normalized {
					created, err := createVersionInTx(tx, root, upload, uploaderId)
					if err != nil {
						return err
					}
					result.CreatedVersions = append(result.CreatedVersions, created)
					matchedRoots[root.ID] = true
					matched = true
					break
				}
			}
			if !matched {
				result.NewFiles = append(result.NewFiles, upload)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// DeletePitchFile soft-deletes a file. Deleting a chain root takes every
// version with it; deleting a single version removes only that row and, when
// it carried the working flag, hands the flag to the newest surviving
// version. History stays queryable unscoped either way.
func (e *PitchWorkflowEngine) DeletePitchFile(ctx context.Context, fileId int) error {

	db := config.GetDB()

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var file models.PitchFile
		if err := tx.First(&file, fileId).Error; err != nil {
			return utils.ErrorRecordNotFound
		}

		if file.ParentFileId == nil {
			return models.SoftDeleteChain(tx, file.ID)
		}

		if err := tx.Delete(&file).Error; err != nil {
			return err
		}
		if !file.IncludedInWorkingVersion {
			return nil
		}
		survivors, err := models.GetChainFiles(tx, *file.ParentFileId)
		if err != nil {
			return err
		}
		if len(survivors) == 0 {
			return nil
		}
		newest := survivors[len(survivors)-1]
		return tx.Model(newest).Update("included_in_working_version", true).Error
	})
}

// FileDownloadURL signs a short-lived GET URL for the file's storage object.
func FileDownloadURL(ctx context.Context, fileId int) (string, error) {
	file, err := models.GetPitchFile(ctx, fileId)
	if err != nil {
		return "", err
	}
	return utils.SignDownloadURL(ctx, file.StoragePath, 15*time.Minute)
}
