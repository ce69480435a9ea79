package models

import (
	"context"
	"fmt"
	"time"

	"github.com/mixpitch/mixpitch_backend/config"
	"github.com/mixpitch/mixpitch_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Pitch struct {
	ID         int      `gorm:"primary_key" json:"id"`
	ProjectId  int      `gorm:"not null;index" json:"project_id"`
	Project    *Project `gorm:"foreignKey:ProjectId" json:"project,omitempty"`
	ProducerId int      `gorm:"not null;index" json:"producer_id"`
	Producer   *User    `gorm:"foreignKey:ProducerId" json:"producer,omitempty"`

	Status PitchStatus `gorm:"size:50;not null;default:'pending'" json:"status"`

	PaymentAmount      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"payment_amount"`
	PaymentStatus      PaymentStatus   `gorm:"size:50;not null;default:'not_required'" json:"payment_status"`
	PaymentCompletedAt *time.Time      `json:"payment_completed_at"`

	ApprovedAt  *time.Time `json:"approved_at"`
	CompletedAt *time.Time `json:"completed_at"`

	CompletionFeedback string `gorm:"type:text" json:"completion_feedback"`

	CurrentSnapshotId *int           `json:"current_snapshot_id"`
	CurrentSnapshot   *PitchSnapshot `gorm:"foreignKey:CurrentSnapshotId" json:"current_snapshot,omitempty"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

type NewPitch struct {
	ProjectId int `json:"project_id" binding:"required"`
}

func CreatePitch(ctx context.Context, input *NewPitch) (*Pitch, error) {

	db := config.GetDB()

	project, err := GetProject(ctx, input.ProjectId)
	if err != nil {
		return nil, err
	}
	if project.Status != ProjectStatusOpen {
		return nil, fmt.Errorf("project %d is not open for pitches", project.ID)
	}

	userId, _ := utils.GetUserIdFromContext(ctx)

	status := PitchStatusPending
	if project.WorkflowType == WorkflowTypeContest {
		status = PitchStatusContestEntry
	}

	pitch := Pitch{
		ProjectId:     project.ID,
		ProducerId:    userId,
		Status:        status,
		PaymentAmount: project.Budget,
		PaymentStatus: paymentStatusForBudget(project.Budget),
	}
	if err := db.WithContext(ctx).Create(&pitch).Error; err != nil {
		return nil, err
	}
	return &pitch, nil
}

func GetPitch(ctx context.Context, id int, associations ...string) (*Pitch, error) {
	return utils.FetchModel[Pitch](ctx, id, associations...)
}

// GetPitchForUpdate loads the pitch inside tx with a row lock so concurrent
// workflow operations on the same pitch serialize.
func GetPitchForUpdate(tx *gorm.DB, id int) (*Pitch, error) {
	var pitch Pitch
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&pitch, id).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &pitch, nil
}

// MarkPaymentPaid moves payment_status pending -> paid. Payment status never
// moves backwards; paid and failed are re-assertable only from pending.
func (p *Pitch) MarkPaymentPaid(tx *gorm.DB, paidAt time.Time) error {
	if p.PaymentStatus != PaymentStatusPending {
		return fmt.Errorf("pitch %d payment_status is %s, expected %s", p.ID, p.PaymentStatus, PaymentStatusPending)
	}
	p.PaymentStatus = PaymentStatusPaid
	p.PaymentCompletedAt = &paidAt
	return tx.Model(p).Updates(map[string]any{
		"payment_status":       PaymentStatusPaid,
		"payment_completed_at": paidAt,
	}).Error
}

func (p *Pitch) MarkPaymentFailed(tx *gorm.DB) error {
	if p.PaymentStatus != PaymentStatusPending {
		return fmt.Errorf("pitch %d payment_status is %s, expected %s", p.ID, p.PaymentStatus, PaymentStatusPending)
	}
	p.PaymentStatus = PaymentStatusFailed
	return tx.Model(p).Update("payment_status", PaymentStatusFailed).Error
}

// ActiveFileCount counts non-deleted files attached to the pitch.
func (p *Pitch) ActiveFileCount(tx *gorm.DB) (int64, error) {
	var count int64
	err := tx.Model(&PitchFile{}).Where("pitch_id = ?", p.ID).Count(&count).Error
	return count, err
}

// NextSnapshotVersion returns 1 + the highest snapshot version for this pitch.
func (p *Pitch) NextSnapshotVersion(tx *gorm.DB) (int, error) {
	var maxVersion int
	err := tx.Model(&PitchSnapshot{}).
		Where("pitch_id = ?", p.ID).
		Select("COALESCE(MAX(version), 0)").
		Scan(&maxVersion).Error
	if err != nil {
		return 0, err
	}
	return maxVersion + 1, nil
}

func GetProducerPitches(ctx context.Context, producerId int) ([]*Pitch, error) {
	db := config.GetDB()
	var pitches []*Pitch
	err := db.WithContext(ctx).
		Where("producer_id = ?", producerId).
		Order("id desc").
		Find(&pitches).Error
	if err != nil {
		return nil, err
	}
	return pitches, nil
}
