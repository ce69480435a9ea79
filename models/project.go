package models

import (
	"context"
	"time"

	"github.com/mixpitch/mixpitch_backend/config"
	"github.com/mixpitch/mixpitch_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Project struct {
	ID           int             `gorm:"primary_key" json:"id"`
	OwnerId      int             `gorm:"not null;index" json:"owner_id"`
	Owner        *User           `gorm:"foreignKey:OwnerId" json:"owner,omitempty"`
	Title        string          `gorm:"size:255;not null" json:"title"`
	Description  string          `gorm:"type:text" json:"description"`
	WorkflowType WorkflowType    `gorm:"size:50;not null;default:'standard'" json:"workflow_type"`
	Status       ProjectStatus   `gorm:"size:50;not null;default:'open'" json:"status"`
	Budget       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"budget"`
	Currency     string          `gorm:"size:3;not null;default:'USD'" json:"currency"`

	// Client-management projects carry the external client's contact details.
	// The client has no account; they act through signed portal links.
	ClientEmail string `gorm:"size:255" json:"client_email"`
	ClientName  string `gorm:"size:255" json:"client_name"`

	CompletedAt *time.Time `json:"completed_at"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Project) IsClientManagement() bool {
	return p.WorkflowType == WorkflowTypeClientManagement
}

type NewProject struct {
	Title        string          `json:"title" binding:"required"`
	Description  string          `json:"description"`
	WorkflowType string          `json:"workflow_type" binding:"required"`
	Budget       decimal.Decimal `json:"budget"`
	Currency     string          `json:"currency"`
	ClientEmail  string          `json:"client_email"`
	ClientName   string          `json:"client_name"`
}

func CreateProject(ctx context.Context, input *NewProject) (*Project, error) {

	db := config.GetDB()

	workflowType, err := ParseWorkflowType(input.WorkflowType)
	if err != nil {
		return nil, err
	}

	userId, _ := utils.GetUserIdFromContext(ctx)

	currency := input.Currency
	if currency == "" {
		currency = "USD"
	}

	// Client-management projects stay unpublished until the producer's first
	// submission; there is nothing for the client to see before that.
	status := ProjectStatusOpen
	if workflowType == WorkflowTypeClientManagement {
		status = ProjectStatusUnpublished
	}

	project := Project{
		OwnerId:      userId,
		Title:        input.Title,
		Description:  input.Description,
		WorkflowType: workflowType,
		Status:       status,
		Budget:       input.Budget,
		Currency:     currency,
		ClientEmail:  input.ClientEmail,
		ClientName:   input.ClientName,
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&project).Error; err != nil {
			return err
		}
		// Client-management projects get their single producer pitch up front,
		// already in progress: there is no open application round.
		if project.IsClientManagement() {
			pitch := Pitch{
				ProjectId:     project.ID,
				ProducerId:    userId,
				Status:        PitchStatusInProgress,
				PaymentAmount: project.Budget,
				PaymentStatus: paymentStatusForBudget(project.Budget),
			}
			if err := tx.Create(&pitch).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func paymentStatusForBudget(budget decimal.Decimal) PaymentStatus {
	if budget.IsPositive() {
		return PaymentStatusPending
	}
	return PaymentStatusNotRequired
}

func GetProject(ctx context.Context, id int) (*Project, error) {
	return utils.FetchModel[Project](ctx, id)
}

func GetProjectPitches(ctx context.Context, projectId int) ([]*Pitch, error) {
	db := config.GetDB()
	var pitches []*Pitch
	err := db.WithContext(ctx).
		Where("project_id = ?", projectId).
		Order("id asc").
		Find(&pitches).Error
	if err != nil {
		return nil, err
	}
	return pitches, nil
}
