package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mixpitch/mixpitch_backend/config"
	"github.com/mixpitch/mixpitch_backend/models"
	"github.com/mixpitch/mixpitch_backend/utils"
	"gorm.io/gorm"
)

// payoutTypeClientManagement is the metadata discriminator stamped on payouts
// created by client approval, used by downstream reporting.
const payoutTypeClientManagement = "client_management_completion"
const payoutTypeStandard = "standard_completion"

// PayoutScheduler creates payout records for completed, paid pitches.
type PayoutScheduler struct {
	Rates    CommissionRateProvider
	Hold     *HoldCalculator
	Notifier Notifier
}

func NewPayoutScheduler() *PayoutScheduler {
	return &PayoutScheduler{
		Rates:    NewPlanCommissionProvider(),
		Hold:     NewHoldCalculator(),
		Notifier: NewOutboxNotifier(),
	}
}

// Schedule creates the payout for a paid pitch, exactly once. A repeat call
// (or a concurrent duplicate guarded by the advisory lock plus the unique
// pitch_id index) returns the existing record as a no-op.
func (s *PayoutScheduler) Schedule(ctx context.Context, pitchId int) (*models.PayoutSchedule, error) {

	db := config.GetDB()

	setting, err := models.GetPayoutHoldSetting(ctx)
	if err != nil {
		return nil, err
	}

	var payout *models.PayoutSchedule
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := AcquirePayoutLock(tx, pitchId); err != nil {
			return err
		}
		defer ReleasePayoutLock(tx, pitchId)

		pitch, err := models.GetPitchForUpdate(tx, pitchId)
		if err != nil {
			return err
		}
		if pitch.PaymentStatus != models.PaymentStatusPaid {
			return fmt.Errorf("pitch %d is not paid (payment_status=%s); payout not scheduled", pitch.ID, pitch.PaymentStatus)
		}

		existing, err := models.GetPayoutScheduleByPitch(tx, pitchId)
		if err == nil {
			payout = existing
			return nil
		}
		if !errors.Is(err, utils.ErrorRecordNotFound) {
			return err
		}

		var project models.Project
		if err := tx.First(&project, pitch.ProjectId).Error; err != nil {
			return err
		}
		var producer models.User
		if err := tx.First(&producer, pitch.ProducerId).Error; err != nil {
			return err
		}

		rate, err := s.Rates.GetPlatformCommissionRate(ctx, &producer)
		if err != nil {
			return err
		}
		gross := pitch.PaymentAmount
		commission, net := ComputeCommission(gross, rate)

		payoutType := payoutTypeStandard
		if project.IsClientManagement() {
			payoutType = payoutTypeClientManagement
		}
		metadata := map[string]any{
			"type":          payoutType,
			"project_title": project.Title,
		}
		if project.ClientEmail != "" {
			metadata["client_email"] = project.ClientEmail
		}
		encoded, err := utils.MarshalToJSON(metadata)
		if err != nil {
			return err
		}

		created := models.PayoutSchedule{
			PitchId:          pitch.ID,
			ProducerId:       producer.ID,
			GrossAmount:      gross,
			CommissionRate:   rate,
			CommissionAmount: commission,
			NetAmount:        net,
			Currency:         project.Currency,
			Status:           models.PayoutStatusScheduled,
			WorkflowType:     project.WorkflowType,
			HoldReleaseDate:  s.Hold.ReleaseDateWith(setting, project.WorkflowType),
			Metadata:         json.RawMessage(encoded),
		}
		if err := tx.Create(&created).Error; err != nil {
			// A concurrent scheduler that slipped past the lock window loses
			// to the unique pitch_id index; surface the winner's row.
			if isDuplicateKeyErr(err) {
				winner, lookupErr := models.GetPayoutScheduleByPitch(tx, pitchId)
				if lookupErr != nil {
					return err
				}
				payout = winner
				return nil
			}
			return err
		}

		s.Notifier.Notify(tx, EventPayoutScheduled, pitch, pitch.ProducerId, map[string]any{
			"payout_id":         created.ID,
			"net_amount":        created.NetAmount.StringFixed(2),
			"currency":          created.Currency,
			"hold_release_date": created.HoldReleaseDate,
		})

		payout = &created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payout, nil
}

const msgBypassUnauthorized = "Unauthorized: Admin bypass not allowed or insufficient permissions"
const msgBypassReasonRequired = "Bypass reason is required"

// authorizeHoldBypass gates the bypass on both the caller being an admin and
// the allow_admin_bypass setting, then enforces the reason requirement. The
// returned reason is trimmed; whitespace-only reasons do not count.
func authorizeHoldBypass(isAdmin bool, setting *models.PayoutHoldSetting, reason string) (string, error) {
	allowBypass := true
	requireReason := true
	if setting != nil {
		allowBypass = setting.AllowAdminBypass
		requireReason = setting.RequireBypassReason
	}
	if !isAdmin || !allowBypass {
		return "", &UnauthorizedActionError{Reason: msgBypassUnauthorized}
	}
	reason = strings.TrimSpace(reason)
	if requireReason && reason == "" {
		return "", &SubmissionValidationError{Reason: msgBypassReasonRequired}
	}
	return reason, nil
}

// BypassHoldPeriod shortens a payout's hold to the configured minimum (or
// releases it immediately when no minimum is set). Requires an admin caller
// and the allow_admin_bypass setting; the original hold date is never
// lengthened.
func (s *PayoutScheduler) BypassHoldPeriod(ctx context.Context, payoutId int, reason string) (*models.PayoutSchedule, error) {

	setting, err := models.GetPayoutHoldSetting(ctx)
	if err != nil {
		return nil, err
	}
	isAdmin, _ := utils.GetIsAdminFromContext(ctx)
	reason, err = authorizeHoldBypass(isAdmin, setting, reason)
	if err != nil {
		return nil, err
	}
	minimumHoldHours := 0
	if setting != nil {
		minimumHoldHours = setting.MinimumHoldHours
	}

	adminId, _ := utils.GetUserIdFromContext(ctx)
	now := s.Hold.Now()
	release := now
	if minimumHoldHours > 0 {
		release = now.Add(time.Duration(minimumHoldHours) * time.Hour)
	}

	db := config.GetDB()
	var payout models.PayoutSchedule
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&payout, payoutId).Error; err != nil {
			return utils.ErrorRecordNotFound
		}
		if payout.Status != models.PayoutStatusScheduled {
			return &InvalidStatusTransitionError{
				Reason: fmt.Sprintf("Payout %d is %s; only scheduled payouts can be bypassed.", payout.ID, payout.Status),
			}
		}
		// Bypass shortens, never lengthens.
		if release.After(payout.HoldReleaseDate) {
			release = payout.HoldReleaseDate
		}
		updates := map[string]any{
			"hold_bypassed":     true,
			"bypass_reason":     reason,
			"bypass_admin_id":   adminId,
			"bypassed_at":       now,
			"hold_release_date": release,
		}
		if err := tx.Model(&payout).Updates(updates).Error; err != nil {
			return err
		}

		var pitch models.Pitch
		if err := tx.First(&pitch, payout.PitchId).Error; err == nil {
			s.Notifier.Notify(tx, EventPayoutBypassed, &pitch, pitch.ProducerId, map[string]any{
				"payout_id":         payout.ID,
				"bypass_reason":     reason,
				"hold_release_date": release,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &payout, nil
}
