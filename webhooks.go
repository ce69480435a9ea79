package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mixpitch/mixpitch_backend/config"
	"github.com/mixpitch/mixpitch_backend/models"
	"github.com/mixpitch/mixpitch_backend/workflow"
)

const paymentWebhookHandlerName = "payment_webhook"

// Recognized metadata discriminators. Events carrying anything else were
// raised for flows this service does not own and are acked without action.
const (
	paymentTypePitch            = "pitch_payment"
	paymentTypeClientManagement = "client_management_payment"
)

const (
	webhookEventCheckoutCompleted = "checkout.session.completed"
	webhookEventPaymentFailed     = "checkout.session.async_payment_failed"
)

type paymentWebhookEvent struct {
	ID   string `json:"id" binding:"required"`
	Type string `json:"type" binding:"required"`
	Data struct {
		Object struct {
			ID       string `json:"id"`
			Metadata struct {
				PitchId string `json:"pitch_id"`
				Type    string `json:"type"`
			} `json:"metadata"`
			FailureReason string `json:"failure_reason"`
		} `json:"object"`
	} `json:"data"`
}

// paymentWebhookHandler ingests payment provider events. The same event id
// delivered twice is processed once; unrecognized event or metadata types are
// acked so the provider stops retrying.
func paymentWebhookHandler(c *gin.Context) {
	logger := config.GetLogger()

	var event paymentWebhookEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		// Malformed request: ack/drop to avoid infinite retries.
		config.LogError(logger, "webhooks.go", "paymentWebhookHandler", "bind event", nil, err)
		c.Status(http.StatusOK)
		return
	}

	if event.Type != webhookEventCheckoutCompleted && event.Type != webhookEventPaymentFailed {
		c.Status(http.StatusOK)
		return
	}
	metaType := event.Data.Object.Metadata.Type
	if metaType != paymentTypePitch && metaType != paymentTypeClientManagement {
		c.Status(http.StatusOK)
		return
	}
	pitchId, err := strconv.Atoi(event.Data.Object.Metadata.PitchId)
	if err != nil || pitchId <= 0 {
		config.LogError(logger, "webhooks.go", "paymentWebhookHandler", "parse pitch_id", event.Data.Object.Metadata, errors.New("invalid pitch_id"))
		c.Status(http.StatusOK)
		return
	}

	ctx := c.Request.Context()
	db := config.GetDB()

	skip, err := workflow.BeginIdempotency(db.WithContext(ctx), paymentWebhookHandlerName, event.ID)
	if err != nil {
		if errors.Is(err, workflow.ErrIdempotencyInProgress) {
			// Another delivery is mid-flight; non-2xx asks for a retry later.
			c.Status(http.StatusConflict)
			return
		}
		config.LogError(logger, "webhooks.go", "paymentWebhookHandler", "begin idempotency", event.ID, err)
		c.Status(http.StatusInternalServerError)
		return
	}
	if skip {
		c.Status(http.StatusOK)
		return
	}

	if err := processPaymentEvent(c, &event, pitchId, metaType); err != nil {
		_ = workflow.MarkIdempotencyFailed(db.WithContext(ctx), paymentWebhookHandlerName, event.ID, err)
		config.LogError(logger, "webhooks.go", "paymentWebhookHandler", "process event", map[string]any{
			"event_id": event.ID,
			"pitch_id": pitchId,
		}, err)
		c.Status(http.StatusInternalServerError)
		return
	}

	if err := workflow.MarkIdempotencySucceeded(db.WithContext(ctx), paymentWebhookHandlerName, event.ID); err != nil {
		config.LogError(logger, "webhooks.go", "paymentWebhookHandler", "mark succeeded", event.ID, err)
	}
	c.Status(http.StatusOK)
}

func processPaymentEvent(c *gin.Context, event *paymentWebhookEvent, pitchId int, metaType string) error {
	ctx := c.Request.Context()

	if event.Type == webhookEventPaymentFailed {
		_, err := engine.MarkPitchPaymentFailed(ctx, pitchId, event.Data.Object.FailureReason)
		return err
	}

	pitch, err := engine.MarkPitchAsPaid(ctx, pitchId, event.Data.Object.ID)
	if err != nil {
		return err
	}

	// A client-management checkout doubles as the client's sign-off: payment
	// approves and completes the pitch in one step.
	if metaType == paymentTypeClientManagement && pitch.Status != models.PitchStatusCompleted {
		var project models.Project
		if err := config.GetDB().WithContext(ctx).First(&project, pitch.ProjectId).Error; err != nil {
			return err
		}
		if _, err := engine.ClientApprovePitch(ctx, pitch.ID, project.ClientEmail); err != nil {
			return err
		}
	}
	return nil
}
