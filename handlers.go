package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mixpitch/mixpitch_backend/models"
	"github.com/mixpitch/mixpitch_backend/models/reports"
	"github.com/mixpitch/mixpitch_backend/utils"
	"github.com/mixpitch/mixpitch_backend/workflow"
)

var engine = workflow.NewPitchWorkflowEngine()

func registerRoutes(r *gin.Engine) {

	r.POST("/auth/register", registerHandler)
	r.POST("/auth/login", loginHandler)

	authed := r.Group("/", requireUser())
	{
		authed.POST("/projects", createProjectHandler)
		authed.GET("/projects/:id", getProjectHandler)
		authed.GET("/projects/:id/pitches", getProjectPitchesHandler)
		authed.POST("/projects/:id/cancel", cancelProjectHandler)

		authed.POST("/pitches", createPitchHandler)
		authed.GET("/pitches/:id", getPitchHandler)
		authed.GET("/pitches/:id/events", getPitchEventsHandler)
		authed.GET("/pitches/:id/snapshots", getPitchSnapshotsHandler)

		authed.POST("/pitches/:id/submit", submitForReviewHandler)
		authed.POST("/pitches/:id/cancel-submission", cancelSubmissionHandler)
		authed.POST("/pitches/:id/snapshots/:snapshotId/approve", approveSnapshotHandler)
		authed.POST("/pitches/:id/snapshots/:snapshotId/deny", denySnapshotHandler)
		authed.POST("/pitches/:id/snapshots/:snapshotId/request-revisions", requestRevisionsHandler)
		authed.POST("/pitches/:id/complete", completePitchHandler)

		authed.POST("/pitches/:id/files", addPitchFileHandler)
		authed.POST("/pitches/:id/files/bulk-versions", bulkUploadVersionsHandler)
		authed.POST("/files/:id/versions", uploadVersionHandler)
		authed.GET("/files/:id/versions", getFileVersionsHandler)
		authed.GET("/files/:id/download-url", fileDownloadURLHandler)
		authed.DELETE("/files/:id", deleteFileHandler)

		authed.GET("/payouts", getProducerPayoutsHandler)
		authed.GET("/payouts/hold-info", holdPeriodInfoHandler)
	}

	admin := r.Group("/admin", requireUser(), requireAdmin())
	{
		admin.POST("/payouts/:id/bypass", bypassHoldHandler)
		admin.GET("/payouts/export", exportPayoutsHandler)
		admin.GET("/payouts/summary", payoutSummaryHandler)
		admin.GET("/payout-hold-settings", getHoldSettingsHandler)
		admin.PUT("/payout-hold-settings", updateHoldSettingsHandler)
		admin.POST("/projects/:id/client-portal-link", clientPortalLinkHandler)
	}

	portal := r.Group("/client-portal", clientPortalMiddleware())
	{
		portal.GET("/pitches/:id", portalGetPitchHandler)
		portal.POST("/pitches/:id/approve", portalApproveHandler)
		portal.POST("/pitches/:id/request-revisions", portalRequestRevisionsHandler)
	}

	r.POST("/webhooks/payments", paymentWebhookHandler)
}

// respondWorkflowError maps typed workflow errors onto HTTP statuses. The
// error message is the user-facing text.
func respondWorkflowError(c *gin.Context, err error) {
	var invalidTransition *workflow.InvalidStatusTransitionError
	var unauthorized *workflow.UnauthorizedActionError
	var validation *workflow.SubmissionValidationError
	var snapshotErr *workflow.SnapshotError

	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.As(err, &unauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": unauthorized.Error()})
	case errors.As(err, &invalidTransition):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": invalidTransition.Error()})
	case errors.As(err, &validation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": validation.Error()})
	case errors.As(err, &snapshotErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": snapshotErr.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

func paramInt(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil || v <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be a positive integer"})
		return 0, false
	}
	return v, true
}

/* auth */

func registerHandler(c *gin.Context) {
	var input models.NewUser
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	user, err := models.CreateUser(c.Request.Context(), &input)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, user)
}

func loginHandler(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	user, err := models.AuthenticateUser(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	role := "user"
	if user.IsAdmin {
		role = "admin"
	}
	token, err := utils.JwtGenerate(user.ID, user.Name, role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

/* projects */

func createProjectHandler(c *gin.Context) {
	var input models.NewProject
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	project, err := models.CreateProject(c.Request.Context(), &input)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, project)
}

func getProjectHandler(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	project, err := models.GetProject(c.Request.Context(), id)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func getProjectPitchesHandler(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	pitches, err := models.GetProjectPitches(c.Request.Context(), id)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, pitches)
}

func cancelProjectHandler(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	ctx, span := tracer.Start(c.Request.Context(), "CancelProjectPitches")
	defer span.End()
	project, err := engine.CancelProjectPitches(ctx, id)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

/* pitches */

func createPitchHandler(c *gin.Context) {
	var input models.NewPitch
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	pitch, err := models.CreatePitch(c.Request.Context(), &input)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, pitch)
}

func getPitchHandler(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	pitch, err := models.GetPitch(c.Request.Context(), id, "Project", "CurrentSnapshot")
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, pitch)
}

func getPitchEventsHandler(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	events, err := models.GetPitchEvents(c.Request.Context(), id)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

func getPitchSnapshotsHandler(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	snapshots, err := models.GetPitchSnapshots(c.Request.Context(), id)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshots)
}

/* workflow */

func submitForReviewHandler(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	var input struct {
		ResponseToFeedback string `json:"response_to_feedback"`
	}
	_ = c.ShouldBindJSON(&input)

	ctx, span := tracer.Start(c.Request.Context(), "SubmitForReview")
	defer span.End()
	pitch, err := engine.SubmitForReview(ctx, id, input.ResponseToFeedback)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, pitch)
}

func cancelSubmissionHandler(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	pitch, err := engine.CancelSubmission(c.Request.Context(), id)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, pitch)
}

func approveSnapshotHandler(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	snapshotId, ok := paramInt(c, "snapshotId")
	if !ok {
		return
	}
	pitch, err := engine.ApproveSubmittedPitch(c.Request.Context(), id, snapshotId)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, pitch)
}

func denySnapshotHandler(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	snapshotId, ok := paramInt(c, "snapshotId")
	if !ok {
		return
	}
	var input struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&input)

	pitch, err := engine.DenySubmittedPitch(c.Request.Context(), id, snapshotId, input.Reason)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, pitch)
}

func requestRevisionsHandler(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	snapshotId, ok := paramInt(c, "snapshotId")
	if !ok {
		return
	}
	var input struct {
		Feedback string `json:"feedback"`
	}
	_ = c.ShouldBindJSON(&input)

	pitch, err := engine.RequestRevisions(c.Request.Context(), id, snapshotId, input.Feedback)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, pitch)
}

func completePitchHandler(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	var input struct {
		Feedback string `json:"feedback"`
		Rating   *int   `json:"rating"`
	}
	_ = c.ShouldBindJSON(&input)

	pitch, err := engine.CompletePitch(c.Request.Context(), id, input.Feedback, input.Rating)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, pitch)
}

/* files */

func addPitchFileHandler(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	var input workflow.UploadedFile
	if err := c.ShouldBindJSON(&input); err != nil || input.StorageKey == "" || input.OriginalName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "storage_key and original_name are required"})
		return
	}
	file, err := engine.AddPitchFile(c.Request.Context(), id, input)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusCreated, file)
}

func uploadVersionHandler(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	var input workflow.UploadedFile
	if err := c.ShouldBindJSON(&input); err != nil || input.StorageKey == "" || input.OriginalName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "storage_key and original_name are required"})
		return
	}
	file, err := engine.UploadVersion(c.Request.Context(), id, input)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusCreated, file)
}

func bulkUploadVersionsHandler(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	var input struct {
		Files         []workflow.UploadedFile `json:"files" binding:"required"`
		ManualMatches map[string]int          `json:"manual_matches"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	result, err := engine.BulkUploadVersions(c.Request.Context(), id, input.Files, input.ManualMatches)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func getFileVersionsHandler(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	files, err := models.GetAllVersionsWithSelf(c.Request.Context(), id)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	chainSize := int64(len(files))
	type fileWithLabel struct {
		*models.PitchFile
		VersionLabel string `json:"version_label"`
	}
	out := make([]fileWithLabel, 0, len(files))
	for _, f := range files {
		out = append(out, fileWithLabel{PitchFile: f, VersionLabel: f.VersionLabel(chainSize)})
	}
	c.JSON(http.StatusOK, out)
}

func fileDownloadURLHandler(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	url, err := workflow.FileDownloadURL(c.Request.Context(), id)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"download_url": url})
}

func deleteFileHandler(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	if err := engine.DeletePitchFile(c.Request.Context(), id); err != nil {
		respondWorkflowError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

/* payouts */

func getProducerPayoutsHandler(c *gin.Context) {
	userId, _ := utils.GetUserIdFromContext(c.Request.Context())
	payouts, err := models.GetProducerPayouts(c.Request.Context(), userId)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, payouts)
}

func holdPeriodInfoHandler(c *gin.Context) {
	workflowType, err := models.ParseWorkflowType(c.DefaultQuery("workflow_type", string(models.WorkflowTypeStandard)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	info, err := engine.Payouts.Hold.GetHoldPeriodInfo(c.Request.Context(), workflowType)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

/* admin */

func bypassHoldHandler(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	var input struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&input)

	payout, err := engine.Payouts.BypassHoldPeriod(c.Request.Context(), id, input.Reason)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, payout)
}

func exportPayoutsHandler(c *gin.Context) {
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=payouts.xlsx")
	if err := reports.WritePayoutExportExcel(c.Request.Context(), c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func payoutSummaryHandler(c *gin.Context) {
	now := time.Now()
	// Default range: the last month, aligned to midnight UTC so consecutive
	// exports cover whole days.
	fromDate, _ := utils.ConvertToDate(now.AddDate(0, -1, 0), "")
	if v := c.Query("from"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be YYYY-MM-DD"})
			return
		}
		fromDate = parsed
	}
	toDate := now
	if v := c.Query("to"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to must be YYYY-MM-DD"})
			return
		}
		toDate = parsed
	}
	summary, err := reports.GetProducerPayoutSummaryReport(c.Request.Context(), fromDate, toDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func getHoldSettingsHandler(c *gin.Context) {
	setting, err := models.GetPayoutHoldSetting(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if setting == nil {
		c.JSON(http.StatusOK, gin.H{"configured": false})
		return
	}
	c.JSON(http.StatusOK, setting)
}

func updateHoldSettingsHandler(c *gin.Context) {
	var input models.UpdatePayoutHoldSetting
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	setting, err := models.SavePayoutHoldSetting(c.Request.Context(), &input)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, setting)
}

func clientPortalLinkHandler(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	project, err := models.GetProject(c.Request.Context(), id)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	if !project.IsClientManagement() || project.ClientEmail == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "project has no client portal"})
		return
	}
	token, err := utils.GenerateClientPortalToken(project.ID, project.ClientEmail)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue portal token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

/* client portal */

// portalPitch loads the pitch and verifies it belongs to the portal token's project.
func portalPitch(c *gin.Context) (*models.Pitch, bool) {
	id, ok := paramInt(c, "id")
	if !ok {
		return nil, false
	}
	pitch, err := models.GetPitch(c.Request.Context(), id)
	if err != nil {
		respondWorkflowError(c, err)
		return nil, false
	}
	projectId := c.GetInt("portal_project_id")
	if pitch.ProjectId != projectId {
		c.JSON(http.StatusForbidden, gin.H{"error": "pitch does not belong to this portal"})
		return nil, false
	}
	return pitch, true
}

func portalGetPitchHandler(c *gin.Context) {
	pitch, ok := portalPitch(c)
	if !ok {
		return
	}
	events, err := models.GetPitchEvents(c.Request.Context(), pitch.ID)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pitch": pitch, "events": events})
}

func portalApproveHandler(c *gin.Context) {
	pitch, ok := portalPitch(c)
	if !ok {
		return
	}
	clientEmail, _ := utils.GetClientEmailFromContext(c.Request.Context())

	ctx, span := tracer.Start(c.Request.Context(), "ClientApprovePitch")
	defer span.End()
	updated, err := engine.ClientApprovePitch(ctx, pitch.ID, clientEmail)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func portalRequestRevisionsHandler(c *gin.Context) {
	pitch, ok := portalPitch(c)
	if !ok {
		return
	}
	var input struct {
		Feedback string `json:"feedback"`
	}
	_ = c.ShouldBindJSON(&input)
	clientEmail, _ := utils.GetClientEmailFromContext(c.Request.Context())

	updated, err := engine.ClientRequestRevisions(c.Request.Context(), pitch.ID, input.Feedback, clientEmail)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}
