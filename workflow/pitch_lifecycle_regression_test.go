package workflow_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/mixpitch/mixpitch_backend/config"
	"github.com/mixpitch/mixpitch_backend/models"
	"github.com/mixpitch/mixpitch_backend/utils"
	"github.com/mixpitch/mixpitch_backend/workflow"
	"github.com/shopspring/decimal"
)

func TestClientApprovalCompletesOnceAndSchedulesOnePayout(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := setupIntegrationEnv(t)

	owner, err := models.CreateUser(ctx, &models.NewUser{
		Name:     "Producer",
		Email:    "producer@test.local",
		Password: "secret-password",
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	ctx = utils.SetUserIdInContext(ctx, owner.ID)

	project, err := models.CreateProject(ctx, &models.NewProject{
		Title:        "Client Album",
		WorkflowType: "client_management",
		Budget:       decimal.NewFromInt(500),
		ClientEmail:  "client@test.local",
		ClientName:   "Test Client",
	})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	// Nothing to review yet, so the project starts unpublished.
	if project.Status != models.ProjectStatusUnpublished {
		t.Fatalf("new client project status = %s; want %s", project.Status, models.ProjectStatusUnpublished)
	}

	// Client-management projects create their single pitch up front.
	pitches, err := models.GetProjectPitches(ctx, project.ID)
	if err != nil {
		t.Fatalf("GetProjectPitches: %v", err)
	}
	if len(pitches) != 1 {
		t.Fatalf("expected 1 auto-created pitch; got %d", len(pitches))
	}
	pitch := pitches[0]
	if pitch.Status != models.PitchStatusInProgress {
		t.Fatalf("auto-created pitch status = %s; want %s", pitch.Status, models.PitchStatusInProgress)
	}

	engine := workflow.NewPitchWorkflowEngine()

	// Submitting with no files attached must fail and leave the status alone.
	_, err = engine.SubmitForReview(ctx, pitch.ID, "")
	var validation *workflow.SubmissionValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("submit with no files: error = %T (%v); want *SubmissionValidationError", err, err)
	}
	reloaded, err := models.GetPitch(ctx, pitch.ID)
	if err != nil {
		t.Fatalf("GetPitch after failed submit: %v", err)
	}
	if reloaded.Status != models.PitchStatusInProgress {
		t.Fatalf("failed submit changed status to %s", reloaded.Status)
	}

	if _, err := engine.AddPitchFile(ctx, pitch.ID, workflow.UploadedFile{
		StorageKey:   "pitches/1/final_mix.wav",
		OriginalName: "final_mix.wav",
		MimeType:     "audio/wav",
		Size:         1024,
	}); err != nil {
		t.Fatalf("AddPitchFile: %v", err)
	}

	submitted, err := engine.SubmitForReview(ctx, pitch.ID, "")
	if err != nil {
		t.Fatalf("SubmitForReview: %v", err)
	}
	if submitted.Status != models.PitchStatusReadyForReview {
		t.Fatalf("submitted status = %s; want %s", submitted.Status, models.PitchStatusReadyForReview)
	}
	if submitted.CurrentSnapshotId == nil {
		t.Fatalf("submit did not set current snapshot")
	}

	// The first submission publishes the project.
	published, err := models.GetProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("GetProject after submit: %v", err)
	}
	if published.Status != models.ProjectStatusOpen {
		t.Fatalf("project status after first submit = %s; want %s", published.Status, models.ProjectStatusOpen)
	}

	// The client is notified by email with a signed portal link, not via an
	// in-app recipient id.
	var clientNote models.NotificationOutbox
	err = config.GetDB().
		Where("pitch_id = ? AND event_type = ?", pitch.ID, "pitch.client_review_ready").
		First(&clientNote).Error
	if err != nil {
		t.Fatalf("client review outbox entry: %v", err)
	}
	if clientNote.RecipientEmail != "client@test.local" {
		t.Fatalf("recipient email = %q; want client@test.local", clientNote.RecipientEmail)
	}
	var notePayload map[string]any
	if err := json.Unmarshal(clientNote.Payload, &notePayload); err != nil {
		t.Fatalf("decode outbox payload: %v", err)
	}
	portalToken, _ := notePayload["client_portal_token"].(string)
	claim, err := utils.ValidateClientPortalToken(portalToken)
	if err != nil {
		t.Fatalf("portal token in outbox payload does not validate: %v", err)
	}
	if claim.ProjectID != project.ID || claim.ClientEmail != "client@test.local" {
		t.Fatalf("portal claim = %+v", claim)
	}

	if _, err := engine.MarkPitchAsPaid(ctx, pitch.ID, "cs_test_123"); err != nil {
		t.Fatalf("MarkPitchAsPaid: %v", err)
	}

	approved, err := engine.ClientApprovePitch(ctx, pitch.ID, "client@test.local")
	if err != nil {
		t.Fatalf("ClientApprovePitch: %v", err)
	}
	if approved.Status != models.PitchStatusCompleted {
		t.Fatalf("approved status = %s; want %s", approved.Status, models.PitchStatusCompleted)
	}
	if approved.CompletedAt == nil || approved.ApprovedAt == nil {
		t.Fatalf("approval must stamp approved_at and completed_at; got %+v", approved)
	}

	// Reload so the timestamp comparison below compares DB-stored values
	// (the in-memory value keeps nanoseconds the column does not).
	firstStored, err := models.GetPitch(ctx, pitch.ID)
	if err != nil {
		t.Fatalf("GetPitch after approval: %v", err)
	}
	firstCompletedAt := *firstStored.CompletedAt
	eventsAfterFirst, err := models.GetPitchEvents(ctx, pitch.ID)
	if err != nil {
		t.Fatalf("GetPitchEvents: %v", err)
	}

	payout, err := models.GetPayoutScheduleByPitch(config.GetDB(), pitch.ID)
	if err != nil {
		t.Fatalf("GetPayoutScheduleByPitch: %v", err)
	}
	// Free plan: 10% of the 500 gross.
	if payout.CommissionAmount.StringFixed(2) != "50.00" {
		t.Fatalf("commission = %s; want 50.00", payout.CommissionAmount.StringFixed(2))
	}
	if payout.NetAmount.StringFixed(2) != "450.00" {
		t.Fatalf("net = %s; want 450.00", payout.NetAmount.StringFixed(2))
	}
	if payout.Status != models.PayoutStatusScheduled {
		t.Fatalf("payout status = %s; want %s", payout.Status, models.PayoutStatusScheduled)
	}

	// A duplicate approval (double-clicked button, replayed webhook) is a
	// no-op: same timestamps, no new events, still exactly one payout.
	again, err := engine.ClientApprovePitch(ctx, pitch.ID, "client@test.local")
	if err != nil {
		t.Fatalf("ClientApprovePitch(repeat): %v", err)
	}
	if again.CompletedAt == nil || !again.CompletedAt.Equal(firstCompletedAt) {
		t.Fatalf("repeat approval moved completed_at from %s to %s", firstCompletedAt, again.CompletedAt)
	}
	eventsAfterSecond, err := models.GetPitchEvents(ctx, pitch.ID)
	if err != nil {
		t.Fatalf("GetPitchEvents(repeat): %v", err)
	}
	if len(eventsAfterSecond) != len(eventsAfterFirst) {
		t.Fatalf("repeat approval added events: %d -> %d", len(eventsAfterFirst), len(eventsAfterSecond))
	}

	var payoutCount int64
	if err := config.GetDB().Model(&models.PayoutSchedule{}).Where("pitch_id = ?", pitch.ID).Count(&payoutCount).Error; err != nil {
		t.Fatalf("count payouts: %v", err)
	}
	if payoutCount != 1 {
		t.Fatalf("expected exactly 1 payout; got %d", payoutCount)
	}

	// The project completed alongside the pitch.
	completedProject, err := models.GetProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if completedProject.Status != models.ProjectStatusCompleted {
		t.Fatalf("project status = %s; want %s", completedProject.Status, models.ProjectStatusCompleted)
	}
}

func TestFileVersionChainInvariants(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := setupIntegrationEnv(t)

	producer, err := models.CreateUser(ctx, &models.NewUser{
		Name:     "Producer",
		Email:    "producer@test.local",
		Password: "secret-password",
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	ctx = utils.SetUserIdInContext(ctx, producer.ID)

	project, err := models.CreateProject(ctx, &models.NewProject{
		Title:        "Standard Project",
		WorkflowType: "standard",
		Budget:       decimal.NewFromInt(200),
	})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	pitch, err := models.CreatePitch(ctx, &models.NewPitch{ProjectId: project.ID})
	if err != nil {
		t.Fatalf("CreatePitch: %v", err)
	}

	engine := workflow.NewPitchWorkflowEngine()

	root, err := engine.AddPitchFile(ctx, pitch.ID, workflow.UploadedFile{
		StorageKey:   "pitches/files/mix.wav",
		OriginalName: "mix.wav",
		MimeType:     "audio/wav",
		Size:         100,
	})
	if err != nil {
		t.Fatalf("AddPitchFile: %v", err)
	}

	v2, err := engine.UploadVersion(ctx, root.ID, workflow.UploadedFile{
		StorageKey:   "pitches/files/mix-v2.wav",
		OriginalName: "mix.wav",
		MimeType:     "audio/wav",
		Size:         110,
	})
	if err != nil {
		t.Fatalf("UploadVersion(v2): %v", err)
	}
	// Uploading "from" a non-root version still chains to the root.
	v3, err := engine.UploadVersion(ctx, v2.ID, workflow.UploadedFile{
		StorageKey:   "pitches/files/mix-v3.wav",
		OriginalName: "mix.wav",
		MimeType:     "audio/wav",
		Size:         120,
	})
	if err != nil {
		t.Fatalf("UploadVersion(v3): %v", err)
	}
	if v3.ParentFileId == nil || *v3.ParentFileId != root.ID {
		t.Fatalf("v3 parent = %v; want root %d (chains stay flat)", v3.ParentFileId, root.ID)
	}
	if v2.FileVersionNumber != 2 || v3.FileVersionNumber != 3 {
		t.Fatalf("version numbers = %d, %d; want 2, 3", v2.FileVersionNumber, v3.FileVersionNumber)
	}

	assertSingleWorkingVersion(t, root.ID, v3.ID)

	// The database itself refuses a duplicate version number on a chain, even
	// for writers that skip the pitch row lock.
	rootId := root.ID
	dup := models.PitchFile{
		PitchId:           pitch.ID,
		ParentFileId:      &rootId,
		FileVersionNumber: v3.FileVersionNumber,
		OriginalName:      "mix.wav",
		StoragePath:       "pitches/files/mix-dup.wav",
	}
	err = config.GetDB().Create(&dup).Error
	var mysqlErr *mysql.MySQLError
	if !errors.As(err, &mysqlErr) || mysqlErr.Number != 1062 {
		t.Fatalf("duplicate chain version insert: err = %v; want MySQL error 1062", err)
	}

	chain, err := models.GetAllVersionsWithSelf(ctx, v2.ID)
	if err != nil {
		t.Fatalf("GetAllVersionsWithSelf: %v", err)
	}
	if len(chain) != 3 {
		t.Fatalf("chain size = %d; want 3", len(chain))
	}
	for _, member := range chain {
		if label := member.VersionLabel(int64(len(chain))); label != fmt.Sprintf("V%d", member.FileVersionNumber) {
			t.Fatalf("member %d label = %q", member.ID, label)
		}
	}

	// Deleting the working version promotes the newest survivor.
	if err := engine.DeletePitchFile(ctx, v3.ID); err != nil {
		t.Fatalf("DeletePitchFile(v3): %v", err)
	}
	assertSingleWorkingVersion(t, root.ID, v2.ID)

	// Version numbers are never reused, deleted versions included.
	next, err := models.NextFileVersionNumber(config.GetDB(), root.ID)
	if err != nil {
		t.Fatalf("NextFileVersionNumber: %v", err)
	}
	if next != 4 {
		t.Fatalf("next version = %d; want 4", next)
	}

	// Deleting the root takes the whole chain with it, but history stays
	// queryable unscoped.
	if err := engine.DeletePitchFile(ctx, root.ID); err != nil {
		t.Fatalf("DeletePitchFile(root): %v", err)
	}
	if _, err := models.GetPitchFile(ctx, v2.ID); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("v2 still visible after root delete: %v", err)
	}
	history, err := models.GetAllVersionsWithSelf(ctx, root.ID)
	if err != nil {
		t.Fatalf("GetAllVersionsWithSelf(after delete): %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("unscoped history size = %d; want 3", len(history))
	}
}

func TestBulkUploadVersionsIsAtomic(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := setupIntegrationEnv(t)

	producer, err := models.CreateUser(ctx, &models.NewUser{
		Name:     "Producer",
		Email:    "producer@test.local",
		Password: "secret-password",
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	ctx = utils.SetUserIdInContext(ctx, producer.ID)

	project, err := models.CreateProject(ctx, &models.NewProject{
		Title:        "Album",
		WorkflowType: "standard",
		Budget:       decimal.NewFromInt(300),
	})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	pitch, err := models.CreatePitch(ctx, &models.NewPitch{ProjectId: project.ID})
	if err != nil {
		t.Fatalf("CreatePitch: %v", err)
	}

	engine := workflow.NewPitchWorkflowEngine()

	drums, err := engine.AddPitchFile(ctx, pitch.ID, workflow.UploadedFile{
		StorageKey:   "pitches/files/drums.wav",
		OriginalName: "drums.wav",
		Size:         100,
	})
	if err != nil {
		t.Fatalf("AddPitchFile(drums): %v", err)
	}

	// Happy path: name matches land as versions, the rest come back for the
	// caller to create as fresh files.
	result, err := engine.BulkUploadVersions(ctx, pitch.ID, []workflow.UploadedFile{
		{StorageKey: "pitches/files/drums-2.mp3", OriginalName: "DRUMS.mp3", Size: 110},
		{StorageKey: "pitches/files/synth.wav", OriginalName: "synth.wav", Size: 120},
	}, nil)
	if err != nil {
		t.Fatalf("BulkUploadVersions: %v", err)
	}
	if len(result.CreatedVersions) != 1 || len(result.NewFiles) != 1 {
		t.Fatalf("bulk result = %d versions, %d new; want 1 and 1", len(result.CreatedVersions), len(result.NewFiles))
	}
	if result.CreatedVersions[0].FileVersionNumber != 2 {
		t.Fatalf("bulk version number = %d; want 2", result.CreatedVersions[0].FileVersionNumber)
	}
	assertSingleWorkingVersion(t, drums.ID, result.CreatedVersions[0].ID)

	// A file on another pitch used as a manual match target fails the batch.
	otherProject, err := models.CreateProject(ctx, &models.NewProject{
		Title:        "Other Album",
		WorkflowType: "standard",
		Budget:       decimal.NewFromInt(100),
	})
	if err != nil {
		t.Fatalf("CreateProject(other): %v", err)
	}
	otherPitch, err := models.CreatePitch(ctx, &models.NewPitch{ProjectId: otherProject.ID})
	if err != nil {
		t.Fatalf("CreatePitch(other): %v", err)
	}
	foreign, err := engine.AddPitchFile(ctx, otherPitch.ID, workflow.UploadedFile{
		StorageKey:   "pitches/files/foreign.wav",
		OriginalName: "foreign.wav",
		Size:         50,
	})
	if err != nil {
		t.Fatalf("AddPitchFile(foreign): %v", err)
	}

	_, err = engine.BulkUploadVersions(ctx, pitch.ID, []workflow.UploadedFile{
		{StorageKey: "pitches/files/drums-3.wav", OriginalName: "drums.wav", Size: 130},
		{StorageKey: "pitches/files/evil.wav", OriginalName: "evil.wav", Size: 140},
	}, map[string]int{"evil.wav": foreign.ID})
	var unauthorized *workflow.UnauthorizedActionError
	if !errors.As(err, &unauthorized) {
		t.Fatalf("cross-pitch manual match: error = %T (%v); want *UnauthorizedActionError", err, err)
	}

	// The drums version planned earlier in the same batch must have rolled
	// back with it.
	next, err := models.NextFileVersionNumber(config.GetDB(), drums.ID)
	if err != nil {
		t.Fatalf("NextFileVersionNumber: %v", err)
	}
	if next != 3 {
		t.Fatalf("next version after failed batch = %d; want 3 (batch rolled back)", next)
	}
}

func TestAdminBypassRespectsSettingGate(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := setupIntegrationEnv(t)

	producer, err := models.CreateUser(ctx, &models.NewUser{
		Name:     "Producer",
		Email:    "producer@test.local",
		Password: "secret-password",
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	ctx = utils.SetUserIdInContext(ctx, producer.ID)

	project, err := models.CreateProject(ctx, &models.NewProject{
		Title:        "Album",
		WorkflowType: "standard",
		Budget:       decimal.NewFromInt(200),
	})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	pitch, err := models.CreatePitch(ctx, &models.NewPitch{ProjectId: project.ID})
	if err != nil {
		t.Fatalf("CreatePitch: %v", err)
	}

	originalRelease := time.Now().Add(96 * time.Hour).Truncate(time.Second)
	payout := models.PayoutSchedule{
		PitchId:          pitch.ID,
		ProducerId:       producer.ID,
		GrossAmount:      decimal.NewFromInt(200),
		CommissionRate:   decimal.NewFromInt(10),
		CommissionAmount: decimal.NewFromInt(20),
		NetAmount:        decimal.NewFromInt(180),
		Currency:         "USD",
		Status:           models.PayoutStatusScheduled,
		WorkflowType:     models.WorkflowTypeStandard,
		HoldReleaseDate:  originalRelease,
	}
	if err := config.GetDB().Create(&payout).Error; err != nil {
		t.Fatalf("create payout: %v", err)
	}

	adminCtx := utils.SetIsAdminInContext(ctx, true)
	scheduler := workflow.NewPayoutScheduler()

	// allow_admin_bypass off refuses even admins.
	if _, err := models.SavePayoutHoldSetting(ctx, &models.UpdatePayoutHoldSetting{
		Enabled:          utils.NewTrue(),
		AllowAdminBypass: utils.NewFalse(),
	}); err != nil {
		t.Fatalf("SavePayoutHoldSetting: %v", err)
	}
	_, err = scheduler.BypassHoldPeriod(adminCtx, payout.ID, "fraud check cleared")
	var unauthorized *workflow.UnauthorizedActionError
	if !errors.As(err, &unauthorized) {
		t.Fatalf("bypass with setting off: error = %T (%v); want *UnauthorizedActionError", err, err)
	}

	// Re-enable, then reject a whitespace-only reason.
	if _, err := models.SavePayoutHoldSetting(ctx, &models.UpdatePayoutHoldSetting{
		AllowAdminBypass: utils.NewTrue(),
	}); err != nil {
		t.Fatalf("SavePayoutHoldSetting(re-enable): %v", err)
	}
	_, err = scheduler.BypassHoldPeriod(adminCtx, payout.ID, "   ")
	var validation *workflow.SubmissionValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("bypass with blank reason: error = %T (%v); want *SubmissionValidationError", err, err)
	}

	bypassed, err := scheduler.BypassHoldPeriod(adminCtx, payout.ID, "  fraud check cleared  ")
	if err != nil {
		t.Fatalf("BypassHoldPeriod: %v", err)
	}
	if !bypassed.HoldBypassed {
		t.Fatalf("payout not flagged as bypassed: %+v", bypassed)
	}
	if bypassed.BypassReason != "fraud check cleared" {
		t.Fatalf("bypass reason = %q; want trimmed reason", bypassed.BypassReason)
	}
	if bypassed.HoldReleaseDate.After(originalRelease) {
		t.Fatalf("bypass lengthened the hold: %s -> %s", originalRelease, bypassed.HoldReleaseDate)
	}
}

func assertSingleWorkingVersion(t *testing.T, rootId int, wantWorkingId int) {
	t.Helper()
	var working []*models.PitchFile
	err := config.GetDB().
		Where("(id = ? OR parent_file_id = ?) AND included_in_working_version = ?", rootId, rootId, true).
		Find(&working).Error
	if err != nil {
		t.Fatalf("query working versions: %v", err)
	}
	if len(working) != 1 {
		t.Fatalf("expected exactly 1 working version in chain %d; got %d", rootId, len(working))
	}
	if working[0].ID != wantWorkingId {
		t.Fatalf("working version = %d; want %d", working[0].ID, wantWorkingId)
	}
}

// setupIntegrationEnv starts throwaway MySQL and Redis containers, wires the
// config env vars at them, connects and migrates. Each test gets a fresh
// database.
func setupIntegrationEnv(t *testing.T) context.Context {
	t.Helper()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "mixpitch_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable(config.GetDB())

	return context.Background()
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("mixpitch-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("mixpitch-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=mixpitch_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
