package handlers_test

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"taskpool/internal/handlers"
	"taskpool/internal/middleware"
	"taskpool/internal/models"
	"taskpool/internal/repositories"
	"taskpool/internal/services"
	"taskpool/pkg/imagestore"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// setupApp wires a Fiber app for testing over an in-memory SQLite database
// and a temp-dir image store, mirroring the production wiring minus the
// event broker.
func setupApp(t *testing.T) *fiber.App {
	t.Helper()

	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Task{}))

	images, err := imagestore.NewFileStore(t.TempDir())
	require.NoError(t, err)

	txManager := repositories.NewGormTxManager(db)
	userService := services.NewUserService(txManager, images, nil)
	taskService := services.NewTaskService(txManager, images, nil)

	userHandler := handlers.NewUserHandler(userService)
	taskHandler := handlers.NewTaskHandler(taskService)

	app := fiber.New()
	apiV1 := app.Group("/api/v1")
	userHandler.RegisterPublicRoutes(apiV1)
	protected := apiV1.Group("", middleware.AuthRequired(userService))
	userHandler.RegisterProtectedRoutes(protected)
	taskHandler.RegisterRoutes(protected)

	return app
}

func doJSON(t *testing.T, app *fiber.App, method, target string, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func registerUser(t *testing.T, app *fiber.App, email string) string {
	t.Helper()
	resp := doJSON(t, app, http.MethodPost, "/api/v1/users", fiber.Map{"email": email})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decodeBody(t, resp)
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)
	return id
}

func pngPayload(t *testing.T) (raw []byte, encoded string) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1))))
	return buf.Bytes(), base64.StdEncoding.EncodeToString(buf.Bytes())
}

func createTask(t *testing.T, app *fiber.App, userID, meta string) string {
	t.Helper()
	_, encoded := pngPayload(t)
	resp := doJSON(t, app, http.MethodPost, "/api/v1/tasks?user_id="+userID, fiber.Map{
		"meta":  meta,
		"image": encoded,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decodeBody(t, resp)
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestCreateUser(t *testing.T) {
	app := setupApp(t)

	resp := doJSON(t, app, http.MethodPost, "/api/v1/users", fiber.Map{"email": "a@x.com"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "a@x.com", body["email"])
	assert.Equal(t, float64(0), body["tasks_number"])

	// Same email again: conflict.
	resp = doJSON(t, app, http.MethodPost, "/api/v1/users", fiber.Map{"email": "a@x.com"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "conflict", decodeBody(t, resp)["code"])

	// Malformed email: validation failure.
	resp = doJSON(t, app, http.MethodPost, "/api/v1/users", fiber.Map{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Missing body entirely.
	resp = doJSON(t, app, http.MethodPost, "/api/v1/users", fiber.Map{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestIdentityGate(t *testing.T) {
	app := setupApp(t)

	// No identity at all.
	resp := doJSON(t, app, http.MethodGet, "/api/v1/tasks", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthenticated", decodeBody(t, resp)["code"])

	// Malformed identity.
	resp = doJSON(t, app, http.MethodGet, "/api/v1/tasks?user_id=42", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Well-formed identity that resolves to nobody.
	resp = doJSON(t, app, http.MethodGet, "/api/v1/tasks?user_id=00000000-0000-0000-0000-000000000000", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIdentityViaHeader(t *testing.T) {
	app := setupApp(t)
	userID := registerUser(t, app, "a@x.com")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
	req.Header.Set("X-User-ID", userID)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestTaskLifecycle(t *testing.T) {
	app := setupApp(t)
	userID := registerUser(t, app, "a@x.com")

	raw, encoded := pngPayload(t)
	resp := doJSON(t, app, http.MethodPost, "/api/v1/tasks?user_id="+userID, fiber.Map{
		"meta":  "m1",
		"image": encoded,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	task := decodeBody(t, resp)
	assert.Equal(t, true, task["free"])
	assert.Equal(t, "m1", task["metadata"])
	taskID := task["id"].(string)

	// The task shows up in the owner's list.
	resp = doJSON(t, app, http.MethodGet, "/api/v1/tasks?user_id="+userID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	resp.Body.Close()
	require.Len(t, list, 1)
	assert.Equal(t, taskID, list[0]["id"])

	// Single task read.
	resp = doJSON(t, app, http.MethodGet, "/api/v1/tasks/"+taskID+"?user_id="+userID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, taskID, decodeBody(t, resp)["id"])

	// Image round-trips byte-for-byte with its content type.
	resp = doJSON(t, app, http.MethodGet, "/api/v1/tasks/"+taskID+"/image?user_id="+userID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, raw, got)

	// First claim wins the task.
	resp = doJSON(t, app, http.MethodPost, "/api/v1/tasks/claim?user_id="+userID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	claimed := decodeBody(t, resp)
	assert.Equal(t, taskID, claimed["id"])
	assert.Equal(t, false, claimed["free"])

	// Second claim finds nothing.
	resp = doJSON(t, app, http.MethodPost, "/api/v1/tasks/claim?user_id="+userID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "none_available", decodeBody(t, resp)["code"])

	// One task was ever created.
	resp = doJSON(t, app, http.MethodGet, "/api/v1/stats/total-tasks-created", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), decodeBody(t, resp)["total_tasks_created"])
}

func TestTaskCreationValidation(t *testing.T) {
	app := setupApp(t)
	userID := registerUser(t, app, "a@x.com")

	// Missing fields.
	resp := doJSON(t, app, http.MethodPost, "/api/v1/tasks?user_id="+userID, fiber.Map{"meta": "m1"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Broken base64.
	resp = doJSON(t, app, http.MethodPost, "/api/v1/tasks?user_id="+userID, fiber.Map{
		"meta":  "m1",
		"image": "%%% not base64 %%%",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Valid base64, not an image.
	resp = doJSON(t, app, http.MethodPost, "/api/v1/tasks?user_id="+userID, fiber.Map{
		"meta":  "m1",
		"image": base64.StdEncoding.EncodeToString([]byte("plain text")),
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOwnershipEnforcement(t *testing.T) {
	app := setupApp(t)
	aliceID := registerUser(t, app, "alice@x.com")
	bobID := registerUser(t, app, "bob@x.com")
	taskID := createTask(t, app, aliceID, "secret")

	// Bob can see none of alice's task surface.
	for _, target := range []string{
		"/api/v1/tasks/" + taskID,
		"/api/v1/tasks/" + taskID + "/image",
	} {
		resp := doJSON(t, app, http.MethodGet, target+"?user_id="+bobID, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, target)
		assert.Equal(t, "forbidden", decodeBody(t, resp)["code"])
	}
	resp := doJSON(t, app, http.MethodDelete, "/api/v1/tasks/"+taskID+"?user_id="+bobID, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Unknown ids stay 404 whoever asks.
	resp = doJSON(t, app, http.MethodGet, "/api/v1/tasks/00000000-0000-0000-0000-000000000000?user_id="+bobID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// The task is untouched.
	resp = doJSON(t, app, http.MethodGet, "/api/v1/tasks/"+taskID+"?user_id="+aliceID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDeleteTask(t *testing.T) {
	app := setupApp(t)
	userID := registerUser(t, app, "a@x.com")
	taskID := createTask(t, app, userID, "m1")

	resp := doJSON(t, app, http.MethodDelete, "/api/v1/tasks/"+taskID+"?user_id="+userID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/api/v1/tasks/"+taskID+"?user_id="+userID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// The counter is a monotonic creation counter, unaffected by deletion.
	resp = doJSON(t, app, http.MethodGet, "/api/v1/stats/total-tasks-created", nil)
	assert.Equal(t, float64(1), decodeBody(t, resp)["total_tasks_created"])
}

func TestDeleteUser(t *testing.T) {
	app := setupApp(t)
	aliceID := registerUser(t, app, "alice@x.com")
	bobID := registerUser(t, app, "bob@x.com")
	createTask(t, app, aliceID, "m1")
	createTask(t, app, aliceID, "m2")

	// Deleting someone else's account is forbidden.
	resp := doJSON(t, app, http.MethodDelete, "/api/v1/users/"+aliceID+"?user_id="+bobID, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Self-deletion cascades to the user's tasks.
	resp = doJSON(t, app, http.MethodDelete, "/api/v1/users/"+aliceID+"?user_id="+aliceID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Alice's identity no longer resolves.
	resp = doJSON(t, app, http.MethodGet, "/api/v1/tasks?user_id="+aliceID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Her tasks are gone from the claim pool too.
	resp = doJSON(t, app, http.MethodPost, "/api/v1/tasks/claim?user_id="+bobID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "none_available", decodeBody(t, resp)["code"])
}
