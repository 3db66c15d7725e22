package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/gin-gonic/gin"
	"github.com/yarnscape/backend/internal/auth"
	"github.com/yarnscape/backend/internal/inventory"
	"github.com/yarnscape/backend/internal/patterns"
	"github.com/yarnscape/backend/internal/settings"
	"github.com/yarnscape/backend/internal/tracking"
	"github.com/yarnscape/backend/internal/users"
	"gorm.io/gorm"
)

func newAPITestHandler(t *testing.T) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:yarnscape_api_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&users.Account{},
		&patterns.Pattern{},
		&patterns.PublishedPattern{},
		&patterns.SaveRecord{},
		&tracking.Project{},
		&inventory.Yarn{},
		&inventory.Tool{},
		&settings.UserSettings{},
	); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	idProvider := patterns.NewUUIDProvider()
	tokenManager := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte("api-test-secret"),
		Issuer:        "yarnscape-auth",
		Audience:      "yarnscape-api",
	})

	usersService, err := users.NewService(users.ServiceConfig{Database: db, IDProvider: idProvider})
	if err != nil {
		t.Fatalf("failed to create users service: %v", err)
	}
	trackingService, err := tracking.NewService(tracking.ServiceConfig{Database: db, IDProvider: idProvider})
	if err != nil {
		t.Fatalf("failed to create tracking service: %v", err)
	}
	patternsService, err := patterns.NewService(patterns.ServiceConfig{Database: db, IDProvider: idProvider, Purger: trackingService})
	if err != nil {
		t.Fatalf("failed to create patterns service: %v", err)
	}
	inventoryService, err := inventory.NewService(inventory.ServiceConfig{Database: db, IDProvider: idProvider})
	if err != nil {
		t.Fatalf("failed to create inventory service: %v", err)
	}
	settingsService, err := settings.NewService(settings.ServiceConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to create settings service: %v", err)
	}

	handler, err := NewHTTPHandler(Dependencies{
		TokenManager:     tokenManager,
		UsersService:     usersService,
		PatternsService:  patternsService,
		TrackingService:  trackingService,
		InventoryService: inventoryService,
		SettingsService:  settingsService,
	})
	if err != nil {
		t.Fatalf("failed to build handler: %v", err)
	}
	return handler
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	request := httptest.NewRequest(method, path, reader)
	request.Header.Set("Content-Type", "application/json")
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to decode response %q: %v", recorder.Body.String(), err)
	}
}

func signUpTestUser(t *testing.T, handler http.Handler, email string) string {
	t.Helper()
	recorder := doJSON(t, handler, http.MethodPost, "/auth/signup", "", map[string]interface{}{
		"email":            email,
		"password":         "knit1purl2",
		"confirm_password": "knit1purl2",
		"accepted_terms":   true,
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("sign up failed with %d: %s", recorder.Code, recorder.Body.String())
	}
	var session struct {
		AccessToken string `json:"access_token"`
	}
	decodeBody(t, recorder, &session)
	if session.AccessToken == "" {
		t.Fatalf("expected access token in response")
	}
	return session.AccessToken
}

func grannySquareBody() map[string]interface{} {
	return map[string]interface{}{
		"title":      "Granny Square Blanket",
		"craft":      "crochet",
		"skillLevel": "beginner",
		"sections": []map[string]string{
			{"title": "Base square", "instructions": "Chain 4, join with a slip stitch."},
		},
		"tags":      "blanket, granny square",
		"materials": "worsted yarn, 5mm hook",
	}
}

func TestSignUpThenCreateAndListPatterns(t *testing.T) {
	handler := newAPITestHandler(t)
	token := signUpTestUser(t, handler, "jane@example.com")

	created := doJSON(t, handler, http.MethodPost, "/patterns", token, grannySquareBody())
	if created.Code != http.StatusCreated {
		t.Fatalf("create failed with %d: %s", created.Code, created.Body.String())
	}
	var pattern struct {
		ID        string   `json:"id"`
		Title     string   `json:"title"`
		Tags      []string `json:"tags"`
		Published bool     `json:"published"`
	}
	decodeBody(t, created, &pattern)
	if pattern.Title != "Granny Square Blanket" || pattern.Published {
		t.Fatalf("unexpected pattern: %+v", pattern)
	}
	if len(pattern.Tags) != 2 {
		t.Fatalf("expected comma-separated tags split, got %v", pattern.Tags)
	}

	listed := doJSON(t, handler, http.MethodGet, "/patterns", token, nil)
	if listed.Code != http.StatusOK {
		t.Fatalf("list failed with %d: %s", listed.Code, listed.Body.String())
	}
	var listing struct {
		Patterns []struct {
			ID string `json:"id"`
		} `json:"patterns"`
	}
	decodeBody(t, listed, &listing)
	if len(listing.Patterns) != 1 || listing.Patterns[0].ID != pattern.ID {
		t.Fatalf("unexpected listing: %+v", listing)
	}
}

func TestProtectedRoutesRejectAnonymousRequests(t *testing.T) {
	handler := newAPITestHandler(t)
	recorder := doJSON(t, handler, http.MethodGet, "/patterns", "", nil)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d, want %d", recorder.Code, http.StatusUnauthorized)
	}
}

func TestPublishSearchAndSaveFlow(t *testing.T) {
	handler := newAPITestHandler(t)
	authorToken := signUpTestUser(t, handler, "jane@example.com")
	readerToken := signUpTestUser(t, handler, "maria@example.com")

	created := doJSON(t, handler, http.MethodPost, "/patterns", authorToken, grannySquareBody())
	var pattern struct {
		ID string `json:"id"`
	}
	decodeBody(t, created, &pattern)

	published := doJSON(t, handler, http.MethodPost, "/patterns/"+pattern.ID+"/publish", authorToken, map[string]interface{}{
		"author": "Jane",
		"agreed": true,
	})
	if published.Code != http.StatusCreated {
		t.Fatalf("publish failed with %d: %s", published.Code, published.Body.String())
	}
	var mirror struct {
		ID     string `json:"id"`
		Author string `json:"author"`
	}
	decodeBody(t, published, &mirror)
	if mirror.Author != "Jane" {
		t.Fatalf("unexpected author: %q", mirror.Author)
	}

	searched := doJSON(t, handler, http.MethodGet, "/library?q=granny&type=crochet&skill=beginner", readerToken, nil)
	if searched.Code != http.StatusOK {
		t.Fatalf("library search failed with %d: %s", searched.Code, searched.Body.String())
	}
	var library struct {
		Patterns []struct {
			ID string `json:"id"`
		} `json:"patterns"`
	}
	decodeBody(t, searched, &library)
	if len(library.Patterns) != 1 || library.Patterns[0].ID != mirror.ID {
		t.Fatalf("unexpected library result: %+v", library)
	}

	saved := doJSON(t, handler, http.MethodPost, "/library/"+mirror.ID+"/save", readerToken, nil)
	if saved.Code != http.StatusCreated {
		t.Fatalf("save failed with %d: %s", saved.Code, saved.Body.String())
	}

	isSaved := doJSON(t, handler, http.MethodGet, "/library/"+mirror.ID+"/saved", readerToken, nil)
	var savedState struct {
		Saved bool `json:"saved"`
	}
	decodeBody(t, isSaved, &savedState)
	if !savedState.Saved {
		t.Fatalf("expected pattern reported as saved")
	}

	unsaved := doJSON(t, handler, http.MethodDelete, "/library/"+mirror.ID+"/save", readerToken, nil)
	if unsaved.Code != http.StatusNoContent {
		t.Fatalf("unsave failed with %d: %s", unsaved.Code, unsaved.Body.String())
	}
}

func TestTrackingFlowOverHTTP(t *testing.T) {
	handler := newAPITestHandler(t)
	token := signUpTestUser(t, handler, "jane@example.com")

	created := doJSON(t, handler, http.MethodPost, "/patterns", token, grannySquareBody())
	var pattern struct {
		ID string `json:"id"`
	}
	decodeBody(t, created, &pattern)

	started := doJSON(t, handler, http.MethodPost, "/tracking/start", token, map[string]string{"patternId": pattern.ID})
	if started.Code != http.StatusCreated {
		t.Fatalf("start failed with %d: %s", started.Code, started.Body.String())
	}
	var startResult struct {
		Project struct {
			ID string `json:"id"`
		} `json:"project"`
		Resumed bool `json:"resumed"`
	}
	decodeBody(t, started, &startResult)
	if startResult.Resumed {
		t.Fatalf("expected a fresh project")
	}

	resumed := doJSON(t, handler, http.MethodPost, "/tracking/start", token, map[string]string{"patternId": pattern.ID})
	if resumed.Code != http.StatusOK {
		t.Fatalf("resume failed with %d: %s", resumed.Code, resumed.Body.String())
	}

	progress := doJSON(t, handler, http.MethodPut, "/tracking/"+startResult.Project.ID+"/progress", token, map[string]interface{}{
		"goal":           "Finish before winter",
		"timeSpentHours": 2.5,
		"lastRowIndex":   14,
		"notes":          []string{"Switched to larger needles"},
	})
	if progress.Code != http.StatusOK {
		t.Fatalf("progress save failed with %d: %s", progress.Code, progress.Body.String())
	}

	completed := doJSON(t, handler, http.MethodPost, "/tracking/"+startResult.Project.ID+"/complete", token, nil)
	if completed.Code != http.StatusOK {
		t.Fatalf("complete failed with %d: %s", completed.Code, completed.Body.String())
	}

	restart := doJSON(t, handler, http.MethodPost, "/tracking/start", token, map[string]string{"patternId": pattern.ID})
	if restart.Code != http.StatusConflict {
		t.Fatalf("expected conflict for completed pair, got %d: %s", restart.Code, restart.Body.String())
	}
}

func TestInventoryAndSettingsOverHTTP(t *testing.T) {
	handler := newAPITestHandler(t)
	token := signUpTestUser(t, handler, "jane@example.com")

	added := doJSON(t, handler, http.MethodPost, "/inventory/yarn", token, map[string]interface{}{
		"name":     "Merino DK",
		"type":     "wool",
		"colour":   "teal",
		"quantity": 1,
	})
	if added.Code != http.StatusCreated {
		t.Fatalf("add yarn failed with %d: %s", added.Code, added.Body.String())
	}
	var yarn struct {
		ID string `json:"id"`
	}
	decodeBody(t, added, &yarn)

	decremented := doJSON(t, handler, http.MethodPost, "/inventory/yarn/"+yarn.ID+"/quantity", token, map[string]int{"delta": -1})
	if decremented.Code != http.StatusOK {
		t.Fatalf("decrement failed with %d: %s", decremented.Code, decremented.Body.String())
	}

	refused := doJSON(t, handler, http.MethodPost, "/inventory/yarn/"+yarn.ID+"/quantity", token, map[string]int{"delta": -1})
	if refused.Code != http.StatusConflict {
		t.Fatalf("expected conflict at zero quantity, got %d: %s", refused.Code, refused.Body.String())
	}

	defaults := doJSON(t, handler, http.MethodGet, "/settings", token, nil)
	var prefs struct {
		Theme    string `json:"theme"`
		TextSize string `json:"textSize"`
	}
	decodeBody(t, defaults, &prefs)
	if prefs.Theme != "light" || prefs.TextSize != "medium" {
		t.Fatalf("unexpected default settings: %+v", prefs)
	}

	updated := doJSON(t, handler, http.MethodPut, "/settings", token, map[string]string{"theme": "dark", "textSize": "large"})
	if updated.Code != http.StatusOK {
		t.Fatalf("settings update failed with %d: %s", updated.Code, updated.Body.String())
	}
	decodeBody(t, updated, &prefs)
	if prefs.Theme != "dark" || prefs.TextSize != "large" {
		t.Fatalf("unexpected updated settings: %+v", prefs)
	}
}

func TestCurrentUserEndpoint(t *testing.T) {
	handler := newAPITestHandler(t)
	token := signUpTestUser(t, handler, "jane@example.com")

	me := doJSON(t, handler, http.MethodGet, "/me", token, nil)
	if me.Code != http.StatusOK {
		t.Fatalf("me failed with %d: %s", me.Code, me.Body.String())
	}
	var current struct {
		Email string `json:"email"`
	}
	decodeBody(t, me, &current)
	if current.Email != "jane@example.com" {
		t.Fatalf("unexpected email: %q", current.Email)
	}
}
