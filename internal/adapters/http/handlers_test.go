package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"github.com/dkeye/Banter/internal/core"
	"github.com/dkeye/Banter/internal/domain"
	"github.com/dkeye/Banter/internal/store"
)

func setupTestRouter(t *testing.T) (*gin.Engine, *store.Store, *core.PresenceRegistry) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := st.SeedRooms(context.Background(), []string{"general", "random"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	presence := core.NewPresenceRegistry()
	h := &Handlers{Store: st, Presence: presence, PageSize: 20}

	r := gin.New()
	r.Use(sessions.Sessions("BanterSession", cookie.NewStore([]byte("test-secret"))))
	api := r.Group("/api")
	api.POST("/login", h.Login)
	api.POST("/logout", h.Logout)
	api.GET("/me", h.Me)
	api.GET("/rooms", h.Rooms)
	api.GET("/rooms/:id/messages", h.Messages)
	return r, st, presence
}

func doJSON(r *gin.Engine, method, path, body, sessionCookie string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if sessionCookie != "" {
		req.Header.Set("Cookie", sessionCookie)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLoginCreatesUserAndSession(t *testing.T) {
	r, _, _ := setupTestRouter(t)

	w := doJSON(r, http.MethodPost, "/api/login", `{"username":"alice"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var user domain.User
	if err := json.Unmarshal(w.Body.Bytes(), &user); err != nil {
		t.Fatalf("body: %v", err)
	}
	if user.ID == 0 || user.Username != "alice" {
		t.Fatalf("unexpected user %#v", user)
	}
	if len(w.Result().Cookies()) == 0 {
		t.Fatal("login set no session cookie")
	}
}

func TestLoginMissingUsername(t *testing.T) {
	r, _, _ := setupTestRouter(t)

	if w := doJSON(r, http.MethodPost, "/api/login", `{}`, ""); w.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", w.Code)
	}
}

func TestMeRequiresSession(t *testing.T) {
	r, _, _ := setupTestRouter(t)

	if w := doJSON(r, http.MethodGet, "/api/me", "", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", w.Code)
	}

	login := doJSON(r, http.MethodPost, "/api/login", `{"username":"alice"}`, "")
	cookies := login.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("login set no cookie")
	}
	sess := cookies[0].Name + "=" + cookies[0].Value

	w := doJSON(r, http.MethodGet, "/api/me", "", sess)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d with session, want 200", w.Code)
	}
	var user domain.User
	if err := json.Unmarshal(w.Body.Bytes(), &user); err != nil {
		t.Fatalf("body: %v", err)
	}
	if user.Username != "alice" {
		t.Fatalf("me returned %#v", user)
	}
}

func TestRoomsIncludeLivePresenceCounts(t *testing.T) {
	r, _, presence := setupTestRouter(t)
	presence.Join(1, "c1", "Alice")
	presence.Join(1, "c2", "Bob")

	w := doJSON(r, http.MethodGet, "/api/rooms", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var resp struct {
		Rooms []struct {
			ID     uint   `json:"id"`
			Name   string `json:"name"`
			Online int    `json:"online"`
		} `json:"rooms"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("body: %v", err)
	}
	if len(resp.Rooms) != 2 {
		t.Fatalf("got %d rooms, want 2", len(resp.Rooms))
	}
	if resp.Rooms[0].Online != 2 || resp.Rooms[1].Online != 0 {
		t.Fatalf("online counts %d/%d, want 2/0", resp.Rooms[0].Online, resp.Rooms[1].Online)
	}
}

func TestMessagesEndpointPaginates(t *testing.T) {
	r, st, _ := setupTestRouter(t)
	ctx := context.Background()

	user, err := st.GetOrCreateUser(ctx, "alice")
	if err != nil {
		t.Fatalf("user: %v", err)
	}
	for i := 0; i < 25; i++ {
		if _, err := st.InsertMessage(ctx, 1, user.ID, domain.ContentText, "hi"); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	w := doJSON(r, http.MethodGet, "/api/rooms/1/messages?page=2", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var page store.HistoryPage
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("body: %v", err)
	}
	if len(page.Messages) != 5 || page.HasNext || !page.HasPrev {
		t.Fatalf("page 2: %d messages next=%v prev=%v", len(page.Messages), page.HasNext, page.HasPrev)
	}

	if w := doJSON(r, http.MethodGet, "/api/rooms/abc/messages", "", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("bad room id status %d, want 400", w.Code)
	}
}
