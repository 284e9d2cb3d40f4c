package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"persona-chat-api/internal/apperr"
	"persona-chat-api/internal/chat"
	"persona-chat-api/internal/core/auth"
	"persona-chat-api/internal/domain"
	"persona-chat-api/internal/gateway/openai"
	"persona-chat-api/internal/repo"
	resp "persona-chat-api/internal/transport/http/response"
)

// newTestAPI 起一套完整 API：sqlite + 假 OpenAI 上游 + 真编排
func newTestAPI(t *testing.T, upstream http.HandlerFunc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.User{}, &domain.Persona{}, &domain.Chat{}, &domain.Message{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	if upstream == nil {
		upstream = func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Nice to meet you."}}]}`))
		}
	}
	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	gw, err := openai.New(openai.Config{BaseURL: srv.URL, APIKey: "k", TimeoutSec: 5})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(gw.Close)

	l := zap.NewNop()
	users := repo.NewUserRepo(db)
	personas := repo.NewPersonaRepo(db)
	chats := repo.NewChatRepo(db)
	messages := repo.NewMessageRepo(db)
	training := chat.NewTrainingStore(filepath.Join(t.TempDir(), "training"), nil)

	return NewAPIEngine(Deps{
		Log:      l,
		JWTer:    auth.NewJWTer("test-secret", "persona-chat-api", time.Hour),
		Users:    users,
		Personas: personas,
		Chats:    chats,
		Messages: messages,
		Chat:     chat.NewService(chats, messages, personas, gw, training, l),
		Training: training,
		DataDir:  t.TempDir(),
	})
}

func do(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func login(t *testing.T, r *gin.Engine, email string) string {
	t.Helper()
	w := do(t, r, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": email, "password": "secret123"})
	if w.Code != http.StatusOK {
		t.Fatalf("login: %d %s", w.Code, w.Body.String())
	}
	out := decode[struct {
		Token string `json:"token"`
	}](t, w)
	return out.Token
}

func TestLoginAutoRegisterThenPasswordCheck(t *testing.T) {
	r := newTestAPI(t, nil)

	w := do(t, r, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "ann@example.com", "password": "secret123"})
	first := decode[struct {
		Token string `json:"token"`
		IsNew bool   `json:"isNew"`
	}](t, w)
	if w.Code != http.StatusOK || !first.IsNew || first.Token == "" {
		t.Fatalf("first login: %d %+v", w.Code, first)
	}

	w = do(t, r, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "ann@example.com", "password": "secret123"})
	second := decode[struct {
		IsNew bool `json:"isNew"`
	}](t, w)
	if w.Code != http.StatusOK || second.IsNew {
		t.Fatalf("second login: %d %+v", w.Code, second)
	}

	w = do(t, r, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "ann@example.com", "password": "wrong"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("wrong password: %d", w.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	r := newTestAPI(t, nil)
	if w := do(t, r, http.MethodGet, "/api/v1/me", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: %d", w.Code)
	}
	if w := do(t, r, http.MethodGet, "/api/v1/me", "garbage", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: %d", w.Code)
	}
}

func TestPersonaCRUDAndDuplicate(t *testing.T) {
	r := newTestAPI(t, nil)
	tok := login(t, r, "ann@example.com")

	w := do(t, r, http.MethodPost, "/api/v1/personas", tok,
		gin.H{"displayName": "Sage", "firstName": "Ada", "lastName": "Lovelace"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	p := decode[domain.Persona](t, w)
	if p.ID == "" || p.DisplayName != "Sage" {
		t.Fatalf("persona = %+v", p)
	}

	// display name 撞车 → 400 Duplicate
	w = do(t, r, http.MethodPost, "/api/v1/personas", tok, gin.H{"displayName": "Sage"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate: %d", w.Code)
	}
	eb := decode[resp.ErrorBody](t, w)
	if eb.ExceptionType != string(apperr.KindDuplicate) || !eb.IsBusinessException {
		t.Fatalf("duplicate body = %+v", eb)
	}

	w = do(t, r, http.MethodGet, "/api/v1/personas/"+p.ID, tok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get: %d", w.Code)
	}

	if w = do(t, r, http.MethodGet, "/api/v1/personas/nope", tok, nil); w.Code != http.StatusNotFound {
		t.Fatalf("missing persona: %d", w.Code)
	}
}

func TestChatFlowSendMessage(t *testing.T) {
	r := newTestAPI(t, nil)
	tok := login(t, r, "ann@example.com")

	w := do(t, r, http.MethodPost, "/api/v1/personas", tok, gin.H{"displayName": "Sage"})
	p := decode[domain.Persona](t, w)

	w = do(t, r, http.MethodPost, "/api/v1/chats", tok, gin.H{"personaId": p.ID, "title": "First chat"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create chat: %d %s", w.Code, w.Body.String())
	}
	c := decode[domain.Chat](t, w)

	w = do(t, r, http.MethodPost, "/api/v1/chats/"+c.ID+"/messages", tok, gin.H{"content": "hello"})
	if w.Code != http.StatusCreated {
		t.Fatalf("send: %d %s", w.Code, w.Body.String())
	}
	m := decode[domain.Message](t, w)
	if m.Role != domain.RoleAssistant || m.Content != "Nice to meet you." {
		t.Fatalf("assistant message = %+v", m)
	}

	// 历史两条：用户 + 助手，正序
	w = do(t, r, http.MethodGet, "/api/v1/chats/"+c.ID+"/messages", tok, nil)
	page := decode[domain.Paginated[domain.Message]](t, w)
	if page.TotalCount != 2 || page.Items[0].Role != domain.RoleUser {
		t.Fatalf("history = %+v", page)
	}
}

func TestSendToMissingChatIs400NotFound404Elsewhere(t *testing.T) {
	r := newTestAPI(t, nil)
	tok := login(t, r, "ann@example.com")

	// 发消息到不存在的会话：编排层报 Validation → 400
	w := do(t, r, http.MethodPost, "/api/v1/chats/no-such/messages", tok, gin.H{"content": "hi"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("send to missing chat: %d", w.Code)
	}
	eb := decode[resp.ErrorBody](t, w)
	if eb.ExceptionType != string(apperr.KindValidation) || eb.Message != "chat not found" {
		t.Fatalf("body = %+v", eb)
	}
	if w.Header().Get(resp.HeaderExceptionType) != string(apperr.KindValidation) {
		t.Fatalf("header = %q", w.Header().Get(resp.HeaderExceptionType))
	}

	// 同一个 id 的 GET 却是 404，两种语义并存
	if w = do(t, r, http.MethodGet, "/api/v1/chats/no-such", tok, nil); w.Code != http.StatusNotFound {
		t.Fatalf("get missing chat: %d", w.Code)
	}
}

func TestChatOwnershipIsolation(t *testing.T) {
	r := newTestAPI(t, nil)
	tokA := login(t, r, "ann@example.com")
	tokB := login(t, r, "bob@example.com")

	w := do(t, r, http.MethodPost, "/api/v1/personas", tokA, gin.H{"displayName": "Sage"})
	p := decode[domain.Persona](t, w)
	w = do(t, r, http.MethodPost, "/api/v1/chats", tokA, gin.H{"personaId": p.ID})
	c := decode[domain.Chat](t, w)

	// 别人的会话一律按不存在处理
	if w = do(t, r, http.MethodGet, "/api/v1/chats/"+c.ID, tokB, nil); w.Code != http.StatusNotFound {
		t.Fatalf("foreign chat visible: %d", w.Code)
	}
	if w = do(t, r, http.MethodDelete, "/api/v1/chats/"+c.ID, tokB, nil); w.Code != http.StatusNotFound {
		t.Fatalf("foreign chat deletable: %d", w.Code)
	}
}

func TestGatewayFailureIs500Generic(t *testing.T) {
	r := newTestAPI(t, func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":{"message":"upstream exploded"}}`))
	})
	tok := login(t, r, "ann@example.com")

	w := do(t, r, http.MethodPost, "/api/v1/personas", tok, gin.H{"displayName": "Sage"})
	p := decode[domain.Persona](t, w)
	w = do(t, r, http.MethodPost, "/api/v1/chats", tok, gin.H{"personaId": p.ID})
	c := decode[domain.Chat](t, w)

	w = do(t, r, http.MethodPost, "/api/v1/chats/"+c.ID+"/messages", tok, gin.H{"content": "hi"})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("gateway failure: %d %s", w.Code, w.Body.String())
	}
	eb := decode[resp.ErrorBody](t, w)
	// 上游细节不过边界
	if strings.Contains(eb.Message, "upstream exploded") {
		t.Fatalf("upstream detail leaked: %+v", eb)
	}
	if eb.Message != resp.GenericErrorMessage || !eb.IsTechnicalException {
		t.Fatalf("body = %+v", eb)
	}
	if eb.ExceptionType != string(apperr.KindGatewayAPI) {
		t.Fatalf("exceptionType = %q", eb.ExceptionType)
	}

	// 用户消息留在库里（故障后前端可重试生成）
	w = do(t, r, http.MethodGet, "/api/v1/chats/"+c.ID+"/messages", tok, nil)
	page := decode[domain.Paginated[domain.Message]](t, w)
	if page.TotalCount != 1 || page.Items[0].Role != domain.RoleUser {
		t.Fatalf("user message lost after gateway failure: %+v", page)
	}
}

func TestTrainingUploadFlowsIntoPrompt(t *testing.T) {
	var gotBody bytes.Buffer
	r := newTestAPI(t, func(w http.ResponseWriter, req *http.Request) {
		_, _ = gotBody.ReadFrom(req.Body)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	})
	tok := login(t, r, "ann@example.com")

	w := do(t, r, http.MethodPost, "/api/v1/personas", tok, gin.H{"displayName": "Sage"})
	p := decode[domain.Persona](t, w)

	w = do(t, r, http.MethodPut, "/api/v1/personas/"+p.ID+"/training", tok, gin.H{"text": "Collects rare stamps."})
	if w.Code != http.StatusOK {
		t.Fatalf("training upload: %d %s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodPost, "/api/v1/chats", tok, gin.H{"personaId": p.ID})
	c := decode[domain.Chat](t, w)
	if w = do(t, r, http.MethodPost, "/api/v1/chats/"+c.ID+"/messages", tok, gin.H{"content": "hi"}); w.Code != http.StatusCreated {
		t.Fatalf("send: %d", w.Code)
	}
	if !strings.Contains(gotBody.String(), "Collects rare stamps.") {
		t.Fatal("training text did not reach the gateway prompt")
	}
}

func TestHealth(t *testing.T) {
	r := newTestAPI(t, nil)
	if w := do(t, r, http.MethodGet, "/health", "", nil); w.Code != http.StatusOK {
		t.Fatalf("health: %d", w.Code)
	}
}
