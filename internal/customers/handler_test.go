package customers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func setupCustomerRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(NewService(NewMemoryRepo())).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func TestPutThenGetCustomer(t *testing.T) {
	router := setupCustomerRouter(t)

	body, _ := json.Marshal(Profile{Name: "林小姐", AgeRange: "20-29", Gender: "女", Lifestyle: Lifestyle{Dandruff: "少量"}})
	req := httptest.NewRequest(http.MethodPut, "/api/v1/customers/0912345678", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("PUT expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/customers/0912345678", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("GET expected 200, got %d", resp.Code)
	}
	var got Customer
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Name != "林小姐" || got.Lifestyle.Dandruff != "少量" {
		t.Fatalf("unexpected customer %+v", got)
	}
}

func TestCustomerErrors(t *testing.T) {
	router := setupCustomerRouter(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"missing customer", http.MethodGet, "/api/v1/customers/0900000000", "", http.StatusNotFound, "NOT_FOUND"},
		{"invalid phone", http.MethodGet, "/api/v1/customers/abc", "", http.StatusBadRequest, "VALIDATION_ERROR"},
		{"invalid json", http.MethodPut, "/api/v1/customers/0912345678", "{", http.StatusBadRequest, "VALIDATION_ERROR"},
		{"invalid enum", http.MethodPut, "/api/v1/customers/0912345678", `{"name":"A","gender":"?"}`, http.StatusBadRequest, "VALIDATION_ERROR"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)
			if resp.Code != tt.wantStatus {
				t.Fatalf("status got %d want %d", resp.Code, tt.wantStatus)
			}
			var env struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			_ = json.Unmarshal(resp.Body.Bytes(), &env)
			if env.Error.Code != tt.wantCode {
				t.Fatalf("code got %q want %q", env.Error.Code, tt.wantCode)
			}
		})
	}
}
