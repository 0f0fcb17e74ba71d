package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ayofalola240/Okra-assessment/internal/domain/user"
	"github.com/ayofalola240/Okra-assessment/internal/http/handlers"
)

type bindErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details struct {
			JSON   string                `json:"json"`
			Field  string                `json:"field"`
			Fields []handlers.FieldError `json:"fields"`
		} `json:"details"`
	} `json:"error"`
}

func bindRouter() *gin.Engine {
	r := gin.New()
	r.POST("/users", func(ctx *gin.Context) {
		var req user.CreateUserRequest
		if !handlers.BindJSON(ctx, &req) {
			return
		}
		ctx.Status(http.StatusCreated)
	})

	return r
}

func postBind(t *testing.T, body string) (int, bindErrorResponse) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/users", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	bindRouter().ServeHTTP(w, req)

	var resp bindErrorResponse
	if w.Code != http.StatusCreated {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal error response: %v body=%s", err, w.Body.String())
		}
	}

	return w.Code, resp
}

func TestBindJSON_ValidationErrorsUseJSONFieldNames(t *testing.T) {
	code, resp := postBind(t, `{"email":"not-an-email","gender":"robot","address":{"city":""}}`)

	if code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d", code, http.StatusBadRequest)
	}

	if resp.Error.Code != "invalid_request" {
		t.Fatalf("unexpected code: %s", resp.Error.Code)
	}

	wantRules := map[string]string{
		"email":     "email",
		"firstName": "required",
		"lastName":  "required",
		"dob":       "required",
		"gender":    "oneof",
	}

	found := map[string]handlers.FieldError{}
	for _, fieldErr := range resp.Error.Details.Fields {
		found[fieldErr.Field] = fieldErr
	}

	for field, rule := range wantRules {
		fieldErr, ok := found[field]
		if !ok {
			t.Fatalf("missing field error for %q: %+v", field, resp.Error.Details.Fields)
		}
		if fieldErr.Rule != rule {
			t.Fatalf("field %q rule mismatch: got %q want %q", field, fieldErr.Rule, rule)
		}
		if fieldErr.Message == "" {
			t.Fatalf("field %q should include a non-empty message", field)
		}
	}
}

func TestBindJSON_EmailWithSurroundingSpaceRejected(t *testing.T) {
	for _, email := range []string{" a@b.io", "a@b.io "} {
		code, resp := postBind(t, `{"email":"`+email+`","firstName":"A","lastName":"B","dob":"2000-01-01"}`)

		if code != http.StatusBadRequest {
			t.Fatalf("email %q: got status %d, want 400", email, code)
		}

		if len(resp.Error.Details.Fields) != 1 || resp.Error.Details.Fields[0].Field != "email" {
			t.Fatalf("email %q: expected email field error, got %+v", email, resp.Error.Details.Fields)
		}
	}
}

func TestBindJSON_NestedFieldPath(t *testing.T) {
	long := string(bytes.Repeat([]byte("x"), 101))
	body := `{"email":"a@b.io","firstName":"A","lastName":"B","dob":"2000-01-01","address":{"city":"` + long + `"}}`

	code, resp := postBind(t, body)

	if code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", code)
	}

	if len(resp.Error.Details.Fields) != 1 || resp.Error.Details.Fields[0].Field != "address.city" {
		t.Fatalf("expected address.city error, got %+v", resp.Error.Details.Fields)
	}
}

func TestBindJSON_PastDateRule(t *testing.T) {
	tomorrow := time.Now().UTC().AddDate(0, 0, 1).Format("2006-01-02")

	tests := []struct {
		name     string
		dob      string
		wantCode int
	}{
		{name: "past date", dob: "2000-06-15", wantCode: http.StatusCreated},
		{name: "rfc3339", dob: "2000-06-15T00:00:00Z", wantCode: http.StatusCreated},
		{name: "future date", dob: tomorrow, wantCode: http.StatusBadRequest},
		{name: "garbage", dob: "15/06/2000", wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := `{"email":"a@b.io","firstName":"A","lastName":"B","dob":"` + tt.dob + `"}`

			code, resp := postBind(t, body)

			if code != tt.wantCode {
				t.Fatalf("got status %d, want %d (%+v)", code, tt.wantCode, resp)
			}

			if tt.wantCode == http.StatusBadRequest && resp.Error.Details.Fields[0].Rule != "pastdate" {
				t.Fatalf("expected pastdate rule, got %+v", resp.Error.Details.Fields)
			}
		})
	}
}

func TestBindJSON_TypeMismatchUsesJSONFieldNames(t *testing.T) {
	code, resp := postBind(t, `{"email":"a@b.io","firstName":"A","lastName":"B","dob":"2000-01-01","roles":"admin"}`)

	if code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d", code, http.StatusBadRequest)
	}

	if resp.Error.Details.JSON != "invalid_json_type" {
		t.Fatalf("expected invalid_json_type, got %q", resp.Error.Details.JSON)
	}
	if resp.Error.Details.Field != "roles" {
		t.Fatalf("expected detail field to be roles, got %q", resp.Error.Details.Field)
	}
	if len(resp.Error.Details.Fields) == 0 || resp.Error.Details.Fields[0].Rule != "type" {
		t.Fatalf("expected a type rule in details.fields, got %+v", resp.Error.Details.Fields)
	}
}

func TestBindJSON_SyntaxError(t *testing.T) {
	for _, body := range []string{`{"email":}`, `{"email":`} {
		code, resp := postBind(t, body)

		if code != http.StatusBadRequest {
			t.Fatalf("body %q: got status %d, want 400", body, code)
		}

		if resp.Error.Details.JSON != "invalid_json_syntax" {
			t.Fatalf("body %q: expected invalid_json_syntax, got %+v", body, resp.Error.Details)
		}
	}
}

func TestBindJSON_EmptyBody(t *testing.T) {
	code, resp := postBind(t, ``)

	if code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", code)
	}

	if resp.Error.Details.JSON != "empty_body" {
		t.Fatalf("expected empty_body, got %+v", resp.Error.Details)
	}
}

func TestBindJSON_BodyOverCap(t *testing.T) {
	r := gin.New()
	r.POST("/users", func(ctx *gin.Context) {
		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, 16)

		var req user.CreateUserRequest
		if !handlers.BindJSON(ctx, &req) {
			return
		}
		ctx.Status(http.StatusCreated)
	})

	body := `{"email":"a@b.io","firstName":"Ada","lastName":"Obi","dob":"2000-01-01"}`
	req := httptest.NewRequest(http.MethodPost, "/users", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("got status %d, want 413", w.Code)
	}
}
