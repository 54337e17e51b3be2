package wallet

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/walletsync/internal/ledger"
)

func setupHandlerApp() *fiber.App {
	h := NewHandler(NewService(NewMemoryRepository(), nil, ledger.NewInMemory()))
	app := fiber.New()
	app.Post("/wallets", h.Bind)
	app.Get("/users/:userId/wallets", h.List)
	return app
}

func TestHandlerBindAndList(t *testing.T) {
	app := setupHandlerApp()

	body := `{"user_id":"user-1","address":"` + address + `","network":"polygon"}`
	req := httptest.NewRequest(fiber.MethodPost, "/wallets", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("bind request: %v", err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/users/user-1/wallets", nil))
	if err != nil {
		t.Fatalf("list request: %v", err)
	}
	var payload struct {
		Wallets []Binding `json:"wallets"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if len(payload.Wallets) != 1 || payload.Wallets[0].Network != "polygon" {
		t.Fatalf("unexpected wallets %+v", payload.Wallets)
	}
}

func TestHandlerBindConflict(t *testing.T) {
	app := setupHandlerApp()

	for i, user := range []string{"user-1", "user-2"} {
		body := `{"user_id":"` + user + `","address":"` + address + `"}`
		req := httptest.NewRequest(fiber.MethodPost, "/wallets", strings.NewReader(body))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		want := fiber.StatusCreated
		if i == 1 {
			want = fiber.StatusConflict
		}
		if resp.StatusCode != want {
			t.Fatalf("request %d: expected %d got %d", i, want, resp.StatusCode)
		}
	}
}
