package services

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
)

func schedulerStatus(t *testing.T, app *fiber.App) map[string]interface{} {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest("GET", "/status", nil))
	if err != nil {
		t.Fatalf("status request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status code = %d, want 200", resp.StatusCode)
	}

	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	return out
}

func TestSchedulerStatusLifecycle(t *testing.T) {
	engine, _, _ := newScheduleFixture(t, 0)
	sched := NewScheduler(engine, time.Hour)

	app := fiber.New()
	app.Get("/status", sched.Status)

	before := schedulerStatus(t, app)
	if running, _ := before["running"].(bool); running {
		t.Error("running = true before Start")
	}

	if err := sched.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(sched.Stop)

	after := schedulerStatus(t, app)
	if running, _ := after["running"].(bool); !running {
		t.Error("running = false after Start")
	}
	if _, ok := after["next_run"]; !ok {
		t.Error("next_run missing after Start")
	}
}
