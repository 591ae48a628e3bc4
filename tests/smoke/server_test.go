//go:build smoke

package smoke

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/codr1/seitai-booking/internal/testutil"
)

func TestServerBookingFlow(t *testing.T) {
	repoRoot := findRepoRoot(t)
	tempDir := t.TempDir()

	binPath := filepath.Join(tempDir, "seitai-server")
	buildCmd := exec.Command("go", "build", "-o", binPath, "./cmd/server")
	buildCmd.Dir = repoRoot
	buildOutput, err := buildCmd.CombinedOutput()
	if err != nil {
		t.Fatalf("failed to build server: %v\n%s", err, buildOutput)
	}

	port := reservePort(t)
	configPath := filepath.Join(tempDir, "config.yaml")
	configBody := fmt.Sprintf(`app:
  name: "Seitai Booking"
  environment: "development"
  port: %d
  base_url: "http://localhost:%d"

database:
  driver: "sqlite"
  filename: "%s"

features:
  enable_email: false
  enable_day_sheet: false
  enable_debug: true
`, port, port, filepath.ToSlash(filepath.Join(tempDir, "db", "smoke.db")))

	if err := os.WriteFile(configPath, []byte(configBody), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cmd := exec.Command(binPath)
	cmd.Dir = tempDir
	cmd.Env = append(os.Environ(), "CONFIG_PATH="+configPath)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		t.Fatalf("failed to start server: %v", err)
	}

	waitDone := make(chan struct{})
	var waitErr error
	go func() {
		waitErr = cmd.Wait()
		close(waitDone)
	}()

	t.Cleanup(func() {
		if cmd.Process == nil {
			return
		}
		_ = cmd.Process.Signal(os.Interrupt)
		select {
		case <-waitDone:
			return
		case <-time.After(5 * time.Second):
		}
		_ = cmd.Process.Kill()
		select {
		case <-waitDone:
		case <-time.After(5 * time.Second):
			t.Logf("server process did not exit after kill")
		}
	})

	baseURL := fmt.Sprintf("http://localhost:%d", port)
	client := &http.Client{Timeout: 2 * time.Second}
	deadline := time.Now().Add(10 * time.Second)

	for {
		select {
		case <-waitDone:
			t.Fatalf("server exited before health check: %v\nstdout:\n%s\nstderr:\n%s", waitErr, stdout.String(), stderr.String())
		default:
		}

		resp, err := client.Get(baseURL + "/health")
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				break
			}
		}

		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for health check\nstdout:\n%s\nstderr:\n%s", stdout.String(), stderr.String())
		}

		time.Sleep(100 * time.Millisecond)
	}

	// The menu is served.
	resp, err := client.Get(baseURL + "/api/v1/menu")
	if err != nil {
		t.Fatalf("menu request: %v", err)
	}
	menuBody, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("menu status = %d: %s", resp.StatusCode, menuBody)
	}
	if !strings.Contains(string(menuBody), "first-free-trial") {
		t.Fatalf("menu missing free trial: %s", menuBody)
	}

	// Pick the next Monday so the clinic is open and the date is not past.
	date := nextMonday().Format("2006-01-02")

	resp, err = client.Get(baseURL + "/api/v1/slots?date=" + date + "&service_id=postnatal-treatment")
	if err != nil {
		t.Fatalf("slots request: %v", err)
	}
	slotsBody, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("slots status = %d: %s", resp.StatusCode, slotsBody)
	}
	var slotsResp struct {
		Slots []struct {
			Time      string `json:"time"`
			Available bool   `json:"available"`
		} `json:"slots"`
	}
	if err := json.Unmarshal(slotsBody, &slotsResp); err != nil {
		t.Fatalf("decode slots: %v", err)
	}
	if len(slotsResp.Slots) == 0 {
		t.Fatal("expected slots on a weekday")
	}

	// Book the first available slot.
	var startTime string
	for _, s := range slotsResp.Slots {
		if s.Available {
			startTime = s.Time
			break
		}
	}
	if startTime == "" {
		t.Fatal("no available slot found")
	}

	bookingPayload := fmt.Sprintf(`{
		"date": %q,
		"startTime": %q,
		"serviceId": "postnatal-treatment",
		"customerName": "Smoke Test",
		"customerPhone": "000"
	}`, date, startTime)

	resp, err = client.Post(baseURL+"/api/v1/bookings", "application/json", strings.NewReader(bookingPayload))
	if err != nil {
		t.Fatalf("booking request: %v", err)
	}
	createBody, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("booking status = %d: %s", resp.StatusCode, createBody)
	}

	// Rebooking the same slot conflicts. Use a different phone so the rate
	// limiter's cooldown does not mask the conflict.
	conflictPayload := strings.Replace(bookingPayload, `"000"`, `"111"`, 1)
	resp, err = client.Post(baseURL+"/api/v1/bookings", "application/json", strings.NewReader(conflictPayload))
	if err != nil {
		t.Fatalf("conflict request: %v", err)
	}
	conflictBody, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("conflict status = %d: %s", resp.StatusCode, conflictBody)
	}
	if !strings.Contains(string(conflictBody), "conflictingRange") {
		t.Fatalf("conflict response missing range: %s", conflictBody)
	}

	// The searchable record survived.
	resp, err = client.Get(baseURL + "/api/v1/bookings/search?phone=000")
	if err != nil {
		t.Fatalf("search request: %v", err)
	}
	searchBody, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("search status = %d: %s", resp.StatusCode, searchBody)
	}
	var searchResp struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(searchBody, &searchResp); err != nil {
		t.Fatalf("decode search: %v", err)
	}
	if searchResp.Total != 1 {
		t.Fatalf("search total = %d, want 1", searchResp.Total)
	}

	select {
	case <-waitDone:
		t.Fatalf("server exited unexpectedly: %v\nstdout:\n%s\nstderr:\n%s", waitErr, stdout.String(), stderr.String())
	default:
	}
}

func nextMonday() time.Time {
	d := time.Now().AddDate(0, 0, 1)
	for d.Weekday() != time.Monday {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

func reservePort(t *testing.T) int {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve port: %v", err)
	}
	defer listener.Close()

	return listener.Addr().(*net.TCPAddr).Port
}

func findRepoRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}

	for i := 0; i < 6; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	t.Fatal("failed to locate repo root with go.mod")
	return ""
}

func TestMigrationsApplied(t *testing.T) {
	db := testutil.NewTestDB(t)

	expectedTables := []string{
		"bookings",
		"users",
	}

	for _, table := range expectedTables {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name = ?",
			table,
		).Scan(&name)
		if err == sql.ErrNoRows {
			t.Fatalf("missing expected table %q after migrations", table)
		}
		if err != nil {
			t.Fatalf("query table %q existence: %v", table, err)
		}
	}
}
