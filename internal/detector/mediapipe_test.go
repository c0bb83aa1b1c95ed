package detector

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gocv.io/x/gocv"
)

// fakeService writes a shell script that answers every request with line
// and keeps reading stdin until it is closed.
func fakeService(t *testing.T, line string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "service.sh")
	body := "printf '%s\\n' '" + line + "'\ncat > /dev/null\n"
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestMediaPipeDetector_ErrorReplyKeepsServiceAlive(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that starts a subprocess")
	}

	script := fakeService(t, `{"error":"model not loaded"}`)
	d, err := NewMediaPipeDetector(Config{MaxHands: 2, Script: script, Python: "sh"})
	if err != nil {
		t.Fatalf("NewMediaPipeDetector() error = %v", err)
	}
	defer d.Close()

	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 8, 8, gocv.MatTypeCV8UC3)
	defer frame.Close()

	_, err = d.Detect(&frame)
	if err == nil || !strings.Contains(err.Error(), "model not loaded") {
		t.Fatalf("Detect() error = %v, want service error", err)
	}

	d.mu.Lock()
	started, armed := d.started, d.idleTimer != nil
	d.mu.Unlock()
	if !started {
		t.Error("service stopped after an error reply")
	}
	if !armed {
		t.Error("idle timer not armed after an error reply")
	}
}

func TestShippedScriptsResolve(t *testing.T) {
	for _, name := range []string{"mediapipe_service.py", "ndi_bridge.py"} {
		if _, err := os.Stat(filepath.Join("..", "..", "scripts", name)); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
}
