package capture

import (
	"errors"
	"testing"

	"gocv.io/x/gocv"
)

func TestNewCamera(t *testing.T) {
	tests := []struct {
		name     string
		deviceID int
	}{
		{
			name:     "default device",
			deviceID: 0,
		},
		{
			name:     "device 1",
			deviceID: 1,
		},
		{
			name:     "device 2",
			deviceID: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam := NewCamera(tt.deviceID)

			if cam == nil {
				t.Fatal("NewCamera returned nil")
			}

			if got := cam.Device(); got != tt.deviceID {
				t.Errorf("Device() = %d, want %d", got, tt.deviceID)
			}

			// Camera should not be running initially
			if cam.IsOpen() {
				t.Error("camera should not be running initially")
			}
		})
	}
}

func TestCamera_OpenClose_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cam := NewCamera(0)

	err := cam.Open()
	if err != nil {
		t.Skipf("skipping test - camera not available: %v", err)
	}

	if !cam.IsOpen() {
		t.Error("IsOpen() should return true after Open()")
	}

	mat, err := cam.ReadFrame()
	if err != nil {
		t.Errorf("ReadFrame() failed: %v", err)
	} else {
		if mat.Empty() {
			t.Error("ReadFrame() returned empty mat")
		} else if mat.Cols() != 640 || mat.Rows() != 480 {
			t.Logf("Frame dimensions: %dx%d (expected 640x480, but camera may not support)", mat.Cols(), mat.Rows())
		}
		mat.Close()
	}

	if err := cam.Close(); err != nil {
		t.Errorf("Close() failed: %v", err)
	}

	if cam.IsOpen() {
		t.Error("IsOpen() should return false after Close()")
	}
}

func TestCamera_ReadFrame_NotOpened(t *testing.T) {
	cam := NewCamera(0)

	_, err := cam.ReadFrame()
	if !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("ReadFrame() error = %v, want ErrCameraNotOpen", err)
	}
}

func TestCamera_Close_NotOpened(t *testing.T) {
	cam := NewCamera(0)

	// Close on not opened camera should not panic and return nil
	if err := cam.Close(); err != nil {
		t.Errorf("Close() on not opened camera should return nil, got: %v", err)
	}
}

func TestProbe(t *testing.T) {
	frame := gocv.NewMatWithSize(4, 4, gocv.MatTypeCV8UC3)
	defer frame.Close()

	busy := errors.New("device busy")

	tests := []struct {
		name       string
		working    map[int]bool
		maxDevices int
		wantDevice int
		wantErr    bool
	}{
		{
			name:       "first device works",
			working:    map[int]bool{0: true, 1: true},
			maxDevices: 5,
			wantDevice: 0,
		},
		{
			name:       "skips broken devices",
			working:    map[int]bool{2: true},
			maxDevices: 5,
			wantDevice: 2,
		},
		{
			name:       "working device beyond range",
			working:    map[int]bool{3: true},
			maxDevices: 3,
			wantErr:    true,
		},
		{
			name:       "nothing works",
			working:    map[int]bool{},
			maxDevices: 2,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tried []int
			open := func(id int) Camera {
				tried = append(tried, id)
				if !tt.working[id] {
					return NewFailingMockCamera(id, busy)
				}
				cam := NewMockCamera([]*gocv.Mat{&frame}, true)
				cam.SetDevice(id)
				return cam
			}

			cam, err := Probe(tt.maxDevices, open)
			if tt.wantErr {
				if !errors.Is(err, ErrNoCamera) {
					t.Fatalf("Probe() error = %v, want ErrNoCamera", err)
				}
				if !errors.Is(err, busy) {
					t.Errorf("Probe() error should carry device errors, got %v", err)
				}
				if len(tried) != tt.maxDevices {
					t.Errorf("tried %d devices, want %d", len(tried), tt.maxDevices)
				}
				return
			}
			if err != nil {
				t.Fatalf("Probe() error = %v", err)
			}
			defer cam.Close()

			if cam.Device() != tt.wantDevice {
				t.Errorf("Device() = %d, want %d", cam.Device(), tt.wantDevice)
			}
			if !cam.IsOpen() {
				t.Error("probed camera should be left open")
			}
		})
	}
}

func TestVerify_EmptyCameraIsClosed(t *testing.T) {
	cam := NewMockCamera(nil, false)

	if err := Verify(cam); err == nil {
		t.Fatal("Verify() should fail for a camera without frames")
	}
	if cam.IsOpen() {
		t.Error("Verify() should close a camera that failed to read")
	}
}

func TestMirror(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 1, 2, gocv.MatTypeCV8UC3)
	defer mat.Close()
	mat.SetUCharAt(0, 0, 200)

	Mirror(&mat)

	if got := mat.GetUCharAt(0, 3); got != 200 {
		t.Errorf("mirrored pixel = %d, want 200", got)
	}
	if got := mat.GetUCharAt(0, 0); got != 0 {
		t.Errorf("left pixel = %d, want 0", got)
	}

	// Nil and empty frames are ignored.
	Mirror(nil)
	empty := gocv.NewMat()
	defer empty.Close()
	Mirror(&empty)
}
