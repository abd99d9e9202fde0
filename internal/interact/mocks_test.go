package interact

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// -- Driver Mock --

// MockDriver mocks the native Driver capability set. It deliberately does
// not implement ScriptRunner so tests can cover the no-fallback path.
type MockDriver struct {
	mock.Mock
}

func (m *MockDriver) FindElement(ctx context.Context, kind, value string) (Handle, error) {
	args := m.Called(ctx, kind, value)
	return args.Get(0), args.Error(1)
}

func (m *MockDriver) PerformAction(ctx context.Context, h Handle, kind ActionKind, payload string) error {
	args := m.Called(ctx, h, kind, payload)
	return args.Error(0)
}

func (m *MockDriver) ReadText(ctx context.Context, h Handle) (string, error) {
	args := m.Called(ctx, h)
	return args.String(0), args.Error(1)
}

func (m *MockDriver) IsVisible(ctx context.Context, h Handle) (bool, error) {
	args := m.Called(ctx, h)
	return args.Bool(0), args.Error(1)
}

// -- Script-capable Driver Mock --

// MockScriptDriver adds the optional ScriptRunner capability.
type MockScriptDriver struct {
	MockDriver
}

func (m *MockScriptDriver) ExecuteScript(ctx context.Context, h Handle, kind ActionKind, payload string) error {
	args := m.Called(ctx, h, kind, payload)
	return args.Error(0)
}

// -- Screenshot-capable Driver Mock --

// MockScreenshotDriver adds the optional ScreenshotTaker capability.
type MockScreenshotDriver struct {
	MockDriver
}

func (m *MockScreenshotDriver) CaptureScreenshot(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
