package interact

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/crosslocale/internal/catalog"
	"github.com/xkilldash9x/crosslocale/internal/locator"
)

// newTestEngine builds an engine over a real catalog and registry with the
// given driver. Single English table with three candidates for BUTTON so
// attempt ordering is fully controlled by the tests.
func newTestEngine(t *testing.T, driver Driver, cfg Config, logger *zap.Logger) *Engine {
	t.Helper()

	cat, err := catalog.New(
		[]catalog.Language{{Code: "en"}},
		map[string]map[string]string{"en": {"login_button": "Login"}},
		zap.NewNop(),
	)
	require.NoError(t, err)

	registry := locator.New(cat, zap.NewNop())
	require.NoError(t, registry.RegisterTable("en", "login_page", map[string][]locator.Strategy{
		"BUTTON": {
			{Kind: "id", Value: "btn"},
			{Kind: "css", Value: ".btn"},
			{Kind: "xpath", Value: "//button"},
		},
		"BTN_A": {{Kind: "css", Value: ".a"}},
		"BTN_B": {{Kind: "css", Value: ".b"}},
	}))

	handle, err := cat.NewHandle("en", zap.NewNop())
	require.NoError(t, err)

	if logger == nil {
		logger = zap.NewNop()
	}
	return NewEngine(registry, handle, driver, cfg, logger)
}

func fastConfig() Config {
	return Config{MaxRounds: 1, RetryBackoff: time.Millisecond}
}

func TestPerformOrdering(t *testing.T) {
	// First candidate is found but refuses interaction, second succeeds;
	// the third must never be attempted.
	driver := &MockDriver{}
	handleA, handleB := "handle-a", "handle-b"

	driver.On("FindElement", mock.Anything, "id", "btn").Return(handleA, nil).Once()
	driver.On("PerformAction", mock.Anything, handleA, ActionClick, "").Return(ErrNotInteractable).Once()
	driver.On("FindElement", mock.Anything, "css", ".btn").Return(handleB, nil).Once()
	driver.On("PerformAction", mock.Anything, handleB, ActionClick, "").Return(nil).Once()

	e := newTestEngine(t, driver, fastConfig(), nil)
	out, err := e.Perform(context.Background(), Action{Kind: ActionClick, Page: "login_page", Element: "BUTTON"})
	require.NoError(t, err)

	assert.True(t, out.Success)
	assert.False(t, out.Scripted)
	require.NotNil(t, out.Winner)
	assert.Equal(t, "css", out.Winner.Kind)
	assert.Equal(t, 2, out.Attempts)

	// The losing attempt is preserved for diagnostics even on success.
	require.Len(t, out.Failures, 1)
	assert.Equal(t, FailureNotInteractable, out.Failures[0].Reason)
	assert.Equal(t, "id", out.Failures[0].Candidate.Kind)

	driver.AssertExpectations(t)
	driver.AssertNotCalled(t, "FindElement", mock.Anything, "xpath", "//button")
}

func TestPerformScriptedFallback(t *testing.T) {
	// Every native attempt fails, but the first found handle can still be
	// driven through the script path.
	driver := &MockScriptDriver{}
	found := "handle-1"

	driver.On("FindElement", mock.Anything, "id", "btn").Return(found, nil).Once()
	driver.On("PerformAction", mock.Anything, found, ActionClick, "").Return(ErrNotInteractable).Once()
	driver.On("FindElement", mock.Anything, "css", ".btn").Return(nil, ErrElementNotFound).Once()
	driver.On("FindElement", mock.Anything, "xpath", "//button").Return(nil, ErrElementNotFound).Once()
	driver.On("ExecuteScript", mock.Anything, found, ActionClick, "").Return(nil).Once()

	e := newTestEngine(t, driver, fastConfig(), nil)
	out, err := e.Perform(context.Background(), Action{Kind: ActionClick, Page: "login_page", Element: "BUTTON"})
	require.NoError(t, err)

	assert.True(t, out.Success)
	assert.True(t, out.Scripted)
	require.NotNil(t, out.Winner)
	assert.Equal(t, "id", out.Winner.Kind, "scripted fallback retargets the first found candidate")
	assert.Equal(t, 4, out.Attempts)
	assert.Len(t, out.Failures, 3)

	driver.AssertExpectations(t)
}

func TestPerformExhaustsRetries(t *testing.T) {
	driver := &MockDriver{}
	driver.On("FindElement", mock.Anything, "css", ".a").Return(nil, ErrElementNotFound).Times(2)

	core, logs := observer.New(zapcore.WarnLevel)
	e := newTestEngine(t, driver, Config{MaxRounds: 2, RetryBackoff: time.Millisecond}, zap.New(core))

	out, err := e.Perform(context.Background(), Action{Kind: ActionClick, Page: "login_page", Element: "BTN_A"})
	require.NoError(t, err, "a terminal interaction failure is a value, not a fault")

	assert.False(t, out.Success)
	assert.Nil(t, out.Winner)
	assert.Equal(t, 2, out.Rounds)
	assert.Equal(t, 2, out.Attempts)
	require.Len(t, out.Failures, 2)
	for _, failure := range out.Failures {
		assert.Equal(t, FailureNotFound, failure.Reason)
	}
	assert.Equal(t, "en", out.Language)
	assert.Equal(t, []string{"en"}, out.Chain)

	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].Message, "exhausting")

	driver.AssertExpectations(t)
}

func TestPerformConfigurationFaults(t *testing.T) {
	driver := &MockDriver{}
	e := newTestEngine(t, driver, fastConfig(), nil)

	t.Run("unknown element propagates as a fault", func(t *testing.T) {
		out, err := e.Perform(context.Background(), Action{Kind: ActionClick, Page: "login_page", Element: "NOPE"})
		assert.ErrorIs(t, err, locator.ErrLocatorNotFound)
		assert.Nil(t, out)
	})

	t.Run("cancelled context aborts before driver calls", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := e.Perform(ctx, Action{Kind: ActionClick, Page: "login_page", Element: "BUTTON"})
		assert.ErrorIs(t, err, context.Canceled)
	})

	driver.AssertExpectations(t)
}

func TestPerformCapturesFailureScreenshot(t *testing.T) {
	driver := &MockScreenshotDriver{}
	driver.On("FindElement", mock.Anything, "css", ".a").Return(nil, ErrElementNotFound).Once()
	driver.On("CaptureScreenshot", mock.Anything).Return([]byte("png-bytes"), nil).Once()

	cfg := fastConfig()
	cfg.CaptureOnFailure = true
	e := newTestEngine(t, driver, cfg, nil)

	out, err := e.Perform(context.Background(), Action{Kind: ActionClick, Page: "login_page", Element: "BTN_A"})
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, []byte("png-bytes"), out.Screenshot)

	driver.AssertExpectations(t)
}

func TestPerformAll(t *testing.T) {
	t.Run("stop on failure halts the batch", func(t *testing.T) {
		driver := &MockDriver{}
		driver.On("FindElement", mock.Anything, "css", ".a").Return(nil, ErrElementNotFound).Once()

		e := newTestEngine(t, driver, fastConfig(), nil)
		outcomes, err := e.PerformAll(context.Background(), []Action{
			{Kind: ActionClick, Page: "login_page", Element: "BTN_A"},
			{Kind: ActionClick, Page: "login_page", Element: "BTN_B"},
		}, StopOnFailure)
		require.NoError(t, err)

		require.Len(t, outcomes, 1)
		assert.False(t, outcomes[0].Success)
		driver.AssertNotCalled(t, "FindElement", mock.Anything, "css", ".b")
	})

	t.Run("continue-all aggregates every outcome", func(t *testing.T) {
		driver := &MockDriver{}
		handleB := "handle-b"
		driver.On("FindElement", mock.Anything, "css", ".a").Return(nil, ErrElementNotFound).Once()
		driver.On("FindElement", mock.Anything, "css", ".b").Return(handleB, nil).Once()
		driver.On("PerformAction", mock.Anything, handleB, ActionClick, "").Return(nil).Once()

		e := newTestEngine(t, driver, fastConfig(), nil)
		outcomes, err := e.PerformAll(context.Background(), []Action{
			{Kind: ActionClick, Page: "login_page", Element: "BTN_A"},
			{Kind: ActionClick, Page: "login_page", Element: "BTN_B"},
		}, ContinueAll)
		require.NoError(t, err)

		require.Len(t, outcomes, 2)
		assert.False(t, outcomes[0].Success)
		assert.True(t, outcomes[1].Success)
		driver.AssertExpectations(t)
	})
}

// newBilingualEngine mirrors the [vi, en] chain from the locale fixtures so
// cross-language verification has real fallback variants to match against.
func newBilingualEngine(t *testing.T, driver Driver) *Engine {
	t.Helper()

	cat, err := catalog.New(
		[]catalog.Language{{Code: "vi"}, {Code: "en"}},
		map[string]map[string]string{
			"en": {"login_button": "Login"},
			"vi": {"login_button": "Đăng nhập"},
		},
		zap.NewNop(),
	)
	require.NoError(t, err)

	registry := locator.New(cat, zap.NewNop())
	require.NoError(t, registry.RegisterTable("en", "login_page", map[string][]locator.Strategy{
		"LOGIN_BUTTON": {{Kind: "id", Value: "login-btn"}},
	}))

	handle, err := cat.NewHandle("vi", zap.NewNop())
	require.NoError(t, err)
	return NewEngine(registry, handle, driver, fastConfig(), zap.NewNop())
}

func TestVerifyText(t *testing.T) {
	t.Run("matches any chain language variant", func(t *testing.T) {
		driver := &MockDriver{}
		found := "handle-1"
		driver.On("FindElement", mock.Anything, "id", "login-btn").Return(found, nil).Once()
		// Application renders English even though the test runs Vietnamese.
		driver.On("ReadText", mock.Anything, found).Return("Login", nil).Once()

		e := newBilingualEngine(t, driver)
		check, err := e.VerifyText(context.Background(), "login_button", "login_page", "LOGIN_BUTTON")
		require.NoError(t, err)

		assert.True(t, check.Match)
		assert.Equal(t, "Login", check.Rendered)
		assert.Equal(t, []ExpectedText{
			{Language: "vi", Text: "Đăng nhập"},
			{Language: "en", Text: "Login"},
		}, check.Expected)
		driver.AssertExpectations(t)
	})

	t.Run("fails when no variant matches", func(t *testing.T) {
		driver := &MockDriver{}
		found := "handle-1"
		driver.On("FindElement", mock.Anything, "id", "login-btn").Return(found, nil).Once()
		driver.On("ReadText", mock.Anything, found).Return("Submit", nil).Once()

		e := newBilingualEngine(t, driver)
		check, err := e.VerifyText(context.Background(), "login_button", "login_page", "LOGIN_BUTTON")
		require.NoError(t, err)

		assert.False(t, check.Match)
		assert.Equal(t, "Submit", check.Rendered)
		driver.AssertExpectations(t)
	})

	t.Run("unknown key is a configuration fault", func(t *testing.T) {
		driver := &MockDriver{}
		e := newBilingualEngine(t, driver)

		_, err := e.VerifyText(context.Background(), "no_such_key", "login_page", "LOGIN_BUTTON")
		assert.ErrorIs(t, err, catalog.ErrMessageNotFound)
	})

	t.Run("unreadable element reports failures without matching", func(t *testing.T) {
		driver := &MockDriver{}
		driver.On("FindElement", mock.Anything, "id", "login-btn").Return(nil, ErrElementNotFound).Once()

		e := newBilingualEngine(t, driver)
		check, err := e.VerifyText(context.Background(), "login_button", "login_page", "LOGIN_BUTTON")
		require.NoError(t, err)

		assert.False(t, check.Match)
		require.Len(t, check.Failures, 1)
		assert.Equal(t, FailureNotFound, check.Failures[0].Reason)
		driver.AssertExpectations(t)
	})
}
