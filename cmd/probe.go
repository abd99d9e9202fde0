package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/chromedp/chromedp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/crosslocale/internal/catalog"
	"github.com/xkilldash9x/crosslocale/internal/config"
	"github.com/xkilldash9x/crosslocale/internal/driver/cdp"
	"github.com/xkilldash9x/crosslocale/internal/interact"
	"github.com/xkilldash9x/crosslocale/internal/locator"
	"github.com/xkilldash9x/crosslocale/internal/observability"
	"github.com/xkilldash9x/crosslocale/internal/session"
)

// newProbeCommand runs a single interaction against a live page. It exists
// to smoke-test locator tables against a deployment without a full scenario
// suite: resolve the element in the requested language, drive the browser,
// and print the outcome diagnostics.
func newProbeCommand(cfg *config.Config) *cobra.Command {
	var (
		url        string
		page       string
		element    string
		action     string
		payload    string
		langCode   string
		screenshot string
	)

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Perform one action against a live page and report the outcome.",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := observability.GetLogger().Named("probe")
			ctx := cmd.Context()

			cat, err := catalog.LoadDir(cfg.Locales.MessagesDir, cfg.Locales.Chain, log)
			if err != nil {
				return err
			}
			registry := locator.New(cat, log)
			if err := locator.LoadDir(registry, cfg.Locales.LocatorsDir, cfg.Locales.Chain, log); err != nil {
				return err
			}

			engineCfg := interact.Config{
				MaxRounds:        cfg.Engine.MaxRounds,
				RetryBackoff:     cfg.Engine.RetryBackoff,
				ActionsPerSecond: cfg.Engine.ActionsPerSecond,
				CaptureOnFailure: screenshot != "",
			}
			manager, err := session.NewManager(cat, registry, engineCfg, cfg.Locales.Default, log)
			if err != nil {
				return err
			}

			tabCtx, cancel, err := newTab(ctx, cfg.Browser)
			if err != nil {
				return err
			}
			defer cancel()

			driver := cdp.New(tabCtx, cfg.Browser.ActionTimeout, log)
			sess, err := manager.NewSession(driver)
			if err != nil {
				return err
			}
			if langCode != "" {
				if err := sess.UseLanguage(langCode); err != nil {
					return err
				}
			}

			navCtx, navCancel := context.WithTimeout(ctx, cfg.Browser.NavigationTimeout)
			defer navCancel()
			if err := driver.Navigate(navCtx, url); err != nil {
				return err
			}

			out, err := sess.Engine.Perform(ctx, interact.Action{
				Kind:    interact.ActionKind(action),
				Page:    page,
				Element: element,
				Payload: payload,
			})
			if err != nil {
				return err
			}

			reportOutcome(cmd, out)
			if out.Screenshot != nil && screenshot != "" {
				if err := os.WriteFile(screenshot, out.Screenshot, 0o644); err != nil {
					log.Warn("Failed to write screenshot.", zap.Error(err))
				}
			}
			if !out.Success {
				return fmt.Errorf("interaction failed after %d attempt(s) over %d round(s)", out.Attempts, out.Rounds)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "page URL to load")
	cmd.Flags().StringVar(&page, "page", "", "page name in the locator tables")
	cmd.Flags().StringVar(&element, "element", "", "element key in the locator tables")
	cmd.Flags().StringVar(&action, "action", string(interact.ActionClick), "action kind (click, type, check, read_visibility, read_text)")
	cmd.Flags().StringVar(&payload, "payload", "", "action payload, e.g. text for type")
	cmd.Flags().StringVar(&langCode, "lang", "", "active language (defaults to locales.default)")
	cmd.Flags().StringVar(&screenshot, "screenshot", "", "write a failure screenshot to this path")
	_ = cmd.MarkFlagRequired("url")
	_ = cmd.MarkFlagRequired("page")
	_ = cmd.MarkFlagRequired("element")

	return cmd
}

// newTab allocates a browser and opens one tab using the configured options.
func newTab(ctx context.Context, cfg config.BrowserConfig) (context.Context, context.CancelFunc, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.WindowSize(1920, 1080),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	// Start the browser eagerly so allocation failures surface here rather
	// than inside the first driver call.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, nil, fmt.Errorf("failed to start browser: %w", err)
	}

	cancel := func() {
		tabCancel()
		allocCancel()
	}
	return tabCtx, cancel, nil
}

func reportOutcome(cmd *cobra.Command, out *interact.Outcome) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "page=%s element=%s language=%s chain=%v\n", out.Page, out.Element, out.Language, out.Chain)
	if out.Success {
		mode := "native"
		if out.Scripted {
			mode = "scripted"
		}
		fmt.Fprintf(w, "SUCCESS via %s candidate (%s=%q from %s) in %d attempt(s)\n",
			mode, out.Winner.Kind, out.Winner.Value, out.Winner.Origin, out.Attempts)
	} else {
		fmt.Fprintf(w, "FAILED after %d attempt(s) over %d round(s)\n", out.Attempts, out.Rounds)
	}
	for _, failure := range out.Failures {
		fmt.Fprintf(w, "  attempt %s=%q (from %s): %s (%s)\n",
			failure.Candidate.Kind, failure.Candidate.Value, failure.Candidate.Origin,
			failure.Reason, failure.Detail)
	}
}
