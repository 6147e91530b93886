package browser

import (
	"context"
	"fmt"

	"flightscraper/internal/config"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// NewChrome starts a browser under parent and returns its context. The
// returned cancel func tears down the timeout, the tab and the process.
func NewChrome(parent context.Context, cfg *config.Config) (context.Context, context.CancelFunc, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.UserAgent(userAgent),

		// Disable updates and popups
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-component-update", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),

		// Basic settings
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", cfg.Headless),
		chromedp.Flag("window-size", "1920,1080"),
		chromedp.Flag("lang", "en-US"),

		// Stability flags
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-backgrounding-occluded-windows", true),
		chromedp.Flag("disable-breakpad", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("no-sandbox", true),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)

	browserCtx, browserCancel := chromedp.NewContext(
		allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			log.Debug().Msgf("CHROME: "+format, args...)
		}),
		chromedp.WithErrorf(func(format string, args ...interface{}) {
			log.Warn().Msgf("CHROME: "+format, args...)
		}),
	)

	timeoutCtx, timeoutCancel := context.WithTimeout(browserCtx, cfg.GlobalTimeout)

	cancelFunc := func() {
		log.Debug().Msg("canceling browser contexts")
		timeoutCancel()
		browserCancel()
		allocCancel()
	}

	// The first Run launches the process.
	if err := chromedp.Run(timeoutCtx); err != nil {
		cancelFunc()
		return nil, nil, fmt.Errorf("start browser: %w", err)
	}
	log.Info().Bool("headless", cfg.Headless).Msg("browser started")

	return timeoutCtx, cancelFunc, nil
}
