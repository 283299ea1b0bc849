package export

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/kozaktomas/school-reports/internal/document"
	"github.com/kozaktomas/school-reports/internal/imageinfo"
	"github.com/kozaktomas/school-reports/internal/render"
	"github.com/rs/zerolog/log"
)

const mmPerInch = 25.4

// waitImagesJS resolves once every image has finished loading and decoding.
// Broken images resolve too so they render as empty cells.
const waitImagesJS = `() => Promise.all(Array.from(document.images).map(img =>
	(img.complete ? Promise.resolve() : new Promise(done => { img.onload = done; img.onerror = done; }))
		.then(() => img.decode ? img.decode().catch(() => {}) : undefined)
))`

// ChromiumEngine prints the print-mode HTML through headless Chromium.
// The browser is launched on first use and shared by later exports.
type ChromiumEngine struct {
	renderer   *render.Renderer
	chromePath string
	policy     *imageinfo.AddressPolicy

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// NewChromiumEngine creates the engine. An empty chromePath lets the
// launcher find or download a browser. With a non-nil policy every request
// the page makes is checked against it first.
func NewChromiumEngine(renderer *render.Renderer, chromePath string, policy *imageinfo.AddressPolicy) *ChromiumEngine {
	return &ChromiumEngine{renderer: renderer, chromePath: chromePath, policy: policy}
}

func (c *ChromiumEngine) Name() string { return EngineChromium }

func (c *ChromiumEngine) ensureBrowser() (*rod.Browser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.browser != nil {
		return c.browser, nil
	}

	l := launcher.New().
		Headless(true).
		NoSandbox(true).
		Set("disable-gpu").
		Set("disable-dev-shm-usage")
	if c.chromePath != "" {
		l = l.Bin(c.chromePath)
	} else if path, ok := launcher.LookPath(); ok {
		l = l.Bin(path)
	}

	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	log.Info().Str("engine", EngineChromium).Msg("headless browser started")
	c.launcher = l
	c.browser = browser
	return browser, nil
}

// dropBrowser forgets browser after it stopped answering so the next export
// launches a new one. A browser replaced in the meantime is left alone.
func (c *ChromiumEngine) dropBrowser(browser *rod.Browser) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.browser != browser {
		return
	}
	if c.launcher != nil {
		c.launcher.Kill()
		c.launcher.Cleanup()
	}
	c.browser = nil
	c.launcher = nil
	log.Warn().Str("engine", EngineChromium).Msg("headless browser dropped, relaunching on next export")
}

// guardRequests fails page requests to addresses the policy refuses.
// The returned func stops the router.
func (c *ChromiumEngine) guardRequests(ctx context.Context, page *rod.Page) (func(), error) {
	router := page.HijackRequests()
	err := router.Add("*", "", func(h *rod.Hijack) {
		if err := c.policy.CheckURL(ctx, h.Request.URL()); err != nil {
			log.Warn().Err(err).Str("url", h.Request.URL().Redacted()).Msg("blocked export request")
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	if err != nil {
		return nil, err
	}
	go router.Run()
	return func() { _ = router.Stop() }, nil
}

func num(v float64) *float64 { return &v }

// Render loads the document into a fresh page, waits for every image, then prints.
func (c *ChromiumEngine) Render(ctx context.Context, doc *document.Document, settings Settings) ([]byte, error) {
	html, err := c.renderer.HTML(doc, render.ModePrint)
	if err != nil {
		return nil, err
	}

	browser, err := c.ensureBrowser()
	if err != nil {
		return nil, err
	}

	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		if ctx.Err() == nil {
			c.dropBrowser(browser)
		}
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer page.Close()

	if c.policy != nil {
		stop, err := c.guardRequests(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("guard page requests: %w", err)
		}
		defer stop()
	}

	// A4 at 96 DPI; the device scale factor sets the raster resolution of photos.
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             794,
		Height:            1123,
		DeviceScaleFactor: settings.Scale,
	}); err != nil {
		log.Warn().Err(err).Msg("failed to set export viewport")
	}

	if err := page.SetDocumentContent(html); err != nil {
		return nil, fmt.Errorf("set document content: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait for load: %w", err)
	}
	if _, err := page.Eval(waitImagesJS); err != nil {
		return nil, fmt.Errorf("wait for images: %w", err)
	}

	stream, err := page.PDF(&proto.PagePrintToPDF{
		PrintBackground:   true,
		PreferCSSPageSize: true,
		PaperWidth:        num(pageWidthMM / mmPerInch),
		PaperHeight:       num(pageHeightMM / mmPerInch),
		MarginTop:         num(MarginMM / mmPerInch),
		MarginBottom:      num(MarginMM / mmPerInch),
		MarginLeft:        num(MarginMM / mmPerInch),
		MarginRight:       num(MarginMM / mmPerInch),
	})
	if err != nil {
		return nil, fmt.Errorf("print to pdf: %w", err)
	}
	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("read pdf stream: %w", err)
	}
	return data, nil
}

// Close shuts the browser down if it was started.
func (c *ChromiumEngine) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.browser == nil {
		return nil
	}
	err := c.browser.Close()
	c.launcher.Cleanup()
	c.browser = nil
	c.launcher = nil
	return err
}
