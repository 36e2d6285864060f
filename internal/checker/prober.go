package checker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"

	"github.com/khanhnv2901/webscan/internal/domain/scan"
	consts "github.com/khanhnv2901/webscan/internal/shared/constants"
)

// HTTPProber issues the primary GET against a target and a best-effort robots.txt GET
// against the final origin. It never returns an error: failures are reported in the signals.
type HTTPProber struct {
	Timeout       time.Duration     // Primary request bound, redirects included
	RobotsTimeout time.Duration     // robots.txt request bound
	UserAgent     string            // Defaults to a desktop browser UA
	Transport     http.RoundTripper // nil uses http.DefaultTransport
	Logger        *zap.Logger
}

// NewHTTPProber returns a prober with the default timeouts and User-Agent.
func NewHTTPProber(logger *zap.Logger) *HTTPProber {
	return &HTTPProber{
		Timeout:       consts.PrimaryProbeTimeout,
		RobotsTimeout: consts.RobotsProbeTimeout,
		UserAgent:     consts.BrowserUserAgent,
		Logger:        logger,
	}
}

// Name returns the name of this prober
func (p *HTTPProber) Name() string {
	return "probe http"
}

// Probe performs the primary and robots.txt requests for one target.
func (p *HTTPProber) Probe(ctx context.Context, target scan.Target) scan.Signals {
	logger := p.logger().With(zap.String("target", string(target)), zap.String("host", ExtractHost(string(target))))
	start := time.Now()

	probeCtx, cancel := context.WithTimeout(ctx, p.timeout())
	defer cancel()

	client := p.newClient(p.timeout())

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, string(target), nil)
	if err != nil {
		return scan.FailedSignals(fmt.Sprintf("create request: %v", err))
	}
	req.Header.Set("User-Agent", p.userAgent())

	resp, err := client.Do(req)
	if err != nil {
		logger.Debug("primary probe failed", zap.Error(err))
		return scan.FailedSignals(err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, consts.MaxBodyBytes))
	if err != nil {
		logger.Debug("reading response body failed", zap.Error(err))
		return scan.FailedSignals(fmt.Sprintf("read body: %v", err))
	}

	finalURL := resp.Request.URL
	signals := scan.Signals{
		FinalURL:       finalURL.String(),
		UsesHTTPS:      finalURL.Scheme == "https",
		ServerHeader:   serverHeader(resp.Header),
		PresentHeaders: PresentRecommendedHeaders(resp.Header),
		OpenDirectory:  strings.Contains(string(body), consts.DirectoryListingMarker),
		StatusCode:     resp.StatusCode,
	}

	signals.RobotsTxtFound = p.probeRobots(ctx, finalURL)
	signals.ResponseTime = float64(time.Since(start).Microseconds()) / 1000.0

	logger.Debug("probe complete",
		zap.Int("status", signals.StatusCode),
		zap.Bool("https", signals.UsesHTTPS),
		zap.Int("recommended_headers", len(signals.PresentHeaders)),
		zap.Bool("robots_txt", signals.RobotsTxtFound),
	)
	return signals
}

// probeRobots reports whether {scheme}://{host}/robots.txt answers exactly 200.
// Any failure counts as not found.
func (p *HTTPProber) probeRobots(ctx context.Context, origin *url.URL) bool {
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", origin.Scheme, origin.Host)

	robotsCtx, cancel := context.WithTimeout(ctx, p.robotsTimeout())
	defer cancel()

	req, err := http.NewRequestWithContext(robotsCtx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", p.userAgent())

	resp, err := p.newClient(p.robotsTimeout()).Do(req)
	if err != nil {
		p.logger().Debug("robots.txt probe failed", zap.String("url", robotsURL), zap.Error(err))
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, consts.MaxBodyBytes))

	return resp.StatusCode == http.StatusOK
}

// newClient builds a client with its own cookie jar so redirect chains that set
// cookies behave as in a browser without sharing state between targets.
func (p *HTTPProber) newClient(timeout time.Duration) *http.Client {
	client := &http.Client{
		Timeout:   timeout,
		Transport: p.Transport,
	}
	if jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List}); err == nil {
		client.Jar = jar
	}
	return client
}

// PresentRecommendedHeaders returns the recommended headers found on a response, in
// recommended-list order. Header values are ignored; an empty value still counts.
func PresentRecommendedHeaders(headers http.Header) []string {
	present := make([]string, 0, len(scan.RecommendedHeaders))
	for _, name := range scan.RecommendedHeaders {
		if _, ok := headers[name]; ok {
			present = append(present, name)
		}
	}
	return present
}

// serverHeader folds repeated Server lines into one value, comma separated.
func serverHeader(headers http.Header) string {
	values, ok := headers["Server"]
	if !ok || len(values) == 0 {
		return scan.ServerNotPresent
	}
	return strings.Join(values, ", ")
}

func (p *HTTPProber) timeout() time.Duration {
	if p.Timeout <= 0 {
		return consts.PrimaryProbeTimeout
	}
	return p.Timeout
}

func (p *HTTPProber) robotsTimeout() time.Duration {
	if p.RobotsTimeout <= 0 {
		return consts.RobotsProbeTimeout
	}
	return p.RobotsTimeout
}

func (p *HTTPProber) userAgent() string {
	if p.UserAgent == "" {
		return consts.BrowserUserAgent
	}
	return p.UserAgent
}

func (p *HTTPProber) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}
