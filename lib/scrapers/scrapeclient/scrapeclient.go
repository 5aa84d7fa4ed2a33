package scrapeclient

import (
	"net/http/cookiejar"
	"net/url"
	"time"

	"riftlens-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
)

// pinned rather than rotated: an empty user-agent makes the cloudflare
// bypass transport fetch a fresh one over the network, which must never
// happen inside a profile request
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

type Options struct {
	BaseUrl string
	Timeout time.Duration
	// TracerName labels the spans of every request this client makes.
	TracerName string
}

// New builds a resty client hardened for scraping stats sites: cookie jar,
// cloudflare bypass transport, pinned browser user-agent, domain-locked
// redirects, bounded timeout.
func New(opts Options) (*resty.Client, error) {
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", userAgent)
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))

	if opts.Timeout <= 0 {
		opts.Timeout = time.Second * 30
	}
	client.SetTimeout(opts.Timeout)

	telemetry.InstrumentResty(client, opts.TracerName)

	return client, nil
}
