package request

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/ad-asset-client/pkg/config"
)

// Header names sent with every signed request.
const (
	HeaderAccept     = "Accept"
	HeaderClient     = "X-Chartboost-Client"
	HeaderAPIVersion = "X-Chartboost-API"
	HeaderAppID      = "X-Chartboost-App"
	HeaderSignature  = "X-Chartboost-Signature"
	HeaderTest       = "X-Chartboost-Test"
	HeaderDSPDemoApp = "X-Chartboost-DspDemoApp"

	ContentTypeJSON = "application/json"
)

// Call describes one backend endpoint invocation.
type Call struct {
	// Method defaults to POST.
	Method string
	// Path is the request URI, e.g. "/webview/v2/interstitial/get".
	Path string
	// Fields are endpoint specific and appended after the common fields.
	Fields []Field
	// CheckStatus asks the response parser to check the embedded status.
	CheckStatus bool
}

// Envelope is a signed request ready for the transport.
type Envelope struct {
	Method      string
	URI         string
	URL         string
	Header      http.Header
	Body        []byte
	ContentType string
	CheckStatus bool
}

// HTTPRequest converts the envelope into an *http.Request.
func (e *Envelope) HTTPRequest(ctx context.Context) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, e.Method, e.URL, bytes.NewReader(e.Body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for name, values := range e.Header {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	req.Header.Set("Content-Type", e.ContentType)
	return req, nil
}

// Builder assembles and signs requests. It holds no per-request state and
// is safe for concurrent use.
type Builder struct {
	provider BodyFieldsProvider
	platform Platform
	logger   zerolog.Logger
	now      func() time.Time
}

// NewBuilder creates a Builder. Provider and platform may be nil; their
// fields are then left out of the body.
func NewBuilder(provider BodyFieldsProvider, platform Platform, logger zerolog.Logger) *Builder {
	return &Builder{
		provider: provider,
		platform: platform,
		logger:   logger.With().Str("component", "request-builder").Logger(),
		now:      time.Now,
	}
}

// Build produces a signed envelope for call using cfg.
func (b *Builder) Build(cfg config.Snapshot, call Call) (*Envelope, error) {
	method := call.Method
	if method == "" {
		method = http.MethodPost
	}

	body := b.Body(cfg, call.Fields...)
	payload, err := body.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}

	header := make(http.Header)
	header.Set(HeaderAccept, ContentTypeJSON)
	header.Set(HeaderClient, cfg.UserAgent())
	header.Set(HeaderAPIVersion, cfg.APIVersion)
	header.Set(HeaderAppID, cfg.AppID)
	header.Set(HeaderSignature, Sign(method, call.Path, cfg.AppSignature, payload))
	if cfg.Sandbox {
		header.Set(HeaderTest, "1")
	}
	if cfg.DSPDemoApp != "" {
		header.Set(HeaderDSPDemoApp, cfg.DSPDemoApp)
	}

	b.logger.Debug().
		Str("method", method).
		Str("uri", call.Path).
		Int("fields", body.Len()).
		Uint64("config_version", cfg.Version).
		Msg("Request built")

	return &Envelope{
		Method:      method,
		URI:         call.Path,
		URL:         strings.TrimRight(cfg.Endpoint, "/") + call.Path,
		Header:      header,
		Body:        payload,
		ContentType: ContentTypeJSON,
		CheckStatus: call.CheckStatus || cfg.CheckEmbeddedStatus,
	}, nil
}

// Body lays out the request body from one provider snapshot, followed by extra.
func (b *Builder) Body(cfg config.Snapshot, extra ...Field) Body {
	var fields BodyFields
	if b.provider != nil {
		fields = b.provider.BodyFields()
	}

	var body Body

	if m := fields.Mediation; m != nil {
		body.Add("mediation", m.Name)
		body.Add("mediation_version", m.LibraryVersion)
		body.Add("adapter_version", m.AdapterVersion)
	}

	if id := fields.Identity; id != nil {
		body.Add("identity", id.Identifiers)
		if id.TrackingStatus != TrackingUnknown {
			body.Add("limit_ad_tracking", id.TrackingStatus == TrackingLimited)
		}
		body.Add("appsetid", id.AppSetID)
		body.Add("appsetidscope", id.AppSetScope)
	} else {
		b.logger.Error().Msg("Identity snapshot missing, request carries no identifiers")
	}

	body.Add("consent", consentDocument(fields.Privacy.Consents))
	if fields.Privacy.TCFString != "" {
		body.Add("privacy", fields.Privacy.TCFString)
	}
	if fields.Privacy.GPPString != "" {
		body.Add("gpp", fields.Privacy.GPPString)
		body.Add("gpp_sid", fields.Privacy.GPPSectionIDs)
	}

	clock := fields.ClockMillis
	if clock == 0 {
		clock = b.now().UnixMilli()
	}
	body.Add("timestamp", clock/1000)

	d := fields.Device
	body.Add("model", d.Model)
	body.Add("make", d.Make)
	body.Add("device_type", d.DeviceType)
	body.Add("actual_device_type", d.ActualDeviceType)
	body.Add("device_family", d.DeviceFamily)
	if b.platform != nil {
		body.Add("os", strings.TrimSpace(b.platform.Name()+" "+b.platform.OSVersion()))
	}
	body.Add("country", d.Country)
	body.Add("language", d.Language)
	body.Add("timezone", d.Timezone)
	body.Add("user_agent", d.UserAgent)
	body.Add("w", d.Width)
	body.Add("h", d.Height)
	body.Add("dw", d.DisplayWidth)
	body.Add("dh", d.DisplayHeight)
	body.Add("dpi", d.DPI)
	body.Add("scale", d.Scale)
	body.Add("is_portrait", d.IsPortrait)
	body.Add("retina_device", d.Retina)
	body.Add("rooted_device", d.Rooted)

	a := fields.App
	body.Add("bundle_id", a.BundleID)
	body.Add("bundle", a.BundleVersion)
	body.Add("framework", a.Framework)
	body.Add("framework_version", a.FrameworkVersion)
	if a.CustomID != "" {
		body.Add("custom_id", a.CustomID)
	}

	s := fields.Session
	body.Add("session_id", s.SessionID)
	body.Add("session", s.Count)
	body.Add("reachability", s.Reachability)
	body.Add("mobile_network", s.MobileNetwork)

	body.Add("carrier", fields.Carrier)
	body.Add("app", cfg.AppID)
	body.Add("sdk", cfg.SDKVersion)

	for _, f := range extra {
		body.Add(f.Key, f.Value)
	}
	return body
}

// consentDocument copies the per-standard consents into an object that
// always encodes, even when empty.
func consentDocument(consents map[string]string) map[string]string {
	doc := make(map[string]string, len(consents))
	for standard, value := range consents {
		doc[standard] = value
	}
	return doc
}
