// Package request assembles signed requests for the ad backend.
//
// A Builder reads one BodyFields snapshot from its provider, lays the body
// out as an ordered JSON object, and signs it together with the method,
// URI and app secret:
//
//	signature = hex(SHA-1(method + " " + uri + "\n" + secret + "\n" + body))
//
// The digest must stay SHA-1 for the backend to accept requests.
package request

// TrackingStatus is the advertising tracking state reported by the device.
type TrackingStatus int

const (
	// TrackingUnknown means the status could not be determined.
	TrackingUnknown TrackingStatus = iota
	// TrackingAllowed means the user allows ad tracking.
	TrackingAllowed
	// TrackingLimited means the user limited ad tracking.
	TrackingLimited
)

// DeviceInfo describes the device.
type DeviceInfo struct {
	Model            string
	Make             string
	DeviceType       string
	ActualDeviceType string
	DeviceFamily     string
	Country          string
	Language         string
	Timezone         string
	UserAgent        string
	Width            int
	Height           int
	DisplayWidth     int
	DisplayHeight    int
	DPI              int
	Scale            float64
	IsPortrait       bool
	Retina           bool
	Rooted           bool
}

// AppInfo describes the host application.
type AppInfo struct {
	BundleID         string
	BundleVersion    string
	Framework        string
	FrameworkVersion string
	CustomID         string
}

// SessionInfo describes the current session and connectivity.
type SessionInfo struct {
	SessionID     string
	Count         int
	Reachability  int
	MobileNetwork string
}

// CarrierInfo describes the mobile carrier.
type CarrierInfo struct {
	Name       string `json:"carrier-name"`
	MCC        string `json:"mobile-country-code"`
	MNC        string `json:"mobile-network-code"`
	ISOCountry string `json:"iso-country-code"`
	PhoneType  int    `json:"phone-type"`
}

// IdentityInfo carries advertising identifiers.
type IdentityInfo struct {
	Identifiers    string
	TrackingStatus TrackingStatus
	AppSetID       string
	AppSetScope    int
}

// PrivacyInfo carries consent signals.
type PrivacyInfo struct {
	// Consents maps a privacy standard (e.g. "gdpr", "us_privacy") to its value.
	Consents      map[string]string
	TCFString     string
	GPPString     string
	GPPSectionIDs string
}

// MediationInfo identifies the mediation layer that loaded the SDK.
type MediationInfo struct {
	Name           string
	LibraryVersion string
	AdapterVersion string
}

// BodyFields is one snapshot of everything the request body needs.
// Identity and Mediation are nil when unavailable.
type BodyFields struct {
	Device    DeviceInfo
	App       AppInfo
	Session   SessionInfo
	Carrier   CarrierInfo
	Privacy   PrivacyInfo
	Identity  *IdentityInfo
	Mediation *MediationInfo

	// ClockMillis is the device clock in milliseconds. Zero means "now".
	ClockMillis int64
}

// BodyFieldsProvider supplies body snapshots.
type BodyFieldsProvider interface {
	BodyFields() BodyFields
}

// BodyFieldsFunc adapts a function to BodyFieldsProvider.
type BodyFieldsFunc func() BodyFields

// BodyFields implements BodyFieldsProvider.
func (f BodyFieldsFunc) BodyFields() BodyFields {
	return f()
}

// Platform answers operating system queries.
type Platform interface {
	Name() string
	OSVersion() string
}

// StaticPlatform is a Platform with fixed answers.
type StaticPlatform struct {
	OSName    string
	OSRelease string
}

// Name implements Platform.
func (p StaticPlatform) Name() string { return p.OSName }

// OSVersion implements Platform.
func (p StaticPlatform) OSVersion() string { return p.OSRelease }
