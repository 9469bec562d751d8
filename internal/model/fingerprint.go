package model

// DeviceClass is the coarse device category derived from the user agent.
type DeviceClass string

const (
	DeviceDesktop DeviceClass = "Desktop"
	DevicePhone   DeviceClass = "Phone"
	DeviceTablet  DeviceClass = "Tablet"
	DeviceUnknown DeviceClass = "Unknown"
)

// Known reports whether the class carries comparable information.
func (c DeviceClass) Known() bool {
	return c == DeviceDesktop || c == DevicePhone || c == DeviceTablet
}

// DeviceFingerprint holds client and network attributes captured at the
// request boundary. It is always passed explicitly; nothing here is derived
// from ambient request state inside the services.
type DeviceFingerprint struct {
	IPAddress       string
	UserAgent       string
	Browser         string
	BrowserVersion  string
	Platform        string
	PlatformVersion string
	IsDesktop       bool
	IsPhone         bool
	IsTablet        bool
}

// Class collapses the device booleans into a single category.
func (f DeviceFingerprint) Class() DeviceClass {
	switch {
	case f.IsDesktop:
		return DeviceDesktop
	case f.IsPhone:
		return DevicePhone
	case f.IsTablet:
		return DeviceTablet
	default:
		return DeviceUnknown
	}
}
