package cache

// Namespace identifies one of the fixed asset directories under the cache root.
// The set is closed: only the constants below are valid.
type Namespace uint8

const (
	namespaceInvalid Namespace = iota

	// NamespaceStyleSheet holds CSS files referenced by HTML templates.
	NamespaceStyleSheet
	// NamespaceHTML holds rendered HTML creatives.
	NamespaceHTML
	// NamespaceImage holds image assets.
	NamespaceImage
	// NamespaceScript holds JavaScript assets.
	NamespaceScript
	// NamespaceTemplateMetadata holds template files. Older clients stored
	// one subdirectory per template here; the janitor sweeps those.
	NamespaceTemplateMetadata
	// NamespaceVideo holds video assets.
	NamespaceVideo
	// NamespacePrecache holds fully prefetched ad payloads.
	NamespacePrecache
	// NamespacePrecacheQueue holds payloads waiting to be prefetched.
	NamespacePrecacheQueue
	// NamespaceSession holds session bookkeeping files.
	NamespaceSession
	// NamespaceTrack holds pending tracking events.
	NamespaceTrack
	// NamespaceRequestLog holds persisted outgoing requests.
	NamespaceRequestLog

	namespaceEnd
)

var namespaceDirs = [...]string{
	NamespaceStyleSheet:       "css",
	NamespaceHTML:             "html",
	NamespaceImage:            "images",
	NamespaceScript:           "js",
	NamespaceTemplateMetadata: "templates",
	NamespaceVideo:            "videos",
	NamespacePrecache:         "precache",
	NamespacePrecacheQueue:    "precache_queue",
	NamespaceSession:          "session",
	NamespaceTrack:            "track",
	NamespaceRequestLog:       "requests",
}

var namespaceNames = [...]string{
	NamespaceStyleSheet:       "StyleSheet",
	NamespaceHTML:             "HTML",
	NamespaceImage:            "Image",
	NamespaceScript:           "Script",
	NamespaceTemplateMetadata: "TemplateMetadata",
	NamespaceVideo:            "Video",
	NamespacePrecache:         "Precache",
	NamespacePrecacheQueue:    "PrecacheQueue",
	NamespaceSession:          "Session",
	NamespaceTrack:            "Track",
	NamespaceRequestLog:       "RequestLog",
}

// Namespaces returns every valid namespace in declaration order.
func Namespaces() []Namespace {
	all := make([]Namespace, 0, int(namespaceEnd)-1)
	for ns := namespaceInvalid + 1; ns < namespaceEnd; ns++ {
		all = append(all, ns)
	}
	return all
}

// Valid reports whether ns is one of the declared namespaces.
func (ns Namespace) Valid() bool {
	return ns > namespaceInvalid && ns < namespaceEnd
}

// Dir returns the directory name of the namespace, or "" if ns is invalid.
func (ns Namespace) Dir() string {
	if !ns.Valid() {
		return ""
	}
	return namespaceDirs[ns]
}

// String implements fmt.Stringer.
func (ns Namespace) String() string {
	if !ns.Valid() {
		return "Invalid"
	}
	return namespaceNames[ns]
}

// ParseNamespace maps a directory name (e.g. "images") back to its Namespace.
func ParseNamespace(dir string) (Namespace, bool) {
	for ns := namespaceInvalid + 1; ns < namespaceEnd; ns++ {
		if namespaceDirs[ns] == dir {
			return ns, true
		}
	}
	return namespaceInvalid, false
}
