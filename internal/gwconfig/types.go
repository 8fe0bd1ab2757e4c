// Package gwconfig defines the configuration document for the router gateway:
// providers, the base router, named router groups, and the operational knobs
// an operator edits on disk. Unrecognized top-level and nested fields are
// preserved verbatim across load/validate/write cycles (see raw.go).
package gwconfig

// Config is the root configuration document.
type Config struct {
	Providers          []Provider           `json:"Providers"`
	Router             Router               `json:"Router"`
	ActiveGroup        string               `json:"activeGroup,omitempty"`
	RouterGroups       map[string]RouterGroup `json:"RouterGroups,omitempty"`
	CustomRouterPath   string               `json:"CUSTOM_ROUTER_PATH,omitempty"`
	APIKey             string               `json:"APIKEY,omitempty"`
	Host               string               `json:"HOST,omitempty"`
	Port               int                  `json:"PORT,omitempty"`
	ProxyURL           string               `json:"PROXY_URL,omitempty"`
	APITimeoutMS       int                  `json:"API_TIMEOUT_MS,omitempty"`
	Log                bool                 `json:"LOG,omitempty"`
	NonInteractiveMode bool                 `json:"NON_INTERACTIVE_MODE,omitempty"`
}

// Provider is a single LLM provider entry.
type Provider struct {
	Name        string   `json:"name"`
	APIBaseURL  string   `json:"api_base_url"`
	APIKey      string   `json:"api_key"`
	Models      []string `json:"models"`
	Transformer any      `json:"transformer,omitempty"`
}

// Router is the base routing table: one route per request shape.
type Router struct {
	Default              string `json:"default"`
	Background           string `json:"background,omitempty"`
	Think                string `json:"think,omitempty"`
	LongContext          string `json:"longContext,omitempty"`
	WebSearch            string `json:"webSearch,omitempty"`
	LongContextThreshold int    `json:"longContextThreshold,omitempty"`
}

// DefaultLongContextThreshold is applied when a Router omits the field.
const DefaultLongContextThreshold = 60000

// EffectiveLongContextThreshold returns the configured threshold, or the
// spec default when unset (zero value).
func (r Router) EffectiveLongContextThreshold() int {
	if r.LongContextThreshold <= 0 {
		return DefaultLongContextThreshold
	}
	return r.LongContextThreshold
}

// RouterGroup is a named routing profile: the same shape as Router, with a
// display name and optional description.
type RouterGroup struct {
	Name                 string `json:"name"`
	Description          string `json:"description,omitempty"`
	Default              string `json:"default"`
	Background           string `json:"background,omitempty"`
	Think                string `json:"think,omitempty"`
	LongContext          string `json:"longContext,omitempty"`
	WebSearch            string `json:"webSearch,omitempty"`
	LongContextThreshold int    `json:"longContextThreshold,omitempty"`
}
