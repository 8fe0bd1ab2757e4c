package configkernel

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"ccr-hq/gateway/internal/gwconfig"
)

// Result is the outcome of validating a candidate configuration
// (spec.md §4.3).
type Result struct {
	IsValid  bool
	Errors   []Finding
	Warnings []Finding
	Score    int
}

// ByCategory groups Result's findings by the check that produced them, an
// additive enrichment over the flat spec.md shape (SPEC_FULL.md §11).
func (r Result) ByCategory() map[Category][]Finding {
	out := make(map[Category][]Finding)
	for _, f := range append(append([]Finding{}, r.Errors...), r.Warnings...) {
		out[f.Category] = append(out[f.Category], f)
	}
	return out
}

// placeholderAPIKeys are exact literals the security check rejects outright.
var placeholderAPIKeys = map[string]bool{
	"sk-xxx":         true,
	"your-api-key":   true,
	"your-secret-key": true,
}

// CustomRouterChecker validates that a custom router file loads and exports
// a callable of the expected shape. Injected so that configkernel does not
// import internal/customrouter; the Dynamic Router passes customrouter.Check.
type CustomRouterChecker func(path string) error

// Validator runs the schema/referential/security/performance/connectivity/
// custom-router checks of spec.md §4.3 over a candidate Config.
type Validator struct {
	httpClient      *http.Client
	checkCustomRouter CustomRouterChecker
	connectivityTimeout time.Duration
}

// NewValidator creates a Validator. checkCustomRouter may be nil, in which
// case the custom-router check is skipped (no CUSTOM_ROUTER_PATH configured
// is the common case).
func NewValidator(checkCustomRouter CustomRouterChecker) *Validator {
	return &Validator{
		httpClient:          &http.Client{Timeout: 5 * time.Second},
		checkCustomRouter:   checkCustomRouter,
		connectivityTimeout: gwconfig.DefaultConnectivityTimeout,
	}
}

// DisableConnectivityChecks turns off the outbound HEAD probes, leaving the
// other five check categories in place. Useful for callers that validate
// candidates far more often than a live network round trip is worth, and
// for tests that shouldn't depend on DNS/network availability.
func (v *Validator) DisableConnectivityChecks() {
	v.httpClient = nil
}

// Validate runs every check category and aggregates a Result. Connectivity
// probes run concurrently and best-effort: a probe failure downgrades to a
// warning, never a hard error (spec.md §4.3).
func (v *Validator) Validate(ctx context.Context, cfg *gwconfig.Config) Result {
	var findings []Finding

	findings = append(findings, v.checkSchema(cfg)...)
	findings = append(findings, v.checkReferential(cfg)...)
	findings = append(findings, v.checkSecurity(cfg)...)
	findings = append(findings, v.checkPerformance(cfg)...)
	findings = append(findings, v.checkConnectivity(ctx, cfg)...)
	findings = append(findings, v.checkCustomRouterFile(cfg)...)

	return buildResult(findings)
}

func buildResult(findings []Finding) Result {
	res := Result{Score: 100}

	for _, f := range findings {
		if f.Severity == SeverityWarning {
			res.Warnings = append(res.Warnings, f)
		} else {
			res.Errors = append(res.Errors, f)
		}
		res.Score -= f.Severity.Penalty()
		if f.Severity == SeverityCritical {
			res.IsValid = false
		}
	}

	if res.Score < 0 {
		res.Score = 0
	}

	hasCritical := false
	for _, f := range res.Errors {
		if f.Severity == SeverityCritical {
			hasCritical = true
			break
		}
	}
	res.IsValid = !hasCritical

	return res
}

func (v *Validator) checkSchema(cfg *gwconfig.Config) []Finding {
	var findings []Finding

	if len(cfg.Providers) == 0 {
		findings = append(findings, Finding{
			Category: CategorySchema, Severity: SeverityCritical,
			Field: "Providers", Message: "at least one provider is required",
		})
	}

	for i, p := range cfg.Providers {
		prefix := providerField(i, p.Name)
		if p.Name == "" {
			findings = append(findings, Finding{
				Category: CategorySchema, Severity: SeverityCritical,
				Field: prefix + ".name", Message: "provider name is required",
			})
		}
		if p.APIBaseURL == "" {
			findings = append(findings, Finding{
				Category: CategorySchema, Severity: SeverityCritical,
				Field: prefix + ".api_base_url", Message: "api_base_url is required",
			})
		} else if u, err := url.Parse(p.APIBaseURL); err != nil || !u.IsAbs() {
			findings = append(findings, Finding{
				Category: CategorySchema, Severity: SeverityCritical,
				Field: prefix + ".api_base_url", Message: "api_base_url must be an absolute URL",
			})
		}
		if p.APIKey == "" {
			findings = append(findings, Finding{
				Category: CategorySchema, Severity: SeverityCritical,
				Field: prefix + ".api_key", Message: "api_key is required",
			})
		}
		if len(p.Models) == 0 {
			findings = append(findings, Finding{
				Category: CategorySchema, Severity: SeverityCritical,
				Field: prefix + ".models", Message: "at least one model is required",
			})
		}
	}

	if cfg.Router.Default == "" {
		findings = append(findings, Finding{
			Category: CategorySchema, Severity: SeverityCritical,
			Field: "Router.default", Message: "Router.default is required",
		})
	}

	if cfg.Router.LongContextThreshold < 0 {
		findings = append(findings, Finding{
			Category: CategorySchema, Severity: SeverityHigh,
			Field: "Router.longContextThreshold", Message: "must be a non-negative integer",
		})
	}

	return findings
}

func (v *Validator) checkReferential(cfg *gwconfig.Config) []Finding {
	var findings []Finding

	providerModels := make(map[string]map[string]bool, len(cfg.Providers))
	for _, p := range cfg.Providers {
		models := make(map[string]bool, len(p.Models))
		for _, m := range p.Models {
			models[m] = true
		}
		providerModels[p.Name] = models
	}

	checkRoute := func(field, target string) {
		if target == "" {
			return
		}
		provider, model, ok := splitTarget(target)
		if !ok {
			findings = append(findings, Finding{
				Category: CategoryReferential, Severity: SeverityHigh,
				Field: field, Message: "route must be \"provider,model\"",
			})
			return
		}
		models, known := providerModels[provider]
		if !known {
			findings = append(findings, Finding{
				Category: CategoryReferential, Severity: SeverityHigh,
				Field: field, Message: "references unknown provider " + provider,
			})
			return
		}
		if !models[model] {
			findings = append(findings, Finding{
				Category: CategoryReferential, Severity: SeverityWarning,
				Field: field, Message: "references unknown model " + model + " for provider " + provider,
			})
		}
	}

	checkRoute("Router.default", cfg.Router.Default)
	checkRoute("Router.background", cfg.Router.Background)
	checkRoute("Router.think", cfg.Router.Think)
	checkRoute("Router.longContext", cfg.Router.LongContext)
	checkRoute("Router.webSearch", cfg.Router.WebSearch)

	for id, group := range cfg.RouterGroups {
		prefix := "RouterGroups." + id
		checkRoute(prefix+".default", group.Default)
		checkRoute(prefix+".background", group.Background)
		checkRoute(prefix+".think", group.Think)
		checkRoute(prefix+".longContext", group.LongContext)
		checkRoute(prefix+".webSearch", group.WebSearch)
	}

	if cfg.ActiveGroup != "" {
		if _, ok := cfg.RouterGroups[cfg.ActiveGroup]; !ok {
			findings = append(findings, Finding{
				Category: CategoryReferential, Severity: SeverityHigh,
				Field: "activeGroup", Message: "activeGroup references unknown group " + cfg.ActiveGroup,
			})
		}
	}

	return findings
}

func (v *Validator) checkSecurity(cfg *gwconfig.Config) []Finding {
	var findings []Finding

	for i, p := range cfg.Providers {
		prefix := providerField(i, p.Name)
		if placeholderAPIKeys[p.APIKey] {
			findings = append(findings, Finding{
				Category: CategorySecurity, Severity: SeverityCritical,
				Field: prefix + ".api_key", Message: "placeholder API key must be replaced",
			})
		} else if len(p.APIKey) > 0 && len(p.APIKey) < 10 {
			findings = append(findings, Finding{
				Category: CategorySecurity, Severity: SeverityWarning,
				Field: prefix + ".api_key", Message: "API key looks unusually short",
			})
		}
	}

	if cfg.Host == "0.0.0.0" {
		findings = append(findings, Finding{
			Category: CategorySecurity, Severity: SeverityWarning,
			Field: "HOST", Message: "binding to 0.0.0.0 exposes the control API beyond localhost",
		})
	}

	return findings
}

func (v *Validator) checkPerformance(cfg *gwconfig.Config) []Finding {
	var findings []Finding

	if cfg.APITimeoutMS != 0 && (cfg.APITimeoutMS < 1000 || cfg.APITimeoutMS > 600000) {
		findings = append(findings, Finding{
			Category: CategoryPerformance, Severity: SeverityWarning,
			Field: "API_TIMEOUT_MS", Message: "timeout outside the recommended 1s-600s range",
		})
	}

	if len(cfg.Providers) < 2 {
		findings = append(findings, Finding{
			Category: CategoryPerformance, Severity: SeverityWarning,
			Field: "Providers", Message: "fewer than two providers configured; no failover possible",
		})
	}

	return findings
}

// checkConnectivity probes each provider's host concurrently with an
// aggregate timeout, mirroring the Provider Health Manager's probe (§4.8)
// but scored into the validation result instead of provider status.
func (v *Validator) checkConnectivity(ctx context.Context, cfg *gwconfig.Config) []Finding {
	if v.httpClient == nil || len(cfg.Providers) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, v.connectivityTimeout)
	defer cancel()

	results := make([]Finding, len(cfg.Providers))
	var wg sync.WaitGroup
	for i, p := range cfg.Providers {
		wg.Add(1)
		go func(i int, p gwconfig.Provider) {
			defer wg.Done()
			results[i] = v.probeOne(ctx, i, p)
		}(i, p)
	}
	wg.Wait()

	var findings []Finding
	for _, f := range results {
		if f.Field != "" {
			findings = append(findings, f)
		}
	}
	return findings
}

func (v *Validator) probeOne(ctx context.Context, i int, p gwconfig.Provider) Finding {
	if p.APIBaseURL == "" {
		return Finding{}
	}

	target := p.APIBaseURL
	if u, err := url.Parse(p.APIBaseURL); err == nil && u.Scheme != "" && u.Host != "" {
		target = u.Scheme + "://" + u.Host
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return Finding{}
	}
	req.Header.Set("User-Agent", "ccr-gateway-validator")

	start := time.Now()
	resp, err := v.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return Finding{
			Category: CategoryConnectivity, Severity: SeverityWarning,
			Field: providerField(i, p.Name) + ".api_base_url", Message: "host unreachable: " + err.Error(),
		}
	}
	resp.Body.Close()

	if elapsed > 5*time.Second {
		return Finding{
			Category: CategoryConnectivity, Severity: SeverityWarning,
			Field: providerField(i, p.Name) + ".api_base_url", Message: "host reachable but slow to respond",
		}
	}

	return Finding{}
}

func (v *Validator) checkCustomRouterFile(cfg *gwconfig.Config) []Finding {
	if cfg.CustomRouterPath == "" || v.checkCustomRouter == nil {
		return nil
	}

	if err := v.checkCustomRouter(cfg.CustomRouterPath); err != nil {
		return []Finding{{
			Category: CategoryCustomRouter, Severity: SeverityCritical,
			Field: "CUSTOM_ROUTER_PATH", Message: err.Error(),
		}}
	}
	return nil
}

func providerField(index int, name string) string {
	if name != "" {
		return "Providers[" + name + "]"
	}
	return "Providers[#" + strconv.Itoa(index) + "]"
}

// splitTarget splits a "provider,model" routing target.
func splitTarget(target string) (provider, model string, ok bool) {
	for i := 0; i < len(target); i++ {
		if target[i] == ',' {
			return target[:i], target[i+1:], target[:i] != "" && target[i+1:] != ""
		}
	}
	return "", "", false
}
