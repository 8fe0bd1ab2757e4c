// Package routing implements the Routing Decision Engine: given an inbound
// chat request and the currently active routing configuration, it selects
// a "provider,model" target (spec.md §4.7).
package routing

import (
	"fmt"
	"strings"

	"ccr-hq/gateway/internal/chatrequest"
	"ccr-hq/gateway/internal/customrouter"
	"ccr-hq/gateway/internal/gwconfig"
)

// MatchedRule names which priority rule produced a Decision, for logging
// and the Control API's decision-trace surface.
type MatchedRule string

const (
	RuleCustomRouter     MatchedRule = "custom_router"
	RuleSubagentOverride MatchedRule = "subagent_override"
	RuleWebSearch        MatchedRule = "web_search"
	RuleLongContext      MatchedRule = "long_context"
	RuleThink            MatchedRule = "think"
	RuleBackground       MatchedRule = "background"
	RuleDefault          MatchedRule = "default"
)

// Decision is the outcome of routing a single request.
type Decision struct {
	Target     string
	Rule       MatchedRule
	TokenCount int
	Degraded   bool
}

// HealthStatus reports whether a "provider,model" target currently
// resolves to a healthy provider, per the Provider Health Manager's table
// (spec.md §4.8). A nil HealthStatus is treated as "always healthy",
// useful for engines constructed before health tracking starts.
type HealthStatus interface {
	IsHealthy(target string) bool
}

// RoutingError covers a request the engine could not resolve to a target,
// surfaced over the control API per spec.md §7's error taxonomy.
type RoutingError struct {
	Reason string
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("routing: %s", e.Reason)
}

// ErrNoTarget is returned when no rule matches and no default route is
// configured — a condition the Validator's schema check should have
// already rejected, but the engine guards against it directly too.
var ErrNoTarget = &RoutingError{Reason: "no matching rule and no default route configured"}

// Engine selects (provider, model) targets for inbound requests.
type Engine struct {
	tokenizer       Tokenizer
	customRouter    *customrouter.Loader
	health          HealthStatus
	backgroundMarker string
}

// NewEngine builds an Engine. customRouter and health may be nil: a nil
// customRouter is treated as "no custom router configured"; a nil health
// disables degraded-flagging.
func NewEngine(tok Tokenizer, customRouter *customrouter.Loader, health HealthStatus, backgroundMarker string) *Engine {
	return &Engine{
		tokenizer:        tok,
		customRouter:     customRouter,
		health:           health,
		backgroundMarker: backgroundMarker,
	}
}

// Route selects a target for req given the merged Router view and the
// active config (the latter is what a custom router function receives).
func (e *Engine) Route(req chatrequest.Request, router gwconfig.Router, cfg gwconfig.Config) (Decision, error) {
	if e.customRouter != nil {
		if target, matched, loaded := e.customRouter.Route(req, cfg); loaded && matched && target != "" {
			return e.finish(target, RuleCustomRouter, 0), nil
		}
	}

	tokenCount, err := e.countTokens(req)
	if err != nil {
		return Decision{}, fmt.Errorf("routing: count tokens: %w", err)
	}

	if target, ok := req.SubagentOverrideTarget(); ok {
		return e.finish(target, RuleSubagentOverride, tokenCount), nil
	}

	if req.WantsWebSearch() && router.WebSearch != "" {
		return e.finish(router.WebSearch, RuleWebSearch, tokenCount), nil
	}

	threshold := router.EffectiveLongContextThreshold()
	if tokenCount >= threshold && router.LongContext != "" {
		return e.finish(router.LongContext, RuleLongContext, tokenCount), nil
	}

	if req.WantsThinking() && router.Think != "" {
		return e.finish(router.Think, RuleThink, tokenCount), nil
	}

	if req.IsBackgroundModel(e.backgroundMarker) && router.Background != "" {
		return e.finish(router.Background, RuleBackground, tokenCount), nil
	}

	if router.Default == "" {
		return Decision{}, ErrNoTarget
	}
	return e.finish(router.Default, RuleDefault, tokenCount), nil
}

func (e *Engine) finish(target string, rule MatchedRule, tokenCount int) Decision {
	degraded := e.health != nil && !e.health.IsHealthy(target)
	return Decision{Target: target, Rule: rule, TokenCount: tokenCount, Degraded: degraded}
}

// countTokens estimates the input token count from the textual parts of all
// messages, the names of declared tools, and the request's model name
// (spec.md §4.7). Tool parameter schemas are not counted.
func (e *Engine) countTokens(req chatrequest.Request) (int, error) {
	if e.tokenizer == nil {
		return 0, nil
	}

	var parts []string
	for _, m := range req.Messages {
		if text := m.Text(); text != "" {
			parts = append(parts, text)
		}
	}
	for _, t := range req.Tools {
		if t.Name != "" {
			parts = append(parts, t.Name)
		}
	}
	if req.Model != "" {
		parts = append(parts, req.Model)
	}

	if len(parts) == 0 {
		return 0, nil
	}
	return e.tokenizer.CountTokens(parts)
}

// Target splits a "provider,model" routing target, returning ok=false if
// target is malformed.
func Target(target string) (provider, model string, ok bool) {
	idx := strings.IndexByte(target, ',')
	if idx < 0 {
		return "", "", false
	}
	provider, model = target[:idx], target[idx+1:]
	return provider, model, provider != "" && model != ""
}
