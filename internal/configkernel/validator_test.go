package configkernel

import (
	"context"
	"errors"
	"testing"

	"ccr-hq/gateway/internal/gwconfig"
)

func baseConfig() gwconfig.Config {
	return gwconfig.Config{
		Providers: []gwconfig.Provider{
			{Name: "openai", APIBaseURL: "https://api.openai.com/v1", APIKey: "sk-real-key-0123", Models: []string{"gpt-4o"}},
			{Name: "anthropic", APIBaseURL: "https://api.anthropic.com/v1", APIKey: "sk-ant-real-0123", Models: []string{"claude-3-5-sonnet"}},
		},
		Router: gwconfig.Router{Default: "openai,gpt-4o"},
	}
}

// noNetworkValidator builds a Validator with connectivity probing disabled,
// since the schema/referential/security/performance checks under test here
// never need a live network.
func noNetworkValidator(checker CustomRouterChecker) *Validator {
	v := NewValidator(checker)
	v.httpClient = nil
	return v
}

func TestValidator_ValidConfigHasNoCriticalErrors(t *testing.T) {
	v := noNetworkValidator(nil)
	cfg := baseConfig()

	res := v.Validate(context.Background(), &cfg)

	if !res.IsValid {
		t.Errorf("IsValid = false, want true; errors = %v", res.Errors)
	}
	if res.Score != 100 {
		t.Errorf("Score = %d, want 100 (no findings at all)", res.Score)
	}
}

func TestValidator_MissingProvidersIsCritical(t *testing.T) {
	v := noNetworkValidator(nil)
	cfg := gwconfig.Config{Router: gwconfig.Router{Default: "openai,gpt-4o"}}

	res := v.Validate(context.Background(), &cfg)

	if res.IsValid {
		t.Error("IsValid = true, want false when no providers are configured")
	}
	if len(res.Errors) == 0 {
		t.Fatal("Errors is empty, want at least one critical finding")
	}
	if res.Errors[0].Category != CategorySchema {
		t.Errorf("Errors[0].Category = %q, want %q", res.Errors[0].Category, CategorySchema)
	}
}

func TestValidator_PlaceholderAPIKeyIsCritical(t *testing.T) {
	v := noNetworkValidator(nil)
	cfg := baseConfig()
	cfg.Providers[0].APIKey = "sk-xxx"

	res := v.Validate(context.Background(), &cfg)

	if res.IsValid {
		t.Error("IsValid = true, want false for a placeholder API key")
	}

	found := false
	for _, f := range res.Errors {
		if f.Category == CategorySecurity {
			found = true
		}
	}
	if !found {
		t.Errorf("no security finding among errors: %v", res.Errors)
	}
}

func TestValidator_UnknownRouteTargetProviderIsHigh(t *testing.T) {
	v := noNetworkValidator(nil)
	cfg := baseConfig()
	cfg.Router.Think = "missing-provider,some-model"

	res := v.Validate(context.Background(), &cfg)

	found := false
	for _, f := range res.Errors {
		if f.Category == CategoryReferential && f.Severity == SeverityHigh {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a high-severity referential error, got errors=%v warnings=%v", res.Errors, res.Warnings)
	}
}

func TestValidator_UnknownRouteTargetModelIsWarning(t *testing.T) {
	v := noNetworkValidator(nil)
	cfg := baseConfig()
	cfg.Router.Think = "openai,gpt-3.5-turbo"

	res := v.Validate(context.Background(), &cfg)

	if !res.IsValid {
		t.Errorf("IsValid = false, want true; an unknown model is a warning, not an error: %v", res.Errors)
	}

	found := false
	for _, f := range res.Warnings {
		if f.Category == CategoryReferential {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a referential warning, got warnings=%v", res.Warnings)
	}
}

func TestValidator_CustomRouterCheckerInvokedWhenPathSet(t *testing.T) {
	called := false
	checker := func(path string) error {
		called = true
		if path != "router.so" {
			t.Errorf("checker path = %q, want %q", path, "router.so")
		}
		return errors.New("failed to load symbol Route")
	}

	v := noNetworkValidator(checker)
	cfg := baseConfig()
	cfg.CustomRouterPath = "router.so"

	res := v.Validate(context.Background(), &cfg)

	if !called {
		t.Fatal("custom router checker was never invoked")
	}
	if res.IsValid {
		t.Error("IsValid = true, want false when the custom router fails to load")
	}
}

func TestValidator_ActiveGroupMustExist(t *testing.T) {
	v := noNetworkValidator(nil)
	cfg := baseConfig()
	cfg.ActiveGroup = "nope"

	res := v.Validate(context.Background(), &cfg)

	found := false
	for _, f := range res.Errors {
		if f.Field == "activeGroup" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an activeGroup referential error, got %v", res.Errors)
	}
}
