package cache

import (
	"errors"
	"testing"
	"time"
)

func TestPolicy_DefaultPolicy(t *testing.T) {
	p := DefaultPolicy()

	if p.VolatileTTL != 5*time.Minute {
		t.Errorf("VolatileTTL = %v, want 5m", p.VolatileTTL)
	}
	if len(p.Regimes) != 0 {
		t.Errorf("Regimes = %v, want empty", p.Regimes)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestPolicy_Classify(t *testing.T) {
	p := Policy{
		VolatileTTL: time.Minute,
		Regimes: map[string]Regime{
			"draft_results":     RegimePermanent,
			"Standings.History": RegimePermanent,
			"standings":         RegimeVolatile,
		},
	}

	tests := []struct {
		category string
		want     time.Duration
	}{
		{"draft_results", Permanent},
		{"standings.history", Permanent},
		{" STANDINGS.HISTORY ", Permanent},
		{"standings", time.Minute},
		{"never_configured", time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			if got := p.Classify(tt.category); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.category, got, tt.want)
			}
			// Classification is a pure function of the category.
			if again := p.Classify(tt.category); again != p.Classify(tt.category) {
				t.Errorf("Classify(%q) not stable", tt.category)
			}
		})
	}
}

func TestPolicy_Validate(t *testing.T) {
	tests := []struct {
		name  string
		p     Policy
		field string
	}{
		{"zero ttl", Policy{VolatileTTL: 0}, "volatile_ttl"},
		{"negative ttl", Policy{VolatileTTL: -time.Second}, "volatile_ttl"},
		{"empty category", Policy{VolatileTTL: time.Minute, Regimes: map[string]Regime{" ": RegimePermanent}}, "regimes"},
		{"bad regime", Policy{VolatileTTL: time.Minute, Regimes: map[string]Regime{"x": Regime(7)}}, "regimes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Validate() = %v, want *ConfigError", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.field)
			}
		})
	}
}

func TestParseRegime(t *testing.T) {
	tests := []struct {
		in      string
		want    Regime
		wantErr bool
	}{
		{"volatile", RegimeVolatile, false},
		{"Permanent", RegimePermanent, false},
		{" permanent ", RegimePermanent, false},
		{"forever", RegimeVolatile, true},
	}

	for _, tt := range tests {
		got, err := ParseRegime(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseRegime(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseRegime(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRegime_String(t *testing.T) {
	if RegimeVolatile.String() != "volatile" || RegimePermanent.String() != "permanent" {
		t.Error("unexpected regime names")
	}
	if Regime(9).String() != "unknown" {
		t.Error("unknown regime should stringify as unknown")
	}
}
