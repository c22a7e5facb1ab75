package dispatch

import (
	"errors"
	"fmt"
	"time"

	"github.com/papercomputeco/pmassist/pkg/llm"
)

// Profile is a named set of decoding parameters.
type Profile struct {
	Name            string
	Temperature     float64
	TopK            int
	TopP            float64
	MaxOutputTokens int
}

// GenerationConfig renders the profile for the remote request.
func (p Profile) GenerationConfig() llm.GenerationConfig {
	return llm.GenerationConfig{
		Temperature:     p.Temperature,
		TopK:            p.TopK,
		TopP:            p.TopP,
		MaxOutputTokens: p.MaxOutputTokens,
		CandidateCount:  1,
	}
}

// Config tunes the dispatcher.
type Config struct {
	// HistoryWindow is how many of the most recent history turns are sent.
	HistoryWindow int

	DefaultProfile Profile
	TableProfile   Profile

	// Replay pacing per step.
	RejectionDelay time.Duration
	DefaultDelay   time.Duration
	TableDelay     time.Duration

	SafetySettings []llm.SafetySetting
}

// DefaultHistoryWindow is the number of history turns sent by default.
const DefaultHistoryWindow = 6

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		HistoryWindow: DefaultHistoryWindow,
		DefaultProfile: Profile{
			Name:            "default",
			Temperature:     0.1,
			TopK:            10,
			TopP:            0.7,
			MaxOutputTokens: 1000,
		},
		TableProfile: Profile{
			Name:            "table",
			Temperature:     0.05,
			TopK:            5,
			TopP:            0.6,
			MaxOutputTokens: 5000,
		},
		RejectionDelay: 25 * time.Millisecond,
		DefaultDelay:   15 * time.Millisecond,
		TableDelay:     10 * time.Millisecond,
		SafetySettings: llm.DefaultSafetySettings(),
	}
}

// Validate checks the window and the profiles. Table output must get a larger token
// ceiling and settings at least as deterministic as free-form output.
func (c Config) Validate() error {
	var errs []error

	if c.HistoryWindow < 1 {
		errs = append(errs, fmt.Errorf("history window must be at least 1, got %d", c.HistoryWindow))
	}
	for _, p := range []Profile{c.DefaultProfile, c.TableProfile} {
		if p.MaxOutputTokens < 1 {
			errs = append(errs, fmt.Errorf("profile %q: max output tokens must be positive", p.Name))
		}
		if p.Temperature < 0 || p.TopP < 0 || p.TopP > 1 || p.TopK < 0 {
			errs = append(errs, fmt.Errorf("profile %q: sampling parameters out of range", p.Name))
		}
	}

	t, d := c.TableProfile, c.DefaultProfile
	if t.MaxOutputTokens <= d.MaxOutputTokens {
		errs = append(errs, errors.New("table profile must allow more output tokens than the default profile"))
	}
	if t.Temperature > d.Temperature || t.TopK > d.TopK || t.TopP > d.TopP {
		errs = append(errs, errors.New("table profile must not be less deterministic than the default profile"))
	}
	if c.RejectionDelay < 0 || c.DefaultDelay < 0 || c.TableDelay < 0 {
		errs = append(errs, errors.New("replay delays must not be negative"))
	}

	return errors.Join(errs...)
}

func (c Config) profile(table bool) Profile {
	if table {
		return c.TableProfile
	}
	return c.DefaultProfile
}

func (c Config) delay(table bool) time.Duration {
	if table {
		return c.TableDelay
	}
	return c.DefaultDelay
}
