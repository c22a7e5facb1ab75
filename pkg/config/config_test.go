package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/pmassist/pkg/config"
	"github.com/papercomputeco/pmassist/pkg/topicgate"
)

func writeFile(path, content string) {
	Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())
}

var _ = Describe("Load", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("returns valid defaults without a file", func() {
		cfg, err := config.Load("")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Gate.Policy).To(Equal("heuristic"))
		Expect(cfg.Gate.FailOpen).To(BeTrue())
		Expect(cfg.Dispatch.HistoryWindow).To(Equal(6))
		Expect(cfg.Gemini.Model).To(Equal("gemini-2.0-flash"))
	})

	It("overlays the file on the defaults", func() {
		path := filepath.Join(dir, "pmassist.toml")
		writeFile(path, `
[gate]
policy = "model"
fail_open = false

[dispatch]
history_window = 8
default_delay = "20ms"

[dispatch.table_profile]
max_output_tokens = 6000

[storage]
backend = "memory"
`)

		cfg, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Gate.Policy).To(Equal("model"))
		Expect(cfg.Gate.FailOpen).To(BeFalse())
		Expect(cfg.Dispatch.HistoryWindow).To(Equal(8))
		Expect(time.Duration(cfg.Dispatch.DefaultDelay)).To(Equal(20 * time.Millisecond))
		Expect(cfg.Dispatch.TableProfile.MaxOutputTokens).To(Equal(6000))
		Expect(cfg.Dispatch.TableProfile.TopK).To(Equal(5))
		Expect(cfg.Storage.Backend).To(Equal("memory"))

		dc := cfg.DispatchConfig()
		Expect(dc.HistoryWindow).To(Equal(8))
		Expect(dc.TableProfile.Name).To(Equal("table"))
		Expect(dc.SafetySettings).To(HaveLen(4))

		gc := cfg.GateConfig()
		Expect(gc.Policy).To(Equal(topicgate.PolicyModel))
		Expect(gc.CacheTTL).To(Equal(10 * time.Minute))
	})

	It("rejects unknown keys", func() {
		path := filepath.Join(dir, "pmassist.toml")
		writeFile(path, "[gate]\npolicie = \"model\"\n")

		_, err := config.Load(path)
		Expect(err).To(MatchError(ContainSubstring("gate.policie")))
	})

	It("rejects invalid values", func() {
		path := filepath.Join(dir, "pmassist.toml")
		writeFile(path, `
[gate]
policy = "both"

[dispatch.table_profile]
max_output_tokens = 10

[storage]
backend = "postgres"
`)

		_, err := config.Load(path)
		Expect(err).To(MatchError(ContainSubstring("gate.policy")))
		Expect(err).To(MatchError(ContainSubstring("more output tokens")))
		Expect(err).To(MatchError(ContainSubstring("storage.backend")))
	})

	It("rejects an unusable remote endpoint", func() {
		path := filepath.Join(dir, "pmassist.toml")
		writeFile(path, `
[gemini]
base_url = "generativelanguage.googleapis.com/v1beta/models"
model = " "
`)

		_, err := config.Load(path)
		Expect(err).To(MatchError(ContainSubstring("gemini.base_url")))
		Expect(err).To(MatchError(ContainSubstring("gemini.model")))

		writeFile(path, "[gemini]\nbase_url = \"\"\n")
		_, err = config.Load(path)
		Expect(err).To(MatchError(ContainSubstring("gemini.base_url")))
	})

	It("rejects malformed durations", func() {
		path := filepath.Join(dir, "pmassist.toml")
		writeFile(path, "[dispatch]\ntable_delay = \"soon\"\n")

		_, err := config.Load(path)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("APIKey", func() {
	env := func(values map[string]string) func(string) string {
		return func(k string) string { return values[k] }
	}

	It("reads the default variable", func() {
		key, err := config.Default().APIKey(env(map[string]string{"PMASSIST_GEMINI_API_KEY": "abc"}), zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
		Expect(key).To(Equal("abc"))
	})

	It("reads a renamed variable", func() {
		cfg := config.Default()
		cfg.Gemini.APIKeyEnv = "GEMINI_KEY"
		key, err := cfg.APIKey(env(map[string]string{"GEMINI_KEY": "xyz"}), zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
		Expect(key).To(Equal("xyz"))
	})

	It("fails loudly for missing or placeholder keys", func() {
		_, err := config.Default().APIKey(env(nil), zap.NewNop())
		Expect(errors.Is(err, config.ErrMissingAPIKey)).To(BeTrue())

		_, err = config.Default().APIKey(env(map[string]string{"PMASSIST_GEMINI_API_KEY": config.PlaceholderAPIKey}), zap.NewNop())
		Expect(errors.Is(err, config.ErrMissingAPIKey)).To(BeTrue())
	})

	It("uses the fallback key only when explicitly allowed", func() {
		cfg := config.Default()
		cfg.Gemini.FallbackAPIKey = "shared"

		_, err := cfg.APIKey(env(nil), zap.NewNop())
		Expect(errors.Is(err, config.ErrMissingAPIKey)).To(BeTrue())

		cfg.Gemini.AllowFallbackKey = true
		key, err := cfg.APIKey(env(nil), zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
		Expect(key).To(Equal("shared"))
	})
})

var _ = Describe("Watch", func() {
	It("reloads valid edits and skips invalid ones", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "pmassist.toml")
		writeFile(path, "[dispatch]\nhistory_window = 6\n")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var mu sync.Mutex
		var windows []int
		done := make(chan error, 1)
		go func() {
			done <- config.Watch(ctx, path, zap.NewNop(), func(cfg *config.Config) {
				mu.Lock()
				defer mu.Unlock()
				windows = append(windows, cfg.Dispatch.HistoryWindow)
			})
		}()

		seen := func() []int {
			mu.Lock()
			defer mu.Unlock()
			return append([]int(nil), windows...)
		}

		// Give the watcher time to register before writing.
		time.Sleep(100 * time.Millisecond)
		writeFile(path, "[dispatch]\nhistory_window = 0\n")
		Consistently(seen, 400*time.Millisecond).Should(BeEmpty())

		writeFile(path, "[dispatch]\nhistory_window = 4\n")
		Eventually(seen, 2*time.Second).Should(Equal([]int{4}))

		cancel()
		Eventually(done).Should(Receive(BeNil()))
	})
})
