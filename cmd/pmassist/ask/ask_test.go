package askcmder

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/pmassist/cmd/pmassist/bootstrap"
	"github.com/papercomputeco/pmassist/pkg/dispatch"
	"github.com/papercomputeco/pmassist/pkg/llm"
)

const keyEnv = "PMASSIST_ASK_TEST_KEY"

var _ = Describe("Ask Command", func() {
	var (
		ctx        context.Context
		dir        string
		configPath string
		dbPath     string
		remote     *httptest.Server
		calls      atomic.Int32
		failWith   atomic.Int32
		stdout     *bytes.Buffer
		stderr     *bytes.Buffer
	)

	BeforeEach(func() {
		ctx = context.Background()
		dir = GinkgoT().TempDir()
		dbPath = filepath.Join(dir, "pmassist.db")
		calls.Store(0)
		failWith.Store(0)

		remote = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			if code := failWith.Load(); code != 0 {
				w.WriteHeader(int(code))
				return
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"Start with outcomes."}]},"finishReason":"STOP"}]}`)
		}))
		DeferCleanup(remote.Close)

		configPath = filepath.Join(dir, "pmassist.toml")
		Expect(os.WriteFile(configPath, []byte(fmt.Sprintf(`
[gemini]
base_url = %q
api_key_env = %q

[dispatch]
rejection_delay = "0s"
default_delay = "0s"
table_delay = "0s"

[storage]
path = %q
`, remote.URL, keyEnv, dbPath)), 0o600)).To(Succeed())

		GinkgoT().Setenv(keyEnv, "test-key")
		stdout = &bytes.Buffer{}
		stderr = &bytes.Buffer{}
	})

	execute := func(args ...string) error {
		root := &cobra.Command{Use: "pmassist", SilenceUsage: true, SilenceErrors: true}
		bootstrap.AddFlags(root)
		root.AddCommand(NewAskCmd())
		root.SetOut(stdout)
		root.SetErr(stderr)
		root.SetArgs(append([]string{"--config", configPath, "ask"}, args...))
		return root.ExecuteContext(ctx)
	}

	It("streams the reply when stdout is not a terminal", func() {
		Expect(execute("How", "do", "I", "build", "a", "roadmap?")).To(Succeed())
		Expect(stdout.String()).To(Equal("Start with outcomes.\n"))
		Expect(calls.Load()).To(Equal(int32(1)))
		Expect(stderr.String()).To(BeEmpty())
	})

	It("refuses off-topic questions without a remote call", func() {
		Expect(execute("hello")).To(Succeed())
		Expect(stdout.String()).To(Equal(dispatch.RefusalMessage + "\n"))
		Expect(calls.Load()).To(BeZero())
	})

	It("stores the exchange with --save and continues it with --conversation", func() {
		Expect(execute("--save", "--category", "strategy", "How do I build a roadmap?")).To(Succeed())
		Expect(stderr.String()).To(HavePrefix("conversation: "))
		id := stderr.String()[len("conversation: ") : stderr.Len()-1]

		stderr.Reset()
		Expect(execute("--conversation", id, "make it shorter")).To(Succeed())

		store, err := bootstrap.OpenSQLite(dbPath, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
		defer store.Close()

		conv, err := store.Get(ctx, id)
		Expect(err).NotTo(HaveOccurred())
		Expect(conv.Title).To(Equal("How do I build a roadmap?"))
		Expect(string(conv.Category)).To(Equal("strategy"))

		turns, err := store.Turns(ctx, id)
		Expect(err).NotTo(HaveOccurred())
		Expect(turns).To(HaveLen(4))
		Expect(turns[2]).To(Equal(llm.Turn{Role: llm.RoleUser, Text: "make it shorter"}))
	})

	It("fails for an unknown conversation", func() {
		err := execute("--conversation", "missing", "make it shorter")
		Expect(err).To(MatchError(ContainSubstring("could not load conversation")))
	})

	It("reports remote failures", func() {
		failWith.Store(http.StatusTooManyRequests)

		err := execute("How do I build a roadmap?")
		Expect(err).To(MatchError(dispatch.MsgRateLimited))
	})

	It("rejects an unknown category", func() {
		Expect(execute("--save", "--category", "cooking", "roadmap")).NotTo(Succeed())
	})
})
