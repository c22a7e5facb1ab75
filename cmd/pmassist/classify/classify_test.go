package classifycmder

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/pmassist/cmd/pmassist/bootstrap"
)

var _ = Describe("Classify Command", func() {
	var (
		configPath string
		stdout     *bytes.Buffer
	)

	BeforeEach(func() {
		configPath = filepath.Join(GinkgoT().TempDir(), "pmassist.toml")
		// No API key is configured; the heuristic policy must not need one
		Expect(os.WriteFile(configPath, []byte(`
[gemini]
api_key_env = "PMASSIST_CLASSIFY_TEST_UNSET"
`), 0o600)).To(Succeed())
		stdout = &bytes.Buffer{}
	})

	execute := func(args ...string) error {
		root := &cobra.Command{Use: "pmassist", SilenceUsage: true, SilenceErrors: true}
		bootstrap.AddFlags(root)
		root.AddCommand(NewClassifyCmd())
		root.SetOut(stdout)
		root.SetErr(&bytes.Buffer{})
		root.SetArgs(append([]string{"--config", configPath, "classify"}, args...))
		return root.Execute()
	}

	DescribeTable("prints the heuristic verdict and rule",
		func(args []string, want string) {
			Expect(execute(args...)).To(Succeed())
			Expect(stdout.String()).To(Equal(want))
		},
		Entry("domain keyword", []string{"How", "should", "I", "prioritize", "my", "roadmap?"}, "on-topic (rule: domain_keyword)\n"),
		Entry("greeting", []string{"hello"}, "off-topic (rule: denylist_exact)\n"),
		Entry("follow-up", []string{"--history", "make it shorter"}, "on-topic (rule: history_lenient)\n"),
	)

	It("needs an API key for the model policy", func() {
		Expect(os.WriteFile(configPath, []byte(`
[gemini]
api_key_env = "PMASSIST_CLASSIFY_TEST_UNSET"

[gate]
policy = "model"
`), 0o600)).To(Succeed())

		Expect(execute("roadmap")).To(MatchError(ContainSubstring("API key")))
	})
})
