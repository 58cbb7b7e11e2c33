package config

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Config", func() {
	var (
		tempDir    string
		configFile string
	)

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "config-test")
		Expect(err).NotTo(HaveOccurred())
		configFile = filepath.Join(tempDir, "config.yaml")
	})

	AfterEach(func() {
		os.RemoveAll(tempDir)
	})

	Describe("Load", func() {
		Context("when config file exists with valid content", func() {
			BeforeEach(func() {
				validConfig := `
server:
  webhook_port: "8080"
  metrics_port: "9090"

database:
  url: "postgres://localhost/neverdown"

git_host:
  app_token: "ghp_test"
  webhook_shared_secret: "whsec_test"

llm:
  provider: "anthropic"
  api_key: "sk-test"
  model: "claude-3-opus"
  max_tokens: 4096
  temperature: 0.3
  timeout: 120s

sandbox:
  image: "neverdown/sandbox:latest"
  timeout: 300s
  memory_cap_bytes: 536870912
  cpu_cap: 1.0
  pids_cap: 128

clone_root: "/tmp/clones"
sanitized_root: "/tmp/sanitized"
scratch_root: "/tmp/scratch"
`
				Expect(os.WriteFile(configFile, []byte(validConfig), 0o644)).To(Succeed())
			})

			It("loads without error", func() {
				settings, err := Load(configFile)
				Expect(err).NotTo(HaveOccurred())
				Expect(settings.Server.WebhookPort).To(Equal("8080"))
				Expect(settings.LLM.Provider).To(Equal("anthropic"))
			})

			It("fills in sanitizer/reasoner/refinement defaults", func() {
				settings, err := Load(configFile)
				Expect(err).NotTo(HaveOccurred())
				Expect(settings.Sanitizer.EntropyThreshold).To(Equal(4.5))
				Expect(settings.Sanitizer.MinLength).To(Equal(16))
				Expect(settings.Sanitizer.MaxSecretsHalt).To(Equal(100))
				Expect(settings.Reasoner.MaxRetries).To(Equal(3))
				Expect(settings.Reasoner.ConfidenceThreshold).To(Equal(0.7))
				Expect(settings.Refinement.MaxIterations).To(Equal(3))
			})

			It("never stringifies secrets by default", func() {
				settings, err := Load(configFile)
				Expect(err).NotTo(HaveOccurred())
				Expect(settings.LLM.APIKey.String()).To(Equal("***"))
				Expect(settings.LLM.APIKey.Value()).To(Equal("sk-test"))
			})
		})

		Context("when sandbox timeout is explicitly zero", func() {
			BeforeEach(func() {
				cfg := `
server:
  webhook_port: "8080"
  metrics_port: "9090"
database:
  url: "postgres://localhost/neverdown"
git_host:
  app_token: "ghp_test"
  webhook_shared_secret: "whsec_test"
llm:
  provider: "anthropic"
  api_key: "sk-test"
  model: "claude-3-opus"
  max_tokens: 4096
sandbox:
  image: "neverdown/sandbox:latest"
  timeout: 0s
  memory_cap_bytes: 536870912
  cpu_cap: 1.0
  pids_cap: 128
clone_root: "/tmp/clones"
sanitized_root: "/tmp/sanitized"
scratch_root: "/tmp/scratch"
`
				Expect(os.WriteFile(configFile, []byte(cfg), 0o644)).To(Succeed())
			})

			It("is rejected at load time", func() {
				_, err := Load(configFile)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("sandbox.timeout"))
			})
		})

		Context("when no file exists at path", func() {
			It("falls back to defaults and then fails required-field validation", func() {
				_, err := Load(filepath.Join(tempDir, "missing.yaml"))
				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("RepoAllowed", func() {
		It("allows everything when the list is empty", func() {
			s := &Settings{}
			Expect(s.RepoAllowed("https://github.com/acme/widgets")).To(BeTrue())
		})

		It("matches case- and trailing-slash-insensitively", func() {
			s := &Settings{GitHost: GitHostSettings{AllowedRepos: []string{"https://github.com/Acme/Widgets/"}}}
			Expect(s.RepoAllowed("https://github.com/acme/widgets")).To(BeTrue())
			Expect(s.RepoAllowed("https://github.com/acme/other")).To(BeFalse())
		})
	})
})
