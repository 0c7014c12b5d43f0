package cmd

import (
	"github.com/0xERR0R/canarynet/helpertest"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Validate command", func() {
	var tmpDir *helpertest.TmpFolder
	BeforeEach(func() {
		tmpDir = helpertest.NewTmpFolder("config")
		DeferCleanup(tmpDir.Clean)
	})
	When("Validate is called with not existing configuration file", func() {
		It("should terminate with error", func() {
			c := NewRootCommand()
			c.SetArgs([]string{"validate", "--config", "/notexisting/path.yaml"})

			Expect(c.Execute()).Should(HaveOccurred())
		})
	})

	When("Validate is called with existing valid configuration file", func() {
		It("should terminate without error", func() {
			cfgFile := tmpDir.CreateStringFile("config.yaml",
				"dns:",
				"  zones:",
				"    - name: .",
				"      serviceRef: root-ns",
				"  canary: status.lab.",
				"services:",
				"  - name: root-ns",
				"grid:",
				"  endpoints:",
				"    - http://localhost:4444")

			c := NewRootCommand()
			c.SetArgs([]string{"validate", "--config", cfgFile.Path})

			Expect(c.Execute()).Should(Succeed())
		})
	})

	When("Validate is called with existing invalid configuration file", func() {
		It("should terminate with error", func() {
			cfgFile := tmpDir.CreateStringFile("config.yaml",
				"dns:",
				"  zones:",
				"    - 1.broken file")

			c := NewRootCommand()
			c.SetArgs([]string{"validate", "--config", cfgFile.Path})

			Expect(c.Execute()).Should(HaveOccurred())
		})
	})

	When("Validate is called with an incomplete configuration file", func() {
		It("should report the missing sections", func() {
			cfgFile := tmpDir.CreateStringFile("config.yaml",
				"dns:",
				"  canary: status.lab.")

			c := NewRootCommand()
			c.SetArgs([]string{"validate", "--config", cfgFile.Path})

			err := c.Execute()
			Expect(err).Should(HaveOccurred())
			Expect(err.Error()).Should(ContainSubstring("at least one zone is required"))
		})
	})
})
