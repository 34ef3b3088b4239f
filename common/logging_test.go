package common_test

import (
	"os"
	"path/filepath"
	"procurement/common"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
)

var _ = Describe("Logging", func() {
	AfterEach(func() {
		_, _ = common.SetupLogging(common.LogOptions{})
	})

	Describe("SetupLogging", func() {
		It("should apply level and formatter", func() {
			_, err := common.SetupLogging(common.LogOptions{Level: "debug", Format: "json"})
			Expect(err).To(BeNil())
			Expect(logrus.GetLevel()).To(Equal(logrus.DebugLevel))
			Expect(logrus.StandardLogger().Formatter).To(BeAssignableToTypeOf(&logrus.JSONFormatter{}))
		})

		It("should reject unknown levels", func() {
			_, err := common.SetupLogging(common.LogOptions{Level: "loud"})
			Expect(err).ToNot(BeNil())
		})

		It("should write into the rotated file when configured", func() {
			dir, err := os.MkdirTemp("", "logging")
			Expect(err).To(BeNil())
			defer os.RemoveAll(dir)

			file := filepath.Join(dir, "service.log")
			closer, err := common.SetupLogging(common.LogOptions{File: file, Format: "json", MaxSizeMB: 1})
			Expect(err).To(BeNil())
			logrus.Info("hello rotated file")
			Expect(closer.Close()).To(BeNil())

			content, err := os.ReadFile(file)
			Expect(err).To(BeNil())
			Expect(string(content)).To(ContainSubstring(`"msg":"hello rotated file"`))
			Expect(string(content)).To(ContainSubstring(`"serviceName":"procurement"`))
		})
	})
})
