package metrics

import (
	"context"
	"io"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
)

var _ = Describe("Server", func() {
	var logger *logrus.Logger

	BeforeEach(func() {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	})

	Describe("NewServer", func() {
		It("builds a server bound to the given port", func() {
			server := NewServer("18080", logger)
			Expect(server).ToNot(BeNil())
			Expect(server.server.Addr).To(Equal(":18080"))
		})
	})

	Describe("lifecycle", func() {
		It("starts and stops cleanly", func() {
			server := NewServer("18081", logger)
			server.StartAsync()
			time.Sleep(100 * time.Millisecond)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			Expect(server.Stop(ctx)).To(Succeed())
		})
	})

	Describe("/metrics endpoint", func() {
		It("serves Prometheus exposition format", func() {
			server := NewServer("18082", logger)
			server.StartAsync()
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = server.Stop(ctx)
			}()
			time.Sleep(200 * time.Millisecond)

			resp, err := http.Get("http://localhost:18082/metrics")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(ContainSubstring("# HELP"))
		})
	})

	Describe("/health endpoint", func() {
		It("returns OK", func() {
			server := NewServer("18083", logger)
			server.StartAsync()
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = server.Stop(ctx)
			}()
			time.Sleep(200 * time.Millisecond)

			resp, err := http.Get("http://localhost:18083/health")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(Equal("OK"))
		})
	})
})
