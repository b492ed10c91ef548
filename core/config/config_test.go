package config_test

import (
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/librenews/skywire/core/config"
)

var _ = Describe("Load", func() {
	var saved map[string]*string

	setEnv := func(key, value string) {
		if _, tracked := saved[key]; !tracked {
			if old, ok := os.LookupEnv(key); ok {
				saved[key] = &old
			} else {
				saved[key] = nil
			}
		}
		Expect(os.Setenv(key, value)).To(Succeed())
	}

	BeforeEach(func() {
		saved = map[string]*string{}
		// Skip .env loading so the host environment cannot leak in.
		setEnv("SKYWIRE_ENV", "test")
	})

	AfterEach(func() {
		for key, old := range saved {
			if old == nil {
				_ = os.Unsetenv(key)
			} else {
				_ = os.Setenv(key, *old)
			}
		}
	})

	It("applies the stream defaults", func() {
		cfg, err := config.Load()
		Expect(err).NotTo(HaveOccurred())

		Expect(cfg.Stream.Key).To(Equal("skywire:matches"))
		Expect(cfg.Stream.Group).To(Equal("track_app"))
		Expect(cfg.Stream.Consumer).To(HavePrefix("worker_"))
		Expect(cfg.Stream.BatchSize).To(Equal(int64(50)))
		Expect(cfg.Stream.Block).To(Equal(2 * time.Second))
		Expect(cfg.Stream.BacklogEvery).To(Equal(10))
		Expect(cfg.Stream.BacklogThreshold).To(Equal(int64(100)))
		Expect(cfg.Stream.ConnBackoff).To(Equal(5 * time.Second))
		Expect(cfg.Stream.ErrorBackoff).To(Equal(time.Second))
		Expect(cfg.Webhook.SecretHeader).To(Equal("X-Skywire-Secret"))
		Expect(cfg.Mail.Enabled()).To(BeFalse())
		Expect(cfg.Mail.Timeout).To(Equal(10 * time.Second))
	})

	It("reads millisecond durations", func() {
		setEnv("STREAM_BLOCK_MS", "250")
		setEnv("RECLAIM_INTERVAL_MS", "0")

		cfg, err := config.Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Stream.Block).To(Equal(250 * time.Millisecond))
		Expect(cfg.Stream.ReclaimInterval).To(BeZero())
	})

	It("rejects a non-positive batch size", func() {
		setEnv("STREAM_BATCH_SIZE", "0")

		_, err := config.Load()
		Expect(err).To(MatchError(ContainSubstring("STREAM_BATCH_SIZE")))
	})

	It("reads an explicit snowflake node and bounds it", func() {
		setEnv("SNOWFLAKE_NODE_ID", "")
		cfg, err := config.Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.NodeID).To(Equal(int64(-1)))

		setEnv("SNOWFLAKE_NODE_ID", "12")
		cfg, err = config.Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.NodeID).To(Equal(int64(12)))

		setEnv("SNOWFLAKE_NODE_ID", "1024")
		_, err = config.Load()
		Expect(err).To(MatchError(ContainSubstring("SNOWFLAKE_NODE_ID")))
	})

	It("rejects a non-positive mail timeout", func() {
		setEnv("MAIL_TIMEOUT_MS", "0")

		_, err := config.Load()
		Expect(err).To(MatchError(ContainSubstring("MAIL_TIMEOUT_MS")))
	})

	It("rejects an empty consumer group", func() {
		setEnv("CONSUMER_GROUP", "")

		_, err := config.Load()
		Expect(err).To(HaveOccurred())
	})

	It("derives a per-process consumer name", func() {
		Expect(config.DefaultConsumerName()).To(MatchRegexp(`^worker_.+_\d+$`))
	})
})
