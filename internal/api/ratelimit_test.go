package api

import (
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("RateLimiter", func() {
	var (
		rl  *RateLimiter
		now time.Time
	)

	BeforeEach(func() {
		now = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		rl = NewRateLimiter(3, time.Minute)
		rl.now = func() time.Time { return now }
	})

	It("allows maxRate requests per window", func() {
		for i := 0; i < 3; i++ {
			Expect(rl.Allow("10.0.0.1")).To(BeTrue())
		}
		Expect(rl.Allow("10.0.0.1")).To(BeFalse())
		Expect(rl.Allow("10.0.0.2")).To(BeTrue())
	})

	It("resets after the window", func() {
		for i := 0; i < 3; i++ {
			rl.Allow("10.0.0.1")
		}
		Expect(rl.RetryAfter("10.0.0.1")).To(Equal(61))

		now = now.Add(20 * time.Second)
		Expect(rl.RetryAfter("10.0.0.1")).To(Equal(41))

		now = now.Add(time.Minute)
		Expect(rl.Allow("10.0.0.1")).To(BeTrue())
	})

	It("evicts stale buckets", func() {
		rl.Allow("10.0.0.1")
		now = now.Add(3 * time.Minute)
		rl.cleanup()
		Expect(rl.buckets).To(BeEmpty())
		Expect(rl.RetryAfter("10.0.0.1")).To(BeZero())
	})

	It("never limits when maxRate is zero", func() {
		open := NewRateLimiter(0, time.Minute)
		for i := 0; i < 100; i++ {
			Expect(open.Allow("10.0.0.1")).To(BeTrue())
		}
	})

	DescribeTable("clientIP",
		func(remote, xff, want string) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = remote
			if xff != "" {
				r.Header.Set("X-Forwarded-For", xff)
			}
			Expect(clientIP(r)).To(Equal(want))
		},
		Entry("host and port", "192.0.2.1:1234", "", "192.0.2.1"),
		Entry("IPv6", "[2001:db8::1]:80", "", "2001:db8::1"),
		Entry("no port", "192.0.2.9", "", "192.0.2.9"),
		Entry("forwarded chain", "10.0.0.1:1", "203.0.113.5, 10.0.0.1", "203.0.113.5"),
	)
})
