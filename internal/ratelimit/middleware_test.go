package ratelimit_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/weather-gateway/internal/ratelimit"
)

var _ = Describe("Middleware", func() {
	var (
		limiter *ratelimit.Limiter
		handler http.Handler
	)

	BeforeEach(func() {
		limiter = ratelimit.NewLimiter(ratelimit.NewMemoryStore(), 3, time.Minute, true, discardLogger())
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		handler = limiter.Middleware(true)(next)
	})

	send := func(ip string) *httptest.ResponseRecorder {
		r := httptest.NewRequest("GET", "/api/weatherbycity?city=London", nil)
		r.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)
		return rec
	}

	It("should set rate limit headers on admitted requests", func() {
		rec := send("1.2.3.4")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("X-RateLimit-Limit")).To(Equal("3"))
		Expect(rec.Header().Get("X-RateLimit-Remaining")).To(Equal("2"))

		reset, err := strconv.ParseInt(rec.Header().Get("X-RateLimit-Reset"), 10, 64)
		Expect(err).NotTo(HaveOccurred())
		Expect(reset).To(BeNumerically(">=", time.Now().Unix()))
	})

	It("should reject the request past the ceiling with 429 and Retry-After", func() {
		send("1.2.3.4")
		send("1.2.3.4")
		send("1.2.3.4")
		rec := send("1.2.3.4")

		Expect(rec.Code).To(Equal(http.StatusTooManyRequests))
		Expect(rec.Header().Get("X-RateLimit-Remaining")).To(Equal("0"))
		Expect(rec.Header().Get("X-Error-Category")).To(Equal("RATE_LIMIT_ERROR"))

		retryAfter, err := strconv.Atoi(rec.Header().Get("Retry-After"))
		Expect(err).NotTo(HaveOccurred())
		Expect(retryAfter).To(BeNumerically(">", 0))
		Expect(retryAfter).To(BeNumerically("<=", 60))

		var body map[string]map[string]interface{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(body["error"]["category"]).To(Equal("RATE_LIMIT_ERROR"))
		Expect(body["error"]["requestId"]).NotTo(BeEmpty())
	})

	It("should key admission by client identity", func() {
		send("1.2.3.4")
		send("1.2.3.4")
		send("1.2.3.4")
		Expect(send("1.2.3.4").Code).To(Equal(http.StatusTooManyRequests))
		Expect(send("5.6.7.8").Code).To(Equal(http.StatusOK))
	})
})
