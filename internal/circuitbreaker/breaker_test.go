package circuitbreaker_test

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/weather-gateway/internal/circuitbreaker"
)

func TestCircuitBreaker(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "CircuitBreaker Suite")
}

func settings(threshold int, reset, halfOpen time.Duration) circuitbreaker.Settings {
	return circuitbreaker.Settings{
		FailureThreshold: threshold,
		ResetTimeout:     reset,
		HalfOpenTimeout:  halfOpen,
	}
}

var _ = Describe("CircuitBreaker", func() {
	var cb *circuitbreaker.CircuitBreaker

	Describe("NewCircuitBreaker", func() {
		It("should create a circuit breaker in closed state", func() {
			cb = circuitbreaker.NewCircuitBreaker(settings(5, 30*time.Second, 5*time.Second))
			Expect(cb).NotTo(BeNil())
			Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
		})
	})

	Describe("State transitions", func() {
		BeforeEach(func() {
			cb = circuitbreaker.NewCircuitBreaker(settings(3, 100*time.Millisecond, time.Second))
		})

		Context("when in CLOSED state", func() {
			It("should allow requests", func() {
				Expect(cb.Allow()).To(BeTrue())
			})

			It("should remain closed after failures below threshold", func() {
				cb.RecordFailure()
				cb.RecordFailure()
				Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
				Expect(cb.Allow()).To(BeTrue())
			})

			It("should open exactly on the threshold-th consecutive failure", func() {
				cb.RecordFailure()
				cb.RecordFailure()
				Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
				cb.RecordFailure()
				Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))
			})
		})

		Context("when in OPEN state", func() {
			BeforeEach(func() {
				cb.RecordFailure()
				cb.RecordFailure()
				cb.RecordFailure()
				Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))
			})

			It("should block requests", func() {
				Expect(cb.Allow()).To(BeFalse())
			})

			It("should remain OPEN before reset timeout expires", func() {
				time.Sleep(50 * time.Millisecond)
				Expect(cb.Allow()).To(BeFalse())
				Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))
			})

			It("should transition to HALF-OPEN after reset timeout", func() {
				time.Sleep(150 * time.Millisecond)
				Expect(cb.Allow()).To(BeTrue())
				Expect(cb.State()).To(Equal(circuitbreaker.StateHalfOpen))
			})
		})

		Context("when in HALF-OPEN state", func() {
			BeforeEach(func() {
				cb.RecordFailure()
				cb.RecordFailure()
				cb.RecordFailure()
				time.Sleep(150 * time.Millisecond)
				cb.Allow() // transitions to HALF-OPEN
				Expect(cb.State()).To(Equal(circuitbreaker.StateHalfOpen))
			})

			It("should admit requests like CLOSED", func() {
				Expect(cb.Allow()).To(BeTrue())
			})

			It("should transition to CLOSED on success with failures reset", func() {
				cb.RecordSuccess()
				Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
				Expect(cb.Failures()).To(BeZero())
			})

			It("should reopen with a reset failure counter on failure", func() {
				cb.RecordFailure()
				Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))
				Expect(cb.Failures()).To(BeZero())
				Expect(cb.Allow()).To(BeFalse())
			})

			It("should close once the trial window elapses without an outcome", func() {
				cb = circuitbreaker.NewCircuitBreaker(settings(3, 50*time.Millisecond, 50*time.Millisecond))
				cb.RecordFailure()
				cb.RecordFailure()
				cb.RecordFailure()
				time.Sleep(60 * time.Millisecond)
				Expect(cb.Allow()).To(BeTrue()) // HALF-OPEN now
				time.Sleep(60 * time.Millisecond)
				Expect(cb.Allow()).To(BeTrue())
				Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
			})
		})
	})

	Describe("RecordSuccess", func() {
		BeforeEach(func() {
			cb = circuitbreaker.NewCircuitBreaker(settings(3, 100*time.Millisecond, time.Second))
		})

		It("should reset failure count", func() {
			cb.RecordFailure()
			cb.RecordFailure()
			cb.RecordSuccess()
			// Should not open after one more failure
			cb.RecordFailure()
			Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
		})

		It("should close the circuit from any state", func() {
			cb.RecordFailure()
			cb.RecordFailure()
			cb.RecordFailure()
			Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))

			time.Sleep(150 * time.Millisecond)
			cb.Allow()

			cb.RecordSuccess()
			Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
		})
	})

	Describe("State.String", func() {
		It("should return correct string representation", func() {
			Expect(circuitbreaker.StateClosed.String()).To(Equal("CLOSED"))
			Expect(circuitbreaker.StateOpen.String()).To(Equal("OPEN"))
			Expect(circuitbreaker.StateHalfOpen.String()).To(Equal("HALF-OPEN"))
		})
	})
})
