package circuitbreaker_test

import (
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/weather-gateway/internal/circuitbreaker"
)

var _ = Describe("Registry", func() {
	var registry *circuitbreaker.Registry

	BeforeEach(func() {
		registry = circuitbreaker.NewRegistry(
			settings(5, 30*time.Second, 5*time.Second),
			nil,
		)
	})

	Describe("Get", func() {
		It("should create a new breaker for an unknown service", func() {
			cb := registry.Get("weather")
			Expect(cb).NotTo(BeNil())
			Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
		})

		It("should return the same breaker for the same service", func() {
			cb1 := registry.Get("weather")
			cb2 := registry.Get("weather")
			Expect(cb1).To(BeIdenticalTo(cb2))
		})

		It("should return different breakers for different services", func() {
			cb1 := registry.Get("weather")
			cb2 := registry.Get("forecast")
			Expect(cb1).NotTo(BeIdenticalTo(cb2))
		})

		It("should apply default settings to services without overrides", func() {
			registry = circuitbreaker.NewRegistry(settings(2, 100*time.Millisecond, time.Second), nil)
			cb := registry.Get("forecast")

			cb.RecordFailure()
			cb.RecordFailure()
			Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))
		})

		It("should apply per-service overrides", func() {
			registry = circuitbreaker.NewRegistry(
				settings(5, 30*time.Second, 5*time.Second),
				map[string]circuitbreaker.Settings{
					"weather": settings(3, 100*time.Millisecond, time.Second),
				},
			)

			weather := registry.Get("weather")
			weather.RecordFailure()
			weather.RecordFailure()
			weather.RecordFailure()
			Expect(weather.State()).To(Equal(circuitbreaker.StateOpen))

			forecast := registry.Get("forecast")
			forecast.RecordFailure()
			forecast.RecordFailure()
			forecast.RecordFailure()
			Expect(forecast.State()).To(Equal(circuitbreaker.StateClosed))
		})
	})

	Describe("Concurrent access", func() {
		It("should handle concurrent Get calls safely", func() {
			const goroutines = 100

			var wg sync.WaitGroup
			wg.Add(goroutines)

			for i := 0; i < goroutines; i++ {
				go func() {
					defer wg.Done()
					cb := registry.Get("weather")
					Expect(cb).NotTo(BeNil())
				}()
			}

			wg.Wait()

			stats := registry.Stats()
			Expect(stats).To(HaveLen(1))
		})

		It("should handle concurrent outcome reports on the same breaker", func() {
			const goroutines = 50

			var wg sync.WaitGroup
			wg.Add(goroutines * 2)

			cb := registry.Get("weather")

			for i := 0; i < goroutines; i++ {
				go func() {
					defer wg.Done()
					cb.RecordFailure()
				}()
			}

			for i := 0; i < goroutines; i++ {
				go func() {
					defer wg.Done()
					cb.RecordSuccess()
				}()
			}

			wg.Wait()

			state := cb.State()
			Expect(state).To(BeElementOf(
				circuitbreaker.StateClosed,
				circuitbreaker.StateOpen,
				circuitbreaker.StateHalfOpen,
			))
		})
	})

	Describe("Reset", func() {
		It("should clear all breakers", func() {
			registry.Get("weather")
			registry.Get("forecast")
			registry.Get("geocode")

			Expect(registry.Stats()).To(HaveLen(3))

			registry.Reset()

			Expect(registry.Stats()).To(HaveLen(0))
		})
	})

	Describe("Stats", func() {
		It("should return state of all breakers", func() {
			cb1 := registry.Get("weather")
			cb2 := registry.Get("forecast")

			for i := 0; i < 5; i++ {
				cb2.RecordFailure()
			}

			stats := registry.Stats()
			Expect(stats).To(HaveLen(2))
			Expect(stats["weather"]).To(Equal(circuitbreaker.StateClosed))
			Expect(stats["forecast"]).To(Equal(circuitbreaker.StateOpen))

			Expect(cb1.State()).To(Equal(circuitbreaker.StateClosed))
		})
	})
})
