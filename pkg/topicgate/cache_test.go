package topicgate

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("verdictCache", func() {
	var (
		cache *verdictCache
		now   time.Time
	)

	BeforeEach(func() {
		now = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		cache = newVerdictCache(2, time.Minute)
		cache.now = func() time.Time { return now }
	})

	It("expires entries after the TTL", func() {
		cache.set("a", true)
		allow, ok := cache.get("a")
		Expect(ok).To(BeTrue())
		Expect(allow).To(BeTrue())

		now = now.Add(2 * time.Minute)
		_, ok = cache.get("a")
		Expect(ok).To(BeFalse())
	})

	It("evicts the oldest entry when full", func() {
		cache.set("a", true)
		now = now.Add(time.Second)
		cache.set("b", false)
		now = now.Add(time.Second)
		cache.set("c", true)

		Expect(cache.len()).To(Equal(2))
		_, ok := cache.get("a")
		Expect(ok).To(BeFalse())
		_, ok = cache.get("c")
		Expect(ok).To(BeTrue())
	})
})
