package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/talgya/hippo-sim/internal/engine"
	"github.com/talgya/hippo-sim/internal/persistence"
)

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode[T any](rec *httptest.ResponseRecorder) T {
	var v T
	ExpectWithOffset(1, json.Unmarshal(rec.Body.Bytes(), &v)).To(Succeed())
	return v
}

type simulateResponse struct {
	Seed       uint64             `json:"seed"`
	Trajectory []int              `json:"trajectory"`
	Years      []engine.YearState `json:"years"`
	Extinction *engine.YearState  `json:"extinction"`
	Peak       int                `json:"peak"`
}

type capacityResponse struct {
	Seed       uint64    `json:"seed"`
	Capacity   int       `json:"capacity"`
	BatchMeans []float64 `json:"batch_means"`
}

type logisticResponse struct {
	Years []int     `json:"years"`
	Curve []float64 `json:"curve"`
}

var _ = Describe("Server", func() {
	var (
		srv     *Server
		handler http.Handler
	)

	BeforeEach(func() {
		srv = &Server{Params: engine.DefaultParameters()}
		handler = srv.Handler()
	})

	Describe("status", func() {
		It("reports the default parameters", func() {
			rec := get(handler, "/api/v1/status")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Header().Get("Content-Type")).To(Equal("application/json"))

			body := decode[map[string]any](rec)
			Expect(body).To(HaveKeyWithValue("name", "hipposim"))
			Expect(body).To(HaveKeyWithValue("scenarios_enabled", false))
			Expect(body).To(HaveKey("parameters"))
		})

		It("rejects other methods", func() {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/status", nil))
			Expect(rec.Code).To(Equal(http.StatusMethodNotAllowed))
		})
	})

	Describe("simulate", func() {
		It("is reproducible for a fixed seed", func() {
			a := get(handler, "/api/v1/simulate?years=60&seed=7")
			b := get(handler, "/api/v1/simulate?years=60&seed=7")
			Expect(a.Code).To(Equal(http.StatusOK))
			Expect(a.Body.String()).To(Equal(b.Body.String()))

			resp := decode[simulateResponse](a)
			Expect(resp.Seed).To(Equal(uint64(7)))
			Expect(len(resp.Trajectory)).To(BeNumerically("<=", 60))
			Expect(resp.Years).To(HaveLen(len(resp.Trajectory)))
			for _, p := range resp.Trajectory {
				Expect(p).To(BeNumerically(">", 0))
			}
		})

		It("returns an empty trajectory for zero years", func() {
			resp := decode[simulateResponse](get(handler, "/api/v1/simulate?years=0&seed=1"))
			Expect(resp.Trajectory).To(BeEmpty())
			Expect(resp.Extinction).To(BeNil())
		})

		DescribeTable("rejects bad input",
			func(query string, code int) {
				Expect(get(handler, "/api/v1/simulate?"+query).Code).To(Equal(code))
			},
			Entry("non-numeric years", "years=ten", http.StatusBadRequest),
			Entry("negative years", "years=-1", http.StatusBadRequest),
			Entry("too many years", "years=20000", http.StatusBadRequest),
			Entry("bad seed", "seed=-4", http.StatusBadRequest),
			Entry("scenario without catalog", "scenario=default", http.StatusNotFound),
		)

		It("reports extinction separately from the trajectory", func() {
			srv.Params.NaturalDeath = engine.Rate{Mean: 1, Dev: 0}
			srv.Params.Birth = engine.Rate{Mean: 0, Dev: 0}
			handler = srv.Handler()

			resp := decode[simulateResponse](get(handler, "/api/v1/simulate?years=10&seed=3"))
			Expect(resp.Trajectory).To(BeEmpty())
			Expect(resp.Extinction).NotTo(BeNil())
			Expect(resp.Extinction.Year).To(Equal(0))
			Expect(resp.Extinction.Population).To(BeNumerically("<=", 0))
		})
	})

	Describe("capacity", func() {
		It("estimates a positive capacity", func() {
			rec := get(handler, "/api/v1/capacity?num=3&years=10&seed=5")
			Expect(rec.Code).To(Equal(http.StatusOK))
			resp := decode[capacityResponse](rec)
			Expect(resp.Capacity).To(BeNumerically(">", 0))
			Expect(resp.BatchMeans).To(HaveLen(3))
		})

		It("gives the same answer sequentially and in parallel when seeded", func() {
			par := &Server{Params: engine.DefaultParameters(), Workers: 4}
			a := decode[capacityResponse](get(par.Handler(), "/api/v1/capacity?num=4&years=8&seed=9"))
			b := decode[capacityResponse](get(par.Handler(), "/api/v1/capacity?num=4&years=8&seed=9"))
			Expect(a).To(Equal(b))
		})

		DescribeTable("rejects bad input",
			func(query string) {
				Expect(get(handler, "/api/v1/capacity?"+query).Code).To(Equal(http.StatusBadRequest))
			},
			Entry("zero num", "num=0"),
			Entry("negative years", "num=2&years=-3"),
			Entry("num too large", "num=5000"),
			Entry("non-numeric", "num=x"),
		)

		It("is rate limited per client", func() {
			srv.Limiter = NewRateLimiter(2, time.Hour)
			handler = srv.Handler()

			for i := 0; i < 2; i++ {
				Expect(get(handler, "/api/v1/capacity?num=1&years=1&seed=1").Code).To(Equal(http.StatusOK))
			}
			rec := get(handler, "/api/v1/capacity?num=1&years=1&seed=1")
			Expect(rec.Code).To(Equal(http.StatusTooManyRequests))
			Expect(rec.Header().Get("Retry-After")).NotTo(BeEmpty())

			// other endpoints are unaffected
			Expect(get(handler, "/api/v1/simulate?years=1&seed=1").Code).To(Equal(http.StatusOK))
		})
	})

	Describe("logistic", func() {
		It("returns the curve with calendar years", func() {
			rec := get(handler, "/api/v1/logistic?rate=0.05&p0=100&k=1800&years=10")
			Expect(rec.Code).To(Equal(http.StatusOK))

			body := decode[logisticResponse](rec)
			Expect(body.Curve).To(HaveLen(10))
			Expect(body.Curve[0]).To(BeNumerically("~", 100, 1e-9))
			Expect(body.Years[0]).To(Equal(2020))
			Expect(body.Years[9]).To(Equal(2029))
		})

		DescribeTable("rejects bad input",
			func(query string) {
				Expect(get(handler, "/api/v1/logistic?"+query).Code).To(Equal(http.StatusBadRequest))
			},
			Entry("missing K", "rate=0.05&p0=100"),
			Entry("zero P0", "p0=0&k=100"),
			Entry("negative years", "k=100&years=-1"),
			Entry("non-numeric rate", "rate=fast&k=100"),
		)
	})

	Context("with a scenario catalog", func() {
		var db *persistence.DB

		BeforeEach(func() {
			dir, err := os.MkdirTemp("", "hipposim-api")
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(os.RemoveAll, dir)

			db, err = persistence.Open(filepath.Join(dir, "hippos.db"))
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(db.Close)

			Expect(db.SeedDefaults()).To(Succeed())
			crowded := engine.DefaultParameters()
			crowded.InitialPopulation = 900
			Expect(db.SaveScenario("crowded", crowded)).To(Succeed())

			srv.DB = db
			handler = srv.Handler()
		})

		It("lists scenarios by name", func() {
			rec := get(handler, "/api/v1/scenarios")
			Expect(rec.Code).To(Equal(http.StatusOK))
			list := decode[[]persistence.Scenario](rec)
			Expect(list).To(HaveLen(2))
			Expect(list[0].Name).To(Equal("crowded"))
			Expect(list[1].Name).To(Equal(persistence.DefaultScenario))
		})

		It("shows a single scenario", func() {
			rec := get(handler, "/api/v1/scenarios/crowded")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(get(handler, "/api/v1/scenarios/missing").Code).To(Equal(http.StatusNotFound))
		})

		It("simulates a stored scenario", func() {
			resp := decode[simulateResponse](get(handler, "/api/v1/simulate?years=1&seed=2&scenario=crowded"))
			Expect(resp.Years).To(HaveLen(1))
			Expect(resp.Years[0].StartPopulation).To(Equal(900))
		})

		It("returns 404 for an unknown scenario", func() {
			Expect(get(handler, "/api/v1/capacity?num=1&scenario=nope").Code).To(Equal(http.StatusNotFound))
		})
	})
})
