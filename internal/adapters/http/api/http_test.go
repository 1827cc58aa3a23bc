package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/uxlens/uxlens/internal/adapters/http/api"
	"github.com/uxlens/uxlens/internal/domain/flow"
	"github.com/uxlens/uxlens/internal/domain/heatmap"
	"github.com/uxlens/uxlens/internal/domain/model"
	"github.com/uxlens/uxlens/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing
type mockDeduper struct {
	seen map[string]bool
}

func (m *mockDeduper) SeenAndRecord(ctx context.Context, id string) bool {
	if m.seen == nil {
		m.seen = make(map[string]bool)
	}
	if m.seen[id] {
		return true
	}
	m.seen[id] = true
	return false
}

func (m *mockDeduper) Unrecord(ctx context.Context, id string) {
	if m.seen != nil {
		delete(m.seen, id)
	}
}

func (m *mockDeduper) Size() int64 {
	return int64(len(m.seen))
}

type mockDependencies struct {
	*mockDeduper

	enqueueSuccess bool
	enqueued       []model.Event
	sessions       []model.Session
	answers        []model.Answer
	gaze           []model.GazeSample
	writeErr       error

	summary    types.Summary
	summaryErr error
	graph      *flow.Graph
	graphErr   error
	raster     *heatmap.Raster
	rasterErr  error
	markers    []types.ClickMarker
	markersErr error
	scale      types.ScaleReport
	scaleErr   error
}

func newMockDependencies() *mockDependencies {
	return &mockDependencies{
		mockDeduper:    &mockDeduper{},
		enqueueSuccess: true,
	}
}

func (m *mockDependencies) Enqueue(ctx context.Context, e model.Event) bool {
	if m.enqueueSuccess {
		m.enqueued = append(m.enqueued, e)
		return true
	}
	return false
}

func (m *mockDependencies) RecordSessions(ctx context.Context, sessions []model.Session) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.sessions = append(m.sessions, sessions...)
	return nil
}

func (m *mockDependencies) RecordAnswers(ctx context.Context, answers []model.Answer) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.answers = append(m.answers, answers...)
	return nil
}

func (m *mockDependencies) RecordGaze(ctx context.Context, samples []model.GazeSample) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.gaze = append(m.gaze, samples...)
	return nil
}

func (m *mockDependencies) BlockSummary(ctx context.Context, runIDs []string, blockID string) (types.Summary, error) {
	return m.summary, m.summaryErr
}

func (m *mockDependencies) BlockFlow(ctx context.Context, runIDs []string, blockID string) (*flow.Graph, error) {
	return m.graph, m.graphErr
}

func (m *mockDependencies) ScreenHeatmap(ctx context.Context, runIDs []string, blockID, screenID string, p api.HeatmapParams) (*heatmap.Raster, error) {
	return m.raster, m.rasterErr
}

func (m *mockDependencies) ScreenClicks(ctx context.Context, runIDs []string, blockID, screenID string, p api.HeatmapParams) ([]types.ClickMarker, error) {
	return m.markers, m.markersErr
}

func (m *mockDependencies) ScaleReport(ctx context.Context, runIDs []string, blockID string) (types.ScaleReport, error) {
	return m.scale, m.scaleErr
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func newTestMux(deps *mockDependencies) *http.ServeMux {
	server := api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"events": 0}})
	mux := http.NewServeMux()
	server.Register(context.Background(), mux)
	return mux
}

func eventBody(ids ...string) string {
	var events []string
	for _, id := range ids {
		events = append(events, fmt.Sprintf(
			`{"event_id":%q,"session_id":"s1","run_id":"r1","block_id":"b1","screen_id":"home","type":"screen_load","ts":"2025-03-01T12:00:00Z"}`, id))
	}
	return `{"events":[` + strings.Join(events, ",") + `]}`
}

func TestServer_Register(t *testing.T) {
	Convey("Given a new API server", t, func() {
		deps := newMockDependencies()
		mux := newTestMux(deps)

		Convey("Then the health endpoint should be accessible", func() {
			req := httptest.NewRequest("GET", "/healthz", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("And the stats endpoint should be accessible", func() {
			req := httptest.NewRequest("GET", "/stats", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusOK)
		})
	})
}

func TestEventsHandler(t *testing.T) {
	Convey("Given the events endpoint", t, func() {
		deps := newMockDependencies()
		mux := newTestMux(deps)

		post := func(body string) *httptest.ResponseRecorder {
			req := httptest.NewRequest("POST", "/events", strings.NewReader(body))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			return w
		}

		Convey("When posting a valid batch", func() {
			w := post(eventBody("e1", "e2"))

			Convey("Then it should be accepted", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(len(deps.enqueued), ShouldEqual, 2)
				So(deps.enqueued[0].Type, ShouldEqual, model.EventScreenLoad)
			})
		})

		Convey("When posting the same batch twice", func() {
			post(eventBody("e1"))
			w := post(eventBody("e1"))

			Convey("Then the second call reports duplicates", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var ack map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &ack), ShouldBeNil)
				So(ack["status"], ShouldEqual, "duplicate")
				So(len(deps.enqueued), ShouldEqual, 1)
			})
		})

		Convey("When posting malformed JSON", func() {
			w := post(`{"events": [`)

			Convey("Then it should answer 400", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When posting an empty batch", func() {
			w := post(`{"events": []}`)

			Convey("Then it should answer 400", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When an event is missing required fields", func() {
			w := post(`{"events":[{"event_id":"e9","type":"click","ts":"2025-03-01T12:00:00Z"}]}`)

			Convey("Then the event is rejected but the batch is acknowledged", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				var ack map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &ack), ShouldBeNil)
				So(ack["rejected"], ShouldEqual, 1)
				So(len(deps.enqueued), ShouldEqual, 0)
			})
		})

		Convey("When the queue pushes back", func() {
			deps.enqueueSuccess = false
			w := post(eventBody("e1"))

			Convey("Then it should answer 429 and roll back the dedupe record", func() {
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
				So(deps.Size(), ShouldEqual, 0)
			})
		})

		Convey("When using the wrong method", func() {
			req := httptest.NewRequest("GET", "/events", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it should answer 404", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestSessionsHandler(t *testing.T) {
	Convey("Given the sessions endpoint", t, func() {
		deps := newMockDependencies()
		mux := newTestMux(deps)

		post := func(body string) *httptest.ResponseRecorder {
			req := httptest.NewRequest("POST", "/sessions", strings.NewReader(body))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			return w
		}

		Convey("When posting a valid session", func() {
			w := post(`{"sessions":[{"session_id":"s1","run_id":"r1","block_id":"b1","started_at":"2025-03-01T12:00:00Z","completed":true}]}`)

			Convey("Then it should be accepted and recorded", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(len(deps.sessions), ShouldEqual, 1)
				So(deps.sessions[0].StoredCompleted, ShouldBeTrue)
				So(deps.sessions[0].StartedAt.IsZero(), ShouldBeFalse)
			})
		})

		Convey("When the session is missing its block", func() {
			w := post(`{"sessions":[{"session_id":"s1"}]}`)

			Convey("Then it should answer 400", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the store write fails", func() {
			deps.writeErr = errors.New("disk full")
			w := post(`{"sessions":[{"session_id":"s1","block_id":"b1"}]}`)

			Convey("Then it should answer 500", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
			})
		})
	})
}

func TestAnswersHandler(t *testing.T) {
	Convey("Given the answers endpoint", t, func() {
		deps := newMockDependencies()
		mux := newTestMux(deps)

		Convey("When posting a valid answer", func() {
			body := `{"answers":[{"answer_id":"a1","session_id":"s1","run_id":"r1","block_id":"b1","value":7,"ts":"2025-03-01T12:00:00Z"}]}`
			req := httptest.NewRequest("POST", "/answers", strings.NewReader(body))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it should be accepted and recorded", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(len(deps.answers), ShouldEqual, 1)
				So(deps.answers[0].Value, ShouldEqual, 7)
			})
		})

		Convey("When posting an answer without an id", func() {
			body := `{"answers":[{"session_id":"s1","block_id":"b1","value":7}]}`
			req := httptest.NewRequest("POST", "/answers", strings.NewReader(body))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it should answer 400", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestGazeHandler(t *testing.T) {
	Convey("Given the gaze endpoint", t, func() {
		deps := newMockDependencies()
		mux := newTestMux(deps)

		post := func(body string) *httptest.ResponseRecorder {
			req := httptest.NewRequest("POST", "/gaze", strings.NewReader(body))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			return w
		}

		Convey("When posting valid samples", func() {
			w := post(`{"samples":[{"session_id":"s1","run_id":"r1","block_id":"b1","screen_id":"home","ts":"2025-03-01T12:00:00Z","x":0.5,"y":0.25}]}`)

			Convey("Then they should be accepted and recorded", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(len(deps.gaze), ShouldEqual, 1)
				So(deps.gaze[0].XNorm, ShouldEqual, 0.5)
				So(deps.gaze[0].YNorm, ShouldEqual, 0.25)
			})
		})

		Convey("When coordinates fall outside the unit square", func() {
			w := post(`{"samples":[{"session_id":"s1","block_id":"b1","screen_id":"home","ts":"2025-03-01T12:00:00Z","x":1.5,"y":0.25}]}`)

			Convey("Then it should answer 400", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestSummaryHandler(t *testing.T) {
	Convey("Given the summary report endpoint", t, func() {
		deps := newMockDependencies()
		deps.summary = types.Summary{BlockID: "b1", Sessions: 10, CompletionRate: 0.8}
		mux := newTestMux(deps)

		Convey("When requesting a block summary", func() {
			req := httptest.NewRequest("GET", "/reports/summary?block_id=b1", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it should return the summary JSON", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var got types.Summary
				So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
				So(got.BlockID, ShouldEqual, "b1")
				So(got.Sessions, ShouldEqual, 10)
				So(got.CompletionRate, ShouldEqual, 0.8)
			})
		})

		Convey("When the block id is missing", func() {
			req := httptest.NewRequest("GET", "/reports/summary", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it should answer 400", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the block does not exist", func() {
			deps.summaryErr = fmt.Errorf("block b9: %w", api.ErrNotFound)
			req := httptest.NewRequest("GET", "/reports/summary?block_id=b9", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it should answer 404", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestFlowHandler(t *testing.T) {
	Convey("Given the flow report endpoint", t, func() {
		deps := newMockDependencies()
		deps.graph = &flow.Graph{
			Nodes: []flow.Node{{ID: "start", Kind: flow.NodeStart}},
		}
		mux := newTestMux(deps)

		Convey("When requesting a block flow", func() {
			req := httptest.NewRequest("GET", "/reports/flow?block_id=b1", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it should return the graph JSON", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var got flow.Graph
				So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
				So(len(got.Nodes), ShouldEqual, 1)
				So(got.Nodes[0].ID, ShouldEqual, "start")
			})
		})

		Convey("When the block id is missing", func() {
			req := httptest.NewRequest("GET", "/reports/flow", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it should answer 400", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestHeatmapHandler(t *testing.T) {
	Convey("Given the heatmap report endpoint", t, func() {
		deps := newMockDependencies()
		points := []model.HeatPoint{{X: 10, Y: 10, Weight: 1}}
		deps.raster = heatmap.New().Rasterize(points, 64, 64, 1)
		mux := newTestMux(deps)

		Convey("When requesting a click heatmap", func() {
			req := httptest.NewRequest("GET", "/reports/heatmap?block_id=b1&screen_id=home", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it should return a decodable PNG", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "image/png")
				img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
				So(err, ShouldBeNil)
				So(img.Bounds().Dx(), ShouldEqual, 64)
			})
		})

		Convey("When the screen id is missing", func() {
			req := httptest.NewRequest("GET", "/reports/heatmap?block_id=b1", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it should answer 400", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the source is unknown", func() {
			req := httptest.NewRequest("GET", "/reports/heatmap?block_id=b1&screen_id=home&source=sonar", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it should answer 400", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestClicksHandler(t *testing.T) {
	Convey("Given the click overlay endpoint", t, func() {
		deps := newMockDependencies()
		deps.markers = []types.ClickMarker{
			{SessionID: "sess-1", Ordinal: 0, X: 100, Y: 50},
			{SessionID: "sess-2", Ordinal: 1, X: 640, Y: 400, Fallback: true},
		}
		mux := newTestMux(deps)

		Convey("When requesting the overlay", func() {
			req := httptest.NewRequest("GET", "/reports/clicks?block_id=b1&screen_id=home", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it should return the markers in order", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var got struct {
					BlockID  string              `json:"block_id"`
					ScreenID string              `json:"screen_id"`
					Markers  []types.ClickMarker `json:"markers"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
				So(got.BlockID, ShouldEqual, "b1")
				So(got.ScreenID, ShouldEqual, "home")
				So(got.Markers, ShouldHaveLength, 2)
				So(got.Markers[0].SessionID, ShouldEqual, "sess-1")
				So(got.Markers[1].Fallback, ShouldBeTrue)
			})
		})

		Convey("When no clicks exist for the screen", func() {
			deps.markers = nil
			req := httptest.NewRequest("GET", "/reports/clicks?block_id=b1&screen_id=ghost", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it should return an empty marker list", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"markers":[]`)
			})
		})

		Convey("When the screen id is missing", func() {
			req := httptest.NewRequest("GET", "/reports/clicks?block_id=b1", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it should answer 400", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestScaleHandler(t *testing.T) {
	Convey("Given the scale report endpoint", t, func() {
		deps := newMockDependencies()
		deps.scale = types.ScaleReport{
			BlockID:   "b1",
			Histogram: map[int]int{7: 3, 9: 1},
			Mean:      7.5,
			Answers:   4,
		}
		mux := newTestMux(deps)

		Convey("When requesting a scale report", func() {
			req := httptest.NewRequest("GET", "/reports/scale?block_id=b1", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it should return the report JSON", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var got types.ScaleReport
				So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
				So(got.Mean, ShouldEqual, 7.5)
				So(got.Answers, ShouldEqual, 4)
			})
		})

		Convey("When the block id is missing", func() {
			req := httptest.NewRequest("GET", "/reports/scale", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it should answer 400", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}
