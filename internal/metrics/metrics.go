package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	labelUnknown = "unknown"

	OutcomeOK      = "ok"
	OutcomeFailed  = "failed"
	OutcomeDropped = "dropped"

	AnswerCorrect = "correct"
	AnswerWrong   = "wrong"

	SyncProgress = "progress"
	SyncAnswer   = "answer"
	SyncFetch    = "fetch"
)

var (
	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lessonplay_sessions_active",
		Help: "Playback sessions currently held in memory",
	})

	questionsTriggeredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lessonplay_questions_triggered_total",
		Help: "Questions that interrupted playback, by video type",
	}, []string{"video_type"})

	answersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lessonplay_answers_total",
		Help: "Graded answers by video type and outcome",
	}, []string{"video_type", "outcome"})

	rollbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lessonplay_rollbacks_total",
		Help: "Wrong-answer rollbacks by video type",
	}, []string{"video_type"})

	sessionsCompletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lessonplay_sessions_completed_total",
		Help: "Sessions that crossed the completion threshold, by video type",
	}, []string{"video_type"})

	syncTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lessonplay_sync_total",
		Help: "Remote progress service calls by kind and outcome",
	}, []string{"kind", "outcome"})
)

func SessionStarted() { sessionsActive.Inc() }
func SessionEnded()   { sessionsActive.Dec() }

func IncQuestionTriggered(videoType string) {
	questionsTriggeredTotal.WithLabelValues(normalizeVideoType(videoType)).Inc()
}

func IncAnswer(videoType string, correct bool) {
	outcome := AnswerWrong
	if correct {
		outcome = AnswerCorrect
	}
	answersTotal.WithLabelValues(normalizeVideoType(videoType), outcome).Inc()
}

func IncRollback(videoType string) {
	rollbacksTotal.WithLabelValues(normalizeVideoType(videoType)).Inc()
}

func IncCompleted(videoType string) {
	sessionsCompletedTotal.WithLabelValues(normalizeVideoType(videoType)).Inc()
}

// ObserveSync counts one remote call. A nil err is recorded as ok.
func ObserveSync(kind string, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeFailed
	}
	IncSync(kind, outcome)
}

func IncSync(kind, outcome string) {
	syncTotal.WithLabelValues(normalizeSyncKind(kind), normalizeOutcome(outcome)).Inc()
}

func normalizeVideoType(v string) string {
	switch v {
	case "basic", "trackable", "trackableRandom", "interactive":
		return v
	}
	return labelUnknown
}

func normalizeSyncKind(k string) string {
	switch k {
	case SyncProgress, SyncAnswer, SyncFetch:
		return k
	}
	return labelUnknown
}

func normalizeOutcome(o string) string {
	switch o {
	case OutcomeOK, OutcomeFailed, OutcomeDropped:
		return o
	}
	return labelUnknown
}
