package errors

import "fmt"

// SyncKind classifies failures of the playback engine and its remote collaborators.
type SyncKind string

const (
	// KindContentLoad is fatal to the session: there is no video to play.
	KindContentLoad SyncKind = "content_load"
	// KindProgressFetch falls back to a fresh start.
	KindProgressFetch SyncKind = "progress_fetch"
	// KindProgressSubmit is retried implicitly on the next throttled tick.
	KindProgressSubmit SyncKind = "progress_submit"
	// KindAnswerSubmit is logged; local state was already updated.
	KindAnswerSubmit SyncKind = "answer_submit"
)

// SyncError wraps a failure with its kind and the video it concerns.
type SyncError struct {
	Kind    SyncKind
	VideoID string
	Err     error
}

func (e *SyncError) Error() string {
	if e.VideoID == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s (video %s): %v", e.Kind, e.VideoID, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

func ContentLoad(videoID string, err error) *SyncError {
	return &SyncError{Kind: KindContentLoad, VideoID: videoID, Err: err}
}

func ProgressFetch(videoID string, err error) *SyncError {
	return &SyncError{Kind: KindProgressFetch, VideoID: videoID, Err: err}
}

func ProgressSubmit(videoID string, err error) *SyncError {
	return &SyncError{Kind: KindProgressSubmit, VideoID: videoID, Err: err}
}

func AnswerSubmit(videoID string, err error) *SyncError {
	return &SyncError{Kind: KindAnswerSubmit, VideoID: videoID, Err: err}
}

// IsKind reports whether err wraps a SyncError of the given kind.
func IsKind(err error, kind SyncKind) bool {
	var se *SyncError
	if !As(err, &se) {
		return false
	}
	return se.Kind == kind
}
