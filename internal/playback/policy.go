package playback

import "github.com/vytor/lessonplay/internal/models"

// CanSeek reports whether the learner may seek. Completed videos are always
// seekable; before that only basic videos are.
func CanSeek(vt models.VideoType, completed bool) bool {
	return completed || vt == models.VideoBasic
}

// RollbackTarget is where a wrong answer sends playback. ok is false when
// the video type has no rollback.
func RollbackTarget(vt models.VideoType, checkpoint float64) (target float64, ok bool) {
	switch vt {
	case models.VideoBasic:
		return 0, false
	case models.VideoInteractive:
		return checkpoint, true
	default:
		// trackable and trackableRandom restart from the beginning.
		return 0, true
	}
}

// ResumePosition is where a session starts given the prior progress.
func ResumePosition(vt models.VideoType, completed bool, lastTime, checkpoint float64) float64 {
	if completed || vt == models.VideoBasic {
		return lastTime
	}
	if vt == models.VideoInteractive {
		return checkpoint
	}
	return 0
}
