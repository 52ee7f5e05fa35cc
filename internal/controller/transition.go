package controller

import (
	"capdeck/internal/logging"
	"capdeck/internal/messages"
)

// transition applies req to the current state. It runs with mu held.
func (c *Controller) transition(req Request) bool {
	switch c.st.phase {
	case Idle:
		return c.idle(req)
	case Previewing:
		return c.previewing(req)
	case PausedPreviewing:
		return c.pausedPreviewing(req)
	case Recording:
		return c.recording(req)
	case PausedRecording:
		return c.pausedRecording(req)
	}
	c.unexpected(req)
	return true
}

func (c *Controller) idle(req Request) bool {
	switch req.Kind {
	case SetEnabled:
		current := c.prefs.Enabled()
		if current == req.Enabled {
			return true
		}
		if !req.Enabled {
			c.persistEnabled(false)
			return true
		}
		if !c.startPreviewing() {
			return false
		}
		c.setPhase(Previewing)
		c.persistEnabled(true)
		return true
	case StartPreview:
		if c.startPreviewing() {
			c.setPhase(Previewing)
		}
	case ShowSettings:
		c.media.ShowSettingsDialog()
	case Dispose, PausePreview, ResumePreview:
		c.logger.Debug("nothing to do while idle", logging.String("request", req.Kind.String()))
	case TakePhoto:
		c.show(messages.Info, messages.PhotoWhenIdle)
	default:
		c.unexpected(req)
	}
	return true
}

func (c *Controller) previewing(req Request) bool {
	switch req.Kind {
	case SetEnabled:
		if req.Enabled {
			return true
		}
		c.persistEnabled(false)
		c.media.StopPreviewing()
		c.setPhase(Idle)
	case ShowSettings:
		c.media.ShowSettingsDialog()
	case Dispose:
		c.media.StopPreviewing()
		c.setPhase(Idle)
	case StartOrStopRecording:
		c.startRecording()
	case PausePreview:
		c.media.PausePreview()
		c.setPhase(PausedPreviewing)
	case TakePhoto:
		c.takePhoto()
	case DeviceConnectionLost:
		c.previewFailed(messages.DeviceConnectionLost)
	case DeviceNotFound:
		c.previewFailed(messages.DeviceNotFound, req.Device)
	case PreviewingException:
		c.previewFailed(messages.InternalError)
	default:
		c.unexpected(req)
	}
	return true
}

func (c *Controller) pausedPreviewing(req Request) bool {
	switch req.Kind {
	case StartPreview:
		c.unexpected(req)
		c.media.ResumePreview()
		c.setPhase(Previewing)
	case ShowSettings:
		c.unexpected(req)
		c.media.ResumePreview()
		c.setPhase(Previewing)
		return c.previewing(req)
	case PausePreview:
		c.unexpected(req)
	case ResumePreview:
		c.media.ResumePreview()
		c.setPhase(Previewing)
	default:
		return c.previewing(req)
	}
	return true
}

func (c *Controller) recording(req Request) bool {
	switch req.Kind {
	case SetEnabled:
		if req.Enabled != c.prefs.Enabled() {
			c.show(messages.Info, messages.PreferencesLockedWhileRecording)
			return false
		}
	case ShowSettings:
		c.show(messages.Info, messages.PreferencesLockedWhileRecording)
	case Dispose:
		c.unexpected(req)
		c.stopRecording()
		c.media.StopPreviewing()
		c.setPhase(Idle)
	case StartOrStopRecording:
		if c.st.stopRequested {
			c.show(messages.Info, messages.RecordingFinishing)
			return true
		}
		c.stopRecording()
	case PauseOrResumeRecording:
		c.media.PauseRecording()
		c.setPhase(PausedRecording)
	case PausePreview:
		if c.st.previewPhase == PausedPreviewing {
			c.unexpected(req)
			return true
		}
		c.media.PausePreview()
		c.st.previewPhase = PausedPreviewing
	case ResumePreview:
		if c.st.previewPhase == Previewing {
			c.unexpected(req)
			return true
		}
		c.media.ResumePreview()
		c.st.previewPhase = Previewing
	case TakePhoto:
		c.takePhoto()
	case OutOfDiskSpace:
		c.show(messages.Error, messages.OutOfDiskSpace)
	case LostFileAccess:
		c.show(messages.Error, messages.LostFileAccess)
	case RecordingException:
		c.show(messages.Error, messages.InternalError)
	case DeviceConnectionLost:
		c.previewFailedWhileRecording(messages.DeviceConnectionLost)
	case DeviceNotFound:
		c.previewFailedWhileRecording(messages.DeviceNotFound, req.Device)
	case PreviewingException:
		c.previewFailedWhileRecording(messages.InternalError)
	case RecordingFinished:
		c.setPhase(c.st.previewPhase)
	default:
		c.unexpected(req)
	}
	return true
}

func (c *Controller) pausedRecording(req Request) bool {
	if req.Kind == PauseOrResumeRecording {
		c.media.ResumeRecording()
		c.setPhase(Recording)
		return true
	}
	return c.recording(req)
}

// startRecording needs an active selection. On success the current preview
// phase is remembered so RecordingFinished can restore it.
func (c *Controller) startRecording() {
	if c.selection == nil || !c.selection.HasSelection() {
		c.show(messages.Info, messages.RecordWithoutSelection)
		return
	}
	path, err := c.selection.SuggestVideoPath()
	if err != nil {
		logging.ErrorWithContext(c.logger, "could not choose a video file", "video_path_failed", logging.Error(err))
		c.show(messages.Error, messages.InternalError)
		return
	}
	if err := c.media.StartRecording(path); err != nil {
		logging.ErrorWithContext(c.logger, "recording start failed", "recording_start_failed",
			logging.String("path", path),
			logging.Error(err),
		)
		c.show(messages.Error, messages.InternalError)
		return
	}
	c.selection.VideoAdded(path)
	preview := c.st.phase
	c.setPhase(Recording)
	c.st.previewPhase = preview
	c.st.stopRequested = false
}

func (c *Controller) stopRecording() {
	if c.st.stopRequested {
		return
	}
	c.media.StopRecording()
	c.st.stopRequested = true
}

func (c *Controller) takePhoto() {
	if c.selection == nil || !c.selection.HasSelection() {
		c.show(messages.Info, messages.PhotoWithoutSelection)
		return
	}
	frame, ok := c.media.TakePhoto()
	if !ok {
		c.show(messages.Info, messages.PhotoUnavailable)
		return
	}
	c.selection.PhotoCaptured(frame)
}

// previewFailed disables video, tears the session down and returns to Idle.
func (c *Controller) previewFailed(key messages.Key, args ...any) {
	logging.WarnWithContext(c.logger, "preview failed; disabling video", "preview_failed",
		logging.String("reason", string(key)),
		logging.String(logging.FieldImpact, "video disabled until re-enabled"),
	)
	c.persistEnabled(false)
	c.show(messages.Error, key, args...)
	if c.onDisabled != nil {
		c.effects = append(c.effects, c.onDisabled)
	}
	c.media.StopPreviewing()
	c.setPhase(Idle)
}

// previewFailedWhileRecording stops only the recording; RecordingFinished
// restores the remembered preview phase.
func (c *Controller) previewFailedWhileRecording(key messages.Key, args ...any) {
	logging.WarnWithContext(c.logger, "preview failed while recording; stopping recording", "preview_failed_recording",
		logging.String("reason", string(key)),
		logging.String(logging.FieldImpact, "recording stopped"),
	)
	c.media.StopRecording()
	c.st.stopRequested = true
	c.show(messages.Error, key, args...)
}
