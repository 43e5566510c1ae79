package processor

import (
	"context"
	"fmt"

	"github.com/fieldsafe/fieldsync/internal/action"
	"github.com/fieldsafe/fieldsync/internal/remote"
)

// replayHazardReport uploads every attached media file, assembles the report
// document and creates it remotely. Uploads are all-or-nothing: any failure
// fails the whole action and the next pass re-uploads everything.
func (p *Processor) replayHazardReport(ctx context.Context, pl *action.HazardReportSubmitPayload) error {
	if err := action.Validate(pl); err != nil {
		return err
	}

	var images, videos []action.MediaRef
	var audio *action.MediaRef
	for _, media := range filterMedia(pl.MediaFiles, action.MediaImage) {
		ref, err := p.uploader.Upload(ctx, media.URI, media.Type)
		if err != nil {
			return fmt.Errorf("upload image: %w", err)
		}
		images = append(images, *ref)
	}
	for _, media := range filterMedia(pl.MediaFiles, action.MediaVideo) {
		ref, err := p.uploader.Upload(ctx, media.URI, media.Type)
		if err != nil {
			return fmt.Errorf("upload video: %w", err)
		}
		videos = append(videos, *ref)
	}
	if clips := filterMedia(pl.MediaFiles, action.MediaAudio); len(clips) > 0 {
		ref, err := p.uploader.Upload(ctx, clips[0].URI, clips[0].Type)
		if err != nil {
			return fmt.Errorf("upload audio: %w", err)
		}
		audio = ref
	}

	doc := remote.HazardReportDoc(pl.Report, images, videos, audio)
	p.backfillSiteTriple(ctx, doc, pl.Report.UserID)

	_, err := p.api.SubmitHazardReport(ctx, doc)
	return err
}

// replayEmergencyAlert backfills site scoping when missing and creates the
// alert. Creation is not idempotent; the client token on the document lets
// the backend dedupe replays after an uncertain-outcome attempt.
func (p *Processor) replayEmergencyAlert(ctx context.Context, pl *action.EmergencySosCreatePayload) error {
	if err := action.Validate(pl); err != nil {
		return err
	}
	doc := remote.EmergencyAlertDoc(pl.Alert)
	p.backfillSiteTriple(ctx, doc, pl.Alert.UserID)
	_, err := p.api.CreateEmergencyAlert(ctx, doc)
	return err
}

func filterMedia(files []action.LocalMedia, mediaType action.MediaType) []action.LocalMedia {
	var out []action.LocalMedia
	for _, f := range files {
		if f.Type == mediaType {
			out = append(out, f)
		}
	}
	return out
}

// backfillSiteTriple fills the state/coalfield/mine scoping from the user
// profile when the document lacks it. Best effort: a profile fetch failure
// leaves the document as-is and the remote store has the final say.
func (p *Processor) backfillSiteTriple(ctx context.Context, doc map[string]any, userID string) {
	if userID == "" {
		return
	}
	if hasString(doc, "stateId") && hasString(doc, "coalfieldId") && hasString(doc, "mineId") {
		return
	}
	profile, ok, err := p.api.GetUserProfile(ctx, userID)
	if err != nil {
		p.logg.Warn(p.logg.WithField(ctx, "error", err.Error()), "failed to backfill site scoping from profile")
		return
	}
	if !ok {
		return
	}
	remote.ApplySite(doc, profile.Site)
}

func hasString(doc map[string]any, key string) bool {
	value, ok := doc[key].(string)
	return ok && value != ""
}
