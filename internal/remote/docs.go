package remote

import "github.com/fieldsafe/fieldsync/internal/action"

// HazardReportDoc flattens the report and its uploaded media into the remote
// document shape. Absent optional fields are omitted entirely so the remote
// store never sees empty placeholders.
func HazardReportDoc(report action.HazardReport, images, videos []action.MediaRef, audio *action.MediaRef) map[string]any {
	doc := map[string]any{
		"userId":      report.UserID,
		"description": report.Description,
		"timestamp":   report.Timestamp,
	}
	setIfPresent(doc, "reporterName", report.ReporterName)
	setIfPresent(doc, "category", report.Category)
	setIfPresent(doc, "severity", report.Severity)
	setIfPresent(doc, "priority", report.Priority)
	setIfPresent(doc, "status", report.Status)
	setIfPresent(doc, "voiceTranscription", report.VoiceTranscription)
	if report.Location != nil {
		doc["location"] = locationDoc(*report.Location)
	}
	ApplySite(doc, report.Site)
	if len(report.Tags) > 0 {
		doc["tags"] = report.Tags
	}

	media := map[string]any{}
	if len(images) > 0 {
		media["images"] = mediaRefDocs(images, false)
	}
	if len(videos) > 0 {
		media["videos"] = mediaRefDocs(videos, true)
	}
	if audio != nil {
		media["audio"] = map[string]any{
			"url":      audio.URL,
			"publicId": audio.PublicID,
			"bytes":    audio.Bytes,
			"duration": audio.Duration,
		}
	}
	if len(media) > 0 {
		doc["media"] = media
	}
	return doc
}

// EmergencyAlertDoc builds the alert document. The direct write path and the
// queue replay path both go through here so the shapes cannot drift.
func EmergencyAlertDoc(alert action.EmergencyAlert) map[string]any {
	doc := map[string]any{
		"userId":    alert.UserID,
		"type":      alert.Type,
		"timestamp": alert.Timestamp,
	}
	setIfPresent(doc, "userName", alert.UserName)
	setIfPresent(doc, "userRole", alert.UserRole)
	setIfPresent(doc, "message", alert.Message)
	setIfPresent(doc, "clientToken", alert.ClientToken)
	if alert.Location != nil {
		doc["location"] = locationDoc(*alert.Location)
	}
	ApplySite(doc, alert.Site)
	return doc
}

// ApplySite copies the non-empty site scoping fields onto the document.
func ApplySite(doc map[string]any, site action.SiteRef) {
	setIfPresent(doc, "stateId", site.StateID)
	setIfPresent(doc, "stateName", site.StateName)
	setIfPresent(doc, "coalfieldId", site.CoalfieldID)
	setIfPresent(doc, "coalfieldName", site.CoalfieldName)
	setIfPresent(doc, "mineId", site.MineID)
	setIfPresent(doc, "mineName", site.MineName)
}

func setIfPresent(doc map[string]any, key, value string) {
	if value != "" {
		doc[key] = value
	}
}

func locationDoc(loc action.Location) map[string]any {
	out := map[string]any{
		"latitude":  loc.Latitude,
		"longitude": loc.Longitude,
		"accuracy":  loc.Accuracy,
	}
	setIfPresent(out, "address", loc.Address)
	return out
}

func mediaRefDocs(refs []action.MediaRef, withDuration bool) []any {
	out := make([]any, 0, len(refs))
	for _, ref := range refs {
		entry := map[string]any{
			"url":      ref.URL,
			"publicId": ref.PublicID,
			"width":    ref.Width,
			"height":   ref.Height,
			"bytes":    ref.Bytes,
		}
		if withDuration {
			entry["duration"] = ref.Duration
		}
		out = append(out, entry)
	}
	return out
}
