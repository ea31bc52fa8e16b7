package handlers

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"mediastudio/internal/domain"
	"mediastudio/pkg/zip"
)

// Archive streams a zip of a completed job's script and stored artifacts.
func (a *App) Archive(kind domain.JobKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, ok := a.loadOwned(w, r, kind)
		if !ok {
			return
		}
		if job.Status != domain.JobStatusCompleted {
			a.error(w, http.StatusConflict, "conflict", "archive is available once the job has completed")
			return
		}

		var entries []zip.Entry
		if job.Artifacts.Script != nil {
			entries = append(entries, zip.Entry{Filename: "script.txt", Data: []byte(*job.Artifacts.Script)})
		}
		add := func(name string, obj domain.StoredObject) {
			if obj.ID == "" {
				return
			}
			entries = append(entries, zip.Entry{
				Filename: name + extOf(obj.URL),
				Open:     func() (io.ReadCloser, error) { return a.Store.Open(r.Context(), obj) },
			})
		}
		if job.Artifacts.Audio != nil {
			add("audio", *job.Artifacts.Audio)
		}
		for i, scene := range job.Artifacts.Scenes {
			add(fmt.Sprintf("scenes/scene-%02d", i+1), scene)
		}
		if job.Artifacts.Thumbnail != nil {
			add("thumbnail", *job.Artifacts.Thumbnail)
		}

		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s-%s.zip", kind, job.ID))
		w.WriteHeader(http.StatusOK)
		if err := zip.Write(w, entries); err != nil {
			a.Logger.Error().Err(err).Str("job_id", job.ID).Msg("archive stream aborted")
		}
	}
}

func extOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if len(ext) > 6 {
		return ""
	}
	return ext
}
