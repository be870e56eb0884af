package engine

import (
	"context"
	"fmt"

	"github.com/gcbaptista/go-doc-search/config"
	"github.com/gcbaptista/go-doc-search/model"
)

// ImportFromSourceAsync imports a Sphinx index from location in a background job.
func (e *Engine) ImportFromSourceAsync(name, location string, settings *config.IndexSettings) (string, error) {
	if _, err := e.resolveSettings(name, settings); err != nil {
		return "", err
	}
	settings = cloneSettings(settings)

	jobID := e.jobManager.CreateJob(model.JobTypeImportIndex, name, map[string]string{
		"source": location,
	})
	err := e.jobManager.ExecuteJob(jobID, func(ctx context.Context, job *model.Job) error {
		e.jobManager.UpdateJobProgress(jobID, 0, 2, "fetching "+location)
		if err := e.ImportFromSource(ctx, name, location, settings); err != nil {
			return err
		}
		e.jobManager.UpdateJobProgress(jobID, 2, 2, "index published")
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to start import job: %w", err)
	}
	return jobID, nil
}

// BuildIndexAsync builds an index from a manifest in a background job.
func (e *Engine) BuildIndexAsync(name string, manifest model.BuildManifest, settings *config.IndexSettings) (string, error) {
	if _, err := e.resolveSettings(name, settings); err != nil {
		return "", err
	}
	settings = cloneSettings(settings)

	jobID := e.jobManager.CreateJob(model.JobTypeBuildIndex, name, map[string]string{
		"documents": fmt.Sprint(len(manifest.Documents)),
		"objects":   fmt.Sprint(len(manifest.Objects)),
	})
	err := e.jobManager.ExecuteJob(jobID, func(ctx context.Context, job *model.Job) error {
		total := len(manifest.Documents) + len(manifest.Objects)
		if err := e.BuildIndex(name, manifest, settings); err != nil {
			return err
		}
		e.jobManager.UpdateJobProgress(jobID, total, total, "index published")
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to start build job: %w", err)
	}
	return jobID, nil
}

// DeleteIndexAsync deletes an index in a background job.
func (e *Engine) DeleteIndexAsync(name string) (string, error) {
	if _, err := e.instance(name); err != nil {
		return "", err
	}

	jobID := e.jobManager.CreateJob(model.JobTypeDeleteIndex, name, nil)
	err := e.jobManager.ExecuteJob(jobID, func(ctx context.Context, job *model.Job) error {
		return e.DeleteIndex(name)
	})
	if err != nil {
		return "", fmt.Errorf("failed to start delete job: %w", err)
	}
	return jobID, nil
}

// cloneSettings detaches settings from the caller before a job captures it.
func cloneSettings(settings *config.IndexSettings) *config.IndexSettings {
	if settings == nil {
		return nil
	}
	clone := settings.Clone()
	return &clone
}
