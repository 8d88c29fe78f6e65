// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"time"
)

type (
	// Task is one build step.
	Task struct {
		Name string
		Run  func(ctx context.Context, bc *Context) error
	}
)

// ArchiveTasks returns the tasks of an archive build in order.
func ArchiveTasks() []Task {
	return []Task{
		{"prepare", taskPrepare},
		{"load", taskLoad},
		{"build_map", taskBuildMap},
		{"compile", taskCompile},
		{"verify", taskVerify},
		{"encrypt", taskEncrypt},
		{"update_bundle_info", taskUpdateBundleInfo},
		{"manifest", taskManifest},
		{"copy", taskCopy},
		{"report", taskReport},
		{"save_cache", taskSaveCache},
	}
}

// SimulateTasks returns the tasks of a simulated build in order.
func SimulateTasks() []Task {
	return []Task{
		{"prepare", taskPrepare},
		{"load", taskLoad},
		{"build_map", taskBuildMap},
		{"update_bundle_info", taskUpdateBundleInfo},
		{"manifest", taskManifest},
		{"report", taskReport},
		{"save_cache", taskSaveCache},
	}
}

// PlanTasks returns the tasks that resolve the bundle grouping without writing any
// output.
func PlanTasks() []Task {
	return []Task{
		{"load", taskLoad},
		{"build_map", taskBuildMap},
	}
}

// Build runs the tasks of the configured build mode.
func Build(ctx context.Context, bc *Context) error {
	if bc.Params.BuildMode == ModeSimulate {
		return Run(ctx, bc, SimulateTasks())
	}
	return Run(ctx, bc, ArchiveTasks())
}

// Run executes tasks in order and stops at the first failure.
func Run(ctx context.Context, bc *Context, tasks []Task) error {
	bc.init()
	bc.Started = bc.Now()
	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := bc.Now()
		bc.Logger.Debug("task started", "task", task.Name)
		if err := task.Run(ctx, bc); err != nil {
			bc.Logger.Error("task failed", "task", task.Name, "error", err)
			return err
		}
		bc.Logger.Debug("task finished", "task", task.Name, "duration", bc.Now().Sub(start).Round(time.Millisecond))
	}
	return nil
}
