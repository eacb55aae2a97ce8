package refresh

import (
	"context"

	"github.com/rotisserie/eris"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
)

// Register adds the refresh workflow and activities to w.
func Register(w worker.Registry, acts *Activities) {
	w.RegisterWorkflowWithOptions(RefreshStaleWorkflow, workflow.RegisterOptions{Name: WorkflowName})
	w.RegisterActivity(acts)
}

// Start launches one refresh run on taskQueue and returns without waiting
// for it.
func Start(ctx context.Context, c client.Client, taskQueue string, in RefreshInput) (client.WorkflowRun, error) {
	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		// A start while a run is in flight returns that run.
		ID:        "refresh-stale",
		TaskQueue: taskQueue,
	}, WorkflowName, in)
	if err != nil {
		return nil, eris.Wrap(err, "refresh: start workflow")
	}
	return run, nil
}
