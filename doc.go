/*
Package gantry orchestrates multi-step work modeled as a DAG of typed slots.

Each slot is guarded by pre- and post-conditions (gates) and the run state is
persisted after every transition, so a pipeline can be resumed by any process
that has the same definition. gantry never does the work itself: an external
driver (an agent, a CLI user, a CI job) polls for ready slots and reports when
it begins, completes, fails or skips them.

# Usage

	eng, err := gantry.New(".", gantry.WithObservers(observability.NewLogHooks(logger)))
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	sess, err := eng.Prepare(ctx, "pipelines/feature.yaml", map[string]any{"feature": "login"})
	if err != nil {
		log.Fatal(err)
	}

	for {
		next := sess.Next()
		if len(next) == 0 {
			break
		}
		slot := next[0]
		if _, err := sess.Begin(ctx, slot.ID, "coder", "agents/coder.md"); err != nil {
			log.Fatal(err)
		}
		// ... the agent works on slot.Task ...
		if _, err := sess.Complete(ctx, slot.ID); err != nil {
			log.Fatal(err)
		}
	}
	fmt.Println(sess.Summary())

A later process picks the run up again with Engine.Resume, which refuses to
continue if the pipeline definition changed since the run was prepared.
*/
package gantry
