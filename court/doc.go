// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package court assembles the historical court on top of the workflow engine.

A trial resets the session, lets the clerk record the topic, then runs a
bounded loop of investigation rounds. In each round the admirer and the
critic gather evidence in parallel and the judge decides whether both sides
hold enough items. The judge checks the negative side first and either
writes feedback for the next round or ends the loop. The verdict scribe
writes the three-section report whether the loop ended early or at its cap.

# Service

Service wires the collaborators from config.Config: the rule backend and
the research source behind the retry policy, the optional Redis research
cache, the report store, the audit trail and the metrics collector.

	svc, err := court.NewService(cfg, court.WithRunStore(store))
	verdict, err := svc.Run(ctx, "Tell me about Marie Curie")
*/
package court
