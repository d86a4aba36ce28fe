/*
Package stepwise is a branching product-configuration wizard engine.

A flow is a directed graph of steps declared in a Registry (in Go or as a
YAML flow file). The Wizard walks a user through it: each Advance merges the
step's answers, validates them against the step's schema, resolves the
step's branch function (including bounded skip chains) and moves forward;
Retreat walks the history stack back with answers preserved; Jump is a
guarded debug operation for development tooling.

Answers persist best-effort through a pluggable store (memory, file, Redis)
with a fast per-field cache for reload resilience, and the final answer set
is pruned of stale branches and mapped onto an external record for
submission.

Minimal use:

	reg := configurator.New(verifier)
	wiz, err := stepwise.New(reg, sessionID, stepwise.WithStore(file.New("")))
	if err != nil { ... }
	state, _ := wiz.Start(ctx)
	state, err = wiz.Advance(ctx, domain.AnswerSet{"email": "a@b.com"})
*/
package stepwise
