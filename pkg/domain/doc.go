/*
Package domain contains the core types of the Stepwise wizard engine: step
identifiers, the accumulated answer set, the wizard state snapshot, lifecycle
events, and the error taxonomy shared by the engine and its adapters.

Types here are plain data with no behavior beyond small invariant-preserving
helpers. All business logic lives in the registry and the engine.
*/
package domain
