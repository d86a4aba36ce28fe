/*
Package ports defines the driven ports (interfaces) for the Stepwise engine.

These interfaces decouple the wizard core from external implementations:
answer persistence, the fast field cache, the verification-code channel, the
submission sink, distributed locking, and the renderable-unit loader.
*/
package ports
