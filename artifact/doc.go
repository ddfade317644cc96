// Package artifact contains implementations of core.FileStore.
//
// The FileStore interface lives in the core package so the engine can depend
// on it without importing storage backends. Uploaded files are addressed by an
// opaque URL that is forwarded to the generative-text service unchanged.
package artifact
