// Package entity contains the process-local implementation of the agent,
// project and knowledge collections (core.AgentStore, core.ProjectStore,
// core.KnowledgeStore). NewEntityStore pairs it with memory.InMemoryStore to
// satisfy core.EntityStore for tests, demos and single-process setups.
package entity
