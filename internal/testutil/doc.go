// Package testutil contains helper builders and store doubles used across
// tests to reduce boilerplate when constructing agents, memory entries and
// failure scenarios. They are not intended for production usage.
package testutil
