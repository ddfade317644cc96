// Package prompt assembles the context text for one dialogue turn.
//
// The Assembler fetches memory, knowledge, the linked project and the project
// manifest concurrently and renders them into a single prompt in a fixed
// block order. Memory is strictly scoped to the target agent; the linked
// project is best effort.
package prompt
