// Package flows implements the selectable checkout flows: the branded vault
// card flow that pays with a stored wallet instrument, and the web checkout
// flow that every other path falls back to.
package flows
