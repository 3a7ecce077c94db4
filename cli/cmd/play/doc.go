// Package play implements the interactive template playground.
//
// Template text typed at the prompt is compiled against the render context
// of one block instance and printed. Esc switches to command mode, where
// field values, the block and its id are edited. Both modes share a
// persistent history and fuzzy completion of field paths, resolvers and
// token names.
package play
