/*

Process of compilation

Compilation Unit (yaml) ->
	ParseUnit ->
Symbol Table (sym) + Three-Address Code (tac) ->
	frame.Plan ->
Frame Layouts (frame) ->
	back.Compile ->
Assembly Listing (asm)

The back end walks the code once.
Registers and variable locations are tracked by desc.Store,
everything is written back to memory at basic block boundaries.

*/
package compiler
