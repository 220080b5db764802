/*

Process of compilation

L2 Text ->
	parse ->
L2 Program (l2) ->
	for every function:
		liveness -> interference -> coloring -> spill -> ... (regalloc) ->
		lower stack arguments ->
L1 Program (l2, no variables) ->
	print ->
L1 Text

*/
package compiler
